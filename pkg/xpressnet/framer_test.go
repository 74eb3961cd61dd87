// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xpressnet

import (
	"bytes"
	"testing"
)

func TestEncodeFrame_XorChecksum(t *testing.T) {
	frame := encodeFrame(LI100, []byte{0x21, 0x81})
	if len(frame) != 3 {
		t.Fatalf("frame length = %d, want 3", len(frame))
	}
	var x byte
	for _, b := range frame {
		x ^= b
	}
	if x != 0 {
		t.Errorf("XOR of full frame = 0x%02X, want 0", x)
	}
}

func TestEncodeFrame_LIUSBEthEnvelope(t *testing.T) {
	frame := encodeFrame(LIUSBEth, []byte{0x21, 0x81})
	if !bytes.HasPrefix(frame, []byte{0xFF, 0xFE}) {
		t.Errorf("expected LIUSBEth envelope prefix, got % X", frame)
	}
}

func TestFramer_Feed_SingleFrame(t *testing.T) {
	f := NewFramer(LI100, int64(300e6))
	frame := encodeFrame(LI100, []byte{0x21, 0x81})
	got := f.Feed(frame, 0)
	if len(got) != 1 {
		t.Fatalf("got %d frames, want 1", len(got))
	}
	if !bytes.Equal(got[0], []byte{0x21, 0x81}) {
		t.Errorf("frame = % X, want 21 81", got[0])
	}
}

func TestFramer_Feed_ChecksumMismatchDiscarded(t *testing.T) {
	var discarded string
	f := NewFramer(LI100, int64(300e6))
	f.SetProtocolErrorHook(func(msg string) { discarded = msg })

	bad := []byte{0x21, 0x81, 0x00} // wrong checksum
	good := encodeFrame(LI100, []byte{0x21, 0x80})

	got := f.Feed(append(bad, good...), 0)
	if discarded == "" {
		t.Error("expected protocol error hook to fire")
	}
	if len(got) != 1 || !bytes.Equal(got[0], []byte{0x21, 0x80}) {
		t.Errorf("expected only the valid trailing frame, got %v", got)
	}
}

func TestFramer_Feed_LIUSBEthEnvelopeSkipsGarbage(t *testing.T) {
	f := NewFramer(LIUSBEth, int64(300e6))
	payload := encodeFrame(LIUSBEth, []byte{0x21, 0x81})
	stream := append([]byte{0xAA, 0xBB}, payload...)

	got := f.Feed(stream, 0)
	if len(got) != 1 || !bytes.Equal(got[0], []byte{0x21, 0x81}) {
		t.Errorf("got %v, want one frame {21 81}", got)
	}
}

func TestFramer_Feed_IdleTimeoutFlushesPartial(t *testing.T) {
	f := NewFramer(LI100, int64(100))
	f.Feed([]byte{0x21}, 0) // partial frame: header says length 1, needs 1 more byte + checksum

	got := f.Feed([]byte{0x80, 0x00}, 1000) // way past idle timeout
	// The stale partial byte should have been dropped, so the new bytes are
	// interpreted fresh rather than completing the old partial frame.
	for _, fr := range got {
		if bytes.Equal(fr, []byte{0x21, 0x80}) {
			t.Error("stale partial frame should not have completed")
		}
	}
}
