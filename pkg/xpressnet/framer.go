// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xpressnet

import "bytes"

// liUsbEthData and liUsbEthError are the two legal envelope markers on an
// Ethernet-tunnelled link. A real LI-USB-Ethernet adapter prefixes every
// frame it relays with one of these.
var (
	liUsbEthData  = []byte{0xFF, 0xFE}
	liUsbEthError = []byte{0xFF, 0xFD}
)

// encodeFrame appends the XOR checksum to payload and, for LIUSBEth links,
// prepends the envelope marker.
func encodeFrame(liType LIType, payload []byte) []byte {
	var x byte
	for _, b := range payload {
		x ^= b
	}
	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, payload...)
	frame = append(frame, x)

	if liType == LIUSBEth {
		out := make([]byte, 0, len(frame)+2)
		out = append(out, liUsbEthData...)
		out = append(out, frame...)
		return out
	}
	return frame
}

// Framer turns a raw inbound byte stream into well-formed, checksum-verified
// frames with any Ethernet-tunnel envelope stripped. It is not safe for
// concurrent use; the engine owns one per link.
type Framer struct {
	liType     LIType
	idleTO     int64 // nanoseconds
	buf        []byte
	lastAppend timeStamp
	hasLast    bool
	onProtoErr func(string)
}

// NewFramer creates a Framer for the given adapter type. idleTimeoutNanos is
// the inactivity window after which a partial frame is discarded as stale.
func NewFramer(liType LIType, idleTimeoutNanos int64) *Framer {
	return &Framer{liType: liType, idleTO: idleTimeoutNanos}
}

// SetProtocolErrorHook installs a callback invoked whenever a frame fails
// its checksum and is discarded; used for ProtocolError logging.
func (f *Framer) SetProtocolErrorHook(hook func(string)) {
	f.onProtoErr = hook
}

// Feed appends newly read bytes and returns every complete, verified frame
// it can extract (with the Ethernet envelope, if any, stripped). now is used
// both to flush a stale partial frame and to stamp the idle-timeout clock.
func (f *Framer) Feed(data []byte, now timeStamp) [][]byte {
	if f.hasLast && now-f.lastAppend > f.idleTO {
		f.buf = f.buf[:0]
	}
	f.lastAppend = now
	f.hasLast = true
	f.buf = append(f.buf, data...)

	var frames [][]byte
	for {
		frame, ok := f.extractOne()
		if !ok {
			break
		}
		if frame != nil {
			frames = append(frames, frame)
		}
	}
	return frames
}

// extractOne tries to pull one frame out of the front of the buffer. It
// returns ok=false when more bytes are needed. A nil frame with ok=true
// means bytes were consumed (envelope skip or a discarded bad frame) but no
// usable frame resulted yet.
func (f *Framer) extractOne() (frame []byte, ok bool) {
	lenPos := 0
	if f.liType == LIUSBEth {
		idxData := bytes.Index(f.buf, liUsbEthData)
		idxErr := bytes.Index(f.buf, liUsbEthError)
		idx := firstNonNegative(idxData, idxErr)
		if idx < 0 {
			// No envelope marker seen yet; wait for more bytes, but don't
			// let garbage accumulate forever.
			if len(f.buf) > 4096 {
				f.buf = f.buf[:0]
			}
			return nil, false
		}
		if idx > 0 {
			f.buf = f.buf[idx:]
		}
		lenPos = 2
	}

	if len(f.buf) < lenPos+1 {
		return nil, false
	}
	length := int(f.buf[lenPos]&0x0F) + 2 // header+payload+checksum
	total := lenPos + length
	if len(f.buf) < total {
		return nil, false
	}

	body := f.buf[lenPos:total]
	var x byte
	for _, b := range body {
		x ^= b
	}
	f.buf = f.buf[total:]

	if x != 0 {
		if f.onProtoErr != nil {
			f.onProtoErr("checksum mismatch, frame discarded")
		}
		return nil, true
	}
	out := make([]byte, length-1)
	copy(out, body[:length-1])
	return out, true
}

func firstNonNegative(a, b int) int {
	if a < 0 {
		return b
	}
	if b < 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}
