// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xpressnet

import "testing"

func TestNewLocoAddr_Boundaries(t *testing.T) {
	if _, err := NewLocoAddr(0); err == nil {
		t.Error("addr 0 should be invalid")
	}
	if _, err := NewLocoAddr(10000); err == nil {
		t.Error("addr 10000 should be invalid")
	}
	if _, err := NewLocoAddr(1); err != nil {
		t.Errorf("addr 1 should be valid: %v", err)
	}
	if _, err := NewLocoAddr(9999); err != nil {
		t.Errorf("addr 9999 should be valid: %v", err)
	}
}

func TestLocoAddr_RoundTrip(t *testing.T) {
	for _, addr := range []int{1, 2, 99, 100, 101, 255, 256, 1000, 3, 9999} {
		a, err := NewLocoAddr(addr)
		if err != nil {
			t.Fatalf("NewLocoAddr(%d): %v", addr, err)
		}
		got := locoAddrFromBytes(a.HiByte(), a.LoByte())
		if got.Int() != addr {
			t.Errorf("round trip %d: hi=0x%02X lo=0x%02X -> %d", addr, a.HiByte(), a.LoByte(), got.Int())
		}
	}
}

func TestLocoAddr_HiByteEncoding(t *testing.T) {
	a, _ := NewLocoAddr(3)
	if a.HiByte() != 0 {
		t.Errorf("addr 3: hi = 0x%02X, want 0x00", a.HiByte())
	}
	b, _ := NewLocoAddr(100)
	if b.HiByte() != 0xC0 {
		t.Errorf("addr 100: hi = 0x%02X, want 0xC0", b.HiByte())
	}
}
