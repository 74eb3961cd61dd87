// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xpressnet

import (
	"bytes"
	"testing"
)

func TestCommandBytes(t *testing.T) {
	addr, _ := NewLocoAddr(3)

	tests := []struct {
		name string
		cmd  Command
		want []byte
	}{
		{"TrackOff", CmdTrackOff{}, []byte{0x21, 0x80}},
		{"TrackOn", CmdTrackOn{}, []byte{0x21, 0x81}},
		{"EmergencyStopAll", CmdEmergencyStopAll{}, []byte{0x80}},
		{"GetLiVersion", CmdGetLiVersion{}, []byte{0xF0}},
		{"GetLiAddress", CmdGetLiAddress{}, []byte{0xF2, 0x01, 0x00}},
		{"GetCsVersion", CmdGetCsVersion{}, []byte{0x21, 0x21}},
		{"GetCsStatus", CmdGetCsStatus{}, []byte{0x21, 0x24}},
		{"GetLocoInfo", CmdGetLocoInfo{Addr: addr}, []byte{0xE3, 0x00, 0x00, 0x03}},
		{"GetLocoFunc1328", CmdGetLocoFunc1328{Addr: addr}, []byte{0xE3, 0x09, 0x00, 0x03}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.Bytes(); !bytes.Equal(got, tt.want) {
				t.Errorf("Bytes() = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestCmdPomWriteCv_Boundaries(t *testing.T) {
	addr, _ := NewLocoAddr(3)
	if _, err := NewCmdPomWriteCv(addr, 1024, 1); err != nil {
		t.Errorf("cv=1024 should be valid: %v", err)
	}
	if _, err := NewCmdPomWriteCv(addr, 1025, 1); err == nil {
		t.Error("cv=1025 should be invalid")
	}
	if _, err := NewCmdPomWriteCv(addr, 0, 1); err == nil {
		t.Error("cv=0 should be invalid")
	}
}

func TestCmdSetSpeedDir_Boundaries(t *testing.T) {
	addr, _ := NewLocoAddr(3)
	if _, err := NewCmdSetSpeedDir(addr, 28, Forward); err != nil {
		t.Errorf("speed=28 should be valid: %v", err)
	}
	if _, err := NewCmdSetSpeedDir(addr, 29, Forward); err == nil {
		t.Error("speed=29 should be invalid")
	}
}

func TestCmdAccOpRequest_Boundaries(t *testing.T) {
	if _, err := NewCmdAccOpRequest(2047, true); err != nil {
		t.Errorf("port=2047 should be valid: %v", err)
	}
	if _, err := NewCmdAccOpRequest(2048, true); err == nil {
		t.Error("port=2048 should be invalid")
	}
}

func TestConflict_TrackOnOff(t *testing.T) {
	if !conflict(CmdTrackOn{}, CmdTrackOff{}) {
		t.Error("TrackOn/TrackOff should conflict")
	}
}

func TestConflict_SetSpeedDir_SameAddr(t *testing.T) {
	a1, _ := NewLocoAddr(3)
	a2, _ := NewLocoAddr(4)
	s1, _ := NewCmdSetSpeedDir(a1, 5, Forward)
	s2, _ := NewCmdSetSpeedDir(a1, 10, Forward)
	s3, _ := NewCmdSetSpeedDir(a2, 10, Forward)

	if !conflict(s1, s2) {
		t.Error("same-address SetSpeedDir should conflict")
	}
	if conflict(s1, s3) {
		t.Error("different-address SetSpeedDir should not conflict")
	}
}

func TestConflict_EmergencyStopLoco_SameAddrOnly(t *testing.T) {
	a1, _ := NewLocoAddr(3)
	a2, _ := NewLocoAddr(4)
	s1, _ := NewCmdSetSpeedDir(a1, 5, Forward)
	s2, _ := NewCmdSetSpeedDir(a2, 5, Forward)
	e := CmdEmergencyStopLoco{Addr: a1}

	if !conflict(e, s1) {
		t.Error("EmergencyStopLoco should conflict with SetSpeedDir for same address")
	}
	if conflict(e, s2) {
		t.Error("EmergencyStopLoco should not conflict with SetSpeedDir for a different address")
	}
}

func TestConflict_PomWrite(t *testing.T) {
	addr, _ := NewLocoAddr(3)
	c1, _ := NewCmdPomWriteCv(addr, 29, 1)
	c2, _ := NewCmdPomWriteCv(addr, 29, 2)
	c3, _ := NewCmdPomWriteCv(addr, 30, 1)
	b1, _ := NewCmdPomWriteBit(addr, 29, 0, true)
	b2, _ := NewCmdPomWriteBit(addr, 29, 1, true)

	if !conflict(c1, c2) {
		t.Error("same addr+cv PomWriteCv should conflict")
	}
	if conflict(c1, c3) {
		t.Error("different cv PomWriteCv should not conflict")
	}
	if !conflict(c1, b1) {
		t.Error("PomWriteCv should conflict with PomWriteBit at same cv")
	}
	if conflict(b1, b2) {
		t.Error("different-bit PomWriteBit should not conflict")
	}
}

func TestConflict_AccOpRequest_SamePair(t *testing.T) {
	c1, _ := NewCmdAccOpRequest(10, true)
	c2, _ := NewCmdAccOpRequest(11, false)
	c3, _ := NewCmdAccOpRequest(12, true)

	if !conflict(c1, c2) {
		t.Error("ports sharing the same pair (port/2) should conflict")
	}
	if conflict(c1, c3) {
		t.Error("ports in different pairs should not conflict")
	}
}
