// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xpressnet

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFakeSend = errors.New("fake send failure")

// fakeSender records every command that reaches the wire.
type fakeSender struct {
	sent []Command
	fail bool
}

func (f *fakeSender) send(c Command) error {
	if f.fail {
		return errFakeSend
	}
	f.sent = append(f.sent, c)
	return nil
}

func TestQueue_ImmediateSendWhenIdle(t *testing.T) {
	fs := &fakeSender{}
	cfg := DefaultConfig()
	q := newQueue(cfg, fs.send, nil)

	var okFired bool
	q.Enqueue(LI100, CmdGetCsStatus{}, false, func() { okFired = true }, nil, 0)

	require.Len(t, fs.sent, 1)
	assert.Len(t, q.pending, 1)
	assert.False(t, okFired)

	q.popHeadOk()
	assert.True(t, okFired)
	assert.Empty(t, q.pending)
}

func TestQueue_MaxPendingDefersToOutgoing(t *testing.T) {
	fs := &fakeSender{}
	cfg := DefaultConfig()
	cfg.MaxPending = 1
	cfg.OutInterval = 0
	q := newQueue(cfg, fs.send, nil)

	q.Enqueue(LI100, CmdGetCsStatus{}, false, nil, nil, 0)
	q.Enqueue(LI100, CmdGetCsVersion{}, false, nil, nil, 0)

	assert.Len(t, q.pending, 1)
	assert.Len(t, q.outgoing, 1)
	assert.Len(t, fs.sent, 1)
}

func TestQueue_ConflictCoalescing_S3(t *testing.T) {
	fs := &fakeSender{}
	cfg := DefaultConfig()
	cfg.OutInterval = 0
	q := newQueue(cfg, fs.send, nil)

	addr, _ := NewLocoAddr(10)
	s1, _ := NewCmdSetSpeedDir(addr, 5, Forward)
	s2, _ := NewCmdSetSpeedDir(addr, 7, Forward)

	var firstOk, secondOk bool
	q.Enqueue(LI100, s1, false, func() { firstOk = true }, nil, 0)
	q.Enqueue(LI100, s2, false, func() { secondOk = true }, nil, 0)

	require.Len(t, fs.sent, 1, "second command should be withheld as conflicting")
	require.Len(t, q.outgoing, 1)

	q.popHeadOk()
	assert.True(t, firstOk)
	assert.False(t, secondOk)

	q.TickSend(LI100, 0)
	require.Len(t, fs.sent, 2)
	q.popHeadOk()
	assert.True(t, secondOk)
}

func TestQueue_PacingInterval(t *testing.T) {
	fs := &fakeSender{}
	cfg := DefaultConfig()
	cfg.OutInterval = 50 * time.Millisecond
	cfg.MaxPending = 1
	q := newQueue(cfg, fs.send, nil)

	q.Enqueue(LI100, CmdGetCsStatus{}, false, nil, nil, 0)
	q.popHeadOk()

	q.Enqueue(LI100, CmdGetCsVersion{}, false, nil, nil, int64(10*time.Millisecond))
	assert.Len(t, fs.sent, 1, "second send should be deferred: pacing interval not yet elapsed")
	assert.Len(t, q.outgoing, 1)

	q.TickSend(LI100, int64(60*time.Millisecond))
	assert.Len(t, fs.sent, 2)
}

func TestQueue_TimeoutRetryThenFailure_S2(t *testing.T) {
	fs := &fakeSender{}
	cfg := DefaultConfig()
	cfg.OutInterval = 50 * time.Millisecond
	cfg.PendingTimeout = 1000 * time.Millisecond
	cfg.MaxAttempts = 3
	q := newQueue(cfg, fs.send, nil)

	var gotErr error
	q.Enqueue(LI100, CmdGetCsStatus{}, false, nil, func(e error) { gotErr = e }, 0)
	require.Len(t, fs.sent, 1)

	q.TickPending(LI100, true, int64(1000*time.Millisecond))
	require.Len(t, fs.sent, 2, "first retry")

	q.TickPending(LI100, true, int64(2000*time.Millisecond))
	require.Len(t, fs.sent, 3, "second retry")

	q.TickPending(LI100, true, int64(3000*time.Millisecond))
	require.Len(t, fs.sent, 3, "no further sends after exhausting attempts")
	assert.Error(t, gotErr)
	assert.Empty(t, q.pending)
}

func TestQueue_DrainAllFiresErrOnClose(t *testing.T) {
	fs := &fakeSender{}
	cfg := DefaultConfig()
	cfg.OutInterval = 0
	q := newQueue(cfg, fs.send, nil)

	var e1, e2 error
	q.Enqueue(LI100, CmdGetCsStatus{}, false, nil, func(e error) { e1 = e }, 0)
	q.Enqueue(LI100, CmdGetCsVersion{}, false, nil, func(e error) { e2 = e }, 0)

	q.TickPending(LI100, false, 0)
	assert.Error(t, e1)
	assert.Error(t, e2)
	assert.Empty(t, q.pending)
	assert.Empty(t, q.outgoing)
}
