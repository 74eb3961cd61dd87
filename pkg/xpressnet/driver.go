// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package xpressnet implements the XpressNET command-station protocol: wire
// framing, a three-stage send/pending/retry pipeline, response matching,
// and the derived track-status state machine, fronted by a single Driver
// facade safe to call from any goroutine.
package xpressnet

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Driver is the public facade. All of its mutable state (the queues, the
// track status, the link) is owned by a single internal goroutine; public
// methods marshal work onto that goroutine over a channel so callers never
// need their own locking.
type Driver struct {
	cfg Config

	events *Events
	logger Logger

	liType LIType
	link   Link
	framer *Framer
	q      *queue

	trk     TrkStatus
	opening bool

	pendingLocoInfoCallbacks []locoInfoWait
	pendingLocoFuncWaits     []locoFuncWait
	pendingCvReads           []cvReadWait
	pendingCvWrites          []cvWriteWait

	jobs   chan func(now timeStamp)
	cancel context.CancelFunc
	done   chan struct{}

	connMu sync.Mutex
	open   bool
}

// NewDriver constructs a Driver. Connect must be called before any command
// is issued.
func NewDriver(cfg Config, events *Events, logger Logger) *Driver {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Driver{
		cfg:    cfg.Normalize(),
		events: events,
		logger: logger,
		trk:    TrkUnknown,
	}
}

func now() timeStamp { return time.Now().UnixNano() }

// Connect opens link, starts the engine's event loop, and runs the opening
// handshake (§4.8). It returns once the link is open; the handshake and the
// AfterOpen event complete asynchronously.
func (d *Driver) Connect(ctx context.Context, link Link, liType LIType) error {
	d.connMu.Lock()
	if d.open {
		d.connMu.Unlock()
		return ErrAlreadyOpen
	}
	d.open = true
	d.connMu.Unlock()

	d.events.fireBeforeOpen()

	d.link = link
	d.liType = liType
	d.framer = NewFramer(liType, int64(d.cfg.InputIdleTimeout))
	d.framer.SetProtocolErrorHook(func(msg string) { d.logger.Log(LogWarning, msg) })
	d.q = newQueue(d.cfg, d.writeRaw, d.logger)
	d.trk = TrkUnknown
	d.opening = true

	loopCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})
	d.jobs = make(chan func(now timeStamp), 64)

	go d.readLoop(loopCtx)
	go d.run(loopCtx)

	d.submit(func(timeStamp) {
		d.enqueueHandshake()
	})
	return nil
}

// Disconnect flushes both queues (firing err for anything still pending),
// closes the link, and fires AfterClose.
func (d *Driver) Disconnect() error {
	d.connMu.Lock()
	if !d.open {
		d.connMu.Unlock()
		return ErrNotOpen
	}
	d.open = false
	d.connMu.Unlock()

	d.events.fireBeforeClose()
	d.cancel()
	<-d.done
	d.link.Close()
	d.trk = TrkUnknown
	d.events.fireAfterClose()
	return nil
}

// writeRaw frames and writes cmd's bytes to the link.
func (d *Driver) writeRaw(cmd Command) error {
	frame := encodeFrame(d.liType, cmd.Bytes())
	d.logger.Log(LogRawData, fmt.Sprintf("PUT: % X", frame))
	d.logger.Log(LogCommands, "-> "+cmd.Describe())
	n, err := d.link.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(frame))
	}
	return nil
}

// submit marshals fn onto the driver's event loop goroutine.
func (d *Driver) submit(fn func(now timeStamp)) {
	select {
	case d.jobs <- fn:
	case <-time.After(5 * time.Second):
		d.logger.Log(LogError, "job queue saturated, dropping request")
	}
}

func (d *Driver) readLoop(ctx context.Context) {
	buf := make([]byte, 256)
	for {
		n, err := d.link.Read(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			d.submit(func(timeStamp) {
				d.events.fireError(fmt.Errorf("link read: %w", err))
			})
			return
		}
		if n == 0 {
			continue
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.submit(func(ts timeStamp) {
			for _, frame := range d.framer.Feed(data, ts) {
				d.handleFrame(frame)
			}
		})
	}
}

func (d *Driver) run(ctx context.Context) {
	defer close(d.done)
	sendTicker := time.NewTicker(d.cfg.OutInterval)
	pendingTicker := time.NewTicker(100 * time.Millisecond)
	defer sendTicker.Stop()
	defer pendingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.q.drainAll(errLinkClosed)
			return
		case fn := <-d.jobs:
			fn(now())
		case <-sendTicker.C:
			d.q.TickSend(d.liType, now())
		case <-pendingTicker.C:
			d.q.TickPending(d.liType, true, now())
		}
	}
}

func (d *Driver) enqueueHandshake() {
	d.q.Enqueue(d.liType, CmdGetLiVersion{}, false, func() {
		ts := now()
		d.q.Enqueue(d.liType, CmdGetLiAddress{}, false, nil, func(error) {}, ts)
		d.q.Enqueue(d.liType, CmdGetCsVersion{}, false, nil, func(error) {}, ts)
		d.q.Enqueue(d.liType, CmdGetCsStatus{}, false, nil, func(error) {}, ts)
	}, func(error) {}, now())
}

func (d *Driver) setTrk(s TrkStatus) {
	if d.trk == s {
		return
	}
	d.trk = s
	d.events.fireTrkStatusChanged(s)
	if d.opening {
		d.opening = false
		d.events.fireAfterOpen()
	}
}

// TrkStatus returns the most recently observed track status.
func (d *Driver) TrkStatus() TrkStatus {
	return d.trk
}

// Stats is a snapshot of engine state for operational dashboards.
type Stats struct {
	Track    TrkStatus
	Pending  int
	Outgoing int
}

// Stats reports the current track status and queue depths. Safe to call
// from any goroutine; it round-trips through the engine's event loop.
func (d *Driver) Stats() Stats {
	result := make(chan Stats, 1)
	d.submit(func(timeStamp) {
		result <- Stats{Track: d.trk, Pending: len(d.q.pending), Outgoing: len(d.q.outgoing)}
	})
	select {
	case s := <-result:
		return s
	case <-time.After(5 * time.Second):
		return Stats{}
	}
}

// --- Public operations (§4.3) ------------------------------------------------

// SetTrackStatus requests the command station switch track power.
// Programming/Unknown are not valid targets.
func (d *Driver) SetTrackStatus(s TrkStatus, ok func(), errCb func(error)) {
	if s != TrkOn && s != TrkOff {
		d.callErr(errCb, newCommandError(KindValidation, ErrInvalidTrkStatus))
		return
	}
	var cmd Command
	if s == TrkOn {
		cmd = CmdTrackOn{}
	} else {
		cmd = CmdTrackOff{}
	}
	d.submit(func(ts timeStamp) { d.q.Enqueue(d.liType, cmd, false, ok, errCb, ts) })
}

// EmergencyStopAll halts every locomotive on the layout.
func (d *Driver) EmergencyStopAll(ok func(), errCb func(error)) {
	d.submit(func(ts timeStamp) { d.q.Enqueue(d.liType, CmdEmergencyStopAll{}, false, ok, errCb, ts) })
}

// EmergencyStopLoco halts a single locomotive.
func (d *Driver) EmergencyStopLoco(addr LocoAddr, ok func(), errCb func(error)) {
	d.submit(func(ts timeStamp) {
		d.q.Enqueue(d.liType, CmdEmergencyStopLoco{Addr: addr}, false, ok, errCb, ts)
	})
}

// SetLocoSpeed commands a locomotive's speed (0..28) and direction.
func (d *Driver) SetLocoSpeed(addr LocoAddr, speed int, dir Direction, ok func(), errCb func(error)) {
	cmd, err := NewCmdSetSpeedDir(addr, speed, dir)
	if err != nil {
		d.callErr(errCb, newCommandError(KindValidation, err))
		return
	}
	d.submit(func(ts timeStamp) { d.q.Enqueue(d.liType, cmd, false, ok, errCb, ts) })
}

// SetLocoFunc applies state to every function bit set in mask, splitting
// the request into the minimal set of bank-write commands (§4.3). ok fires
// only once all bank writes succeed; the first failure fires errCb and
// suppresses later successes for this call.
func (d *Driver) SetLocoFunc(addr LocoAddr, mask FunctionMask, state bool, ok func(), errCb func(error)) {
	d.submit(func(ts timeStamp) {
		bits := FunctionMask(0)
		if state {
			bits = mask
		}
		var cmds []Command
		if mask&0x1F != 0 { // F0..F4
			cmds = append(cmds, CmdSetFuncA{Addr: addr, FA: bankFA(bits)})
		}
		if mask&(0xF<<5) != 0 {
			cmds = append(cmds, CmdSetFuncB{Addr: addr, Range: F5toF8, FB: bankFB(bits, F5toF8)})
		}
		if mask&(0xF<<9) != 0 {
			cmds = append(cmds, CmdSetFuncB{Addr: addr, Range: F9toF12, FB: bankFB(bits, F9toF12)})
		}
		if mask&(0xFF<<13) != 0 {
			cmds = append(cmds, CmdSetFuncC{Addr: addr, FC: bankFC(bits)})
		}
		if mask&(0xFF<<21) != 0 {
			cmds = append(cmds, CmdSetFuncD{Addr: addr, FD: bankFD(bits)})
		}
		if len(cmds) == 0 {
			if ok != nil {
				ok()
			}
			return
		}
		remaining := len(cmds)
		var once sync.Once
		for _, c := range cmds {
			c := c
			d.q.Enqueue(d.liType, c, false, func() {
				remaining--
				if remaining == 0 && ok != nil {
					ok()
				}
			}, func(e error) {
				once.Do(func() {
					if errCb != nil {
						errCb(e)
					}
				})
			}, ts)
		}
	})
}

// LocoInfo is the normalized result of AcquireLoco.
type LocoInfo struct {
	Addr          LocoAddr
	Direction     Direction
	Speed         int
	UsedByAnother bool
	Functions     FunctionMask
}

// AcquireLoco issues GetLocoInfo followed by GetLocoFunc1328 and assembles a
// LocoInfo. If either step fails, got is never called and errCb fires once.
func (d *Driver) AcquireLoco(addr LocoAddr, got func(LocoInfo), errCb func(error)) {
	d.submit(func(ts timeStamp) {
		d.pendingLocoInfoCallbacks = append(d.pendingLocoInfoCallbacks, locoInfoWait{addr: addr, got: got, errCb: errCb})
		d.q.Enqueue(d.liType, CmdGetLocoInfo{Addr: addr}, false, nil, func(e error) {
			for i, w := range d.pendingLocoInfoCallbacks {
				if w.addr == addr {
					d.pendingLocoInfoCallbacks = append(d.pendingLocoInfoCallbacks[:i], d.pendingLocoInfoCallbacks[i+1:]...)
					if w.errCb != nil {
						w.errCb(e)
					}
					return
				}
			}
		}, ts)
	})
}

// ReleaseLoco is a local bookkeeping no-op; the wire protocol has no
// explicit release message, so ok fires immediately.
func (d *Driver) ReleaseLoco(addr LocoAddr, ok func()) {
	d.submit(func(timeStamp) {
		if ok != nil {
			ok()
		}
	})
}

// PomWriteCv writes a full CV value via Programming on Main.
func (d *Driver) PomWriteCv(addr LocoAddr, cv int, val byte, ok func(), errCb func(error)) {
	cmd, err := NewCmdPomWriteCv(addr, cv, val)
	if err != nil {
		d.callErr(errCb, newCommandError(KindValidation, err))
		return
	}
	d.submit(func(ts timeStamp) { d.q.Enqueue(d.liType, cmd, false, ok, errCb, ts) })
}

// PomWriteBit writes a single CV bit via Programming on Main.
func (d *Driver) PomWriteBit(addr LocoAddr, cv, bit int, val bool, ok func(), errCb func(error)) {
	cmd, err := NewCmdPomWriteBit(addr, cv, bit, val)
	if err != nil {
		d.callErr(errCb, newCommandError(KindValidation, err))
		return
	}
	d.submit(func(ts timeStamp) { d.q.Enqueue(d.liType, cmd, false, ok, errCb, ts) })
}

// CvResult is the service-mode read result delivered to ReadDirectCv.
type CvResult struct {
	Cv    int
	Value byte
}

// ReadDirectCv reads a CV in service/programming mode. got is the
// continuation invoked once the two-step LI-OK/result-frame exchange
// (§4.6, scenario S5) completes.
func (d *Driver) ReadDirectCv(cv int, got func(CvResult), errCb func(error)) {
	d.submit(func(ts timeStamp) {
		d.pendingCvReads = append(d.pendingCvReads, cvReadWait{cv: cv, got: got, errCb: errCb})
		d.q.Enqueue(d.liType, CmdReadDirectCv{Cv: cv}, true, nil, func(e error) {
			d.failCvRead(cv, e)
		}, ts)
	})
}

// WriteDirectCv writes a CV in service/programming mode, then reads it back
// and compares; a mismatch fires errCb with ErrWriteValueMismatch (§9c).
func (d *Driver) WriteDirectCv(cv int, val byte, ok func(), errCb func(error)) {
	d.submit(func(ts timeStamp) {
		d.pendingCvWrites = append(d.pendingCvWrites, cvWriteWait{cv: cv, val: val, ok: ok, errCb: errCb})
		d.q.Enqueue(d.liType, CmdWriteDirectCv{Cv: cv, Val: val}, true, nil, func(e error) {
			d.failCvWrite(cv, e)
		}, ts)
	})
}

// AccInfoRequest asks for the feedback state of an accessory group; the
// result arrives via Events.OnAccInputChanged.
func (d *Driver) AccInfoRequest(group, nibble byte, errCb func(error)) {
	d.submit(func(ts timeStamp) {
		d.q.Enqueue(d.liType, CmdAccInfoRequest{Group: group, Nibble: nibble}, false, nil, errCb, ts)
	})
}

// AccOpRequest operates an accessory decoder output.
func (d *Driver) AccOpRequest(port int, state bool, ok func(), errCb func(error)) {
	cmd, err := NewCmdAccOpRequest(port, state)
	if err != nil {
		d.callErr(errCb, newCommandError(KindValidation, err))
		return
	}
	d.submit(func(ts timeStamp) { d.q.Enqueue(d.liType, cmd, false, ok, errCb, ts) })
}

func (d *Driver) callErr(errCb func(error), e error) {
	if errCb != nil {
		errCb(e)
	}
}
