// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xpressnet

import "fmt"

// locoInfoWait tracks an in-flight AcquireLoco request between its
// GetLocoInfo and GetLocoFunc1328 legs.
type locoInfoWait struct {
	addr  LocoAddr
	got   func(LocoInfo)
	errCb func(error)
}

type locoFuncWait struct {
	addr LocoAddr
	info LocoInfo
	got  func(LocoInfo)
}

type cvReadWait struct {
	cv    int
	got   func(CvResult)
	errCb func(error)
}

type cvWriteWait struct {
	cv    int
	val   byte
	ok    func()
	errCb func(error)
}

func (d *Driver) failCvRead(cv int, e error) {
	for i, w := range d.pendingCvReads {
		if w.cv == cv {
			d.pendingCvReads = append(d.pendingCvReads[:i], d.pendingCvReads[i+1:]...)
			if w.errCb != nil {
				w.errCb(e)
			}
			return
		}
	}
}

func (d *Driver) failCvWrite(cv int, e error) {
	for i, w := range d.pendingCvWrites {
		if w.cv == cv {
			d.pendingCvWrites = append(d.pendingCvWrites[:i], d.pendingCvWrites[i+1:]...)
			if w.errCb != nil {
				w.errCb(e)
			}
			return
		}
	}
}

// handleFrame dispatches one deframed, checksum-verified inbound packet per
// the per-header-byte table of §4.6. It only ever consults pending[0]; a
// frame that doesn't match the head either updates derived state or is
// logged and dropped.
func (d *Driver) handleFrame(frame []byte) {
	if len(frame) == 0 {
		return
	}
	d.logger.Log(LogRawData, fmt.Sprintf("GET: % X", frame))

	switch {
	case frame[0] == 0x01 && len(frame) >= 2:
		d.handleLiEvent(frame[1])
	case frame[0] == 0x02 && len(frame) >= 3:
		d.handleLiVersion(frame[1], frame[2])
	case frame[0] == 0xF2 && len(frame) >= 3 && frame[1] == 0x01:
		d.handleLiAddress(frame[2])
	case frame[0] == 0x61 && len(frame) >= 2:
		d.handleGeneralEvent(frame[1])
	case frame[0] == 0x62 && len(frame) >= 3 && frame[1] == 0x22:
		d.handleCsStatus(frame[2])
	case frame[0] == 0x63 && len(frame) >= 4 && frame[1] == 0x21:
		d.handleCsVersion(frame[2], frame[3])
	case frame[0] == 0x63 && len(frame) >= 4 && frame[1] == 0x14:
		d.handleCvValue(frame[2], frame[3])
	case frame[0] == 0xE4 && len(frame) >= 5:
		d.handleLocoInfo(frame[1], frame[2], frame[3], frame[4])
	case frame[0] == 0xE3 && len(frame) >= 4 && frame[1] == 0x40:
		d.events.fireLocoStolen(locoAddrFromBytes(frame[2], frame[3]))
	case frame[0] == 0xE3 && len(frame) >= 4 && frame[1] == 0x52:
		d.handleLocoFunc1328(frame[2], frame[3])
	case frame[0]&0xF0 == 0x40 && len(frame) >= 1:
		d.handleFeedback(frame)
	default:
		d.logger.Log(LogDebug, fmt.Sprintf("unhandled frame % X", frame))
	}
}

// handleLiEvent handles 0x01 errcode frames (LI/control events).
func (d *Driver) handleLiEvent(code byte) {
	switch code {
	case 0x01, 0x02, 0x03:
		d.logger.Log(LogWarning, "communications error reported by adapter")
	case 0x04: // generic OK
		h := d.q.head()
		if h != nil {
			switch h.cmd.(type) {
			case CmdReadDirectCv:
				rd := h.cmd.(CmdReadDirectCv)
				d.q.popHeadOk()
				d.q.Enqueue(d.liType, CmdRequestReadResult{}, true, nil, func(e error) { d.failCvRead(rd.Cv, e) }, now())
				return
			case CmdWriteDirectCv:
				wr := h.cmd.(CmdWriteDirectCv)
				d.q.popHeadOk()
				d.q.Enqueue(d.liType, CmdRequestWriteResult{Cv: wr.Cv, Val: wr.Val}, true, nil, func(e error) { d.failCvWrite(wr.Cv, e) }, now())
				return
			}
			if h.cmd.ExpectsOkOnLIAck() {
				d.q.popHeadOk()
			}
		}
	case 0x05:
		d.logger.Log(LogError, "lost timeslot, draining pending commands")
		d.q.drainTimeslotLost()
	case 0x06:
		d.logger.Log(LogWarning, "adapter buffer overflow")
	case 0x07:
		d.logger.Log(LogInfo, "command station re-addressed the adapter")
	case 0x08:
		d.logger.Log(LogError, "command station refusing commands")
		d.q.popHeadErr(newCommandError(KindStationRefusal, fmt.Errorf("command station refusing commands")))
	case 0x09:
		d.logger.Log(LogWarning, "bad command parameters reported by adapter")
	default:
		d.logger.Log(LogWarning, fmt.Sprintf("unknown adapter error 0x%02X", code))
	}
}

func bcd(b byte) int { return int(b>>4)*10 + int(b&0x0F) }

func (d *Driver) handleLiVersion(hw, sw byte) {
	h := d.q.head()
	if h == nil {
		return
	}
	if _, ok := h.cmd.(CmdGetLiVersion); ok {
		d.logger.Log(LogInfo, fmt.Sprintf("LI hardware %d software %d", bcd(hw), bcd(sw)))
		d.q.popHeadOk()
		return
	}
	if _, ok := h.cmd.(CmdGetLiAddress); ok {
		d.q.popHeadErr(newCommandError(KindProtocol, fmt.Errorf("unexpected LI version reply")))
	}
}

func (d *Driver) handleLiAddress(addr byte) {
	h := d.q.head()
	if h == nil {
		return
	}
	switch h.cmd.(type) {
	case CmdGetLiAddress:
		d.q.popHeadOk()
	case CmdSetLiAddress:
		d.q.popHeadOk()
	}
}

func (d *Driver) handleGeneralEvent(ev byte) {
	switch ev {
	case 0x00:
		d.setTrk(TrkOff)
		if h := d.q.head(); h != nil {
			if _, ok := h.cmd.(CmdTrackOff); ok {
				d.q.popHeadOk()
			}
		}
	case 0x01:
		d.setTrk(TrkOn)
		if h := d.q.head(); h != nil {
			if _, ok := h.cmd.(CmdTrackOn); ok {
				d.q.popHeadOk()
			}
		}
	case 0x02:
		d.setTrk(TrkProgramming)
	case 0x11, 0x12, 0x13, 0x1F:
		h := d.q.head()
		if h == nil {
			return
		}
		switch h.cmd.(type) {
		case CmdRequestReadResult, CmdReadDirectCv:
			d.q.popHeadErr(newCommandError(KindStationRefusal, fmt.Errorf("programming status 0x%02X", ev)))
		case CmdRequestWriteResult, CmdWriteDirectCv:
			d.q.popHeadErr(newCommandError(KindStationRefusal, fmt.Errorf("programming status 0x%02X", ev)))
		}
	case 0x80, 0x81, 0x82:
		d.logger.Log(LogWarning, fmt.Sprintf("station event 0x%02X", ev))
	default:
		d.logger.Log(LogDebug, fmt.Sprintf("unknown general event 0x%02X", ev))
	}
}

func (d *Driver) handleCsStatus(st byte) {
	var s TrkStatus
	switch {
	case st&0x03 != 0:
		s = TrkOff
	case st&0x08 != 0:
		s = TrkProgramming
	default:
		s = TrkOn
	}
	d.setTrk(s)
	if h := d.q.head(); h != nil {
		if _, ok := h.cmd.(CmdGetCsStatus); ok {
			d.q.popHeadOk()
		}
	}
}

func (d *Driver) handleCsVersion(ver, id byte) {
	if h := d.q.head(); h != nil {
		if _, ok := h.cmd.(CmdGetCsVersion); ok {
			d.q.popHeadOk()
		}
	}
	_ = ver
	_ = id
}

func (d *Driver) handleCvValue(cv, val byte) {
	h := d.q.head()
	if h == nil {
		return
	}
	switch c := h.cmd.(type) {
	case CmdRequestReadResult:
		d.q.popHeadOk()
		d.deliverCvRead(int(cv), val, nil)
	case CmdReadDirectCv:
		if int(cv) == c.Cv {
			d.q.popHeadOk()
			d.deliverCvRead(int(cv), val, nil)
		}
	case CmdRequestWriteResult:
		d.q.popHeadOk()
		var e error
		if val != c.Val {
			e = ErrWriteValueMismatch
		}
		d.deliverCvWrite(c.Cv, val, e)
	case CmdWriteDirectCv:
		if int(cv) == c.Cv && val == c.Val {
			d.q.popHeadOk()
			d.deliverCvWrite(c.Cv, val, nil)
		}
	}
}

func (d *Driver) deliverCvRead(cv int, val byte, err error) {
	for i, w := range d.pendingCvReads {
		if w.cv == cv {
			d.pendingCvReads = append(d.pendingCvReads[:i], d.pendingCvReads[i+1:]...)
			if err != nil {
				if w.errCb != nil {
					w.errCb(err)
				}
				return
			}
			if w.got != nil {
				w.got(CvResult{Cv: cv, Value: val})
			}
			return
		}
	}
}

func (d *Driver) deliverCvWrite(cv int, val byte, err error) {
	for i, w := range d.pendingCvWrites {
		if w.cv == cv {
			d.pendingCvWrites = append(d.pendingCvWrites[:i], d.pendingCvWrites[i+1:]...)
			if err != nil {
				if w.errCb != nil {
					w.errCb(newCommandError(KindWriteMismatch, err))
				}
				return
			}
			if w.ok != nil {
				w.ok()
			}
			return
		}
	}
}

func (d *Driver) handleLocoInfo(st, dirb, fa, fb byte) {
	h := d.q.head()
	if h == nil {
		return
	}
	gi, ok := h.cmd.(CmdGetLocoInfo)
	if !ok {
		return
	}
	d.q.popHeadOk()

	used := (st>>3)&1 != 0
	mode := SpeedMode(st & 0x07)
	dir := Direction(dirb&0x80 != 0)
	speed := decodeSpeed(mode, dirb)
	mask := unpackFA(fa) | unpackFB(fb, F5toF8) | unpackFB(fb>>4, F9toF12)

	info := LocoInfo{Addr: gi.Addr, Direction: dir, Speed: speed, UsedByAnother: used, Functions: mask}

	for i, w := range d.pendingLocoInfoCallbacks {
		if w.addr == gi.Addr {
			d.pendingLocoInfoCallbacks = append(d.pendingLocoInfoCallbacks[:i], d.pendingLocoInfoCallbacks[i+1:]...)
			d.pendingLocoFuncWaits = append(d.pendingLocoFuncWaits, locoFuncWait{addr: gi.Addr, info: info, got: w.got})
			d.q.Enqueue(d.liType, CmdGetLocoFunc1328{Addr: gi.Addr}, false, nil, func(e error) {
				if w.errCb != nil {
					w.errCb(e)
				}
			}, now())
			return
		}
	}
}

func (d *Driver) handleLocoFunc1328(fc, fd byte) {
	h := d.q.head()
	if h == nil {
		return
	}
	gf, ok := h.cmd.(CmdGetLocoFunc1328)
	if !ok {
		return
	}
	d.q.popHeadOk()

	for i, w := range d.pendingLocoFuncWaits {
		if w.addr == gf.Addr {
			d.pendingLocoFuncWaits = append(d.pendingLocoFuncWaits[:i], d.pendingLocoFuncWaits[i+1:]...)
			info := w.info
			info.Functions |= unpackFC(fc) | unpackFD(fd)
			if w.got != nil {
				w.got(info)
			}
			return
		}
	}
}

// handleFeedback decodes a 0x4X accessory feedback broadcast: the length
// nibble gives the number of bytes that follow, two per (groupAddr, state)
// pair.
func (d *Driver) handleFeedback(frame []byte) {
	n := int(frame[0] & 0x0F)
	if len(frame) < 1+n {
		return
	}
	for i := 0; i < n; i += 2 {
		if i+1 >= n {
			break
		}
		group := frame[1+i]
		b := frame[1+i+1]
		nibble := (b >> 4) & 1
		hasError := b>>7 != 0
		kind := AccInputType((b >> 5) & 3)
		state := b & 0x0F

		d.events.fireAccInputChanged(group, nibble, hasError, kind, state)

		if h := d.q.head(); h != nil {
			switch c := h.cmd.(type) {
			case CmdAccInfoRequest:
				if c.Group == group && c.Nibble == nibble {
					d.q.popHeadOk()
				}
			case CmdAccOpRequest:
				portOn := (state>>uint(c.Port&3))&1 != 0
				if c.Port>>3 == int(group) && int(nibble) == (c.Port>>2)&1 && portOn == c.State {
					d.q.popHeadOk()
				}
			}
		}
	}
}
