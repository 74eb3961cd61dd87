// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package xpressnet

// pendingItem is one in-flight or queued command plus its callbacks. The
// callbacks are cleared the instant one of them fires, so a coding error
// that retains a reference to the item cannot double-invoke a callback.
type pendingItem struct {
	cmd      Command
	ok       func()
	err      func(error)
	deadline timeStamp
	attempts int
	prog     bool // use the longer programming-mode timeout
}

func (p *pendingItem) fireOk() {
	ok := p.ok
	p.ok, p.err = nil, nil
	if ok != nil {
		ok()
	}
}

func (p *pendingItem) fireErr(e error) {
	errCb := p.err
	p.ok, p.err = nil, nil
	if errCb != nil {
		errCb(e)
	}
}

// sendFunc writes a command's framed bytes to the link. It is supplied by
// the owning driver so the queue stays free of transport concerns.
type sendFunc func(Command) error

// queue implements the two-stage outgoing/pending admission algorithm of
// §4.5. It is not safe for concurrent use; the driver's event loop is its
// only caller.
type queue struct {
	cfg Config

	pending  []*pendingItem
	outgoing []*pendingItem

	lastSentAt  timeStamp
	hasLastSent bool

	send   sendFunc
	logger Logger
}

func newQueue(cfg Config, send sendFunc, logger Logger) *queue {
	if logger == nil {
		logger = nopLogger{}
	}
	return &queue{cfg: cfg, send: send, logger: logger}
}

func (q *queue) conflictsWithPending(c Command) bool {
	for _, p := range q.pending {
		if conflict(c, p.cmd) {
			return true
		}
	}
	return false
}

func (q *queue) conflictsWithOutgoing(c Command) bool {
	for _, p := range q.outgoing {
		if conflict(c, p.cmd) {
			return true
		}
	}
	return false
}

// deadlineFor returns the timeout duration for an item, the programming-mode
// one when prog is set.
func (q *queue) deadlineFor(prog bool) int64 {
	if prog {
		return int64(q.cfg.PendingProgTimeout)
	}
	return int64(q.cfg.PendingTimeout)
}

// liSilentAck reports whether cmd counts as done as soon as it is written,
// with no reply awaited. This holds only for AccOpRequest(state=true) on
// LI100/LI101, which do not acknowledge accessory operations (see §9b).
func liSilentAck(liType LIType, cmd Command) bool {
	acc, ok := cmd.(CmdAccOpRequest)
	if !ok || !acc.State {
		return false
	}
	return liType == LI100 || liType == LI101
}

// Enqueue runs the admission algorithm for a freshly-submitted command.
func (q *queue) Enqueue(liType LIType, cmd Command, prog bool, ok func(), errCb func(error), now timeStamp) {
	item := &pendingItem{cmd: cmd, ok: ok, err: errCb, attempts: 1, prog: prog}
	q.admit(liType, item, now)
}

// admit runs the three-step admission algorithm of §4.5 against an item
// that may be brand new or a resend with its callbacks still attached.
func (q *queue) admit(liType LIType, item *pendingItem, now timeStamp) {
	if len(q.pending) >= q.cfg.MaxPending || len(q.outgoing) > 0 || q.conflictsWithPending(item.cmd) {
		q.outgoing = append(q.outgoing, item)
		return
	}
	if q.hasLastSent && now < q.lastSentAt+int64(q.cfg.OutInterval) {
		q.outgoing = append(q.outgoing, item)
		return
	}
	q.dispatch(liType, item, now)
}

// dispatch actually writes item to the link (admission rules already
// cleared) and either fires its ok callback immediately (silent-ack
// accessory ops) or moves it into pending.
func (q *queue) dispatch(liType LIType, item *pendingItem, now timeStamp) {
	if err := q.send(item.cmd); err != nil {
		item.fireErr(newCommandError(KindLink, err))
		return
	}
	q.lastSentAt = now
	q.hasLastSent = true

	if liSilentAck(liType, item.cmd) {
		item.fireOk()
		return
	}

	item.deadline = now + q.deadlineFor(item.prog)
	q.pending = append(q.pending, item)
}

// TickSend is the send-pacer tick: if pending is empty and an item is
// waiting in outgoing, and the pacing interval has elapsed, pop and try it.
func (q *queue) TickSend(liType LIType, now timeStamp) {
	if len(q.outgoing) == 0 {
		return
	}
	if len(q.pending) != 0 {
		return
	}
	if q.hasLastSent && now < q.lastSentAt+int64(q.cfg.OutInterval) {
		return
	}
	item := q.outgoing[0]
	if q.conflictsWithPending(item.cmd) {
		return
	}
	q.outgoing = q.outgoing[1:]
	q.dispatch(liType, item, now)
}

// TickPending is the ~100ms pending scanner: resend or fail the head of
// pending once its deadline has passed.
func (q *queue) TickPending(liType LIType, linkOpen bool, now timeStamp) {
	if !linkOpen {
		q.drainAll(errLinkClosed)
		return
	}
	if len(q.pending) == 0 {
		return
	}
	head := q.pending[0]
	if now < head.deadline {
		return
	}

	if head.attempts >= q.cfg.MaxAttempts {
		q.pending = q.pending[1:]
		q.logger.Log(LogError, "no reply for "+head.cmd.Describe()+", giving up")
		head.fireErr(newCommandError(KindTimeout, errNoReply))
		return
	}

	if q.conflictsWithOutgoing(head.cmd) {
		q.pending = q.pending[1:]
		head.fireErr(newCommandError(KindTimeout, errConflictBlockedResend))
		return
	}

	q.pending = q.pending[1:]
	head.attempts++
	q.logger.Log(LogWarning, "resending "+head.cmd.Describe())
	q.admit(liType, head, now)
}

// drainAll fires err for every queued item (used on link close / loss).
func (q *queue) drainAll(e error) {
	for _, p := range q.pending {
		p.fireErr(newCommandError(KindLink, e))
	}
	for _, p := range q.outgoing {
		p.fireErr(newCommandError(KindLink, e))
	}
	q.pending = nil
	q.outgoing = nil
}

// drainTimeslotLost drains only the pending queue (used when the station
// reports it has lost its timeslot on the bus); outgoing commands are still
// meaningful once a new timeslot is granted.
func (q *queue) drainTimeslotLost() {
	for _, p := range q.pending {
		p.fireErr(newCommandError(KindStationRefusal, errLostTimeslot))
	}
	q.pending = nil
}

// head returns the current head-of-line pending item, or nil.
func (q *queue) head() *pendingItem {
	if len(q.pending) == 0 {
		return nil
	}
	return q.pending[0]
}

// popHeadOk pops the pending head and fires its ok callback. No-op if empty.
func (q *queue) popHeadOk() {
	if len(q.pending) == 0 {
		return
	}
	h := q.pending[0]
	q.pending = q.pending[1:]
	h.fireOk()
}

// popHeadErr pops the pending head and fires its err callback. No-op if
// empty.
func (q *queue) popHeadErr(e error) {
	if len(q.pending) == 0 {
		return
	}
	h := q.pending[0]
	q.pending = q.pending[1:]
	h.fireErr(e)
}
