// Package videosync keeps the presenter in step with a video playing in the
// audience window. A Coordinator owns one session per active slide: the
// readiness handshake, the latest playback snapshot, and the command
// dispatcher bound to that slide.
package videosync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/samber/mo"

	"go.ospresenter.app/presenter/bus"
	"go.ospresenter.app/presenter/internal/types"
)

// Host exposes the host services the Coordinator depends on.
type Host interface {
	// OutputOpen reports whether the audience window is open.
	OutputOpen(ctx context.Context) (bool, error)
	// ClearVideoState drops cached playback state and stops any host-side
	// broadcast for the previous slide.
	ClearVideoState(ctx context.Context) error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces the system clock used for handshake timeouts.
func WithClock(c Clock) Option {
	return func(co *Coordinator) { co.clock = c }
}

// WithHandshakeTimeout overrides DefaultHandshakeTimeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(co *Coordinator) {
		if d > 0 {
			co.timeout = d
		}
	}
}

// WithStatusHook registers f to observe every handshake transition.
// f is called without internal locks held.
func WithStatusHook(f func(types.VideoStatus)) Option {
	return func(co *Coordinator) { co.onStatus = f }
}

// Coordinator is the presenter-side video sync session.
type Coordinator struct {
	bus      bus.Bus
	host     Host
	clock    Clock
	timeout  time.Duration
	onStatus func(types.VideoStatus)
	commands *Dispatcher

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	slideID  string
	session  *session
	receiver Receiver
	subs     []bus.Unsubscribe
	closed   bool
}

// New creates a Coordinator with no active slide.
func New(b bus.Bus, host Host, opts ...Option) *Coordinator {
	c := &Coordinator{
		bus:     b,
		host:    host,
		clock:   systemClock{},
		timeout: DefaultHandshakeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.commands = &Dispatcher{bus: b, snapshot: c.snapshot}
	return c
}

// Commands returns the dispatcher bound to the active slide.
func (c *Coordinator) Commands() *Dispatcher {
	return c.commands
}

// ActiveSlide returns the active slide id, or "" when none is active.
func (c *Coordinator) ActiveSlide() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slideID
}

// HandshakeState returns the handshake state of the active session.
func (c *Coordinator) HandshakeState() types.HandshakeState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phaseLocked()
}

// Status returns the active slide and its handshake state.
func (c *Coordinator) Status() types.VideoStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := types.VideoStatus{SlideID: c.slideID, Handshake: c.phaseLocked()}
	if c.session != nil {
		st.SessionID = c.session.id
	}
	return st
}

// SetHandshakeTimeout changes the timeout used by the next armed handshake.
// Non-positive durations are ignored.
func (c *Coordinator) SetHandshakeTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// VideoState returns the latest playback snapshot for the active slide.
func (c *Coordinator) VideoState() mo.Option[types.VideoStateUpdate] {
	_, st := c.snapshot()
	return st
}

// SetActiveSlide makes slideID the active slide; "" deactivates. Any change
// tears down the previous session (timer, subscriptions, retained state)
// before the host cache is cleared and a new session is started. Setting the
// same slide again is a no-op.
func (c *Coordinator) SetActiveSlide(ctx context.Context, slideID string) {
	c.mu.Lock()
	if c.closed || slideID == c.slideID {
		c.mu.Unlock()
		return
	}
	prev := c.teardownLocked()
	c.slideID = slideID

	var sess *session
	if slideID != "" {
		sess = &session{
			id:    uuid.NewString(),
			slide: slideID,
			phase: types.HandshakeIdle,
		}
		c.session = sess
	}
	c.mu.Unlock()

	release(prev)

	if err := c.host.ClearVideoState(ctx); err != nil {
		slog.Warn("clear host video state", "slide", slideID, "error", err)
	}

	if sess == nil {
		c.notify(types.VideoStatus{Handshake: types.HandshakeIdle})
		return
	}
	c.start(ctx, sess)
}

// RetryHandshake re-arms the handshake for the active slide and proactively
// re-sends the acknowledgment, in case the audience became ready while its
// signal was missed. If that acknowledgment cannot be sent the session fails
// immediately.
func (c *Coordinator) RetryHandshake(ctx context.Context) {
	c.mu.Lock()
	sess := c.session
	if sess == nil || c.closed {
		c.mu.Unlock()
		return
	}
	st := c.applyLocked(sess, evRetry)
	c.mu.Unlock()

	c.run(ctx, sess, st)
}

// Close releases every subscription and cancels every timer. The
// Coordinator cannot be reused.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	prev := c.teardownLocked()
	c.slideID = ""
	c.mu.Unlock()

	release(prev)
	c.cancel()
}

// start subscribes the session's channels, queries the audience window and
// enters pending or skipped.
func (c *Coordinator) start(ctx context.Context, sess *session) {
	subs := c.subscribe(sess)

	open, err := c.host.OutputOpen(ctx)
	if err != nil {
		// Assume the window is there so the user gets a retryable status
		// instead of a silent skip.
		slog.Warn("query audience window", "slide", sess.slide, "error", err)
		open = true
	}

	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		release(subs)
		return
	}
	c.subs = subs
	st := c.applyLocked(sess, lo.Ternary(open, evOutputOpen, evOutputAbsent))
	var early step
	if sess.earlyReady && st.to == types.HandshakePending {
		early = c.applyLocked(sess, evReady)
	}
	c.mu.Unlock()

	c.run(ctx, sess, st)
	if early.changed() {
		c.run(ctx, sess, early)
	}
}

func (c *Coordinator) subscribe(sess *session) []bus.Unsubscribe {
	handlers := map[string]bus.Handler{
		bus.ChannelVideoReady:   func(e bus.Event) { c.handleReady(sess, e) },
		bus.ChannelVideoState:   func(e bus.Event) { c.handleState(sess, e) },
		bus.ChannelVideoCleared: func(e bus.Event) { c.handleCleared(sess, e) },
	}

	subs := make([]bus.Unsubscribe, 0, len(handlers))
	for name, h := range handlers {
		off, err := c.bus.Subscribe(name, h)
		if err != nil {
			slog.Error("subscribe video channel", "channel", name, "slide", sess.slide, "error", err)
			continue
		}
		subs = append(subs, off)
	}
	return subs
}

func (c *Coordinator) handleReady(sess *session, e bus.Event) {
	p, err := bus.Decode[types.VideoReadyPayload](e.Data)
	if err != nil {
		slog.Debug("drop video ready", "error", err)
		return
	}
	if p.SlideID != sess.slide || p.VideoType != types.VideoTypeBackground {
		return
	}

	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		return
	}
	if sess.phase == types.HandshakeIdle {
		// The window query is still in flight; start applies it once pending.
		sess.earlyReady = true
		c.mu.Unlock()
		return
	}
	st := c.applyLocked(sess, evReady)
	c.mu.Unlock()

	c.run(c.ctx, sess, st)
}

func (c *Coordinator) handleState(sess *session, e bus.Event) {
	u, err := bus.Decode[types.VideoStateUpdate](e.Data)
	if err != nil {
		slog.Debug("drop video state", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != sess {
		return
	}
	c.receiver.Accept(c.slideID, u)
}

// handleCleared drops the retained state when the host cleared the active
// slide's state. A clear without a slide id applies to whatever is retained.
func (c *Coordinator) handleCleared(sess *session, e bus.Event) {
	var p types.VideoClearedPayload
	if e.Data != nil {
		var err error
		if p, err = bus.Decode[types.VideoClearedPayload](e.Data); err != nil {
			slog.Debug("drop video cleared", "error", err)
			return
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != sess {
		return
	}
	if p.SlideID != "" && p.SlideID != c.slideID {
		return
	}
	c.receiver.Clear()
}

func (c *Coordinator) handleTimeout(sess *session, armed uint64) {
	c.mu.Lock()
	if c.session != sess || sess.armed != armed {
		c.mu.Unlock()
		return
	}
	st := c.applyLocked(sess, evTimeout)
	timeout := c.timeout
	c.mu.Unlock()

	if st.changed() {
		slog.Warn("video handshake timed out", "slide", sess.slide, "session", sess.id, "timeout", timeout)
	}
	c.run(c.ctx, sess, st)
}

// applyLocked advances sess and performs the timer effects. Emitting and
// notifying are left to run, outside the lock.
func (c *Coordinator) applyLocked(sess *session, ev hsEvent) step {
	from := sess.phase
	to, fx := transition(from, ev)
	sess.phase = to

	if fx.has(effCancelTimer) || to != types.HandshakePending {
		stopTimer(sess)
	}
	if fx.has(effArmTimer) {
		sess.armed++
		armed := sess.armed
		sess.timer = c.clock.AfterFunc(c.timeout, func() { c.handleTimeout(sess, armed) })
	}

	if from != to {
		slog.Debug("video handshake", "slide", sess.slide, "session", sess.id, "event", ev, "from", from, "to", to)
	}
	return step{ev: ev, from: from, to: to, effects: fx}
}

// run performs the bus side of a step.
func (c *Coordinator) run(ctx context.Context, sess *session, st step) {
	if st.effects.has(effEmitAck) && c.current(sess) {
		ack := types.VideoAckPayload{SlideID: sess.slide}
		if err := c.bus.Emit(ctx, bus.ChannelVideoAck, ack); err != nil {
			slog.Error("emit video ack", "slide", sess.slide, "event", st.ev, "error", err)
			if st.ev == evRetry {
				c.failRetry(sess)
				return
			}
		}
	}

	if st.changed() || st.ev == evRetry {
		c.notify(sess.status(st.to))
	}
}

func (c *Coordinator) failRetry(sess *session) {
	c.mu.Lock()
	if c.session != sess {
		c.mu.Unlock()
		return
	}
	st := c.applyLocked(sess, evAckFailed)
	c.mu.Unlock()

	c.notify(sess.status(st.to))
}

// teardownLocked invalidates the current session and returns its
// subscriptions for release outside the lock.
func (c *Coordinator) teardownLocked() []bus.Unsubscribe {
	if c.session != nil {
		stopTimer(c.session)
		c.session = nil
	}
	c.receiver.Clear()
	subs := c.subs
	c.subs = nil
	return subs
}

func (c *Coordinator) current(sess *session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session == sess
}

func (c *Coordinator) phaseLocked() types.HandshakeState {
	if c.session == nil {
		return types.HandshakeIdle
	}
	return c.session.phase
}

func (c *Coordinator) snapshot() (string, mo.Option[types.VideoStateUpdate]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slideID, c.receiver.Latest()
}

func (c *Coordinator) notify(s types.VideoStatus) {
	if c.onStatus != nil {
		c.onStatus(s)
	}
}

func stopTimer(sess *session) {
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
}

func release(subs []bus.Unsubscribe) {
	for _, off := range subs {
		off()
	}
}
