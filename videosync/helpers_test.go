package videosync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.ospresenter.app/presenter/bus"
	"go.ospresenter.app/presenter/internal/types"
)

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// Armed returns the number of timers that can still fire.
func (c *fakeClock) Armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type fakeHost struct {
	mu      sync.Mutex
	open    bool
	openErr error
	clears  int

	// onOpen runs inside OutputOpen, before it answers.
	onOpen func()
}

func (h *fakeHost) OutputOpen(context.Context) (bool, error) {
	h.mu.Lock()
	onOpen := h.onOpen
	h.mu.Unlock()
	if onOpen != nil {
		onOpen()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open, h.openErr
}

func (h *fakeHost) ClearVideoState(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clears++
	return nil
}

func (h *fakeHost) Clears() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clears
}

// failingBus rejects emits on selected channels.
type failingBus struct {
	*bus.Memory
	mu   sync.Mutex
	fail map[string]bool
}

func (f *failingBus) Emit(ctx context.Context, name string, data any) error {
	f.mu.Lock()
	fail := f.fail[name]
	f.mu.Unlock()
	if fail {
		return errors.New("emit rejected")
	}
	return f.Memory.Emit(ctx, name, data)
}

func (f *failingBus) FailOn(name string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail == nil {
		f.fail = make(map[string]bool)
	}
	f.fail[name] = fail
}

// recorder captures payloads emitted on a channel.
type recorder[T any] struct {
	mu  sync.Mutex
	got []T
}

func record[T any](t *testing.T, b bus.Bus, channel string) *recorder[T] {
	t.Helper()
	r := &recorder[T]{}
	if _, err := b.Subscribe(channel, func(e bus.Event) {
		v, err := bus.Decode[T](e.Data)
		if err != nil {
			t.Errorf("decode %s: %v", channel, err)
			return
		}
		r.mu.Lock()
		r.got = append(r.got, v)
		r.mu.Unlock()
	}); err != nil {
		t.Fatalf("subscribe %s: %v", channel, err)
	}
	return r
}

func (r *recorder[T]) All() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.got...)
}

func (r *recorder[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

type harness struct {
	bus      *bus.Memory
	host     *fakeHost
	clock    *fakeClock
	c        *Coordinator
	acks     *recorder[types.VideoAckPayload]
	commands *recorder[types.VideoControlCommand]
	statuses *recorder[types.VideoStatus]
}

func newHarness(t *testing.T, open bool) *harness {
	t.Helper()
	return newHarnessOn(t, bus.NewMemory(), open)
}

func newHarnessOn(t *testing.T, b bus.Bus, open bool) *harness {
	t.Helper()

	mem, ok := b.(*bus.Memory)
	if !ok {
		mem = b.(*failingBus).Memory
	}

	h := &harness{
		bus:   mem,
		host:  &fakeHost{open: open},
		clock: &fakeClock{},
	}
	h.acks = record[types.VideoAckPayload](t, mem, bus.ChannelVideoAck)
	h.commands = record[types.VideoControlCommand](t, mem, bus.ChannelVideoControl)
	h.statuses = record[types.VideoStatus](t, mem, bus.ChannelVideoStatus)

	h.c = New(b, h.host,
		WithClock(h.clock),
		WithStatusHook(func(s types.VideoStatus) {
			_ = mem.Emit(context.Background(), bus.ChannelVideoStatus, s)
		}),
	)
	t.Cleanup(h.c.Close)
	return h
}

func (h *harness) ready(t *testing.T, slideID, videoType string) {
	t.Helper()
	payload := map[string]any{"slideId": slideID, "videoType": videoType}
	if err := h.bus.Emit(context.Background(), bus.ChannelVideoReady, payload); err != nil {
		t.Fatalf("emit ready: %v", err)
	}
}

func (h *harness) state(t *testing.T, u types.VideoStateUpdate) {
	t.Helper()
	if err := h.bus.Emit(context.Background(), bus.ChannelVideoState, u); err != nil {
		t.Fatalf("emit state: %v", err)
	}
}

func (h *harness) wantPhase(t *testing.T, want types.HandshakeState) {
	t.Helper()
	if got := h.c.HandshakeState(); got != want {
		t.Fatalf("HandshakeState() = %q, want %q", got, want)
	}
}
