// Package playback caches the audience window's video state on the host and
// rebroadcasts it to the presenter while the video plays.
package playback

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.ospresenter.app/presenter/bus"
	"go.ospresenter.app/presenter/internal/types"
)

// DefaultInterval is the rebroadcast cadence (~30fps).
const DefaultInterval = 33 * time.Millisecond

// PositionSink receives the last position of a slide when its video pauses
// or its state is cleared.
type PositionSink interface {
	SavePosition(pos types.ResumePosition) error
}

// Manager holds the latest audience snapshot and runs the broadcast loop.
// Zero value is not useful; create via NewManager.
type Manager struct {
	bus      bus.Bus
	interval time.Duration
	sink     PositionSink
	now      func() time.Time

	mu       sync.Mutex
	state    *types.VideoStateUpdate
	stopChan chan struct{}
	done     chan struct{}
}

// NewManager creates a Manager emitting on b every interval. A zero interval
// uses DefaultInterval. sink may be nil.
func NewManager(b bus.Bus, interval time.Duration, sink PositionSink) *Manager {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Manager{
		bus:      b,
		interval: interval,
		sink:     sink,
		now:      time.Now,
	}
}

// UpdateVideoState stores state and forwards it to the presenter immediately.
// The broadcast loop starts when the video starts playing and stops when it
// pauses.
func (m *Manager) UpdateVideoState(ctx context.Context, state types.VideoStateUpdate) error {
	if state.UpdatedAt == 0 {
		state.UpdatedAt = unixMilli(m.now())
	}

	// Forward first so pause and seek are reflected without waiting a tick.
	if err := m.bus.Emit(ctx, bus.ChannelVideoState, state); err != nil {
		slog.Warn("emit video state", "slide", state.SlideID, "error", err)
	}

	m.mu.Lock()
	wasPaused := m.state == nil || m.state.Paused
	m.state = &state

	if !state.Paused && m.stopChan == nil {
		m.startLocked()
	}
	var stopped chan struct{}
	if !wasPaused && state.Paused {
		stopped = m.stopLocked()
	}
	m.mu.Unlock()

	if stopped != nil {
		<-stopped
		m.savePosition(state)
	}
	return nil
}

// Clear drops the cached state, stops the broadcast loop and tells the
// presenter to forget its copy of that slide's state. Nothing is emitted
// when no state was cached.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	last := m.state
	m.state = nil
	stopped := m.stopLocked()
	m.mu.Unlock()

	if stopped != nil {
		<-stopped
	}
	if last == nil {
		return nil
	}
	m.savePosition(extrapolate(*last, m.now()))

	cleared := types.VideoClearedPayload{SlideID: last.SlideID}
	if err := m.bus.Emit(ctx, bus.ChannelVideoCleared, cleared); err != nil {
		return fmt.Errorf("emit cleared %s: %w", last.SlideID, err)
	}
	return nil
}

// State returns a copy of the cached state.
func (m *Manager) State() (types.VideoStateUpdate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return types.VideoStateUpdate{}, false
	}
	return *m.state, true
}

// Broadcasting reports whether the broadcast loop is running.
func (m *Manager) Broadcasting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopChan != nil
}

// Close stops the broadcast loop.
func (m *Manager) Close() {
	m.mu.Lock()
	stopped := m.stopLocked()
	m.mu.Unlock()
	if stopped != nil {
		<-stopped
	}
}

func (m *Manager) startLocked() {
	m.stopChan = make(chan struct{})
	m.done = make(chan struct{})
	go m.loop(m.stopChan, m.done)
	slog.Debug("video broadcast started", "interval", m.interval)
}

// stopLocked signals the loop and returns a channel closed once it exits,
// or nil if no loop was running.
func (m *Manager) stopLocked() chan struct{} {
	if m.stopChan == nil {
		return nil
	}
	close(m.stopChan)
	done := m.done
	m.stopChan = nil
	m.done = nil
	return done
}

func (m *Manager) loop(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		if m.stopChan != stop {
			m.mu.Unlock()
			return
		}
		if m.state == nil || m.state.Paused {
			// Nothing to extrapolate; let the next play restart us.
			m.stopChan = nil
			m.done = nil
			m.mu.Unlock()
			slog.Debug("video broadcast ended", "reason", "no playing state")
			return
		}
		state := extrapolate(*m.state, m.now())
		m.mu.Unlock()

		if err := m.bus.Emit(context.Background(), bus.ChannelVideoState, state); err != nil {
			// The presenter window may be gone.
			slog.Debug("emit video state", "slide", state.SlideID, "error", err)
		}
	}
}

func (m *Manager) savePosition(s types.VideoStateUpdate) {
	if m.sink == nil || s.SlideID == "" {
		return
	}
	pos := types.ResumePosition{
		SlideID:     s.SlideID,
		CurrentTime: s.CurrentTime,
		Duration:    s.Duration,
		UpdatedAt:   int64(s.UpdatedAt),
	}
	if err := m.sink.SavePosition(pos); err != nil {
		slog.Warn("save resume position", "slide", s.SlideID, "error", err)
	}
}

// extrapolate advances CurrentTime by the wall time elapsed since the
// snapshot was taken. Looping videos wrap; others clamp to the duration.
func extrapolate(s types.VideoStateUpdate, now time.Time) types.VideoStateUpdate {
	nowMs := unixMilli(now)
	if s.Paused || s.Seeking {
		return s
	}

	elapsed := (nowMs - s.UpdatedAt) / 1000
	t := s.CurrentTime + elapsed*s.PlaybackRate

	switch {
	case s.Loop && s.Duration > 0:
		t = math.Mod(t, s.Duration)
	case s.Duration > 0:
		t = math.Min(t, s.Duration)
	}

	s.CurrentTime = t
	s.UpdatedAt = nowMs
	return s
}

func unixMilli(t time.Time) float64 {
	return float64(t.UnixMilli())
}
