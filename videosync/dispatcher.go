package videosync

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"go.ospresenter.app/presenter/bus"
	"go.ospresenter.app/presenter/internal/types"
)

// DefaultSkipSeconds is the skip distance used when none is given.
const DefaultSkipSeconds = 10.0

// snapshotFunc reports the active slide and its last known playback state.
type snapshotFunc func() (string, mo.Option[types.VideoStateUpdate])

// Dispatcher turns playback intents into control commands for the active
// slide. Commands are fire-and-forget: emit failures are logged, and every
// operation is a no-op while no slide is active.
type Dispatcher struct {
	bus      bus.Bus
	snapshot snapshotFunc
}

// Play resumes playback.
func (d *Dispatcher) Play(ctx context.Context) {
	d.send(ctx, types.ActionPlay, nil)
}

// Pause pauses playback.
func (d *Dispatcher) Pause(ctx context.Context) {
	d.send(ctx, types.ActionPause, nil)
}

// TogglePlayPause issues the opposite of the last known paused state. With
// no state yet the video is assumed paused.
func (d *Dispatcher) TogglePlayPause(ctx context.Context) {
	_, state := d.snapshot()
	st, ok := state.Get()
	if !ok || st.Paused {
		d.Play(ctx)
		return
	}
	d.Pause(ctx)
}

// Seek moves playback to t seconds.
func (d *Dispatcher) Seek(ctx context.Context, t float64) {
	d.send(ctx, types.ActionSeek, lo.ToPtr(t))
}

// SkipForward seeks seconds ahead, clamped to the duration.
func (d *Dispatcher) SkipForward(ctx context.Context, seconds float64) {
	d.skip(ctx, skipDistance(seconds))
}

// SkipBackward seeks seconds back, clamped to zero.
func (d *Dispatcher) SkipBackward(ctx context.Context, seconds float64) {
	d.skip(ctx, -skipDistance(seconds))
}

// SetVolume sets the audience volume.
func (d *Dispatcher) SetVolume(ctx context.Context, v float64) {
	d.send(ctx, types.ActionVolume, lo.ToPtr(v))
}

// SetPlaybackRate sets the audience playback rate.
func (d *Dispatcher) SetPlaybackRate(ctx context.Context, r float64) {
	d.send(ctx, types.ActionRate, lo.ToPtr(r))
}

// skip needs a known position and duration; without state it sends nothing.
func (d *Dispatcher) skip(ctx context.Context, delta float64) {
	_, state := d.snapshot()
	st, ok := state.Get()
	if !ok {
		return
	}
	target := lo.Clamp(st.CurrentTime+delta, 0, max(st.Duration, 0))
	d.Seek(ctx, target)
}

func (d *Dispatcher) send(ctx context.Context, action types.VideoAction, value *float64) {
	slide, _ := d.snapshot()
	if slide == "" {
		return
	}

	cmd := types.VideoControlCommand{SlideID: slide, Action: action, Value: value}
	if err := d.bus.Emit(ctx, bus.ChannelVideoControl, cmd); err != nil {
		slog.Error("emit video control", "slide", slide, "action", action, "error", err)
	}
}

func skipDistance(seconds float64) float64 {
	if seconds <= 0 {
		return DefaultSkipSeconds
	}
	return seconds
}
