// Package app provides the core application service for Wails bindings.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/wailsapp/wails/v3/pkg/application"

	"go.ospresenter.app/presenter/bus"
	"go.ospresenter.app/presenter/config"
	"go.ospresenter.app/presenter/internal/types"
	"go.ospresenter.app/presenter/playback"
	"go.ospresenter.app/presenter/store"
	"go.ospresenter.app/presenter/videosync"
)

// ErrNoPositionStore is returned when the resume-position store failed to open.
var ErrNoPositionStore = errors.New("position store not available")

// Service provides application functionality bound to Wails.
// This struct focuses on orchestration; sync logic lives in sub-components.
type Service struct {
	cfg       *config.Config
	positions *store.Positions

	// UI references - set via Init
	app      *application.App
	audience window

	// Video sync
	bus      bus.Bus
	playback *playback.Manager
	video    *videosync.Coordinator

	// Version info (set by caller)
	version string
}

// New creates a new Service. Call Init() after Wails app is created.
func New(version string) *Service {
	return &Service{version: version}
}

// GetVersion returns the application version.
func (s *Service) GetVersion() string {
	return s.version
}

// Init initializes the service with app and audience window references.
// Must be called after Wails application is created.
func (s *Service) Init(app *application.App, audience application.Window) {
	s.app = app
	if audience != nil {
		s.audience = audience
	}

	cfg, err := config.Load()
	if err != nil {
		// Run on defaults; settings changes stay in memory so the file is
		// left for the user to repair.
		slog.Error("load config", "error", err)
		cfg = config.Default()
	}
	s.cfg = cfg

	s.setupStore()
	s.setupSync(bus.NewWails(app))
}

// Shutdown cleans up resources.
func (s *Service) Shutdown() {
	if s.video != nil {
		s.video.Close()
	}
	if s.playback != nil {
		s.playback.Close()
	}
	if s.positions != nil {
		if err := s.positions.Close(); err != nil {
			slog.Error("close position store", "error", err)
		}
	}
}

func (s *Service) setupStore() {
	dir, err := config.Dir()
	if err != nil {
		slog.Error("get data dir for positions", "error", err)
		return
	}

	path := filepath.Join(dir, "positions")
	p, err := store.Open(path, s.cfg.ResumeTTL())
	if err != nil {
		slog.Error("open position store", "error", err)
		return
	}
	s.positions = p
	slog.Info("position store initialized", "path", path)
}

// setupSync wires the playback broadcaster and the presenter session onto b.
func (s *Service) setupSync(b bus.Bus) {
	s.bus = b

	var sink playback.PositionSink
	if s.positions != nil {
		sink = s.positions
	}
	s.playback = playback.NewManager(b, s.cfg.BroadcastInterval(), sink)

	s.video = videosync.New(b, hostServices{s: s},
		videosync.WithHandshakeTimeout(s.cfg.HandshakeTimeout()),
		videosync.WithStatusHook(s.emitStatus),
	)
}

// ─────────────────────────────────────────────────────────────────────────────
// Presenter: active slide and playback control
// ─────────────────────────────────────────────────────────────────────────────

// SetActiveSlide shows slide on the audience window and starts a video sync
// session for it. A nil slide clears the output.
func (s *Service) SetActiveSlide(slide *types.ActiveSlide) error {
	ctx := context.Background()

	var id string
	var err error
	if slide != nil {
		id = slide.ID
		err = s.bus.Emit(ctx, bus.ChannelActiveSlide, slide)
	} else {
		err = s.bus.Emit(ctx, bus.ChannelActiveSlide, nil)
	}
	if err != nil {
		err = fmt.Errorf("emit active slide: %w", err)
		slog.Error("set active slide", "slide", id, "error", err)
	}

	s.video.SetActiveSlide(ctx, id)
	return err
}

// Play resumes the active slide's video.
func (s *Service) Play() {
	s.video.Commands().Play(context.Background())
}

// Pause pauses the active slide's video.
func (s *Service) Pause() {
	s.video.Commands().Pause(context.Background())
}

// TogglePlayPause flips between play and pause.
func (s *Service) TogglePlayPause() {
	s.video.Commands().TogglePlayPause(context.Background())
}

// Seek moves playback to t seconds.
func (s *Service) Seek(t float64) {
	s.video.Commands().Seek(context.Background(), t)
}

// SkipForward skips ahead. Zero uses the configured distance.
func (s *Service) SkipForward(seconds float64) {
	s.video.Commands().SkipForward(context.Background(), s.skipSeconds(seconds))
}

// SkipBackward skips back. Zero uses the configured distance.
func (s *Service) SkipBackward(seconds float64) {
	s.video.Commands().SkipBackward(context.Background(), s.skipSeconds(seconds))
}

// SetVolume sets the audience volume (0-1).
func (s *Service) SetVolume(v float64) {
	s.video.Commands().SetVolume(context.Background(), v)
}

// SetPlaybackRate sets the audience playback rate.
func (s *Service) SetPlaybackRate(r float64) {
	s.video.Commands().SetPlaybackRate(context.Background(), r)
}

// RetryVideoHandshake re-runs the readiness handshake for the active slide.
func (s *Service) RetryVideoHandshake() {
	s.video.RetryHandshake(context.Background())
}

// GetVideoStatus returns the active slide and its handshake state.
func (s *Service) GetVideoStatus() types.VideoStatus {
	return s.video.Status()
}

// GetVideoState returns the latest playback snapshot, or nil if none.
func (s *Service) GetVideoState() *types.VideoStateUpdate {
	return s.video.VideoState().ToPointer()
}

// GetResumePosition returns the last saved position of a slide's video.
func (s *Service) GetResumePosition(slideID string) *types.ResumePosition {
	if s.positions == nil {
		return nil
	}
	pos, ok, err := s.positions.Get(slideID)
	if err != nil {
		slog.Warn("get resume position", "slide", slideID, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return &pos
}

// ForgetResumePosition deletes the saved position of a slide's video.
func (s *Service) ForgetResumePosition(slideID string) error {
	if s.positions == nil {
		return ErrNoPositionStore
	}
	return s.positions.Delete(slideID)
}

func (s *Service) skipSeconds(seconds float64) float64 {
	if seconds > 0 {
		return seconds
	}
	return s.cfg.SkipSeconds
}

// ─────────────────────────────────────────────────────────────────────────────
// Audience: video state reporting
// ─────────────────────────────────────────────────────────────────────────────

// UpdateVideoState records the audience video's state and relays it to the
// presenter.
func (s *Service) UpdateVideoState(state types.VideoStateUpdate) error {
	return s.playback.UpdateVideoState(context.Background(), state)
}

// ClearVideoState drops the cached video state and stops rebroadcasting.
func (s *Service) ClearVideoState() error {
	return s.playback.Clear(context.Background())
}

// ─────────────────────────────────────────────────────────────────────────────
// Settings
// ─────────────────────────────────────────────────────────────────────────────

// GetHandshakeTimeoutMs returns the video handshake timeout in milliseconds.
func (s *Service) GetHandshakeTimeoutMs() int {
	return s.cfg.HandshakeTimeoutMs
}

// SetHandshakeTimeoutMs changes the video handshake timeout. It applies from
// the next handshake and is persisted.
func (s *Service) SetHandshakeTimeoutMs(ms int) error {
	d := time.Duration(ms) * time.Millisecond
	if err := s.cfg.SetHandshakeTimeout(d); err != nil {
		if !errors.Is(err, config.ErrNotPersisted) {
			return err
		}
		slog.Warn("handshake timeout not saved", "error", err)
	}
	s.video.SetHandshakeTimeout(d)
	return nil
}

// GetSkipSeconds returns the configured skip distance.
func (s *Service) GetSkipSeconds() float64 {
	return s.cfg.SkipSeconds
}

// SetSkipSeconds sets the default skip distance.
func (s *Service) SetSkipSeconds(seconds float64) error {
	return s.cfg.SetSkipSeconds(seconds)
}

// SetAudienceAlwaysOnTop controls whether the audience window floats above
// other windows when shown.
func (s *Service) SetAudienceAlwaysOnTop(on bool) error {
	return s.cfg.SetAudienceAlwaysOnTop(on)
}
