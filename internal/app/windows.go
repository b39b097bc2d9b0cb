package app

import (
	"context"
	"errors"

	"github.com/wailsapp/wails/v3/pkg/application"
)

// ErrNoAudienceWindow is returned when the audience window was never created.
var ErrNoAudienceWindow = errors.New("audience window not available")

// window is the part of application.Window the service drives.
type window interface {
	Show() application.Window
	Hide() application.Window
	Focus()
	IsVisible() bool
	SetAlwaysOnTop(b bool) application.Window
}

// ShowAudienceWindow brings the audience window to the front.
func (s *Service) ShowAudienceWindow() error {
	if s.audience == nil {
		return ErrNoAudienceWindow
	}
	s.audience.Show()
	s.audience.SetAlwaysOnTop(s.cfg.AlwaysOnTop())
	s.audience.Focus()
	return nil
}

// HideAudienceWindow hides the audience window without destroying it.
func (s *Service) HideAudienceWindow() error {
	if s.audience == nil {
		return ErrNoAudienceWindow
	}
	s.audience.Hide()
	return nil
}

// IsAudienceWindowVisible reports whether the audience window is on screen.
func (s *Service) IsAudienceWindowVisible() (bool, error) {
	if s.audience == nil {
		return false, ErrNoAudienceWindow
	}
	return s.audience.IsVisible(), nil
}

// hostServices exposes the window and playback state to the sync coordinator.
type hostServices struct {
	s *Service
}

func (h hostServices) OutputOpen(context.Context) (bool, error) {
	visible, err := h.s.IsAudienceWindowVisible()
	if errors.Is(err, ErrNoAudienceWindow) {
		return false, nil
	}
	return visible, err
}

func (h hostServices) ClearVideoState(ctx context.Context) error {
	return h.s.playback.Clear(ctx)
}
