package app

import (
	"context"
	"log/slog"

	"go.ospresenter.app/presenter/bus"
	"go.ospresenter.app/presenter/internal/types"
)

// emit sends an event to every window. Failures are logged only.
func (s *Service) emit(name string, data any) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Emit(context.Background(), name, data); err != nil {
		slog.Warn("emit event", "event", name, "error", err)
	}
}

func (s *Service) emitStatus(st types.VideoStatus) {
	s.emit(bus.ChannelVideoStatus, st)
}
