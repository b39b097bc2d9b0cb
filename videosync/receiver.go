package videosync

import (
	"github.com/samber/mo"

	"go.ospresenter.app/presenter/internal/types"
)

// Receiver retains the latest playback snapshot for the active slide.
// It is not safe for concurrent use; the Coordinator serializes access.
type Receiver struct {
	latest mo.Option[types.VideoStateUpdate]
}

// Accept replaces the retained snapshot with u if u belongs to activeSlide.
// Updates for any other slide, or when no slide is active, are dropped.
func (r *Receiver) Accept(activeSlide string, u types.VideoStateUpdate) bool {
	if activeSlide == "" || u.SlideID != activeSlide {
		return false
	}
	r.latest = mo.Some(u)
	return true
}

// Clear drops the retained snapshot.
func (r *Receiver) Clear() {
	r.latest = mo.None[types.VideoStateUpdate]()
}

// Latest returns the retained snapshot, if any.
func (r *Receiver) Latest() mo.Option[types.VideoStateUpdate] {
	return r.latest
}
