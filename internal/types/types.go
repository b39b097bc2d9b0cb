// Package types provides shared type definitions for the application.
package types

// VideoAction is the kind of playback control sent to the audience window.
type VideoAction string

const (
	ActionPlay   VideoAction = "play"
	ActionPause  VideoAction = "pause"
	ActionSeek   VideoAction = "seek"
	ActionVolume VideoAction = "volume"
	ActionRate   VideoAction = "rate"
)

// VideoTypeBackground marks a video that fills the slide and is controllable
// from the presenter.
const VideoTypeBackground = "background"

// VideoControlCommand is sent presenter → audience. It is transient and
// never acknowledged.
type VideoControlCommand struct {
	SlideID string      `json:"slideId"`
	Action  VideoAction `json:"action"`
	Value   *float64    `json:"value,omitempty"`
}

// VideoStateUpdate is a complete playback snapshot sent audience → presenter.
// Each update replaces the previous one; there is no partial merge.
type VideoStateUpdate struct {
	SlideID      string  `json:"slideId"`
	CurrentTime  float64 `json:"currentTime"` // seconds
	Duration     float64 `json:"duration"`    // seconds
	Paused       bool    `json:"paused"`
	Volume       float64 `json:"volume"`
	Loop         bool    `json:"loop"`
	PlaybackRate float64 `json:"playbackRate"`
	Buffered     float64 `json:"buffered"` // percent 0-100
	ReadyState   int     `json:"readyState"`
	Error        *string `json:"error"`
	Seeking      bool    `json:"seeking"`
	UpdatedAt    float64 `json:"updatedAt"` // Unix timestamp in milliseconds
}

// VideoReadyPayload is emitted by the audience once its video is mounted.
type VideoReadyPayload struct {
	SlideID   string `json:"slideId"`
	VideoType string `json:"videoType,omitempty"`
}

// VideoAckPayload confirms a ready signal back to the audience.
type VideoAckPayload struct {
	SlideID string `json:"slideId"`
}

// VideoClearedPayload names the slide whose host-side state was dropped.
// An empty SlideID means the owner is unknown.
type VideoClearedPayload struct {
	SlideID string `json:"slideId"`
}

// CanvasSize is the logical size of the slide canvas.
type CanvasSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ActiveSlide is broadcast to the audience when the presenter activates a
// slide. Data is opaque to the host and passed through untouched.
type ActiveSlide struct {
	ID         string         `json:"id"`
	Data       map[string]any `json:"data"`
	CanvasSize CanvasSize     `json:"canvasSize"`
}

// HandshakeState is the readiness state of the audience for the active slide.
type HandshakeState string

const (
	HandshakeIdle         HandshakeState = "idle"
	HandshakePending      HandshakeState = "pending"
	HandshakeAcknowledged HandshakeState = "acknowledged"
	HandshakeFailed       HandshakeState = "failed"
	HandshakeSkipped      HandshakeState = "skipped"
)

// VideoStatus is reported to the presenter front-end on every handshake
// transition. SessionID changes on every activation of a slide, so a
// reactivation can be told apart from a retry.
type VideoStatus struct {
	SlideID   string         `json:"slideId"`
	SessionID string         `json:"sessionId,omitempty"`
	Handshake HandshakeState `json:"handshake"`
}

// ResumePosition is the last known playback position of a slide's video.
type ResumePosition struct {
	SlideID     string  `json:"slideId"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
	UpdatedAt   int64   `json:"updatedAt"` // Unix timestamp in milliseconds
}
