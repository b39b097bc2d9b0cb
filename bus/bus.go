// Package bus provides the cross-window publish/subscribe transport used to
// exchange video sync messages between the presenter and audience windows.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Channel names shared with the front-end. Both windows must agree on them.
const (
	ChannelVideoControl = "video:control"
	ChannelVideoState   = "video:state-update"
	ChannelVideoCleared = "video:state-cleared"
	ChannelVideoReady   = "video:ready"
	ChannelVideoAck     = "video:ack"
	ChannelVideoStatus  = "video:sync-status"
	ChannelActiveSlide  = "active-slide-changed"
)

// ErrClosed is returned when emitting on or subscribing to a closed bus.
var ErrClosed = errors.New("bus closed")

// Event is a single message delivered to a subscriber.
type Event struct {
	Name string
	Data any
}

// Handler receives events for one channel.
type Handler func(Event)

// Unsubscribe releases a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// Bus is a publish/subscribe transport. Delivery order is preserved per
// channel; there is no ordering guarantee across channels.
type Bus interface {
	Emit(ctx context.Context, name string, data any) error
	Subscribe(name string, h Handler) (Unsubscribe, error)
}

// Decode converts an event payload into T. Payloads emitted from Go arrive
// as T directly; payloads emitted from the front-end arrive as decoded JSON
// (maps, slices, raw bytes) and are re-decoded.
func Decode[T any](data any) (T, error) {
	var out T
	switch v := data.(type) {
	case T:
		return v, nil
	case *T:
		if v == nil {
			return out, fmt.Errorf("decode %T: nil payload", out)
		}
		return *v, nil
	case json.RawMessage:
		return out, unmarshal(v, &out)
	case []byte:
		return out, unmarshal(v, &out)
	case string:
		return out, unmarshal([]byte(v), &out)
	case nil:
		return out, fmt.Errorf("decode %T: nil payload", out)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return out, fmt.Errorf("marshal payload: %w", err)
	}
	return out, unmarshal(raw, &out)
}

func unmarshal(raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return nil
}
