package videosync

import (
	"time"

	"go.ospresenter.app/presenter/internal/types"
)

// DefaultHandshakeTimeout bounds how long a session stays pending before it
// is marked failed.
const DefaultHandshakeTimeout = 5 * time.Second

// hsEvent is an input to the handshake state machine.
type hsEvent int

const (
	evOutputOpen   hsEvent = iota // session started, audience window present
	evOutputAbsent                // session started, no audience window
	evReady                       // matching background ready signal
	evTimeout                     // armed timer elapsed
	evRetry                       // user or system retry
	evAckFailed                   // retry could not emit its ack
)

func (e hsEvent) String() string {
	switch e {
	case evOutputOpen:
		return "output-open"
	case evOutputAbsent:
		return "output-absent"
	case evReady:
		return "ready"
	case evTimeout:
		return "timeout"
	case evRetry:
		return "retry"
	case evAckFailed:
		return "ack-failed"
	}
	return "unknown"
}

// effect is a side effect requested by a transition.
type effect uint8

const (
	effArmTimer effect = 1 << iota
	effCancelTimer
	effEmitAck
)

func (f effect) has(e effect) bool { return f&e != 0 }

// transition is the handshake transition table. Inputs that a state does not
// react to leave it unchanged with no effects.
func transition(from types.HandshakeState, ev hsEvent) (types.HandshakeState, effect) {
	switch ev {
	case evOutputOpen:
		if from == types.HandshakeIdle {
			return types.HandshakePending, effArmTimer
		}
	case evOutputAbsent:
		if from == types.HandshakeIdle || from == types.HandshakePending {
			return types.HandshakeSkipped, effCancelTimer
		}
	case evReady:
		if from == types.HandshakePending {
			return types.HandshakeAcknowledged, effCancelTimer | effEmitAck
		}
	case evTimeout:
		if from == types.HandshakePending {
			return types.HandshakeFailed, 0
		}
	case evRetry:
		switch from {
		case types.HandshakeIdle, types.HandshakePending, types.HandshakeAcknowledged, types.HandshakeFailed:
			return types.HandshakePending, effCancelTimer | effArmTimer | effEmitAck
		}
	case evAckFailed:
		if from == types.HandshakePending {
			return types.HandshakeFailed, effCancelTimer
		}
	}
	return from, 0
}

// session is the handshake for one activation of one slide. A timer is held
// only while the phase is pending.
type session struct {
	id    string
	slide string
	phase types.HandshakeState
	timer Timer
	armed uint64 // incremented on every arm; stale callbacks compare against it

	// earlyReady records a matching ready signal that arrived before the
	// window query finished.
	earlyReady bool
}

func (s *session) status(phase types.HandshakeState) types.VideoStatus {
	return types.VideoStatus{SlideID: s.slide, SessionID: s.id, Handshake: phase}
}

// step is the outcome of applying one event to a session.
type step struct {
	ev      hsEvent
	from    types.HandshakeState
	to      types.HandshakeState
	effects effect
}

func (s step) changed() bool { return s.from != s.to }
