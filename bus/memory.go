package bus

import (
	"context"
	"sync"

	"github.com/samber/lo"
)

// Memory is an in-process Bus. Emit delivers synchronously to every handler
// registered on the channel at the time of the call, in subscription order.
// Handlers may emit or (un)subscribe re-entrantly.
type Memory struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]subscription
	closed   bool
}

type subscription struct {
	id uint64
	h  Handler
}

// NewMemory creates an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{handlers: make(map[string][]subscription)}
}

// Emit implements Bus.
func (m *Memory) Emit(ctx context.Context, name string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	subs := append([]subscription(nil), m.handlers[name]...)
	m.mu.RUnlock()

	for _, s := range subs {
		s.h(Event{Name: name, Data: data})
	}
	return nil
}

// Subscribe implements Bus.
func (m *Memory) Subscribe(name string, h Handler) (Unsubscribe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	m.nextID++
	id := m.nextID
	m.handlers[name] = append(m.handlers[name], subscription{id: id, h: h})

	var once sync.Once
	return func() {
		once.Do(func() { m.remove(name, id) })
	}, nil
}

// Subscribers returns the number of live handlers on a channel.
func (m *Memory) Subscribers(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[name])
}

// Close drops all subscriptions and rejects further use.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.handlers = make(map[string][]subscription)
}

func (m *Memory) remove(name string, id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rest := lo.Reject(m.handlers[name], func(s subscription, _ int) bool {
		return s.id == id
	})
	if len(rest) == 0 {
		delete(m.handlers, name)
		return
	}
	m.handlers[name] = rest
}
