package bus

import (
	"context"
	"sync"

	"github.com/wailsapp/wails/v3/pkg/application"
)

// Wails adapts the Wails application event manager to Bus. Events emitted
// here reach every window's front-end as well as Go listeners.
type Wails struct {
	app *application.App
}

// NewWails wraps app. A nil app yields a bus that rejects every call with
// ErrClosed.
func NewWails(app *application.App) *Wails {
	return &Wails{app: app}
}

// Emit implements Bus.
func (w *Wails) Emit(ctx context.Context, name string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if w.app == nil {
		return ErrClosed
	}
	w.app.Event.Emit(name, data)
	return nil
}

// Subscribe implements Bus.
func (w *Wails) Subscribe(name string, h Handler) (Unsubscribe, error) {
	if w.app == nil {
		return nil, ErrClosed
	}

	off := w.app.Event.On(name, func(e *application.CustomEvent) {
		h(Event{Name: e.Name, Data: e.Data})
	})

	var once sync.Once
	return func() { once.Do(off) }, nil
}
