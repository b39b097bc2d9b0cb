// Package store persists resume positions for slide videos.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"go.ospresenter.app/presenter/internal/types"
)

// DefaultTTL is how long a resume position is kept after its last update.
const DefaultTTL = 30 * 24 * time.Hour

const keyPrefix = "position:"

// Positions is a badger-backed store of the last known position per slide.
type Positions struct {
	db  *badger.DB
	ttl time.Duration
}

// Open opens (or creates) the store at path. An empty path keeps everything
// in memory. A non-positive ttl uses DefaultTTL.
func Open(path string, ttl time.Duration) (*Positions, error) {
	opts := badger.DefaultOptions(path).WithLogger(slogLogger{})
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Positions{db: db, ttl: ttl}, nil
}

// SavePosition stores pos, replacing any earlier position for the slide.
func (p *Positions) SavePosition(pos types.ResumePosition) error {
	if pos.SlideID == "" {
		return fmt.Errorf("slide id required")
	}
	if pos.UpdatedAt == 0 {
		pos.UpdatedAt = time.Now().UnixMilli()
	}

	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}

	err = p.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key(pos.SlideID), data).WithTTL(p.ttl))
	})
	if err != nil {
		return fmt.Errorf("save position %s: %w", pos.SlideID, err)
	}
	return nil
}

// Get returns the stored position for slideID.
func (p *Positions) Get(slideID string) (types.ResumePosition, bool, error) {
	var pos types.ResumePosition
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(slideID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &pos)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return types.ResumePosition{}, false, nil
	}
	if err != nil {
		return types.ResumePosition{}, false, fmt.Errorf("get position %s: %w", slideID, err)
	}
	return pos, true, nil
}

// Delete removes the stored position for slideID.
func (p *Positions) Delete(slideID string) error {
	err := p.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(slideID))
	})
	if err != nil {
		return fmt.Errorf("delete position %s: %w", slideID, err)
	}
	return nil
}

// Close flushes and closes the underlying database.
func (p *Positions) Close() error {
	return p.db.Close()
}

func key(slideID string) []byte {
	return []byte(keyPrefix + slideID)
}

// slogLogger routes badger's logging into slog. Badger is chatty at info
// level, so only warnings and errors are kept.
type slogLogger struct{}

func (slogLogger) Errorf(format string, args ...any) {
	slog.Error("badger: " + fmt.Sprintf(format, args...))
}

func (slogLogger) Warningf(format string, args ...any) {
	slog.Warn("badger: " + fmt.Sprintf(format, args...))
}

func (slogLogger) Infof(string, ...any) {}

func (slogLogger) Debugf(string, ...any) {}
