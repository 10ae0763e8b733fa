package storage

import (
	"context"
	"errors"

	"github.com/luma/esl/protocol"
)

var (
	ErrNotFound = errors.New("channel not found")
	ErrClosed   = errors.New("store is closed")
)

// Update describes a change to one tracked channel. Value is the channel's
// JSON document after the change, nil when Removed.
type Update struct {
	UUID    string
	Value   []byte
	Removed bool
}

// Store tracks channel state keyed by Unique-ID, folding in the headers of
// every event applied to it.
type Store interface {
	Apply(ctx context.Context, ev *protocol.Event) error

	// Get returns the channel's JSON document.
	Get(ctx context.Context, uuid string) ([]byte, error)
	Channel(ctx context.Context, uuid string) (map[string]string, error)
	List(ctx context.Context) ([]string, error)

	Restore(values []byte) error
	Backup() ([]byte, error)

	ListenToUpdates() <-chan *Update

	Close() error
}
