package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/luma/esl/protocol"
)

const UpdateBufferSize = 255

// InmemoryStore keeps every channel in a single JSON document of the form
// {"<uuid>": {"<header>": "<value>"}}.
type InmemoryStore struct {
	mu          sync.RWMutex
	values      []byte
	updateChans []chan *Update

	// stop will be closed when Close() is called
	stop      chan struct{}
	closeOnce sync.Once

	log *zap.Logger
}

func NewInmemoryStore(log *zap.Logger) *InmemoryStore {
	if log == nil {
		log = zap.NewNop()
	}

	return &InmemoryStore{
		values:      []byte("{}"),
		stop:        make(chan struct{}),
		updateChans: make([]chan *Update, 0),
		log:         log,
	}
}

func (i *InmemoryStore) Close() error {
	i.closeOnce.Do(func() {
		close(i.stop)

		i.mu.Lock()
		defer i.mu.Unlock()

		for _, updateChan := range i.updateChans {
			close(updateChan)
		}
		i.updateChans = nil
	})

	return nil
}

// Apply merges the event's headers into its channel. CHANNEL_DESTROY drops
// the channel and events without a Unique-ID are ignored.
func (i *InmemoryStore) Apply(ctx context.Context, ev *protocol.Event) error {
	if !i.isRunning() {
		return ErrClosed
	}

	uuid := ev.UniqueID()
	if uuid == "" {
		return nil
	}

	path := protocol.EscapeJSONPath(uuid)

	i.mu.Lock()
	defer i.mu.Unlock()

	if ev.Kind == protocol.EventChannelDestroy {
		if !gjson.GetBytes(i.values, path).Exists() {
			return nil
		}

		values, err := sjson.DeleteBytes(i.values, path)
		if err != nil {
			return fmt.Errorf("failed to remove channel %s: %w", uuid, err)
		}

		i.values = values
		i.publish(&Update{UUID: uuid, Removed: true})

		return nil
	}

	channel := gjson.GetBytes(i.values, path).Raw
	if channel == "" {
		channel = "{}"
	}

	var err error
	for name, value := range ev.Headers {
		if channel, err = sjson.Set(channel, protocol.EscapeJSONPath(name), value); err != nil {
			return fmt.Errorf("failed to set %s on channel %s: %w", name, uuid, err)
		}
	}

	values, err := sjson.SetRawBytes(i.values, path, []byte(channel))
	if err != nil {
		return fmt.Errorf("failed to store channel %s: %w", uuid, err)
	}

	i.values = values
	i.publish(&Update{UUID: uuid, Value: []byte(channel)})

	return nil
}

func (i *InmemoryStore) Get(ctx context.Context, uuid string) ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	result := gjson.GetBytes(i.values, protocol.EscapeJSONPath(uuid))
	if !result.Exists() {
		return nil, ErrNotFound
	}

	return []byte(result.Raw), nil
}

// Channel returns the channel's headers.
func (i *InmemoryStore) Channel(ctx context.Context, uuid string) (map[string]string, error) {
	raw, err := i.Get(ctx, uuid)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string)
	gjson.ParseBytes(raw).ForEach(func(key, value gjson.Result) bool {
		headers[key.String()] = value.String()
		return true
	})

	return headers, nil
}

// List returns the tracked channel UUIDs in the order they were first seen.
func (i *InmemoryStore) List(ctx context.Context) ([]string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	uuids := make([]string, 0)
	gjson.ParseBytes(i.values).ForEach(func(key, _ gjson.Result) bool {
		uuids = append(uuids, key.String())
		return true
	})

	return uuids, nil
}

func (i *InmemoryStore) ListenToUpdates() <-chan *Update {
	i.mu.Lock()
	defer i.mu.Unlock()

	updateChan := make(chan *Update, UpdateBufferSize)
	if !i.isRunning() {
		close(updateChan)
		return updateChan
	}

	i.updateChans = append(i.updateChans, updateChan)

	return updateChan
}

func (i *InmemoryStore) Restore(values []byte) error {
	if !gjson.ValidBytes(values) || !gjson.ParseBytes(values).IsObject() {
		return fmt.Errorf("cannot restore from invalid json object")
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.values = append([]byte(nil), values...)

	return nil
}

func (i *InmemoryStore) Backup() ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return append([]byte(nil), i.values...), nil
}

// publish must be called with mu held. Slow listeners miss updates rather
// than stalling Apply.
func (i *InmemoryStore) publish(update *Update) {
	for _, updateChan := range i.updateChans {
		select {
		case updateChan <- update:
		default:
			i.log.Warn("Dropping channel update, listener is not keeping up",
				zap.String("uuid", update.UUID))
		}
	}
}

// isRunning returns true if Close has not been called
func (i *InmemoryStore) isRunning() bool {
	select {
	case <-i.stop:
		return false

	default:
		return true
	}
}

var _ Store = (*InmemoryStore)(nil)
