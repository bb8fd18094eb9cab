package storage

import (
	"context"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// UpdateBufferSize is the capacity of each listener channel. A full channel
// blocks writers until the listener catches up or their context ends.
const UpdateBufferSize = 255

type InmemoryStore struct {
	valuesMu sync.RWMutex
	values   []byte

	mu          sync.Mutex
	updateChans []chan *Update

	// stop will be closed when Close() is called
	stop      chan struct{}
	closeOnce sync.Once
}

func NewInmemoryStore() *InmemoryStore {
	return &InmemoryStore{
		values:      []byte("{}"),
		stop:        make(chan struct{}),
		updateChans: make([]chan *Update, 0),
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

func (i *InmemoryStore) Set(ctx context.Context, key string, value interface{}) error {
	if !i.isRunning() {
		return ErrClosed
	}

	i.valuesMu.Lock()
	values, err := sjson.SetBytes(i.values, key, value)
	if err != nil {
		i.valuesMu.Unlock()
		return err
	}

	i.values = values
	raw := []byte(gjson.GetBytes(values, key).Raw)
	i.valuesMu.Unlock()

	return i.publish(ctx, &Update{Key: key, Value: raw})
}

func (i *InmemoryStore) Delete(ctx context.Context, key string) error {
	if !i.isRunning() {
		return ErrClosed
	}

	i.valuesMu.Lock()
	if !gjson.GetBytes(i.values, key).Exists() {
		i.valuesMu.Unlock()
		return nil
	}

	values, err := sjson.DeleteBytes(i.values, key)
	if err != nil {
		i.valuesMu.Unlock()
		return err
	}

	i.values = values
	i.valuesMu.Unlock()

	return i.publish(ctx, &Update{Key: key})
}

// Get returns the raw JSON stored at key, or nil when there is none.
func (i *InmemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	i.valuesMu.RLock()
	defer i.valuesMu.RUnlock()

	result := gjson.GetBytes(i.values, key)
	if !result.Exists() {
		return nil, nil
	}

	return []byte(result.Raw), nil
}

func (i *InmemoryStore) publish(ctx context.Context, update *Update) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	for _, updateChan := range i.updateChans {
		select {
		case updateChan <- update:
			continue
		default:
		}

		select {
		case updateChan <- update:
		case <-ctx.Done():
			return ctx.Err()
		case <-i.stop:
			return ErrClosed
		}
	}

	return nil
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
	if !gjson.ValidBytes(values) {
		return ErrInvalidBackup
	}

	i.valuesMu.Lock()
	defer i.valuesMu.Unlock()

	i.values = append([]byte(nil), values...)
	return nil
}

func (i *InmemoryStore) Backup() ([]byte, error) {
	i.valuesMu.RLock()
	defer i.valuesMu.RUnlock()

	if len(i.values) == 0 {
		return []byte("{}"), nil
	}

	return append([]byte(nil), i.values...), nil
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
