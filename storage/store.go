// Package storage keeps shared player and session state as one JSON
// document and tells listeners about every change.
//
// Keys are gjson/sjson paths, such as "players.<uuid>.brand".
package storage

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned by writes after Close.
	ErrClosed = errors.New("store closed")

	ErrInvalidBackup = errors.New("backup is not a JSON document")
)

// Update is sent to every listener after a key changed. Value is the raw
// JSON of the new value, empty when the key was deleted.
type Update struct {
	Key   string
	Value []byte
}

// Deleted reports whether the update removed its key.
func (u *Update) Deleted() bool {
	return len(u.Value) == 0
}

type Store interface {
	Set(ctx context.Context, key string, value interface{}) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error

	Restore(values []byte) error
	Backup() ([]byte, error)

	// ListenToUpdates returns a channel receiving every later update. It is
	// closed by Close.
	ListenToUpdates() <-chan *Update

	Close() error
}
