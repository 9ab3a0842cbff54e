package session

import (
	"context"
	"errors"

	"github.com/octabyte/license-client/models"
)

// StorageKey is the name of the persisted session record.
const StorageKey = "auth-storage"

var (
	// ErrNotFound is returned by Persistence.Load when no record is stored.
	ErrNotFound = errors.New("session record not found")
	// ErrSessionEnded is returned when a token merge arrives after the
	// session it belongs to was cleared or replaced.
	ErrSessionEnded = errors.New("session ended before tokens could be stored")
)

// Record is the persisted envelope: {"state": {...}, "version": 0}.
// Only the four session fields are ever written.
type Record struct {
	State   models.Session `json:"state"`
	Version int            `json:"version"`
}

// Persistence is durable storage for the session record.
type Persistence interface {
	// Load returns ErrNotFound when nothing is stored.
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, record *Record) error
	Delete(ctx context.Context) error
}
