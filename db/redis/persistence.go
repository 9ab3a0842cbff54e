package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/octabyte/license-client/session"
	"github.com/octabyte/license-client/utils"
	"github.com/redis/go-redis/v9"
)

// Persistence stores the session record under <prefix>auth-storage so that
// several processes on one host can share a login.
type Persistence struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ session.Persistence = (*Persistence)(nil)

// NewPersistence creates a redis-backed session driver. A zero ttl keeps the
// record until it is deleted.
func NewPersistence(client *redis.Client, prefix string, ttl time.Duration) *Persistence {
	return &Persistence{
		client: client,
		key:    prefix + session.StorageKey,
		ttl:    ttl,
	}
}

// Key returns the redis key of the record.
func (p *Persistence) Key() string {
	return p.key
}

func (p *Persistence) Load(ctx context.Context) (*session.Record, error) {
	data, err := GetBytes(ctx, p.client, p.key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session record: %w", err)
	}

	record := new(session.Record)
	if err := utils.BytesToStruct(data, record); err != nil {
		return nil, fmt.Errorf("failed to decode session record: %w", err)
	}
	return record, nil
}

func (p *Persistence) Save(ctx context.Context, record *session.Record) error {
	data, err := utils.StructToBytes(record)
	if err != nil {
		return err
	}
	return Set(ctx, p.client, p.key, data, p.ttl)
}

func (p *Persistence) Delete(ctx context.Context) error {
	return Del(ctx, p.client, p.key)
}
