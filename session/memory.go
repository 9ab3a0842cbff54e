package session

import (
	"context"
	"sync"

	"github.com/octabyte/license-client/utils"
)

// MemoryPersistence keeps the encoded record in process memory.
type MemoryPersistence struct {
	mu   sync.Mutex
	data []byte
}

var _ Persistence = (*MemoryPersistence)(nil)

func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{}
}

func (m *MemoryPersistence) Load(_ context.Context) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, ErrNotFound
	}
	record := new(Record)
	if err := utils.BytesToStruct(m.data, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (m *MemoryPersistence) Save(_ context.Context, record *Record) error {
	data, err := utils.StructToBytes(record)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryPersistence) Delete(_ context.Context) error {
	m.mu.Lock()
	m.data = nil
	m.mu.Unlock()
	return nil
}

// Raw returns the encoded record, or nil.
func (m *MemoryPersistence) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}
