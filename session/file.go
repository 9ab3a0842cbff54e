package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/octabyte/license-client/utils"
)

// FilePersistence stores the record as <dir>/auth-storage.json. Writes go to
// a temp file that is renamed over the target, so readers never see a
// partially written record.
type FilePersistence struct {
	path string
}

var _ Persistence = (*FilePersistence)(nil)

func NewFilePersistence(dir string) (*FilePersistence, error) {
	if dir == "" {
		return nil, fmt.Errorf("session directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &FilePersistence{path: filepath.Join(dir, StorageKey+".json")}, nil
}

// Path returns the location of the record file.
func (f *FilePersistence) Path() string {
	return f.path
}

func (f *FilePersistence) Load(_ context.Context) (*Record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	record := new(Record)
	if err := utils.BytesToStruct(data, record); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", f.path, err)
	}
	return record, nil
}

func (f *FilePersistence) Save(_ context.Context, record *Record) error {
	data, err := utils.StructToBytes(record)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), StorageKey+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, f.path)
}

func (f *FilePersistence) Delete(_ context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
