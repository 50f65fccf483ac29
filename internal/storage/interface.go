package storage

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrNotFound is returned by Retrieve when no object exists under the name.
var ErrNotFound = errors.New("object not found")

// StorageInterface defines the contract for storage operations
type StorageInterface interface {
	Store(filename string, data []byte) error
	Retrieve(filename string) ([]byte, error)
	List(prefix string) ([]string, error)
	Delete(filename string) error
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendAzure  = "azure"
)

// Options selects and configures a storage backend.
type Options struct {
	Backend        string
	Dir            string // file and sqlite backends
	AzureAccount   string
	AzureContainer string
}

// New opens the configured backend.
func New(opts Options) (StorageInterface, error) {
	switch opts.Backend {
	case "", BackendFile:
		return NewFileStorage(opts.Dir)
	case BackendSQLite:
		return NewSQLiteStorage(filepath.Join(opts.Dir, "cache.db"))
	case BackendAzure:
		return NewAzureStorage(opts.AzureAccount, opts.AzureContainer)
	}
	return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
}
