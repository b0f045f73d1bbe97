package storage

import (
	"errors"
	"io"

	cfg "github.com/fileward/fileward/internal/config"
)

// ErrObjectNotFound is returned by Size and Open for missing objects.
var ErrObjectNotFound = errors.New("object not found")

// Storage is the object-storage collaborator. The quota confirm path relies
// on Size reporting the real stored byte count, and the streaming path on
// Open returning the object exactly as stored.
type Storage interface {
	// Save stores an object at the given path
	Save(path string, r io.Reader) error

	// Delete removes the object at the given path
	Delete(path string) error

	// Exists reports whether an object is present at the given path
	Exists(path string) (bool, error)

	// Size returns the stored byte count of the object
	Size(path string) (int64, error)

	// Open returns a streaming reader over the object
	Open(path string) (io.ReadCloser, error)
}

// New creates the storage backend selected by config: S3-compatible for
// production, local filesystem for development.
func New(c *cfg.Config) (Storage, error) {
	if c.StorageDriver == "local" {
		return NewLocalStorage(c.LocalPath)
	}
	return NewS3Storage(S3Config{
		Region:    c.S3Region,
		Bucket:    c.S3Bucket,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Endpoint:  c.S3Endpoint,
	})
}
