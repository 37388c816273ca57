// Package media turns uploaded payloads into stored objects with public URLs.
package media

import (
	"context"
	"errors"
	"io"
	"strings"
)

var (
	// ErrObjectExists is returned by Put when the path is taken and overwrite is off.
	ErrObjectExists = errors.New("media: object already exists")
	// ErrObjectNotFound is returned by Open for unknown paths.
	ErrObjectNotFound = errors.New("media: object not found")
)

// PutOptions control a single object write.
type PutOptions struct {
	ContentType string
	Overwrite   bool
}

// ObjectStore is the object-storage collaborator.
type ObjectStore interface {
	Put(ctx context.Context, path string, data []byte, opts PutOptions) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	PublicURL(path string) string
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
