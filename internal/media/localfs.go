package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/spf13/afero"
)

// LocalStore keeps objects on a filesystem and serves them from publicBase.
type LocalStore struct {
	fs         afero.Fs
	publicBase string
}

// NewLocalStore stores objects under dir on the OS filesystem.
func NewLocalStore(dir, publicBase string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: create %s: %w", dir, err)
	}
	return NewLocalStoreFs(afero.NewBasePathFs(afero.NewOsFs(), dir), publicBase), nil
}

// NewLocalStoreFs stores objects in fs; used with afero.MemMapFs in tests.
func NewLocalStoreFs(fs afero.Fs, publicBase string) *LocalStore {
	return &LocalStore{fs: fs, publicBase: publicBase}
}

// Put writes data at p.
func (s *LocalStore) Put(_ context.Context, p string, data []byte, opts PutOptions) error {
	p, err := CleanObjectPath(p)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return fmt.Errorf("media: mkdir: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !opts.Overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := s.fs.OpenFile(p, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrObjectExists
		}
		return fmt.Errorf("media: open %s: %w", p, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("media: write %s: %w", p, err)
	}
	return f.Close()
}

// Open returns a reader for the object at p.
func (s *LocalStore) Open(_ context.Context, p string) (io.ReadCloser, error) {
	p, err := CleanObjectPath(p)
	if err != nil {
		return nil, ErrObjectNotFound
	}
	f, err := s.fs.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("media: open %s: %w", p, err)
	}
	if info, err := f.Stat(); err == nil && info.IsDir() {
		f.Close()
		return nil, ErrObjectNotFound
	}
	return f, nil
}

// PublicURL returns the URL under which the server exposes p.
func (s *LocalStore) PublicURL(p string) string {
	return joinURL(s.publicBase, p)
}
