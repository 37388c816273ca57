package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const gcsPublicHost = "https://storage.googleapis.com"

// GCSStore keeps objects in a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore connects to bucket using application default credentials
// unless opts override them.
func NewGCSStore(ctx context.Context, bucket string, opts ...option.ClientOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, errors.New("media: gcs bucket name is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("media: gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// Put uploads data; without Overwrite the write is conditional on the
// object not existing yet.
func (s *GCSStore) Put(ctx context.Context, path string, data []byte, opts PutOptions) error {
	obj := s.client.Bucket(s.bucket).Object(path)
	if !opts.Overwrite {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}
	w := obj.NewWriter(ctx)
	w.ContentType = opts.ContentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return mapGCSError(err)
	}
	if err := w.Close(); err != nil {
		return mapGCSError(err)
	}
	return nil
}

// Open streams an object.
func (s *GCSStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("media: gcs read %s: %w", path, err)
	}
	return r, nil
}

// PublicURL returns the public object URL.
func (s *GCSStore) PublicURL(path string) string {
	return joinURL(gcsPublicHost+"/"+s.bucket, path)
}

// Close releases the client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func mapGCSError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return ErrObjectExists
	}
	return fmt.Errorf("media: gcs write: %w", err)
}
