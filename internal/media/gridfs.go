package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GridFSStore keeps objects in MongoDB GridFS, keyed by file name.
type GridFSStore struct {
	client     *mongo.Client
	bucket     *gridfs.Bucket
	publicBase string

	// GridFS has no conditional create; serialise check-then-write per process.
	mu sync.Mutex
}

// NewGridFSStore connects to uri and uses the default bucket of database.
func NewGridFSStore(ctx context.Context, uri, database, publicBase string) (*GridFSStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("media: mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("media: mongo ping: %w", err)
	}
	bucket, err := gridfs.NewBucket(client.Database(database))
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("media: gridfs bucket: %w", err)
	}
	return &GridFSStore{client: client, bucket: bucket, publicBase: publicBase}, nil
}

// Put uploads data under path. With Overwrite, earlier revisions are
// removed after the new file is written.
func (s *GridFSStore) Put(ctx context.Context, path string, data []byte, opts PutOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.fileIDs(ctx, path)
	if err != nil {
		return err
	}
	if len(existing) > 0 && !opts.Overwrite {
		return ErrObjectExists
	}

	upload := options.GridFSUpload().SetMetadata(bson.D{{Key: "contentType", Value: opts.ContentType}})
	if _, err := s.bucket.UploadFromStream(path, bytes.NewReader(data), upload); err != nil {
		return fmt.Errorf("media: gridfs upload %s: %w", path, err)
	}
	for _, id := range existing {
		if err := s.bucket.Delete(id); err != nil && !errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("media: gridfs prune %s: %w", path, err)
		}
	}
	return nil
}

func (s *GridFSStore) fileIDs(ctx context.Context, path string) ([]primitive.ObjectID, error) {
	cur, err := s.bucket.Find(bson.D{{Key: "filename", Value: path}})
	if err != nil {
		return nil, fmt.Errorf("media: gridfs find %s: %w", path, err)
	}
	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("media: gridfs decode %s: %w", path, err)
	}
	ids := make([]primitive.ObjectID, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

// Open streams the newest revision of path.
func (s *GridFSStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	stream, err := s.bucket.OpenDownloadStreamByName(path)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("media: gridfs open %s: %w", path, err)
	}
	return stream, nil
}

// PublicURL returns the URL under which the server exposes path.
func (s *GridFSStore) PublicURL(path string) string {
	return joinURL(s.publicBase, path)
}

// Close disconnects from MongoDB.
func (s *GridFSStore) Close() error {
	return s.client.Disconnect(context.Background())
}
