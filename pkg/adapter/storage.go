package adapter

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// wavContentType is set on every stored recording. The pipeline only
// ingests WAV audio.
const wavContentType = "audio/wav"

// Storage holds raw conversation recordings, one object per key.
type Storage interface {
	// Put returns a writer for the recording under key. The recording
	// is visible to Get only after the writer is closed.
	Put(ctx context.Context, key string) (io.WriteCloser, error)
	// Get streams the recording under key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// recordingBucket implements Storage on a Cloud Storage bucket
type recordingBucket struct {
	bucketName string
	client     *storage.Client
}

// NewStorage opens the Cloud Storage bucket that holds raw
// conversation audio.
func NewStorage(ctx context.Context, bucketName string) (Storage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client",
			goerr.V("bucket", bucketName))
	}

	return &recordingBucket{
		bucketName: bucketName,
		client:     client,
	}, nil
}

func (s *recordingBucket) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	writer := s.client.Bucket(s.bucketName).Object(key).NewWriter(ctx)
	writer.ContentType = wavContentType
	return writer, nil
}

func (s *recordingBucket) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	reader, err := s.client.Bucket(s.bucketName).Object(key).NewReader(ctx)
	if err != nil {
		// storage.ErrObjectNotExist passes through for the caller's
		// not-found mapping
		return nil, goerr.Wrap(err, "failed to read recording",
			goerr.V("bucket", s.bucketName), goerr.V("key", key))
	}

	return reader, nil
}
