package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

const (
	keyPrefix       = "pdf/"
	filenameMetaKey = "filename"
	pdfContentType  = "application/pdf"
)

// ErrBlobNotFound is returned when no object exists under the requested id.
var ErrBlobNotFound = errors.New("blob not found")

// Object is a stored document together with the name it was uploaded under.
type Object struct {
	ID       string
	Filename string
	Data     []byte
}

// BucketStore keeps uploaded documents in a gocloud bucket keyed by opaque ids.
type BucketStore struct {
	bucket *blob.Bucket
}

// OpenBucketStore opens the bucket addressed by rawURL (file://, mem://, s3://).
// The matching driver package must be linked in by the caller.
func OpenBucketStore(ctx context.Context, rawURL string) (*BucketStore, error) {
	bucket, err := blob.OpenBucket(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	return NewBucketStore(bucket), nil
}

// NewBucketStore wraps an already opened bucket.
func NewBucketStore(bucket *blob.Bucket) *BucketStore {
	return &BucketStore{bucket: bucket}
}

// Put stores data and returns the generated blob id.
func (s *BucketStore) Put(ctx context.Context, filename string, data []byte) (string, error) {
	id := uuid.NewString()
	opts := &blob.WriterOptions{
		ContentType: pdfContentType,
		// s3 only accepts ASCII metadata values
		Metadata: map[string]string{filenameMetaKey: url.PathEscape(filename)},
	}
	if err := s.bucket.WriteAll(ctx, key(id), data, opts); err != nil {
		return "", fmt.Errorf("write blob: %w", err)
	}
	return id, nil
}

// Get returns the object stored under id, or ErrBlobNotFound.
func (s *BucketStore) Get(ctx context.Context, id string) (*Object, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrBlobNotFound
	}

	attrs, err := s.bucket.Attributes(ctx, key(id))
	if err != nil {
		return nil, translate(err, "read blob attributes")
	}
	data, err := s.bucket.ReadAll(ctx, key(id))
	if err != nil {
		return nil, translate(err, "read blob")
	}

	filename := attrs.Metadata[filenameMetaKey]
	if decoded, err := url.PathUnescape(filename); err == nil {
		filename = decoded
	}
	return &Object{ID: id, Filename: filename, Data: data}, nil
}

// Delete removes the object stored under id. Missing objects yield ErrBlobNotFound.
func (s *BucketStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrBlobNotFound
	}
	if err := s.bucket.Delete(ctx, key(id)); err != nil {
		return translate(err, "delete blob")
	}
	return nil
}

// Ping checks the bucket is reachable.
func (s *BucketStore) Ping(ctx context.Context) error {
	if _, err := s.bucket.IsAccessible(ctx); err != nil {
		return fmt.Errorf("bucket not accessible: %w", err)
	}
	return nil
}

// Close releases the underlying bucket.
func (s *BucketStore) Close() error {
	return s.bucket.Close()
}

func key(id string) string {
	return keyPrefix + id
}

func translate(err error, op string) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return ErrBlobNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
