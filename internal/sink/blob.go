package sink

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	ritaerrors "github.com/princespaghetti/rita/internal/errors"
)

const artifactContentType = "application/zip"

// BlobSink writes artifacts to an object store bucket. The URL path of the
// destination becomes the key prefix.
type BlobSink struct {
	bucket *blob.Bucket
	base   *url.URL
	prefix string
}

func openBlob(ctx context.Context, u *url.URL) (*BlobSink, error) {
	base := &url.URL{Scheme: u.Scheme, Host: u.Host, RawQuery: u.RawQuery}

	bucket, err := blob.OpenBucket(ctx, base.String())
	if err != nil {
		return nil, &ritaerrors.SinkWriteError{Dest: u.String(), Err: fmt.Errorf("open bucket: %w", err)}
	}

	return &BlobSink{
		bucket: bucket,
		base:   base,
		prefix: strings.Trim(u.Path, "/"),
	}, nil
}

// Location returns the bucket URL including the key prefix.
func (s *BlobSink) Location() string {
	return s.uri(s.prefix)
}

// Write uploads data under prefix/name, replacing any existing object.
func (s *BlobSink) Write(ctx context.Context, name string, data []byte) (string, error) {
	key := path.Join(s.prefix, path.Base(name))

	err := s.bucket.WriteAll(ctx, key, data, &blob.WriterOptions{
		ContentType: artifactContentType,
	})
	if err != nil {
		return "", &ritaerrors.SinkWriteError{Dest: s.uri(key), Err: err}
	}

	return s.uri(key), nil
}

// Close releases the bucket.
func (s *BlobSink) Close() error {
	if err := s.bucket.Close(); err != nil {
		return fmt.Errorf("close bucket: %w", err)
	}
	return nil
}

func (s *BlobSink) uri(key string) string {
	u := url.URL{Scheme: s.base.Scheme, Host: s.base.Host}
	if key != "" {
		u.Path = "/" + key
	}
	return u.String()
}
