// Package sink writes downloaded artifacts to their destination: a local
// directory or a bucket on an object store.
package sink

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	ritaerrors "github.com/princespaghetti/rita/internal/errors"
)

// Sink is an opaque destination for artifact bytes.
type Sink interface {
	// Write stores data under name and returns where it ended up.
	Write(ctx context.Context, name string, data []byte) (string, error)

	// Location describes the destination root.
	Location() string

	Close() error
}

// Recorder is implemented by sinks that keep a manifest of what they hold.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Open returns the sink for dest. A plain path or file:// URL selects a
// LocalSink; s3://, gs://, azblob:// and mem:// select a BlobSink. A
// destination that cannot be opened is a SinkWriteError. Open performs no
// network I/O, so callers can check the destination before downloading.
func Open(ctx context.Context, dest string) (Sink, error) {
	if strings.TrimSpace(dest) == "" {
		return nil, &ritaerrors.SinkWriteError{Dest: dest, Err: errors.New("empty destination")}
	}

	u, err := url.Parse(dest)
	// Single letter schemes are Windows drive letters.
	if err != nil || len(u.Scheme) <= 1 {
		return NewLocalSink(dest), nil
	}

	switch u.Scheme {
	case "file":
		return NewLocalSink(u.Path), nil
	case "s3", "gs", "azblob", "mem":
		return openBlob(ctx, u)
	default:
		return nil, &ritaerrors.SinkWriteError{
			Dest: dest,
			Err:  fmt.Errorf("%w: %s", ritaerrors.ErrUnsupportedSink, u.Scheme),
		}
	}
}
