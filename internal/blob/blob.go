// Package blob persists a single opaque object — the serialized geocoding
// cache — behind a storage-agnostic interface. Backends are whole-object:
// every write replaces the previous blob (last writer wins), which matches
// the single-writer-per-store assumption of the cache.
package blob

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNotExist is returned by Read when no blob has been written yet.
// Callers treat it as "start empty", not as a failure.
var ErrNotExist = errors.New("blob does not exist")

// Store reads and writes one blob at a fixed location.
type Store interface {
	// Read returns the current blob contents, or ErrNotExist.
	Read(ctx context.Context) ([]byte, error)

	// Write replaces the blob with data.
	Write(ctx context.Context, data []byte) error

	// Location describes where the blob lives, for logs and errors.
	Location() string
}

// Open selects a backend from the storage location's URL scheme:
// s3://bucket/key uses S3, everything else is a local file path.
func Open(ctx context.Context, location string) (Store, error) {
	u, err := url.Parse(location)
	if err == nil && u.Scheme == "s3" {
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("invalid s3 location %q: need s3://bucket/key", location)
		}
		return NewS3(ctx, u.Host, key)
	}
	return NewFile(location), nil
}
