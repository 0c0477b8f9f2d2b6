package storage

import "context"

// Store abstracts the durable home of uploaded recordings. The pipeline only
// needs to persist bytes, read them back, and answer existence checks for the
// retry path.
type Store interface {
	// Save persists the payload and returns an opaque reference for it.
	Save(ctx context.Context, name string, data []byte) (string, error)
	// Fetch reads back a payload previously saved under ref.
	Fetch(ctx context.Context, ref string) ([]byte, error)
	// Exists reports whether ref still resolves to a stored payload.
	Exists(ctx context.Context, ref string) (bool, error)
	// Path resolves ref to a local filesystem path when the backend has one.
	Path(ref string) string
}
