package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Local stores recordings as plain files under a root directory. References
// are paths relative to the root, so records stay valid if the root moves.
type Local struct {
	root string
}

// NewLocal constructs a local store rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage root is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{root: dir}, nil
}

// Save writes the payload under a unique name derived from the original.
func (l *Local) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	base := filepath.Base(strings.TrimSpace(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", errors.New("payload name is required")
	}
	ref := uuid.NewString() + "-" + base
	target := filepath.Join(l.root, ref)

	// Write then rename so a crash never leaves a partial file under the
	// final reference.
	tmp := target + ".partial"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write payload: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize payload: %w", err)
	}
	return ref, nil
}

// Fetch reads a stored payload.
func (l *Local) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := l.resolve(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload %q: %w", ref, err)
	}
	return data, nil
}

// Exists reports whether the reference still resolves to a regular file.
func (l *Local) Exists(ctx context.Context, ref string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := l.resolve(ref)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat payload %q: %w", ref, err)
	}
	return info.Mode().IsRegular(), nil
}

// Path resolves a reference to its filesystem location.
func (l *Local) Path(ref string) string {
	path, err := l.resolve(ref)
	if err != nil {
		return ""
	}
	return path
}

func (l *Local) resolve(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("storage ref is required")
	}
	path := filepath.Join(l.root, filepath.FromSlash(ref))
	rel, err := filepath.Rel(l.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("storage ref %q escapes root", ref)
	}
	return path, nil
}

var _ Store = (*Local)(nil)
