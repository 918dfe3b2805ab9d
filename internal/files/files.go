// Package files is the file-store boundary. The core only ever records the
// URL a store hands back; it never keeps the bytes.
package files

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Store interface {
	// Upload stores the content and returns a URL for it.
	Upload(ctx context.Context, r io.Reader, filename string) (string, error)
}

// LocalStore writes uploads under a directory and serves them from a base
// URL. Objects get UUID names so applicant filenames never collide or leak
// into paths.
type LocalStore struct {
	dir     string
	baseURL string
}

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Upload(ctx context.Context, r io.Reader, filename string) (string, error) {
	name := uuid.NewString()
	if ext := filepath.Ext(filename); ext != "" {
		name += ext
	}

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	return s.baseURL + "/" + name, nil
}
