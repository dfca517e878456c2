package localfs

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Storage keeps photos, flat lays and item crops on the local filesystem
// and serves them back over the api binary's /files route. publicBaseURL
// is what external services (vision model, search backends) use to reach
// the bytes.
type Storage struct {
	basePath      string
	publicBaseURL string
}

func New(basePath, publicBaseURL string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{
		basePath:      basePath,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (s *Storage) Save(_ context.Context, key string, data io.Reader) error {
	path := filepath.Join(s.basePath, filepath.Base(key))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, data); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Storage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path := filepath.Join(s.basePath, filepath.Base(key))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

func (s *Storage) URL(key string) string {
	return s.publicBaseURL + "/files/" + url.PathEscape(filepath.Base(key))
}
