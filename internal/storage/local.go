// Package storage keeps uploaded documents such as bank transfer slips.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrTooLarge        = errors.New("document exceeds size limit")
	ErrUnsupportedType = errors.New("unsupported document type")
)

// LocalStore writes documents under dir and serves them from publicURL.
type LocalStore struct {
	dir       string
	publicURL string
	maxBytes  int64
	log       *zap.Logger
}

func NewLocalStore(dir, publicURL string, maxBytes int64, log *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalStore{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxBytes:  maxBytes,
		log:       log,
	}, nil
}

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".pdf": true, ".webp": true}

// Save stores the blob under a random name and returns its public URL.
func (s *LocalStore) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	name := uuid.NewString() + ext
	full := filepath.Join(s.dir, name)
	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(full)
		return "", err
	}

	url := s.publicURL + "/" + name
	s.log.Info("document stored", zap.String("url", url), zap.Int64("bytes", n))
	return url, nil
}

// Delete removes a document previously returned by Save. Unknown URLs are ignored.
func (s *LocalStore) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, s.publicURL+"/") {
		return nil
	}
	name := path.Base(url)
	if name == "." || name == "/" || strings.Contains(name, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Dir is the directory served under the public URL.
func (s *LocalStore) Dir() string { return s.dir }
