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
)

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)

// DefaultPublicPath is the URL prefix under which local artifacts are served.
const DefaultPublicPath = "/uploads"

// LocalStorage implements the Storage interface using local disk.
// Files are written below root and referenced as publicPath/<name>.
type LocalStorage struct {
	root       string
	publicPath string
}

// NewLocalStorage creates a new LocalStorage instance.
// If root is empty, a directory under os.TempDir() is used.
// If publicPath is empty, DefaultPublicPath is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(root, publicPath string) (*LocalStorage, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "charactercast", "uploads")
	}
	if publicPath == "" {
		publicPath = DefaultPublicPath
	}

	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	return &LocalStorage{root: root, publicPath: strings.TrimRight(publicPath, "/")}, nil
}

// Root returns the directory artifacts are written to.
func (s *LocalStorage) Root() string {
	return s.root
}

// PublicPath returns the URL prefix of every reference.
func (s *LocalStorage) PublicPath() string {
	return s.publicPath
}

// Put writes data to root/name and returns publicPath/name.
func (s *LocalStorage) Put(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	clean, err := cleanName(name)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.part")
	if err != nil {
		return "", fmt.Errorf("create artifact file: %w", err)
	}
	tmpName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write artifact file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close artifact file: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("move artifact file: %w", err)
	}

	return s.publicPath + "/" + clean, nil
}

// Exists reports whether the referenced file is present on disk.
func (s *LocalStorage) Exists(ctx context.Context, ref string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	p, err := s.pathFor(ref)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat artifact: %w", err)
	}
}

// Open returns a reader for the referenced file.
func (s *LocalStorage) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	p, err := s.pathFor(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p) // #nosec G304 - path is confined to root by pathFor
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	return f, nil
}

// pathFor maps a public reference back to a file below root.
func (s *LocalStorage) pathFor(ref string) (string, error) {
	rel, ok := strings.CutPrefix(ref, s.publicPath+"/")
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidReference, ref)
	}
	clean, err := cleanName(rel)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// cleanName rejects names that would escape the storage root.
func cleanName(name string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))[1:]
	if clean == "" || clean != strings.TrimPrefix(name, "/") || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, name)
	}
	return clean, nil
}
