package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

// Store persists image payloads on disk under the media root, keyed by the
// owning point id. Generated file names never derive from the client's
// filename beyond its extension.
type Store struct {
	root string
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the media root directory.
func (s *Store) Root() string {
	return s.root
}

// Save writes one payload under point_images/<pointID>/<uuid><ext> and
// returns the slash-separated path relative to the media root plus the
// generated file name and the number of bytes written. A failed write leaves
// no file behind.
func (s *Store) Save(pointID uint, ext string, r io.Reader) (rel string, name string, size int64, err error) {
	name = uuid.NewString() + ext
	dir := filepath.Join(s.root, "point_images", strconv.FormatUint(uint64(pointID), 10))
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return "", "", 0, fmt.Errorf("create point directory: %w", err)
	}

	dst := filepath.Join(dir, name)
	f, err := os.Create(dst)
	if err != nil {
		return "", "", 0, fmt.Errorf("create payload file: %w", err)
	}

	size, err = io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return "", "", 0, fmt.Errorf("write payload: %w", err)
	}

	rel = filepath.ToSlash(filepath.Join("point_images", strconv.FormatUint(uint64(pointID), 10), name))
	return rel, name, size, nil
}

// Remove deletes one stored payload by its relative path. A missing file is
// not an error.
func (s *Store) Remove(rel string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RemovePointDir deletes everything stored for one point.
func (s *Store) RemovePointDir(pointID uint) error {
	dir := filepath.Join(s.root, "point_images", strconv.FormatUint(uint64(pointID), 10))
	return os.RemoveAll(dir)
}
