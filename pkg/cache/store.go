package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/jarfang/pkg/classinfo"
)

// FormatVersion is bumped whenever the cached value layout changes; entries
// of other versions are never read.
const FormatVersion = 1

// ErrInvalidKey is returned for keys that are not lowercase hex digests.
var ErrInvalidKey = errors.New("invalid cache key")

// Store is a directory of codec-encoded values keyed by content digest.
type Store[T any] struct {
	dir   string
	codec Codec
}

// ClassStore caches the class summaries of an archive keyed by its SHA-256.
type ClassStore = Store[[]classinfo.ClassInfo]

// NewStore creates a store in dir. The directory is created on first Put.
func NewStore[T any](dir string, codec Codec) *Store[T] {
	return &Store[T]{dir: dir, codec: codec}
}

// NewClassStore creates an LZ4 JSON class store in dir.
func NewClassStore(dir string) *ClassStore {
	return NewStore[[]classinfo.ClassInfo](dir, LZ4JSONCodec{})
}

// DefaultDir is <user cache dir>/jarfang.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve user cache dir: %w", err)
	}

	return filepath.Join(base, "jarfang"), nil
}

// Dir returns the store directory.
func (s *Store[T]) Dir() string {
	return s.dir
}

// Get loads the value stored under key. A missing entry is a miss. An entry
// that cannot be decoded is removed and reported as a miss.
func (s *Store[T]) Get(key string) (T, bool, error) {
	var zero T

	path, err := s.path(key)
	if err != nil {
		return zero, false, err
	}

	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return zero, false, nil
	}

	if err != nil {
		return zero, false, fmt.Errorf("open cache entry: %w", err)
	}

	var value T

	decodeErr := s.codec.Decode(file, &value)
	file.Close()

	if decodeErr != nil {
		removeErr := os.Remove(path)
		if removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			return zero, false, fmt.Errorf("remove corrupt cache entry: %w", removeErr)
		}

		return zero, false, nil
	}

	return value, true, nil
}

// Put stores value under key. The entry appears atomically.
func (s *Store[T]) Put(key string, value T) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	err = os.MkdirAll(s.dir, 0o755)
	if err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}

	err = s.codec.Encode(tmp, value)
	closeErr := tmp.Close()

	if err == nil {
		err = closeErr
	}

	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}

	if err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("write cache entry: %w", err)
	}

	return nil
}

func (s *Store[T]) path(key string) (string, error) {
	if !isHexDigest(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return filepath.Join(s.dir, fmt.Sprintf("%s.v%d%s", key, FormatVersion, s.codec.Extension())), nil
}

func isHexDigest(key string) bool {
	if key == "" {
		return false
	}

	for _, c := range key {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}

	return true
}
