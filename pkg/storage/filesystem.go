package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrObjectNotFound is returned when a bucket/key pair has no stored object.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore persists bucket-scoped objects on disk under a base directory.
type ObjectStore struct {
	baseDir string
}

// NewObjectStore ensures the base directory exists and returns a handle.
func NewObjectStore(baseDir string) (*ObjectStore, error) {
	if baseDir == "" {
		baseDir = "./storage"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &ObjectStore{baseDir: baseDir}, nil
}

// Put copies the reader into bucket/key, replacing any previous object.
func (s *ObjectStore) Put(bucket, key string, r io.Reader) (int64, error) {
	target, err := s.resolve(bucket, key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("prepare object directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create object file: %w", err)
	}
	written, err := io.Copy(tmp, r)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("write object: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return 0, fmt.Errorf("commit object: %w", err)
	}
	return written, nil
}

// Open returns a read-only handle for the stored object.
func (s *ObjectStore) Open(bucket, key string) (*os.File, error) {
	target, err := s.resolve(bucket, key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	return file, nil
}

// Delete removes a stored object. Missing objects are not an error.
func (s *ObjectStore) Delete(bucket, key string) error {
	target, err := s.resolve(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// Exists reports whether bucket/key currently holds an object.
func (s *ObjectStore) Exists(bucket, key string) (bool, error) {
	target, err := s.resolve(bucket, key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(target); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}

// resolve maps bucket/key to a path, refusing keys that escape the bucket.
func (s *ObjectStore) resolve(bucket, key string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("invalid bucket %q", bucket)
	}
	cleaned := path.Clean("/" + key)
	if key == "" || cleaned == "/" || cleaned != "/"+key {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.baseDir, bucket, filepath.FromSlash(cleaned[1:])), nil
}
