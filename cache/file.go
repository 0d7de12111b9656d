package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// FileCache stores one file per key under a directory. Writes go to a temporary file that
// is renamed over the destination, so readers never see a partial value.
type FileCache struct {
	dir string
}

func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

func (fc *FileCache) path(key string) string {
	return filepath.Join(fc.dir, strings.ReplaceAll(key, ":", "_")+".bin")
}

func (fc *FileCache) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(fc.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (fc *FileCache) Put(_ context.Context, key string, value []byte) error {
	tmp, err := os.CreateTemp(fc.dir, "put-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), fc.path(key))
}

func (fc *FileCache) Has(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(fc.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
