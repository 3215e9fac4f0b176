package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// entryHeader is the length of the expiry stamp that precedes every stored
// value. Frames are PNG bytes, so values are kept raw instead of wrapped in
// JSON.
const entryHeader = 8

// FileCache keeps one file per key under dir, sharded by the first byte of
// the key's SHA-256. Each file is an 8-byte big-endian expiry (Unix nanos,
// zero for no expiry) followed by the value.
type FileCache struct {
	dir string
}

// NewFileCache creates dir if needed and returns a cache rooted there.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// Get returns the stored value. Truncated and expired files are removed and
// reported as misses.
func (c *FileCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	file := c.file(key)
	raw, err := os.ReadFile(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	if len(raw) < entryHeader {
		_ = os.Remove(file)
		return nil, false, nil
	}
	if exp := int64(binary.BigEndian.Uint64(raw)); exp != 0 && time.Now().UnixNano() > exp {
		_ = os.Remove(file)
		return nil, false, nil
	}
	return raw[entryHeader:], true, nil
}

// Set writes the value through a temp file and renames it into place, so a
// concurrent Get sees either the old entry or the new one.
func (c *FileCache) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	buf := make([]byte, entryHeader+len(data))
	if ttl > 0 {
		binary.BigEndian.PutUint64(buf, uint64(time.Now().Add(ttl).UnixNano()))
	}
	copy(buf[entryHeader:], data)

	file := c.file(key)
	shard := filepath.Dir(file)
	if err := os.MkdirAll(shard, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(shard, ".tmp-*")
	if err != nil {
		return err
	}
	_, werr := tmp.Write(buf)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(tmp.Name())
		return werr
	}
	return os.Rename(tmp.Name(), file)
}

// Delete removes the entry for key if there is one.
func (c *FileCache) Delete(_ context.Context, key string) error {
	if err := os.Remove(c.file(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Clear deletes every entry and reports how many were removed. Shard
// directories are left in place.
func (c *FileCache) Clear() (int, error) {
	removed := 0
	err := filepath.WalkDir(c.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if err := os.Remove(p); err != nil {
			return err
		}
		removed++
		return nil
	})
	return removed, err
}

func (c *FileCache) Close() error { return nil }

func (c *FileCache) file(key string) string {
	sum := Hash([]byte(key))
	return filepath.Join(c.dir, sum[:2], sum[2:])
}

var _ Cache = (*FileCache)(nil)
