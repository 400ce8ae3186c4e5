package skin

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/calvinalkan/flagskin/internal/fs"
)

// CacheExt is the extension of every cache entry file.
const CacheExt = ".cache"

const (
	cacheDirPerms  = 0o755
	cacheFilePerms = 0o644
)

// Cache stores downloaded image bytes on disk, one file per source URL.
//
// Entries are named by the SHA-256 of the exact source string, so identical
// URLs always share an entry. Entries are never evicted. Writes go through a
// temp file and rename, so concurrent writers of one key are harmless and
// readers never see a partial file.
type Cache struct {
	dir string
	fs  fs.FS
}

// NewCache returns a cache rooted at dir. The directory is created on the
// first write.
func NewCache(dir string, fsys fs.FS) *Cache {
	if fsys == nil {
		fsys = fs.NewReal()
	}

	return &Cache{dir: dir, fs: fsys}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Key returns the lowercase hex digest that names source's entry.
func (c *Cache) Key(source string) string {
	sum := sha256.Sum256([]byte(source))

	return hex.EncodeToString(sum[:])
}

// Path returns the file that holds source's entry.
func (c *Cache) Path(source string) string {
	return filepath.Join(c.dir, c.Key(source)+CacheExt)
}

// Get returns the cached bytes for source. ok is false on a miss; an empty
// entry counts as a miss.
func (c *Cache) Get(source string) (data []byte, ok bool, err error) {
	path := c.Path(source)

	exists, err := c.fs.Exists(path)
	if err != nil {
		return nil, false, fmt.Errorf("stat cache entry %s: %w", path, err)
	}

	if !exists {
		return nil, false, nil
	}

	data, err = c.fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("read cache entry %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, false, nil
	}

	return data, true, nil
}

// Put stores data as source's entry.
func (c *Cache) Put(source string, data []byte) error {
	if err := c.fs.MkdirAll(c.dir, cacheDirPerms); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrCacheWrite, c.dir, err)
	}

	path := c.Path(source)
	if err := c.fs.WriteFileAtomic(path, data, cacheFilePerms); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCacheWrite, path, err)
	}

	return nil
}

// CacheFile describes one entry on disk.
type CacheFile struct {
	Key  string
	Path string
	Size int64
}

// Entries lists the entries in the cache directory, sorted by key. A missing
// directory is an empty cache.
func (c *Cache) Entries() ([]CacheFile, error) {
	entries, err := c.fs.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("read cache dir %s: %w", c.dir, err)
	}

	files := make([]CacheFile, 0, len(entries))

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, CacheExt) {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}

		files = append(files, CacheFile{
			Key:  strings.TrimSuffix(name, CacheExt),
			Path: filepath.Join(c.dir, name),
			Size: info.Size(),
		})
	}

	return files, nil
}
