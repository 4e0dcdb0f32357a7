package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/newhook/harvest/internal/logging"
	"github.com/newhook/harvest/internal/report"
	"github.com/vmihailenco/msgpack/v5"
)

// diskSchemaVersion must be bumped whenever diskPayload or report.Snapshot
// change shape. Entries with another version are treated as misses.
const diskSchemaVersion uint16 = 1

// diskPayload is the on-disk envelope of a cached report.
type diskPayload struct {
	Schema   uint16          `json:"schema"`
	Snapshot report.Snapshot `json:"snapshot"`
}

// DiskCache stores report snapshots as msgpack files under
// <dir>/reports/<key>.mp. It is safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenDiskCache creates dir if needed and returns a cache rooted there.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(filepath.Join(dir, "reports"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key Key) string {
	return filepath.Join(c.dir, "reports", string(key)+".mp")
}

func newEncoder(f *os.File) *msgpack.Encoder {
	enc := msgpack.NewEncoder(f)
	enc.SetCustomStructTag("json")
	return enc
}

// Put writes snap under key, replacing any previous entry atomically.
func (c *DiskCache) Put(key Key, snap report.Snapshot) (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if err = newEncoder(f).Encode(&diskPayload{Schema: diskSchemaVersion, Snapshot: snap}); err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the snapshot stored under key. A missing entry, or one written
// with another schema version, is reported as a miss without error.
func (c *DiskCache) Get(key Key) (report.Snapshot, bool, error) {
	if c == nil {
		return report.Snapshot{}, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return report.Snapshot{}, false, nil
		}
		return report.Snapshot{}, false, err
	}
	defer f.Close()

	dec := msgpack.NewDecoder(f)
	dec.SetCustomStructTag("json")
	var payload diskPayload
	if err := dec.Decode(&payload); err != nil {
		return report.Snapshot{}, false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	if payload.Schema != diskSchemaVersion {
		logging.Debug("ignoring cache entry with stale schema", "key", key, "schema", payload.Schema)
		return report.Snapshot{}, false, nil
	}
	return payload.Snapshot, true, nil
}

// Delete removes the entry for key, if any.
func (c *DiskCache) Delete(key Key) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.Remove(c.pathFor(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// DropAll removes every cached report.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	reports := filepath.Join(c.dir, "reports")
	if err := os.RemoveAll(reports); err != nil {
		return err
	}
	return os.MkdirAll(reports, 0o755)
}
