package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/newhook/harvest/internal/logging"
	"github.com/newhook/harvest/internal/report"
)

// Key identifies one cached parse result: the content digest of the input
// plus everything about the tool that changes its output.
type Key string

// NewKey derives a cache key from an input digest, a tool id and a variant
// string describing the tool configuration (pattern, cleaning).
func NewKey(digest [32]byte, toolID, variant string) Key {
	h := sha256.New()
	h.Write(digest[:])
	h.Write([]byte{0})
	h.Write([]byte(toolID))
	h.Write([]byte{0})
	h.Write([]byte(variant))
	return Key(hex.EncodeToString(h.Sum(nil)))
}

// ReportCache looks reports up in memory first, then on disk. Disk hits are
// promoted to memory.
type ReportCache struct {
	mem  CacheManager[Key, report.Snapshot]
	disk *DiskCache
	ttl  time.Duration
}

// NewReportCache returns a cache whose memory entries live for ttl. disk may
// be nil for a memory-only cache.
func NewReportCache(ttl time.Duration, disk *DiskCache) *ReportCache {
	return &ReportCache{
		mem:  NewInMemoryCacheManager[Key, report.Snapshot]("reports", ttl, DefaultCleanupInterval),
		disk: disk,
		ttl:  ttl,
	}
}

// NewReportCacheWith builds a ReportCache on an existing memory cache.
func NewReportCacheWith(mem CacheManager[Key, report.Snapshot], ttl time.Duration, disk *DiskCache) *ReportCache {
	return &ReportCache{mem: mem, disk: disk, ttl: ttl}
}

// Get returns the cached report for key, renamed to name: identical content
// read under another name yields the same issues.
func (c *ReportCache) Get(ctx context.Context, key Key, name string) (*report.Report, bool) {
	snap, ok := c.mem.GetWithRefresh(ctx, key, c.ttl)
	if !ok {
		var err error
		snap, ok, err = c.disk.Get(key)
		if err != nil {
			logging.WarnContext(ctx, "failed to read report cache", "key", key, "error", err)
			return nil, false
		}
		if !ok {
			return nil, false
		}
		c.mem.Set(ctx, key, snap, c.ttl)
	}
	return report.FromSnapshot(rename(snap, name)), true
}

// Put stores rep under key. Cancelled reports are partial and never cached.
func (c *ReportCache) Put(ctx context.Context, key Key, rep *report.Report) {
	if rep == nil || rep.Cancelled() {
		return
	}
	snap := rep.Snapshot()
	c.mem.Set(ctx, key, snap, c.ttl)
	if err := c.disk.Put(key, snap); err != nil {
		logging.WarnContext(ctx, "failed to write report cache", "key", key, "error", err)
	}
}

// Invalidate drops key from both tiers.
func (c *ReportCache) Invalidate(ctx context.Context, key Key) error {
	if err := c.mem.Delete(ctx, key); err != nil {
		return err
	}
	return c.disk.Delete(key)
}

// Clear drops every cached report.
func (c *ReportCache) Clear(ctx context.Context) error {
	if err := c.mem.Flush(ctx); err != nil {
		return err
	}
	return c.disk.DropAll()
}

func rename(snap report.Snapshot, name string) report.Snapshot {
	if snap.Name == name {
		return snap
	}
	snap.Name = name
	errs := make([]report.ErrorEntry, len(snap.Errors))
	for i, e := range snap.Errors {
		e.Source = name
		errs[i] = e
	}
	snap.Errors = errs
	return snap
}
