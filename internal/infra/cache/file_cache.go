// Package cache implements the disk-backed content cache.
//
// Each entry is one JSON file named after the SHA-256 of the normalized
// source URL. Entries expire after a TTL chosen by class, and the cache
// evicts strictly oldest-first when it exceeds its entry count or total
// size. Corrupt files are deleted on sight and reported as misses.
package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"webintel/internal/domain/entity"
	"webintel/internal/observability/metrics"
)

const entrySuffix = ".json"

// Entry is the on-disk record. It is never mutated in place; Set replaces
// the whole file.
type Entry struct {
	SourceURL      string          `json:"source_url"`
	Payload        entity.Result   `json:"payload"`
	CreatedAt      time.Time       `json:"created_at"`
	TTLSeconds     int64           `json:"ttl_seconds"`
	TTLClass       entity.TTLClass `json:"ttl_class"`
	SourceStrategy string          `json:"source_strategy,omitempty"`
}

// ExpiresAt returns the instant the entry stops being served.
func (e *Entry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(time.Duration(e.TTLSeconds) * time.Second)
}

// Expired reports whether the entry is past its TTL at now.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt())
}

func (e *Entry) valid() bool {
	return e.SourceURL != "" && !e.CreatedAt.IsZero() && e.TTLSeconds > 0
}

// Stats is a point-in-time view of the cache directory.
type Stats struct {
	Enabled        bool             `json:"enabled"`
	CacheDir       string           `json:"cache_dir"`
	TotalEntries   int              `json:"total_entries"`
	TotalSizeBytes int64            `json:"total_size_bytes"`
	TotalSizeMB    float64          `json:"total_size_mb"`
	ExpiredCount   int              `json:"expired_count"`
	ValidEntries   int              `json:"valid_entries"`
	ByFetcher      map[string]int   `json:"by_fetcher"`
	MaxEntries     int              `json:"max_entries"`
	MaxSizeMB      int              `json:"max_size_mb"`
	TTLs           map[string]int64 `json:"ttls"`
	OldestEntry    *time.Time       `json:"oldest_entry,omitempty"`
	NewestEntry    *time.Time       `json:"newest_entry,omitempty"`
}

// FileCache is the disk-backed cache. A single mutex serializes every
// operation; no network I/O happens under it.
type FileCache struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// Option configures a FileCache.
type Option func(*FileCache)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *FileCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *FileCache) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates the cache and its directory. A directory that cannot be
// created is logged; later writes then fail and report false.
func New(cfg Config, opts ...Option) *FileCache {
	c := &FileCache{
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.Enabled {
		if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
			c.logger.Warn("cannot create cache directory",
				slog.String("dir", cfg.Dir),
				slog.Any("error", err))
		}
	}
	return c
}

// Config returns the cache configuration.
func (c *FileCache) Config() Config {
	return c.cfg
}

func (c *FileCache) entryPath(url string) string {
	return filepath.Join(c.cfg.Dir, Key(url)+entrySuffix)
}

// Get returns the cached payload for url. Expired and corrupt entries are
// deleted and reported as misses.
func (c *FileCache) Get(url string) (*entity.Result, bool) {
	if !c.cfg.Enabled {
		return nil, false
	}

	path := c.entryPath(url)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, err := readEntry(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		metrics.RecordCacheOp("get", "miss")
		return nil, false
	case errors.Is(err, errCorrupt):
		c.logger.Warn("corrupt cache entry removed",
			slog.String("url", url),
			slog.Any("error", err))
		c.remove(path)
		metrics.RecordCacheEviction("corrupt", 1)
		metrics.RecordCacheOp("get", "corrupt")
		return nil, false
	case err != nil:
		c.logger.Warn("cannot read cache entry",
			slog.String("url", url),
			slog.Any("error", err))
		metrics.RecordCacheOp("get", "error")
		return nil, false
	}

	now := c.now()
	if entry.Expired(now) {
		c.remove(path)
		c.logger.Debug("cache entry expired",
			slog.String("url", url),
			slog.Duration("age", now.Sub(entry.CreatedAt)),
			slog.Int64("ttl_seconds", entry.TTLSeconds))
		metrics.RecordCacheEviction("expired", 1)
		metrics.RecordCacheOp("get", "expired")
		return nil, false
	}

	c.logger.Debug("cache hit",
		slog.String("url", url),
		slog.Duration("age", now.Sub(entry.CreatedAt)),
		slog.String("fetcher", entry.SourceStrategy))
	metrics.RecordCacheOp("get", "hit")

	payload := entry.Payload
	return &payload, true
}

// Set stores payload under url. It returns false without writing when the
// cache is disabled, the payload is unsuccessful or the serialized entry
// exceeds the per-entry cap.
func (c *FileCache) Set(url string, payload entity.Result, class entity.TTLClass, source string) bool {
	if !c.cfg.Enabled || !payload.Success {
		return false
	}
	if class == "" {
		class = entity.TTLContent
	}

	path := c.entryPath(url)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := Entry{
		SourceURL:      url,
		Payload:        payload,
		CreatedAt:      c.now().UTC(),
		TTLSeconds:     int64(c.cfg.TTL(class) / time.Second),
		TTLClass:       class,
		SourceStrategy: source,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("cannot serialize cache entry",
			slog.String("url", url),
			slog.Any("error", err))
		metrics.RecordCacheOp("set", "error")
		return false
	}
	if len(data) > maxEntryBytes {
		c.logger.Warn("cache entry too large, skipping",
			slog.String("url", url),
			slog.Int("size", len(data)))
		metrics.RecordCacheOp("set", "too_large")
		return false
	}

	c.enforceLimits()

	tmp := strings.TrimSuffix(path, entrySuffix) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		c.logger.Warn("cannot write cache entry",
			slog.String("url", url),
			slog.Any("error", err))
		metrics.RecordCacheOp("set", "error")
		return false
	}
	if err := os.Rename(tmp, path); err != nil {
		c.remove(tmp)
		c.logger.Warn("cannot commit cache entry",
			slog.String("url", url),
			slog.Any("error", err))
		metrics.RecordCacheOp("set", "error")
		return false
	}

	c.logger.Debug("cache set",
		slog.String("url", url),
		slog.String("ttl_class", string(class)),
		slog.Int64("ttl_seconds", entry.TTLSeconds),
		slog.Int("size", len(data)),
		slog.String("fetcher", source))
	metrics.RecordCacheOp("set", "ok")
	return true
}

// Invalidate removes the entry for url and reports whether it existed.
func (c *FileCache) Invalidate(url string) bool {
	path := c.entryPath(url)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return false
	}
	c.remove(path)
	c.logger.Debug("cache invalidated", slog.String("url", url))
	metrics.RecordCacheEviction("invalidated", 1)
	return true
}

// Clear removes every entry and returns how many were removed.
func (c *FileCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	paths, err := c.listPaths()
	if err != nil {
		c.logger.Warn("cannot list cache directory", slog.Any("error", err))
		return 0
	}
	for _, p := range paths {
		c.remove(p)
	}
	c.logger.Info("cache cleared", slog.Int("removed", len(paths)))
	metrics.RecordCacheEviction("cleared", len(paths))
	return len(paths)
}

// Cleanup removes expired and corrupt entries and returns how many were
// removed.
func (c *FileCache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.purgeExpired()
}

// Stats scans the cache directory. Corrupt entries count as expired.
func (c *FileCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Stats{
		Enabled:    c.cfg.Enabled,
		CacheDir:   c.cfg.Dir,
		ByFetcher:  map[string]int{},
		MaxEntries: c.cfg.MaxEntries,
		MaxSizeMB:  c.cfg.MaxSizeMB,
		TTLs: map[string]int64{
			string(entity.TTLMetadata): int64(c.cfg.TTLMetadata / time.Second),
			string(entity.TTLContent):  int64(c.cfg.TTLContent / time.Second),
		},
	}

	paths, err := c.listPaths()
	if err != nil {
		return st
	}

	now := c.now()
	for _, p := range paths {
		st.TotalEntries++
		if info, err := os.Stat(p); err == nil {
			st.TotalSizeBytes += info.Size()
		}

		entry, err := readEntry(p)
		if err != nil {
			st.ExpiredCount++
			continue
		}
		if entry.Expired(now) {
			st.ExpiredCount++
		}

		fetcher := entry.SourceStrategy
		if fetcher == "" {
			fetcher = "unknown"
		}
		st.ByFetcher[fetcher]++

		created := entry.CreatedAt
		if st.OldestEntry == nil || created.Before(*st.OldestEntry) {
			st.OldestEntry = &created
		}
		if st.NewestEntry == nil || created.After(*st.NewestEntry) {
			st.NewestEntry = &created
		}
	}

	st.ValidEntries = st.TotalEntries - st.ExpiredCount
	st.TotalSizeMB = math.Round(float64(st.TotalSizeBytes)/(1024*1024)*100) / 100
	return st
}

// enforceLimits runs before every write: purge expired entries, evict the
// oldest until there is room for one more entry, then evict the oldest
// until the directory fits the size budget. Caller holds mu.
func (c *FileCache) enforceLimits() {
	c.purgeExpired()

	entries := c.sortedEntries()
	evicted := 0
	for len(entries) > 0 && len(entries) >= c.cfg.MaxEntries {
		c.remove(entries[0].path)
		entries = entries[1:]
		evicted++
	}
	if evicted > 0 {
		c.logger.Debug("evicted oldest cache entries",
			slog.Int("count", evicted),
			slog.Int("max_entries", c.cfg.MaxEntries))
		metrics.RecordCacheEviction("max_entries", evicted)
	}

	maxBytes := int64(c.cfg.MaxSizeMB) * 1024 * 1024
	var total int64
	for _, e := range entries {
		total += e.size
	}

	evicted = 0
	for total > maxBytes && len(entries) > 0 {
		c.remove(entries[0].path)
		total -= entries[0].size
		entries = entries[1:]
		evicted++
	}
	if evicted > 0 {
		c.logger.Debug("evicted cache entries for size",
			slog.Int("count", evicted),
			slog.Int64("total_bytes", total),
			slog.Int("max_size_mb", c.cfg.MaxSizeMB))
		metrics.RecordCacheEviction("max_size", evicted)
	}
}

// purgeExpired removes expired and corrupt entries. Caller holds mu.
func (c *FileCache) purgeExpired() int {
	paths, err := c.listPaths()
	if err != nil {
		return 0
	}

	now := c.now()
	removed := 0
	for _, p := range paths {
		entry, err := readEntry(p)
		switch {
		case errors.Is(err, errCorrupt):
		case err != nil:
			continue
		case !entry.Expired(now):
			continue
		}
		c.remove(p)
		removed++
	}

	if removed > 0 {
		c.logger.Debug("removed expired cache entries", slog.Int("count", removed))
		metrics.RecordCacheEviction("expired", removed)
	}
	return removed
}

type sortedEntry struct {
	path    string
	created time.Time
	size    int64
}

// sortedEntries lists entries oldest first. Unreadable entries sort first
// so they are evicted before any valid one.
func (c *FileCache) sortedEntries() []sortedEntry {
	paths, err := c.listPaths()
	if err != nil {
		return nil
	}

	out := make([]sortedEntry, 0, len(paths))
	for _, p := range paths {
		se := sortedEntry{path: p}
		if info, err := os.Stat(p); err == nil {
			se.size = info.Size()
		}
		if entry, err := readEntry(p); err == nil {
			se.created = entry.CreatedAt
		}
		out = append(out, se)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].created.Before(out[j].created)
	})
	return out
}

func (c *FileCache) listPaths() ([]string, error) {
	dirEntries, err := os.ReadDir(c.cfg.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	paths := make([]string, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), entrySuffix) {
			continue
		}
		paths = append(paths, filepath.Join(c.cfg.Dir, de.Name()))
	}
	return paths, nil
}

func (c *FileCache) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		c.logger.Debug("cannot remove cache file",
			slog.String("path", path),
			slog.Any("error", err))
	}
}

var errCorrupt = errors.New("corrupt cache entry")

func readEntry(path string) (*Entry, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is built from a hex digest
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, errors.Join(errCorrupt, err)
	}
	if !entry.valid() {
		return nil, errCorrupt
	}
	return &entry, nil
}
