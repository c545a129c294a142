// Package cache stores synthesized audio clips across runs. It keeps a
// small LRU tier in memory for the clips the current run touches and a
// zstd-compressed disk tier so repeated runs over the same text skip
// rendering entirely.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// Common errors for cache operations.
var (
	// ErrItemTooLarge is returned when a clip exceeds the tier capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrClosed is returned when the store has been closed.
	ErrClosed = errors.New("cache is closed")
)

// Stats holds cache performance counters.
type Stats struct {
	Capacity  int64 // Maximum capacity in bytes
	Size      int64 // Current size in bytes
	ItemCount int64 // Number of items

	Hits      int64
	Misses    int64
	Evictions int64

	LastAccess time.Time
	LastEvict  time.Time
}

// HitRate returns hits over total lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Config holds configuration for a clip store.
type Config struct {
	MemoryCapacity int64  // Bytes held in the memory tier
	DiskCapacity   int64  // Bytes held on disk
	DiskPath       string // Directory for the disk tier; empty disables it
	Compression    int    // Zstd level for disk entries (0 disables)
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity: 32 * 1024 * 1024,
		DiskCapacity:   256 * 1024 * 1024,
		Compression:    3,
	}
}

// ClipKey derives the cache key for a rendered clip. Identity is the
// source text plus the voice parameters that shaped the rendering.
func ClipKey(text, voiceID string, baseHz float64, wordsMin int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%.2f\x00%d", text, voiceID, baseHz, wordsMin)
	return hex.EncodeToString(h.Sum(nil))
}

// Store layers the memory tier over the disk tier. Disk hits are promoted
// to memory for faster repeat access within the run.
type Store struct {
	memory *MemoryCache
	disk   *DiskCache // nil when the disk tier is disabled
}

// NewStore creates a store from the configuration.
func NewStore(config Config) (*Store, error) {
	s := &Store{memory: NewMemoryCache(config.MemoryCapacity)}
	if config.DiskPath != "" {
		disk, err := NewDiskCache(config.DiskPath, config.DiskCapacity, config.Compression)
		if err != nil {
			return nil, fmt.Errorf("disk cache: %w", err)
		}
		s.disk = disk
	}
	return s, nil
}

// Get retrieves a clip, checking memory before disk.
func (s *Store) Get(key string) ([]byte, bool) {
	if data, ok := s.memory.Get(key); ok {
		return data, true
	}
	if s.disk == nil {
		return nil, false
	}
	data, ok := s.disk.Get(key)
	if !ok {
		return nil, false
	}
	_ = s.memory.Put(key, data) // promotion is best effort
	return data, true
}

// Put stores a clip in both tiers.
func (s *Store) Put(key string, data []byte) error {
	if err := s.memory.Put(key, data); err != nil && !errors.Is(err, ErrItemTooLarge) {
		return err
	}
	if s.disk != nil {
		return s.disk.Put(key, data)
	}
	return nil
}

// Stats returns per-tier counters, memory first.
func (s *Store) Stats() (Stats, Stats) {
	var diskStats Stats
	if s.disk != nil {
		diskStats = s.disk.Stats()
	}
	return s.memory.Stats(), diskStats
}

// Close releases the disk tier resources.
func (s *Store) Close() error {
	if s.disk != nil {
		return s.disk.Close()
	}
	return nil
}
