package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// DiskCache is the persistent tier with optional zstd compression. Each
// clip is one file named by its key; an in-memory index tracks sizes and
// access order for eviction.
type DiskCache struct {
	basePath string
	capacity int64
	size     int64

	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder

	index map[string]*diskEntry

	mu    sync.Mutex
	stats Stats
}

type diskEntry struct {
	path       string
	size       int64 // Size on disk, compressed when compression is on
	lastAccess time.Time
}

// NewDiskCache creates a disk cache rooted at basePath.
func NewDiskCache(basePath string, capacity int64, compression int) (*DiskCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		basePath: basePath,
		capacity: capacity,
		compress: compression > 0,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}

	if dc.compress {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compression)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		dc.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
	}

	dc.loadIndex()
	return dc, nil
}

// Get retrieves and decompresses a clip from disk.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.path)
	if err != nil {
		// The file vanished underneath us; drop the index entry.
		delete(dc.index, key)
		dc.size -= entry.size
		dc.stats.Misses++
		return nil, false
	}

	if dc.compress {
		decoded, err := dc.decoder.DecodeAll(data, nil)
		if err != nil {
			delete(dc.index, key)
			dc.size -= entry.size
			_ = os.Remove(entry.path)
			dc.stats.Misses++
			return nil, false
		}
		data = decoded
	}

	entry.lastAccess = time.Now()
	dc.stats.Hits++
	dc.stats.LastAccess = entry.lastAccess
	return data, true
}

// Put compresses and writes a clip to disk, evicting old entries to stay
// under capacity.
func (dc *DiskCache) Put(key string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	data := value
	if dc.compress {
		data = dc.encoder.EncodeAll(value, nil)
	}
	if int64(len(data)) > dc.capacity {
		return ErrItemTooLarge
	}

	path := filepath.Join(dc.basePath, key+dc.extension())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	if old, ok := dc.index[key]; ok {
		dc.size -= old.size
	}
	dc.index[key] = &diskEntry{path: path, size: int64(len(data)), lastAccess: time.Now()}
	dc.size += int64(len(data))
	dc.stats.ItemCount = int64(len(dc.index))

	for dc.size > dc.capacity {
		dc.evictOldest()
	}
	dc.stats.Size = dc.size
	return nil
}

// Stats returns a copy of the counters.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	s := dc.stats
	s.Size = dc.size
	s.ItemCount = int64(len(dc.index))
	return s
}

// Close releases the compressor resources.
func (dc *DiskCache) Close() error {
	if dc.compress {
		dc.encoder.Close()
		dc.decoder.Close()
	}
	return nil
}

func (dc *DiskCache) extension() string {
	if dc.compress {
		return ".zst"
	}
	return ".pcm"
}

// loadIndex rebuilds the index from the files already on disk. Errors are
// non-fatal: an unreadable directory just means an empty cache.
func (dc *DiskCache) loadIndex() {
	entries, err := os.ReadDir(dc.basePath)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".zst" && ext != ".pcm" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		key := name[:len(name)-len(ext)]
		dc.index[key] = &diskEntry{
			path:       filepath.Join(dc.basePath, name),
			size:       info.Size(),
			lastAccess: info.ModTime(),
		}
		dc.size += info.Size()
	}
	dc.stats.ItemCount = int64(len(dc.index))
	dc.stats.Size = dc.size
}

// evictOldest removes the least recently accessed entry. Caller holds the
// lock.
func (dc *DiskCache) evictOldest() {
	var oldestKey string
	var oldest *diskEntry
	for key, entry := range dc.index {
		if oldest == nil || entry.lastAccess.Before(oldest.lastAccess) {
			oldestKey = key
			oldest = entry
		}
	}
	if oldest == nil {
		return
	}
	_ = os.Remove(oldest.path)
	delete(dc.index, oldestKey)
	dc.size -= oldest.size
	dc.stats.Evictions++
	dc.stats.LastEvict = time.Now()
}
