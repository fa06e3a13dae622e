package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const indexFile = "cache.index"

// DiskCache stores entries as zstd-compressed files under a directory and
// keeps a gob index next to them.
type DiskCache struct {
	dir      string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskEntry

	mu    sync.Mutex
	stats Stats
}

type diskEntry struct {
	Key        string
	File       string
	Size       int64
	Original   int64
	Created    time.Time
	LastAccess time.Time
}

// NewDiskCache opens or creates a disk cache in dir. A missing or
// unreadable index starts the cache empty.
func NewDiskCache(dir string, capacity int64, level int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if level <= 0 {
		level = 3
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		encoder:  enc,
		decoder:  dec,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Level: LevelDisk, Capacity: capacity},
	}
	if err := dc.loadIndex(); err != nil {
		dc.index = make(map[string]*diskEntry)
	}
	for _, e := range dc.index {
		dc.size += e.Size
	}
	return dc, nil
}

// Dir returns the cache directory.
func (dc *DiskCache) Dir() string {
	return dc.dir
}

// Get reads and decompresses the entry for key. Unreadable entries are
// dropped and reported as misses.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := dc.read(entry)
	if err != nil {
		dc.drop(key)
		dc.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	dc.stats.Hits++
	return data, true
}

// Put compresses value and writes it, evicting least recently used
// entries to stay under capacity.
func (dc *DiskCache) Put(key string, value []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	data := dc.encoder.EncodeAll(value, nil)
	n := int64(len(data))
	if n > dc.capacity {
		return ErrItemTooLarge
	}

	if _, ok := dc.index[key]; ok {
		dc.drop(key)
	}
	for dc.size+n > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	path := dc.path(key)
	if err := writeAtomic(path, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	}); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now()
	dc.index[key] = &diskEntry{
		Key:        key,
		File:       filepath.Base(path),
		Size:       n,
		Original:   int64(len(value)),
		Created:    now,
		LastAccess: now,
	}
	dc.size += n
	return nil
}

// Delete removes key if present.
func (dc *DiskCache) Delete(key string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	dc.drop(key)
	return nil
}

// Clear removes every entry and saves an empty index.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for key := range dc.index {
		dc.drop(key)
	}
	dc.size = 0
	return dc.saveIndex()
}

// Stats returns a copy of the counters.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	s := dc.stats
	s.Size = dc.size
	s.Items = int64(len(dc.index))
	return s
}

// RemoveOlderThan drops entries created before cutoff and returns how many
// were removed.
func (dc *DiskCache) RemoveOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	removed := 0
	for key, e := range dc.index {
		if e.Created.Before(cutoff) {
			dc.drop(key)
			removed++
		}
	}
	return removed
}

// Close saves the index.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	dc.encoder.Close()
	dc.decoder.Close()
	return dc.saveIndex()
}

func (dc *DiskCache) read(e *diskEntry) ([]byte, error) {
	raw, err := os.ReadFile(filepath.Join(dc.dir, e.File))
	if err != nil {
		return nil, err
	}
	data, err := dc.decoder.DecodeAll(raw, nil)
	if err != nil {
		return nil, errors.Join(ErrCorrupted, err)
	}
	return data, nil
}

// drop must be called with the lock held.
func (dc *DiskCache) drop(key string) {
	e, ok := dc.index[key]
	if !ok {
		return
	}
	_ = os.Remove(filepath.Join(dc.dir, e.File))
	dc.size -= e.Size
	delete(dc.index, key)
}

func (dc *DiskCache) evictOldest() {
	entries := make([]*diskEntry, 0, len(dc.index))
	for _, e := range dc.index {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].LastAccess.Before(entries[j].LastAccess)
	})
	if len(entries) > 0 {
		dc.drop(entries[0].Key)
		dc.stats.Evictions++
	}
}

func (dc *DiskCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(dc.dir, hex.EncodeToString(sum[:16])+".pcm.zst")
}

func (dc *DiskCache) loadIndex() error {
	f, err := os.Open(filepath.Join(dc.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(&dc.index)
}

func (dc *DiskCache) saveIndex() error {
	return writeAtomic(filepath.Join(dc.dir, indexFile), func(f *os.File) error {
		return gob.NewEncoder(f).Encode(dc.index)
	})
}

// writeAtomic writes through a temp file and renames it into place.
func writeAtomic(path string, write func(*os.File) error) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = write(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
