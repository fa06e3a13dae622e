package cache

import (
	"errors"
	"time"
)

var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCorrupted is returned when a stored entry cannot be decoded.
	ErrCorrupted = errors.New("cache data corrupted")
)

// Level names a cache tier.
type Level int

const (
	LevelMemory Level = iota
	LevelDisk
)

func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	default:
		return "unknown"
	}
}

// Stats holds counters for one tier.
type Stats struct {
	Level     Level
	Capacity  int64
	Size      int64
	Items     int64
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	if s.Hits+s.Misses == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Hits+s.Misses)
}

// Config sizes both tiers.
type Config struct {
	MemoryCapacity   int64
	DiskCapacity     int64
	Dir              string
	CompressionLevel int
	TTL              time.Duration
}

// Cache is implemented by both tiers.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Delete(key string) error
	Clear() error
	Stats() Stats
}
