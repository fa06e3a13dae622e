package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Manager checks memory first, then disk, promoting disk hits.
type Manager struct {
	memory *MemoryCache
	disk   *DiskCache
	ttl    time.Duration
	logger *log.Logger
}

// NewManager opens both tiers. A zero disk capacity or empty Dir disables
// the disk tier. Entries older than TTL are pruned on open.
func NewManager(cfg Config, logger *log.Logger) (*Manager, error) {
	m := &Manager{
		memory: NewMemoryCache(cfg.MemoryCapacity),
		ttl:    cfg.TTL,
		logger: logger,
	}
	if cfg.Dir != "" && cfg.DiskCapacity > 0 {
		disk, err := NewDiskCache(cfg.Dir, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("open disk cache: %w", err)
		}
		m.disk = disk
		if cfg.TTL > 0 {
			if n := disk.RemoveOlderThan(time.Now().Add(-cfg.TTL)); n > 0 {
				logger.Debug("pruned cache", "entries", n, "ttl", cfg.TTL)
			}
		}
	}
	return m, nil
}

// Key derives a cache key from everything that changes synthesized audio.
func Key(text, voice string, rate float64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%.2f", text, voice, rate)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached value for key.
func (m *Manager) Get(key string) ([]byte, bool) {
	if v, ok := m.memory.Get(key); ok {
		return v, true
	}
	if m.disk == nil {
		return nil, false
	}
	v, ok := m.disk.Get(key)
	if ok {
		if err := m.memory.Put(key, v); err != nil {
			m.logger.Debug("not promoting cache entry", "err", err)
		}
	}
	return v, ok
}

// Put stores value in both tiers. An item too large for memory is still
// written to disk.
func (m *Manager) Put(key string, value []byte) error {
	if err := m.memory.Put(key, value); err != nil {
		m.logger.Debug("memory cache rejected entry", "bytes", len(value), "err", err)
	}
	if m.disk == nil {
		return nil
	}
	return m.disk.Put(key, value)
}

// Delete removes key from both tiers.
func (m *Manager) Delete(key string) error {
	_ = m.memory.Delete(key)
	if m.disk == nil {
		return nil
	}
	return m.disk.Delete(key)
}

// Clear empties both tiers.
func (m *Manager) Clear() error {
	_ = m.memory.Clear()
	if m.disk == nil {
		return nil
	}
	return m.disk.Clear()
}

// Stats returns counters for each open tier.
func (m *Manager) Stats() []Stats {
	stats := []Stats{m.memory.Stats()}
	if m.disk != nil {
		stats = append(stats, m.disk.Stats())
	}
	return stats
}

// Close saves the disk index.
func (m *Manager) Close() error {
	if m.disk == nil {
		return nil
	}
	return m.disk.Close()
}
