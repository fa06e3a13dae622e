package cache

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestDiskCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache() error = %v", err)
	}

	value := bytes.Repeat([]byte{0, 0, 1, 0}, 4096)
	if err := dc.Put("k", value); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if s := dc.Stats(); s.Size >= int64(len(value)) {
		t.Errorf("stored size = %d, want compressed below %d", s.Size, len(value))
	}
	if err := dc.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache() error = %v", err)
	}
	got, ok := reopened.Get("k")
	if !ok || !bytes.Equal(got, value) {
		t.Errorf("Get() after reopen = %d bytes, %v", len(got), ok)
	}
}

func TestDiskCacheCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache() error = %v", err)
	}
	dc.Put("k", []byte("hello"))

	if err := os.WriteFile(dc.path("k"), []byte("not zstd"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := dc.Get("k"); ok {
		t.Error("Get() returned a corrupt entry")
	}
	if s := dc.Stats(); s.Items != 0 {
		t.Errorf("Items = %d, want corrupt entry dropped", s.Items)
	}
}

func TestDiskCacheRemoveOlderThan(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 1)
	if err != nil {
		t.Fatalf("NewDiskCache() error = %v", err)
	}
	dc.Put("old", []byte("a"))
	dc.index["old"].Created = time.Now().Add(-48 * time.Hour)
	dc.Put("new", []byte("b"))

	if n := dc.RemoveOlderThan(time.Now().Add(-24 * time.Hour)); n != 1 {
		t.Errorf("RemoveOlderThan() = %d, want 1", n)
	}
	if _, ok := dc.Get("new"); !ok {
		t.Error("new entry removed")
	}
}

func TestManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "pcm")
	m, err := NewManager(Config{
		MemoryCapacity:   8,
		DiskCapacity:     1 << 20,
		Dir:              dir,
		CompressionLevel: 3,
		TTL:              time.Hour,
	}, log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer m.Close()

	key := Key("Breathe in.", "calm", 1)
	if key == Key("Breathe in.", "calm", 1.5) {
		t.Error("Key() ignores rate")
	}

	big := bytes.Repeat([]byte("x"), 64)
	if err := m.Put(key, big); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok := m.Get(key)
	if !ok || !bytes.Equal(got, big) {
		t.Fatalf("Get() = %d bytes, %v, want disk hit", len(got), ok)
	}

	stats := m.Stats()
	if len(stats) != 2 || stats[1].Level != LevelDisk || stats[1].Hits != 1 {
		t.Errorf("Stats() = %+v", stats)
	}

	if err := m.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, ok := m.Get(key); ok {
		t.Error("Get() after Clear hit")
	}
}

func TestManagerMemoryOnly(t *testing.T) {
	m, err := NewManager(Config{MemoryCapacity: 1024}, log.New(io.Discard))
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	m.Put("k", []byte("v"))
	if _, ok := m.Get("k"); !ok {
		t.Error("Get() missed memory entry")
	}
	if len(m.Stats()) != 1 {
		t.Errorf("Stats() = %d tiers, want 1", len(m.Stats()))
	}
}
