package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCacheKey(t *testing.T) {
	key := CacheKey("https://lpi.oregonstate.edu/mic/vitamins/biotin")
	if !strings.HasPrefix(key, "citelink:v1:") {
		t.Errorf("Expected citelink prefix, got %s", key)
	}
	if key != CacheKey("https://lpi.oregonstate.edu/mic/vitamins/biotin") {
		t.Error("Expected stable keys")
	}
	if key == CacheKey("https://lpi.oregonstate.edu/mic/vitamins/folate") {
		t.Error("Expected distinct keys for distinct URLs")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := CacheKey("a")

	if err := c.Set(key, []byte("hello"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, ok := c.Get(key)
	if !ok || string(val) != "hello" {
		t.Fatalf("Expected hello, got %q (found=%v)", val, ok)
	}

	if _, err := os.Stat(c.path(key)); err != nil {
		t.Errorf("Expected entry file: %v", err)
	}
	if filepath.Dir(filepath.Dir(c.path(key))) != dir {
		t.Errorf("Expected sharded layout, got %s", c.path(key))
	}

	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("Expected deleting a missing entry to succeed, got %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("Expected miss after delete")
	}
}

func TestDiskCacheExpiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	key := CacheKey("b")
	if err := c.Set(key, []byte("x"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get(key); ok {
		t.Error("Expected expired entry to miss")
	}
	if _, err := os.Stat(c.path(key)); !os.IsNotExist(err) {
		t.Error("Expected expired entry to be removed")
	}
}

func TestDiskCacheClear(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	_ = c.Set(CacheKey("1"), []byte("1"), 0)
	_ = c.Set(CacheKey("2"), []byte("2"), 0)

	keep := filepath.Join(dir, "README")
	if err := os.WriteFile(keep, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok := c.Get(CacheKey("1")); ok {
		t.Error("Expected cleared entry to miss")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Error("Expected unrelated files to survive Clear")
	}

	if err := NewDiskCache(filepath.Join(dir, "missing"), time.Hour).Clear(); err != nil {
		t.Errorf("Expected Clear on missing dir to succeed, got %v", err)
	}
}

func TestLayeredCachePromotes(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Hour)
	memory := NewMemoryCache(time.Hour, time.Minute)
	c := &LayeredCache{memory: memory, disk: disk}

	key := CacheKey("page")
	if err := disk.Set(key, []byte("from disk"), 0); err != nil {
		t.Fatal(err)
	}

	val, ok := c.Get(key)
	if !ok || string(val) != "from disk" {
		t.Fatalf("Expected disk hit, got %q", val)
	}
	if memory.Len() != 1 {
		t.Errorf("Expected promotion to memory, got %d entries", memory.Len())
	}
}

func TestPageStore(t *testing.T) {
	store := NewPageStore(NewLayeredCache(time.Hour, t.TempDir(), time.Hour), 0)

	if _, ok := store.Get("https://example.org/a"); ok {
		t.Fatal("Expected empty store")
	}

	page := &Page{
		URL:      "https://example.org/a",
		FinalURL: "https://example.org/a/",
		Body:     []byte("<html></html>"),
	}
	if err := store.Put(page); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := store.Get("https://example.org/a")
	if !ok {
		t.Fatal("Expected cached page")
	}
	if got.FinalURL != page.FinalURL || string(got.Body) != "<html></html>" {
		t.Errorf("Unexpected page: %+v", got)
	}
}

func TestPageStoreDropsCorruptEntries(t *testing.T) {
	c := NewMemoryCache(time.Hour, time.Minute)
	store := NewPageStore(c, 0)
	_ = c.Set(CacheKey("https://example.org/b"), []byte("not json"), 0)

	if _, ok := store.Get("https://example.org/b"); ok {
		t.Error("Expected corrupt entry to miss")
	}
	if c.Len() != 0 {
		t.Error("Expected corrupt entry to be deleted")
	}
}
