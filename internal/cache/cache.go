// Package cache stores fetched documents in memory and on disk.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

const keyPrefix = "citelink:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey generates a cache key from a document location
func CacheKey(location string) string {
	hash := sha256.Sum256([]byte(location))
	return keyPrefix + hex.EncodeToString(hash[:])
}

// Page is one cached document body
type Page struct {
	URL         string    `json:"url"`
	FinalURL    string    `json:"final_url"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// PageStore keeps fetched pages in a Cache, keyed by requested URL
type PageStore struct {
	cache Cache
	ttl   time.Duration
}

// NewPageStore creates a page store over c. A zero ttl uses the cache default.
func NewPageStore(c Cache, ttl time.Duration) *PageStore {
	return &PageStore{cache: c, ttl: ttl}
}

// Get returns the cached page for url
func (s *PageStore) Get(url string) (*Page, bool) {
	data, ok := s.cache.Get(CacheKey(url))
	if !ok {
		return nil, false
	}

	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		_ = s.cache.Delete(CacheKey(url))
		return nil, false
	}
	return &page, true
}

// Put stores a page under its requested URL
func (s *PageStore) Put(page *Page) error {
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("marshal page: %w", err)
	}
	if err := s.cache.Set(CacheKey(page.URL), data, s.ttl); err != nil {
		return fmt.Errorf("store page: %w", err)
	}
	return nil
}
