package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/ppiankov/clausewatch/internal/model"
)

// Cache stores opaque values by key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key for a kind of entry ("doc", ...) and a URL
func Key(kind, url string) string {
	hash := sha256.Sum256([]byte(url))
	return "clausewatch:v1:" + kind + ":" + hex.EncodeToString(hash[:])
}

// Open builds the cache described by cfg. A disabled cache stores nothing.
func Open(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return Noop{}
	}
	return NewLayeredCache(cfg.MemoryTTL, cfg.Dir, cfg.DiskTTL)
}

// Noop is a cache that never holds anything
type Noop struct{}

func (Noop) Get(string) ([]byte, bool) { return nil, false }

func (Noop) Set(string, []byte, time.Duration) error { return nil }

func (Noop) Delete(string) error { return nil }

func (Noop) Clear() error { return nil }

// Document is a fetched document as stored in the cache
type Document struct {
	URL         string    `json:"url"`
	FinalURL    string    `json:"final_url,omitempty"` // After redirects
	ContentType string    `json:"content_type"`
	Body        []byte    `json:"body"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Documents stores fetched documents keyed by URL on top of a byte cache
type Documents struct {
	cache Cache
}

// NewDocuments wraps c
func NewDocuments(c Cache) *Documents {
	return &Documents{cache: c}
}

// Load returns the cached document for url
func (d *Documents) Load(url string) (*Document, bool) {
	raw, ok := d.cache.Get(Key("doc", url))
	if !ok {
		return nil, false
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	return &doc, true
}

// Store caches doc under its URL. A zero ttl uses each layer's default.
func (d *Documents) Store(doc *Document, ttl time.Duration) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return d.cache.Set(Key("doc", doc.URL), raw, ttl)
}
