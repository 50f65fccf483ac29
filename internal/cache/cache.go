// Package cache stores finished reports keyed by topic, window, and run mode.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/azure/last30days/internal/models"
	"github.com/azure/last30days/internal/storage"
	"github.com/sirupsen/logrus"
)

// DefaultTTL is how long a cached report stays fresh.
const DefaultTTL = 24 * time.Hour

const prefix = "reports/"

// ErrMiss is returned by Load when no fresh entry exists.
var ErrMiss = errors.New("cache miss")

// Key derives the cache key for a run.
func Key(topic, from, to, modeDepth string) string {
	sum := sha256.Sum256([]byte(strings.Join([]string{topic, from, to, modeDepth}, "|")))
	return hex.EncodeToString(sum[:])[:16]
}

type entry struct {
	SavedAt time.Time      `json:"saved_at"`
	Report  *models.Report `json:"report"`
}

// Cache is a TTL cache of reports over any storage backend.
type Cache struct {
	store storage.StorageInterface
	ttl   time.Duration
	now   func() time.Time
}

// New creates a cache. A non-positive ttl means DefaultTTL.
func New(store storage.StorageInterface, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, now: time.Now}
}

// Load returns the cached report for key if it is younger than the TTL.
func (c *Cache) Load(key string) (*models.Report, error) {
	report, savedAt, err := c.Get(key)
	if err != nil {
		return nil, err
	}
	if age := c.now().Sub(savedAt); age > c.ttl {
		logrus.Debugf("Cache entry %s expired (%s old)", key, age.Round(time.Second))
		return nil, ErrMiss
	}
	return report, nil
}

// Get returns the entry for key regardless of age.
func (c *Cache) Get(key string) (*models.Report, time.Time, error) {
	data, err := c.store.Retrieve(prefix + key + ".json")
	if errors.Is(err, storage.ErrNotFound) {
		return nil, time.Time{}, ErrMiss
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Report == nil {
		logrus.Warnf("Ignoring unreadable cache entry %s", key)
		return nil, time.Time{}, ErrMiss
	}
	return e.Report, e.SavedAt, nil
}

// Save stores the report under key, stamped with the current time.
func (c *Cache) Save(key string, report *models.Report) error {
	data, err := json.MarshalIndent(entry{SavedAt: c.now().UTC(), Report: report}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	if err := c.store.Store(prefix+key+".json", data); err != nil {
		return fmt.Errorf("failed to save cache entry %s: %w", key, err)
	}
	return nil
}

// Keys lists the keys of every stored entry.
func (c *Cache) Keys() ([]string, error) {
	names, err := c.store.List(prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"))
	}
	return keys, nil
}
