package recurrence

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/samber/mo"
)

// CacheEntry represents a cached recurrence result
type CacheEntry struct {
	Result     any // bool for HasOccurrenceInRange, []TimeOccurrence for Expand
	ExpiresAt  time.Time
	AccessedAt time.Time
}

// RecurrenceCache caches expansion and range-check results. Expired entries
// are dropped when they are read and by the sweep Set runs once per
// CleanupInterval; there is no background goroutine.
type RecurrenceCache struct {
	entries         map[string]*CacheEntry
	mutex           sync.Mutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	lastCleanup     time.Time
	now             func() time.Time
}

// CacheConfig holds configuration for the recurrence cache
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries kept
	CleanupInterval time.Duration // Minimum time between sweeps of expired entries
}

// DefaultCacheConfig provides sensible defaults for recurrence caching
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewRecurrenceCache creates a new recurrence cache with the given configuration
func NewRecurrenceCache(config CacheConfig) *RecurrenceCache {
	return &RecurrenceCache{
		entries:         make(map[string]*CacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		now:             time.Now,
	}
}

// generateCacheKey hashes every input that affects a result.
func (c *RecurrenceCache) generateCacheKey(operation string, masterStart, masterEnd time.Time, recInfo RecurrenceInfo, rangeStart, rangeEnd time.Time) string {
	hasher := sha256.New()
	write := func(s string) {
		hasher.Write([]byte(s))
		hasher.Write([]byte{0})
	}

	write(operation)
	write(masterStart.Format(time.RFC3339Nano))
	write(masterStart.Location().String())
	write(masterEnd.Format(time.RFC3339Nano))
	write(rangeStart.Format(time.RFC3339Nano))
	write(rangeEnd.Format(time.RFC3339Nano))

	write(recInfo.RRULE)
	write(recInfo.TZID)
	write(strconv.FormatBool(recInfo.DateOnly))
	for _, rdate := range recInfo.RDATE {
		write("R" + rdate.Format(time.RFC3339Nano))
	}
	for _, exdate := range recInfo.EXDATE {
		write("X" + exdate.Format(time.RFC3339Nano))
	}
	for _, exdate := range recInfo.EXDATEDates {
		write("XD" + exdate.Format(time.DateOnly))
	}
	if recInfo.RecurrenceID != nil {
		write("ID" + recInfo.RecurrenceID.Format(time.RFC3339Nano))
	}

	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// Get retrieves a cached result if it exists and hasn't expired
func (c *RecurrenceCache) Get(operation string, masterStart, masterEnd time.Time, recInfo RecurrenceInfo, rangeStart, rangeEnd time.Time) mo.Option[any] {
	key := c.generateCacheKey(operation, masterStart, masterEnd, recInfo, rangeStart, rangeEnd)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return mo.None[any]()
	}

	now := c.now()
	if now.After(entry.ExpiresAt) {
		delete(c.entries, key)
		return mo.None[any]()
	}

	entry.AccessedAt = now
	return mo.Some(entry.Result)
}

// Set stores a result in the cache
func (c *RecurrenceCache) Set(operation string, masterStart, masterEnd time.Time, recInfo RecurrenceInfo, rangeStart, rangeEnd time.Time, result any) {
	key := c.generateCacheKey(operation, masterStart, masterEnd, recInfo, rangeStart, rangeEnd)
	now := c.now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = &CacheEntry{
		Result:     result,
		ExpiresAt:  now.Add(c.ttl),
		AccessedAt: now,
	}

	if len(c.entries) > c.maxEntries || now.Sub(c.lastCleanup) >= c.cleanupInterval {
		c.cleanup(now)
	}
}

// cleanup removes expired entries, then the least recently accessed ones
// while the cache is over its limit. The caller holds the mutex.
func (c *RecurrenceCache) cleanup(now time.Time) {
	c.lastCleanup = now

	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}

	excess := len(c.entries) - c.maxEntries
	if excess <= 0 {
		return
	}

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return c.entries[a].AccessedAt.Compare(c.entries[b].AccessedAt)
	})
	for _, key := range keys[:excess] {
		delete(c.entries, key)
	}
}

// Clear drops every entry.
func (c *RecurrenceCache) Clear() {
	c.mutex.Lock()
	c.entries = make(map[string]*CacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache statistics
func (c *RecurrenceCache) Stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entryCount := len(c.entries)
	expiredCount := 0
	now := c.now()

	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			expiredCount++
		}
	}

	return CacheStats{
		TotalEntries:   entryCount,
		ExpiredEntries: expiredCount,
		ActiveEntries:  entryCount - expiredCount,
	}
}

// CacheStats provides information about cache performance
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}
