package recurrence

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeClock drives a cache's notion of now.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCache(config CacheConfig) (*RecurrenceCache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewRecurrenceCache(config)
	cache.now = clock.Now
	return cache, clock
}

var (
	testMasterStart = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	testMasterEnd   = time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)
	testRangeStart  = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	testRangeEnd    = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
)

func TestRecurrenceCache_BasicOperations(t *testing.T) {
	cache, _ := newTestCache(CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 1 * time.Minute,
	})

	recInfo := RecurrenceInfo{RRULE: "FREQ=DAILY;COUNT=5"}

	// Cache miss first
	if cache.Get("test", testMasterStart, testMasterEnd, recInfo, testRangeStart, testRangeEnd).IsPresent() {
		t.Error("Expected cache miss, got hit")
	}

	cache.Set("test", testMasterStart, testMasterEnd, recInfo, testRangeStart, testRangeEnd, true)

	result, found := cache.Get("test", testMasterStart, testMasterEnd, recInfo, testRangeStart, testRangeEnd).Get()
	if !found {
		t.Error("Expected cache hit, got miss")
	}
	if result != true {
		t.Errorf("Expected true, got %v", result)
	}
}

func TestRecurrenceCache_TTLExpiration(t *testing.T) {
	cache, clock := newTestCache(CacheConfig{
		TTL:             100 * time.Millisecond,
		MaxEntries:      100,
		CleanupInterval: time.Hour,
	})

	recInfo := RecurrenceInfo{RRULE: "FREQ=DAILY;COUNT=5"}
	cache.Set("test", testMasterStart, testMasterEnd, recInfo, testRangeStart, testRangeEnd, true)

	if result, found := cache.Get("test", testMasterStart, testMasterEnd, recInfo, testRangeStart, testRangeEnd).Get(); !found || result != true {
		t.Error("Expected cache hit immediately after set")
	}

	clock.Advance(150 * time.Millisecond)

	if stats := cache.Stats(); stats.ExpiredEntries != 1 || stats.ActiveEntries != 0 {
		t.Errorf("Expected one expired entry, got %+v", stats)
	}
	if cache.Get("test", testMasterStart, testMasterEnd, recInfo, testRangeStart, testRangeEnd).IsPresent() {
		t.Error("Expected cache miss after TTL expiration")
	}
	if stats := cache.Stats(); stats.TotalEntries != 0 {
		t.Errorf("Expected expired entry to be dropped on read, got %d entries", stats.TotalEntries)
	}
}

func TestRecurrenceCache_SweepOnSet(t *testing.T) {
	cache, clock := newTestCache(CacheConfig{
		TTL:             time.Minute,
		MaxEntries:      100,
		CleanupInterval: 5 * time.Minute,
	})

	old := RecurrenceInfo{RRULE: "FREQ=DAILY;COUNT=1"}
	cache.Set("test", testMasterStart, testMasterEnd, old, testRangeStart, testRangeEnd, true)

	// Within the cleanup interval the expired entry lingers.
	clock.Advance(2 * time.Minute)
	cache.Set("test", testMasterStart, testMasterEnd, RecurrenceInfo{RRULE: "FREQ=DAILY;COUNT=2"}, testRangeStart, testRangeEnd, true)
	if stats := cache.Stats(); stats.TotalEntries != 2 {
		t.Errorf("Expected 2 entries before the sweep, got %d", stats.TotalEntries)
	}

	clock.Advance(4 * time.Minute)
	cache.Set("test", testMasterStart, testMasterEnd, RecurrenceInfo{RRULE: "FREQ=DAILY;COUNT=3"}, testRangeStart, testRangeEnd, true)
	if stats := cache.Stats(); stats.TotalEntries != 1 {
		t.Errorf("Expected the sweep to leave 1 entry, got %d", stats.TotalEntries)
	}
}

func TestRecurrenceCache_DifferentKeys(t *testing.T) {
	cache, _ := newTestCache(DefaultCacheConfig)

	recInfo1 := RecurrenceInfo{RRULE: "FREQ=DAILY;COUNT=5"}
	recInfo2 := RecurrenceInfo{RRULE: "FREQ=WEEKLY;COUNT=5"}

	cache.Set("test", testMasterStart, testMasterEnd, recInfo1, testRangeStart, testRangeEnd, true)
	cache.Set("test", testMasterStart, testMasterEnd, recInfo2, testRangeStart, testRangeEnd, false)

	result1, found1 := cache.Get("test", testMasterStart, testMasterEnd, recInfo1, testRangeStart, testRangeEnd).Get()
	result2, found2 := cache.Get("test", testMasterStart, testMasterEnd, recInfo2, testRangeStart, testRangeEnd).Get()

	if !found1 || result1 != true {
		t.Error("Expected first cache entry to be true")
	}
	if !found2 || result2 != false {
		t.Error("Expected second cache entry to be false")
	}
}

func TestRecurrenceCache_MaxEntriesEviction(t *testing.T) {
	cache, clock := newTestCache(CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      3,
		CleanupInterval: time.Hour,
	})

	infos := make([]RecurrenceInfo, 3)
	for i := range infos {
		infos[i] = RecurrenceInfo{RRULE: fmt.Sprintf("FREQ=DAILY;COUNT=%d", i+1)}
		cache.Set("test", testMasterStart, testMasterEnd, infos[i], testRangeStart, testRangeEnd, true)
		clock.Advance(time.Second)
	}

	// Touch the oldest entry so the second one becomes least recently used.
	cache.Get("test", testMasterStart, testMasterEnd, infos[0], testRangeStart, testRangeEnd)
	clock.Advance(time.Second)

	newest := RecurrenceInfo{RRULE: "FREQ=WEEKLY;COUNT=1"}
	cache.Set("test", testMasterStart, testMasterEnd, newest, testRangeStart, testRangeEnd, false)

	if stats := cache.Stats(); stats.TotalEntries != 3 {
		t.Errorf("Expected 3 entries after eviction, got %d", stats.TotalEntries)
	}
	if result, found := cache.Get("test", testMasterStart, testMasterEnd, newest, testRangeStart, testRangeEnd).Get(); !found || result != false {
		t.Error("Expected newest entry to be present after eviction")
	}
	if !cache.Get("test", testMasterStart, testMasterEnd, infos[0], testRangeStart, testRangeEnd).IsPresent() {
		t.Error("Expected recently read entry to survive eviction")
	}
	if cache.Get("test", testMasterStart, testMasterEnd, infos[1], testRangeStart, testRangeEnd).IsPresent() {
		t.Error("Expected least recently used entry to be evicted")
	}
}

func TestRecurrenceCache_ConcurrentAccess(t *testing.T) {
	cache := NewRecurrenceCache(CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 1 * time.Minute,
	})

	const numGoroutines = 10
	const operationsPerGoroutine = 100

	var wg sync.WaitGroup
	for i := range numGoroutines {
		wg.Add(1)
		go func(goroutineID int) {
			defer wg.Done()

			for j := range operationsPerGoroutine {
				recInfo := RecurrenceInfo{
					RRULE: fmt.Sprintf("FREQ=DAILY;COUNT=%d", goroutineID*operationsPerGoroutine+j),
				}
				if j%2 == 0 {
					cache.Set("test", testMasterStart, testMasterEnd, recInfo, testRangeStart, testRangeEnd, true)
				} else {
					cache.Get("test", testMasterStart, testMasterEnd, recInfo, testRangeStart, testRangeEnd)
				}
			}
		}(i)
	}
	wg.Wait()

	if stats := cache.Stats(); stats.TotalEntries > 100 {
		t.Errorf("Expected at most 100 entries, got %d", stats.TotalEntries)
	}

	testRecInfo := RecurrenceInfo{RRULE: "FREQ=DAILY;COUNT=9999"}
	cache.Set("test", testMasterStart, testMasterEnd, testRecInfo, testRangeStart, testRangeEnd, true)
	if result, found := cache.Get("test", testMasterStart, testMasterEnd, testRecInfo, testRangeStart, testRangeEnd).Get(); !found || result != true {
		t.Error("Cache should still be functional after concurrent access")
	}
}

func TestRecurrenceCache_KeyGeneration(t *testing.T) {
	cache, _ := newTestCache(DefaultCacheConfig)
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}

	baseTime := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	base := RecurrenceInfo{RRULE: "FREQ=DAILY;COUNT=5"}
	key := func(op string, masterStart time.Time, info RecurrenceInfo, rangeStart time.Time) string {
		return cache.generateCacheKey(op, masterStart, masterStart.Add(time.Hour), info, rangeStart, baseTime.Add(2*time.Hour))
	}
	baseKey := key("test", baseTime, base, baseTime.Add(-time.Hour))

	if baseKey != key("test", baseTime, base, baseTime.Add(-time.Hour)) {
		t.Error("Expected identical inputs to produce the same key")
	}

	recurrenceID := baseTime.Add(24 * time.Hour)
	testCases := []struct {
		name string
		key  string
	}{
		{"Different operation", key("other", baseTime, base, baseTime.Add(-time.Hour))},
		{"Different master start", key("test", baseTime.Add(time.Minute), base, baseTime.Add(-time.Hour))},
		{"Same instant in another zone", key("test", baseTime.In(ny), base, baseTime.Add(-time.Hour))},
		{"Different RRULE", key("test", baseTime, RecurrenceInfo{RRULE: "FREQ=WEEKLY;COUNT=5"}, baseTime.Add(-time.Hour))},
		{"Different range start", key("test", baseTime, base, baseTime.Add(-2*time.Hour))},
		{"With TZID", key("test", baseTime, RecurrenceInfo{RRULE: base.RRULE, TZID: "Europe/Berlin"}, baseTime.Add(-time.Hour))},
		{"Date only", key("test", baseTime, RecurrenceInfo{RRULE: base.RRULE, DateOnly: true}, baseTime.Add(-time.Hour))},
		{"With EXDATE", key("test", baseTime, RecurrenceInfo{RRULE: base.RRULE, EXDATE: []time.Time{recurrenceID}}, baseTime.Add(-time.Hour))},
		{"With RDATE", key("test", baseTime, RecurrenceInfo{RRULE: base.RRULE, RDATE: []time.Time{recurrenceID}}, baseTime.Add(-time.Hour))},
		{"With RecurrenceID", key("test", baseTime, RecurrenceInfo{RRULE: base.RRULE, RecurrenceID: &recurrenceID}, baseTime.Add(-time.Hour))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.key == baseKey {
				t.Errorf("Test case '%s' should generate a different key", tc.name)
			}
		})
	}
}

func TestRecurrenceCache_Clear(t *testing.T) {
	cache, _ := newTestCache(DefaultCacheConfig)
	cache.Set("test", testMasterStart, testMasterEnd, RecurrenceInfo{}, testRangeStart, testRangeEnd, true)
	cache.Clear()

	if stats := cache.Stats(); stats.TotalEntries != 0 {
		t.Errorf("Expected empty cache after Clear, got %d entries", stats.TotalEntries)
	}
}
