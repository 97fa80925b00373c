package cache

import (
	"sync"
	"time"

	"github.com/dicearena/dicearena/internal/dependencies/clock"
	"github.com/dicearena/dicearena/internal/model"
)

// DefaultPreMatchTTL bounds how long a pre-match entry survives without
// confirmation
const DefaultPreMatchTTL = 30 * time.Second

// PreMatch is the provisional view of a match written while its ready
// check runs, keyed by the pre-allocated authoritative match id. Clients
// can read it before the match is confirmed instead of racing the
// confirmation write.
type PreMatch struct {
	MatchID   model.MatchID
	RoomID    model.RoomID
	Mode      model.ModeID
	Players   []model.RoomMember
	ExpiresAt time.Time
	CreatedAt time.Time
}

// PreMatchCache is a short-lived write-through cache of pre-match
// contexts. Entries are invalidated explicitly on confirmation or
// cancellation, and lapse on TTL if neither happens.
type PreMatchCache struct {
	mu      sync.Mutex
	clock   clock.Clock
	ttl     time.Duration
	entries map[model.MatchID]preMatchEntry
}

type preMatchEntry struct {
	value   PreMatch
	staleAt time.Time
}

// NewPreMatchCache creates a cache with the given TTL; zero means
// DefaultPreMatchTTL
func NewPreMatchCache(clk clock.Clock, ttl time.Duration) *PreMatchCache {
	if ttl == 0 {
		ttl = DefaultPreMatchTTL
	}
	return &PreMatchCache{
		clock:   clk,
		ttl:     ttl,
		entries: make(map[model.MatchID]preMatchEntry),
	}
}

// Put writes an entry through, restarting its TTL
func (c *PreMatchCache) Put(pm PreMatch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[pm.MatchID] = preMatchEntry{
		value:   pm,
		staleAt: c.clock.Now().Add(c.ttl),
	}
}

// Get returns the entry for the match id, if present and fresh
func (c *PreMatchCache) Get(id model.MatchID) (PreMatch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[id]
	if !ok {
		return PreMatch{}, false
	}
	if !c.clock.Now().Before(entry.staleAt) {
		delete(c.entries, id)
		return PreMatch{}, false
	}
	return entry.value, true
}

// Invalidate removes the entry for the match id
func (c *PreMatchCache) Invalidate(id model.MatchID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Len returns the number of live entries, pruning stale ones
func (c *PreMatchCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for id, entry := range c.entries {
		if !now.Before(entry.staleAt) {
			delete(c.entries, id)
		}
	}
	return len(c.entries)
}
