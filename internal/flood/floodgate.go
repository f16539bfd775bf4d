// Package flood rate limits download requests per chat user.
package flood

import (
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// window is the fixed sliding window the limit applies to.
	window = time.Minute
	// idleTimeout is how long an idle requester is remembered.
	idleTimeout = 10 * time.Minute
	// maxRequesters bounds the number of tracked requesters.
	maxRequesters = 4096
)

// Floodgate allows at most limit requests per requester within a sliding minute.
type Floodgate struct {
	limit   int
	entries *expirable.LRU[string, *requester]
	mu      sync.Mutex
	now     func() time.Time
}

type requester struct {
	timestamps []time.Time
}

// New creates a Floodgate. A non-positive limit disables limiting.
func New(limitPerMinute int) *Floodgate {
	return &Floodgate{
		limit:   limitPerMinute,
		entries: expirable.NewLRU[string, *requester](maxRequesters, nil, idleTimeout),
		now:     time.Now,
	}
}

// Key identifies a requester in a chat.
func Key(chatID, userID int64) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(userID, 10)
}

// Allow records a request from key. When the request is refused it returns
// how long until the oldest request leaves the window.
func (fg *Floodgate) Allow(key string) (bool, time.Duration) {
	if fg.limit <= 0 {
		return true, 0
	}

	now := fg.now()

	fg.mu.Lock()
	defer fg.mu.Unlock()

	entry, ok := fg.entries.Get(key)
	if !ok {
		entry = &requester{timestamps: make([]time.Time, 0, fg.limit)}
	}

	windowStart := now.Add(-window)
	valid := entry.timestamps[:0]
	for _, ts := range entry.timestamps {
		if ts.After(windowStart) {
			valid = append(valid, ts)
		}
	}
	entry.timestamps = valid

	if len(entry.timestamps) >= fg.limit {
		fg.entries.Add(key, entry)
		return false, entry.timestamps[0].Add(window).Sub(now)
	}

	entry.timestamps = append(entry.timestamps, now)
	fg.entries.Add(key, entry)
	return true, 0
}

// Limit is the configured number of requests per minute.
func (fg *Floodgate) Limit() int {
	return fg.limit
}
