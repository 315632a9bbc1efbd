package ratelimit

import (
	"sync"
	"time"
)

// fallbackWindows is the in-process window store used when no shared backend
// is configured. It is mutex-guarded; windows live only in this process and
// are not shared across instances.
type fallbackWindows struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

func newFallbackWindows() *fallbackWindows {
	return &fallbackWindows{windows: make(map[string][]time.Time)}
}

// allow runs the same purge/count/append sequence as the Lua script, under
// one lock so concurrent callers cannot lose updates.
func (f *fallbackWindows) allow(key string, rule Rule, now time.Time) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := purge(f.windows[key], now.Add(-rule.Window))
	if len(entries) >= rule.Limit {
		f.store(key, entries)
		return false
	}
	f.store(key, append(entries, now))
	return true
}

// status purges and reports count and oldest surviving timestamp without
// appending.
func (f *fallbackWindows) status(key string, rule Rule, now time.Time) (int, time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := purge(f.windows[key], now.Add(-rule.Window))
	f.store(key, entries)
	if len(entries) == 0 {
		return 0, time.Time{}
	}
	return len(entries), entries[0]
}

func (f *fallbackWindows) store(key string, entries []time.Time) {
	if len(entries) == 0 {
		delete(f.windows, key)
		return
	}
	f.windows[key] = entries
}

// purge drops entries at or before the cutoff. Entries are append-ordered,
// so the survivors are a suffix.
func purge(entries []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(entries) && !entries[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return entries
	}
	return append([]time.Time(nil), entries[i:]...)
}
