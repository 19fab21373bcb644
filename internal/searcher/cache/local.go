package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

// Local is an in-process Backend used when Redis is disabled.
type Local struct {
	mu      sync.Mutex
	entries map[string]localEntry
	now     func() time.Time
}

type localEntry struct {
	value   []byte
	expires time.Time
}

func NewLocal() *Local {
	return &Local{entries: make(map[string]localEntry), now: time.Now}
}

func (l *Local) Lookup(_ context.Context, key string) ([]byte, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !l.now().Before(e.expires) {
		delete(l.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Store keeps value until ttl elapses. A ttl of zero never expires.
func (l *Local) Store(_ context.Context, key string, value []byte, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := localEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = l.now().Add(ttl)
	}
	l.entries[key] = e
	return nil
}

// FlushByPattern removes keys matching a Redis-style glob.
func (l *Local) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var deleted int64
	for key := range l.entries {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return deleted, err
		}
		if ok {
			delete(l.entries, key)
			deleted++
		}
	}
	return deleted, nil
}
