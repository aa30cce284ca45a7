package store

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Watermarks maps platform::target keys to the last-processed
// timestamp boundary. Values only move forward; only the crawler
// owning a target writes it, readers just observe.
type Watermarks struct {
	mu   sync.RWMutex
	m    map[string]time.Time
	path string // optional JSON persistence
}

func Key(platform, target string) string { return platform + "::" + target }

func NewWatermarks() *Watermarks {
	return &Watermarks{m: make(map[string]time.Time)}
}

// NewWatermarksFile loads persisted cursors from path if present and
// saves after every advance. A missing or unreadable file starts empty.
func NewWatermarksFile(path string) *Watermarks {
	w := &Watermarks{m: make(map[string]time.Time), path: path}
	b, err := os.ReadFile(path)
	if err != nil {
		return w
	}
	var raw map[string]time.Time
	if json.Unmarshal(b, &raw) == nil {
		w.m = raw
	}
	if w.m == nil {
		w.m = make(map[string]time.Time)
	}
	return w
}

// Init sets the cursor for key only if absent. Re-registration of an
// already tracked target must not reset its position.
func (w *Watermarks) Init(key string, t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.m[key]; !ok {
		w.m[key] = t
	}
}

func (w *Watermarks) Get(key string) (time.Time, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	t, ok := w.m[key]
	return t, ok
}

// Advance moves the cursor forward. Regressions are ignored so the
// mapping stays monotonically non-decreasing.
func (w *Watermarks) Advance(key string, t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cur, ok := w.m[key]; ok && !t.After(cur) {
		return
	}
	w.m[key] = t
	if w.path != "" {
		w.saveLocked()
	}
}

// Snapshot returns a copy of all cursors, for diagnostics and tests.
func (w *Watermarks) Snapshot() map[string]time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]time.Time, len(w.m))
	for k, v := range w.m {
		out[k] = v
	}
	return out
}

func (w *Watermarks) saveLocked() {
	b, err := json.MarshalIndent(w.m, "", " ")
	if err != nil {
		return
	}
	_ = os.WriteFile(w.path, b, 0644)
}
