// Package history keeps a bounded, most-recent-first record of successful
// generations in local storage. History is a best-effort cache: corrupted
// data is repaired, quota failures are swallowed, and callers never see a
// storage error.
package history

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/Sharan9277/ai-studio/internal/domain"
	"github.com/Sharan9277/ai-studio/internal/storage"
)

const (
	defaultKey           = "ai-studio/history"
	defaultMaxEntries    = 5
	defaultShrinkEntries = 3
	defaultSizeThreshold = 64 * 1024
)

// Options tunes the store. The limits are pragmatic defaults, not a
// principled policy, so all of them are configurable.
type Options struct {
	// Key is the storage key holding the serialized history blob.
	Key string
	// MaxEntries caps the history length. Default 5.
	MaxEntries int
	// ShrinkEntries is the reduced cap applied when the serialized blob
	// exceeds SizeThreshold. Default 3.
	ShrinkEntries int
	// SizeThreshold is the serialized size in bytes above which the
	// history shrinks to ShrinkEntries before writing. Default 64 KiB.
	SizeThreshold int
	// Logger receives messages about swallowed failures. Default log.Default().
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Key == "" {
		o.Key = defaultKey
	}
	if o.MaxEntries <= 0 {
		o.MaxEntries = defaultMaxEntries
	}
	if o.ShrinkEntries <= 0 {
		o.ShrinkEntries = defaultShrinkEntries
	}
	if o.SizeThreshold <= 0 {
		o.SizeThreshold = defaultSizeThreshold
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Listener receives the current history, most recent first, after every
// mutation. Listeners are invoked synchronously.
type Listener func([]domain.GenerationResult)

// Store persists the most recent generation results under a single key.
type Store struct {
	kv   storage.KeyValue
	opts Options

	mu        sync.Mutex
	entries   []domain.GenerationResult
	listeners map[int]Listener
	nextID    int
}

// New creates a store over kv, loading and repairing any existing history.
func New(kv storage.KeyValue, opts Options) *Store {
	s := &Store{
		kv:        kv,
		opts:      opts.withDefaults(),
		listeners: make(map[int]Listener),
	}
	s.mu.Lock()
	s.load()
	s.mu.Unlock()
	return s
}

// List returns the stored results, most recent first. It returns an empty
// slice when storage is empty, unavailable or corrupt — never an error.
func (s *Store) List() []domain.GenerationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.load()
	return s.snapshot()
}

// Add validates result and prepends it to the history. An invalid result is
// a logged no-op. Re-adding an existing ID moves it to the front. The
// history is truncated to MaxEntries (or further under size pressure) and
// persisted; persistence failures are swallowed.
func (s *Store) Add(result domain.GenerationResult) {
	if err := result.Validate(); err != nil {
		s.opts.Logger.Printf("history: dropping invalid result: %v", err)
		return
	}

	s.mu.Lock()
	s.load()

	filtered := make([]domain.GenerationResult, 0, len(s.entries)+1)
	filtered = append(filtered, result)
	for _, e := range s.entries {
		if e.ID != result.ID {
			filtered = append(filtered, e)
		}
	}
	if len(filtered) > s.opts.MaxEntries {
		filtered = filtered[:s.opts.MaxEntries]
	}
	s.entries = filtered

	s.persist()
	view := s.snapshot()
	listeners := s.listenerList()
	s.mu.Unlock()

	notify(listeners, view)
}

// Remove deletes the entry with the given ID, if present.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	s.load()

	kept := s.entries[:0]
	for _, e := range s.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	s.entries = kept

	s.persist()
	view := s.snapshot()
	listeners := s.listenerList()
	s.mu.Unlock()

	notify(listeners, view)
}

// Clear erases the history.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = nil
	if err := s.kv.Delete(s.opts.Key); err != nil {
		s.opts.Logger.Printf("history: failed to clear storage: %v", err)
	}
	view := s.snapshot()
	listeners := s.listenerList()
	s.mu.Unlock()

	notify(listeners, view)
}

// Subscribe registers fn to be called after every mutation with the current
// history. The returned func deregisters the listener.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// load refreshes s.entries from storage, dropping invalid entries and
// writing back the cleaned set when anything was dropped. Caller holds s.mu.
func (s *Store) load() {
	raw, ok, err := s.kv.Get(s.opts.Key)
	if err != nil {
		s.opts.Logger.Printf("history: storage unavailable: %v", err)
		s.entries = nil
		return
	}
	if !ok || raw == "" {
		s.entries = nil
		return
	}

	var stored []domain.GenerationResult
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.opts.Logger.Printf("history: corrupt stored data, resetting: %v", err)
		s.entries = nil
		return
	}

	valid := make([]domain.GenerationResult, 0, len(stored))
	for _, e := range stored {
		if e.Validate() == nil {
			valid = append(valid, e)
		}
	}
	if len(valid) > s.opts.MaxEntries {
		valid = valid[:s.opts.MaxEntries]
	}
	s.entries = valid

	if len(valid) != len(stored) {
		s.opts.Logger.Printf("history: dropped %d invalid entries", len(stored)-len(valid))
		s.persist()
	}
}

// persist writes s.entries to storage, shrinking under size pressure and
// recovering once from quota exhaustion. Caller holds s.mu.
func (s *Store) persist() {
	entries := s.entries
	data, err := json.Marshal(entries)
	if err != nil {
		s.opts.Logger.Printf("history: failed to serialize: %v", err)
		return
	}

	if len(data) > s.opts.SizeThreshold && len(entries) > s.opts.ShrinkEntries {
		entries = entries[:s.opts.ShrinkEntries]
		data, err = json.Marshal(entries)
		if err != nil {
			s.opts.Logger.Printf("history: failed to serialize: %v", err)
			return
		}
	}

	err = s.kv.Set(s.opts.Key, string(data))
	if err == storage.ErrQuotaExceeded && len(entries) > 1 {
		// Keep only the newest entry and try once more.
		data, merr := json.Marshal(entries[:1])
		if merr == nil {
			err = s.kv.Set(s.opts.Key, string(data))
		}
	}
	if err != nil {
		s.opts.Logger.Printf("history: write failed, keeping previous stored state: %v", err)
	}
}

func (s *Store) snapshot() []domain.GenerationResult {
	view := make([]domain.GenerationResult, len(s.entries))
	copy(view, s.entries)
	return view
}

func (s *Store) listenerList() []Listener {
	list := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		list = append(list, fn)
	}
	return list
}

func notify(listeners []Listener, view []domain.GenerationResult) {
	for _, fn := range listeners {
		fn(view)
	}
}
