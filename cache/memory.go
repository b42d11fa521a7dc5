// Package cache holds parsed beatmaps keyed by file path. Caches are owned by
// the caller; nothing here is package-level state.
package cache

import (
	"path/filepath"
	"sync"

	"osusync/dotosu"
)

// Store is implemented by Memory and SQLite.
type Store interface {
	Load(path string) (*dotosu.Beatmap, error)
	Invalidate(path string) error
	Clear() error
}

// Memory is safe for concurrent use.
type Memory struct {
	decoder *dotosu.Decoder

	mu       sync.Mutex
	beatmaps map[string]*dotosu.Beatmap
}

func NewMemory(decoder *dotosu.Decoder) *Memory {
	if decoder == nil {
		decoder = dotosu.NewDecoder(nil)
	}
	return &Memory{
		decoder:  decoder,
		beatmaps: make(map[string]*dotosu.Beatmap),
	}
}

func (m *Memory) Get(path string) (*dotosu.Beatmap, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.beatmaps[key(path)]
	return b, ok
}

func (m *Memory) Put(path string, b *dotosu.Beatmap) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.beatmaps[key(path)] = b
}

// Load returns the cached beatmap for path, decoding and storing it on a miss.
func (m *Memory) Load(path string) (*dotosu.Beatmap, error) {
	if b, ok := m.Get(path); ok {
		return b, nil
	}
	b, err := m.decoder.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	m.Put(path, b)
	return b, nil
}

func (m *Memory) Invalidate(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.beatmaps, key(path))
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.beatmaps)
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.beatmaps)
}

func key(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
