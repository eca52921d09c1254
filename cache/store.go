// Package cache holds compiled templates between processes and engine
// instances. Stores are keyed by template name; a later Put under the same
// name replaces the earlier one.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/agentic-research/brightline/api"
)

// ErrNotFound is returned by Get for names that were never stored.
var ErrNotFound = errors.New("compiled template not found")

// Store is the interface engines compile into and load from.
type Store interface {
	Put(name string, t *api.CompiledTree) error
	Get(name string) (*api.CompiledTree, error)
	Names() ([]string, error)
}

// MemoryStore is an in-process Store. Trees are kept serialised, so each
// Get returns an independent copy. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	trees map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trees: make(map[string][]byte)}
}

// Put implements Store.
func (s *MemoryStore) Put(name string, t *api.CompiledTree) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode %q: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trees[name] = raw
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(name string) (*api.CompiledTree, error) {
	s.mu.RLock()
	raw, ok := s.trees[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return decode(name, raw)
}

// Names implements Store. Names are sorted.
func (s *MemoryStore) Names() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.trees))
	for n := range s.trees {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func decode(name string, raw []byte) (*api.CompiledTree, error) {
	var t api.CompiledTree
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode %q: %w", name, err)
	}
	return &t, nil
}

// Bundle is a set of compiled trees serialised as one JSON object keyed by
// template name.
type Bundle map[string]*api.CompiledTree

// Export copies every tree held by s into a Bundle.
func Export(s Store) (Bundle, error) {
	names, err := s.Names()
	if err != nil {
		return nil, err
	}
	b := make(Bundle, len(names))
	for _, n := range names {
		t, err := s.Get(n)
		if err != nil {
			return nil, err
		}
		b[n] = t
	}
	return b, nil
}

// Import stores every tree of b into s.
func Import(s Store, b Bundle) error {
	names := make([]string, 0, len(b))
	for n := range b {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := s.Put(n, b[n]); err != nil {
			return err
		}
	}
	return nil
}

// WriteBundle writes b as indented JSON.
func WriteBundle(w io.Writer, b Bundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

// ReadBundle decodes a bundle written by WriteBundle.
func ReadBundle(r io.Reader) (Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	return b, nil
}
