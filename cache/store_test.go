package cache

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"

	"github.com/agentic-research/brightline/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree(content string) *api.CompiledTree {
	return &api.CompiledTree{
		ChildParentMap: map[string]string{"item": "__root__"},
		Nodes: map[string]api.CompiledBlock{
			"__root__": {Name: "__root__", Content: content, Variables: []string{}},
			"item":     {Name: "item", Content: "{{x}}", Variables: []string{"x"}},
		},
		NumNodes: 2,
		Tree:     map[string][]string{"__root__": {"item"}},
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put("b", sampleTree("<ul>{{__item__}}</ul>")))
	require.NoError(t, s.Put("a", sampleTree("first")))
	require.NoError(t, s.Put("a", sampleTree("second")))

	got, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Nodes["__root__"].Content, "last write wins")
	assert.Equal(t, []string{"item"}, got.Tree["__root__"])
	assert.Equal(t, []string{"x"}, got.Nodes["item"].Variables)

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_GetReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Put("t", sampleTree("x")))

	first, err := s.Get("t")
	require.NoError(t, err)
	first.Tree["__root__"][0] = "mutated"

	second, err := s.Get("t")
	require.NoError(t, err)
	assert.Equal(t, "item", second.Tree["__root__"][0])
}

func TestMemoryStore_ConcurrentPuts(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Put("shared", sampleTree("x"))
			_, _ = s.Get("shared")
		}()
	}
	wg.Wait()

	names, err := s.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"shared"}, names)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	exerciseStore(t, s)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("page", sampleTree("persisted")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	got, err := s.Get("page")
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Nodes["__root__"].Content)
}

func TestBundle_RoundTrip(t *testing.T) {
	src := NewMemoryStore()
	require.NoError(t, src.Put("one", sampleTree("1")))
	require.NoError(t, src.Put("two", sampleTree("2")))

	b, err := Export(src)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteBundle(&buf, b))
	assert.Contains(t, buf.String(), `"childParentMap"`)

	read, err := ReadBundle(&buf)
	require.NoError(t, err)

	dst := NewMemoryStore()
	require.NoError(t, Import(dst, read))

	got, err := dst.Get("two")
	require.NoError(t, err)
	assert.Equal(t, "2", got.Nodes["__root__"].Content)
}
