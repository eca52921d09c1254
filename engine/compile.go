package engine

import (
	"fmt"
	"slices"

	"github.com/agentic-research/brightline/api"
	"github.com/agentic-research/brightline/cache"
	"github.com/agentic-research/brightline/internal/tree"
)

// Factory builds a fresh engine from a compiled template.
type Factory func() (*Engine, error)

// Compile freezes the block tree into store under name and returns a
// factory for new engines loaded from it. Later Compile calls under the
// same name replace the stored tree; the factory always loads the latest.
func (e *Engine) Compile(store cache.Store, name string) (Factory, error) {
	if err := store.Put(name, e.export()); err != nil {
		return nil, fmt.Errorf("compile %q: %w", name, err)
	}
	e.log.Info("compiled template", "fn", "compile", "template", name, "blocks", e.tree.Len())

	cfg := e.cfg
	return func() (*Engine, error) {
		return Load(store, name, cfg)
	}, nil
}

// Load builds an engine from the tree stored under name.
func Load(store cache.Store, name string, cfg Config) (*Engine, error) {
	e, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	if err := e.Load(store, name); err != nil {
		return nil, err
	}
	return e, nil
}

// Load replaces the engine's tree with the one stored under name. Bindings,
// scope and pending output are discarded. Blocks are restored as stored;
// the template is not extracted again.
func (e *Engine) Load(store cache.Store, name string) error {
	ct, err := store.Get(name)
	if err != nil {
		return fmt.Errorf("load %q: %w", name, err)
	}
	t, err := restoreTree(ct)
	if err != nil {
		return fmt.Errorf("load %q: %w", name, err)
	}
	e.reset(t)
	e.log.Info("loaded template", "fn", "load", "template", name, "blocks", t.Len())
	return nil
}

// export converts the tree to its portable form. Render state is not
// carried over.
func (e *Engine) export() *api.CompiledTree {
	parents, children := e.tree.Relations()
	ct := &api.CompiledTree{
		ChildParentMap: make(map[string]string, len(parents)),
		Nodes:          make(map[string]api.CompiledBlock, e.tree.Len()),
		NumNodes:       e.tree.Len(),
		Tree:           make(map[string][]string, len(children)),
	}
	for c, p := range parents {
		ct.ChildParentMap[string(c)] = string(p)
	}
	for p, kids := range children {
		names := make([]string, len(kids))
		for i, k := range kids {
			names[i] = string(k)
		}
		ct.Tree[string(p)] = names
	}
	_ = e.tree.WalkPre(RootName, func(id tree.ID, _ int) error {
		b, _ := e.tree.Get(id)
		ct.Order = append(ct.Order, string(id))
		ct.Nodes[string(id)] = api.CompiledBlock{
			Name:          string(id),
			Content:       b.Content,
			Variables:     slices.Clone(b.Variables),
			ParsedContent: []string{},
			VariableCache: map[string]any{},
			UsedVariables: map[string]any{},
		}
		return nil
	})
	return ct
}

func restoreTree(ct *api.CompiledTree) (*tree.Tree[*Block], error) {
	if ct.NumNodes != len(ct.Nodes) {
		return nil, fmt.Errorf("%w: numNodes is %d, found %d nodes", ErrInvalidParentChild, ct.NumNodes, len(ct.Nodes))
	}
	if _, ok := ct.Nodes[RootName]; !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidParentChild, RootName)
	}
	if _, ok := ct.ChildParentMap[RootName]; ok {
		return nil, fmt.Errorf("%w: %s has a parent", ErrInvalidParentChild, RootName)
	}

	nodes := make(map[tree.ID]*Block, len(ct.Nodes))
	for key, cb := range ct.Nodes {
		if cb.Name != "" && cb.Name != key {
			return nil, fmt.Errorf("%w: node %q is named %q", ErrInvalidParentChild, key, cb.Name)
		}
		vars := cb.Variables
		if vars == nil {
			vars = []string{}
		}
		nodes[tree.ID(key)] = &Block{
			Name:      tree.ID(key),
			Content:   cb.Content,
			Variables: slices.Clone(vars),
		}
	}

	order := make([]tree.ID, len(ct.Order))
	for i, id := range ct.Order {
		order[i] = tree.ID(id)
	}
	parents := make(map[tree.ID]tree.ID, len(ct.ChildParentMap))
	for c, p := range ct.ChildParentMap {
		parents[tree.ID(c)] = tree.ID(p)
	}
	children := make(map[tree.ID][]tree.ID, len(ct.Tree))
	for p, kids := range ct.Tree {
		ids := make([]tree.ID, len(kids))
		for i, k := range kids {
			ids[i] = tree.ID(k)
		}
		children[tree.ID(p)] = ids
	}

	t, err := tree.Restore(nodes, order, parents, children)
	if err != nil {
		return nil, err
	}
	if roots := t.Roots(); len(roots) != 1 {
		return nil, fmt.Errorf("%w: %d parentless blocks", ErrInvalidParentChild, len(roots))
	}
	return t, nil
}
