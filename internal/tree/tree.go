package tree

import (
	"errors"
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring"
)

// ErrInvalidParentChild is returned for any structural violation: duplicate
// ids, re-parenting, self-parenting or relations naming unknown nodes.
var ErrInvalidParentChild = errors.New("invalid parent/child relation")

// ErrNotFound is returned when an id is not present in the tree.
var ErrNotFound = errors.New("node not found")

// ID identifies a node. Ids are unique across the whole tree.
type ID string

// Tree owns a set of nodes and the parent/child relations between them.
// Children keep insertion order. A Tree is not safe for concurrent use.
type Tree[T any] struct {
	nodes    map[ID]T
	children map[ID][]ID
	parents  map[ID]ID

	// Dense ordinals back the roaring bitmaps used for subtree queries.
	ordinal   map[ID]uint32
	ordToID   []ID
	nextOrd   uint32
	insertion []ID
}

// New returns an empty tree.
func New[T any]() *Tree[T] {
	return &Tree[T]{
		nodes:    make(map[ID]T),
		children: make(map[ID][]ID),
		parents:  make(map[ID]ID),
		ordinal:  make(map[ID]uint32),
	}
}

// Add inserts a parentless node.
func (t *Tree[T]) Add(id ID, node T) error {
	if _, ok := t.nodes[id]; ok {
		return fmt.Errorf("%w: id %q already in use", ErrInvalidParentChild, id)
	}
	t.insert(id, node)
	return nil
}

// AddChild inserts node under parent. The child id must be new, so a child
// can never become its own ancestor.
func (t *Tree[T]) AddChild(parent, id ID, node T) error {
	if parent == id {
		return fmt.Errorf("%w: %q cannot be its own parent", ErrInvalidParentChild, id)
	}
	if _, ok := t.nodes[parent]; !ok {
		return fmt.Errorf("%w: parent %q does not exist", ErrInvalidParentChild, parent)
	}
	if _, ok := t.nodes[id]; ok {
		return fmt.Errorf("%w: id %q already in use", ErrInvalidParentChild, id)
	}
	t.insert(id, node)
	t.children[parent] = append(t.children[parent], id)
	t.parents[id] = parent
	return nil
}

func (t *Tree[T]) insert(id ID, node T) {
	t.nodes[id] = node
	t.ordinal[id] = t.nextOrd
	t.ordToID = append(t.ordToID, id)
	t.nextOrd++
	t.insertion = append(t.insertion, id)
}

// Get returns the node stored under id.
func (t *Tree[T]) Get(id ID) (T, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Replace swaps the node stored under an existing id, keeping its relations.
func (t *Tree[T]) Replace(id ID, node T) error {
	if _, ok := t.nodes[id]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	t.nodes[id] = node
	return nil
}

// Has reports whether id is present.
func (t *Tree[T]) Has(id ID) bool {
	_, ok := t.nodes[id]
	return ok
}

// Len returns the number of nodes.
func (t *Tree[T]) Len() int { return len(t.nodes) }

// Children returns the ordered child ids of id. The slice must not be modified.
func (t *Tree[T]) Children(id ID) []ID {
	return t.children[id]
}

// Parent returns the parent of id, if it has one.
func (t *Tree[T]) Parent(id ID) (ID, bool) {
	p, ok := t.parents[id]
	return p, ok
}

// Roots returns parentless nodes in insertion order.
func (t *Tree[T]) Roots() []ID {
	var roots []ID
	for _, id := range t.insertion {
		if _, ok := t.parents[id]; !ok {
			roots = append(roots, id)
		}
	}
	return roots
}

// Subtree returns the ordinals of id and all of its descendants.
func (t *Tree[T]) Subtree(id ID) (*roaring.Bitmap, error) {
	if !t.Has(id) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	bm := roaring.New()
	stack := []ID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		bm.Add(t.ordinal[cur])
		stack = append(stack, t.children[cur]...)
	}
	return bm, nil
}

// IsAncestor reports whether anc is a strict ancestor of id.
func (t *Tree[T]) IsAncestor(anc, id ID) bool {
	if anc == id || !t.Has(anc) || !t.Has(id) {
		return false
	}
	sub, err := t.Subtree(anc)
	if err != nil {
		return false
	}
	return sub.Contains(t.ordinal[id])
}

// Remove deletes id together with its whole subtree.
func (t *Tree[T]) Remove(id ID) error {
	sub, err := t.Subtree(id)
	if err != nil {
		return err
	}

	if p, ok := t.parents[id]; ok {
		kids := t.children[p]
		kept := kids[:0]
		for _, c := range kids {
			if c != id {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			delete(t.children, p)
		} else {
			t.children[p] = kept
		}
	}

	it := sub.Iterator()
	for it.HasNext() {
		gone := t.ordToID[it.Next()]
		delete(t.nodes, gone)
		delete(t.children, gone)
		delete(t.parents, gone)
		delete(t.ordinal, gone)
	}

	order := t.insertion[:0]
	for _, n := range t.insertion {
		if _, ok := t.nodes[n]; ok {
			order = append(order, n)
		}
	}
	t.insertion = order
	return nil
}

// WalkPre visits id and its descendants parent-first, children in order.
// Returning a non-nil error stops the walk.
func (t *Tree[T]) WalkPre(id ID, fn func(id ID, depth int) error) error {
	if !t.Has(id) {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return t.walkPre(id, 0, fn)
}

func (t *Tree[T]) walkPre(id ID, depth int, fn func(ID, int) error) error {
	if err := fn(id, depth); err != nil {
		return err
	}
	for _, c := range t.children[id] {
		if err := t.walkPre(c, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// WalkPost visits the descendants of id before id itself.
func (t *Tree[T]) WalkPost(id ID, fn func(id ID) error) error {
	if !t.Has(id) {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return t.walkPost(id, fn)
}

func (t *Tree[T]) walkPost(id ID, fn func(ID) error) error {
	for _, c := range t.children[id] {
		if err := t.walkPost(c, fn); err != nil {
			return err
		}
	}
	return fn(id)
}

// Relations returns copies of the child→parent and parent→children maps.
func (t *Tree[T]) Relations() (parents map[ID]ID, children map[ID][]ID) {
	parents = make(map[ID]ID, len(t.parents))
	for c, p := range t.parents {
		parents[c] = p
	}
	children = make(map[ID][]ID, len(t.children))
	for p, kids := range t.children {
		children[p] = append([]ID(nil), kids...)
	}
	return parents, children
}

// Restore builds a tree from previously exported relation maps. order fixes
// the insertion order of nodes; ids missing from it follow, pre-order from
// their roots. Every invariant is checked.
func Restore[T any](nodes map[ID]T, order []ID, parents map[ID]ID, children map[ID][]ID) (*Tree[T], error) {
	t := New[T]()
	seen := make(map[ID]bool, len(nodes))
	add := func(id ID) {
		if seen[id] {
			return
		}
		seen[id] = true
		t.insert(id, nodes[id])
	}
	for _, id := range order {
		if _, ok := nodes[id]; !ok {
			return nil, fmt.Errorf("%w: unknown node %q", ErrInvalidParentChild, id)
		}
		add(id)
	}

	for p, kids := range children {
		if _, ok := nodes[p]; !ok {
			return nil, fmt.Errorf("%w: unknown parent %q", ErrInvalidParentChild, p)
		}
		for _, c := range kids {
			if _, ok := nodes[c]; !ok {
				return nil, fmt.Errorf("%w: unknown child %q of %q", ErrInvalidParentChild, c, p)
			}
			if c == p {
				return nil, fmt.Errorf("%w: %q cannot be its own parent", ErrInvalidParentChild, c)
			}
			if prev, ok := t.parents[c]; ok {
				return nil, fmt.Errorf("%w: %q already has parent %q", ErrInvalidParentChild, c, prev)
			}
			if mp, ok := parents[c]; !ok || mp != p {
				return nil, fmt.Errorf("%w: child map disagrees for %q", ErrInvalidParentChild, c)
			}
			t.parents[c] = p
		}
		t.children[p] = append([]ID(nil), kids...)
	}
	if len(t.parents) != len(parents) {
		return nil, fmt.Errorf("%w: parent map has entries missing from child lists", ErrInvalidParentChild)
	}

	// Nodes absent from order: roots first, then descendants pre-order.
	var visit func(ID)
	visit = func(id ID) {
		add(id)
		for _, c := range t.children[id] {
			visit(c)
		}
	}
	for _, id := range sortedIDs(nodes) {
		if _, ok := t.parents[id]; !ok {
			visit(id)
		}
	}

	// Anything still unseen sits on a cycle with no parentless ancestor.
	for id := range nodes {
		if !seen[id] {
			return nil, fmt.Errorf("%w: cycle through %q", ErrInvalidParentChild, id)
		}
	}
	if err := t.checkAcyclic(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tree[T]) checkAcyclic() error {
	for id := range t.nodes {
		visited := roaring.New()
		for cur, ok := id, true; ok; cur, ok = t.parents[cur] {
			ord := t.ordinal[cur]
			if visited.Contains(ord) {
				return fmt.Errorf("%w: cycle through %q", ErrInvalidParentChild, id)
			}
			visited.Add(ord)
		}
	}
	return nil
}

func sortedIDs[T any](nodes map[ID]T) []ID {
	ids := make([]ID, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
