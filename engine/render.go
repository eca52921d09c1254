package engine

import (
	"maps"
	"slices"
	"strings"

	"github.com/agentic-research/brightline/internal/tree"
)

// pass holds the state of a single Parse call.
type pass struct {
	// used records, per block, the globals that block already consumed.
	used map[tree.ID]map[string]struct{}
	// consumed collects every global read during the pass.
	consumed map[string]struct{}
}

func newPass() *pass {
	return &pass{
		used:     make(map[tree.ID]map[string]struct{}),
		consumed: make(map[string]struct{}),
	}
}

func (p *pass) usedBy(id tree.ID) map[string]struct{} {
	u, ok := p.used[id]
	if !ok {
		u = make(map[string]struct{})
		p.used[id] = u
	}
	return u
}

// EachFunc is called once per element by Each, after the element's own
// bindings are set and before the block is parsed.
type EachFunc func(item Value, key string) error

// Touch marks a block for one more emission at its next parse.
func (e *Engine) Touch(name string) error {
	b, err := e.lookup(name)
	if err != nil {
		return err
	}
	e.stateOf(b.Name).touch++
	return nil
}

// Parse emits the named block once (an empty name means the root). Nested
// blocks are emitted first, once per touch, and folded into their parent.
// Globals read during the pass are cleared and the scope is detached.
func (e *Engine) Parse(name string) error {
	b, err := e.lookup(name)
	if err != nil {
		return err
	}
	e.stateOf(b.Name).touch = 1

	p := newPass()
	e.emit(p, b.Name)
	e.finish(p)
	e.log.Debug("parsed", "fn", "parse", "block", string(b.Name))
	return nil
}

// Render parses the named block and returns its accumulated output, then
// clears the pending output of the whole subtree.
func (e *Engine) Render(name string) (string, error) {
	b, err := e.lookup(name)
	if err != nil {
		return "", err
	}
	if err := e.Parse(name); err != nil {
		return "", err
	}
	st := e.stateOf(b.Name)
	out := strings.TrimSpace(strings.Join(st.fragments, ""))

	_ = e.tree.WalkPre(b.Name, func(id tree.ID, _ int) error {
		if s, ok := e.state[id]; ok {
			s.fragments = nil
			s.touch = 0
		}
		return nil
	})
	return out, nil
}

// Snip renders the named block without registering an emission: the
// result is returned, but later renders of its ancestors do not see it.
// Pending touches, output and locals of the whole subtree are left as they
// were. When the substituted text is empty the raw block content is
// returned.
func (e *Engine) Snip(name string) (string, error) {
	b, err := e.lookup(name)
	if err != nil {
		return "", err
	}
	saved := e.saveSubtree(b.Name)
	st := e.stateOf(b.Name)
	kept := len(st.fragments)

	st.touch = 1
	p := newPass()
	e.emit(p, b.Name)
	e.finish(p)

	out := strings.TrimSpace(st.fragments[kept])
	e.restoreSubtree(saved)

	if out == "" {
		out = b.Content
	}
	return out, nil
}

// saveSubtree copies the render state of id and its descendants. Blocks
// with no state map to nil.
func (e *Engine) saveSubtree(id tree.ID) map[tree.ID]*blockState {
	saved := make(map[tree.ID]*blockState)
	_ = e.tree.WalkPre(id, func(d tree.ID, _ int) error {
		st, ok := e.state[d]
		if !ok {
			saved[d] = nil
			return nil
		}
		saved[d] = &blockState{
			locals:    maps.Clone(st.locals),
			touch:     st.touch,
			fragments: slices.Clone(st.fragments),
		}
		return nil
	})
	return saved
}

func (e *Engine) restoreSubtree(saved map[tree.ID]*blockState) {
	for id, st := range saved {
		if st == nil {
			delete(e.state, id)
			continue
		}
		e.state[id] = st
	}
}

// Each binds every element of items in turn and parses block after each.
// Record elements are flattened into bindings; fn, when non-nil, can add
// more bindings for the element.
func (e *Engine) Each(items any, block string, fn EachFunc) error {
	return e.EachAs(items, block, "", fn)
}

// EachAs is Each with scalar elements bound to variable.
func (e *Engine) EachAs(items any, block, variable string, fn EachFunc) error {
	if _, err := e.lookup(block); err != nil {
		return err
	}
	for _, el := range ValueOf(items).Elements() {
		if el.Value.Kind() == KindRecord {
			e.SetValues(el.Value)
		} else if variable != "" {
			e.SetValue(variable, el.Value)
		}
		if fn != nil {
			if err := fn(el.Value, el.Key); err != nil {
				return err
			}
		}
		if err := e.Parse(block); err != nil {
			return err
		}
	}
	return nil
}

// emit processes the children of id, then appends one fragment to id per
// pending touch.
func (e *Engine) emit(p *pass, id tree.ID) {
	for _, c := range e.tree.Children(id) {
		e.emit(p, c)
	}

	st := e.stateOf(id)
	if st.touch == 0 {
		return
	}
	b, _ := e.tree.Get(id)
	for i := 0; i < st.touch; i++ {
		st.fragments = append(st.fragments, e.substitute(p, b, st))
	}
	st.touch = 0
	clear(st.locals)
}

// substitute produces one emission of b in a single scan over its tokens.
// Child placeholders take the child's pending output, which is consumed.
func (e *Engine) substitute(p *pass, b *Block, st *blockState) string {
	values := make(map[string]string, len(b.Variables))
	for _, v := range b.Variables {
		values[v] = e.resolve(p, b.Name, st, v)
	}
	return tokenRe.ReplaceAllStringFunc(b.Content, func(tok string) string {
		body := tok[2 : len(tok)-2]
		if child, ok := placeholderName(body); ok {
			if parent, has := e.tree.Parent(child); has && parent == b.Name {
				return e.drain(child)
			}
			return tok
		}
		v, ok := values[body]
		if !ok {
			v = e.resolve(p, b.Name, st, body)
			values[body] = v
		}
		return v
	})
}

// drain returns the trimmed, concatenated pending output of a block and
// clears it.
func (e *Engine) drain(id tree.ID) string {
	st, ok := e.state[id]
	if !ok || len(st.fragments) == 0 {
		return ""
	}
	out := strings.TrimSpace(strings.Join(st.fragments, ""))
	st.fragments = nil
	return out
}

// finish drops the globals consumed by p and detaches the scope.
func (e *Engine) finish(p *pass) {
	for name := range p.consumed {
		delete(e.globals, name)
	}
	e.scope = ""
}
