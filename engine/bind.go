package engine

import (
	"github.com/agentic-research/brightline/internal/tree"
)

// Set binds a scalar to name: in the scoped block's locals when a scope is
// active, otherwise globally. Empty strings, nil, records and sequences are
// dropped, so unset variables simply render empty.
func (e *Engine) Set(name string, v any) {
	e.SetValue(name, ValueOf(v))
}

// SetValue is Set for an already converted Value.
func (e *Engine) SetValue(name string, v Value) {
	s, ok := v.Scalar()
	if !ok || s == "" || name == "" {
		e.log.Debug("binding dropped", "fn", "set", "variable", name, "kind", v.Kind().String())
		return
	}
	if e.scope != "" {
		e.stateOf(e.scope).locals[name] = s
		return
	}
	e.globals[name] = s
}

// SetValues flattens a record into dot-joined names and binds each leaf,
// so {"name": {"first": "Ada"}} binds "name.first". Non-records are ignored.
func (e *Engine) SetValues(v any) {
	rec := ValueOf(v)
	if rec.Kind() != KindRecord {
		e.log.Debug("binding dropped", "fn", "set", "kind", rec.Kind().String())
		return
	}
	for _, f := range rec.Flatten() {
		e.SetValue(f.Key, f.Value)
	}
}

// SetScope routes subsequent Set calls into the locals of the named block.
// Locals take priority over globals when that block is rendered.
func (e *Engine) SetScope(name string) error {
	b, err := e.lookup(name)
	if err != nil {
		return err
	}
	e.scope = b.Name
	return nil
}

// ClearScope detaches the active scope; Set goes global again.
func (e *Engine) ClearScope() {
	e.scope = ""
}

// ResetScope wipes the locals of the scoped block but keeps the scope
// active, so values from one iteration do not leak into the next.
func (e *Engine) ResetScope() {
	if e.scope == "" {
		return
	}
	clear(e.stateOf(e.scope).locals)
}

// Scope returns the name of the scoped block, if any.
func (e *Engine) Scope() (string, bool) {
	return string(e.scope), e.scope != ""
}

// Global returns the current global binding for name.
func (e *Engine) Global(name string) (string, bool) {
	v, ok := e.globals[name]
	return v, ok
}

// Local returns the current local binding for name in block.
func (e *Engine) Local(block, name string) (string, bool, error) {
	b, err := e.lookup(block)
	if err != nil {
		return "", false, err
	}
	st, ok := e.state[b.Name]
	if !ok {
		return "", false, nil
	}
	v, ok := st.locals[name]
	return v, ok, nil
}

// resolve picks the value of one variable for one emission of block id:
// a local binding, else a global this block has not used yet in the pass,
// else the empty string.
func (e *Engine) resolve(p *pass, id tree.ID, st *blockState, name string) string {
	if v, ok := st.locals[name]; ok {
		return v
	}
	used := p.usedBy(id)
	if _, done := used[name]; done {
		return ""
	}
	if v, ok := e.globals[name]; ok {
		used[name] = struct{}{}
		p.consumed[name] = struct{}{}
		return v
	}
	return ""
}
