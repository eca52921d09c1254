// Package api holds the serialised forms shared by the engine and its stores.
package api

// CompiledTree is the portable form of a parsed template: the block tree
// relations plus every block, keyed by block name. The JSON shape matches
// the caches produced by earlier engine versions, so those can be loaded.
type CompiledTree struct {
	// ChildParentMap maps each non-root block to its parent.
	ChildParentMap map[string]string `json:"childParentMap"`
	// Nodes holds every block, root included.
	Nodes map[string]CompiledBlock `json:"nodes"`
	// NumNodes is len(Nodes) at compile time.
	NumNodes int `json:"numNodes"`
	// Tree maps each parent to its ordered children.
	Tree map[string][]string `json:"tree"`
	// Order lists block names in extraction order. Absent in legacy caches.
	Order []string `json:"order,omitempty"`
}

// CompiledBlock is one serialised block.
//
// Touched, ParsedContent, VariableCache and UsedVariables describe render
// state. They are always written empty and ignored on load; they are kept
// only so the shape stays compatible with existing caches.
type CompiledBlock struct {
	Name          string         `json:"name"`
	Content       string         `json:"content"`
	Touched       int            `json:"touched"`
	Variables     []string       `json:"variables"`
	ParsedContent []string       `json:"parsedContent"`
	VariableCache map[string]any `json:"variableCache"`
	UsedVariables map[string]any `json:"usedVariables"`
}
