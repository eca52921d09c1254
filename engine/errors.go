package engine

import (
	"errors"

	"github.com/agentic-research/brightline/internal/tree"
)

var (
	// ErrDuplicateBlockName is returned when a template declares the same
	// block name twice anywhere in its tree.
	ErrDuplicateBlockName = errors.New("duplicate block name")

	// ErrUnknownBlock is returned when an operation names a block that is
	// not in the tree.
	ErrUnknownBlock = errors.New("unknown block")

	// ErrInvalidParentChild reports a structural violation of the block tree,
	// including compiled trees that fail validation on load.
	ErrInvalidParentChild = tree.ErrInvalidParentChild
)
