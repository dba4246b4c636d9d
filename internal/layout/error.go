package layout

import (
	"fmt"
	"strings"

	"vire/internal/types"
)

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrRecursiveUnsized indicates a type that contains itself by value.
	LayoutErrRecursiveUnsized LayoutErrorKind = iota + 1
	// LayoutErrInvalidType indicates a TypeID unknown to the interner.
	LayoutErrInvalidType
)

// LayoutError represents an error during layout calculation.
type LayoutError struct {
	Kind       LayoutErrorKind
	Type       types.TypeID
	Cycle      []types.TypeID // for LayoutErrRecursiveUnsized
	CycleNames []string       // rendered Cycle, same length
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case LayoutErrRecursiveUnsized:
		parts := e.CycleNames
		if len(parts) == 0 {
			for _, id := range e.Cycle {
				parts = append(parts, fmt.Sprintf("type#%d", id))
			}
		}
		if len(parts) == 0 {
			return fmt.Sprintf("recursive value type has infinite size (type#%d)", e.Type)
		}
		return fmt.Sprintf("recursive value type has infinite size (cycle: %s)", strings.Join(parts, " -> "))
	case LayoutErrInvalidType:
		return fmt.Sprintf("invalid type#%d", e.Type)
	default:
		return fmt.Sprintf("layout error kind=%d type#%d", e.Kind, e.Type)
	}
}
