package rbtree

// Color is the red/black tag of a node.
type Color bool

const (
	// Red is the color of every freshly inserted node.
	Red Color = false
	// Black is the color of the root and of every absent child.
	Black Color = true
)

func (c Color) String() string {
	if c == Black {
		return "black"
	}

	return "red"
}

// Direction names a child side and the sense of a rotation.
type Direction uint8

const (
	// Left is the smaller-keys side.
	Left Direction = iota
	// Right is the larger-keys side.
	Right
)

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	return d ^ 1
}

func (d Direction) String() string {
	if d == Left {
		return "left"
	}

	return "right"
}

// EventKind classifies a structural event.
type EventKind uint8

const (
	// EventRotate is emitted once per rotation. Key is the pivot, Direction the rotation sense.
	EventRotate EventKind = iota + 1
	// EventRecolor is emitted when a node changes color. Color is the new color.
	EventRecolor
	// EventFixup is emitted when a rebalancing case is selected. Key is the case anchor.
	EventFixup
)

func (k EventKind) String() string {
	switch k {
	case EventRotate:
		return "rotate"
	case EventRecolor:
		return "recolor"
	case EventFixup:
		return "fixup"
	default:
		return "unknown"
	}
}

// FixupCase identifies the rebalancing case picked by insert or delete.
type FixupCase uint8

// Insert cases are anchored at the grandparent (the parent for the zig-zag);
// delete cases at the parent of the short position.
const (
	CaseNone FixupCase = iota
	// CaseInsertRecolor: red uncle, push blackness down from the grandparent.
	CaseInsertRecolor
	// CaseInsertZigZag: black uncle, inner grandchild, straighten the path.
	CaseInsertZigZag
	// CaseInsertStraight: black uncle, outer grandchild, rotate the grandparent.
	CaseInsertStraight
	// CaseDeleteRedSibling: rotate toward the short side to get a black sibling.
	CaseDeleteRedSibling
	// CaseDeleteBlackNephews: repaint the sibling red, absorb or propagate upward.
	CaseDeleteBlackNephews
	// CaseDeleteRedNephew: one or two rotations settle the deficiency.
	CaseDeleteRedNephew
)

func (c FixupCase) String() string {
	switch c {
	case CaseNone:
		return "none"
	case CaseInsertRecolor:
		return "insert_recolor"
	case CaseInsertZigZag:
		return "insert_zigzag"
	case CaseInsertStraight:
		return "insert_straight"
	case CaseDeleteRedSibling:
		return "delete_red_sibling"
	case CaseDeleteBlackNephews:
		return "delete_black_nephews"
	case CaseDeleteRedNephew:
		return "delete_red_nephew"
	default:
		return "unknown"
	}
}

// Event describes one structural step taken while rebalancing.
type Event[K any] struct {
	Kind      EventKind
	Key       K
	Direction Direction
	Color     Color
	Case      FixupCase
}

// Hook observes structural events. It runs synchronously inside the mutating call
// and must not touch the tree.
type Hook[K any] func(Event[K])

func (tree *Tree[K]) emit(event Event[K]) {
	for _, hook := range tree.hooks {
		hook(event)
	}
}

func (tree *Tree[K]) emitFixup(fixup FixupCase, anchor uint32) {
	if len(tree.hooks) == 0 {
		return
	}

	tree.emit(Event[K]{Kind: EventFixup, Key: tree.allocator.storage[anchor].key, Case: fixup})
}
