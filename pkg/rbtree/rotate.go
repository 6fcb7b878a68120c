package rbtree

// rotate promotes the child of pivot opposite to dir into pivot's place and
// makes pivot its child on the dir side. The promoted child's inner subtree
// moves across to pivot, parent link included.
//
// Left rotation:
//
//	  X              Y
//	A   Y    =>    X   C
//	  B C        A B
//
// Right rotation:
//
//	    Y            X
//	  X   C  =>    A   Y
//	A B              B C
//
//nolint:dupword // ASCII art diagrams contain intentional repeated letters.
func (tree *Tree[K]) rotate(pivot uint32, dir Direction) {
	nodes := tree.allocator.storage

	promoted := tree.child(pivot, dir.Opposite())
	doAssert(promoted != 0)

	inner := tree.child(promoted, dir)
	tree.setChild(pivot, dir.Opposite(), inner)

	if inner != 0 {
		nodes[inner].parent = pivot
	}

	parent := nodes[pivot].parent
	nodes[promoted].parent = parent

	switch {
	case parent == 0:
		tree.root = promoted
	case nodes[parent].left == pivot:
		nodes[parent].left = promoted
	default:
		nodes[parent].right = promoted
	}

	tree.setChild(promoted, dir, pivot)
	nodes[pivot].parent = promoted

	if len(tree.hooks) > 0 {
		tree.emit(Event[K]{Kind: EventRotate, Key: nodes[pivot].key, Direction: dir})
	}
}
