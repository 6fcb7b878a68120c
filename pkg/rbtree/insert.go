package rbtree

// Insert adds key to the set. It returns false and leaves the tree untouched
// when an equal key is already present.
func (tree *Tree[K]) Insert(key K) bool {
	tree.allocator.mustBeAwake()

	if tree.root == 0 {
		idx := tree.allocator.malloc()
		nd := &tree.allocator.storage[idx]
		nd.key = key
		nd.color = Black

		tree.root = idx
		tree.count++
		tree.afterMutation()

		return true
	}

	parent := tree.root

	for {
		cmp := tree.compare(key, tree.allocator.storage[parent].key)
		if cmp == 0 {
			return false
		}

		side := Right
		if cmp < 0 {
			side = Left
		}

		if next := tree.child(parent, side); next != 0 {
			parent = next

			continue
		}

		// malloc may grow the arena, so nothing holds a node pointer across it.
		idx := tree.allocator.malloc()
		nd := &tree.allocator.storage[idx]
		nd.key = key
		nd.parent = parent
		nd.color = Red
		tree.setChild(parent, side, idx)

		tree.count++
		tree.insertFixup(idx)
		tree.afterMutation()

		return true
	}
}

// insertFixup repairs red-red violations above a freshly linked red node.
func (tree *Tree[K]) insertFixup(idx uint32) {
	nodes := tree.allocator.storage

	for nodes[idx].parent != 0 && tree.isRed(nodes[idx].parent) {
		parent := nodes[idx].parent
		// A red parent is never the root.
		grandparent := nodes[parent].parent
		doAssert(grandparent != 0)

		parentSide := tree.sideOf(parent)
		uncle := tree.child(grandparent, parentSide.Opposite())

		if tree.isRed(uncle) {
			tree.emitFixup(CaseInsertRecolor, grandparent)
			tree.paint(parent, Black)
			tree.paint(uncle, Black)

			if grandparent != tree.root {
				tree.paint(grandparent, Red)
			}

			idx = grandparent

			continue
		}

		if tree.sideOf(idx) != parentSide {
			tree.emitFixup(CaseInsertZigZag, parent)
			tree.rotate(parent, parentSide)
			idx = parent

			continue
		}

		tree.emitFixup(CaseInsertStraight, grandparent)
		tree.rotate(grandparent, parentSide.Opposite())
		tree.paint(parent, Black)
		tree.paint(grandparent, Red)

		break
	}

	tree.paint(tree.root, Black)
}
