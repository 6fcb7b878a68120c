package rbtree

// Remove deletes key from the set. It returns false when key is absent.
//
// A node with two children takes over the key of its in-order predecessor,
// and the predecessor's slot is the one that actually leaves the tree.
func (tree *Tree[K]) Remove(key K) bool {
	idx := tree.find(key)
	if idx == 0 {
		return false
	}

	nd := tree.allocator.storage[idx]
	if nd.left != 0 && nd.right != 0 {
		pred := tree.maxUnder(nd.left)
		predKey := tree.allocator.storage[pred].key

		tree.unlink(pred)
		tree.allocator.storage[idx].key = predKey
	} else {
		tree.unlink(idx)
	}

	tree.count--
	tree.afterMutation()

	return true
}

// unlink removes a node with at most one child.
func (tree *Tree[K]) unlink(idx uint32) {
	nodes := tree.allocator.storage
	nd := &nodes[idx]
	doAssert(nd.left == 0 || nd.right == 0)

	childIdx := nd.left
	if childIdx == 0 {
		childIdx = nd.right
	}

	if childIdx == 0 {
		parent := nd.parent
		if parent == 0 {
			tree.root = 0
			tree.allocator.free(idx)

			return
		}

		side := tree.sideOf(idx)
		wasBlack := nd.color == Black

		tree.setChild(parent, side, 0)
		tree.allocator.free(idx)

		if wasBlack {
			tree.deleteFixup(parent, side)
		}

		return
	}

	// The lone child is folded into idx: key and children move up, the child's slot is released.
	child := nodes[childIdx]
	absorbed := nd.color == Red || child.color == Red

	nd.key = child.key
	nd.left = child.left
	nd.right = child.right

	if nd.left != 0 {
		nodes[nd.left].parent = idx
	}

	if nd.right != 0 {
		nodes[nd.right].parent = idx
	}

	tree.allocator.free(childIdx)

	if absorbed || nd.parent == 0 {
		tree.paint(idx, Black)

		return
	}

	tree.deleteFixup(nd.parent, tree.sideOf(idx))
}

// deleteFixup restores black-height after the subtree at (parent, side) lost
// one black node. The position itself may be empty, hence the parent anchor.
func (tree *Tree[K]) deleteFixup(parent uint32, side Direction) {
	nodes := tree.allocator.storage

	for {
		if parent == 0 {
			if tree.root != 0 {
				tree.paint(tree.root, Black)
			}

			return
		}

		sibling := tree.child(parent, side.Opposite())
		// The sibling subtree carries at least one black node.
		doAssert(sibling != 0)

		if tree.isRed(sibling) {
			tree.emitFixup(CaseDeleteRedSibling, parent)
			tree.rotate(parent, side)
			tree.paint(sibling, Black)
			tree.paint(parent, Red)

			continue
		}

		near := tree.child(sibling, side)
		far := tree.child(sibling, side.Opposite())

		if !tree.isRed(near) && !tree.isRed(far) {
			tree.emitFixup(CaseDeleteBlackNephews, parent)
			tree.paint(sibling, Red)

			if tree.isRed(parent) {
				tree.paint(parent, Black)

				return
			}

			grandparent := nodes[parent].parent
			if grandparent != 0 {
				side = tree.sideOf(parent)
			}

			parent = grandparent

			continue
		}

		tree.emitFixup(CaseDeleteRedNephew, parent)

		if !tree.isRed(far) {
			tree.rotate(sibling, side.Opposite())
			tree.paint(sibling, Red)
			far = sibling
			sibling = near
		}

		tree.paint(sibling, tree.color(parent))
		tree.paint(parent, Black)
		tree.paint(far, Black)
		tree.rotate(parent, side)

		return
	}
}
