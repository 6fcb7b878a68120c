package rbtree

import (
	"errors"
	"fmt"
)

// Verification errors.
var (
	ErrRedRoot     = errors.New("root is red")
	ErrRedRed      = errors.New("red node has a red child")
	ErrBlackHeight = errors.New("black height differs between subtrees")
	ErrOrder       = errors.New("keys are not strictly ascending")
	ErrParentLink  = errors.New("parent link does not match child link")
	ErrCount       = errors.New("node count does not match Len")
)

// Verify checks every red-black and search-tree property and returns the first violation found.
func (tree *Tree[K]) Verify() error {
	tree.allocator.mustBeAwake()

	if tree.root == 0 {
		if tree.count != 0 {
			return fmt.Errorf("%w: empty tree, Len %d", ErrCount, tree.count)
		}

		return nil
	}

	root := tree.allocator.storage[tree.root]
	if root.parent != 0 {
		return fmt.Errorf("%w: root %v has parent #%d", ErrParentLink, root.key, root.parent)
	}

	if root.color == Red {
		return fmt.Errorf("%w: %v", ErrRedRoot, root.key)
	}

	size, _, err := tree.verifySubtree(tree.root)
	if err != nil {
		return err
	}

	if size != tree.count {
		return fmt.Errorf("%w: %d reachable, Len %d", ErrCount, size, tree.count)
	}

	prev := tree.minUnder(tree.root)
	for idx := tree.next(prev); idx != 0; prev, idx = idx, tree.next(idx) {
		prevKey, key := tree.allocator.storage[prev].key, tree.allocator.storage[idx].key
		if tree.compare(prevKey, key) >= 0 {
			return fmt.Errorf("%w: %v before %v", ErrOrder, prevKey, key)
		}
	}

	return nil
}

// verifySubtree returns the node count and black height under idx.
func (tree *Tree[K]) verifySubtree(idx uint32) (size, blackHeight int, err error) {
	if idx == 0 {
		return 0, 1, nil
	}

	nd := tree.allocator.storage[idx]

	for _, childIdx := range [2]uint32{nd.left, nd.right} {
		if childIdx == 0 {
			continue
		}

		child := tree.allocator.storage[childIdx]
		if child.parent != idx {
			return 0, 0, fmt.Errorf("%w: %v under %v points at #%d", ErrParentLink, child.key, nd.key, child.parent)
		}

		if nd.color == Red && child.color == Red {
			return 0, 0, fmt.Errorf("%w: %v under %v", ErrRedRed, child.key, nd.key)
		}
	}

	leftSize, leftHeight, err := tree.verifySubtree(nd.left)
	if err != nil {
		return 0, 0, err
	}

	rightSize, rightHeight, err := tree.verifySubtree(nd.right)
	if err != nil {
		return 0, 0, err
	}

	if leftHeight != rightHeight {
		return 0, 0, fmt.Errorf("%w: %v has %d on the left, %d on the right",
			ErrBlackHeight, nd.key, leftHeight, rightHeight)
	}

	if nd.color == Black {
		leftHeight++
	}

	return leftSize + rightSize + 1, leftHeight, nil
}
