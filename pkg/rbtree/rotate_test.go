package rbtree //nolint:testpackage // rotation is unexported.

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testNode(tree *Tree[int], key int) uint32 {
	idx := tree.allocator.malloc()
	tree.allocator.storage[idx].key = key
	tree.allocator.storage[idx].color = Black

	return idx
}

func testAttach(tree *Tree[int], parent uint32, side Direction, child uint32) {
	tree.setChild(parent, side, child)
	tree.allocator.storage[child].parent = parent
}

// rotationFixture links P(X(A, Y(B, C)), -) and returns the handles.
func rotationFixture() (tree *Tree[int], p, x, y, a, b, c uint32) {
	tree = testNewIntSet()
	p = testNode(tree, 10)
	x = testNode(tree, 2)
	a = testNode(tree, 1)
	y = testNode(tree, 4)
	b = testNode(tree, 3)
	c = testNode(tree, 5)

	tree.root = p
	testAttach(tree, p, Left, x)
	testAttach(tree, x, Left, a)
	testAttach(tree, x, Right, y)
	testAttach(tree, y, Left, b)
	testAttach(tree, y, Right, c)

	return tree, p, x, y, a, b, c
}

func TestRotateLeftReparentsInnerSubtree(t *testing.T) {
	t.Parallel()

	tree, p, x, y, a, b, c := rotationFixture()
	tree.rotate(x, Left)

	nodes := tree.allocator.storage
	assert.Equal(t, y, nodes[p].left)
	assert.Equal(t, p, nodes[y].parent)
	assert.Equal(t, x, nodes[y].left)
	assert.Equal(t, c, nodes[y].right)
	assert.Equal(t, y, nodes[x].parent)
	assert.Equal(t, a, nodes[x].left)
	assert.Equal(t, b, nodes[x].right)
	assert.Equal(t, x, nodes[b].parent, "inner subtree must point at its new parent")
	assert.Equal(t, y, nodes[c].parent)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 10}, tree.Keys())
}

func TestRotateRoundTrip(t *testing.T) {
	t.Parallel()

	tree, p, x, y, a, b, c := rotationFixture()
	before := append([]node[int](nil), tree.allocator.storage...)

	tree.rotate(x, Left)
	tree.rotate(y, Right)

	assert.Equal(t, before, tree.allocator.storage)
	assert.Equal(t, p, tree.root)
	assert.Equal(t, []uint32{a, b, c}, []uint32{
		tree.allocator.storage[x].left,
		tree.allocator.storage[y].left,
		tree.allocator.storage[y].right,
	})
}

func TestRotateAtRoot(t *testing.T) {
	t.Parallel()

	tree, p, x, _, _, _, _ := rotationFixture()
	tree.rotate(p, Right)

	assert.Equal(t, x, tree.root)
	assert.Equal(t, uint32(0), tree.allocator.storage[x].parent)
	assert.Equal(t, p, tree.allocator.storage[x].right)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 10}, tree.Keys())
}

func TestRotateWithoutPromotedChildPanics(t *testing.T) {
	t.Parallel()

	tree, _, _, _, a, _, _ := rotationFixture()

	assert.PanicsWithValue(t, "rbtree internal assertion failed", func() {
		tree.rotate(a, Left)
	})
}

func TestDirection(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Right, Left.Opposite())
	assert.Equal(t, Left, Right.Opposite())
	assert.Equal(t, "left", Left.String())
	assert.Equal(t, "right", Right.String())
	assert.Equal(t, "black", Black.String())
	assert.Equal(t, "red", Red.String())
}
