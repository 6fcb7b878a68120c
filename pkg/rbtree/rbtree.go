// Package rbtree implements an ordered set of unique keys on a red-black tree.
//
// Nodes live in an arena (Allocator) and refer to each other by uint32 handles.
// Handle 0 is the shared absent child: it is never allocated and always reads as black.
package rbtree

import (
	"fmt"
	"iter"
	"slices"

	"golang.org/x/exp/constraints"
)

type node[K any] struct {
	key                 K
	parent, left, right uint32
	color               Color
}

// Tree is an ordered set of unique keys. It is not safe for concurrent use.
type Tree[K any] struct {
	allocator *Allocator[K]
	compare   func(a, b K) int
	hooks     []Hook[K]
	root      uint32
	count     int
	verify    bool
}

// Option configures a Tree.
type Option[K any] func(*Tree[K])

// WithAllocator places the tree's nodes in a caller-owned arena, which may be shared.
func WithAllocator[K any](allocator *Allocator[K]) Option[K] {
	return func(tree *Tree[K]) {
		tree.allocator = allocator
	}
}

// WithHook registers an observer of rotations, recolors and fixup cases.
func WithHook[K any](hook Hook[K]) Option[K] {
	return func(tree *Tree[K]) {
		if hook != nil {
			tree.hooks = append(tree.hooks, hook)
		}
	}
}

// WithVerify makes every successful Insert and Remove run Verify and panic on a violation.
func WithVerify[K any](enabled bool) Option[K] {
	return func(tree *Tree[K]) {
		tree.verify = enabled
	}
}

// New creates an empty set ordered by compare, which returns a negative number,
// zero or a positive number when a sorts before, equal to or after b.
func New[K any](compare func(a, b K) int, opts ...Option[K]) *Tree[K] {
	if compare == nil {
		panic("rbtree: nil compare function")
	}

	tree := &Tree[K]{compare: compare}
	for _, opt := range opts {
		opt(tree)
	}

	if tree.allocator == nil {
		tree.allocator = NewAllocator[K]()
	}

	return tree
}

// NewOrdered creates an empty set of naturally ordered keys.
// Floating point NaN keys are not supported.
func NewOrdered[K constraints.Ordered](opts ...Option[K]) *Tree[K] {
	return New(compareOrdered[K], opts...)
}

func compareOrdered[K constraints.Ordered](a, b K) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Allocator returns the arena holding the tree's nodes.
func (tree *Tree[K]) Allocator() *Allocator[K] {
	return tree.allocator
}

// Len returns the number of keys in the set.
func (tree *Tree[K]) Len() int {
	return tree.count
}

// Contains reports whether key is in the set.
func (tree *Tree[K]) Contains(key K) bool {
	return tree.find(key) != 0
}

// Min returns the smallest key.
func (tree *Tree[K]) Min() (K, bool) {
	tree.allocator.mustBeAwake()

	if tree.root == 0 {
		var zero K

		return zero, false
	}

	return tree.allocator.storage[tree.minUnder(tree.root)].key, true
}

// Max returns the largest key.
func (tree *Tree[K]) Max() (K, bool) {
	tree.allocator.mustBeAwake()

	if tree.root == 0 {
		var zero K

		return zero, false
	}

	return tree.allocator.storage[tree.maxUnder(tree.root)].key, true
}

// InOrder yields the keys in ascending order. The walk follows parent links,
// so it keeps no state in the tree; the tree must not be mutated while iterating.
func (tree *Tree[K]) InOrder() iter.Seq[K] {
	return func(yield func(K) bool) {
		tree.allocator.mustBeAwake()

		if tree.root == 0 {
			return
		}

		for idx := tree.minUnder(tree.root); idx != 0; idx = tree.next(idx) {
			if !yield(tree.allocator.storage[idx].key) {
				return
			}
		}
	}
}

// Keys returns the keys in ascending order.
func (tree *Tree[K]) Keys() []K {
	keys := make([]K, 0, tree.count)

	return slices.AppendSeq(keys, tree.InOrder())
}

// Height returns the number of nodes on the longest root-to-leaf path.
func (tree *Tree[K]) Height() int {
	tree.allocator.mustBeAwake()

	return tree.height(tree.root)
}

func (tree *Tree[K]) height(idx uint32) int {
	if idx == 0 {
		return 0
	}

	nd := tree.allocator.storage[idx]

	return 1 + max(tree.height(nd.left), tree.height(nd.right))
}

// BlackHeight returns the black height of the root: the number of black nodes
// on every path from the root down to an absent child, the root excluded.
// Absent children are not counted either, so a lone black root reports 0.
// Verify counts both, which puts its black height two above this one.
func (tree *Tree[K]) BlackHeight() int {
	tree.allocator.mustBeAwake()

	if tree.root == 0 {
		return 0
	}

	blackHeight := 0

	for idx := tree.allocator.storage[tree.root].left; idx != 0; idx = tree.allocator.storage[idx].left {
		if tree.allocator.storage[idx].color == Black {
			blackHeight++
		}
	}

	return blackHeight
}

// Clear removes every key and releases the nodes back to the arena.
func (tree *Tree[K]) Clear() {
	tree.allocator.mustBeAwake()

	if tree.root == 0 {
		return
	}

	handles := make([]uint32, 0, tree.count)
	for idx := tree.minUnder(tree.root); idx != 0; idx = tree.next(idx) {
		handles = append(handles, idx)
	}

	for _, idx := range handles {
		tree.allocator.free(idx)
	}

	tree.root = 0
	tree.count = 0
}

// Clone returns an independent copy with the same shape and colors in a fresh arena.
// Hooks and the verify setting are carried over.
func (tree *Tree[K]) Clone() *Tree[K] {
	tree.allocator.mustBeAwake()

	clone := &Tree[K]{
		allocator: NewAllocator[K](),
		compare:   tree.compare,
		hooks:     slices.Clone(tree.hooks),
		count:     tree.count,
		verify:    tree.verify,
	}
	clone.allocator.HibernationThreshold = tree.allocator.HibernationThreshold

	if tree.root == 0 {
		return clone
	}

	mapping := make(map[uint32]uint32, tree.count)
	for idx := tree.minUnder(tree.root); idx != 0; idx = tree.next(idx) {
		mapping[idx] = clone.allocator.malloc()
	}

	src := tree.allocator.storage
	dst := clone.allocator.storage

	for oldIdx, newIdx := range mapping {
		old := src[oldIdx]
		dst[newIdx] = node[K]{
			key:    old.key,
			color:  old.color,
			parent: mapping[old.parent],
			left:   mapping[old.left],
			right:  mapping[old.right],
		}
	}

	clone.root = mapping[tree.root]

	return clone
}

func (tree *Tree[K]) find(key K) uint32 {
	tree.allocator.mustBeAwake()

	nodes := tree.allocator.storage
	idx := tree.root

	for idx != 0 {
		cmp := tree.compare(key, nodes[idx].key)

		switch {
		case cmp == 0:
			return idx
		case cmp < 0:
			idx = nodes[idx].left
		default:
			idx = nodes[idx].right
		}
	}

	return 0
}

func (tree *Tree[K]) afterMutation() {
	if !tree.verify {
		return
	}

	if err := tree.Verify(); err != nil {
		panic(fmt.Sprintf("rbtree: %v", err))
	}
}

func doAssert(condition bool) {
	if !condition {
		panic("rbtree internal assertion failed")
	}
}

// Internal node attribute accessors.

func (tree *Tree[K]) color(idx uint32) Color {
	if idx == 0 {
		return Black
	}

	return tree.allocator.storage[idx].color
}

func (tree *Tree[K]) isRed(idx uint32) bool {
	return tree.color(idx) == Red
}

func (tree *Tree[K]) paint(idx uint32, color Color) {
	doAssert(idx != 0)

	nd := &tree.allocator.storage[idx]
	if nd.color == color {
		return
	}

	nd.color = color

	if len(tree.hooks) > 0 {
		tree.emit(Event[K]{Kind: EventRecolor, Key: nd.key, Color: color})
	}
}

func (tree *Tree[K]) child(idx uint32, side Direction) uint32 {
	if side == Left {
		return tree.allocator.storage[idx].left
	}

	return tree.allocator.storage[idx].right
}

func (tree *Tree[K]) setChild(idx uint32, side Direction, childIdx uint32) {
	if side == Left {
		tree.allocator.storage[idx].left = childIdx
	} else {
		tree.allocator.storage[idx].right = childIdx
	}
}

// sideOf tells which child of its parent idx is. The root has no side.
func (tree *Tree[K]) sideOf(idx uint32) Direction {
	nodes := tree.allocator.storage
	parent := nodes[idx].parent
	doAssert(parent != 0)

	if nodes[parent].left == idx {
		return Left
	}

	return Right
}

func (tree *Tree[K]) minUnder(idx uint32) uint32 {
	nodes := tree.allocator.storage
	for nodes[idx].left != 0 {
		idx = nodes[idx].left
	}

	return idx
}

func (tree *Tree[K]) maxUnder(idx uint32) uint32 {
	nodes := tree.allocator.storage
	for nodes[idx].right != 0 {
		idx = nodes[idx].right
	}

	return idx
}

// next returns the in-order successor of idx, or 0 after the maximum.
func (tree *Tree[K]) next(idx uint32) uint32 {
	nodes := tree.allocator.storage
	if nodes[idx].right != 0 {
		return tree.minUnder(nodes[idx].right)
	}

	for parent := nodes[idx].parent; parent != 0; parent = nodes[parent].parent {
		if nodes[parent].left == idx {
			return parent
		}

		idx = parent
	}

	return 0
}
