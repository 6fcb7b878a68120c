package rbtree //nolint:testpackage // tests require access to unexported fields (storage, gaps, hibernatedData).

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocatorFreeZero(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	alloc.malloc()
	assert.PanicsWithValue(t, "node #0 is special and cannot be deallocated", func() { alloc.free(0) })
}

func TestAllocatorDoubleFree(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	idx := alloc.malloc()
	alloc.free(idx)
	assert.PanicsWithValue(t, "rbtree internal assertion failed", func() { alloc.free(idx) })
}

func TestAllocatorReusesLastFreed(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	first, second, third := alloc.malloc(), alloc.malloc(), alloc.malloc()
	assert.Equal(t, []uint32{1, 2, 3}, []uint32{first, second, third})
	assert.Equal(t, 3, alloc.Used())
	assert.Equal(t, 4, alloc.Size())

	alloc.storage[first].key = 42
	alloc.free(first)
	alloc.free(third)
	assert.Equal(t, 1, alloc.Used())
	assert.Equal(t, node[int]{}, alloc.storage[first], "released slots are zeroed")

	assert.Equal(t, third, alloc.malloc())
	assert.Equal(t, first, alloc.malloc())
	assert.Equal(t, uint32(4), alloc.malloc())
	assert.Equal(t, 4, alloc.Used())
}

func TestAllocatorClone(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	alloc.HibernationThreshold = 3
	tree := testNewIntSet(WithAllocator(alloc))
	insertAll(tree, 7, 8, 9)
	tree.Remove(8)

	clone := alloc.Clone()
	assert.Equal(t, 3, clone.HibernationThreshold)
	assert.Equal(t, alloc.storage, clone.storage)
	assert.Equal(t, alloc.Used(), clone.Used())

	clone.malloc()
	assert.Equal(t, 2, alloc.Used())
	assert.Equal(t, 3, clone.Used())
}

func TestAllocatorHibernateBoot(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	tree := testNewIntSet(WithAllocator(alloc))
	insertAll(tree, bulkKeys...)

	for _, key := range bulkKeys[:30] {
		tree.Remove(key)
	}

	keys := tree.Keys()
	height := tree.Height()
	size := alloc.Size()
	gaps := append([]uint32(nil), alloc.gaps...)

	require.NoError(t, alloc.Hibernate())
	assert.True(t, alloc.Hibernated())
	assert.Equal(t, 0, alloc.Size())
	assert.Equal(t, size, alloc.hibernatedStorageLen)
	assert.Equal(t, len(gaps), alloc.hibernatedFreeLen)

	assert.PanicsWithValue(t, "cannot hibernate an already hibernated Allocator", func() { _ = alloc.Hibernate() })
	assert.PanicsWithValue(t, "hibernated allocators cannot be used", func() { alloc.Used() })
	assert.PanicsWithValue(t, "hibernated allocators cannot be used", func() { alloc.malloc() })
	assert.PanicsWithValue(t, "hibernated allocators cannot be used", func() { alloc.free(1) })
	assert.PanicsWithValue(t, "cannot clone a hibernated allocator", func() { alloc.Clone() })
	assert.PanicsWithValue(t, "hibernated allocators cannot be used", func() { tree.Insert(1) })
	assert.PanicsWithValue(t, "hibernated allocators cannot be used", func() { tree.Contains(1) })

	require.NoError(t, alloc.Boot())
	assert.False(t, alloc.Hibernated())
	assert.Equal(t, size, alloc.Size())
	assert.Equal(t, gaps, alloc.gaps)
	assert.Equal(t, keys, tree.Keys())
	assert.Equal(t, height, tree.Height())
	requireValid(t, tree)

	require.NoError(t, alloc.Boot(), "booting an awake arena is a no-op")

	tree.Insert(1)
	assert.Equal(t, size, alloc.Size(), "free stack survives hibernation")
	requireValid(t, tree)
}

func TestAllocatorHibernateBootEmpty(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	require.NoError(t, alloc.Hibernate())
	assert.True(t, alloc.Hibernated())

	require.NoError(t, alloc.Boot())
	assert.Equal(t, 0, alloc.Size())
	assert.Equal(t, 0, alloc.Used())
	assert.Equal(t, uint32(1), alloc.malloc())
}

func TestAllocatorHibernateThreshold(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	alloc.HibernationThreshold = 5
	tree := testNewIntSet(WithAllocator(alloc))
	insertAll(tree, 1, 2, 3)

	require.NoError(t, alloc.Hibernate())
	assert.False(t, alloc.Hibernated())
	assert.Equal(t, 0, alloc.hibernatedStorageLen)

	tree.Insert(4)
	require.NoError(t, alloc.Hibernate())
	assert.True(t, alloc.Hibernated())
	assert.Equal(t, 5, alloc.hibernatedStorageLen)
	assert.Equal(t, 0, alloc.hibernatedFreeLen)

	require.NoError(t, alloc.Boot())
	assert.Equal(t, []int{1, 2, 3, 4}, tree.Keys())
}

func TestAllocatorBootCorruptColumn(t *testing.T) {
	t.Parallel()

	alloc := NewAllocator[int]()
	tree := testNewIntSet(WithAllocator(alloc))
	insertAll(tree, bulkKeys...)
	require.NoError(t, alloc.Hibernate())

	short, err := compressColumn([]uint32{1, 2, 3})
	require.NoError(t, err)

	alloc.hibernatedData[columnLeft] = short

	err = alloc.Boot()
	require.ErrorIs(t, err, ErrCorruptColumn)
	assert.True(t, alloc.Hibernated(), "a failed boot keeps the arena hibernated")
}

func TestColumnCodec(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	column := make([]uint32, 4096)

	for idx := range column {
		column[idx] = uint32(rng.Intn(64))
	}

	packed, err := compressColumn(column)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(column)*uint32ByteSize)

	restored, err := decompressColumn(packed, len(column))
	require.NoError(t, err)
	assert.Equal(t, column, restored)

	empty, err := compressColumn(nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	restored, err = decompressColumn(empty, 0)
	require.NoError(t, err)
	assert.Empty(t, restored)
}

func TestAllocatorHibernateBootSmallTrees(t *testing.T) {
	t.Parallel()

	for size := range 6 {
		alloc := NewAllocator[int]()
		tree := testNewIntSet(WithAllocator(alloc))

		for key := range size {
			tree.Insert(key * 10)
		}

		keys := tree.Keys()

		require.NoError(t, alloc.Hibernate(), "size %d", size)
		require.NoError(t, alloc.Boot(), "size %d", size)

		assert.Equal(t, keys, tree.Keys(), "size %d", size)
		assert.Empty(t, alloc.gaps, "size %d", size)
		assert.Equal(t, size, alloc.Used(), "size %d", size)

		tree.Insert(-1)
		tree.Remove(0)
		requireValid(t, tree)
	}
}

func TestAllocatorSharedByVerifiedTrees(t *testing.T) {
	t.Parallel()

	const (
		ops      = 50_000
		keySpace = 256
	)

	alloc := NewAllocator[int]()
	trees := [2]*Tree[int]{
		testNewIntSet(WithAllocator(alloc), WithVerify[int](true)),
		testNewIntSet(WithAllocator(alloc), WithVerify[int](true)),
	}

	rng := rand.New(rand.NewSource(7))

	for range ops {
		tree := trees[rng.Intn(len(trees))]
		key := rng.Intn(keySpace)

		if rng.Intn(2) == 0 {
			tree.Insert(key)
		} else {
			tree.Remove(key)
		}
	}

	assert.Equal(t, trees[0].Len()+trees[1].Len(), alloc.Used())
	assert.Equal(t, alloc.Size()-1-alloc.Used(), len(alloc.gaps))

	clone := trees[0].Clone()
	assert.Equal(t, trees[0].Keys(), clone.Keys())
	requireValid(t, clone)

	trees[0].Clear()
	assert.Equal(t, 0, trees[0].Len())
	assert.Equal(t, trees[1].Len(), alloc.Used())
	requireValid(t, trees[1])
}
