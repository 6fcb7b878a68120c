package rbtree

import (
	"errors"
	"fmt"
	"sync"

	"github.com/willf/bitset"

	"github.com/Sumatoshi-tech/rbset/pkg/safeconv"
)

// ErrCorruptColumn is returned by Boot when a hibernated column does not decode to its recorded length.
var ErrCorruptColumn = errors.New("corrupt hibernated column")

// growCapacityNumerator and growCapacityDenominator define the 3/2 growth factor used on Boot.
const (
	growCapacityNumerator   = 3
	growCapacityDenominator = 2
)

// Hibernated column layout.
const (
	columnParent = iota
	columnLeft
	columnRight
	columnColor
	columnFree
	columnCount
)

// Allocator is the node arena shared by one or more trees.
//
// Slot 0 is reserved: handle 0 means "absent" everywhere and reads as black.
// Released slots are recycled last-in first-out.
type Allocator[K any] struct {
	storage []node[K]
	gaps    []uint32
	freed   *bitset.BitSet

	// HibernationThreshold is the minimum arena size that Hibernate compresses.
	HibernationThreshold int

	hibernatedKeys       []K
	hibernatedData       [columnCount][]byte
	hibernatedStorageLen int
	hibernatedFreeLen    int
}

// NewAllocator creates an empty arena.
func NewAllocator[K any]() *Allocator[K] {
	return &Allocator[K]{
		storage: []node[K]{},
		freed:   bitset.New(0),
	}
}

// Size returns the number of slots in the arena, the reserved one and released ones included.
func (allocator *Allocator[K]) Size() int {
	return len(allocator.storage)
}

// Used returns the number of live nodes.
func (allocator *Allocator[K]) Used() int {
	allocator.mustBeAwake()

	if len(allocator.storage) == 0 {
		return 0
	}

	return len(allocator.storage) - len(allocator.gaps) - 1
}

// Hibernated reports whether the arena is currently compressed.
func (allocator *Allocator[K]) Hibernated() bool {
	return allocator.storage == nil
}

// Clone copies the arena. Handles valid in the original stay valid in the copy.
func (allocator *Allocator[K]) Clone() *Allocator[K] {
	if allocator.storage == nil {
		panic("cannot clone a hibernated allocator")
	}

	clone := &Allocator[K]{
		HibernationThreshold: allocator.HibernationThreshold,
		storage:              make([]node[K], len(allocator.storage), cap(allocator.storage)),
		gaps:                 make([]uint32, len(allocator.gaps)),
		freed:                allocator.freed.Clone(),
	}
	copy(clone.storage, allocator.storage)
	copy(clone.gaps, allocator.gaps)

	return clone
}

func (allocator *Allocator[K]) mustBeAwake() {
	if allocator.storage == nil {
		panic("hibernated allocators cannot be used")
	}
}

// malloc hands out a zeroed red node.
func (allocator *Allocator[K]) malloc() uint32 {
	allocator.mustBeAwake()

	if last := len(allocator.gaps) - 1; last >= 0 {
		idx := allocator.gaps[last]
		allocator.gaps = allocator.gaps[:last]
		allocator.freed.Clear(uint(idx))

		return idx
	}

	if len(allocator.storage) == 0 {
		allocator.storage = append(allocator.storage, node[K]{color: Black})
	}

	idx := safeconv.MustIntToUint32(len(allocator.storage))
	allocator.storage = append(allocator.storage, node[K]{})

	return idx
}

func (allocator *Allocator[K]) free(idx uint32) {
	allocator.mustBeAwake()

	if idx == 0 {
		panic("node #0 is special and cannot be deallocated")
	}

	doAssert(!allocator.freed.Test(uint(idx)))

	allocator.storage[idx] = node[K]{}
	allocator.freed.Set(uint(idx))
	allocator.gaps = append(allocator.gaps, idx)
}

// Hibernate compresses the structural columns of the arena with LZ4.
// Keys are parked as is. Arenas smaller than HibernationThreshold are left alone.
// The arena cannot be used until Boot is called.
func (allocator *Allocator[K]) Hibernate() error {
	if allocator.hibernatedStorageLen > 0 {
		panic("cannot hibernate an already hibernated Allocator")
	}

	if len(allocator.storage) < allocator.HibernationThreshold {
		return nil
	}

	if len(allocator.storage) == 0 {
		allocator.storage = nil
		allocator.gaps = nil
		allocator.freed = nil

		return nil
	}

	columns := [columnCount][]uint32{}
	for idx := range columnFree {
		columns[idx] = make([]uint32, len(allocator.storage))
	}

	keys := make([]K, len(allocator.storage))

	// Deinterleaved columns compress far better than the node structs.
	for idx, nd := range allocator.storage {
		keys[idx] = nd.key
		columns[columnParent][idx] = nd.parent
		columns[columnLeft][idx] = nd.left
		columns[columnRight][idx] = nd.right

		if nd.color == Black {
			columns[columnColor][idx] = 1
		}
	}

	columns[columnFree] = allocator.gaps

	packed, err := runColumns(func(col int) ([]byte, error) {
		return compressColumn(columns[col])
	})
	if err != nil {
		return fmt.Errorf("hibernate: %w", err)
	}

	allocator.hibernatedData = packed
	allocator.hibernatedKeys = keys
	allocator.hibernatedStorageLen = len(allocator.storage)
	allocator.hibernatedFreeLen = len(allocator.gaps)
	allocator.storage = nil
	allocator.gaps = nil
	allocator.freed = nil

	return nil
}

// Boot performs the opposite of Hibernate. It is a no-op on an awake arena.
// On error the arena stays hibernated.
func (allocator *Allocator[K]) Boot() error {
	if allocator.storage == nil && allocator.hibernatedStorageLen == 0 {
		allocator.storage = []node[K]{}
		allocator.gaps = nil
		allocator.freed = bitset.New(0)

		return nil
	}

	if allocator.hibernatedStorageLen == 0 {
		return nil
	}

	columns, err := runColumns(func(col int) ([]uint32, error) {
		length := allocator.hibernatedStorageLen
		if col == columnFree {
			length = allocator.hibernatedFreeLen
		}

		column, err := decompressColumn(allocator.hibernatedData[col], length)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", col, err)
		}

		return column, nil
	})
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}

	size := allocator.hibernatedStorageLen
	storage := make([]node[K], size, size*growCapacityNumerator/growCapacityDenominator)

	for idx := range storage {
		nd := &storage[idx]
		nd.key = allocator.hibernatedKeys[idx]
		nd.parent = columns[columnParent][idx]
		nd.left = columns[columnLeft][idx]
		nd.right = columns[columnRight][idx]
		nd.color = columns[columnColor][idx] > 0
	}

	freed := bitset.New(safeconv.MustIntToUint(size))
	for _, idx := range columns[columnFree] {
		freed.Set(uint(idx))
	}

	allocator.storage = storage
	allocator.gaps = columns[columnFree]
	allocator.freed = freed
	allocator.hibernatedKeys = nil
	allocator.hibernatedData = [columnCount][]byte{}
	allocator.hibernatedStorageLen = 0
	allocator.hibernatedFreeLen = 0

	return nil
}

// runColumns runs work once per column on its own goroutine and joins the errors.
func runColumns[T any](work func(col int) (T, error)) ([columnCount]T, error) {
	results := [columnCount]T{}
	errs := make([]error, columnCount)

	wg := &sync.WaitGroup{}
	wg.Add(columnCount)

	for col := range columnCount {
		go func() {
			defer wg.Done()

			results[col], errs[col] = work(col)
		}()
	}

	wg.Wait()

	return results, errors.Join(errs...)
}
