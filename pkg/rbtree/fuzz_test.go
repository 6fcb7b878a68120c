package rbtree //nolint:testpackage // shares fixtures with the internal tests.

import (
	"slices"
	"testing"
)

// FuzzInsertRemove treats every byte as an operation: the high bit selects
// remove, the low six bits are the key.
func FuzzInsertRemove(f *testing.F) {
	f.Add([]byte{4, 3, 5, 2, 6, 1, 7})
	f.Add([]byte{20, 10, 35, 15, 25, 30, 9, 14, 0x80 | 10})
	f.Add([]byte{1, 2, 3, 4, 5, 6, 0x81, 0x82, 0x83})

	f.Fuzz(func(t *testing.T, ops []byte) {
		tree := testNewIntSet()
		model := map[int]bool{}

		for _, op := range ops {
			key := int(op & 0x3f)

			if op&0x80 != 0 {
				if tree.Remove(key) != model[key] {
					t.Fatalf("remove %d disagrees with model", key)
				}

				delete(model, key)
			} else {
				if tree.Insert(key) == model[key] {
					t.Fatalf("insert %d disagrees with model", key)
				}

				model[key] = true
			}

			if err := tree.Verify(); err != nil {
				t.Fatal(err)
			}
		}

		want := make([]int, 0, len(model))
		for key := range model {
			want = append(want, key)
		}

		slices.Sort(want)

		if !slices.Equal(want, tree.Keys()) {
			t.Fatalf("keys %v, want %v", tree.Keys(), want)
		}
	})
}
