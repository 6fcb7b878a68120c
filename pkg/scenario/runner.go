package scenario

import (
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/rbset/pkg/rbtree"
)

// Failure is one unmet expectation.
type Failure struct {
	Kind    StepKind
	Message string
	// Step is the 1-based step index.
	Step int
}

func (f Failure) String() string {
	return fmt.Sprintf("step %d (%s): %s", f.Step, f.Kind, f.Message)
}

// Result summarises a replay.
type Result struct {
	Name     string
	Failures []Failure
	// Keys is the final in-order traversal.
	Keys  []int
	Steps int
}

// Passed reports whether every step held.
func (r Result) Passed() bool {
	return len(r.Failures) == 0
}

// Run replays doc on a fresh tree built with opts. Expectation failures are
// collected; an invariant violation (with Verify set) ends the replay.
func Run(doc *Document, opts ...rbtree.Option[int]) Result {
	tree := rbtree.NewOrdered(opts...)
	result := Result{Name: doc.Name}

	fail := func(step int, kind StepKind, format string, args ...any) {
		result.Failures = append(result.Failures, Failure{Step: step, Kind: kind, Message: fmt.Sprintf(format, args...)})
	}

	for idx, step := range doc.Steps {
		number := idx + 1
		kind := step.Kind()
		result.Steps = number

		switch kind {
		case KindInsert, KindRemove:
			keys := step.Insert
			apply := tree.Insert

			if kind == KindRemove {
				keys = step.Remove
				apply = tree.Remove
			}

			for _, key := range keys {
				apply(key)

				if !doc.Verify {
					continue
				}

				if err := tree.Verify(); err != nil {
					fail(number, kind, "after %s(%d): %v", kind, key, err)
					result.Keys = tree.Keys()

					return result
				}
			}
		case KindContains:
			for _, key := range step.Contains.Keys {
				if got := tree.Contains(key); got != step.Contains.Want {
					fail(number, kind, "contains(%d) = %t, want %t", key, got, step.Contains.Want)
				}
			}
		case KindExpect:
			want := *step.Expect
			if got := tree.Keys(); !slices.Equal(want, got) {
				fail(number, kind, "in-order keys differ (-want +got):\n%s", Diff(want, got))
			}
		}
	}

	result.Keys = tree.Keys()

	return result
}
