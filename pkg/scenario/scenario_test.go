package scenario_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbset/pkg/rbtree"
	"github.com/Sumatoshi-tech/rbset/pkg/scenario"
)

const examplesDir = "../../examples/scenarios"

func TestParse_Valid(t *testing.T) {
	t.Parallel()

	doc, err := scenario.Parse([]byte(`name: probe
verify: true
steps:
  - insert: [3, 1, 2]
  - remove: [1]
  - contains: {keys: [2, 3], want: true}
  - expect: [2, 3]
`))
	require.NoError(t, err)

	assert.Equal(t, "probe", doc.Name)
	assert.True(t, doc.Verify)
	require.Len(t, doc.Steps, 4)

	kinds := make([]scenario.StepKind, 0, len(doc.Steps))
	for _, step := range doc.Steps {
		kinds = append(kinds, step.Kind())
	}

	assert.Equal(t, []scenario.StepKind{
		scenario.KindInsert, scenario.KindRemove, scenario.KindContains, scenario.KindExpect,
	}, kinds)
	assert.Equal(t, []int{3, 1, 2}, doc.Steps[0].Insert)
	assert.Equal(t, []int{2, 3}, *doc.Steps[3].Expect)
}

func TestParse_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "empty_document", content: ""},
		{name: "missing_steps", content: "name: x\n"},
		{name: "no_steps", content: "name: x\nsteps: []\n"},
		{name: "two_ops_in_one_step", content: "name: x\nsteps:\n  - {insert: [1], remove: [1]}\n"},
		{name: "unknown_op", content: "name: x\nsteps:\n  - upsert: [1]\n"},
		{name: "non_integer_key", content: "name: x\nsteps:\n  - insert: [a]\n"},
		{name: "contains_without_want", content: "name: x\nsteps:\n  - contains: {keys: [1]}\n"},
		{name: "unknown_top_level", content: "name: x\ncolor: red\nsteps:\n  - insert: [1]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := scenario.Parse([]byte(tt.content))
			require.ErrorIs(t, err, scenario.ErrInvalidScenario)
		})
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := scenario.Parse([]byte("name: [unclosed\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, scenario.ErrInvalidScenario)
}

func TestExampleScenariosPass(t *testing.T) {
	t.Parallel()

	files, err := scenario.Discover([]string{examplesDir})
	require.NoError(t, err)
	require.Len(t, files, 5)

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			t.Parallel()

			doc, err := scenario.Load(file)
			require.NoError(t, err)

			result := scenario.Run(doc)
			assert.True(t, result.Passed(), "%v", result.Failures)
			assert.Equal(t, len(doc.Steps), result.Steps)
		})
	}
}

func TestRun_ReportsFailures(t *testing.T) {
	t.Parallel()

	doc, err := scenario.Parse([]byte(`name: wrong
steps:
  - insert: [1, 2, 3]
  - contains: {keys: [2, 9], want: true}
  - expect: [1, 3, 4]
`))
	require.NoError(t, err)

	result := scenario.Run(doc)
	require.False(t, result.Passed())
	require.Len(t, result.Failures, 2)

	assert.Equal(t, scenario.Failure{
		Kind:    scenario.KindContains,
		Message: "contains(9) = false, want true",
		Step:    2,
	}, result.Failures[0])

	assert.Equal(t, 3, result.Failures[1].Step)
	assert.Contains(t, result.Failures[1].Message, "+ 2\n")
	assert.Contains(t, result.Failures[1].Message, "- 4\n")
	assert.Equal(t, "step 2 (contains): contains(9) = false, want true", result.Failures[0].String())
	assert.Equal(t, []int{1, 2, 3}, result.Keys)
}

func TestRun_PassesTreeOptions(t *testing.T) {
	t.Parallel()

	doc := &scenario.Document{
		Name:   "hooked",
		Verify: true,
		Steps: []scenario.Step{
			{Insert: []int{1, 2}},
			{Insert: []int{3}},
		},
	}

	events := 0
	counting := rbtree.WithHook(func(rbtree.Event[int]) { events++ })

	result := scenario.Run(doc, counting)
	assert.True(t, result.Passed())
	assert.Positive(t, events)
	assert.Equal(t, []int{1, 2, 3}, result.Keys)
}

func TestDiff(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "  1\n- 2\n  3\n+ 4\n", scenario.Diff([]int{1, 2, 3}, []int{1, 3, 4}))
	assert.Equal(t, "+ 7\n", scenario.Diff(nil, []int{7}))
	assert.Equal(t, "  5\n", scenario.Diff([]int{5}, []int{5}))
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("name: x\n"), 0o600))
	}

	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0o750))

	single := filepath.Join(dir, "notes.txt")

	files, err := scenario.Discover([]string{dir, single})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		single,
	}, files)

	_, err = scenario.Discover([]string{filepath.Join(dir, "missing")})
	require.ErrorIs(t, err, os.ErrNotExist)
}
