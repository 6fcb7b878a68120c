// Package scenario loads and replays YAML scripts of set operations against an rbtree.
//
// A scenario is a named list of steps, each holding exactly one of:
//
//	insert:   [20, 10, 35]            # keys, in order
//	remove:   [10]
//	contains: {keys: [87], want: false}
//	expect:   [20, 35]                # full in-order traversal
//
// With verify: true every tree invariant is checked after each single key.
package scenario

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario is returned when a document does not match the scenario schema.
var ErrInvalidScenario = errors.New("invalid scenario")

//go:embed schema.json
var schemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// StepKind names the single operation carried by a Step.
type StepKind string

// Step kinds.
const (
	KindInsert   StepKind = "insert"
	KindRemove   StepKind = "remove"
	KindContains StepKind = "contains"
	KindExpect   StepKind = "expect"
)

// Document is a parsed scenario file.
type Document struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Steps       []Step `yaml:"steps"`
	Verify      bool   `yaml:"verify,omitempty"`
}

// Step is one scenario operation.
type Step struct {
	Contains *ContainsCheck `yaml:"contains,omitempty"`
	Expect   *[]int         `yaml:"expect,omitempty"`
	Insert   []int          `yaml:"insert,omitempty"`
	Remove   []int          `yaml:"remove,omitempty"`
}

// ContainsCheck asserts membership of every listed key.
type ContainsCheck struct {
	Keys []int `yaml:"keys"`
	Want bool  `yaml:"want"`
}

// Kind reports which operation the step carries.
func (s Step) Kind() StepKind {
	switch {
	case s.Contains != nil:
		return KindContains
	case s.Expect != nil:
		return KindExpect
	case s.Remove != nil:
		return KindRemove
	default:
		return KindInsert
	}
}

// Parse validates data against the scenario schema and decodes it.
func Parse(data []byte) (*Document, error) {
	var raw any

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse scenario yaml: %w", err)
	}

	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile scenario schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validate scenario: %w", err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			problems = append(problems, resultErr.Field()+": "+resultErr.Description())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidScenario, strings.Join(problems, "; "))
	}

	var doc Document

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}

	return &doc, nil
}

// Load reads and parses a scenario file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return doc, nil
}

// Discover expands directories to the *.yaml and *.yml files they hold, sorted.
// Plain file paths are passed through.
func Discover(paths []string) ([]string, error) {
	var files []string

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("scenario path: %w", err)
		}

		if !info.IsDir() {
			files = append(files, path)

			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("read scenario dir: %w", err)
		}

		var found []string

		for _, entry := range entries {
			ext := filepath.Ext(entry.Name())
			if !entry.IsDir() && (ext == ".yaml" || ext == ".yml") {
				found = append(found, filepath.Join(path, entry.Name()))
			}
		}

		slices.Sort(found)
		files = append(files, found...)
	}

	return files, nil
}
