package scenario

import (
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff renders a line diff of two key sequences, one key per line,
// prefixed with "-" for missing keys and "+" for unexpected ones.
func Diff(want, got []int) string {
	dmp := diffmatchpatch.New()

	wantChars, gotChars, lines := dmp.DiffLinesToChars(keyLines(want), keyLines(got))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(wantChars, gotChars, false), lines)

	var sb strings.Builder

	for _, diff := range diffs {
		prefix := "  "

		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffEqual:
		}

		for line := range strings.SplitSeq(strings.TrimSuffix(diff.Text, "\n"), "\n") {
			if line == "" {
				continue
			}

			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

func keyLines(keys []int) string {
	var sb strings.Builder

	for _, key := range keys {
		sb.WriteString(strconv.Itoa(key))
		sb.WriteByte('\n')
	}

	return sb.String()
}
