package observability_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/rbset/pkg/observability"
	"github.com/Sumatoshi-tech/rbset/pkg/rbtree"
)

func newExporterWithTreeMetrics(t *testing.T) *observability.PrometheusExporter {
	t.Helper()

	exporter, err := observability.NewPrometheusExporter()
	require.NoError(t, err)
	t.Cleanup(func() { _ = exporter.Shutdown(context.Background()) })

	tm, err := observability.NewTreeMetrics(exporter.Meter())
	require.NoError(t, err)

	tree := rbtree.NewOrdered(rbtree.WithHook(observability.TreeHook[int](context.Background(), tm)))
	for key := range 64 {
		tree.Insert(key)
	}

	return exporter
}

func TestPrometheusExporter_WriteText(t *testing.T) {
	t.Parallel()

	exporter := newExporterWithTreeMetrics(t)

	var buf bytes.Buffer
	require.NoError(t, exporter.WriteText(&buf))

	body := buf.String()
	assert.Contains(t, body, "rbset_tree_rotations")
	assert.Contains(t, body, `direction="left"`)
	assert.Contains(t, body, "rbset_tree_fixups")
	assert.Contains(t, body, `case="insert_recolor"`)
}

func TestPrometheusExporter_Handler(t *testing.T) {
	t.Parallel()

	exporter := newExporterWithTreeMetrics(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	rec := httptest.NewRecorder()

	exporter.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "target_info")
	assert.Contains(t, rec.Body.String(), "rbset_tree_recolors")
}
