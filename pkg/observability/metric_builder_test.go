package observability //nolint:testpackage // metricBuilder is unexported.

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
)

var (
	errFirstInstrument  = errors.New("first instrument failed")
	errSecondInstrument = errors.New("second instrument failed")
)

func TestMetricBuilder_Instruments(t *testing.T) {
	t.Parallel()

	b := newMetricBuilder(noopmetric.NewMeterProvider().Meter("test"))

	c := b.counter(metricRotations, "rotations", "{rotation}")
	h := b.histogram(metricRunDuration, "duration", "s", runBucketBoundaries...)
	bare := b.histogram("rbset.test.unbounded", "no bounds", "s")

	require.NoError(t, b.err)
	assert.NotNil(t, c)
	assert.NotNil(t, h)
	assert.NotNil(t, bare)
}

func TestMetricBuilder_KeepsFirstError(t *testing.T) {
	t.Parallel()

	b := newMetricBuilder(noopmetric.NewMeterProvider().Meter("test"))

	b.setErr("ok.metric", nil)
	require.NoError(t, b.err)

	b.setErr("first.metric", errFirstInstrument)
	b.setErr("second.metric", errSecondInstrument)

	require.ErrorIs(t, b.err, errFirstInstrument)
	assert.NotErrorIs(t, b.err, errSecondInstrument)
	assert.Contains(t, b.err.Error(), "first.metric")
}
