package observability //nolint:testpackage // selectSampler is unexported.

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelectSampler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cfg      Config
		env, arg string
		want     string
	}{
		{name: "default", want: "ParentBased{root:AlwaysOnSampler"},
		{name: "ratio", cfg: Config{SampleRatio: 0.25}, want: "ParentBased{root:TraceIDRatioBased{0.25}"},
		{name: "env_wins", cfg: Config{SampleRatio: 0.25}, env: "always_off", want: "AlwaysOffSampler"},
		{name: "env_ratio", env: "traceidratio", arg: "0.5", want: "TraceIDRatioBased{0.5}"},
		{name: "env_bad_arg", env: "traceidratio", arg: "lots", want: "AlwaysOnSampler"},
		{name: "env_unknown", env: "jaeger_remote", want: "ParentBased{root:AlwaysOnSampler"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := selectSampler(tt.cfg, tt.env, tt.arg).Description()
			assert.Contains(t, got, tt.want)
		})
	}
}
