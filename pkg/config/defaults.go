package config

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Telemetry defaults. An empty endpoint keeps every provider no-op.
const (
	DefaultOTLPEndpoint = ""
	DefaultOTLPInsecure = false
	DefaultSampleRatio  = 0.0
	DefaultEnvironment  = ""
)

// Tree defaults.
const (
	DefaultTreeVerify               = false
	DefaultTreeHibernationThreshold = 0
)

// Bench defaults.
const (
	DefaultBenchKeys = 100_000
	DefaultBenchSeed = 1
)
