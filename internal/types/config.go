package types

// RunMode is the deployment mode of the process
type RunMode string

const (
	ModeLocal  RunMode = "local"
	ModeProd   RunMode = "prod"
	ModeWorker RunMode = "worker"
)

// LogLevel is the logging level
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)
