package enums

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Log encodings accepted by utils/logger.
const (
	LogEncodingJSON    = "json"
	LogEncodingConsole = "console"
)
