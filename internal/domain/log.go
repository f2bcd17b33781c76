package domain

// LogLevel is the severity of an operator-facing log entry.
type LogLevel string

const (
	LogInfo    LogLevel = "INFO"
	LogWarn    LogLevel = "WARN"
	LogError   LogLevel = "ERROR"
	LogSuccess LogLevel = "SUCCESS"
	LogDebug   LogLevel = "DEBUG"
)

// LogEntry is an append-only journal line shown to the operator.
// Retention is capped by the store.
type LogEntry struct {
	ID        int64 // assigned by the store
	CreatedAt int64 // Unix ms
	Level     LogLevel
	Message   string
}
