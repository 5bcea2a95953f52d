package ports

import "context"

// Fields carries structured key/value context for a log entry.
type Fields = map[string]interface{}

// Logger is the only logging dependency of application code.
// Adapters exist for the standard library (text) and zap (JSON).
// Only the first Fields argument is used; it is variadic so it can be omitted.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Fields)
	Info(ctx context.Context, msg string, fields ...Fields)
	Warn(ctx context.Context, msg string, fields ...Fields)
	// Error logs err alongside msg.
	Error(ctx context.Context, err error, msg string, fields ...Fields)
}
