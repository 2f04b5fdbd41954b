package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a sync or restore
// operation.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	Operation string    // sync, restore, retention, recover
	Folder    string    // folder name/path being operated on
	Session   string    // sync session name (UUID string)
	Account   string    // unique client ID
	StartTime time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for an operation.
func NewLogContext(operation string) *LogContext {
	return &LogContext{
		Operation: operation,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		Operation: lc.Operation,
		Folder:    lc.Folder,
		Session:   lc.Session,
		Account:   lc.Account,
		StartTime: lc.StartTime,
	}
}

// WithFolder returns a copy with the folder set
func (lc *LogContext) WithFolder(folder string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Folder = folder
	}
	return clone
}

// WithSession returns a copy with the session name set
func (lc *LogContext) WithSession(session string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Session = session
	}
	return clone
}

// WithAccount returns a copy with the account identifier set
func (lc *LogContext) WithAccount(account string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Account = account
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
