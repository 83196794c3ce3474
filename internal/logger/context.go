package logger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single core
// operation (get/add/delete/rename/read/write/flush).
type LogContext struct {
	TraceID   string    // Correlation ID (a random UUID from NewLogContext)
	SpanID    string    // Optional sub-operation ID; NewLogContext leaves it empty
	Operation string    // Core operation name: Get, Add, Delete, Rename, Flush, ...
	Zone      string    // Zone the operation resolved into: owner, group, world
	UserID    string    // unique_user_id, hex-encoded
	StartTime time.Time // For duration calculation
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

// NewLogContext creates a new LogContext for the given user. TraceID is
// a random UUID rather than an OpenTelemetry trace ID, since this
// module carries no tracing instrumentation — it exists purely to
// correlate the handful of log lines a single core operation emits.
func NewLogContext(userID string) *LogContext {
	return &LogContext{
		UserID:    userID,
		TraceID:   uuid.NewString(),
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
		Zone:      lc.Zone,
		UserID:    lc.UserID,
		StartTime: lc.StartTime,
	}
}

// WithOperation returns a copy with the operation name set
func (lc *LogContext) WithOperation(operation string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Operation = operation
	}
	return clone
}

// WithZone returns a copy with the resolved zone set
func (lc *LogContext) WithZone(zone string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Zone = zone
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
