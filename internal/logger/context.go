package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context
type LogContext struct {
	TraceID   string    // OpenTelemetry-style trace ID, when carried
	SpanID    string    // OpenTelemetry-style span ID, when carried
	TaskID    uint64    // Satellite task id (one per TCP connection)
	PaquetID  uint32    // client-assigned paquet id for an in-flight request
	ClientIP  string    // client IP address (without port)
	DeviceID  string    // authenticated device id, once known
	SessionID string    // granted session id, once known
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

// NewLogContext creates a new LogContext with the given client IP
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{
		ClientIP:  clientIP,
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
		TaskID:    lc.TaskID,
		PaquetID:  lc.PaquetID,
		ClientIP:  lc.ClientIP,
		DeviceID:  lc.DeviceID,
		SessionID: lc.SessionID,
		StartTime: lc.StartTime,
	}
}

// WithTask returns a copy with the task id set
func (lc *LogContext) WithTask(taskID uint64) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TaskID = taskID
	}
	return clone
}

// WithPaquet returns a copy with the paquet id set
func (lc *LogContext) WithPaquet(paquetID uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.PaquetID = paquetID
	}
	return clone
}

// WithSession returns a copy with device/session identity set
func (lc *LogContext) WithSession(deviceID, sessionID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.DeviceID = deviceID
		clone.SessionID = sessionID
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
