package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so aggregation
// and querying stay uniform across satellited, broadcasterd, messengerd,
// and schedulerd.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// ========================================================================
	// Satellite task / paquet
	// ========================================================================
	KeyTaskID       = "task_id"
	KeyPaquetID     = "paquet_id"
	KeyCommandCode  = "command_code"
	KeyClientIP     = "client_ip"
	KeyClientPort   = "client_port"
	KeyDeviceID     = "device_id"
	KeyProfileID    = "profile_id"
	KeySessionID    = "session_id"
	KeyConnectionID = "connection_id"
	KeyBankID       = "bank_id"
	KeyBufferID     = "buffer_id"
	KeyChainBytes   = "chain_bytes"

	// ========================================================================
	// Broadcaster
	// ========================================================================
	KeyReceiptID         = "receipt_id"
	KeySatelliteTaskID   = "satellite_task_id"
	KeyOnRadarRevision   = "on_radar_revision"
	KeyInSightRevision   = "in_sight_revision"
	KeyOnMapRevision     = "on_map_revision"
	KeyBatchSize         = "batch_size"

	// ========================================================================
	// Messenger
	// ========================================================================
	KeyNotificationID = "notification_id"
	KeyQueueName      = "queue_name"
	KeyQueueDepth     = "queue_depth"
	KeyAPNsStatus     = "apns_status"

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"
	KeyOperation  = "operation"
	KeyAttempt    = "attempt"
	KeyMaxRetries = "max_retries"
)

// TraceID returns a slog.Attr for the trace id.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for the span id.
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// TaskID returns a slog.Attr for a Satellite task id.
func TaskID(id uint64) slog.Attr { return slog.Uint64(KeyTaskID, id) }

// PaquetID returns a slog.Attr for a paquet id.
func PaquetID(id uint32) slog.Attr { return slog.Uint64(KeyPaquetID, uint64(id)) }

// ErrorAttr returns a slog.Attr carrying an error's message.
func ErrorAttr(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
