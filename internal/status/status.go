// Package status centralizes the error taxonomy shared by satellited,
// broadcasterd, messengerd, and schedulerd: a small set of error codes
// that every failure in the system maps onto, plus classification
// helpers so a caller can decide "does this terminate the task" or "is
// this retryable" without a type switch on every concrete error.
//
// This is a leaf package with no internal dependencies, imported by
// dbpool, satellite, broadcaster, messenger, and scheduler without
// causing import cycles; mmps and wire keep their own plain errors.
package status

import "fmt"

// ErrorCode classifies a Fault by the taxonomy in the error handling
// design: resource exhaustion, database, authentication, transport, and
// dispatch failures.
type ErrorCode int

const (
	// Resource exhaustion
	ErrOutOfMemory ErrorCode = iota + 1
	ErrCannotAllocateInputBuffer
	ErrCannotAllocateOutputBuffer
	ErrCannotExtendBuffer

	// Database
	ErrNoHandlersAvailable
	ErrUnexpectedResult
	ErrConstraintViolation

	// Authentication
	ErrDeviceAuthFailed
	ErrProfileAuthFailed
	ErrCannotGetSession
	ErrCannotSetSessionOnline
	ErrCannotSetSessionOffline

	// Transport
	ErrPollError
	ErrPollTimeout
	ErrZeroBytesRead
	ErrZeroBytesWritten
	ErrSocketWriteFailure
	ErrSocketReadFailure
	ErrMissingPilot
	ErrMissingSignature
	ErrIncompleteData
	ErrWrongPayloadSize

	// Dispatch
	ErrCannotCreatePaquetThread
	ErrMissingDialogueDemande
	ErrMissingAnticipantRecord
	ErrCannotSendVerdict
	ErrBroadcastAlreadyPending

	// APNs (Messenger)
	ErrAPNsConnectFailure
	ErrAPNsTransmitFailure
	ErrAPNsBusy
)

var codeNames = map[ErrorCode]string{
	ErrOutOfMemory:                "OutOfMemory",
	ErrCannotAllocateInputBuffer:  "CannotAllocateInputBuffer",
	ErrCannotAllocateOutputBuffer: "CannotAllocateOutputBuffer",
	ErrCannotExtendBuffer:         "CannotExtendBuffer",
	ErrNoHandlersAvailable:        "NoHandlersAvailable",
	ErrUnexpectedResult:           "UnexpectedResult",
	ErrConstraintViolation:        "ConstraintViolation",
	ErrDeviceAuthFailed:           "DeviceAuthFailed",
	ErrProfileAuthFailed:          "ProfileAuthFailed",
	ErrCannotGetSession:           "CannotGetSession",
	ErrCannotSetSessionOnline:     "CannotSetSessionOnline",
	ErrCannotSetSessionOffline:    "CannotSetSessionOffline",
	ErrPollError:                  "PollError",
	ErrPollTimeout:                "PollTimeout",
	ErrZeroBytesRead:              "ZeroBytesRead",
	ErrZeroBytesWritten:           "ZeroBytesWritten",
	ErrSocketWriteFailure:         "SocketWriteFailure",
	ErrSocketReadFailure:          "SocketReadFailure",
	ErrMissingPilot:               "MissingPilot",
	ErrMissingSignature:           "MissingSignature",
	ErrIncompleteData:             "IncompleteData",
	ErrWrongPayloadSize:           "WrongPayloadSize",
	ErrCannotCreatePaquetThread:   "CannotCreatePaquetThread",
	ErrMissingDialogueDemande:     "MissingDialogueDemande",
	ErrMissingAnticipantRecord:    "MissingAnticipantRecord",
	ErrCannotSendVerdict:          "CannotSendVerdict",
	ErrBroadcastAlreadyPending:    "BroadcastAlreadyPending",
	ErrAPNsConnectFailure:         "APNsConnectFailure",
	ErrAPNsTransmitFailure:        "APNsTransmitFailure",
	ErrAPNsBusy:                   "APNsBusy",
}

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(c))
}

// Fault is the error type every package in this system returns for a
// classified failure. Op names the operation that failed (e.g.
// "dbpool.peek_handle", "satellite.receive_paquet") so logs can locate
// the failure without parsing the message.
type Fault struct {
	Code ErrorCode
	Op   string
	Err  error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Op, f.Code, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Op, f.Code)
}

// Unwrap exposes the wrapped error to errors.Is/errors.As.
func (f *Fault) Unwrap() error { return f.Err }

// New creates a Fault with no wrapped error.
func New(op string, code ErrorCode) *Fault {
	return &Fault{Op: op, Code: code}
}

// Wrap creates a Fault carrying err as its cause.
func Wrap(op string, code ErrorCode, err error) *Fault {
	return &Fault{Op: op, Code: code, Err: err}
}

// CodeOf extracts the ErrorCode from err if it is (or wraps) a Fault, and
// reports whether one was found.
func CodeOf(err error) (ErrorCode, bool) {
	var f *Fault
	for err != nil {
		if asFault, ok := err.(*Fault); ok {
			f = asFault
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	if f == nil {
		return 0, false
	}
	return f.Code, true
}
