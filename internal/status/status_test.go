package status

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFaultError(t *testing.T) {
	t.Run("FormatsWithWrappedError", func(t *testing.T) {
		cause := errors.New("connection reset")
		f := Wrap("satellite.receive_paquet", ErrSocketReadFailure, cause)

		assert.Contains(t, f.Error(), "satellite.receive_paquet")
		assert.Contains(t, f.Error(), "SocketReadFailure")
		assert.Contains(t, f.Error(), "connection reset")
		assert.ErrorIs(t, f, cause)
	})

	t.Run("FormatsWithoutWrappedError", func(t *testing.T) {
		f := New("dbpool.peek_handle", ErrNoHandlersAvailable)
		assert.Equal(t, "dbpool.peek_handle: NoHandlersAvailable", f.Error())
	})
}

func TestCodeOf(t *testing.T) {
	t.Run("FindsCodeThroughWrapping", func(t *testing.T) {
		f := New("mmps.peek_buffer", ErrOutOfMemory)
		wrapped := fmt.Errorf("allocating input buffer: %w", f)

		code, ok := CodeOf(wrapped)
		assert.True(t, ok)
		assert.Equal(t, ErrOutOfMemory, code)
	})

	t.Run("ReportsFalseForPlainErrors", func(t *testing.T) {
		_, ok := CodeOf(errors.New("boom"))
		assert.False(t, ok)
	})
}

func TestClassificationHelpers(t *testing.T) {
	cases := []struct {
		name  string
		code  ErrorCode
		check func(error) bool
	}{
		{"resource exhaustion", ErrCannotExtendBuffer, IsResourceExhaustion},
		{"database", ErrConstraintViolation, IsDatabase},
		{"authentication", ErrProfileAuthFailed, IsAuthentication},
		{"transport", ErrMissingPilot, IsTransport},
		{"dispatch", ErrCannotSendVerdict, IsDispatch},
		{"apns", ErrAPNsTransmitFailure, IsAPNs},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := New("op", tc.code)
			assert.True(t, tc.check(err))
		})
	}

	t.Run("TransportFailuresTerminateTask", func(t *testing.T) {
		assert.True(t, TerminatesTask(New("satellite.write_response", ErrSocketWriteFailure)))
		assert.False(t, TerminatesTask(New("dbpool.execute", ErrConstraintViolation)))
	})

	t.Run("ConstraintViolationIsDomainReportable", func(t *testing.T) {
		assert.True(t, IsConstraintViolation(New("dbpool.execute", ErrConstraintViolation)))
		assert.False(t, IsConstraintViolation(New("dbpool.execute", ErrUnexpectedResult)))
	})
}
