package status

// IsResourceExhaustion reports whether err is a buffer/memory exhaustion
// failure.
func IsResourceExhaustion(err error) bool {
	code, ok := CodeOf(err)
	if !ok {
		return false
	}
	switch code {
	case ErrOutOfMemory, ErrCannotAllocateInputBuffer, ErrCannotAllocateOutputBuffer, ErrCannotExtendBuffer:
		return true
	}
	return false
}

// IsDatabase reports whether err originates from the database handle
// pool or a statement execution.
func IsDatabase(err error) bool {
	code, ok := CodeOf(err)
	if !ok {
		return false
	}
	switch code {
	case ErrNoHandlersAvailable, ErrUnexpectedResult, ErrConstraintViolation:
		return true
	}
	return false
}

// IsAuthentication reports whether err is a device/profile auth or
// session-state failure.
func IsAuthentication(err error) bool {
	code, ok := CodeOf(err)
	if !ok {
		return false
	}
	switch code {
	case ErrDeviceAuthFailed, ErrProfileAuthFailed, ErrCannotGetSession,
		ErrCannotSetSessionOnline, ErrCannotSetSessionOffline:
		return true
	}
	return false
}

// IsTransport reports whether err is a socket/framing failure.
func IsTransport(err error) bool {
	code, ok := CodeOf(err)
	if !ok {
		return false
	}
	switch code {
	case ErrPollError, ErrPollTimeout, ErrZeroBytesRead, ErrZeroBytesWritten,
		ErrSocketWriteFailure, ErrSocketReadFailure, ErrMissingPilot,
		ErrMissingSignature, ErrIncompleteData, ErrWrongPayloadSize:
		return true
	}
	return false
}

// IsDispatch reports whether err is a paquet-dispatch failure.
func IsDispatch(err error) bool {
	code, ok := CodeOf(err)
	if !ok {
		return false
	}
	switch code {
	case ErrCannotCreatePaquetThread, ErrMissingDialogueDemande,
		ErrMissingAnticipantRecord, ErrCannotSendVerdict,
		ErrBroadcastAlreadyPending:
		return true
	}
	return false
}

// IsAPNs reports whether err is a Messenger APNs-sender failure.
func IsAPNs(err error) bool {
	code, ok := CodeOf(err)
	if !ok {
		return false
	}
	switch code {
	case ErrAPNsConnectFailure, ErrAPNsTransmitFailure, ErrAPNsBusy:
		return true
	}
	return false
}

// TerminatesTask reports whether err should end the owning Satellite
// task instead of just failing the current paquet. Per the propagation
// policy, only transport failures (a bad write, a timed-out read) bring
// the whole connection down; database, authentication, and dispatch
// failures are reported to the caller and the task keeps running.
func TerminatesTask(err error) bool {
	return IsTransport(err)
}

// IsConstraintViolation reports whether err is a unique/check constraint
// violation the caller should translate into a domain-specific rejection
// (e.g. "profile name already in use") instead of a generic failure.
func IsConstraintViolation(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrConstraintViolation
}
