package wire

import (
	"encoding/binary"
	"fmt"
)

// SessionSize is the wire size, in bytes, of a Session record exchanged
// over the Broadcaster loopback protocol.
const SessionSize = 8 + 8 + 4 + 4 + 4 + 4 // 32

// Session is one fan-out record: a session whose revision counters
// changed, delivered from the Broadcaster producer to the Satellite
// consumer over a loopback TCP socket.
type Session struct {
	ReceiptID       uint64
	SessionID       uint64
	SatelliteTaskID uint32
	OnRadarRevision uint32
	InSightRevision uint32
	OnMapRevision   uint32
}

// Marshal encodes s into its 32-byte wire form.
func (s Session) Marshal() []byte {
	buf := make([]byte, SessionSize)
	binary.BigEndian.PutUint64(buf[0:8], s.ReceiptID)
	binary.BigEndian.PutUint64(buf[8:16], s.SessionID)
	binary.BigEndian.PutUint32(buf[16:20], s.SatelliteTaskID)
	binary.BigEndian.PutUint32(buf[20:24], s.OnRadarRevision)
	binary.BigEndian.PutUint32(buf[24:28], s.InSightRevision)
	binary.BigEndian.PutUint32(buf[28:32], s.OnMapRevision)
	return buf
}

// UnmarshalSession decodes a 32-byte buffer into a Session.
func UnmarshalSession(buf []byte) (Session, error) {
	if len(buf) != SessionSize {
		return Session{}, fmt.Errorf("session: expected %d bytes, got %d", SessionSize, len(buf))
	}
	return Session{
		ReceiptID:       binary.BigEndian.Uint64(buf[0:8]),
		SessionID:       binary.BigEndian.Uint64(buf[8:16]),
		SatelliteTaskID: binary.BigEndian.Uint32(buf[16:20]),
		OnRadarRevision: binary.BigEndian.Uint32(buf[20:24]),
		InSightRevision: binary.BigEndian.Uint32(buf[24:28]),
		OnMapRevision:   binary.BigEndian.Uint32(buf[28:32]),
	}, nil
}

// MarshalReceiptID encodes a receipt id as the 8-byte big-endian
// acknowledgment the consumer writes back for each Session it processes.
func MarshalReceiptID(receiptID uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, receiptID)
	return buf
}

// UnmarshalReceiptID decodes an 8-byte big-endian receipt id.
func UnmarshalReceiptID(buf []byte) (uint64, error) {
	if len(buf) != 8 {
		return 0, fmt.Errorf("receipt id: expected 8 bytes, got %d", len(buf))
	}
	return binary.BigEndian.Uint64(buf), nil
}
