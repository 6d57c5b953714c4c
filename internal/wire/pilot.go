// Package wire implements the network-byte-order codecs for every wire
// entity this system exchanges: the Satellite client protocol's
// PaquetPilot/DialogueDemande/DialogueVerdict, the Broadcaster loopback
// protocol's Session record, and the Messenger's APNs legacy/frame
// formats.
package wire

import (
	"encoding/binary"
	"fmt"
)

// PilotSize is the wire size, in bytes, of a PaquetPilot.
const PilotSize = 24

// PilotSignature is the constant every PaquetPilot must carry; any other
// value terminates the dialogue.
const PilotSignature uint64 = 0x5041514554504c54 // "PAQETPLT"

// Command codes dispatched by the paquet worker. Values are stable wire
// constants, not iota-derived, so adding a command never renumbers an
// existing one.
const (
	CommandRegisterDevice          uint32 = 1
	CommandValidateProfileName     uint32 = 2
	CommandCreateProfile           uint32 = 3
	CommandPostPlaque              uint32 = 4
	CommandChangePlaqueLocation    uint32 = 5
	CommandChangePlaqueOrientation uint32 = 6
	CommandChangePlaqueSize        uint32 = 7
	CommandChangePlaqueColors      uint32 = 8
	CommandChangePlaqueFont        uint32 = 9
	CommandChangePlaqueInscription uint32 = 10
	CommandDownloadPlaques         uint32 = 11
	CommandListPlaquesInSight      uint32 = 12
	CommandListPlaquesOnMap        uint32 = 13
	CommandDisplacementOnRadar     uint32 = 14
	CommandDisplacementInSight     uint32 = 15
	CommandDisplacementOnMap       uint32 = 16
	CommandBroadcastSubscribe      uint32 = 17
	CommandNotificationsToken      uint32 = 18
	CommandReportMessage           uint32 = 19
)

// Command subcodes. 0 means "request" or "ordinary response"; the other
// values mark a rejected paquet echoed back to the client.
const (
	SubcodeNone            uint32 = 0
	SubcodePaquetRejectBusy uint32 = 1
)

// PaquetPilot is the 24-byte header that precedes every paquet's
// payload: signature, paquet id, command code, command subcode, and
// payload size, all big-endian.
type PaquetPilot struct {
	Signature      uint64
	PaquetID       uint32
	CommandCode    uint32
	CommandSubcode uint32
	PayloadSize    uint32
}

// Marshal encodes p into its 24-byte wire form.
func (p PaquetPilot) Marshal() []byte {
	buf := make([]byte, PilotSize)
	binary.BigEndian.PutUint64(buf[0:8], p.Signature)
	binary.BigEndian.PutUint32(buf[8:12], p.PaquetID)
	binary.BigEndian.PutUint32(buf[12:16], p.CommandCode)
	binary.BigEndian.PutUint32(buf[16:20], p.CommandSubcode)
	binary.BigEndian.PutUint32(buf[20:24], p.PayloadSize)
	return buf
}

// UnmarshalPilot decodes a 24-byte buffer into a PaquetPilot and
// validates the signature.
func UnmarshalPilot(buf []byte) (PaquetPilot, error) {
	if len(buf) != PilotSize {
		return PaquetPilot{}, fmt.Errorf("pilot: expected %d bytes, got %d", PilotSize, len(buf))
	}
	p := PaquetPilot{
		Signature:      binary.BigEndian.Uint64(buf[0:8]),
		PaquetID:       binary.BigEndian.Uint32(buf[8:12]),
		CommandCode:    binary.BigEndian.Uint32(buf[12:16]),
		CommandSubcode: binary.BigEndian.Uint32(buf[16:20]),
		PayloadSize:    binary.BigEndian.Uint32(buf[20:24]),
	}
	if p.Signature != PilotSignature {
		return PaquetPilot{}, fmt.Errorf("pilot: wrong signature %#x", p.Signature)
	}
	return p, nil
}

// RejectBusy returns the pilot a task echoes back to the client when a
// paquet is rejected because the task has no room for another worker.
func RejectBusy(original PaquetPilot) PaquetPilot {
	return PaquetPilot{
		Signature:      PilotSignature,
		PaquetID:       original.PaquetID,
		CommandCode:    original.CommandCode,
		CommandSubcode: SubcodePaquetRejectBusy,
		PayloadSize:    0,
	}
}
