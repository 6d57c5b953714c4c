package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DialogueSignature is the constant every DialogueDemande must carry.
const DialogueSignature uint64 = 0x444c47504c544430 // "DLGPLTD0"

// Dialogue types.
const (
	DialogueAnticipant uint16 = 1
	DialogueRegular    uint16 = 2
)

// Verdict codes returned in a DialogueVerdict.
const (
	VerdictWelcome        uint32 = 1
	VerdictNewSession     uint32 = 2
	VerdictInvalidDevice  uint32 = 3
	VerdictInvalidProfile uint32 = 4
)

const (
	tokenSize    = 16
	buildTagSize = 6

	// DemandeSize is the wire size of a DialogueDemande.
	DemandeSize = 8 + 8 + 2 + 1 + 1 + 2 + 2 + buildTagSize + tokenSize*3

	// VerdictSize is the wire size of a DialogueVerdict.
	VerdictSize = 8 + 4 + tokenSize
)

// DeviceToken, ProfileToken, and SessionToken are all 16-byte opaque
// identifiers; a zero-valued token means "none supplied".
type Token [tokenSize]byte

// IsZero reports whether t is the all-zero token (no token presented).
func (t Token) IsZero() bool {
	return t == Token{}
}

// DialogueDemande is read once per connection, right after accept, to
// establish whether the client is registering a device (anticipant) or
// opening a regular session.
type DialogueDemande struct {
	Signature         uint64
	DeviceTimestamp   float64
	DialogueType      uint16
	AppVersion        uint8
	AppSubversion     uint8
	AppRelease        uint16
	DeviceType        uint16
	BuildTag          [buildTagSize]byte
	DeviceToken       Token
	ProfileToken      Token
	KnownSessionToken Token
}

// UnmarshalDemande decodes a fixed DemandeSize buffer into a
// DialogueDemande and validates the signature.
func UnmarshalDemande(buf []byte) (DialogueDemande, error) {
	if len(buf) != DemandeSize {
		return DialogueDemande{}, fmt.Errorf("demande: expected %d bytes, got %d", DemandeSize, len(buf))
	}

	var d DialogueDemande
	off := 0

	d.Signature = binary.BigEndian.Uint64(buf[off:])
	off += 8
	if d.Signature != DialogueSignature {
		return DialogueDemande{}, fmt.Errorf("demande: wrong signature %#x", d.Signature)
	}

	d.DeviceTimestamp = math.Float64frombits(binary.BigEndian.Uint64(buf[off:]))
	off += 8

	d.DialogueType = binary.BigEndian.Uint16(buf[off:])
	off += 2

	d.AppVersion = buf[off]
	off++
	d.AppSubversion = buf[off]
	off++

	d.AppRelease = binary.BigEndian.Uint16(buf[off:])
	off += 2

	d.DeviceType = binary.BigEndian.Uint16(buf[off:])
	off += 2

	copy(d.BuildTag[:], buf[off:off+buildTagSize])
	off += buildTagSize

	copy(d.DeviceToken[:], buf[off:off+tokenSize])
	off += tokenSize
	copy(d.ProfileToken[:], buf[off:off+tokenSize])
	off += tokenSize
	copy(d.KnownSessionToken[:], buf[off:off+tokenSize])
	off += tokenSize

	return d, nil
}

// Marshal encodes d into its fixed-size wire form, mainly useful for
// tests that round-trip client-side framing.
func (d DialogueDemande) Marshal() []byte {
	buf := make([]byte, DemandeSize)
	off := 0

	binary.BigEndian.PutUint64(buf[off:], d.Signature)
	off += 8
	binary.BigEndian.PutUint64(buf[off:], math.Float64bits(d.DeviceTimestamp))
	off += 8
	binary.BigEndian.PutUint16(buf[off:], d.DialogueType)
	off += 2
	buf[off] = d.AppVersion
	off++
	buf[off] = d.AppSubversion
	off++
	binary.BigEndian.PutUint16(buf[off:], d.AppRelease)
	off += 2
	binary.BigEndian.PutUint16(buf[off:], d.DeviceType)
	off += 2
	copy(buf[off:off+buildTagSize], d.BuildTag[:])
	off += buildTagSize
	copy(buf[off:off+tokenSize], d.DeviceToken[:])
	off += tokenSize
	copy(buf[off:off+tokenSize], d.ProfileToken[:])
	off += tokenSize
	copy(buf[off:off+tokenSize], d.KnownSessionToken[:])
	off += tokenSize

	return buf
}

// DialogueVerdict is the response to a regular DialogueDemande: whether
// the device/profile were accepted and, if so, the session token the
// client should present on reconnection.
type DialogueVerdict struct {
	Signature    uint64
	VerdictCode  uint32
	SessionToken Token
}

// Marshal encodes v into its fixed-size wire form.
func (v DialogueVerdict) Marshal() []byte {
	buf := make([]byte, VerdictSize)
	binary.BigEndian.PutUint64(buf[0:8], v.Signature)
	binary.BigEndian.PutUint32(buf[8:12], v.VerdictCode)
	copy(buf[12:12+tokenSize], v.SessionToken[:])
	return buf
}

// UnmarshalVerdict decodes a fixed VerdictSize buffer into a
// DialogueVerdict, mainly useful for tests that exercise the client side.
func UnmarshalVerdict(buf []byte) (DialogueVerdict, error) {
	if len(buf) != VerdictSize {
		return DialogueVerdict{}, fmt.Errorf("verdict: expected %d bytes, got %d", VerdictSize, len(buf))
	}
	v := DialogueVerdict{
		Signature:   binary.BigEndian.Uint64(buf[0:8]),
		VerdictCode: binary.BigEndian.Uint32(buf[8:12]),
	}
	copy(v.SessionToken[:], buf[12:12+tokenSize])
	return v, nil
}
