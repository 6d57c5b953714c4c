package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// APNs commands.
const (
	apnsCommandLegacy   uint8 = 0
	apnsCommandFrame    uint8 = 2
	apnsCommandResponse uint8 = 8
)

// Frame item identifiers, per Apple's binary provider protocol.
const (
	FrameItemDeviceToken    uint8 = 1
	FrameItemPayload        uint8 = 2
	FrameItemNotificationID uint8 = 3
	FrameItemExpirationDate uint8 = 4
	FrameItemPriority       uint8 = 5
)

// DeviceTokenSize is the length of a raw (non-hex) APNs device token.
const DeviceTokenSize = 32

// LegacyNotification is the one-notification-per-write wire format:
// command 0, token length, token, payload length, payload.
type LegacyNotification struct {
	DeviceToken [DeviceTokenSize]byte
	Payload     []byte
}

// Marshal encodes n in the legacy item format.
func (n LegacyNotification) Marshal() []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(apnsCommandLegacy)
	writeUint16(buf, DeviceTokenSize)
	buf.Write(n.DeviceToken[:])
	writeUint16(buf, uint16(len(n.Payload)))
	buf.Write(n.Payload)
	return buf.Bytes()
}

// FrameNotification is one notification inside a batched frame: a device
// token item, a payload item, and an identifier/expiration/priority
// footer, each encoded as its own {itemId, length, data} item.
type FrameNotification struct {
	DeviceToken    [DeviceTokenSize]byte
	Payload        []byte
	NotificationID uint32
	ExpirationDate uint32
	Priority       uint8
}

// marshalItems encodes n's five items in wire order.
func (n FrameNotification) marshalItems() []byte {
	buf := new(bytes.Buffer)

	writeItem(buf, FrameItemDeviceToken, n.DeviceToken[:])

	payloadItem := new(bytes.Buffer)
	writeItem(payloadItem, FrameItemPayload, n.Payload)
	buf.Write(payloadItem.Bytes())

	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], n.NotificationID)
	writeItem(buf, FrameItemNotificationID, idBuf[:])

	var expBuf [4]byte
	binary.BigEndian.PutUint32(expBuf[:], n.ExpirationDate)
	writeItem(buf, FrameItemExpirationDate, expBuf[:])

	writeItem(buf, FrameItemPriority, []byte{n.Priority})

	return buf.Bytes()
}

func writeItem(buf *bytes.Buffer, itemID uint8, data []byte) {
	buf.WriteByte(itemID)
	writeUint16(buf, uint16(len(data)))
	buf.Write(data)
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

// Frame batches several notifications into a single command-2 write:
// command byte, 32-bit frame length, then the concatenated per-
// notification items.
type Frame struct {
	Notifications []FrameNotification
}

// Marshal encodes the frame, computing its length prefix from the total
// size of every notification's items.
func (f Frame) Marshal() []byte {
	items := new(bytes.Buffer)
	for _, n := range f.Notifications {
		items.Write(n.marshalItems())
	}

	buf := new(bytes.Buffer)
	buf.WriteByte(apnsCommandFrame)
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(items.Len()))
	buf.Write(lenBuf[:])
	buf.Write(items.Bytes())
	return buf.Bytes()
}

// ResponseSize is the wire size of an APNs error response.
const ResponseSize = 1 + 1 + 4 // command + status + identifier

// Response is the command-8 error frame APNs writes back when a
// notification in a frame (or a legacy write) failed.
type Response struct {
	Status         uint8
	NotificationID uint32
}

// UnmarshalResponse decodes a 6-byte APNs error response.
func UnmarshalResponse(buf []byte) (Response, error) {
	if len(buf) != ResponseSize {
		return Response{}, fmt.Errorf("apns response: expected %d bytes, got %d", ResponseSize, len(buf))
	}
	if buf[0] != apnsCommandResponse {
		return Response{}, fmt.Errorf("apns response: unexpected command %d", buf[0])
	}
	return Response{
		Status:         buf[1],
		NotificationID: binary.BigEndian.Uint32(buf[2:6]),
	}, nil
}

// APNs status codes relevant to failure classification (busy / transmit
// error / other); the remainder of Apple's status space is treated as
// "other".
const (
	StatusNoErrors           uint8 = 0
	StatusProcessingError    uint8 = 1
	StatusMissingDeviceToken uint8 = 2
	StatusShutdown           uint8 = 10
)
