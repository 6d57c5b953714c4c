package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyNotification(t *testing.T) {
	t.Run("MarshalsCommandTokenAndPayload", func(t *testing.T) {
		n := LegacyNotification{Payload: []byte(`{"aps":{"alert":"hi"}}`)}
		copy(n.DeviceToken[:], "deadbeefdeadbeefdeadbeefdeadbeef")

		buf := n.Marshal()
		require.Len(t, buf, 1+2+DeviceTokenSize+2+len(n.Payload))

		assert.Equal(t, apnsCommandLegacy, buf[0])
		assert.Equal(t, uint16(DeviceTokenSize), uint16(buf[1])<<8|uint16(buf[2]))
		assert.Equal(t, n.DeviceToken[:], buf[3:3+DeviceTokenSize])

		payloadLenOff := 3 + DeviceTokenSize
		payloadLen := uint16(buf[payloadLenOff])<<8 | uint16(buf[payloadLenOff+1])
		assert.Equal(t, uint16(len(n.Payload)), payloadLen)
		assert.Equal(t, n.Payload, buf[payloadLenOff+2:])
	})
}

func TestFrame(t *testing.T) {
	t.Run("MarshalsFrameLengthAndItems", func(t *testing.T) {
		n := FrameNotification{
			Payload:        []byte(`{"aps":{"alert":"hi"}}`),
			NotificationID: 99,
			ExpirationDate: 1732982400,
			Priority:       10,
		}
		copy(n.DeviceToken[:], "deadbeefdeadbeefdeadbeefdeadbeef")

		f := Frame{Notifications: []FrameNotification{n}}
		buf := f.Marshal()

		assert.Equal(t, apnsCommandFrame, buf[0])

		expectedItemsLen := len(n.marshalItems())
		frameLen := uint32(buf[1])<<24 | uint32(buf[2])<<16 | uint32(buf[3])<<8 | uint32(buf[4])
		assert.Equal(t, uint32(expectedItemsLen), frameLen)
		assert.Len(t, buf, 5+expectedItemsLen)
	})

	t.Run("ItemsEncodeDeviceTokenPayloadAndFooter", func(t *testing.T) {
		n := FrameNotification{
			Payload:        []byte("x"),
			NotificationID: 1,
			ExpirationDate: 2,
			Priority:       5,
		}
		items := n.marshalItems()

		assert.Equal(t, FrameItemDeviceToken, items[0])
		off := 1
		tokenLen := uint16(items[off])<<8 | uint16(items[off+1])
		assert.Equal(t, uint16(DeviceTokenSize), tokenLen)
		off += 2 + DeviceTokenSize

		assert.Equal(t, FrameItemPayload, items[off])
		off++
		payloadLen := uint16(items[off])<<8 | uint16(items[off+1])
		assert.Equal(t, uint16(len(n.Payload)), payloadLen)
		off += 2 + int(payloadLen)

		assert.Equal(t, FrameItemNotificationID, items[off])
		off += 1 + 2 + 4

		assert.Equal(t, FrameItemExpirationDate, items[off])
		off += 1 + 2 + 4

		assert.Equal(t, FrameItemPriority, items[off])
		off += 1 + 2
		assert.Equal(t, n.Priority, items[off])
	})
}

func TestUnmarshalResponse(t *testing.T) {
	t.Run("Decodes", func(t *testing.T) {
		buf := []byte{apnsCommandResponse, StatusMissingDeviceToken, 0, 0, 0, 7}

		resp, err := UnmarshalResponse(buf)
		require.NoError(t, err)
		assert.Equal(t, StatusMissingDeviceToken, resp.Status)
		assert.Equal(t, uint32(7), resp.NotificationID)
	})

	t.Run("RejectsWrongSize", func(t *testing.T) {
		_, err := UnmarshalResponse(make([]byte, ResponseSize-1))
		assert.Error(t, err)
	})

	t.Run("RejectsWrongCommand", func(t *testing.T) {
		buf := make([]byte, ResponseSize)
		buf[0] = apnsCommandLegacy
		_, err := UnmarshalResponse(buf)
		assert.Error(t, err)
	})
}
