package messenger

import (
	"github.com/geoplaque/satellite/internal/wire"
	"github.com/geoplaque/satellite/pkg/mmps"
)

// Notification is one row pulled from the database: a device to reach,
// the message key and argument payload to render, and the buffer it
// rides in while queued. buf is owned by the pipeline from the moment
// it enters outstanding until processed hands it back to the pool;
// nothing else ever touches it once fetch builds it.
type Notification struct {
	ID          int64
	DeviceToken [wire.DeviceTokenSize]byte
	MessageKey  string
	Args        string
	buf         *mmps.Buffer
}

// encodePayload renders the notification's JSON-ish APNs payload into a
// fresh MMPS buffer: {"key":"...","args":"..."}. A real deployment would
// template this against localized strings; the pipeline only needs
// something deterministic and self-contained to carry.
func encodePayload(pool *mmps.Pool, ownerID uint32, messageKey, args string) (*mmps.Buffer, error) {
	buf, err := pool.PeekBuffer(ownerID)
	if err != nil {
		return nil, err
	}
	body := `{"key":"` + messageKey + `","args":"` + args + `"}`
	if _, err := pool.PutString(buf, body); err != nil {
		pool.PokeBuffer(buf)
		return nil, err
	}
	return buf, nil
}

// payloadBytes returns n's rendered APNs payload. encodePayload always
// builds a single fresh buffer for the small JSON-ish body this pipeline
// sends, so reading it back never needs to walk a chain.
func (n *Notification) payloadBytes() []byte {
	if n.buf == nil {
		return nil
	}
	return n.buf.Data()[:n.buf.DataSize()]
}
