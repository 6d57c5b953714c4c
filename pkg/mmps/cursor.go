package mmps

import "encoding/binary"

// MoveCursorRelative advances the cursor by relativeOffset bytes, crossing
// into successive buffers of the chain as needed, and returns the buffer
// the cursor ends up in. It returns ErrCursorOutOfData if the offset runs
// past the end of the chain.
func MoveCursorRelative(buffer *Buffer, relativeOffset int) (*Buffer, error) {
	buf := buffer
	remaining := relativeOffset
	for {
		room := int(buf.dataSize) - buf.cursor
		if remaining <= room {
			buf.cursor += remaining
			return buf, nil
		}
		remaining -= room
		if buf.next == nil {
			return nil, ErrCursorOutOfData
		}
		buf.cursor = int(buf.dataSize)
		buf = buf.next
		buf.cursor = 0
	}
}

// IsCursorAtTheEndOfData reports whether buffer's own cursor (not the rest
// of its chain) has reached the end of its written data.
func (b *Buffer) IsCursorAtTheEndOfData() bool {
	return b.cursor >= int(b.dataSize)
}

// nextForWrite returns the buffer the cursor should continue writing into
// once the current one is full, extending the chain from pool if needed.
func (p *Pool) nextForWrite(buf *Buffer) (*Buffer, error) {
	if buf.next != nil {
		return buf.next, nil
	}
	return p.Extend(buf)
}

// PutData writes sourceData into buffer's chain starting at the cursor,
// extending the chain with fresh buffers from pool as needed, and returns
// the buffer the cursor ends up pointing into.
func (p *Pool) PutData(buffer *Buffer, sourceData []byte) (*Buffer, error) {
	buf := buffer
	src := sourceData

	for len(src) > 0 {
		room := int(buf.bufferSize) - buf.cursor
		if room == 0 {
			next, err := p.nextForWrite(buf)
			if err != nil {
				return nil, err
			}
			buf = next
			continue
		}

		n := room
		if n > len(src) {
			n = len(src)
		}
		copy(buf.data[buf.cursor:buf.cursor+n], src[:n])
		buf.cursor += n
		if uint32(buf.cursor) > buf.dataSize {
			buf.dataSize = uint32(buf.cursor)
		}
		src = src[n:]
	}
	return buf, nil
}

// GetData reads up to len(destData) bytes from buffer's chain starting at
// the cursor. It returns the buffer the cursor ends up in and the number
// of bytes actually copied; the buffer is nil when the read reaches the
// end of the chain before destData is filled.
func (p *Pool) GetData(buffer *Buffer, destData []byte) (*Buffer, int, error) {
	buf := buffer
	dst := destData
	copied := 0

	for len(dst) > 0 {
		if buf == nil {
			break
		}
		if buf.IsCursorAtTheEndOfData() {
			if buf.next == nil {
				buf = nil
				break
			}
			buf = buf.next
			continue
		}

		room := int(buf.dataSize) - buf.cursor
		n := room
		if n > len(dst) {
			n = len(dst)
		}
		copy(dst[:n], buf.data[buf.cursor:buf.cursor+n])
		buf.cursor += n
		dst = dst[n:]
		copied += n
	}
	return buf, copied, nil
}

// PutUint8 writes a single byte at the cursor.
func (p *Pool) PutUint8(buffer *Buffer, v uint8) (*Buffer, error) {
	return p.PutData(buffer, []byte{v})
}

// GetUint8 reads a single byte from the cursor.
func (p *Pool) GetUint8(buffer *Buffer) (*Buffer, uint8, error) {
	var b [1]byte
	buf, n, err := p.GetData(buffer, b[:])
	if err != nil || n == 0 {
		return buf, 0, ErrCursorOutOfData
	}
	return buf, b[0], nil
}

// PutUint16 writes a 16-bit value at the cursor in network byte order.
func (p *Pool) PutUint16(buffer *Buffer, v uint16) (*Buffer, error) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return p.PutData(buffer, b[:])
}

// GetUint16 reads a 16-bit network-byte-order value from the cursor.
func (p *Pool) GetUint16(buffer *Buffer) (*Buffer, uint16, error) {
	var b [2]byte
	buf, n, err := p.GetData(buffer, b[:])
	if err != nil || n != len(b) {
		return buf, 0, ErrCursorOutOfData
	}
	return buf, binary.BigEndian.Uint16(b[:]), nil
}

// PutUint32 writes a 32-bit value at the cursor in network byte order.
func (p *Pool) PutUint32(buffer *Buffer, v uint32) (*Buffer, error) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return p.PutData(buffer, b[:])
}

// GetUint32 reads a 32-bit network-byte-order value from the cursor.
func (p *Pool) GetUint32(buffer *Buffer) (*Buffer, uint32, error) {
	var b [4]byte
	buf, n, err := p.GetData(buffer, b[:])
	if err != nil || n != len(b) {
		return buf, 0, ErrCursorOutOfData
	}
	return buf, binary.BigEndian.Uint32(b[:]), nil
}

// PutUint64 writes a 64-bit value at the cursor in network byte order.
func (p *Pool) PutUint64(buffer *Buffer, v uint64) (*Buffer, error) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return p.PutData(buffer, b[:])
}

// GetUint64 reads a 64-bit network-byte-order value from the cursor.
func (p *Pool) GetUint64(buffer *Buffer) (*Buffer, uint64, error) {
	var b [8]byte
	buf, n, err := p.GetData(buffer, b[:])
	if err != nil || n != len(b) {
		return buf, 0, ErrCursorOutOfData
	}
	return buf, binary.BigEndian.Uint64(b[:]), nil
}

// PutString writes length bytes of string at the cursor, without a
// length prefix or terminator — callers that need one write it themselves
// with PutUint32 beforehand, matching how paquet payloads encode strings.
func (p *Pool) PutString(buffer *Buffer, s string) (*Buffer, error) {
	return p.PutData(buffer, []byte(s))
}
