package mmps

import "sync/atomic"

// Buffer is a single fixed-size allocation peeked out of a Bank. Buffers
// can be linked into a chain (Prev/Next) so a record larger than one
// buffer's capacity spans several buffers transparently to cursor-based
// reads and writes.
type Buffer struct {
	id   uint32
	bank *Bank

	prev *Buffer
	next *Buffer

	ownerID uint32
	touches int32

	bufferSize   uint32
	dataSize     uint32
	followerSize uint32

	data     []byte
	follower []byte
	cursor   int
}

// ID returns the buffer's id within its bank.
func (b *Buffer) ID() uint32 { return b.id }

// BankID returns the id of the bank this buffer was peeked from.
func (b *Buffer) BankID() uint32 { return b.bank.id }

// OwnerID returns the owner id set on the last Peek.
func (b *Buffer) OwnerID() uint32 { return b.ownerID }

// SetOwnerID reassigns ownership, e.g. when a buffer moves from the
// Satellite task that received it to the worker goroutine processing it.
func (b *Buffer) SetOwnerID(ownerID uint32) { b.ownerID = ownerID }

// Data returns the buffer's backing data slice sized to its capacity, not
// to DataSize; use Data()[:DataSize()] to see only the written portion.
func (b *Buffer) Data() []byte { return b.data }

// DataSize returns the amount of data written into this buffer.
func (b *Buffer) DataSize() int { return int(b.dataSize) }

// BufferSize returns the buffer's capacity in bytes.
func (b *Buffer) BufferSize() int { return int(b.bufferSize) }

// Follower returns the buffer's follower block, or nil if this bank has
// no followers.
func (b *Buffer) Follower() []byte { return b.follower }

// Touch increments the buffer's (and, if it is a chain anchor, every
// chained buffer's) touch count. A touched buffer is not released by
// PokeBuffer; it is released only once every touch has been matched by
// an Absolve.
func (b *Buffer) Touch() {
	for buf := b; buf != nil; buf = buf.next {
		atomic.AddInt32(&buf.touches, 1)
	}
}

// Absolve decrements the touch count. When the last touch is absolved the
// buffer is poked back to its bank automatically; callers must not also
// call PokeBuffer on an absolved buffer.
func (b *Buffer) Absolve() {
	for buf := b; buf != nil; buf = buf.next {
		if atomic.AddInt32(&buf.touches, -1) <= 0 {
			atomic.StoreInt32(&buf.touches, 0)
			buf.bank.pokeOne(buf)
		}
	}
}

// Previous returns the buffer preceding this one in its chain, or nil if
// this is the first buffer.
func (b *Buffer) Previous() *Buffer { return b.prev }

// Next returns the buffer succeeding this one in its chain, or nil if this
// is the last buffer.
func (b *Buffer) Next() *Buffer { return b.next }

// First walks back to the first buffer of the chain this buffer belongs
// to (itself, if it is not chained).
func (b *Buffer) First() *Buffer {
	buf := b
	for buf.prev != nil {
		buf = buf.prev
	}
	return buf
}

// Last walks forward to the last buffer of the chain this buffer belongs
// to (itself, if it is not chained).
func (b *Buffer) Last() *Buffer {
	buf := b
	for buf.next != nil {
		buf = buf.next
	}
	return buf
}

// Append links appendage at the end of destination's chain and returns
// destination; if destination is nil, appendage is returned unchanged so
// Append can be used to build up a chain from a nil anchor.
func Append(destination, appendage *Buffer) *Buffer {
	if destination == nil {
		return appendage
	}
	last := destination.Last()
	last.next = appendage
	if appendage != nil {
		appendage.prev = last
	}
	return destination
}

// Extend peeks one more buffer — preferring the same bank as origBuffer,
// falling back to any bank with room — and appends it to origBuffer's
// chain. If origBuffer already has a successor, that successor is
// returned unchanged rather than inserting a second buffer.
func (p *Pool) Extend(origBuffer *Buffer) (*Buffer, error) {
	if origBuffer.next != nil {
		return origBuffer.next, nil
	}

	next, err := p.PeekBufferFromBank(origBuffer.bank.id, origBuffer.ownerID)
	if err != nil {
		next, err = p.PeekBuffer(origBuffer.ownerID)
		if err != nil {
			return nil, err
		}
	}

	origBuffer.next = next
	next.prev = origBuffer
	return next, nil
}

// RemoveFromChain unlinks removal from the chain anchored at anchor and
// returns the (possibly new) anchor of what remains. removal itself is
// not poked back to its bank; callers decide its fate.
func RemoveFromChain(anchor, removal *Buffer) *Buffer {
	prev, next := removal.prev, removal.next
	if prev != nil {
		prev.next = next
	}
	if next != nil {
		next.prev = prev
	}
	removal.prev, removal.next = nil, nil

	if anchor != removal {
		return anchor
	}
	return next
}

// TruncateChain removes every buffer succeeding tailingBuffer from its
// chain and returns them to their banks, leaving tailingBuffer as the new
// last buffer of the chain (or a standalone buffer, if it was first).
func (p *Pool) TruncateChain(tailingBuffer *Buffer) {
	rest := tailingBuffer.next
	tailingBuffer.next = nil
	if rest != nil {
		rest.prev = nil
	}
	p.PokeBuffer(rest)
}

// TotalDataSize sums DataSize across every buffer in the chain starting
// at firstBuffer.
func TotalDataSize(firstBuffer *Buffer) int {
	total := 0
	for buf := firstBuffer; buf != nil; buf = buf.next {
		total += int(buf.dataSize)
	}
	return total
}

// ResetData sets DataSize (and cursor) to 0 for every buffer in the chain.
func (b *Buffer) ResetData() {
	for buf := b; buf != nil; buf = buf.next {
		buf.dataSize = 0
		buf.cursor = 0
	}
}

// ResetCursor moves the cursor back to the start of data for every buffer
// in the chain.
func (b *Buffer) ResetCursor() {
	for buf := b; buf != nil; buf = buf.next {
		buf.cursor = 0
	}
}

// CopyBuffer copies data from source's chain into destination's chain,
// buffer by buffer, stopping when either chain runs out of buffers or
// destination runs out of capacity. It returns the number of bytes
// copied and does not otherwise touch either chain's cursor.
func CopyBuffer(destination, source *Buffer) int {
	copied := 0
	dst, src := destination, source
	for dst != nil && src != nil {
		n := copy(dst.data[:dst.bufferSize], src.data[:src.dataSize])
		dst.dataSize = uint32(n)
		copied += n
		dst = dst.next
		src = src.next
	}
	return copied
}
