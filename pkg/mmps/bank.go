package mmps

import (
	"fmt"
	"sort"
	"sync"
)

// Bank is a homogeneous set of buffers: all buffers in a bank share the
// same data size and follower size. A pool typically defines one bank per
// size tier it needs (pilot buffers, payload buffers, APNs frame buffers).
type Bank struct {
	id               uint32
	pool             *Pool
	mu               sync.Mutex
	allocateOnDemand bool

	bufferSize   uint32
	followerSize uint32

	buffers []*Buffer
	// free holds ids of buffers not currently peeked, in free-index-ring
	// order: the next Peek takes free[len(free)-1], the next Poke appends.
	free []uint32

	shm *sharedMemory
}

// InitBank creates bankID in pool with numberOfBuffers buffers, each sized
// bufferSize bytes of data plus followerSize bytes of follower. A
// bufferSize of 0 creates buffer descriptors without backing data blocks;
// data blocks can be attached later by a caller that owns descriptor
// placement (not exposed here, as nothing in this system uses that mode).
func (p *Pool) InitBank(bankID uint32, bufferSize, followerSize, numberOfBuffers uint32) (*Bank, error) {
	if int(bankID) >= len(p.banks) {
		return nil, fmt.Errorf("bank %d: %w", bankID, ErrWrongBankID)
	}

	bank := &Bank{
		id:           bankID,
		pool:         p,
		bufferSize:   bufferSize,
		followerSize: followerSize,
		buffers:      make([]*Buffer, numberOfBuffers),
		free:         make([]uint32, 0, numberOfBuffers),
	}

	for i := uint32(0); i < numberOfBuffers; i++ {
		buf := &Buffer{
			id:           i,
			bank:         bank,
			ownerID:      NoOwner,
			bufferSize:   bufferSize,
			followerSize: followerSize,
		}
		if bufferSize > 0 {
			buf.data = make([]byte, bufferSize)
		}
		if followerSize > 0 {
			buf.follower = make([]byte, followerSize)
		}
		bank.buffers[i] = buf
		bank.free = append(bank.free, i)
	}

	p.banks[bankID] = bank
	return bank, nil
}

// AllocateOnDemand marks the bank so its buffers' data blocks are
// allocated on Peek and released on Poke instead of staying resident for
// the bank's lifetime. Useful for banks sized for a worst-case payload
// that is rarely seen at that size.
func (p *Pool) AllocateOnDemand(bankID uint32) error {
	bank, err := p.bankAt(bankID)
	if err != nil {
		return err
	}
	bank.mu.Lock()
	bank.allocateOnDemand = true
	bank.mu.Unlock()
	return nil
}

// ID returns the bank's id within its pool.
func (b *Bank) ID() uint32 { return b.id }

// BufferSize returns the fixed data size of buffers in this bank.
func (b *Bank) BufferSize() uint32 { return b.bufferSize }

// BufferByID returns the buffer descriptor for bufferID within this bank.
func (b *Bank) BufferByID(bufferID uint32) (*Buffer, error) {
	if int(bufferID) >= len(b.buffers) {
		return nil, fmt.Errorf("buffer %d in bank %d: %w", bufferID, b.id, ErrWrongBufferID)
	}
	return b.buffers[bufferID], nil
}

// BufferByID looks a buffer up by bank id and buffer id across the pool.
func (p *Pool) BufferByID(bankID, bufferID uint32) (*Buffer, error) {
	bank, err := p.bankAt(bankID)
	if err != nil {
		return nil, err
	}
	return bank.BufferByID(bufferID)
}

// peekLocked pops the next free buffer id, or reports exhaustion.
// Caller must hold b.mu.
func (b *Bank) peekLocked(ownerID uint32) (*Buffer, bool) {
	if len(b.free) == 0 {
		return nil, false
	}
	last := len(b.free) - 1
	id := b.free[last]
	b.free = b.free[:last]

	buf := b.buffers[id]
	if b.allocateOnDemand && buf.data == nil && b.bufferSize > 0 {
		buf.data = make([]byte, b.bufferSize)
	}
	buf.ownerID = ownerID
	buf.touches = 0
	buf.dataSize = 0
	buf.cursor = 0
	buf.prev = nil
	buf.next = nil
	return buf, true
}

// PeekBufferFromBank claims an unused buffer from bankID specifically.
func (p *Pool) PeekBufferFromBank(bankID, ownerID uint32) (*Buffer, error) {
	bank, err := p.bankAt(bankID)
	if err != nil {
		return nil, err
	}
	bank.mu.Lock()
	buf, ok := bank.peekLocked(ownerID)
	bank.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("bank %d: %w", bankID, ErrOutOfMemory)
	}
	return buf, nil
}

// PeekBuffer claims an unused buffer from the first bank in the pool that
// has one free.
func (p *Pool) PeekBuffer(ownerID uint32) (*Buffer, error) {
	for _, bank := range p.banks {
		if bank == nil {
			continue
		}
		bank.mu.Lock()
		buf, ok := bank.peekLocked(ownerID)
		bank.mu.Unlock()
		if ok {
			return buf, nil
		}
	}
	return nil, ErrOutOfMemory
}

// PeekBufferOfSize claims a buffer from the smallest bank whose
// bufferSize is >= preferredSize. If that bank is exhausted, or none is
// large enough, it falls back through the remaining banks largest first,
// matching the original's "smaller buffer can be returned" fallback.
// Only returns ErrOutOfMemory once every bank has been tried.
func (p *Pool) PeekBufferOfSize(preferredSize int, ownerID uint32) (*Buffer, error) {
	var best *Bank
	for _, bank := range p.banks {
		if bank == nil {
			continue
		}
		if int(bank.bufferSize) >= preferredSize {
			if best == nil || bank.bufferSize < best.bufferSize {
				best = bank
			}
		}
	}
	if best != nil {
		if buf, err := p.PeekBufferFromBank(best.id, ownerID); err == nil {
			return buf, nil
		}
	}

	// Fall back through every other bank, largest first, instead of
	// giving up after the single largest one is also exhausted.
	fallbacks := make([]*Bank, 0, len(p.banks))
	for _, bank := range p.banks {
		if bank == nil || bank == best {
			continue
		}
		fallbacks = append(fallbacks, bank)
	}
	sort.Slice(fallbacks, func(i, j int) bool {
		return fallbacks[i].bufferSize > fallbacks[j].bufferSize
	})
	for _, bank := range fallbacks {
		if buf, err := p.PeekBufferFromBank(bank.id, ownerID); err == nil {
			return buf, nil
		}
	}
	return nil, ErrOutOfMemory
}

// pokeOne returns a single (non-chained-traversal) buffer to its bank's
// free ring, clearing its identity fields so stale data can't leak to the
// next owner.
func (b *Bank) pokeOne(buf *Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.allocateOnDemand {
		buf.data = nil
	}
	buf.ownerID = NoOwner
	buf.touches = 0
	buf.dataSize = 0
	buf.cursor = 0
	buf.prev = nil
	buf.next = nil
	b.free = append(b.free, buf.id)
}

// PokeBuffer returns buffer (and every buffer chained after it) to its
// bank's free ring. Buffers from different banks within one chain each
// go back to their own bank, exactly as the original disassembles mixed
// chains on poke.
func (p *Pool) PokeBuffer(buf *Buffer) {
	for buf != nil {
		next := buf.next
		if buf.touches > 0 {
			// Touched buffers are not released; the last Absolve does it.
			buf = next
			continue
		}
		buf.bank.pokeOne(buf)
		buf = next
	}
}

// NumberOfBuffersInUse reports how many buffers in bankID are currently
// peeked out. Intended for diagnostics only.
func (p *Pool) NumberOfBuffersInUse(bankID uint32) (uint32, error) {
	bank, err := p.bankAt(bankID)
	if err != nil {
		return 0, err
	}
	bank.mu.Lock()
	defer bank.mu.Unlock()
	return uint32(len(bank.buffers) - len(bank.free)), nil
}
