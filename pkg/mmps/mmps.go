// Package mmps implements a bank-allocated buffer pool: a fixed set of
// banks, each holding a fixed number of fixed-size buffers, handed out
// through a lock-protected free-index ring instead of the runtime
// allocator. It replaces ad-hoc slice allocation on the Satellite/
// Broadcaster/Messenger hot paths with buffers that have a stable
// identity (bank id + buffer id), can be chained into multi-buffer
// records, and can be reference-counted across goroutines that share
// a single inbound or outbound payload.
package mmps

import (
	"errors"
	"fmt"
)

// Errors mirror the pool's original error taxonomy: exhaustion and
// addressing mistakes are distinct from transport or storage failures
// and are handled by callers without touching internal/status.
var (
	ErrOutOfMemory     = errors.New("mmps: no free buffer available")
	ErrWrongBankID     = errors.New("mmps: unknown bank id")
	ErrWrongBufferID   = errors.New("mmps: unknown buffer id")
	ErrAlreadyMapped   = errors.New("mmps: bank already mapped to shared memory")
	ErrNotMapped       = errors.New("mmps: bank not mapped to shared memory")
	ErrCursorOutOfData = errors.New("mmps: cursor moved out of chain bounds")
)

// NoOwner is stored in Buffer.ownerID for buffers nobody has claimed yet.
const NoOwner uint32 = 0

// MaxBlockSize is the original's block-size limit. InitBank does not
// read it: every buffer's data and follower blocks are allocated
// separately, and no bank is split into blocks of this size.
const MaxBlockSize = 1 << 20 // 1 MiB, matches the original MAX_BLOCK_SIZE

// Pool is a collection of banks. A server process typically keeps one
// Pool per buffer-size tier (e.g. one bank for paquet pilots, one for
// payload bodies, one for APNs frames).
type Pool struct {
	banks []*Bank
}

// NewPool allocates a pool descriptor with room for numberOfBanks banks.
// Each bank must be initialized with InitBank before use.
func NewPool(numberOfBanks int) *Pool {
	return &Pool{banks: make([]*Bank, numberOfBanks)}
}

// NumberOfBanks returns how many bank slots this pool was created with.
func (p *Pool) NumberOfBanks() int { return len(p.banks) }

// bankAt returns the bank for bankID or ErrWrongBankID.
func (p *Pool) bankAt(bankID uint32) (*Bank, error) {
	if int(bankID) >= len(p.banks) || p.banks[bankID] == nil {
		return nil, fmt.Errorf("bank %d: %w", bankID, ErrWrongBankID)
	}
	return p.banks[bankID], nil
}

// Bank returns the bank descriptor for bankID, for callers that need to
// inspect it directly (e.g. metrics reporting buffer-in-use counts).
func (p *Pool) Bank(bankID uint32) (*Bank, error) {
	return p.bankAt(bankID)
}
