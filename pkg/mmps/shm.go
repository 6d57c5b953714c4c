package mmps

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// sharedMemory tracks one bank's mapping into a backing file, so its
// buffers' data blocks live in memory a second process (or a restarted
// instance of this one) can reattach to instead of private heap memory.
type sharedMemory struct {
	file *os.File
	data []byte
}

// MapSharedMemoryBank maps every buffer in bankID onto a single shared
// memory region backed by path, replacing each buffer's private data
// slice with a window into the mapping. Buffers keep their existing
// bufferSize; path is created and sized to numberOfBuffers*bufferSize if
// it does not already hold a region of that size.
func (p *Pool) MapSharedMemoryBank(bankID uint32, path string) error {
	bank, err := p.bankAt(bankID)
	if err != nil {
		return err
	}

	bank.mu.Lock()
	defer bank.mu.Unlock()

	if bank.shm != nil {
		return fmt.Errorf("bank %d: %w", bankID, ErrAlreadyMapped)
	}

	size := int64(bank.bufferSize) * int64(len(bank.buffers))
	if size == 0 {
		return fmt.Errorf("bank %d has zero-size buffers, nothing to map", bankID)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("open shared memory file %q: %w", path, err)
	}

	if info, statErr := f.Stat(); statErr != nil || info.Size() != size {
		if truncErr := f.Truncate(size); truncErr != nil {
			f.Close()
			return fmt.Errorf("size shared memory file %q: %w", path, truncErr)
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return fmt.Errorf("mmap %q: %w", path, err)
	}

	for i, buf := range bank.buffers {
		offset := i * int(bank.bufferSize)
		buf.data = data[offset : offset+int(bank.bufferSize) : offset+int(bank.bufferSize)]
	}

	bank.shm = &sharedMemory{file: f, data: data}
	return nil
}

// UnmapSharedMemoryBank releases bankID's shared memory mapping, giving
// each buffer back a private heap-allocated data block so the bank
// remains usable after unmapping.
func (p *Pool) UnmapSharedMemoryBank(bankID uint32) error {
	bank, err := p.bankAt(bankID)
	if err != nil {
		return err
	}

	bank.mu.Lock()
	defer bank.mu.Unlock()

	if bank.shm == nil {
		return fmt.Errorf("bank %d: %w", bankID, ErrNotMapped)
	}

	if err := unix.Munmap(bank.shm.data); err != nil {
		return fmt.Errorf("munmap bank %d: %w", bankID, err)
	}
	if err := bank.shm.file.Close(); err != nil {
		return fmt.Errorf("close shared memory file for bank %d: %w", bankID, err)
	}

	for _, buf := range bank.buffers {
		buf.data = make([]byte, bank.bufferSize)
	}
	bank.shm = nil
	return nil
}

// IsSharedMemoryMapped reports whether bankID's buffers currently live in
// a shared memory mapping.
func (p *Pool) IsSharedMemoryMapped(bankID uint32) (bool, error) {
	bank, err := p.bankAt(bankID)
	if err != nil {
		return false, err
	}
	bank.mu.Lock()
	defer bank.mu.Unlock()
	return bank.shm != nil, nil
}
