package vm

import "fmt"

// Default size, in bytes, of the code+data segment starting at address 0.
const DefaultMemSize = 0x1_0000_0000

// StackSegmentStart is the lowest legal stack address; the stack grows
// downward from the one-past-top sentinel 0xFFFF_FFFF_FFFF_FFFF.
const StackSegmentStart = 0xFFFF_FFFF_FFF0_0000

// StackTop is the initial, one-past-top value of SP.
const StackTop = 0xFFFF_FFFF_FFFF_FFFF

// CodeSegmentCapacity is the maximum size, in bytes, of a loaded program
// image; loading anything larger is rejected.
const CodeSegmentCapacity = 0x100000

// Memory is a sparse, byte-addressed store over the full 64-bit address
// space. Unwritten addresses read as zero. Only two address ranges are
// legal: the code+data segment [0, memSize) and the stack segment
// [StackSegmentStart, StackTop]; every other address faults.
type Memory struct {
	data    map[uint64]byte
	memSize uint64
}

// NewMemory creates a sparse memory with the given code+data segment
// size.
func NewMemory(memSize uint64) *Memory {
	if memSize == 0 {
		memSize = DefaultMemSize
	}
	return &Memory{
		data:    make(map[uint64]byte),
		memSize: memSize,
	}
}

// inBounds reports whether addr falls within one of the two legal
// regions.
func (m *Memory) inBounds(addr uint64) bool {
	if addr < m.memSize {
		return true
	}
	return addr >= StackSegmentStart
}

// ReadByte reads one byte, returning 0 for an address that was never
// written. It faults on an out-of-bounds address.
func (m *Memory) ReadByte(addr uint64) (byte, error) {
	if !m.inBounds(addr) {
		return 0, newMemoryFault(fmt.Sprintf("read out of bounds at 0x%016X", addr))
	}
	return m.data[addr], nil
}

// WriteByte writes one byte. It faults on an out-of-bounds address.
func (m *Memory) WriteByte(addr uint64, b byte) error {
	if !m.inBounds(addr) {
		return newMemoryFault(fmt.Sprintf("write out of bounds at 0x%016X", addr))
	}
	m.data[addr] = b
	return nil
}

// ReadWord24 reads a 24-bit little-endian word (3 bytes) starting at
// addr, returning the raw unsigned bit pattern.
func (m *Memory) ReadWord24(addr uint64) (uint32, error) {
	var v uint32
	for i := uint64(0); i < 3; i++ {
		b, err := m.ReadByte(addr + i)
		if err != nil {
			return 0, err
		}
		v |= uint32(b) << (8 * i)
	}
	return v, nil
}

// WriteWord24 writes the low 24 bits of v as a little-endian 3-byte word
// starting at addr.
func (m *Memory) WriteWord24(addr uint64, v uint32) error {
	for i := uint64(0); i < 3; i++ {
		if err := m.WriteByte(addr+i, byte(v>>(8*i))); err != nil {
			return err
		}
	}
	return nil
}

// ReadWord64 reads a 64-bit little-endian word (8 bytes) starting at
// addr. Used exclusively for stack slots.
func (m *Memory) ReadWord64(addr uint64) (uint64, error) {
	var v uint64
	for i := uint64(0); i < 8; i++ {
		b, err := m.ReadByte(addr + i)
		if err != nil {
			return 0, err
		}
		v |= uint64(b) << (8 * i)
	}
	return v, nil
}

// WriteWord64 writes a 64-bit little-endian word (8 bytes) starting at
// addr. Used exclusively for stack slots.
func (m *Memory) WriteWord64(addr uint64, v uint64) error {
	for i := uint64(0); i < 8; i++ {
		if err := m.WriteByte(addr+i, byte(v>>(8*i))); err != nil {
			return err
		}
	}
	return nil
}

// LoadImage writes a flat program image at address 0. It rejects images
// larger than CodeSegmentCapacity.
func (m *Memory) LoadImage(image []byte) error {
	if len(image) > CodeSegmentCapacity {
		return fmt.Errorf("program image of %d bytes exceeds code segment capacity of %d bytes", len(image), CodeSegmentCapacity)
	}
	for i, b := range image {
		m.data[uint64(i)] = b
	}
	return nil
}

// Size returns the number of distinct addresses ever written, which is
// the memory's actual footprint under the sparse representation.
func (m *Memory) Size() int {
	return len(m.data)
}
