package corefile

import (
	"encoding/binary"
	"fmt"
)

// Arch describes how scalars are laid out in a target's memory.
type Arch struct {
	ByteOrder   binary.ByteOrder
	PointerSize int // 4 or 8
}

// Uint decodes an unsigned integer of len(b) bytes. len(b) must be 1, 2, 4, or 8.
func (a Arch) Uint(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(a.ByteOrder.Uint16(b))
	case 4:
		return uint64(a.ByteOrder.Uint32(b))
	case 8:
		return a.ByteOrder.Uint64(b)
	}
	panic(fmt.Sprintf("bad scalar size %d", len(b)))
}

// Uintptr decodes a pointer-sized unsigned integer.
func (a Arch) Uintptr(b []byte) uint64 {
	return a.Uint(b[:a.PointerSize])
}

// PutUint is the inverse of Uint.
func (a Arch) PutUint(b []byte, x uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(x)
	case 2:
		a.ByteOrder.PutUint16(b, uint16(x))
	case 4:
		a.ByteOrder.PutUint32(b, uint32(x))
	case 8:
		a.ByteOrder.PutUint64(b, x)
	default:
		panic(fmt.Sprintf("bad scalar size %d", len(b)))
	}
}

func (a Arch) String() string {
	return fmt.Sprintf("%v/%d", a.ByteOrder, a.PointerSize*8)
}

// Target is a foreign address space that can be read by address.
// Image and Process implement Target.
type Target interface {
	// ReadAt fills p with the bytes at [addr, addr+len(p)).
	// Fails with ErrNil if addr is zero or ErrOutOfBounds if any
	// part of the range is not mapped.
	ReadAt(p []byte, addr uint64) error
	Arch() Arch
}

// ReadUint reads a size-byte unsigned integer from t at addr.
func ReadUint(t Target, addr uint64, size int) (uint64, error) {
	var buf [8]byte
	if size <= 0 || size > len(buf) {
		return 0, fmt.Errorf("bad scalar size %d", size)
	}
	if err := t.ReadAt(buf[:size], addr); err != nil {
		return 0, err
	}
	return t.Arch().Uint(buf[:size]), nil
}

// ReadPointer reads a pointer-sized word from t at addr.
func ReadPointer(t Target, addr uint64) (uint64, error) {
	return ReadUint(t, addr, t.Arch().PointerSize)
}
