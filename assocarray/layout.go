package assocarray

import (
	"errors"
	"fmt"

	"github.com/brenns10/kernel-stuff/corefile"
)

// FanOut is the number of slots per node in the kernel (ASSOC_ARRAY_FAN_OUT).
const FanOut = 16

// MaxFanOut is the largest fan-out a layout or script may use.
const MaxFanOut = 64

func checkFanOut(n int) error {
	if n < 1 || n > MaxFanOut {
		return fmt.Errorf("bad fan-out %d (want 1 to %d)", n, MaxFanOut)
	}
	return nil
}

// Layout gives the in-memory layout of struct assoc_array and
// struct assoc_array_node. Offsets are in bytes.
type Layout struct {
	Arch   corefile.Arch
	FanOut int

	BackPointerOffset uint64 // struct assoc_array_ptr *back_pointer
	ParentSlotOffset  uint64 // u8 parent_slot
	SlotsOffset       uint64 // struct assoc_array_ptr *slots[FanOut]
	LeafCountOffset   uint64 // unsigned long nr_leaves_on_branch
	NodeSize          uint64

	ArrayRootOffset      uint64 // struct assoc_array_ptr *root
	ArrayLeafCountOffset uint64 // unsigned long nr_leaves_on_tree
}

// LayoutFor returns the kernel layout for an architecture where
// unsigned long is pointer-sized and pointers are naturally aligned.
func LayoutFor(a corefile.Arch) Layout {
	ptr := uint64(a.PointerSize)
	slots := 2 * ptr // parent_slot is padded up to pointer alignment
	leaves := slots + FanOut*ptr
	return Layout{
		Arch:                 a,
		FanOut:               FanOut,
		BackPointerOffset:    0,
		ParentSlotOffset:     ptr,
		SlotsOffset:          slots,
		LeafCountOffset:      leaves,
		NodeSize:             leaves + ptr,
		ArrayRootOffset:      0,
		ArrayLeafCountOffset: ptr,
	}
}

// Validate reports whether l describes a usable layout.
func (l Layout) Validate() error {
	ptr := uint64(l.Arch.PointerSize)
	if ptr != 4 && ptr != 8 {
		return fmt.Errorf("layout: bad pointer size %d", ptr)
	}
	if l.Arch.ByteOrder == nil {
		return errors.New("layout: missing byte order")
	}
	if err := checkFanOut(l.FanOut); err != nil {
		return fmt.Errorf("layout: %w", err)
	}
	fields := []struct {
		name      string
		off, size uint64
	}{
		{"back_pointer", l.BackPointerOffset, ptr},
		{"parent_slot", l.ParentSlotOffset, 1},
		{"slots", l.SlotsOffset, uint64(l.FanOut) * ptr},
		{"nr_leaves_on_branch", l.LeafCountOffset, ptr},
	}
	for i, f := range fields {
		if f.off+f.size > l.NodeSize {
			return fmt.Errorf("layout: %s [0x%x,0x%x) exceeds node size 0x%x", f.name, f.off, f.off+f.size, l.NodeSize)
		}
		for _, g := range fields[:i] {
			if f.off < g.off+g.size && g.off < f.off+f.size {
				return fmt.Errorf("layout: %s overlaps %s", f.name, g.name)
			}
		}
	}
	if l.ArrayRootOffset < l.ArrayLeafCountOffset+ptr && l.ArrayLeafCountOffset < l.ArrayRootOffset+ptr {
		return errors.New("layout: array root overlaps nr_leaves_on_tree")
	}
	return nil
}
