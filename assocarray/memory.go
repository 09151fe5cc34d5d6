package assocarray

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/brenns10/kernel-stuff/corefile"
)

// Node is one struct assoc_array_node as read from foreign memory.
type Node struct {
	Addr        uint64
	BackPointer Word
	ParentSlot  uint8
	LeafCount   uint64 // nr_leaves_on_branch
	Slots       []Word
}

// Occupied returns the set of non-null slot indices of n.
func (n *Node) Occupied() *bitset.BitSet {
	bs := bitset.New(uint(len(n.Slots)))
	for i, w := range n.Slots {
		if w != 0 {
			bs.Set(uint(i))
		}
	}
	return bs
}

// Memory reads the words and nodes of a trie from a foreign address space.
type Memory interface {
	ReadWord(addr uint64) (Word, error)
	ReadNode(addr uint64) (*Node, error)
}

// TargetMemory reads trie nodes out of a corefile.Target using a Layout.
type TargetMemory struct {
	target corefile.Target
	layout Layout
}

// NewTargetMemory returns a Memory that decodes nodes from t with layout l.
func NewTargetMemory(t corefile.Target, l Layout) *TargetMemory {
	return &TargetMemory{target: t, layout: l}
}

// Layout returns the layout used to decode nodes.
func (m *TargetMemory) Layout() Layout {
	return m.layout
}

// ReadWord reads a pointer-sized word at addr.
func (m *TargetMemory) ReadWord(addr uint64) (Word, error) {
	w, err := corefile.ReadUint(m.target, addr, m.layout.Arch.PointerSize)
	return Word(w), err
}

// ReadNode reads the node at addr with a single read of NodeSize bytes.
func (m *TargetMemory) ReadNode(addr uint64) (*Node, error) {
	l := m.layout
	buf := make([]byte, l.NodeSize)
	if err := m.target.ReadAt(buf, addr); err != nil {
		return nil, err
	}
	ptr := uint64(l.Arch.PointerSize)
	n := &Node{
		Addr:        addr,
		BackPointer: Word(l.Arch.Uint(buf[l.BackPointerOffset : l.BackPointerOffset+ptr])),
		ParentSlot:  buf[l.ParentSlotOffset],
		LeafCount:   l.Arch.Uint(buf[l.LeafCountOffset : l.LeafCountOffset+ptr]),
		Slots:       make([]Word, l.FanOut),
	}
	for i := range n.Slots {
		off := l.SlotsOffset + uint64(i)*ptr
		n.Slots[i] = Word(l.Arch.Uint(buf[off : off+ptr]))
	}
	return n, nil
}

// Array is a struct assoc_array as read from foreign memory.
type Array struct {
	Addr        uint64
	Root        Word
	TotalLeaves uint64 // nr_leaves_on_tree
}

// ReadArray reads the struct assoc_array at addr.
func ReadArray(m Memory, addr uint64, l Layout) (Array, error) {
	root, err := m.ReadWord(addr + l.ArrayRootOffset)
	if err != nil {
		return Array{}, &ReadError{Addr: addr + l.ArrayRootOffset, Err: err}
	}
	total, err := m.ReadWord(addr + l.ArrayLeafCountOffset)
	if err != nil {
		return Array{}, &ReadError{Addr: addr + l.ArrayLeafCountOffset, Err: err}
	}
	return Array{Addr: addr, Root: root, TotalLeaves: uint64(total)}, nil
}
