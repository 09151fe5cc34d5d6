// Package assocarraytest builds associative arrays in synthetic foreign
// memory for tests.
package assocarraytest

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/brenns10/kernel-stuff/assocarray"
	"github.com/brenns10/kernel-stuff/corefile"
	"github.com/brenns10/kernel-stuff/corefile/corefiletest"
)

// Memory is a sparse address space. It implements corefile.Target.
// Unwritten bytes are unmapped.
type Memory struct {
	arch  corefile.Arch
	bytes map[uint64]byte
}

// NewMemory returns an empty address space for arch a.
func NewMemory(a corefile.Arch) *Memory {
	return &Memory{arch: a, bytes: map[uint64]byte{}}
}

// Arch implements corefile.Target.
func (m *Memory) Arch() corefile.Arch { return m.arch }

// ReadAt implements corefile.Target.
func (m *Memory) ReadAt(p []byte, addr uint64) error {
	if addr == 0 {
		return corefile.ErrNil
	}
	for i := range p {
		b, ok := m.bytes[addr+uint64(i)]
		if !ok {
			return fmt.Errorf("read 0x%x bytes at 0x%x: %w", len(p), addr, corefile.ErrOutOfBounds)
		}
		p[i] = b
	}
	return nil
}

// Write maps and stores b at addr.
func (m *Memory) Write(addr uint64, b []byte) {
	for i, x := range b {
		m.bytes[addr+uint64(i)] = x
	}
}

// PutUint stores a size-byte integer at addr.
func (m *Memory) PutUint(addr uint64, size int, x uint64) {
	b := make([]byte, size)
	m.arch.PutUint(b, x)
	m.Write(addr, b)
}

// PutWord stores a pointer-sized word at addr.
func (m *Memory) PutWord(addr uint64, w assocarray.Word) {
	m.PutUint(addr, m.arch.PointerSize, uint64(w))
}

// Unmap removes [addr, addr+size) from the address space.
func (m *Memory) Unmap(addr, size uint64) {
	for i := uint64(0); i < size; i++ {
		delete(m.bytes, addr+i)
	}
}

// Segments returns the mapped bytes as contiguous segments, suitable for
// corefiletest.WriteCore.
func (m *Memory) Segments() []corefiletest.Segment {
	addrs := make([]uint64, 0, len(m.bytes))
	for a := range m.bytes {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, k int) bool { return addrs[i] < addrs[k] })

	var segs []corefiletest.Segment
	for _, a := range addrs {
		if n := len(segs); n > 0 && segs[n-1].Addr+uint64(len(segs[n-1].Data)) == a {
			segs[n-1].Data = append(segs[n-1].Data, m.bytes[a])
			continue
		}
		segs = append(segs, corefiletest.Segment{Addr: a, Data: []byte{m.bytes[a]}})
	}
	return segs
}

// Entry is one occupied slot given to Node.
type Entry struct {
	Slot  int
	Leaf  uint64
	Child *assocarray.TreeNode
}

// Leaf returns an Entry holding object id at slot.
func Leaf(slot int, id uint64) Entry { return Entry{Slot: slot, Leaf: id} }

// Child returns an Entry holding node n at slot.
func Child(slot int, n *assocarray.TreeNode) Entry { return Entry{Slot: slot, Child: n} }

// Node returns a node with the kernel fan-out holding entries.
// Counters and parent links are filled in by NewTree.
func Node(entries ...Entry) *assocarray.TreeNode {
	n := assocarray.NewTreeNode(assocarray.FanOut)
	for _, e := range entries {
		n.Slots[e.Slot] = assocarray.Slot{Leaf: e.Leaf, Child: e.Child}
	}
	return n
}

// NewTree returns a consistent tree rooted at root: every node's parent
// link and parent_slot name its position and every nr_leaves_on_branch
// counts the leaves below it.
func NewTree(root *assocarray.TreeNode) *assocarray.Tree {
	var fix func(n, parent *assocarray.TreeNode, slot int) uint64
	fix = func(n, parent *assocarray.TreeNode, slot int) uint64 {
		n.Parent = parent
		n.ParentSlot = uint8(slot)
		n.LeafCount = 0
		for i, s := range n.Slots {
			switch {
			case s.Child != nil:
				n.LeafCount += fix(s.Child, n, i)
			case s.Leaf != 0:
				n.LeafCount++
			}
		}
		return n.LeafCount
	}
	return &assocarray.Tree{TotalLeaves: fix(root, nil, 0), Root: root}
}

// RandomTree returns a consistent random tree of at most maxDepth levels
// below the root. Leaf ids are distinct, nonzero, and 8-byte aligned.
func RandomTree(rng *rand.Rand, maxDepth int) *assocarray.Tree {
	next := uint64(0xffff888000000000)
	var gen func(depth int) *assocarray.TreeNode
	gen = func(depth int) *assocarray.TreeNode {
		n := assocarray.NewTreeNode(assocarray.FanOut)
		for i := range n.Slots {
			switch r := rng.Intn(10); {
			case r < 4:
				next += 8 * uint64(1+rng.Intn(64))
				n.Slots[i].Leaf = next
			case r < 5 && depth < maxDepth:
				n.Slots[i].Child = gen(depth + 1)
			}
		}
		return n
	}
	return NewTree(gen(0))
}

// Lay writes the nodes of t into m using layout l, allocating them upward
// from base, and returns the tagged root word. Each node's back_pointer,
// parent_slot, and nr_leaves_on_branch are copied from the tree.
func Lay(m *Memory, t *assocarray.Tree, l assocarray.Layout, base uint64) assocarray.Word {
	stride := (l.NodeSize + 15) &^ 15
	next := (base + 15) &^ 15
	ptr := l.Arch.PointerSize

	var lay func(n *assocarray.TreeNode, parent uint64) uint64
	lay = func(n *assocarray.TreeNode, parent uint64) uint64 {
		addr := next
		next += stride
		m.Write(addr, make([]byte, l.NodeSize))
		if parent != 0 {
			m.PutWord(addr+l.BackPointerOffset, assocarray.NodeWord(parent))
		}
		m.PutUint(addr+l.ParentSlotOffset, 1, uint64(n.ParentSlot))
		m.PutUint(addr+l.LeafCountOffset, ptr, n.LeafCount)
		for i, s := range n.Slots {
			var w assocarray.Word
			switch {
			case s.Child != nil:
				w = assocarray.NodeWord(lay(s.Child, addr))
			case s.Leaf != 0:
				w = assocarray.LeafWord(s.Leaf)
			default:
				continue
			}
			m.PutWord(addr+l.SlotsOffset+uint64(i)*uint64(ptr), w)
		}
		return addr
	}
	return assocarray.NodeWord(lay(t.Root, 0))
}

// WriteArray writes a struct assoc_array at addr.
func WriteArray(m *Memory, addr uint64, l assocarray.Layout, root assocarray.Word, totalLeaves uint64) {
	m.Write(addr, make([]byte, 2*l.Arch.PointerSize))
	m.PutWord(addr+l.ArrayRootOffset, root)
	m.PutUint(addr+l.ArrayLeafCountOffset, l.Arch.PointerSize, totalLeaves)
}

// SlotAddr returns the address of slot i of the node at nodeAddr.
func SlotAddr(l assocarray.Layout, nodeAddr uint64, i int) uint64 {
	return nodeAddr + l.SlotsOffset + uint64(i)*uint64(l.Arch.PointerSize)
}
