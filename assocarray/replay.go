package assocarray

import (
	"fmt"
	"io"
	"strings"
)

// Tree is an associative array rebuilt in this process by Replay.
type Tree struct {
	TotalLeaves uint64
	Root        *TreeNode
}

// TreeNode is a node of a Tree.
type TreeNode struct {
	Parent     *TreeNode
	ParentSlot uint8
	LeafCount  uint64
	Slots      []Slot
}

// Slot is one slot of a TreeNode. At most one of Leaf and Child is set.
type Slot struct {
	Leaf  uint64
	Child *TreeNode
}

// IsEmpty reports whether the slot holds nothing.
func (s Slot) IsEmpty() bool {
	return s.Leaf == 0 && s.Child == nil
}

// NewTreeNode returns a zeroed node with fanOut slots (mknode).
func NewTreeNode(fanOut int) *TreeNode {
	return &TreeNode{Slots: make([]Slot, fanOut)}
}

// Replay builds a Tree by executing s with a single current-node cursor.
// It fails if s uses a slot twice, links outside [0, fanOut), ascends above
// the root, or does not start with InitTree and AllocateRoot. fanOut must
// lie in [1, MaxFanOut].
func Replay(s Script, fanOut int) (*Tree, error) {
	if err := checkFanOut(fanOut); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	t := &Tree{}
	var cur *TreeNode
	for i, op := range s {
		if i == 0 {
			init, ok := op.(InitTree)
			if !ok {
				return nil, fmt.Errorf("replay: op 0 is %v, want InitTree", op)
			}
			t.TotalLeaves = init.TotalLeaves
			continue
		}
		if _, ok := op.(AllocateRoot); !ok && cur == nil {
			return nil, fmt.Errorf("replay: op %d: %v before AllocateRoot", i, op)
		}
		switch op := op.(type) {
		case AllocateRoot:
			if t.Root != nil {
				return nil, fmt.Errorf("replay: op %d: second AllocateRoot", i)
			}
			t.Root = NewTreeNode(fanOut)
			cur = t.Root

		case SetMetadata:
			cur.ParentSlot = op.ParentSlot
			cur.LeafCount = op.LeafCount

		case LinkChildNode:
			if err := checkReplaySlot(cur, op.Slot, i); err != nil {
				return nil, err
			}
			child := NewTreeNode(fanOut)
			child.Parent = cur
			cur.Slots[op.Slot].Child = child
			cur = child

		case LinkLeaf:
			if err := checkReplaySlot(cur, op.Slot, i); err != nil {
				return nil, err
			}
			if op.Value == 0 || op.Value&ptrTypeMask != 0 {
				return nil, fmt.Errorf("replay: op %d: 0x%x is not a leaf word", i, op.Value)
			}
			cur.Slots[op.Slot].Leaf = op.Value

		case AscendToParent:
			if cur.Parent == nil {
				return nil, fmt.Errorf("replay: op %d: AscendToParent at the root", i)
			}
			cur = cur.Parent

		case InitTree:
			return nil, fmt.Errorf("replay: op %d: second InitTree", i)

		default:
			return nil, fmt.Errorf("replay: op %d: unknown op %T", i, op)
		}
	}
	if t.Root == nil {
		return nil, fmt.Errorf("replay: script allocates no root")
	}
	if cur != t.Root {
		return nil, fmt.Errorf("replay: script ends below the root")
	}
	return t, nil
}

func checkReplaySlot(n *TreeNode, slot, i int) error {
	if slot < 0 || slot >= len(n.Slots) {
		return fmt.Errorf("replay: op %d: slot %d out of range [0,%d)", i, slot, len(n.Slots))
	}
	if !n.Slots[slot].IsEmpty() {
		return fmt.Errorf("replay: op %d: slot %d already set", i, slot)
	}
	return nil
}

// Leaves returns every leaf of t keyed by its slot path.
func (t *Tree) Leaves() map[string]uint64 {
	out := map[string]uint64{}
	var rec func(n *TreeNode, path Path)
	rec = func(n *TreeNode, path Path) {
		for i, s := range n.Slots {
			switch {
			case s.Child != nil:
				rec(s.Child, path.child(i))
			case s.Leaf != 0:
				out[path.child(i).String()] = s.Leaf
			}
		}
	}
	if t.Root != nil {
		rec(t.Root, Path{})
	}
	return out
}

// Equal reports whether t and u have the same shape, counters, and leaves.
func (t *Tree) Equal(u *Tree) bool {
	if t.TotalLeaves != u.TotalLeaves {
		return false
	}
	return t.Root.equal(u.Root)
}

func (n *TreeNode) equal(m *TreeNode) bool {
	if n == nil || m == nil {
		return n == m
	}
	if n.ParentSlot != m.ParentSlot || n.LeafCount != m.LeafCount || len(n.Slots) != len(m.Slots) {
		return false
	}
	for i := range n.Slots {
		if n.Slots[i].Leaf != m.Slots[i].Leaf || !n.Slots[i].Child.equal(m.Slots[i].Child) {
			return false
		}
	}
	return true
}

// Dump writes t in the same format as Dump.
func (t *Tree) Dump(w io.Writer) error {
	if t.Root == nil {
		return nil
	}
	return t.Root.dumpRec(w, 0, 0)
}

func (n *TreeNode) dumpRec(w io.Writer, level, index int) error {
	indent := strings.Repeat(dumpIndent, level)
	if _, err := fmt.Fprintf(w, "%s[%x]: NODE leaves=%d parent_slot=%d\n", indent, index, n.LeafCount, n.ParentSlot); err != nil {
		return err
	}
	for i, s := range n.Slots {
		switch {
		case s.Child != nil:
			if err := s.Child.dumpRec(w, level+1, i); err != nil {
				return err
			}
		case s.Leaf != 0:
			if _, err := fmt.Fprintf(w, "%s%s[%x]: LEAF OBJ: %x\n", indent, dumpIndent, i, s.Leaf); err != nil {
				return err
			}
		}
	}
	return nil
}
