package assocarray

import (
	"fmt"
	"strings"
)

// Op is one step of a reconstruction Script. The concrete types are
// InitTree, AllocateRoot, SetMetadata, LinkChildNode, LinkLeaf, and
// AscendToParent.
//
// A Script is replayed with a single cursor naming the current node.
type Op interface {
	fmt.Stringer
	isOp()
}

// InitTree sets the array's nr_leaves_on_tree. It is always the first op.
type InitTree struct {
	TotalLeaves uint64
}

// AllocateRoot allocates a node, makes it the root, and makes it current.
type AllocateRoot struct{}

// SetMetadata stamps parent_slot and nr_leaves_on_branch on the current node.
type SetMetadata struct {
	ParentSlot uint8
	LeafCount  uint64
}

// LinkChildNode allocates a node, attaches it at Slot of the current node,
// and makes it current.
type LinkChildNode struct {
	Slot int
}

// LinkLeaf stores an object identifier at Slot of the current node.
type LinkLeaf struct {
	Slot  int
	Value uint64
}

// AscendToParent makes the parent of the current node current.
type AscendToParent struct{}

func (InitTree) isOp()       {}
func (AllocateRoot) isOp()   {}
func (SetMetadata) isOp()    {}
func (LinkChildNode) isOp()  {}
func (LinkLeaf) isOp()       {}
func (AscendToParent) isOp() {}

func (op InitTree) String() string {
	return fmt.Sprintf("InitTree{%d}", op.TotalLeaves)
}

func (AllocateRoot) String() string {
	return "AllocateRoot"
}

func (op SetMetadata) String() string {
	return fmt.Sprintf("SetMetadata{parent_slot=%d, leaf_count=%d}", op.ParentSlot, op.LeafCount)
}

func (op LinkChildNode) String() string {
	return fmt.Sprintf("LinkChildNode{%d}", op.Slot)
}

func (op LinkLeaf) String() string {
	return fmt.Sprintf("LinkLeaf{%d, 0x%x}", op.Slot, op.Value)
}

func (AscendToParent) String() string {
	return "AscendToParent"
}

// Script is an ordered list of reconstruction ops.
type Script []Op

func (s Script) String() string {
	parts := make([]string, len(s))
	for i, op := range s {
		parts[i] = op.String()
	}
	return strings.Join(parts, ", ")
}

// Counts reports the number of nodes and leaves s builds.
func (s Script) Counts() (nodes, leaves int) {
	for _, op := range s {
		switch op.(type) {
		case AllocateRoot, LinkChildNode:
			nodes++
		case LinkLeaf:
			leaves++
		}
	}
	return nodes, leaves
}

// Validate checks that s is well formed for a trie with the given fan-out:
// InitTree then AllocateRoot open the script, SetMetadata follows every node
// allocation, pushes and pops balance without popping the root, and slot
// indices within each node are in range and strictly increasing.
func (s Script) Validate(fanOut int) error {
	if err := checkFanOut(fanOut); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	if len(s) < 3 {
		return fmt.Errorf("script: too short (%d ops)", len(s))
	}
	if _, ok := s[0].(InitTree); !ok {
		return fmt.Errorf("script: op 0 is %v, want InitTree", s[0])
	}
	if _, ok := s[1].(AllocateRoot); !ok {
		return fmt.Errorf("script: op 1 is %v, want AllocateRoot", s[1])
	}

	// lastSlot[d] is the last slot linked in the node at depth d.
	lastSlot := []int{-1}
	checkSlot := func(i, slot int) error {
		if slot < 0 || slot >= fanOut {
			return fmt.Errorf("script: op %d: slot %d out of range [0,%d)", i, slot, fanOut)
		}
		top := len(lastSlot) - 1
		if slot <= lastSlot[top] {
			return fmt.Errorf("script: op %d: slot %d follows slot %d", i, slot, lastSlot[top])
		}
		lastSlot[top] = slot
		return nil
	}
	for i := 2; i < len(s); i++ {
		prev := s[i-1]
		_, prevAlloc := prev.(LinkChildNode)
		if _, ok := prev.(AllocateRoot); ok {
			prevAlloc = true
		}
		_, isMeta := s[i].(SetMetadata)
		if prevAlloc != isMeta {
			return fmt.Errorf("script: op %d: %v after %v", i, s[i], prev)
		}

		switch op := s[i].(type) {
		case SetMetadata:
		case LinkLeaf:
			if err := checkSlot(i, op.Slot); err != nil {
				return err
			}
		case LinkChildNode:
			if err := checkSlot(i, op.Slot); err != nil {
				return err
			}
			lastSlot = append(lastSlot, -1)
		case AscendToParent:
			if len(lastSlot) == 1 {
				return fmt.Errorf("script: op %d: AscendToParent at the root", i)
			}
			lastSlot = lastSlot[:len(lastSlot)-1]
		default:
			return fmt.Errorf("script: op %d: unexpected %v", i, op)
		}
	}
	if d := len(lastSlot) - 1; d != 0 {
		return fmt.Errorf("script: %d unbalanced LinkChildNode ops", d)
	}
	return nil
}
