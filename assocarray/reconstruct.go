package assocarray

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
	"go.uber.org/zap"
)

// DefaultMaxDepth bounds the depth of a walk unless Options.MaxDepth is set.
const DefaultMaxDepth = 64

// Options configures Reconstruct.
type Options struct {
	// Strict enables consistency checks on every node: nr_leaves_on_branch
	// must equal the node's direct leaves plus its children's counts (and,
	// for the root, the array's total), and every child's parent_slot and
	// back_pointer must name its parent.
	Strict bool

	// MaxDepth is the deepest node level accepted. Zero means DefaultMaxDepth.
	MaxDepth int
}

func (o *Options) maxDepth() int {
	if o == nil || o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

func (o *Options) strict() bool {
	return o != nil && o.Strict
}

// ReconstructArray reads the struct assoc_array at addr and reconstructs it.
func ReconstructArray(m Memory, addr uint64, l Layout, opts *Options) (Script, error) {
	arr, err := ReadArray(m, addr, l)
	if err != nil {
		return nil, err
	}
	logger.Debug("array", zap.Uint64("addr", addr), zap.Uint64("root", uint64(arr.Root)), zap.Uint64("leaves", arr.TotalLeaves))
	return Reconstruct(m, arr.Root, arr.TotalLeaves, opts)
}

// frame is one node on the walk's stack.
type frame struct {
	node     *Node
	path     Path
	occupied *bitset.BitSet
	next     uint   // next slot to visit
	leaves   uint64 // leaves found under node so far
}

// Reconstruct walks the trie rooted at the tagged word root and returns the
// script that rebuilds it. totalLeaves is the array's nr_leaves_on_tree and
// is copied into the leading InitTree op.
//
// Slots are visited in increasing index order, depth first. The root must be
// a node: any other root word, including one that fails to decode, is a
// StructureError. No partial script is returned: any error aborts the walk.
func Reconstruct(m Memory, root Word, totalLeaves uint64, opts *Options) (Script, error) {
	p, err := Decode(root)
	if err != nil {
		return nil, &StructureError{Path: Path{}, Reason: fmt.Sprintf("root word 0x%x: %s", uint64(root), err.(*DecodeError).Reason)}
	}
	if p.Kind != KindNode {
		return nil, &StructureError{Addr: p.Addr, Path: Path{}, Reason: fmt.Sprintf("root is %s, want node", p.Kind)}
	}

	w := &walker{
		mem:     m,
		strict:  opts.strict(),
		depth:   opts.maxDepth(),
		visited: map[uint64]bool{},
	}
	script, err := w.walk(p.Addr, totalLeaves)
	if err != nil {
		return nil, err
	}
	logger.Debug("reconstructed", zap.Int("ops", len(script)), zap.Int("nodes", len(w.visited)))
	return script, nil
}

type walker struct {
	mem     Memory
	strict  bool
	depth   int
	visited map[uint64]bool
	script  Script
}

func (w *walker) readNode(addr uint64, path Path) (*frame, error) {
	if w.visited[addr] {
		return nil, &StructureError{Addr: addr, Path: path, Reason: "node is reachable more than once"}
	}
	w.visited[addr] = true
	n, err := w.mem.ReadNode(addr)
	if err != nil {
		return nil, &ReadError{Addr: addr, Path: path, Err: err}
	}
	logger.Debug("node", zap.Stringer("path", path), zap.Uint64("addr", addr),
		zap.Uint8("parent_slot", n.ParentSlot), zap.Uint64("leaves", n.LeafCount))
	w.script = append(w.script, SetMetadata{ParentSlot: n.ParentSlot, LeafCount: n.LeafCount})
	return &frame{node: n, path: path, occupied: n.Occupied()}, nil
}

func (w *walker) walk(rootAddr uint64, totalLeaves uint64) (Script, error) {
	w.script = Script{InitTree{TotalLeaves: totalLeaves}, AllocateRoot{}}
	root, err := w.readNode(rootAddr, Path{})
	if err != nil {
		return nil, err
	}
	if w.strict && root.node.LeafCount != totalLeaves {
		return nil, &StructureError{Addr: rootAddr, Path: Path{},
			Reason: fmt.Sprintf("root has %d leaves on branch, array has %d", root.node.LeafCount, totalLeaves)}
	}

	stack := []*frame{root}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		i, ok := f.occupied.NextSet(f.next)
		if !ok {
			if err := w.finish(f); err != nil {
				return nil, err
			}
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				stack[len(stack)-1].leaves += f.node.LeafCount
				w.script = append(w.script, AscendToParent{})
			}
			continue
		}
		f.next = i + 1
		slot := int(i)

		word := f.node.Slots[slot]
		p, err := Decode(word)
		if err != nil {
			de := err.(*DecodeError)
			de.Addr, de.Path = f.node.Addr, f.path.child(slot)
			return nil, de
		}
		switch p.Kind {
		case KindLeaf:
			w.script = append(w.script, LinkLeaf{Slot: slot, Value: p.Addr})
			f.leaves++

		case KindNode:
			path := f.path.child(slot)
			if len(path) > w.depth {
				return nil, &StructureError{Addr: p.Addr, Path: path, Reason: fmt.Sprintf("deeper than %d levels", w.depth)}
			}
			w.script = append(w.script, LinkChildNode{Slot: slot})
			child, err := w.readNode(p.Addr, path)
			if err != nil {
				return nil, err
			}
			if w.strict {
				if err := checkChild(f.node, child.node, slot, path); err != nil {
					return nil, err
				}
			}
			stack = append(stack, child)

		default:
			return nil, &UnsupportedVariantError{Addr: p.Addr, Path: f.path.child(slot), Kind: p.Kind}
		}
	}
	return w.script, nil
}

// finish runs the end-of-node strict checks.
func (w *walker) finish(f *frame) error {
	if w.strict && f.leaves != f.node.LeafCount {
		return &StructureError{Addr: f.node.Addr, Path: f.path,
			Reason: fmt.Sprintf("nr_leaves_on_branch is %d, subtree holds %d", f.node.LeafCount, f.leaves)}
	}
	return nil
}

func checkChild(parent, child *Node, slot int, path Path) error {
	if int(child.ParentSlot) != slot {
		return &StructureError{Addr: child.Addr, Path: path,
			Reason: fmt.Sprintf("parent_slot is %d, want %d", child.ParentSlot, slot)}
	}
	if want := NodeWord(parent.Addr); child.BackPointer != want {
		return &StructureError{Addr: child.Addr, Path: path,
			Reason: fmt.Sprintf("back_pointer is 0x%x, want 0x%x", uint64(child.BackPointer), uint64(want))}
	}
	return nil
}
