package assocarray

import (
	"fmt"
	"io"
	"strings"
)

const dumpIndent = "   "

// Dump writes a human-readable listing of the trie rooted at root, one line
// per non-null slot, indented by depth. Unlike Reconstruct, Dump lists
// shortcuts instead of failing on them, and accepts a leaf or shortcut root.
func Dump(w io.Writer, m Memory, root Word) error {
	d := &dumper{w: w, mem: m, visited: map[uint64]bool{}}
	return d.dumpRec(root, Path{}, 0)
}

type dumper struct {
	w       io.Writer
	mem     Memory
	visited map[uint64]bool
}

func (d *dumper) dumpRec(word Word, path Path, index int) error {
	indent := strings.Repeat(dumpIndent, len(path))
	p, err := Decode(word)
	if err != nil {
		return err
	}
	switch p.Kind {
	case KindEmpty:
		return nil
	case KindLeaf:
		_, err := fmt.Fprintf(d.w, "%s[%x]: LEAF OBJ: %x\n", indent, index, p.Addr)
		return err
	case KindShortcut:
		_, err := fmt.Fprintf(d.w, "%s[%x]: SHORTCUT - NOT IMPLEMENTED\n", indent, index)
		return err
	}

	if d.visited[p.Addr] {
		return &StructureError{Addr: p.Addr, Path: path, Reason: "node is reachable more than once"}
	}
	if len(path) > DefaultMaxDepth {
		return &StructureError{Addr: p.Addr, Path: path, Reason: fmt.Sprintf("deeper than %d levels", DefaultMaxDepth)}
	}
	d.visited[p.Addr] = true
	n, err := d.mem.ReadNode(p.Addr)
	if err != nil {
		return &ReadError{Addr: p.Addr, Path: path, Err: err}
	}
	if _, err := fmt.Fprintf(d.w, "%s[%x]: NODE %x\n", indent, index, p.Addr); err != nil {
		return err
	}
	for i, slot := range n.Slots {
		if slot == 0 {
			continue
		}
		if err := d.dumpRec(slot, path.child(i), i); err != nil {
			return err
		}
	}
	return nil
}
