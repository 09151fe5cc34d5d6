package assocarray

import (
	"bufio"
	"fmt"
	"io"
)

// RenderC writes s as C statements for the userspace reproducer, which
// provides a struct assoc_array *array, a struct assoc_array_node *node
// cursor, and the helpers mknode, set_data, set_node, get_node, set_leaf,
// and get_parent. Statements are tab-indented and newline-separated, with
// no newline after the last one.
func RenderC(w io.Writer, s Script) error {
	bw := bufio.NewWriter(w)
	first := true
	line := func(format string, args ...interface{}) {
		if !first {
			bw.WriteByte('\n')
		}
		first = false
		bw.WriteByte('\t')
		fmt.Fprintf(bw, format, args...)
	}
	for _, op := range s {
		switch op := op.(type) {
		case InitTree:
			line("array->nr_leaves_on_tree = %dUL;", op.TotalLeaves)
		case AllocateRoot:
			line("node = mknode();")
			line("array->root = assoc_array_node_to_ptr(node);")
		case SetMetadata:
			line("set_data(node, %d, 0x%xUL);", op.ParentSlot, op.LeafCount)
		case LinkChildNode:
			line("set_node(node, %d);", op.Slot)
			line("node = get_node(node, %d);", op.Slot)
		case LinkLeaf:
			line("set_leaf(node, %d, 0x%xUL);", op.Slot, op.Value)
		case AscendToParent:
			line("node = get_parent(node);")
		default:
			return fmt.Errorf("render: unknown op %T", op)
		}
	}
	return bw.Flush()
}
