package assocarray

import (
	"strings"
	"testing"
)

func TestRenderC(t *testing.T) {
	s := Script{
		InitTree{TotalLeaves: 3},
		AllocateRoot{},
		SetMetadata{ParentSlot: 0, LeafCount: 3},
		LinkLeaf{Slot: 0, Value: 0xffff88810a3e5c00},
		LinkChildNode{Slot: 2},
		SetMetadata{ParentSlot: 2, LeafCount: 0x1f},
		LinkLeaf{Slot: 5, Value: 0xbeef0},
		AscendToParent{},
	}
	want := strings.Join([]string{
		"\tarray->nr_leaves_on_tree = 3UL;",
		"\tnode = mknode();",
		"\tarray->root = assoc_array_node_to_ptr(node);",
		"\tset_data(node, 0, 0x3UL);",
		"\tset_leaf(node, 0, 0xffff88810a3e5c00UL);",
		"\tset_node(node, 2);",
		"\tnode = get_node(node, 2);",
		"\tset_data(node, 2, 0x1fUL);",
		"\tset_leaf(node, 5, 0xbeef0UL);",
		"\tnode = get_parent(node);",
	}, "\n")

	var sb strings.Builder
	if err := RenderC(&sb, s); err != nil {
		t.Fatal(err)
	}
	if got := sb.String(); got != want {
		t.Errorf("RenderC:\n%s\nwant:\n%s", got, want)
	}
}
