package assocarray

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRoundTrip(t *testing.T) {
	s := Script{
		InitTree{TotalLeaves: 2}, AllocateRoot{}, SetMetadata{LeafCount: 2},
		LinkLeaf{Slot: 0, Value: 0xffff888003a4c000},
		LinkChildNode{Slot: 2}, SetMetadata{ParentSlot: 2, LeafCount: 1},
		LinkLeaf{Slot: 5, Value: 0xffff888003a4d000},
		AscendToParent{},
	}
	doc := NewDocument("vmcore", 0xffffffff82a01000, FanOut, s)

	for _, f := range []Format{FormatJSON, FormatYAML, FormatCBOR} {
		var buf bytes.Buffer
		require.NoError(t, EncodeDocument(&buf, doc, f), f)

		got, err := DecodeDocument(&buf, f)
		require.NoError(t, err, f)
		assert.Equal(t, doc.ID, got.ID, f)
		assert.Equal(t, doc.Source, got.Source, f)
		assert.Equal(t, doc.ArrayAddr, got.ArrayAddr, f)
		assert.Equal(t, doc.FanOut, got.FanOut, f)
		if diff := cmp.Diff(s, got.Script); diff != "" {
			t.Errorf("%s: script mismatch (-want +got):\n%s", f, diff)
		}
	}
}

func TestDecodeDocumentErrors(t *testing.T) {
	const id = `"id": "5b0a2c8e-4bc1-4f43-9f0a-3f6f1d2b7c11"`
	const rootOnly = `[{"op": "init_tree", "total_leaves": 0}, {"op": "allocate_root"}, {"op": "set_metadata", "parent_slot": 0, "leaf_count": 0}]`
	tests := []struct {
		label string
		json  string
	}{
		{"syntax", `{`},
		{"bad id", `{"id": "nope", "ops": []}`},
		{"unknown op", `{` + id + `, "ops": [{"op": "rotate"}]}`},
		{"missing field", `{` + id + `, "ops": [{"op": "link_leaf", "slot": 1}]}`},
		{"invalid script", `{` + id + `, "ops": [{"op": "allocate_root"}]}`},
		{"negative fan-out", `{` + id + `, "fan_out": -1, "ops": ` + rootOnly + `}`},
		{"oversized fan-out", `{` + id + `, "fan_out": 65, "ops": ` + rootOnly + `}`},
	}
	for _, test := range tests {
		_, err := DecodeDocument(strings.NewReader(test.json), FormatJSON)
		assert.Error(t, err, test.label)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{"cbor", FormatCBOR, false},
		{"xml", "", true},
	}
	for _, test := range tests {
		got, err := ParseFormat(test.in)
		if got != test.want || (err != nil) != test.wantErr {
			t.Errorf("ParseFormat(%q)=%q,%v want %q,err=%v", test.in, got, err, test.want, test.wantErr)
		}
	}
}
