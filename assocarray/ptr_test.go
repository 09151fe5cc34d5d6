package assocarray

import (
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		word     Word
		wantKind Kind
		wantAddr uint64
		wantErr  bool
	}{
		{0, KindEmpty, 0, false},
		{0xffff888003a4c000, KindLeaf, 0xffff888003a4c000, false},
		{0xffff888003a4c002, KindLeaf, 0xffff888003a4c002, false}, // subtype bit is ignored for leaves
		{0xffff888003a4c001, KindNode, 0xffff888003a4c000, false},
		{0xffff888003a4c003, KindShortcut, 0xffff888003a4c000, false},
		{0x11, KindNode, 0x10, false},
		{1, 0, 0, true},
		{3, 0, 0, true},
	}

	for _, test := range tests {
		got, err := Decode(test.word)
		if test.wantErr {
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Errorf("Decode(0x%x)=%v,%v want DecodeError", uint64(test.word), got, err)
			}
			continue
		}
		if err != nil || got.Kind != test.wantKind || got.Addr != test.wantAddr {
			t.Errorf("Decode(0x%x)=%v,%v want %v@0x%x", uint64(test.word), got, err, test.wantKind, test.wantAddr)
		}
	}
}

func TestEncodeDecodeWords(t *testing.T) {
	const addr = 0xffff888012340000
	tests := []struct {
		word Word
		want Kind
	}{
		{LeafWord(addr), KindLeaf},
		{NodeWord(addr), KindNode},
		{ShortcutWord(addr), KindShortcut},
	}
	for _, test := range tests {
		got, err := Decode(test.word)
		if err != nil || got.Kind != test.want || got.Addr != addr {
			t.Errorf("Decode(0x%x)=%v,%v want %v@0x%x", uint64(test.word), got, err, test.want, uint64(addr))
		}
	}
}

func TestPathString(t *testing.T) {
	tests := []struct {
		path Path
		want string
	}{
		{nil, "root"},
		{Path{2}, "root/2"},
		{Path{2, 15, 0}, "root/2/15/0"},
	}
	for _, test := range tests {
		if got := test.path.String(); got != test.want {
			t.Errorf("%#v.String()=%q want %q", test.path, got, test.want)
		}
	}
}

func TestPathChildDoesNotAlias(t *testing.T) {
	base := make(Path, 1, 4)
	base[0] = 1
	a := base.child(2)
	b := base.child(3)
	if a.String() != "root/1/2" || b.String() != "root/1/3" {
		t.Errorf("child paths alias: %v %v", a, b)
	}
}
