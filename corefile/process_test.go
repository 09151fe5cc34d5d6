package corefile

import (
	"errors"
	"os"
	"strings"
	"testing"
	"unsafe"
)

func TestParseProcMaps(t *testing.T) {
	const maps = `00400000-00452000 r-xp 00000000 08:02 173521      /usr/bin/dbus-daemon
00651000-00652000 r--p 00051000 08:02 173521      /usr/bin/dbus-daemon
00652000-00655000 rw-p 00052000 08:02 173521      /usr/bin/dbus-daemon
00655000-00656000 ---p 00000000 00:00 0
00e03000-00e24000 rw-p 00000000 00:00 0           [heap]
`
	ms, err := parseProcMaps(strings.NewReader(maps))
	if err != nil {
		t.Fatal(err)
	}
	p := &Process{mappings: ms}

	tests := []struct {
		addr, size uint64
		want       bool
	}{
		{0x400000, 8, true},
		{0x651ff8, 16, true}, // spans two adjacent readable mappings
		{0x654ff8, 16, false},
		{0x655000, 1, false},
		{0xe03000, 0x21000, true},
		{0xe03000, 0x21001, false},
		{0x100, 1, false},
	}
	for _, test := range tests {
		if got := p.mapped(test.addr, test.size); got != test.want {
			t.Errorf("mapped(0x%x, 0x%x)=%v, want %v", test.addr, test.size, got, test.want)
		}
	}
}

func TestOpenProcessSelf(t *testing.T) {
	if _, err := os.Stat("/proc/self/mem"); err != nil {
		t.Skip("no /proc")
	}
	x := uint64(0x1122334455667788)
	p, err := OpenProcess(os.Getpid())
	if err != nil {
		t.Skipf("cannot open self: %v", err)
	}
	defer p.Close()

	got, err := ReadUint(p, uint64(uintptr(unsafe.Pointer(&x))), 8)
	if err != nil {
		t.Fatalf("ReadUint: %v", err)
	}
	if got != x {
		t.Errorf("ReadUint=0x%x, want 0x%x", got, x)
	}
	if err := p.ReadAt(make([]byte, 8), 0); !errors.Is(err, ErrNil) {
		t.Errorf("ReadAt(0)=%v, want ErrNil", err)
	}
}
