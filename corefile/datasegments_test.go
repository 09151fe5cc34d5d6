package corefile

import (
	"testing"
)

func TestDataSegmentsInsert(t *testing.T) {
	var ss dataSegments
	mk := func(addr, size uint64) (dataSegment, error) {
		return dataSegment{addr: addr, data: make([]byte, size), readable: true}, nil
	}
	inserts := []struct{ addr, size uint64 }{
		{100, 10},
		{200, 10},
		{95, 10},  // overlaps the front of [100,110)
		{108, 94}, // bridges the gap between the two
		{300, 0},  // nop
	}
	for _, in := range inserts {
		if err := ss.insert(in.addr, in.size, mk); err != nil {
			t.Fatalf("insert(%v, %v) failed: %v", in.addr, in.size, err)
		}
	}

	want := []struct{ addr, size uint64 }{
		{95, 5},
		{100, 10},
		{110, 90},
		{200, 10},
	}
	if len(ss) != len(want) {
		t.Fatalf("got %d segments %v, want %d", len(ss), ss, len(want))
	}
	for k, w := range want {
		if ss[k].addr != w.addr || ss[k].size() != w.size {
			t.Errorf("segment[%d]=%s, want addr=0x%x size=0x%x", k, ss[k], w.addr, w.size)
		}
	}
}

func TestDataSegmentsSlice(t *testing.T) {
	ss := dataSegments{
		dataSegment{addr: 100, data: make([]byte, 32), readable: true},
		dataSegment{addr: 200, data: make([]byte, 64), readable: false},
		dataSegment{addr: 300, data: make([]byte, 64), readable: true},
	}

	tests := []struct {
		addr, size uint64
		want       bool
	}{
		{100, 0, true},
		{100, 32, true},
		{100, 33, false}, // runs off the end
		{131, 1, true},
		{132, 1, false},
		{99, 1, false},
		{200, 8, false}, // not readable
		{300, 64, true},
		{310, 60, false},
		{500, 1, false},
	}

	for _, test := range tests {
		if _, got := ss.slice(test.addr, test.size); got != test.want {
			t.Errorf("slice(%v, %v)=%v, want %v", test.addr, test.size, got, test.want)
		}
	}
}

func TestDataSegmentsInsertKeepsFirst(t *testing.T) {
	var ss dataSegments
	var made [][2]uint64
	mk := func(fill byte) func(addr, size uint64) (dataSegment, error) {
		return func(addr, size uint64) (dataSegment, error) {
			made = append(made, [2]uint64{addr, size})
			data := make([]byte, size)
			for i := range data {
				data[i] = fill
			}
			return dataSegment{addr: addr, data: data, readable: true}, nil
		}
	}
	if err := ss.insert(0x1010, 0x10, mk(1)); err != nil {
		t.Fatal(err)
	}
	if err := ss.insert(0x1040, 0x10, mk(1)); err != nil {
		t.Fatal(err)
	}
	made = nil
	// Covers both earlier segments and the holes around them.
	if err := ss.insert(0x1000, 0x60, mk(2)); err != nil {
		t.Fatal(err)
	}

	wantMade := [][2]uint64{{0x1000, 0x10}, {0x1020, 0x20}, {0x1050, 0x10}}
	if len(made) != len(wantMade) {
		t.Fatalf("made %v, want %v", made, wantMade)
	}
	for i := range wantMade {
		if made[i] != wantMade[i] {
			t.Errorf("made[%d]=%x, want %x", i, made[i], wantMade[i])
		}
	}
	if len(ss) != 5 {
		t.Fatalf("got %d segments %v, want 5", len(ss), ss)
	}
	for addr, want := range map[uint64]byte{0x1000: 2, 0x1010: 1, 0x101f: 1, 0x1020: 2, 0x1045: 1, 0x105f: 2} {
		s, ok := ss.slice(addr, 1)
		if !ok || s.data[0] != want {
			t.Errorf("byte at 0x%x=%v (ok=%v), want %d", addr, s.data, ok, want)
		}
	}
	if _, ok := ss.slice(0x1060, 1); ok {
		t.Error("slice past the last segment succeeded")
	}

	if err := ss.insert(^uint64(0)-4, 0x10, mk(3)); err == nil {
		t.Error("insert of a wrapping range succeeded")
	}
}
