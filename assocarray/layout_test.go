package assocarray

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/brenns10/kernel-stuff/corefile"
)

func TestLayoutFor(t *testing.T) {
	l64 := LayoutFor(corefile.Arch{ByteOrder: binary.LittleEndian, PointerSize: 8})
	assert.Equal(t, uint64(8), l64.ParentSlotOffset)
	assert.Equal(t, uint64(16), l64.SlotsOffset)
	assert.Equal(t, uint64(144), l64.LeafCountOffset)
	assert.Equal(t, uint64(152), l64.NodeSize)
	assert.Equal(t, uint64(8), l64.ArrayLeafCountOffset)
	assert.NoError(t, l64.Validate())

	l32 := LayoutFor(corefile.Arch{ByteOrder: binary.BigEndian, PointerSize: 4})
	assert.Equal(t, uint64(4), l32.ParentSlotOffset)
	assert.Equal(t, uint64(8), l32.SlotsOffset)
	assert.Equal(t, uint64(72), l32.LeafCountOffset)
	assert.Equal(t, uint64(76), l32.NodeSize)
	assert.NoError(t, l32.Validate())
}

func TestLayoutValidate(t *testing.T) {
	base := LayoutFor(corefile.Arch{ByteOrder: binary.LittleEndian, PointerSize: 8})
	tests := []struct {
		label  string
		modify func(l *Layout)
	}{
		{"pointer size", func(l *Layout) { l.Arch.PointerSize = 2 }},
		{"byte order", func(l *Layout) { l.Arch.ByteOrder = nil }},
		{"fan-out", func(l *Layout) { l.FanOut = 0 }},
		{"node size", func(l *Layout) { l.NodeSize = 100 }},
		{"overlap", func(l *Layout) { l.ParentSlotOffset = 20 }},
		{"array overlap", func(l *Layout) { l.ArrayLeafCountOffset = 4 }},
	}
	for _, test := range tests {
		l := base
		test.modify(&l)
		assert.Error(t, l.Validate(), test.label)
	}
}
