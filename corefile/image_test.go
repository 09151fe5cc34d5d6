package corefile_test

import (
	"encoding/binary"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brenns10/kernel-stuff/corefile"
	"github.com/brenns10/kernel-stuff/corefile/corefiletest"
)

var amd64 = corefile.Arch{ByteOrder: binary.LittleEndian, PointerSize: 8}

func writeTestCore(t *testing.T, a corefile.Arch, segs []corefiletest.Segment) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "core")
	require.NoError(t, corefiletest.WriteCore(path, a, segs))
	return path
}

func TestOpenAndRead(t *testing.T) {
	seg := make([]byte, 32)
	binary.LittleEndian.PutUint64(seg[8:], 0xffff888012345679)
	seg[16] = 0x2a

	path := writeTestCore(t, amd64, []corefiletest.Segment{
		{Addr: 0x1000, Data: seg},
		{Addr: 0x3000, Data: []byte{1, 2, 3, 4}},
	})
	img, err := corefile.Open(path, nil)
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, amd64, img.Arch())
	assert.Len(t, img.Segments(), 2)

	ptr, err := img.ReadPointer(0x1008)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xffff888012345679), ptr)

	b, err := img.ReadUint(0x1010, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x2a), b)

	buf := make([]byte, 4)
	require.NoError(t, img.ReadAt(buf, 0x3000))
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)
}

func TestReadErrors(t *testing.T) {
	path := writeTestCore(t, amd64, []corefiletest.Segment{
		{Addr: 0x1000, Data: make([]byte, 16)},
	})
	img, err := corefile.Open(path, nil)
	require.NoError(t, err)
	defer img.Close()

	tests := []struct {
		addr uint64
		size int
		want error
	}{
		{0, 8, corefile.ErrNil},
		{0x0ff8, 8, corefile.ErrOutOfBounds},
		{0x100c, 8, corefile.ErrOutOfBounds}, // straddles the end
		{0x2000, 1, corefile.ErrOutOfBounds},
	}
	for _, test := range tests {
		err := img.ReadAt(make([]byte, test.size), test.addr)
		if !errors.Is(err, test.want) {
			t.Errorf("ReadAt(0x%x, %d)=%v, want %v", test.addr, test.size, err, test.want)
		}
	}
}

func TestOpenBigEndian32(t *testing.T) {
	a := corefile.Arch{ByteOrder: binary.BigEndian, PointerSize: 4}
	path := writeTestCore(t, a, []corefiletest.Segment{
		{Addr: 0x8000, Data: []byte{0xde, 0xad, 0xbe, 0xef}},
	})
	img, err := corefile.Open(path, nil)
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, a, img.Arch())
	ptr, err := img.ReadPointer(0x8000)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xdeadbeef), ptr)
}

func TestOpenRejectsNonCore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vmlinux")
	require.NoError(t, corefiletest.WriteSymbols(path, amd64, map[string]uint64{"x": 1}))
	_, err := corefile.Open(path, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not a core file"), "got %v", err)
}

func TestLookupSymbol(t *testing.T) {
	dir := t.TempDir()
	core := filepath.Join(dir, "vmcore")
	require.NoError(t, corefiletest.WriteCore(core, amd64, []corefiletest.Segment{
		{Addr: 0x1000, Data: make([]byte, 8)},
	}))
	syms := filepath.Join(dir, "vmlinux")
	require.NoError(t, corefiletest.WriteSymbols(syms, amd64, map[string]uint64{
		"key_user_keyring": 0xffffffff82a01000,
		"init_task":        0xffffffff82c0c940,
	}))

	img, err := corefile.Open(core, nil)
	require.NoError(t, err)
	_, err = img.LookupSymbol("init_task")
	assert.ErrorIs(t, err, corefile.ErrNoSymbols)
	require.NoError(t, img.Close())

	img, err = corefile.Open(core, &corefile.OpenOptions{SymbolFile: syms})
	require.NoError(t, err)
	defer img.Close()

	addr, err := img.LookupSymbol("init_task")
	require.NoError(t, err)
	assert.Equal(t, uint64(0xffffffff82c0c940), addr)

	_, err = img.LookupSymbol("missing")
	assert.ErrorIs(t, err, corefile.ErrSymbolNotFound)
}

func TestSymbolArchMismatch(t *testing.T) {
	dir := t.TempDir()
	core := filepath.Join(dir, "vmcore")
	require.NoError(t, corefiletest.WriteCore(core, amd64, []corefiletest.Segment{
		{Addr: 0x1000, Data: make([]byte, 8)},
	}))
	syms := filepath.Join(dir, "vmlinux")
	require.NoError(t, corefiletest.WriteSymbols(syms, corefile.Arch{ByteOrder: binary.LittleEndian, PointerSize: 4}, map[string]uint64{"x": 1}))

	_, err := corefile.Open(core, &corefile.OpenOptions{SymbolFile: syms})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatched architectures")
}
