package corefile

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Errors commonly returned by Target reads.
var (
	ErrNil         = errors.New("nil pointer")
	ErrOutOfBounds = errors.New("access is out-of-bounds")
)

// Errors returned by Image.LookupSymbol.
var (
	ErrNoSymbols      = errors.New("no symbol table loaded")
	ErrSymbolNotFound = errors.New("symbol not found")
)

// OpenOptions configures Open.
type OpenOptions struct {
	// SymbolFile is an optional ELF executable (e.g., vmlinux or the
	// program binary) whose symbol table is used by LookupSymbol.
	SymbolFile string
}

// Image is a read-only view of the address space captured in a core file.
// An Image is safe for concurrent reads.
type Image struct {
	// Path is the path of the core file.
	Path string

	arch         Arch
	dataSegments dataSegments      // virtual memory mappings, sorted by addr
	filemaps     []*mmapFile       // each dataSegment points into one of these mmaps
	symbols      map[string]uint64 // nil if no symbol file was loaded
}

// Open opens an ELF core file.
// The file is held open by mmap and must be closed with Image.Close.
func Open(corePath string, opts *OpenOptions) (*Image, error) {
	if opts == nil {
		opts = &OpenOptions{}
	}
	img := &Image{Path: corePath}
	if err := img.open(corePath, opts); err != nil {
		return nil, multierr.Append(err, img.Close())
	}
	return img, nil
}

func (img *Image) open(corePath string, opts *OpenOptions) error {
	coref, err := mmapOpen(corePath)
	if err != nil {
		return err
	}
	img.filemaps = append(img.filemaps, coref)
	if err := readELFCore(coref, img); err != nil {
		return fmt.Errorf("%s: %w", corePath, err)
	}
	if opts.SymbolFile != "" {
		if err := readELFSymbols(opts.SymbolFile, img); err != nil {
			return fmt.Errorf("%s: %w", opts.SymbolFile, err)
		}
	}
	return nil
}

// Close releases the mapped files. Slices previously returned by the
// Image are invalid after Close.
func (img *Image) Close() error {
	var err error
	for _, f := range img.filemaps {
		err = multierr.Append(err, f.Close())
	}
	img.filemaps = nil
	img.dataSegments = nil
	return err
}

// Arch reports the byte order and pointer size of the captured target.
func (img *Image) Arch() Arch {
	return img.arch
}

// ReadAt implements Target.
func (img *Image) ReadAt(p []byte, addr uint64) error {
	b, err := img.Slice(addr, uint64(len(p)))
	if err != nil {
		return err
	}
	copy(p, b)
	return nil
}

// Slice returns the bytes at [addr, addr+size) without copying.
// The range must lie within a single readable segment.
func (img *Image) Slice(addr, size uint64) ([]byte, error) {
	if addr == 0 {
		return nil, ErrNil
	}
	ds, ok := img.dataSegments.slice(addr, size)
	if !ok {
		return nil, fmt.Errorf("read 0x%x bytes at 0x%x: %w", size, addr, ErrOutOfBounds)
	}
	return ds.data, nil
}

// ReadUint reads a size-byte unsigned integer at addr.
func (img *Image) ReadUint(addr uint64, size int) (uint64, error) {
	return ReadUint(img, addr, size)
}

// ReadPointer reads a pointer-sized word at addr.
func (img *Image) ReadPointer(addr uint64) (uint64, error) {
	return ReadPointer(img, addr)
}

// LookupSymbol returns the address of the named symbol from the
// symbol file given to Open.
func (img *Image) LookupSymbol(name string) (uint64, error) {
	if img.symbols == nil {
		return 0, ErrNoSymbols
	}
	addr, ok := img.symbols[name]
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, ErrSymbolNotFound)
	}
	return addr, nil
}

// Segment describes one mapped range of an Image.
type Segment struct {
	Addr, Size uint64
	Readable   bool
}

// Segments lists the mapped ranges of img in increasing address order.
func (img *Image) Segments() []Segment {
	out := make([]Segment, 0, len(img.dataSegments))
	for _, s := range img.dataSegments {
		out = append(out, Segment{Addr: s.addr, Size: s.size(), Readable: s.readable})
	}
	return out
}

func (img *Image) insertDataSegment(addr, size uint64, makeSegment func(addr, size uint64) (dataSegment, error)) error {
	return img.dataSegments.insert(addr, size, makeSegment)
}
