package corefile

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// readELFCore loads the PT_LOAD segments of an ELF core file into img.
func readELFCore(mmapf *mmapFile, img *Image) error {
	f, err := elf.NewFile(mmapf)
	if err != nil {
		return err
	}
	if f.Type != elf.ET_CORE {
		return fmt.Errorf("not a core file: ELF type is %s", f.Type)
	}
	a, err := elfArch(f)
	if err != nil {
		return err
	}
	img.arch = a
	logger.Debug("ReadELF", zap.Stringer("machine", f.Machine), zap.Stringer("arch", a))

	// Sort loadable memory segments by target virtual address.
	// They seem to be sorted in linux core dumps, but that's not guaranteed.
	var progs elfSortedProgHeaders
	for _, ph := range f.Progs {
		if ph.Type != elf.PT_LOAD || ph.Filesz == 0 {
			continue
		}
		if ph.Memsz < ph.Filesz {
			return fmt.Errorf("ReadELF: unexpected Memsz < Filesz at %#v", ph.ProgHeader)
		}
		progs = append(progs, ph.ProgHeader)
	}
	sort.Sort(progs)

	// Merge adjacent segments that have the same mode.
	for k := 1; k < len(progs); {
		prev := &progs[k-1]
		curr := &progs[k]
		sameMode := prev.Flags&elf.PF_R == curr.Flags&elf.PF_R
		if sameMode && prev.Memsz == prev.Filesz && prev.Vaddr+prev.Memsz == curr.Vaddr && prev.Off+prev.Filesz == curr.Off {
			logger.Debug("ReadELF: merging", zap.Uint64("prev", prev.Vaddr), zap.Uint64("curr", curr.Vaddr))
			prev.Memsz += curr.Memsz
			prev.Filesz += curr.Filesz
			progs = append(progs[:k], progs[k+1:]...)
			continue
		}
		k++
	}

	// The core file sometimes has Memsz > Filesz. The extra space was not
	// dumped, so reads from it fail with ErrOutOfBounds.
	for _, ph := range progs {
		ph := ph
		err := img.insertDataSegment(ph.Vaddr, ph.Filesz, func(addr, size uint64) (dataSegment, error) {
			data, err := mmapf.ReadSliceAt(ph.Off+(addr-ph.Vaddr), size)
			if err != nil {
				return dataSegment{}, fmt.Errorf("bad ELF segment %+v: %w", ph, err)
			}
			return dataSegment{
				addr:     addr,
				data:     data,
				readable: ph.Flags&elf.PF_R != 0,
			}, nil
		})
		if err != nil {
			return err
		}
	}
	logger.Debug("ReadELF: loaded", zap.Int("segments", len(img.dataSegments)))
	return nil
}

// readELFSymbols loads the symbol table of an ELF executable into img.
func readELFSymbols(path string, img *Image) error {
	mmapf, err := mmapOpen(path)
	if err != nil {
		return err
	}
	img.filemaps = append(img.filemaps, mmapf)
	f, err := elf.NewFile(mmapf)
	if err != nil {
		return err
	}
	a, err := elfArch(f)
	if err != nil {
		return err
	}
	if a != img.arch {
		return fmt.Errorf("mismatched architectures: core is %s, symbol file is %s", img.arch, a)
	}
	syms, err := f.Symbols()
	if err != nil {
		return fmt.Errorf("could not load symbols: %w", err)
	}
	img.symbols = make(map[string]uint64, len(syms))
	for _, s := range syms {
		if s.Name == "" || s.Section == elf.SHN_UNDEF {
			continue
		}
		if _, dup := img.symbols[s.Name]; !dup {
			img.symbols[s.Name] = s.Value
		}
	}
	logger.Debug("ReadELF: symbols", zap.String("path", path), zap.Int("count", len(img.symbols)))
	return nil
}

func elfArch(f *elf.File) (Arch, error) {
	switch f.Machine {
	case elf.EM_386, elf.EM_X86_64, elf.EM_AARCH64, elf.EM_ARM, elf.EM_PPC64, elf.EM_S390, elf.EM_RISCV:
	default:
		return Arch{}, fmt.Errorf("unsupported ELF machine type %s", f.Machine)
	}
	var a Arch
	switch f.Class {
	case elf.ELFCLASS32:
		a.PointerSize = 4
	case elf.ELFCLASS64:
		a.PointerSize = 8
	default:
		return Arch{}, fmt.Errorf("unsupported ELF class %s", f.Class)
	}
	switch f.Data {
	case elf.ELFDATA2LSB:
		a.ByteOrder = binary.LittleEndian
	case elf.ELFDATA2MSB:
		a.ByteOrder = binary.BigEndian
	default:
		return Arch{}, fmt.Errorf("unsupported ELF data encoding %s", f.Data)
	}
	return a, nil
}

type elfSortedProgHeaders []elf.ProgHeader

func (p elfSortedProgHeaders) Len() int           { return len(p) }
func (p elfSortedProgHeaders) Swap(i, k int)      { p[i], p[k] = p[k], p[i] }
func (p elfSortedProgHeaders) Less(i, k int) bool { return p[i].Vaddr < p[k].Vaddr }
