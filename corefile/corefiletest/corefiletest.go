// Package corefiletest writes small synthetic ELF files for tests of code
// that reads core images.
package corefiletest

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"github.com/brenns10/kernel-stuff/corefile"
)

// Segment is one PT_LOAD segment of a synthetic core file.
type Segment struct {
	Addr  uint64
	Data  []byte
	Flags elf.ProgFlag // defaults to PF_R|PF_W
}

func machine(a corefile.Arch) elf.Machine {
	if a.PointerSize == 4 {
		return elf.EM_386
	}
	return elf.EM_X86_64
}

func ident(a corefile.Arch) [elf.EI_NIDENT]byte {
	var id [elf.EI_NIDENT]byte
	copy(id[:], elf.ELFMAG)
	id[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	if a.PointerSize == 4 {
		id[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	}
	id[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	if a.ByteOrder == binary.BigEndian {
		id[elf.EI_DATA] = byte(elf.ELFDATA2MSB)
	}
	id[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	return id
}

// CoreBytes returns an ELF core file image holding segs.
func CoreBytes(a corefile.Arch, segs []Segment) ([]byte, error) {
	if a.PointerSize != 4 && a.PointerSize != 8 {
		return nil, fmt.Errorf("bad pointer size %d", a.PointerSize)
	}
	segs = append([]Segment(nil), segs...)
	sort.Slice(segs, func(i, k int) bool { return segs[i].Addr < segs[k].Addr })

	var ehsize, phentsize int
	if a.PointerSize == 8 {
		ehsize, phentsize = binary.Size(elf.Header64{}), binary.Size(elf.Prog64{})
	} else {
		ehsize, phentsize = binary.Size(elf.Header32{}), binary.Size(elf.Prog32{})
	}
	off := uint64(ehsize + phentsize*len(segs))

	buf := &bytes.Buffer{}
	if a.PointerSize == 8 {
		binary.Write(buf, a.ByteOrder, elf.Header64{
			Ident:     ident(a),
			Type:      uint16(elf.ET_CORE),
			Machine:   uint16(machine(a)),
			Version:   uint32(elf.EV_CURRENT),
			Phoff:     uint64(ehsize),
			Ehsize:    uint16(ehsize),
			Phentsize: uint16(phentsize),
			Phnum:     uint16(len(segs)),
		})
	} else {
		binary.Write(buf, a.ByteOrder, elf.Header32{
			Ident:     ident(a),
			Type:      uint16(elf.ET_CORE),
			Machine:   uint16(machine(a)),
			Version:   uint32(elf.EV_CURRENT),
			Phoff:     uint32(ehsize),
			Ehsize:    uint16(ehsize),
			Phentsize: uint16(phentsize),
			Phnum:     uint16(len(segs)),
		})
	}
	for _, s := range segs {
		flags := s.Flags
		if flags == 0 {
			flags = elf.PF_R | elf.PF_W
		}
		size := uint64(len(s.Data))
		if a.PointerSize == 8 {
			binary.Write(buf, a.ByteOrder, elf.Prog64{
				Type: uint32(elf.PT_LOAD), Flags: uint32(flags), Off: off,
				Vaddr: s.Addr, Filesz: size, Memsz: size, Align: 1,
			})
		} else {
			binary.Write(buf, a.ByteOrder, elf.Prog32{
				Type: uint32(elf.PT_LOAD), Flags: uint32(flags), Off: uint32(off),
				Vaddr: uint32(s.Addr), Filesz: uint32(size), Memsz: uint32(size), Align: 1,
			})
		}
		off += size
	}
	for _, s := range segs {
		buf.Write(s.Data)
	}
	return buf.Bytes(), nil
}

// WriteCore writes an ELF core file holding segs to path.
func WriteCore(path string, a corefile.Arch, segs []Segment) error {
	b, err := CoreBytes(a, segs)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// WriteSymbols writes an ELF executable to path whose only content is a
// symbol table defining the given absolute symbols.
func WriteSymbols(path string, a corefile.Arch, symbols map[string]uint64) error {
	names := make([]string, 0, len(symbols))
	for name := range symbols {
		names = append(names, name)
	}
	sort.Strings(names)

	strtab := []byte{0}
	symtab := &bytes.Buffer{}
	if a.PointerSize == 8 {
		binary.Write(symtab, a.ByteOrder, elf.Sym64{})
	} else {
		binary.Write(symtab, a.ByteOrder, elf.Sym32{})
	}
	info := elf.ST_INFO(elf.STB_GLOBAL, elf.STT_OBJECT)
	for _, name := range names {
		nameOff := uint32(len(strtab))
		strtab = append(append(strtab, name...), 0)
		if a.PointerSize == 8 {
			binary.Write(symtab, a.ByteOrder, elf.Sym64{
				Name: nameOff, Info: info, Shndx: uint16(elf.SHN_ABS), Value: symbols[name],
			})
		} else {
			binary.Write(symtab, a.ByteOrder, elf.Sym32{
				Name: nameOff, Info: info, Shndx: uint16(elf.SHN_ABS), Value: uint32(symbols[name]),
			})
		}
	}
	shstrtab := []byte("\x00.symtab\x00.strtab\x00.shstrtab\x00")

	type section struct {
		name, typ, link uint32
		data            []byte
		entsize         uint64
	}
	symEnt := uint64(binary.Size(elf.Sym64{}))
	if a.PointerSize == 4 {
		symEnt = uint64(binary.Size(elf.Sym32{}))
	}
	sections := []section{
		{},
		{name: 1, typ: uint32(elf.SHT_SYMTAB), link: 2, data: symtab.Bytes(), entsize: symEnt},
		{name: 9, typ: uint32(elf.SHT_STRTAB), data: strtab},
		{name: 17, typ: uint32(elf.SHT_STRTAB), data: shstrtab},
	}

	var ehsize, shentsize int
	if a.PointerSize == 8 {
		ehsize, shentsize = binary.Size(elf.Header64{}), binary.Size(elf.Section64{})
	} else {
		ehsize, shentsize = binary.Size(elf.Header32{}), binary.Size(elf.Section32{})
	}
	body := &bytes.Buffer{}
	offs := make([]uint64, len(sections))
	for i, s := range sections {
		offs[i] = uint64(ehsize + body.Len())
		body.Write(s.data)
	}
	shoff := uint64(ehsize + body.Len())

	buf := &bytes.Buffer{}
	if a.PointerSize == 8 {
		binary.Write(buf, a.ByteOrder, elf.Header64{
			Ident: ident(a), Type: uint16(elf.ET_EXEC), Machine: uint16(machine(a)),
			Version: uint32(elf.EV_CURRENT), Shoff: shoff, Ehsize: uint16(ehsize),
			Shentsize: uint16(shentsize), Shnum: uint16(len(sections)), Shstrndx: 3,
		})
	} else {
		binary.Write(buf, a.ByteOrder, elf.Header32{
			Ident: ident(a), Type: uint16(elf.ET_EXEC), Machine: uint16(machine(a)),
			Version: uint32(elf.EV_CURRENT), Shoff: uint32(shoff), Ehsize: uint16(ehsize),
			Shentsize: uint16(shentsize), Shnum: uint16(len(sections)), Shstrndx: 3,
		})
	}
	buf.Write(body.Bytes())
	for i, s := range sections {
		if a.PointerSize == 8 {
			binary.Write(buf, a.ByteOrder, elf.Section64{
				Name: s.name, Type: s.typ, Off: offs[i], Size: uint64(len(s.data)),
				Link: s.link, Addralign: 1, Entsize: s.entsize,
			})
		} else {
			binary.Write(buf, a.ByteOrder, elf.Section32{
				Name: s.name, Type: s.typ, Off: uint32(offs[i]), Size: uint32(len(s.data)),
				Link: s.link, Addralign: 1, Entsize: uint32(s.entsize),
			})
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
