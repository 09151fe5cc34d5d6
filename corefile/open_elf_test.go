package corefile

import (
	"debug/elf"
	"encoding/binary"
	"testing"
)

func TestELFArch(t *testing.T) {
	tests := []struct {
		machine elf.Machine
		class   elf.Class
		data    elf.Data
		want    Arch
		wantErr bool
	}{
		{elf.EM_X86_64, elf.ELFCLASS64, elf.ELFDATA2LSB, Arch{binary.LittleEndian, 8}, false},
		{elf.EM_386, elf.ELFCLASS32, elf.ELFDATA2LSB, Arch{binary.LittleEndian, 4}, false},
		{elf.EM_AARCH64, elf.ELFCLASS64, elf.ELFDATA2LSB, Arch{binary.LittleEndian, 8}, false},
		{elf.EM_ARM, elf.ELFCLASS32, elf.ELFDATA2LSB, Arch{binary.LittleEndian, 4}, false},
		{elf.EM_PPC64, elf.ELFCLASS64, elf.ELFDATA2MSB, Arch{binary.BigEndian, 8}, false},
		{elf.EM_PPC64, elf.ELFCLASS64, elf.ELFDATA2LSB, Arch{binary.LittleEndian, 8}, false},
		{elf.EM_S390, elf.ELFCLASS64, elf.ELFDATA2MSB, Arch{binary.BigEndian, 8}, false},
		{elf.EM_RISCV, elf.ELFCLASS64, elf.ELFDATA2LSB, Arch{binary.LittleEndian, 8}, false},
		{elf.EM_MIPS, elf.ELFCLASS32, elf.ELFDATA2MSB, Arch{}, true},
		{elf.EM_X86_64, elf.ELFCLASSNONE, elf.ELFDATA2LSB, Arch{}, true},
		{elf.EM_X86_64, elf.ELFCLASS64, elf.ELFDATANONE, Arch{}, true},
	}
	for _, test := range tests {
		f := &elf.File{FileHeader: elf.FileHeader{Machine: test.machine, Class: test.class, Data: test.data}}
		got, err := elfArch(f)
		if (err != nil) != test.wantErr || got != test.want {
			t.Errorf("elfArch(%v, %v, %v)=%v, %v want %v, err=%v", test.machine, test.class, test.data, got, err, test.want, test.wantErr)
		}
	}
}
