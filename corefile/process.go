package corefile

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Process is a live process inspected through /proc/<pid>/mem.
// The process should be stopped (e.g., with SIGSTOP or ptrace) while it is
// read; Process does not synchronize with the target.
type Process struct {
	PID int

	mem      *os.File
	mappings []procMapping // sorted by start
}

type procMapping struct {
	start, end uint64
	readable   bool
}

// OpenProcess opens the address space of a live process on the host.
// The caller needs ptrace access to pid.
func OpenProcess(pid int) (*Process, error) {
	mapsf, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, err
	}
	defer mapsf.Close()
	mappings, err := parseProcMaps(mapsf)
	if err != nil {
		return nil, fmt.Errorf("pid %d: %w", pid, err)
	}
	mem, err := os.Open(fmt.Sprintf("/proc/%d/mem", pid))
	if err != nil {
		return nil, err
	}
	logger.Debug("OpenProcess", zap.Int("pid", pid), zap.Int("mappings", len(mappings)))
	return &Process{PID: pid, mem: mem, mappings: mappings}, nil
}

// parseProcMaps parses the format of /proc/<pid>/maps.
func parseProcMaps(r io.Reader) ([]procMapping, error) {
	var out []procMapping
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		lo, hi, ok := strings.Cut(fields[0], "-")
		if !ok {
			return nil, fmt.Errorf("bad maps line %q", sc.Text())
		}
		start, err := strconv.ParseUint(lo, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad maps line %q: %w", sc.Text(), err)
		}
		end, err := strconv.ParseUint(hi, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("bad maps line %q: %w", sc.Text(), err)
		}
		if end <= start {
			return nil, fmt.Errorf("bad maps line %q: empty range", sc.Text())
		}
		out = append(out, procMapping{start: start, end: end, readable: strings.HasPrefix(fields[1], "r")})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, k int) bool { return out[i].start < out[k].start })
	return out, nil
}

// Arch reports the host's byte order and pointer size.
func (p *Process) Arch() Arch {
	return Arch{ByteOrder: binary.NativeEndian, PointerSize: strconv.IntSize / 8}
}

// ReadAt implements Target.
func (p *Process) ReadAt(b []byte, addr uint64) error {
	if addr == 0 {
		return ErrNil
	}
	if !p.mapped(addr, uint64(len(b))) {
		return fmt.Errorf("read 0x%x bytes at 0x%x: %w", len(b), addr, ErrOutOfBounds)
	}
	if _, err := p.mem.ReadAt(b, int64(addr)); err != nil {
		return fmt.Errorf("read 0x%x bytes at 0x%x: %w", len(b), addr, multierr.Append(ErrOutOfBounds, err))
	}
	return nil
}

// mapped reports whether [addr, addr+size) is covered by readable mappings.
func (p *Process) mapped(addr, size uint64) bool {
	end := addr + size
	if end < addr {
		return false
	}
	for addr < end || size == 0 {
		k := sort.Search(len(p.mappings), func(k int) bool {
			return addr < p.mappings[k].start
		}) - 1
		if k < 0 || addr >= p.mappings[k].end || !p.mappings[k].readable {
			return false
		}
		if size == 0 {
			return true
		}
		addr = p.mappings[k].end
	}
	return true
}

// Close closes the process's memory file.
func (p *Process) Close() error {
	if p.mem == nil {
		return nil
	}
	err := p.mem.Close()
	p.mem = nil
	return err
}
