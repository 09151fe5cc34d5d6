package corefile

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// dataSegment is a dumped range of target memory backed by a slice of the
// mapped core file.
type dataSegment struct {
	addr     uint64
	data     []byte
	readable bool // PF_R was set; unreadable ranges (guard pages) fail reads
}

func (s dataSegment) String() string {
	perm := "-"
	if s.readable {
		perm = "r"
	}
	return fmt.Sprintf("[0x%x, 0x%x) %s", s.addr, s.end(), perm)
}

func (s dataSegment) size() uint64 { return uint64(len(s.data)) }

// end is the first address past s.
func (s dataSegment) end() uint64 { return s.addr + s.size() }

// slice returns the part of s covering [addr, addr+size), or false if the
// range is not inside s.
func (s dataSegment) slice(addr, size uint64) (dataSegment, bool) {
	if addr < s.addr {
		return dataSegment{}, false
	}
	off := addr - s.addr
	if off > s.size() || size > s.size()-off {
		return dataSegment{}, false
	}
	return dataSegment{addr: addr, data: s.data[off : off+size : off+size], readable: s.readable}, true
}

// dataSegments is sorted by addr and non-overlapping.
type dataSegments []dataSegment

func (ss dataSegments) Len() int           { return len(ss) }
func (ss dataSegments) Swap(i, k int)      { ss[i], ss[k] = ss[k], ss[i] }
func (ss dataSegments) Less(i, k int) bool { return ss[i].addr < ss[k].addr }

// find returns the segment holding addr.
func (ss dataSegments) find(addr uint64) (dataSegment, bool) {
	k := sort.Search(len(ss), func(k int) bool { return ss[k].end() > addr })
	if k == len(ss) || ss[k].addr > addr {
		return dataSegment{}, false
	}
	return ss[k], true
}

// slice returns [addr, addr+size) if one readable segment holds all of it.
func (ss dataSegments) slice(addr, size uint64) (dataSegment, bool) {
	s, ok := ss.find(addr)
	if !ok || !s.readable {
		return dataSegment{}, false
	}
	return s.slice(addr, size)
}

// insert adds the parts of [addr, addr+size) that no segment of ss covers
// yet, creating each gap's segment with makeSegment. Bytes already loaded
// win: a later PT_LOAD overlapping an earlier one only fills the holes
// around it. ss stays sorted and non-overlapping.
func (ss *dataSegments) insert(addr, size uint64, makeSegment func(addr, size uint64) (dataSegment, error)) error {
	if size == 0 {
		return nil
	}
	end := addr + size
	if end < addr {
		return fmt.Errorf("segment [0x%x, +0x%x) wraps the address space", addr, size)
	}

	// Segments from k on end above addr; the first of them may overlap.
	k := sort.Search(len(*ss), func(k int) bool { return (*ss)[k].end() > addr })
	var gaps dataSegments
	for cur := addr; cur < end; k++ {
		next := end
		if k < len(*ss) && (*ss)[k].addr < end {
			next = (*ss)[k].addr
		}
		if cur < next {
			s, err := makeSegment(cur, next-cur)
			if err != nil {
				return err
			}
			logger.Debug("loading", zap.Stringer("segment", s))
			gaps = append(gaps, s)
		}
		if next == end {
			break
		}
		if e := (*ss)[k].end(); e > cur {
			cur = e
		}
	}
	if len(gaps) == 0 {
		return nil
	}

	*ss = append(*ss, gaps...)
	sort.Sort(*ss)
	if sanityChecks {
		for i := 1; i < len(*ss); i++ {
			if prev := (*ss)[i-1]; prev.end() > (*ss)[i].addr {
				panic(fmt.Sprintf("overlapping segments after insert(0x%x, 0x%x): %s, %s", addr, size, prev, (*ss)[i]))
			}
		}
	}
	return nil
}
