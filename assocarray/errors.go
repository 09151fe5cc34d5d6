package assocarray

import (
	"fmt"
	"strconv"
	"strings"
)

// Path is the list of slot indices leading from the root to a node.
type Path []int

func (p Path) String() string {
	var sb strings.Builder
	sb.WriteString("root")
	for _, slot := range p {
		sb.WriteByte('/')
		sb.WriteString(strconv.Itoa(slot))
	}
	return sb.String()
}

func (p Path) child(slot int) Path {
	return append(p[:len(p):len(p)], slot)
}

// A DecodeError reports a slot word whose tag bits do not describe a valid pointer.
type DecodeError struct {
	Addr   uint64 // node holding the word, zero for the root word
	Path   Path
	Word   Word
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("assocarray: bad word 0x%x at %v (node 0x%x): %s", uint64(e.Word), e.Path, e.Addr, e.Reason)
}

// An UnsupportedVariantError reports a shortcut in the trie.
type UnsupportedVariantError struct {
	Addr uint64 // address of the shortcut
	Path Path
	Kind Kind
}

func (e *UnsupportedVariantError) Error() string {
	return fmt.Sprintf("assocarray: unsupported %s at %v (0x%x)", e.Kind, e.Path, e.Addr)
}

// A StructureError reports a trie that is not shaped as expected: the root is
// not a node, a node is reachable twice, or bookkeeping counters disagree.
type StructureError struct {
	Addr   uint64
	Path   Path
	Reason string
}

func (e *StructureError) Error() string {
	return fmt.Sprintf("assocarray: bad structure at %v (0x%x): %s", e.Path, e.Addr, e.Reason)
}

// A ReadError reports foreign memory that could not be read.
type ReadError struct {
	Addr uint64
	Path Path
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("assocarray: read at %v (0x%x): %v", e.Path, e.Addr, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
