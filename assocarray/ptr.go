package assocarray

import "fmt"

// Word is a raw slot value read from foreign memory.
type Word uint64

// Tag bits of a Word.
const (
	ptrTypeMask    = 0x1 // set for meta pointers (node or shortcut)
	ptrSubtypeMask = 0x2 // set for shortcuts, given the type bit
	ptrTagMask     = ptrTypeMask | ptrSubtypeMask

	ptrNodeTag     = ptrTypeMask
	ptrShortcutTag = ptrTypeMask | ptrSubtypeMask
)

// Kind classifies a Word.
type Kind uint8

const (
	KindEmpty    Kind = iota // null slot
	KindLeaf                 // opaque object identifier
	KindNode                 // pointer to an interior node
	KindShortcut             // pointer to a shortcut (unsupported)
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindLeaf:
		return "leaf"
	case KindNode:
		return "node"
	case KindShortcut:
		return "shortcut"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Ptr is a decoded Word.
// For KindLeaf, Addr is the word itself: the object is never dereferenced.
// For KindNode and KindShortcut, Addr is the untagged address.
type Ptr struct {
	Kind Kind
	Addr uint64
}

func (p Ptr) String() string {
	if p.Kind == KindEmpty {
		return "empty"
	}
	return fmt.Sprintf("%s@0x%x", p.Kind, p.Addr)
}

// Decode classifies w. A zero word decodes to KindEmpty.
// Decode fails with a DecodeError for meta pointers to address zero.
func Decode(w Word) (Ptr, error) {
	switch {
	case w == 0:
		return Ptr{Kind: KindEmpty}, nil
	case w&ptrTypeMask == 0:
		return Ptr{Kind: KindLeaf, Addr: uint64(w)}, nil
	case w&ptrTagMask == ptrNodeTag:
		if w == ptrNodeTag {
			return Ptr{}, &DecodeError{Word: w, Reason: "node pointer to address zero"}
		}
		return Ptr{Kind: KindNode, Addr: uint64(w) - ptrNodeTag}, nil
	case w&ptrTagMask == ptrShortcutTag:
		if w == ptrShortcutTag {
			return Ptr{}, &DecodeError{Word: w, Reason: "shortcut pointer to address zero"}
		}
		return Ptr{Kind: KindShortcut, Addr: uint64(w) &^ ptrTagMask}, nil
	}
	return Ptr{}, &DecodeError{Word: w, Reason: "unknown tag"}
}

// LeafWord encodes an object identifier as a slot word.
// id must have its low bit clear.
func LeafWord(id uint64) Word {
	return Word(id)
}

// NodeWord encodes a node address as a slot word.
func NodeWord(addr uint64) Word {
	return Word(addr | ptrNodeTag)
}

// ShortcutWord encodes a shortcut address as a slot word.
func ShortcutWord(addr uint64) Word {
	return Word(addr | ptrShortcutTag)
}
