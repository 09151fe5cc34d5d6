package assocarray

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Document is a Script together with where it came from.
type Document struct {
	ID        uuid.UUID
	Source    string // core file or process the array was read from
	ArrayAddr uint64
	FanOut    int
	Script    Script
}

// NewDocument returns a Document with a fresh ID.
func NewDocument(source string, arrayAddr uint64, fanOut int, s Script) *Document {
	return &Document{ID: uuid.New(), Source: source, ArrayAddr: arrayAddr, FanOut: fanOut, Script: s}
}

// Format is a serialization format for Documents.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCBOR Format = "cbor"
)

// ParseFormat parses a format name. Matching is case-insensitive.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML, FormatCBOR:
		return f, nil
	}
	return "", fmt.Errorf("unknown script format %q (want json, yaml, or cbor)", s)
}

// Op names used in serialized documents.
const (
	opInitTree       = "init_tree"
	opAllocateRoot   = "allocate_root"
	opSetMetadata    = "set_metadata"
	opLinkChildNode  = "link_child_node"
	opLinkLeaf       = "link_leaf"
	opAscendToParent = "ascend_to_parent"
)

// CBOR falls back to the json tags.
type opRecord struct {
	Op          string  `json:"op" yaml:"op"`
	TotalLeaves *uint64 `json:"total_leaves,omitempty" yaml:"total_leaves,omitempty"`
	Slot        *int    `json:"slot,omitempty" yaml:"slot,omitempty"`
	Value       *uint64 `json:"value,omitempty" yaml:"value,omitempty"`
	ParentSlot  *uint8  `json:"parent_slot,omitempty" yaml:"parent_slot,omitempty"`
	LeafCount   *uint64 `json:"leaf_count,omitempty" yaml:"leaf_count,omitempty"`
}

type docRecord struct {
	ID        string     `json:"id" yaml:"id"`
	Source    string     `json:"source,omitempty" yaml:"source,omitempty"`
	ArrayAddr uint64     `json:"array_addr" yaml:"array_addr"`
	FanOut    int        `json:"fan_out" yaml:"fan_out"`
	Ops       []opRecord `json:"ops" yaml:"ops"`
}

func toRecord(op Op) (opRecord, error) {
	switch op := op.(type) {
	case InitTree:
		return opRecord{Op: opInitTree, TotalLeaves: &op.TotalLeaves}, nil
	case AllocateRoot:
		return opRecord{Op: opAllocateRoot}, nil
	case SetMetadata:
		return opRecord{Op: opSetMetadata, ParentSlot: &op.ParentSlot, LeafCount: &op.LeafCount}, nil
	case LinkChildNode:
		return opRecord{Op: opLinkChildNode, Slot: &op.Slot}, nil
	case LinkLeaf:
		return opRecord{Op: opLinkLeaf, Slot: &op.Slot, Value: &op.Value}, nil
	case AscendToParent:
		return opRecord{Op: opAscendToParent}, nil
	}
	return opRecord{}, fmt.Errorf("unknown op %T", op)
}

func fromRecord(r opRecord) (Op, error) {
	missing := func(field string) error {
		return fmt.Errorf("%s op without %s", r.Op, field)
	}
	switch r.Op {
	case opInitTree:
		if r.TotalLeaves == nil {
			return nil, missing("total_leaves")
		}
		return InitTree{TotalLeaves: *r.TotalLeaves}, nil
	case opAllocateRoot:
		return AllocateRoot{}, nil
	case opSetMetadata:
		if r.ParentSlot == nil || r.LeafCount == nil {
			return nil, missing("parent_slot or leaf_count")
		}
		return SetMetadata{ParentSlot: *r.ParentSlot, LeafCount: *r.LeafCount}, nil
	case opLinkChildNode:
		if r.Slot == nil {
			return nil, missing("slot")
		}
		return LinkChildNode{Slot: *r.Slot}, nil
	case opLinkLeaf:
		if r.Slot == nil || r.Value == nil {
			return nil, missing("slot or value")
		}
		return LinkLeaf{Slot: *r.Slot, Value: *r.Value}, nil
	case opAscendToParent:
		return AscendToParent{}, nil
	}
	return nil, fmt.Errorf("unknown op %q", r.Op)
}

// EncodeDocument writes doc to w in format f.
func EncodeDocument(w io.Writer, doc *Document, f Format) error {
	rec := docRecord{
		ID:        doc.ID.String(),
		Source:    doc.Source,
		ArrayAddr: doc.ArrayAddr,
		FanOut:    doc.FanOut,
		Ops:       make([]opRecord, 0, len(doc.Script)),
	}
	for _, op := range doc.Script {
		r, err := toRecord(op)
		if err != nil {
			return err
		}
		rec.Ops = append(rec.Ops, r)
	}

	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rec); err != nil {
			return err
		}
		return enc.Close()
	case FormatCBOR:
		em, err := cbor.CoreDetEncOptions().EncMode()
		if err != nil {
			return err
		}
		return em.NewEncoder(w).Encode(rec)
	}
	return fmt.Errorf("unknown script format %q", f)
}

// DecodeDocument reads a Document in format f from r and validates its script.
func DecodeDocument(r io.Reader, f Format) (*Document, error) {
	var rec docRecord
	var err error
	switch f {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&rec)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&rec)
	case FormatCBOR:
		err = cbor.NewDecoder(r).Decode(&rec)
	default:
		return nil, fmt.Errorf("unknown script format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s script: %w", f, err)
	}

	doc := &Document{Source: rec.Source, ArrayAddr: rec.ArrayAddr, FanOut: rec.FanOut}
	if doc.ID, err = uuid.Parse(rec.ID); err != nil {
		return nil, fmt.Errorf("decode %s script: bad id: %w", f, err)
	}
	if doc.FanOut == 0 {
		doc.FanOut = FanOut
	}
	doc.Script = make(Script, 0, len(rec.Ops))
	for i, or := range rec.Ops {
		op, err := fromRecord(or)
		if err != nil {
			return nil, fmt.Errorf("decode %s script: op %d: %w", f, i, err)
		}
		doc.Script = append(doc.Script, op)
	}
	if err := doc.Script.Validate(doc.FanOut); err != nil {
		return nil, err
	}
	return doc, nil
}
