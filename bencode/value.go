// Package bencode implements a from-scratch codec for the bencode format
// used by .torrent files and tracker responses: a tagged variant over
// integers, byte strings, lists and dicts. Dicts are held in an unordered
// map; canonical (ascending, byte-wise) key order is enforced on decode and
// restored on encode.
package bencode

import "fmt"

// Kind tags the four bencode value shapes.
type Kind int

const (
	KindInt Kind = iota
	KindString
	KindList
	KindDict
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindDict:
		return "dict"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a decoded bencode tree node. Only the fields matching Kind are
// meaningful. Start and End are byte offsets into the buffer Decode was
// called on, spanning this value's exact encoding (opening token through
// closing token, inclusive of both); they let callers such as the torrent
// descriptor builder recover the exact bytes of a sub-tree (the info dict)
// without re-encoding it.
type Value struct {
	Kind Kind

	Int  int64
	Str  []byte
	List []*Value
	Dict map[string]*Value

	Start int
	End   int
}

// NewInt builds a standalone integer value (no byte span; Start == End == 0).
func NewInt(i int64) *Value { return &Value{Kind: KindInt, Int: i} }

// NewString builds a standalone byte-string value.
func NewString(s []byte) *Value { return &Value{Kind: KindString, Str: s} }

// NewList builds a standalone list value.
func NewList(items ...*Value) *Value { return &Value{Kind: KindList, List: items} }

// NewDict builds a standalone dict value.
func NewDict(entries map[string]*Value) *Value {
	if entries == nil {
		entries = map[string]*Value{}
	}
	return &Value{Kind: KindDict, Dict: entries}
}

// AsInt returns the integer payload, if v is a KindInt value.
func (v *Value) AsInt() (int64, bool) {
	if v == nil || v.Kind != KindInt {
		return 0, false
	}
	return v.Int, true
}

// AsString returns the byte-string payload, if v is a KindString value.
func (v *Value) AsString() ([]byte, bool) {
	if v == nil || v.Kind != KindString {
		return nil, false
	}
	return v.Str, true
}

// AsList returns the list payload, if v is a KindList value.
func (v *Value) AsList() ([]*Value, bool) {
	if v == nil || v.Kind != KindList {
		return nil, false
	}
	return v.List, true
}

// AsDict returns the dict payload, if v is a KindDict value.
func (v *Value) AsDict() (map[string]*Value, bool) {
	if v == nil || v.Kind != KindDict {
		return nil, false
	}
	return v.Dict, true
}

// Equal reports whether two values are structurally identical. Dict
// comparison ignores iteration order (a Go map has none) and byte spans,
// since those are decode-time bookkeeping, not part of the value's identity.
func Equal(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt:
		return a.Int == b.Int
	case KindString:
		return string(a.Str) == string(b.Str)
	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	case KindDict:
		if len(a.Dict) != len(b.Dict) {
			return false
		}
		for k, av := range a.Dict {
			bv, ok := b.Dict[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
