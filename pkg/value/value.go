// Package value defines the in-memory document model: a tagged union over the
// JSON value kinds whose objects keep their members in source order.
package value

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Kind identifies which variant of the union a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindNumber: "number",
	KindString: "string",
	KindArray:  "array",
	KindObject: "object",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is an immutable JSON value. The zero Value is null.
//
// Numbers keep the literal text they were parsed from so large integers and
// exact decimal spellings survive display and copy.
type Value struct {
	kind    Kind
	b       bool
	text    string // string contents or number literal
	elems   []Value
	members []Member
}

// Member is a single key/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Number returns a number value from its literal text, e.g. "42" or "1.5e3".
// The literal is not validated; loaders only pass well-formed JSON numbers.
func Number(literal string) Value { return Value{kind: KindNumber, text: literal} }

// Float returns a number value for f using the shortest exact representation.
func Float(f float64) Value { return Number(strconv.FormatFloat(f, 'g', -1, 64)) }

// Int returns a number value for n.
func Int(n int64) Value { return Number(strconv.FormatInt(n, 10)) }

// Array returns an array holding elems in order.
func Array(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: KindArray, elems: elems}
}

// Object returns an object holding members in the given order. Duplicate keys
// are collapsed: the last value wins at the position of the first occurrence.
func Object(members ...Member) Value {
	return Value{kind: KindObject, members: dedupe(members)}
}

func dedupe(members []Member) []Member {
	out := make([]Member, 0, len(members))
	seen := make(map[string]int, len(members))
	for _, m := range members {
		if i, ok := seen[m.Key]; ok {
			out[i].Value = m.Value
			continue
		}
		seen[m.Key] = len(out)
		out = append(out, m)
	}
	return out
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsComposite reports whether v is an object or an array.
func (v Value) IsComposite() bool { return v.kind == KindArray || v.kind == KindObject }

// AsBool returns the boolean held by v, or false.
func (v Value) AsBool() bool { return v.kind == KindBool && v.b }

// AsString returns the contents of a string value, or "".
func (v Value) AsString() string {
	if v.kind != KindString {
		return ""
	}
	return v.text
}

// Literal returns the source text of a number value, or "".
func (v Value) Literal() string {
	if v.kind != KindNumber {
		return ""
	}
	return v.text
}

// Float64 parses a number value. ok is false for other kinds or unparsable
// literals.
func (v Value) Float64() (f float64, ok bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.text, 64)
	return f, err == nil
}

// Elems returns the elements of an array. The slice must not be modified.
func (v Value) Elems() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.elems
}

// Members returns the members of an object in source order. The slice must not
// be modified.
func (v Value) Members() []Member {
	if v.kind != KindObject {
		return nil
	}
	return v.members
}

// Len returns the number of children of a composite value, or 0.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.elems)
	case KindObject:
		return len(v.members)
	}
	return 0
}

// Get returns the member of an object with the given key.
func (v Value) Get(key string) (Value, bool) {
	for _, m := range v.Members() {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Index returns the i-th element of an array.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.elems) {
		return Value{}, false
	}
	return v.elems[i], true
}

// Children calls fn for each child of a composite value in document order.
// Array children are keyed by their decimal index. Iteration stops when fn
// returns false.
func (v Value) Children(fn func(key string, child Value) bool) {
	switch v.kind {
	case KindArray:
		for i, e := range v.elems {
			if !fn(strconv.Itoa(i), e) {
				return
			}
		}
	case KindObject:
		for _, m := range v.members {
			if !fn(m.Key, m.Value) {
				return
			}
		}
	}
}

// String renders scalars the way a row displays them: strings unquoted,
// numbers as written, null/true/false as keywords. Composite values render as
// compact JSON.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return v.text
	case KindString:
		return v.text
	}
	return string(v.JSON())
}

// Summary returns the collapsed label of a composite value, e.g. "{} 3 items".
// Scalars return String().
func (v Value) Summary() string {
	switch v.kind {
	case KindArray:
		return "[] " + strconv.Itoa(len(v.elems)) + " items"
	case KindObject:
		return "{} " + strconv.Itoa(len(v.members)) + " items"
	}
	return v.String()
}

// JSON encodes v as compact JSON, preserving object member order.
func (v Value) JSON() []byte {
	var buf bytes.Buffer
	v.encode(&buf)
	return buf.Bytes()
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) { return v.JSON(), nil }

// Indent encodes v as indented JSON.
func (v Value) Indent(prefix, indent string) string {
	var out bytes.Buffer
	if err := json.Indent(&out, v.JSON(), prefix, indent); err != nil {
		return string(v.JSON())
	}
	return out.String()
}

func (v Value) encode(buf *bytes.Buffer) {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(v.text)
	case KindString:
		writeQuoted(buf, v.text)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			e.encode(buf)
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeQuoted(buf, m.Key)
			buf.WriteByte(':')
			m.Value.encode(buf)
		}
		buf.WriteByte('}')
	}
}

func writeQuoted(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	// Encode appends a newline.
	buf.Truncate(buf.Len() - 1)
}

// Equal reports whether a and b hold the same JSON value. Numbers compare by
// numeric value when both literals parse; objects compare member-wise in order.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.text == b.text
	case KindNumber:
		fa, okA := a.Float64()
		fb, okB := b.Float64()
		if okA && okB {
			return fa == fb
		}
		return strings.EqualFold(a.text, b.text)
	case KindArray:
		if len(a.elems) != len(b.elems) {
			return false
		}
		for i := range a.elems {
			if !Equal(a.elems[i], b.elems[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.members) != len(b.members) {
			return false
		}
		for i := range a.members {
			if a.members[i].Key != b.members[i].Key || !Equal(a.members[i].Value, b.members[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}
