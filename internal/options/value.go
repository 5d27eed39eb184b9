package options

import "strconv"

// Kind tags the payload carried by a Value.
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value is the tagged union stored in an option slot: either an integer or a
// string, never both. The zero Value has no kind and is rejected by every option.
type Value struct {
	kind Kind
	num  int
	str  string
}

// IntValue returns an integer Value.
func IntValue(n int) Value {
	return Value{kind: KindInt, num: n}
}

// StringValue returns a string Value.
func StringValue(s string) Value {
	return Value{kind: KindString, str: s}
}

// Kind returns the payload kind.
func (v Value) Kind() Kind { return v.kind }

// Int returns the integer payload, 0 for string values.
func (v Value) Int() int { return v.num }

// Str returns the string payload, "" for integer values.
func (v Value) Str() string { return v.str }

// IsValid reports whether the value carries a payload.
func (v Value) IsValid() bool { return v.kind == KindInt || v.kind == KindString }

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.Itoa(v.num)
	case KindString:
		return v.str
	default:
		return "<invalid>"
	}
}
