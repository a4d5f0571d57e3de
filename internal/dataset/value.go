package dataset

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies the scalar type held by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindInt
	KindFloat
	KindDate
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	default:
		return "invalid"
	}
}

// Class groups kinds that are mutually comparable.
type Class uint8

const (
	ClassInvalid Class = iota
	ClassString
	ClassNumeric
	ClassDate
)

func (c Class) String() string {
	switch c {
	case ClassString:
		return "string"
	case ClassNumeric:
		return "numeric"
	case ClassDate:
		return "date"
	default:
		return "invalid"
	}
}

// Date layouts recognised by ParseText, in the order they are tried.
var dateLayouts = []string{time.DateOnly, time.RFC3339Nano}

// Value is an immutable scalar cell of a Record.
type Value struct {
	kind Kind
	text string // string payload, or the textual form of a date
	i    int64
	f    float64
	t    time.Time
}

// StringValue returns a string Value.
func StringValue(s string) Value {
	return Value{kind: KindString, text: s}
}

// IntValue returns an integer Value.
func IntValue(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// FloatValue returns a floating-point Value.
func FloatValue(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

// DateValue returns a date Value rendered with layout.
// An empty layout selects time.DateOnly for values at midnight UTC and
// time.RFC3339Nano otherwise.
func DateValue(t time.Time, layout string) Value {
	if layout == "" {
		layout = time.RFC3339Nano
		if t.Location() == time.UTC && t.Equal(t.Truncate(24*time.Hour)) {
			layout = time.DateOnly
		}
	}
	return Value{kind: KindDate, text: t.Format(layout), t: t}
}

// ParseText interprets s as a date when it matches one of the supported
// layouts and as a plain string otherwise. The original text is kept so that
// dates render back exactly as they were received.
func ParseText(s string) Value {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Value{kind: KindDate, text: s, t: t}
		}
	}
	return StringValue(s)
}

func (v Value) Kind() Kind { return v.kind }

// Class reports the comparison class of v.
func (v Value) Class() Class {
	switch v.kind {
	case KindString:
		return ClassString
	case KindInt, KindFloat:
		return ClassNumeric
	case KindDate:
		return ClassDate
	default:
		return ClassInvalid
	}
}

// Text returns the string payload of a string or date Value.
func (v Value) Text() string { return v.text }

// Int returns the payload of an integer Value.
func (v Value) Int() int64 { return v.i }

// Float returns the numeric payload of an integer or float Value as float64.
func (v Value) Float() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}

// Time returns the payload of a date Value.
func (v Value) Time() time.Time { return v.t }

// String renders the value for logs and diagnostics.
func (v Value) String() string {
	switch v.kind {
	case KindString, KindDate:
		return v.text
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	default:
		return "<invalid>"
	}
}

// Equal reports whether v and o hold the same kind and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.text == o.text
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindDate:
		return v.text == o.text && v.t.Equal(o.t)
	default:
		return true
	}
}

// Comparable reports whether a and b belong to the same comparison class.
func Comparable(a, b Value) bool {
	return a.Class() != ClassInvalid && a.Class() == b.Class()
}

// Compare orders a and b: lexically for strings, numerically for numbers and
// chronologically for dates. Both values must be Comparable; Compare panics
// otherwise.
func Compare(a, b Value) int {
	if !Comparable(a, b) {
		panic(fmt.Sprintf("dataset: cannot compare %s with %s", a.kind, b.kind))
	}
	switch a.Class() {
	case ClassString:
		return cmp.Compare(a.text, b.text)
	case ClassDate:
		return a.t.Compare(b.t)
	default:
		switch {
		case a.kind == KindInt && b.kind == KindInt:
			return cmp.Compare(a.i, b.i)
		case a.kind == KindInt:
			return compareIntFloat(a.i, b.f)
		case b.kind == KindInt:
			return -compareIntFloat(b.i, a.f)
		default:
			return cmp.Compare(a.f, b.f)
		}
	}
}

// compareIntFloat compares i and f exactly, without rounding i to a float.
// NaN sorts before every number, as in cmp.Compare.
func compareIntFloat(i int64, f float64) int {
	switch {
	case math.IsNaN(f):
		return 1
	case f >= 1<<63:
		return -1
	case f < -(1 << 63):
		return 1
	}
	whole := math.Trunc(f)
	if c := cmp.Compare(i, int64(whole)); c != 0 {
		return c
	}
	return cmp.Compare(0, f-whole)
}
