package sss

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueKind discriminates the concrete type held by a Value.
type ValueKind int

const (
	KindUint ValueKind = iota
	KindDecimal
	KindText
	KindBool
	KindTime
	KindNoResult
)

// NoResultText is the symbolic value companion software reports for a
// continuity measurement of zero (no connection).
const NoResultText = "(no result)"

// timeLayout is the minute-precision form timestamps serialize to. The meter
// records no timezone and no seconds.
const timeLayout = "2006-01-02T15:04"

// Value is one decoded field value. Exactly one payload field is meaningful,
// selected by Kind.
type Value struct {
	Kind    ValueKind
	Uint    uint32
	Decimal float64
	Text    string
	Bool    bool
	Time    time.Time
}

func UintValue(v uint32) Value      { return Value{Kind: KindUint, Uint: v} }
func DecimalValue(v float64) Value  { return Value{Kind: KindDecimal, Decimal: v} }
func TextValue(s string) Value      { return Value{Kind: KindText, Text: s} }
func BoolValue(b bool) Value        { return Value{Kind: KindBool, Bool: b} }
func TimeValue(t time.Time) Value   { return Value{Kind: KindTime, Time: t} }
func NoResultValue() Value          { return Value{Kind: KindNoResult} }

// String renders the value the way the dump command prints it.
func (v Value) String() string {
	switch v.Kind {
	case KindUint:
		return strconv.FormatUint(uint64(v.Uint), 10)
	case KindDecimal:
		return strconv.FormatFloat(v.Decimal, 'g', -1, 64)
	case KindText:
		return v.Text
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindTime:
		return v.Time.Format(timeLayout)
	case KindNoResult:
		return NoResultText
	}
	return fmt.Sprintf("<kind %d>", int(v.Kind))
}

// MarshalJSON emits the natural JSON form: numbers for magnitudes, strings
// for text and timestamps, booleans for flags, and NoResultText for the
// no-result sentinel.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindUint:
		return json.Marshal(v.Uint)
	case KindDecimal:
		return json.Marshal(v.Decimal)
	case KindText:
		return json.Marshal(v.Text)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindTime:
		return json.Marshal(v.Time.Format(timeLayout))
	case KindNoResult:
		return json.Marshal(NoResultText)
	}
	return nil, fmt.Errorf("sss: cannot marshal value kind %d", int(v.Kind))
}

// Fields is an insertion-ordered mapping from field name to decoded value.
// Schema-declared order is preserved; transform-appended fields follow the
// declared ones.
type Fields struct {
	names  []string
	values map[string]Value
}

// NewFields returns an empty ordered field mapping.
func NewFields() *Fields {
	return &Fields{values: make(map[string]Value)}
}

// Set stores a value. A new name is appended to the order; replacing an
// existing name keeps its original position.
func (f *Fields) Set(name string, v Value) {
	if _, ok := f.values[name]; !ok {
		f.names = append(f.names, name)
	}
	f.values[name] = v
}

// Get returns the value stored under name.
func (f *Fields) Get(name string) (Value, bool) {
	v, ok := f.values[name]
	return v, ok
}

// Names returns the field names in insertion order.
func (f *Fields) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Len returns the number of fields.
func (f *Fields) Len() int {
	return len(f.names)
}

// String renders the mapping as "{name:value, ...}" in insertion order.
func (f *Fields) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, name := range f.names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(f.values[name].String())
	}
	b.WriteByte('}')
	return b.String()
}

// MarshalJSON emits a JSON object with keys in insertion order.
func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range f.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(f.values[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON rebuilds the mapping from a JSON object, preserving key
// order. Value kinds are inferred from the JSON form, so an integer-valued
// decimal comes back as an integer; archived rows are for display, not for
// re-deriving raw measurements.
func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("sss: fields must be a JSON object")
	}

	f.names = nil
	f.values = make(map[string]Value)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("sss: non-string field name %v", keyTok)
		}
		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		f.Set(name, valueFromJSON(raw))
	}
	_, err = dec.Token()
	return err
}

func valueFromJSON(raw interface{}) Value {
	switch v := raw.(type) {
	case bool:
		return BoolValue(v)
	case string:
		if v == NoResultText {
			return NoResultValue()
		}
		if t, err := time.Parse(timeLayout, v); err == nil {
			return TimeValue(t)
		}
		return TextValue(v)
	case json.Number:
		if i, err := strconv.ParseUint(v.String(), 10, 32); err == nil {
			return UintValue(uint32(i))
		}
		fl, _ := v.Float64()
		return DecimalValue(fl)
	}
	return TextValue(fmt.Sprint(raw))
}
