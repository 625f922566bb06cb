package sss

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// FieldKind selects how a field's bytes are interpreted.
type FieldKind int

const (
	// FieldUint is a 1, 2 or 4 byte unsigned big-endian integer.
	FieldUint FieldKind = iota
	// FieldText is a fixed-width NUL-padded text run.
	FieldText
)

// Field describes one fixed-width field within a sub-record layout.
type Field struct {
	Name  string
	Kind  FieldKind
	Width int
}

// Schema is the ordered fixed layout of one sub-record type.
type Schema []Field

// RequiredLength returns the exact number of payload bytes the schema
// consumes. Decoding never consumes more or fewer.
func (s Schema) RequiredLength() int {
	n := 0
	for _, f := range s {
		n += f.Width
	}
	return n
}

// decode extracts each field in declaration order from the front of data. It
// fails with a *LayoutError when fewer than RequiredLength bytes remain; the
// caller is responsible for advancing past the consumed bytes.
func (s Schema) decode(data []byte) (*Fields, error) {
	need := s.RequiredLength()
	if len(data) < need {
		return nil, &LayoutError{Need: need, Have: len(data)}
	}

	fields := NewFields()
	off := 0
	for _, f := range s {
		raw := data[off : off+f.Width]
		switch f.Kind {
		case FieldUint:
			var v uint32
			switch f.Width {
			case 1:
				v = uint32(raw[0])
			case 2:
				v = uint32(binary.BigEndian.Uint16(raw))
			case 4:
				v = binary.BigEndian.Uint32(raw)
			default:
				return nil, fmt.Errorf("sss: field %q: unsupported integer width %d", f.Name, f.Width)
			}
			fields.Set(f.Name, UintValue(v))
		case FieldText:
			fields.Set(f.Name, TextValue(decodeText(raw)))
		default:
			return nil, fmt.Errorf("sss: field %q: unsupported field kind %d", f.Name, int(f.Kind))
		}
		off += f.Width
	}
	return fields, nil
}

// decodeText strips every NUL fill byte, then trailing whitespace. Meters
// null-pad variable-length names anywhere within the fixed field, not only
// at the end.
func decodeText(raw []byte) string {
	s := strings.ReplaceAll(string(raw), "\x00", "")
	return strings.TrimRight(s, " \t\r\n\v\f")
}
