package sss

import "fmt"

// TruncatedStreamError reports a stream that ended before a declared length
// could be read. Fatal to the current stream; rows already emitted remain
// valid.
type TruncatedStreamError struct {
	Offset int64 // stream offset where the read started
	Want   int
	Got    int
}

func (e *TruncatedStreamError) Error() string {
	return fmt.Sprintf("sss: truncated stream at offset %d: want %d bytes, got %d", e.Offset, e.Want, e.Got)
}

// ChecksumMismatchError reports a payload whose byte sum does not match the
// record header. The offending record is skipped and decoding resumes at the
// next header.
type ChecksumMismatchError struct {
	Offset int64 // stream offset of the record header
	Want   uint16
	Got    uint16
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("sss: checksum mismatch at offset %d: header %#04x, payload sum %#04x", e.Offset, e.Want, e.Got)
}

// UnknownTypeError reports a type code absent from the active registry. The
// remainder of the record is abandoned: without a declared width there is no
// safe resynchronization point inside the payload.
type UnknownTypeError struct {
	Record int
	Offset int64
	Code   byte
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("sss: record %d: unknown type code %#02x at offset %d", e.Record, e.Code, e.Offset)
}

// LookupError reports a user-data mapping index outside the known 0-5 table.
type LookupError struct {
	Field string
	Index uint32
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("sss: field %q: user data mapping index %d outside 0-5", e.Field, e.Index)
}

// LayoutError reports fewer payload bytes remaining than a declared
// sub-record's schema requires. Fatal to the current stream.
type LayoutError struct {
	Record int
	Code   byte
	Need   int
	Have   int
}

func (e *LayoutError) Error() string {
	return fmt.Sprintf("sss: record %d: sub-record %#02x needs %d bytes, %d remain", e.Record, e.Code, e.Need, e.Have)
}
