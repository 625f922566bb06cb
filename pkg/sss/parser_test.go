package sss

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"
)

// encodeRecord frames a payload with a correct header for test streams.
func encodeRecord(payload []byte) []byte {
	out := make([]byte, headerLength+len(payload))
	binary.BigEndian.PutUint16(out[0:2], uint16(len(payload)))
	binary.BigEndian.PutUint16(out[4:6], Checksum(payload))
	copy(out[headerLength:], payload)
	return out
}

func textField(s string, width int) []byte {
	b := make([]byte, width)
	copy(b, s)
	return b
}

// visualSubrecord builds an 86-byte visual test preceded by its type code,
// dated 2014-11-25 14:30.
func visualSubrecord(code byte, id, site string) []byte {
	buf := []byte{code}
	buf = append(buf, textField(id, 16)...)
	buf = append(buf, 14, 30, 25, 11)
	buf = binary.BigEndian.AppendUint16(buf, 2014)
	buf = append(buf, textField(site, 16)...)
	buf = append(buf, textField("Workshop", 16)...)
	buf = append(buf, textField("T.Tester", 11)...)
	buf = append(buf, textField("0123456789", 10)...)
	buf = append(buf, textField("9876543210", 11)...)
	return buf
}

func collectRows(t *testing.T, stream []byte) []*Row {
	t.Helper()
	parser := NewParser(bytes.NewReader(stream), ParserConfig{})
	var rows []*Row
	for {
		row, err := parser.Next()
		if err == io.EOF {
			return rows
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		rows = append(rows, row)
	}
}

func TestParserSingleVisualRecord(t *testing.T) {
	payload := append(visualSubrecord(0x01, "PAT0001", "SITE"), endOfRecord)
	rows := collectRows(t, encodeRecord(payload))

	if len(rows) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(rows))
	}
	row := rows[0]
	if row.Record != 1 {
		t.Errorf("record id mismatch: got %d, want 1", row.Record)
	}
	if row.HasTest() {
		t.Errorf("visual test must carry no test id, got %d", row.Test)
	}
	if row.Code != 0x01 || row.Label != "Visual Pass (01)" {
		t.Errorf("row identity mismatch: code %#02x label %q", row.Code, row.Label)
	}

	id, _ := row.Fields.Get("id")
	if id.Text != "PAT0001" {
		t.Errorf("id mismatch: got %q", id.Text)
	}
	site, _ := row.Fields.Get("site")
	if site.Text != "SITE" {
		t.Errorf("site mismatch: got %q", site.Text)
	}
	tested, ok := row.Fields.Get("tested")
	if !ok || !tested.Time.Equal(time.Date(2014, 11, 25, 14, 30, 0, 0, time.UTC)) {
		t.Errorf("tested timestamp mismatch: %v", tested)
	}
}

func TestParserSkipsCorruptRecordAndResumes(t *testing.T) {
	bad := encodeRecord(append(visualSubrecord(0x02, "BAD", "X"), endOfRecord))
	bad[headerLength] ^= 0xff // flip a payload byte so the checksum fails

	good := encodeRecord(append(visualSubrecord(0x01, "GOOD", "Y"), endOfRecord))
	rows := collectRows(t, append(bad, good...))

	if len(rows) != 1 {
		t.Fatalf("expected one row from the surviving record, got %d", len(rows))
	}
	if rows[0].Record != 1 {
		t.Errorf("skipped records must not consume record ids: got %d", rows[0].Record)
	}
	id, _ := rows[0].Fields.Get("id")
	if id.Text != "GOOD" {
		t.Errorf("wrong record decoded: id %q", id.Text)
	}
}

func TestParserVersionUpgradeIsOneWayAndStreamGlobal(t *testing.T) {
	// Visual v1, then visual v2, then an earth resistance sub-record: the
	// final measurement must decode with the version-2 layout (leading
	// current and pass bytes) even though only one v2 marker appeared.
	rec1 := encodeRecord(append(visualSubrecord(0x01, "A", "S"), endOfRecord))
	rec2 := encodeRecord(append(visualSubrecord(0x11, "B", "S"), endOfRecord))
	f2v2 := []byte{0xf2, 25, 1, 0x40, 0x64, endOfRecord}
	rec3 := encodeRecord(f2v2)

	parser := NewParser(bytes.NewReader(append(append(rec1, rec2...), rec3...)), ParserConfig{})
	if parser.Version() != Version1 {
		t.Fatalf("parser must start at version 1, got %d", parser.Version())
	}

	var rows []*Row
	for {
		row, err := parser.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		rows = append(rows, row)
	}

	if parser.Version() != Version2 {
		t.Fatalf("expected stream-global upgrade to version 2, got %d", parser.Version())
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	last := rows[2]
	if last.Label != "Earth Resistance v2 (F2)" {
		t.Errorf("expected v2 schema for the trailing measurement, got %q", last.Label)
	}
	pass, _ := last.Fields.Get("pass")
	if pass.Kind != KindBool || !pass.Bool {
		t.Errorf("pass byte mismatch: %v", pass)
	}
	current, _ := last.Fields.Get("current")
	if current.Uint != 25 {
		t.Errorf("current byte mismatch: %v", current)
	}
	resistance, _ := last.Fields.Get("resistance")
	if resistance.Kind != KindDecimal || resistance.Decimal != 10.0 {
		t.Errorf("resistance mismatch: %v, want 10.0", resistance)
	}
}

func TestParserVersion1PackedPassSplit(t *testing.T) {
	// 0x8064: bit 15 pass flag, low 15 bits 0x64 = 100 -> rescaled 100.
	payload := []byte{0xf2, 0x80, 0x64, endOfRecord}
	rows := collectRows(t, encodeRecord(payload))

	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	pass, _ := rows[0].Fields.Get("pass")
	if pass.Kind != KindBool || !pass.Bool {
		t.Errorf("pass flag mismatch: %v", pass)
	}
	resistance, _ := rows[0].Fields.Get("resistance")
	if resistance.Kind != KindDecimal || resistance.Decimal != 100 {
		t.Errorf("resistance mismatch: %v, want 100", resistance)
	}
}

func TestParserContinuityNoResult(t *testing.T) {
	payload := []byte{0xf8, 0x00, 0x00, endOfRecord}
	rows := collectRows(t, encodeRecord(payload))

	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	resistance, _ := rows[0].Fields.Get("resistance")
	if resistance.Kind != KindNoResult {
		t.Errorf("zero continuity must decode to the no-result sentinel, got %v", resistance)
	}
}

func TestParserMeasurementCounterSpansRecords(t *testing.T) {
	rec1 := encodeRecord([]byte{
		0xf0, // overall pass carries no data
		0xf2, 0x00, 0x64,
		endOfRecord,
	})
	rec2 := encodeRecord([]byte{0xf8, 0x00, 0x32, endOfRecord})

	rows := collectRows(t, append(rec1, rec2...))
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	wantTests := []int{1, 2, 3}
	wantRecords := []int{1, 1, 2}
	for i, row := range rows {
		if row.Test != wantTests[i] {
			t.Errorf("row %d test id mismatch: got %d, want %d", i, row.Test, wantTests[i])
		}
		if row.Record != wantRecords[i] {
			t.Errorf("row %d record id mismatch: got %d, want %d", i, row.Record, wantRecords[i])
		}
	}
}

func TestParserPayloadExhaustionWithoutSentinel(t *testing.T) {
	payload := visualSubrecord(0x01, "MINIMAL", "S") // no 0xFF
	rows := collectRows(t, encodeRecord(payload))
	if len(rows) != 1 {
		t.Fatalf("expected one row from a sentinel-less record, got %d", len(rows))
	}
}

func TestParserUnknownTypeAbortsRecordOnly(t *testing.T) {
	bad := encodeRecord([]byte{0x42, 0x01, 0x02, endOfRecord})
	good := encodeRecord(append(visualSubrecord(0x01, "OK", "S"), endOfRecord))

	parser := NewParser(bytes.NewReader(append(bad, good...)), ParserConfig{})

	_, err := parser.Next()
	var unknownErr *UnknownTypeError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("expected *UnknownTypeError, got %T: %v", err, err)
	}
	if unknownErr.Record != 1 || unknownErr.Code != 0x42 {
		t.Errorf("error context mismatch: %+v", unknownErr)
	}
	if !IsRecoverable(err) {
		t.Error("unknown type errors must be recoverable")
	}

	row, err := parser.Next()
	if err != nil {
		t.Fatalf("parser must resume at the next record: %v", err)
	}
	if row.Record != 2 {
		t.Errorf("record id mismatch after abort: got %d, want 2", row.Record)
	}
}

func TestParserLookupErrorAbortsRecordOnly(t *testing.T) {
	// Mapping index 9 is outside the table; the trailing Overall Pass in
	// the same record must never be emitted.
	bad := encodeRecord([]byte{0xe0, 0x00, 0x09, 0x00, 0x00, 0xf0, endOfRecord})
	good := encodeRecord([]byte{0xf0, endOfRecord})

	parser := NewParser(bytes.NewReader(append(bad, good...)), ParserConfig{})

	_, err := parser.Next()
	var lookupErr *LookupError
	if !errors.As(err, &lookupErr) {
		t.Fatalf("expected *LookupError, got %T: %v", err, err)
	}

	row, err := parser.Next()
	if err != nil {
		t.Fatalf("parser must resume at the next record: %v", err)
	}
	if row.Record != 2 || row.Code != 0xf0 {
		t.Errorf("unexpected row after abort: record %d code %#02x", row.Record, row.Code)
	}
}

func TestParserLayoutErrorIsFatal(t *testing.T) {
	// A visual sub-record needs 86 bytes; this checksummed payload has 4.
	payload := []byte{0x01, 0xaa, 0xbb, 0xcc, 0xdd}
	parser := NewParser(bytes.NewReader(encodeRecord(payload)), ParserConfig{})

	_, err := parser.Next()
	var layoutErr *LayoutError
	if !errors.As(err, &layoutErr) {
		t.Fatalf("expected *LayoutError, got %T: %v", err, err)
	}
	if layoutErr.Record != 1 || layoutErr.Code != 0x01 {
		t.Errorf("layout error context mismatch: %+v", layoutErr)
	}
	if IsRecoverable(err) {
		t.Error("layout errors must not be recoverable")
	}

	// Sticky: the same error repeats on every subsequent call.
	if _, again := parser.Next(); !errors.As(again, &layoutErr) {
		t.Errorf("expected sticky fatal error, got %v", again)
	}
}

func TestParserTruncatedPayloadIsFatal(t *testing.T) {
	record := encodeRecord(append(visualSubrecord(0x01, "T", "S"), endOfRecord))
	parser := NewParser(bytes.NewReader(record[:len(record)-10]), ParserConfig{})

	_, err := parser.Next()
	var truncErr *TruncatedStreamError
	if !errors.As(err, &truncErr) {
		t.Fatalf("expected *TruncatedStreamError, got %T: %v", err, err)
	}
	if _, again := parser.Next(); !errors.As(again, &truncErr) {
		t.Errorf("expected sticky fatal error, got %v", again)
	}
}

func TestParserIdempotence(t *testing.T) {
	stream := bytes.Join([][]byte{
		encodeRecord(append(visualSubrecord(0x01, "A", "S1"), 0xf2, 0x80, 0x64, endOfRecord)),
		encodeRecord(append(visualSubrecord(0x11, "B", "S2"), endOfRecord)),
		encodeRecord([]byte{0xf8, 25, 0x40, 0x64, endOfRecord}),
	}, nil)

	first := collectRows(t, stream)
	second := collectRows(t, stream)

	if !reflect.DeepEqual(first, second) {
		t.Error("two independent pipeline instances must produce identical output")
	}
}

func TestRowIterator(t *testing.T) {
	bad := encodeRecord([]byte{0x42, endOfRecord})
	good := encodeRecord([]byte{0xf0, endOfRecord})

	it := NewParser(bytes.NewReader(append(bad, good...)), ParserConfig{}).Iterator()

	var rows []*Row
	for it.Next() {
		rows = append(rows, it.Row())
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iterator reported error: %v", err)
	}
	if len(rows) != 1 || rows[0].Code != 0xf0 {
		t.Fatalf("iterator must skip recoverable failures, got %d rows", len(rows))
	}
}
