// Package sss decodes the binary '.sss' result streams produced by Seaward
// portable-appliance test (PAT) meters into structured, typed records.
//
// The format was reverse engineered from a small number of captures, so the
// decoder is deliberately defensive: unknown byte meanings are carried as
// opaque fields, corrupt records are detected by checksum and skipped, and
// the protocol version is inferred from the stream itself.
//
// # Stream Structure
//
// A stream has no file header. It is a flat concatenation of variable-length
// records, each introduced by a fixed six-byte header (big-endian):
//
//	[PayloadLength(2)][Reserved(2)][Checksum(2)][Payload...]
//
// Fields:
//   - PayloadLength: number of payload bytes that follow the header
//   - Reserved: expected zero; possibly a protocol version marker
//   - Checksum: sum of all payload byte values, modulo 65536
//
// The payload is itself a concatenation of sub-records ("tests"), each a
// one-byte type code followed by a fixed number of bytes determined by the
// code's registered schema. A record normally ends with the 0xFF sentinel,
// though minimal records have been observed to simply exhaust their payload.
//
// # Protocol Versions
//
// Two registry tables map type codes to schemas. Decoding starts with the
// version-1 table; the first occurrence of a version-2-only visual test code
// (0x11 or 0x12) permanently upgrades the stream to the merged version-2
// table. The format carries no explicit version field, so this in-stream
// inference is the only way to pick the correct layouts.
//
// # Measurements
//
// Electrical measurements are packed 16-bit values: the top two bits select
// a power-of-ten divisor and the low 14 bits are the mantissa (see Rescale).
// Version-1 single-value results additionally pack a pass/fail flag into
// bit 15; version-2 layouts carry the flag as a separate leading byte. Both
// decode to the same pass + magnitude pair.
//
// # Usage
//
//	parser := sss.NewParser(r, sss.ParserConfig{})
//	for {
//		row, err := parser.Next()
//		if err == io.EOF {
//			break
//		}
//		if err != nil {
//			// Unknown-type and mapping-lookup failures abandon only the
//			// offending record; calling Next again resumes at the next
//			// record header. Other errors are fatal to the stream.
//			if sss.IsRecoverable(err) {
//				continue
//			}
//			return err
//		}
//		fmt.Println(row.Label, row.Fields)
//	}
//
// A Parser owns all mutable decoding state. To decode the same capture
// twice, or to decode several streams concurrently, construct one Parser
// per stream; instances share nothing.
package sss
