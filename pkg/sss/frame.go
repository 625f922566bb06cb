package sss

import (
	"bufio"
	"encoding/binary"
	"io"

	"go.uber.org/zap"
)

// headerLength is the fixed record header size: payload length (2 bytes),
// reserved marker (2 bytes), checksum (2 bytes). Big-endian throughout.
const headerLength = 6

// Frame is one checksum-validated record payload together with its header
// metadata.
type Frame struct {
	Offset   int64  // stream offset of the record header
	Reserved uint16 // expected zero; possibly a protocol version marker
	Checksum uint16
	Payload  []byte
}

// FrameReader consumes the raw stream and yields validated record payloads.
// Zero-length and checksum-failing records are logged and skipped; they are
// not fatal to the stream.
type FrameReader struct {
	r       *bufio.Reader
	offset  int64
	logger  *zap.Logger
	metrics *Metrics
}

// NewFrameReader wraps a sequential byte source. A nil logger disables
// logging; a nil metrics disables counters.
func NewFrameReader(r io.Reader, logger *zap.Logger, metrics *Metrics) *FrameReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FrameReader{r: bufio.NewReader(r), logger: logger, metrics: metrics}
}

// Next returns the next validated payload. It reports io.EOF when no further
// header is available; a partial header at end of stream is normal
// termination, not an error. A payload cut short mid-record is a
// *TruncatedStreamError and ends the stream.
func (fr *FrameReader) Next() (*Frame, error) {
	header := make([]byte, headerLength)
	for {
		headerOffset := fr.offset
		if _, err := io.ReadFull(fr.r, header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, io.EOF
			}
			return nil, err
		}
		fr.offset += headerLength
		if fr.metrics != nil {
			fr.metrics.BytesRead(headerLength)
		}

		payloadLength := int(binary.BigEndian.Uint16(header[0:2]))
		reserved := binary.BigEndian.Uint16(header[2:4])
		checksum := binary.BigEndian.Uint16(header[4:6])

		if payloadLength == 0 {
			// Degenerate empty records have been observed in practice.
			fr.logger.Warn("skipping zero-length record payload",
				zap.Int64("offset", headerOffset))
			if fr.metrics != nil {
				fr.metrics.RecordSkipped("empty_payload")
			}
			continue
		}

		payload := make([]byte, payloadLength)
		n, err := io.ReadFull(fr.r, payload)
		fr.offset += int64(n)
		if fr.metrics != nil {
			fr.metrics.BytesRead(n)
		}
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, &TruncatedStreamError{
					Offset: headerOffset + headerLength,
					Want:   payloadLength,
					Got:    n,
				}
			}
			return nil, err
		}

		if sum := Checksum(payload); sum != checksum {
			cerr := &ChecksumMismatchError{Offset: headerOffset, Want: checksum, Got: sum}
			fr.logger.Error("discarding corrupt record", zap.Error(cerr))
			if fr.metrics != nil {
				fr.metrics.RecordSkipped("checksum_mismatch")
			}
			continue
		}

		if reserved != 0 {
			fr.logger.Debug("record header reserved bytes are non-zero",
				zap.Int64("offset", headerOffset),
				zap.Uint16("reserved", reserved))
		}

		return &Frame{
			Offset:   headerOffset,
			Reserved: reserved,
			Checksum: checksum,
			Payload:  payload,
		}, nil
	}
}

// Offset returns the number of stream bytes consumed so far.
func (fr *FrameReader) Offset() int64 {
	return fr.offset
}

// Checksum is the record integrity sum: all payload byte values added
// together, modulo 65536.
func Checksum(payload []byte) uint16 {
	var sum uint16
	for _, b := range payload {
		sum += uint16(b)
	}
	return sum
}
