package sss

import (
	"errors"
	"io"

	"go.uber.org/zap"
)

// Row is one decoded sub-record handed to reporting collaborators.
type Row struct {
	// Record is the 1-based identifier of the containing record.
	Record int `json:"record"`
	// Test is the 1-based measurement ordinal, spanning record boundaries.
	// Zero when the sub-record kind carries no measurement identifier.
	Test  int     `json:"test,omitempty"`
	Code  byte    `json:"code"`
	Label string  `json:"label"`
	Fields *Fields `json:"fields"`
}

// HasTest reports whether the row carries a measurement test identifier.
func (r *Row) HasTest() bool {
	return r.Test > 0
}

// ParserConfig configures one decoding pipeline instance.
type ParserConfig struct {
	Logger  *zap.Logger   // defaults to a no-op logger
	Metrics *Metrics      // optional decode counters
	Options DecodeOptions // measurement tunables; zero value is fine
}

// Parser decodes one SSS stream into Rows. A Parser owns all mutable
// decoding state: the active registry version, the record and measurement
// counters, and the cursor into the current payload. Use one Parser per
// stream and do not share instances between goroutines.
type Parser struct {
	frames  *FrameReader
	logger  *zap.Logger
	metrics *Metrics
	opts    DecodeOptions

	version     Version
	record      int
	test        int
	payload     []byte
	cursor      int
	frameOffset int64
	inRecord    bool
	fatal       error
}

// NewParser builds a decoding pipeline over one sequential byte source.
func NewParser(r io.Reader, config ParserConfig) *Parser {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{
		frames:  NewFrameReader(r, logger, config.Metrics),
		logger:  logger,
		metrics: config.Metrics,
		opts:    config.Options,
		version: Version1,
	}
}

// Version returns the registry version currently active for the stream.
func (p *Parser) Version() Version {
	return p.version
}

// Next returns the next decoded Row, or io.EOF once the stream is exhausted.
//
// Recoverable per-record failures (*UnknownTypeError, *LookupError) are
// returned after abandoning the remainder of the offending record; calling
// Next again resumes at the next record header. *TruncatedStreamError and
// *LayoutError are fatal: every subsequent call repeats the error.
func (p *Parser) Next() (*Row, error) {
	if p.fatal != nil {
		return nil, p.fatal
	}
	for {
		if !p.inRecord {
			frame, err := p.frames.Next()
			if err != nil {
				if err == io.EOF {
					return nil, io.EOF
				}
				p.fatal = err
				return nil, err
			}
			p.payload = frame.Payload
			p.frameOffset = frame.Offset
			p.cursor = 0
			p.inRecord = true
			p.record++
			if p.metrics != nil {
				p.metrics.RecordDecoded()
			}
		}

		if p.cursor >= len(p.payload) {
			// Minimal records may run out of payload without a sentinel.
			p.endRecord()
			continue
		}

		codeOffset := p.frameOffset + headerLength + int64(p.cursor)
		code := p.payload[p.cursor]
		p.cursor++

		if code == endOfRecord {
			p.endRecord()
			continue
		}

		if p.version == Version1 && upgradeCode(code) {
			p.version = Version2
			p.logger.Info("version 2 sub-record seen, upgrading registry for the remainder of the stream",
				zap.Int("record", p.record),
				zap.Uint8("code", code))
		}

		t, ok := lookupType(code, p.version)
		if !ok {
			err := &UnknownTypeError{Record: p.record, Offset: codeOffset, Code: code}
			p.logger.Error("abandoning record, no safe resynchronization point", zap.Error(err))
			if p.metrics != nil {
				p.metrics.RecordAborted("unknown_type")
			}
			p.endRecord()
			return nil, err
		}

		fields, err := t.schema.decode(p.payload[p.cursor:])
		if err != nil {
			var layoutErr *LayoutError
			if errors.As(err, &layoutErr) {
				layoutErr.Record = p.record
				layoutErr.Code = code
			}
			p.logger.Error("sub-record decode failed", zap.Error(err))
			p.fatal = err
			return nil, err
		}
		p.cursor += t.schema.RequiredLength()

		if t.fixup != nil {
			if err := t.fixup(fields, p.opts); err != nil {
				p.logger.Error("abandoning record, sub-record transform failed",
					zap.Int("record", p.record),
					zap.Uint8("code", code),
					zap.Error(err))
				if p.metrics != nil {
					p.metrics.RecordAborted("transform")
				}
				p.endRecord()
				return nil, err
			}
		}

		row := &Row{Record: p.record, Code: code, Label: t.label, Fields: fields}
		if measurementCode(code) {
			p.test++
			row.Test = p.test
		}
		if p.metrics != nil {
			p.metrics.SubrecordDecoded(t.label)
		}
		return row, nil
	}
}

func (p *Parser) endRecord() {
	p.payload = nil
	p.cursor = 0
	p.inRecord = false
}

// RowIterator provides streaming access to decoded rows.
type RowIterator interface {
	Next() bool
	Row() *Row
	Err() error
}

// Iterator returns a RowIterator over the parser. Recoverable record
// failures are skipped (the parser has already logged them and resumed at
// the next record); iteration ends at stream exhaustion or a fatal error,
// which Err reports.
func (p *Parser) Iterator() RowIterator {
	return &rowIterator{parser: p}
}

type rowIterator struct {
	parser *Parser
	row    *Row
	err    error
}

func (it *rowIterator) Next() bool {
	for {
		row, err := it.parser.Next()
		if err == nil {
			it.row = row
			return true
		}
		if err == io.EOF {
			return false
		}
		if IsRecoverable(err) {
			continue
		}
		it.err = err
		return false
	}
}

func (it *rowIterator) Row() *Row {
	return it.row
}

func (it *rowIterator) Err() error {
	return it.err
}

// IsRecoverable reports whether a Parser.Next error abandoned only the
// current record, leaving the parser able to resume at the next header.
func IsRecoverable(err error) bool {
	var unknownErr *UnknownTypeError
	var lookupErr *LookupError
	return errors.As(err, &unknownErr) || errors.As(err, &lookupErr)
}
