// Package rdb decodes the restricted RDB snapshot subset described by
// spec.md §4.B: a 9-byte REDIS0003 header, an opcode-driven body, and a
// trailer. It is deliberately narrower than the real Redis RDB format —
// only string-typed values, a 3-case length encoding, and no compressed or
// collection types are accepted.
//
// Grounded on the teacher's internal/replica/rdb_parser.go (opcode switch,
// length encoding, primitive readers) and internal/replica/rdb_string.go
// (string decoding), cross-checked against original_source/src/parser.rs —
// the Rust program this exact subset was distilled from — and against
// _examples/upstash-rdb/file_reader.go for the header/trailer driver shape.
package rdb

import (
	"errors"
	"fmt"
)

const (
	magic         = "REDIS"
	requiredVer   = "0003"
	headerLen     = 9
	opEOF         = 0xFF
	opAux         = 0xFA
	opSelectDB    = 0xFE
	opResizeDB    = 0xFB
	opExpireSec   = 0xFD
	opExpireMS    = 0xFC
	typeString    = 0
	lenEnc32Bit   = 254
	lenEncInvalid = 255
)

// Entry is a single decoded snapshot record.
type Entry struct {
	Value       []byte
	ExpiresAtMS int64 // absolute unix milliseconds; 0 means no expiry
}

// Snapshot is the immutable result of decoding one RDB file.
type Snapshot struct {
	Version int
	Entries map[string]Entry
	Stats   Stats
}

// Stats reports decode-time counters, purely for diagnostics; it has no
// effect on decode semantics or acceptance.
type Stats struct {
	AuxFieldsSkipped  int
	DatabaseSelectors int
}

// Errors returned for each of the fatal conditions named in spec.md §4.B.
var (
	ErrTruncated   = errors.New("rdb: truncated read")
	ErrBadMagic    = errors.New("rdb: bad magic")
	ErrBadVersion  = errors.New("rdb: bad version")
	ErrBadLength   = errors.New("rdb: bad length prefix")
	ErrBadString   = errors.New("rdb: non-UTF-8 string")
	ErrInvalidType = errors.New("rdb: invalid value type")
)

// Decode parses a full RDB payload into a Snapshot. Any fatal condition
// aborts with one of the Err* sentinels (wrapped with context); there is no
// partial-snapshot mode.
func Decode(data []byte) (*Snapshot, error) {
	r := &reader{buf: data}

	version, err := r.readHeader()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Version: version,
		Entries: make(map[string]Entry),
	}

	if err := r.readBody(snap); err != nil {
		return nil, err
	}

	return snap, nil
}

type reader struct {
	buf []byte
	pos int
}

func (r *reader) readHeader() (int, error) {
	if len(r.buf) < headerLen {
		return 0, fmt.Errorf("%w: header needs %d bytes, got %d", ErrTruncated, headerLen, len(r.buf))
	}
	r.pos = headerLen

	if string(r.buf[0:5]) != magic {
		return 0, fmt.Errorf("%w: %q", ErrBadMagic, r.buf[0:5])
	}

	version := r.buf[5:9]
	if string(version) != requiredVer {
		return 0, fmt.Errorf("%w: %q", ErrBadVersion, version)
	}

	// Mirrors the source: the numeric version stored for diagnostics is the
	// second of the four version digits, i.e. version[1] - '0' (0 for "0003").
	return int(version[1] - '0'), nil
}

func (r *reader) readBody(snap *Snapshot) error {
	var hasExpiry bool
	var expiresAtMS int64

	for {
		opcode, err := r.readByte()
		if err != nil {
			return err
		}

		switch opcode {
		case opEOF:
			return nil

		case opAux:
			if err := r.skipAux(); err != nil {
				return err
			}
			snap.Stats.AuxFieldsSkipped++

		case opSelectDB:
			if _, err := r.readLength(); err != nil {
				return err
			}
			snap.Stats.DatabaseSelectors++

		case opResizeDB:
			// The source reads exactly two raw bytes here instead of two
			// length-encoded integers (spec.md §9 Open Question); this
			// decoder locks in that observed behavior rather than the
			// canonical RDB hash-table-size-hints encoding.
			if _, err := r.read(2); err != nil {
				return err
			}

		case opExpireSec:
			secs, err := r.readUint32LE()
			if err != nil {
				return err
			}
			hasExpiry = true
			expiresAtMS = int64(secs) * 1000
			if err := r.readEntry(snap, hasExpiry, expiresAtMS); err != nil {
				return err
			}
			hasExpiry = false

		case opExpireMS:
			ms, err := r.readUint64LE()
			if err != nil {
				return err
			}
			hasExpiry = true
			expiresAtMS = int64(ms)
			if err := r.readEntry(snap, hasExpiry, expiresAtMS); err != nil {
				return err
			}
			hasExpiry = false

		default:
			if err := r.readEntryWithType(snap, opcode, false, 0); err != nil {
				return err
			}
		}
	}
}

// readEntry reads a value-type byte then the key/value pair, for the
// 0xFD/0xFC expiry-prefixed forms.
func (r *reader) readEntry(snap *Snapshot, hasExpiry bool, expiresAtMS int64) error {
	valueType, err := r.readByte()
	if err != nil {
		return err
	}
	return r.readEntryWithType(snap, valueType, hasExpiry, expiresAtMS)
}

func (r *reader) readEntryWithType(snap *Snapshot, valueType byte, hasExpiry bool, expiresAtMS int64) error {
	if valueType != typeString {
		return fmt.Errorf("%w: %d", ErrInvalidType, valueType)
	}

	key, err := r.readString()
	if err != nil {
		return err
	}
	value, err := r.readString()
	if err != nil {
		return err
	}

	entry := Entry{Value: value}
	if hasExpiry {
		entry.ExpiresAtMS = expiresAtMS
	}
	snap.Entries[string(key)] = entry
	return nil
}

// skipAux discards bytes until the next opcode byte 0xFF, 0xFA, or 0xFE is
// seen, then rewinds one byte so the caller's main loop re-reads it as an
// opcode — matching spec.md's description of the source's aux handling
// exactly (it does not parse aux key/value as strings).
func (r *reader) skipAux() error {
	for {
		b, err := r.readByte()
		if err != nil {
			return err
		}
		if b == opEOF || b == opAux || b == opSelectDB {
			r.pos--
			return nil
		}
	}
}

// readLength implements the 3-case length encoding from spec.md §4.B:
// 0..253 is the length itself, 254 reads 4 more little-endian bytes, and
// 255 is malformed.
func (r *reader) readLength() (uint32, error) {
	b, err := r.readByte()
	if err != nil {
		return 0, err
	}
	switch {
	case b < lenEnc32Bit:
		return uint32(b), nil
	case b == lenEnc32Bit:
		return r.readUint32LE()
	default: // 255
		return 0, fmt.Errorf("%w: %d", ErrBadLength, b)
	}
}

func (r *reader) readString() ([]byte, error) {
	n, err := r.readLength()
	if err != nil {
		return nil, err
	}
	data, err := r.read(int(n))
	if err != nil {
		return nil, err
	}
	if !isValidUTF8(data) {
		return nil, fmt.Errorf("%w: %q", ErrBadString, data)
	}
	return data, nil
}

func (r *reader) readByte() (byte, error) {
	b, err := r.read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) readUint32LE() (uint32, error) {
	b, err := r.read(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (r *reader) readUint64LE() (uint64, error) {
	b, err := r.read(8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

func (r *reader) read(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, len(r.buf)-r.pos)
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}
