// Package coltype implements the field codec (SPEC_FULL.md §4.A): one
// encode/decode pair per column type, all integers big-endian.
package coltype

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"coredb/internal/dberr"
)

// Type is the closed set of column types the storage core understands.
type Type uint8

const (
	Int Type = iota + 1
	Varchar
	Timestamp
	Boolean
)

func (t Type) String() string {
	switch t {
	case Int:
		return "INT"
	case Varchar:
		return "VARCHAR"
	case Timestamp:
		return "TIMESTAMP"
	case Boolean:
		return "BOOLEAN"
	default:
		return "UNKNOWN"
	}
}

// Tag returns the on-disk 1-byte type tag used in the schema section of
// a table file.
func (t Type) Tag() byte { return byte(t) }

// ParseType maps a schema section's 1-byte tag back to a Type.
func ParseType(tag byte) (Type, error) {
	switch Type(tag) {
	case Int, Varchar, Timestamp, Boolean:
		return Type(tag), nil
	default:
		return 0, dberr.Newf(dberr.KindUnsupportedType, "unknown column type tag 0x%02x", tag)
	}
}

const maxVarcharBytes = 65535

const timestampLayout = "2006-01-02 15:04:05"

// Encode renders text into the on-wire byte form for t.
func Encode(t Type, text string) ([]byte, error) {
	switch t {
	case Int:
		v, err := strconv.ParseInt(text, 10, 32)
		if err != nil {
			return nil, dberr.Wrap(dberr.KindTypeMismatch, fmt.Sprintf("invalid INT value %q", text), err)
		}
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(int32(v)))
		return buf, nil

	case Varchar:
		b := []byte(text)
		if len(b) > maxVarcharBytes {
			return nil, dberr.Newf(dberr.KindValueTooLong, "VARCHAR value of %d bytes exceeds %d byte limit", len(b), maxVarcharBytes)
		}
		buf := make([]byte, 2+len(b))
		binary.BigEndian.PutUint16(buf[:2], uint16(len(b)))
		copy(buf[2:], b)
		return buf, nil

	case Timestamp:
		ms, err := parseTimestamp(text)
		if err != nil {
			return nil, dberr.Wrap(dberr.KindTypeMismatch, fmt.Sprintf("invalid TIMESTAMP value %q", text), err)
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(ms))
		return buf, nil

	case Boolean:
		switch strings.ToLower(text) {
		case "true":
			return []byte{0x01}, nil
		case "false":
			return []byte{0x00}, nil
		default:
			return nil, dberr.Newf(dberr.KindTypeMismatch, "invalid BOOLEAN value %q", text)
		}

	default:
		return nil, dberr.Newf(dberr.KindUnsupportedType, "unsupported column type %v", t)
	}
}

// Decode reads one field of type t starting at data[offset:], returning
// the canonical textual form and the number of bytes consumed.
func Decode(t Type, data []byte, offset int) (text string, consumed int, err error) {
	switch t {
	case Int:
		if offset+4 > len(data) {
			return "", 0, dberr.New(dberr.KindCorruptData, "truncated INT field")
		}
		v := int32(binary.BigEndian.Uint32(data[offset : offset+4]))
		return strconv.FormatInt(int64(v), 10), 4, nil

	case Varchar:
		if offset+2 > len(data) {
			return "", 0, dberr.New(dberr.KindCorruptData, "truncated VARCHAR length prefix")
		}
		n := int(binary.BigEndian.Uint16(data[offset : offset+2]))
		start := offset + 2
		if start+n > len(data) {
			return "", 0, dberr.New(dberr.KindCorruptData, "truncated VARCHAR payload")
		}
		return string(data[start : start+n]), 2 + n, nil

	case Timestamp:
		if offset+8 > len(data) {
			return "", 0, dberr.New(dberr.KindCorruptData, "truncated TIMESTAMP field")
		}
		ms := int64(binary.BigEndian.Uint64(data[offset : offset+8]))
		return time.UnixMilli(ms).UTC().Format(time.RFC3339Nano), 8, nil

	case Boolean:
		if offset+1 > len(data) {
			return "", 0, dberr.New(dberr.KindCorruptData, "truncated BOOLEAN field")
		}
		switch data[offset] {
		case 0x01:
			return "true", 1, nil
		case 0x00:
			return "false", 1, nil
		default:
			return "", 0, dberr.Newf(dberr.KindCorruptData, "invalid BOOLEAN byte 0x%02x", data[offset])
		}

	default:
		return "", 0, dberr.Newf(dberr.KindUnsupportedType, "unsupported column type %v", t)
	}
}

func parseTimestamp(text string) (int64, error) {
	if ts, err := time.Parse(time.RFC3339, text); err == nil {
		return ts.UnixMilli(), nil
	}
	normalized := strings.Replace(text, "T", " ", 1)
	ts, err := time.ParseInLocation(timestampLayout, normalized, time.UTC)
	if err != nil {
		return 0, err
	}
	return ts.UnixMilli(), nil
}
