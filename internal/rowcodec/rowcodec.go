// Package rowcodec implements the row codec (SPEC_FULL.md §4.B): composing
// ordered, typed fields into a length-prefixed record, and the reverse.
package rowcodec

import (
	"encoding/binary"

	"coredb/internal/coltype"
	"coredb/internal/dberr"
	"coredb/internal/schema"
)

// Row maps column name to its canonical textual value. The key set must
// include every column of the owning schema for a row to be encodable;
// keys outside the schema are ignored.
type Row map[string]string

// Clone returns an independent copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Record extends Row with a soft-delete flag and a monotonic version.
// Nothing in the current write paths produces Deleted=true or a nonzero
// Version; it exists so the extended form round-trips for callers that
// opt into it directly.
type Record struct {
	Row     Row
	Deleted bool
	Version uint64
}

// EncodeRow renders row into "[4-byte length][field1]...[fieldN]" where
// fields appear in schema order.
func EncodeRow(row Row, s schema.Schema) ([]byte, error) {
	payload := make([]byte, 0, 64)
	for _, col := range s {
		text, ok := row[col.Name]
		if !ok {
			return nil, dberr.Newf(dberr.KindMissingColumn, "row is missing column %q", col.Name)
		}
		field, err := coltype.Encode(col.Type, text)
		if err != nil {
			return nil, err
		}
		payload = append(payload, field...)
	}

	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(out[:4], uint32(len(payload)))
	copy(out[4:], payload)
	return out, nil
}

// DecodeRow reads one encoded row from data starting at offset 0,
// returning the decoded Row and the total number of bytes consumed
// (including the 4-byte length prefix).
func DecodeRow(data []byte, s schema.Schema) (Row, int, error) {
	if len(data) < 4 {
		return nil, 0, dberr.New(dberr.KindCorruptData, "truncated row length prefix")
	}
	length := int(binary.BigEndian.Uint32(data[:4]))
	if 4+length > len(data) {
		return nil, 0, dberr.New(dberr.KindCorruptData, "truncated row payload")
	}
	payload := data[4 : 4+length]

	row := make(Row, len(s))
	pos := 0
	for _, col := range s {
		text, consumed, err := coltype.Decode(col.Type, payload, pos)
		if err != nil {
			return nil, 0, err
		}
		row[col.Name] = text
		pos += consumed
	}
	if pos != length {
		return nil, 0, dberr.Newf(dberr.KindCorruptData, "row payload length mismatch: declared %d, consumed %d", length, pos)
	}
	return row, 4 + length, nil
}

// EncodeRecord wraps EncodeRow with a 1-byte deleted flag and an 8-byte
// big-endian version ahead of the row payload.
func EncodeRecord(rec Record, s schema.Schema) ([]byte, error) {
	rowBytes, err := EncodeRow(rec.Row, s)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 9+len(rowBytes))
	if rec.Deleted {
		out[0] = 0x01
	}
	binary.BigEndian.PutUint64(out[1:9], rec.Version)
	copy(out[9:], rowBytes)
	return out, nil
}

// DecodeRecord reads one encoded Record from data starting at offset 0.
func DecodeRecord(data []byte, s schema.Schema) (Record, int, error) {
	if len(data) < 9 {
		return Record{}, 0, dberr.New(dberr.KindCorruptData, "truncated record header")
	}
	deleted := data[0] == 0x01
	version := binary.BigEndian.Uint64(data[1:9])

	row, consumed, err := DecodeRow(data[9:], s)
	if err != nil {
		return Record{}, 0, err
	}
	return Record{Row: row, Deleted: deleted, Version: version}, 9 + consumed, nil
}
