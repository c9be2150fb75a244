// Package page implements the page abstraction and LRU buffer pool
// described in SPEC_FULL.md §4.C.
package page

import (
	"encoding/binary"

	"coredb/internal/dberr"
)

// Size is the fixed size of every page, in bytes.
const Size = 16384

const headerSize = 8 // record_count uint32 BE, free_offset uint32 BE

// ID identifies a page by owning table and page number.
type ID struct {
	Table  string
	Number uint64
}

// Page is a 16 KiB block holding zero or more pre-encoded record byte
// slices (each already self-describing its own length, per
// internal/rowcodec's 4-byte length prefix). Pages are a cache-layer
// concept only; the table registry remains the source of truth for
// read correctness.
type Page struct {
	ID      ID
	Records [][]byte
}

// New returns an empty page for id.
func New(id ID) *Page { return &Page{ID: id} }

// Encode renders the page into its fixed-size on-disk/in-cache byte
// form. It fails if the records do not fit within Size.
func (p *Page) Encode() ([]byte, error) {
	buf := make([]byte, headerSize, Size)
	total := 0
	for _, rec := range p.Records {
		total += len(rec)
	}
	if headerSize+total > Size {
		return nil, dberr.Newf(dberr.KindIoError, "page %v records exceed page size: %d > %d", p.ID, headerSize+total, Size)
	}
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(p.Records)))
	binary.BigEndian.PutUint32(buf[4:8], uint32(headerSize+total))
	for _, rec := range p.Records {
		buf = append(buf, rec...)
	}
	if len(buf) < Size {
		padded := make([]byte, Size)
		copy(padded, buf)
		buf = padded
	}
	return buf, nil
}

// Decode parses a page previously produced by Encode. recordLen is
// invoked to determine how many bytes each successive record occupies
// (internal/rowcodec records self-describe their length in their first
// four bytes, so this is typically a thin wrapper around
// rowcodec.DecodeRow/DecodeRecord).
func Decode(id ID, buf []byte, recordLen func(data []byte) (int, error)) (*Page, error) {
	if len(buf) < headerSize {
		return nil, dberr.New(dberr.KindCorruptData, "truncated page header")
	}
	count := binary.BigEndian.Uint32(buf[0:4])
	freeOffset := binary.BigEndian.Uint32(buf[4:8])
	if int(freeOffset) > len(buf) {
		return nil, dberr.New(dberr.KindCorruptData, "page free offset beyond buffer")
	}

	p := &Page{ID: id, Records: make([][]byte, 0, count)}
	pos := headerSize
	for i := uint32(0); i < count; i++ {
		if pos >= int(freeOffset) {
			return nil, dberr.New(dberr.KindCorruptData, "page record count exceeds available data")
		}
		n, err := recordLen(buf[pos:freeOffset])
		if err != nil {
			return nil, err
		}
		if pos+n > int(freeOffset) {
			return nil, dberr.New(dberr.KindCorruptData, "page record overruns free offset")
		}
		p.Records = append(p.Records, buf[pos:pos+n])
		pos += n
	}
	return p, nil
}
