// Package tablefile implements the table file manager (SPEC_FULL.md
// §4.D): the binary on-disk layout for a table and its atomic
// write/read/delete/list operations.
package tablefile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"coredb/internal/coltype"
	"coredb/internal/dberr"
	"coredb/internal/rowcodec"
	"coredb/internal/schema"
)

const (
	magic       uint16 = 0xDBF0
	fileVersion uint16 = 1
	headerSize         = 24
	fileSuffix         = ".dat"
)

// Table is the full in-memory representation of one table's durable
// state: its schema and its rows in insertion order.
type Table struct {
	Name   string
	Schema schema.Schema
	Rows   []rowcodec.Row
}

// Manager reads and writes table files rooted at a single directory.
type Manager struct {
	root string
}

// New returns a Manager rooted at dir, creating dir if it does not
// already exist.
func New(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, dberr.Wrap(dberr.KindIoError, "create storage directory", err)
	}
	return &Manager{root: dir}, nil
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.root, name+fileSuffix)
}

// WriteTable encodes t and durably, atomically replaces its file on
// disk. Partial writes are never observable under the final name.
func (m *Manager) WriteTable(t Table) error {
	if err := schema.ValidateName(t.Name); err != nil {
		return err
	}
	if err := t.Schema.Validate(); err != nil {
		return err
	}
	if len(t.Schema) > 0xFFFF {
		return dberr.Newf(dberr.KindInvalidSchema, "table %q has too many columns", t.Name)
	}

	buf, err := encodeTable(t)
	if err != nil {
		return err
	}

	if err := atomic.WriteFile(m.path(t.Name), bytes.NewReader(buf)); err != nil {
		return dberr.Wrap(dberr.KindIoError, fmt.Sprintf("write table file %q", t.Name), err)
	}
	return nil
}

// ReadTable loads and decodes the file for name. It returns (nil, nil)
// if no such file exists.
func (m *Manager) ReadTable(name string) (*Table, error) {
	data, err := os.ReadFile(m.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dberr.Wrap(dberr.KindIoError, fmt.Sprintf("read table file %q", name), err)
	}
	t, err := decodeTable(name, data)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTable removes the file for name, if present, reporting whether
// it existed.
func (m *Manager) DeleteTable(name string) (existed bool, err error) {
	if err := os.Remove(m.path(name)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, dberr.Wrap(dberr.KindIoError, fmt.Sprintf("delete table file %q", name), err)
	}
	return true, nil
}

// ListTables returns the names of every table file under the manager's
// root, excluding transient .tmp files.
func (m *Manager) ListTables() ([]string, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return nil, dberr.Wrap(dberr.KindIoError, "list storage directory", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), fileSuffix))
	}
	return names, nil
}

func encodeTable(t Table) ([]byte, error) {
	var schemaBuf bytes.Buffer
	for _, col := range t.Schema {
		nameBytes := []byte(col.Name)
		if len(nameBytes) > 0xFFFF {
			return nil, dberr.Newf(dberr.KindInvalidSchema, "column name %q too long", col.Name)
		}
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(nameBytes)))
		schemaBuf.Write(lenBuf[:])
		schemaBuf.Write(nameBytes)
		schemaBuf.WriteByte(col.Type.Tag())
	}

	var rowsBuf bytes.Buffer
	for _, row := range t.Rows {
		encoded, err := rowcodec.EncodeRow(row, t.Schema)
		if err != nil {
			return nil, err
		}
		rowsBuf.Write(encoded)
	}

	header := make([]byte, headerSize)
	binary.BigEndian.PutUint16(header[0:2], magic)
	binary.BigEndian.PutUint16(header[2:4], fileVersion)
	binary.BigEndian.PutUint64(header[4:12], uint64(len(t.Rows)))
	binary.BigEndian.PutUint32(header[12:16], uint32(len(t.Schema)))
	binary.BigEndian.PutUint32(header[16:20], uint32(schemaBuf.Len()))
	// header[20:24] reserved, left zero.

	out := make([]byte, 0, headerSize+schemaBuf.Len()+rowsBuf.Len())
	out = append(out, header...)
	out = append(out, schemaBuf.Bytes()...)
	out = append(out, rowsBuf.Bytes()...)
	return out, nil
}

func decodeTable(name string, data []byte) (*Table, error) {
	if len(data) < headerSize {
		return nil, dberr.New(dberr.KindCorruptFile, "truncated table file header")
	}
	if binary.BigEndian.Uint16(data[0:2]) != magic {
		return nil, dberr.New(dberr.KindCorruptFile, "bad magic number")
	}
	if binary.BigEndian.Uint16(data[2:4]) != fileVersion {
		return nil, dberr.New(dberr.KindCorruptFile, "unsupported file version")
	}
	rowCount := binary.BigEndian.Uint64(data[4:12])
	columnCount := binary.BigEndian.Uint32(data[12:16])

	pos := headerSize
	cols := make(schema.Schema, 0, columnCount)
	for i := uint32(0); i < columnCount; i++ {
		if pos+2 > len(data) {
			return nil, dberr.New(dberr.KindCorruptFile, "truncated schema entry")
		}
		nameLen := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		pos += 2
		if pos+nameLen+1 > len(data) {
			return nil, dberr.New(dberr.KindCorruptFile, "truncated schema entry")
		}
		colName := string(data[pos : pos+nameLen])
		pos += nameLen
		tag := data[pos]
		pos++

		typ, err := coltype.ParseType(tag)
		if err != nil {
			return nil, dberr.Wrap(dberr.KindCorruptFile, "invalid column type tag", err)
		}
		cols = append(cols, schema.Column{Name: colName, Type: typ})
	}

	rows := make([]rowcodec.Row, 0, rowCount)
	for i := uint64(0); i < rowCount; i++ {
		row, consumed, err := rowcodec.DecodeRow(data[pos:], cols)
		if err != nil {
			return nil, dberr.Wrap(dberr.KindCorruptFile, "decode table row", err)
		}
		rows = append(rows, row)
		pos += consumed
	}

	return &Table{Name: name, Schema: cols, Rows: rows}, nil
}
