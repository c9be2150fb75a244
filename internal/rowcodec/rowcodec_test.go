package rowcodec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"coredb/internal/coltype"
	"coredb/internal/schema"
)

func testSchema() schema.Schema {
	return schema.Schema{
		{Name: "id", Type: coltype.Int},
		{Name: "name", Type: coltype.Varchar},
		{Name: "active", Type: coltype.Boolean},
	}
}

func TestRowRoundTrip(t *testing.T) {
	s := testSchema()
	row := Row{"id": "7", "name": "Ada", "active": "true"}

	encoded, err := EncodeRow(row, s)
	require.NoError(t, err)

	decoded, consumed, err := DecodeRow(encoded, s)
	require.NoError(t, err)
	require.Equal(t, len(encoded), consumed)
	if diff := cmp.Diff(row, decoded); diff != "" {
		t.Errorf("row mismatch after round-trip (-want +got):\n%s", diff)
	}
}

func TestEncodeRowMissingColumn(t *testing.T) {
	s := testSchema()
	row := Row{"id": "7", "name": "Ada"}
	_, err := EncodeRow(row, s)
	require.Error(t, err)
}

func TestEncodeRowIgnoresExtraKeys(t *testing.T) {
	s := testSchema()
	row := Row{"id": "7", "name": "Ada", "active": "true", "extra": "ignored"}
	_, err := EncodeRow(row, s)
	require.NoError(t, err)
}

func TestDecodeRowLengthMismatch(t *testing.T) {
	s := testSchema()
	row := Row{"id": "7", "name": "Ada", "active": "true"}
	encoded, err := EncodeRow(row, s)
	require.NoError(t, err)

	// Corrupt the declared length.
	encoded[3] += 1
	_, _, err = DecodeRow(encoded, s)
	require.Error(t, err)
}

func TestRecordRoundTrip(t *testing.T) {
	s := testSchema()
	rec := Record{Row: Row{"id": "1", "name": "x", "active": "false"}, Deleted: true, Version: 42}

	encoded, err := EncodeRecord(rec, s)
	require.NoError(t, err)

	decoded, consumed, err := DecodeRecord(encoded, s)
	require.NoError(t, err)
	require.Equal(t, len(encoded), consumed)
	if diff := cmp.Diff(rec, decoded); diff != "" {
		t.Errorf("record mismatch after round-trip (-want +got):\n%s", diff)
	}
}

func TestMultipleRowsConcatenate(t *testing.T) {
	s := testSchema()
	row1 := Row{"id": "1", "name": "a", "active": "true"}
	row2 := Row{"id": "2", "name": "b", "active": "false"}

	e1, err := EncodeRow(row1, s)
	require.NoError(t, err)
	e2, err := EncodeRow(row2, s)
	require.NoError(t, err)

	buf := append(append([]byte{}, e1...), e2...)

	d1, c1, err := DecodeRow(buf, s)
	require.NoError(t, err)
	require.Equal(t, row1, d1)

	d2, c2, err := DecodeRow(buf[c1:], s)
	require.NoError(t, err)
	require.Equal(t, row2, d2)
	require.Equal(t, len(buf), c1+c2)
}
