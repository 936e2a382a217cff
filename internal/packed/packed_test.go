package packed

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestLittleEndianBitOrder(t *testing.T) {
	bits := make([]bool, 10)
	bits[0], bits[3], bits[9] = true, true, true
	got := Pack(bits, nil)
	require.Equal(t, []byte{0x09, 0x02}, got)
	require.Equal(t, bits, Unpack(got, 10))
}

func TestReaderRows(t *testing.T) {
	// three rows of 12 bits: two bytes each
	data := []byte{0x01, 0x00, 0x00, 0x08, 0xff, 0x0f}
	r := NewReader(bytes.NewReader(data), 12)

	row, err := r.Read()
	require.NoError(t, err)
	require.True(t, row[0])
	require.Len(t, row, 12)

	rows, err := r.ReadChunk(5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.True(t, rows[0][11])
	require.False(t, rows[0][0])
	for _, b := range rows[1] {
		require.True(t, b)
	}
	require.Equal(t, 3, r.Rows())

	_, err = r.ReadChunk(5)
	require.Equal(t, io.EOF, err)
}

func TestReaderTruncatedRow(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0x01, 0x00, 0x01}), 9)
	_, err := r.Read()
	require.NoError(t, err)
	_, err = r.Read()
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF), "got %v", err)
}

func TestWriterSingleObservable(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 1)
	for _, b := range []bool{true, false, true} {
		require.NoError(t, w.Write([]bool{b}))
	}
	require.Error(t, w.Write([]bool{true, false}))
	require.NoError(t, w.Flush())
	require.Equal(t, []byte{1, 0, 1}, buf.Bytes())
	require.Equal(t, 3, w.Rows())
}
