// Package packed reads and writes bit-packed shot tables: one row of
// ceil(bits/8) bytes per shot, bit i of a row stored in byte i/8 at
// position i%8 (little-endian bit order).
package packed

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

// RowBytes is the on-disk width of a row of n bits.
func RowBytes(n int) int { return (n + 7) / 8 }

// Unpack expands the first n bits of row.
func Unpack(row []byte, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = row[i>>3]&(1<<(uint(i)&7)) != 0
	}
	return out
}

// Pack writes bits into dst, growing it to RowBytes(len(bits)). Padding
// bits are zero.
func Pack(bits []bool, dst []byte) []byte {
	n := RowBytes(len(bits))
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	dst = dst[:n]
	for i := range dst {
		dst[i] = 0
	}
	for i, b := range bits {
		if b {
			dst[i>>3] |= 1 << (uint(i) & 7)
		}
	}
	return dst
}

// Reader yields rows of a fixed bit width.
type Reader struct {
	r    *bufio.Reader
	bits int
	buf  []byte
	rows int
}

func NewReader(r io.Reader, bits int) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, 64*1024), bits: bits, buf: make([]byte, RowBytes(bits))}
}

// Read returns the next row. It returns io.EOF at a row boundary and
// io.ErrUnexpectedEOF for a truncated row.
func (r *Reader) Read() ([]bool, error) {
	if _, err := io.ReadFull(r.r, r.buf); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, errors.Wrapf(err, "row %d truncated", r.rows)
		}
		return nil, err
	}
	r.rows++
	return Unpack(r.buf, r.bits), nil
}

// ReadChunk reads up to n rows. A short chunk is returned with a nil
// error at end of input; the next call returns io.EOF.
func (r *Reader) ReadChunk(n int) ([][]bool, error) {
	rows := make([][]bool, 0, n)
	for len(rows) < n {
		row, err := r.Read()
		if err == io.EOF {
			if len(rows) == 0 {
				return nil, io.EOF
			}
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Rows is the number of complete rows read so far.
func (r *Reader) Rows() int { return r.rows }

// Writer writes rows of a fixed bit width.
type Writer struct {
	w    *bufio.Writer
	bits int
	buf  []byte
	rows int
}

func NewWriter(w io.Writer, bits int) *Writer {
	return &Writer{w: bufio.NewWriter(w), bits: bits, buf: make([]byte, RowBytes(bits))}
}

// Write appends one row. len(row) must equal the writer's width.
func (w *Writer) Write(row []bool) error {
	if len(row) != w.bits {
		return errors.Errorf("row has %d bits, want %d", len(row), w.bits)
	}
	w.buf = Pack(row, w.buf)
	if _, err := w.w.Write(w.buf); err != nil {
		return errors.Wrapf(err, "write row %d", w.rows)
	}
	w.rows++
	return nil
}

// Flush pushes buffered rows to the underlying writer.
func (w *Writer) Flush() error { return w.w.Flush() }

// Rows is the number of rows written so far.
func (w *Writer) Rows() int { return w.rows }
