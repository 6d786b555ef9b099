package fileio

import (
	"bufio"
	"encoding/binary"
	"math"
	"os"

	"github.com/pkg/errors"
)

// Writer is the encode counterpart of Scanner. It is used to materialize
// datasets and test fixtures; the query path itself never writes.
type Writer struct {
	filename string
	file     *os.File
	buffered *bufio.Writer
	pos      int64
	scratch  [10]byte
}

func NewWriter(filename string) (*Writer, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, errors.Wrapf(ErrIO, "unable to create file %s: %v", filename, err)
	}

	return &Writer{
		filename: filename,
		file:     file,
		buffered: bufio.NewWriter(file),
	}, nil
}

// Pos returns the offset the next written byte will have.
func (w *Writer) Pos() int64 {
	return w.pos
}

func (w *Writer) write(data []byte) error {
	n, err := w.buffered.Write(data)
	w.pos += int64(n)
	if err != nil {
		return errors.Wrapf(ErrIO, "error writing %d bytes to file %s: %v", len(data), w.filename, err)
	}
	return nil
}

func (w *Writer) WriteU8(value uint8) error {
	w.scratch[0] = value
	return w.write(w.scratch[:1])
}

func (w *Writer) WriteU16(value uint16) error {
	binary.LittleEndian.PutUint16(w.scratch[:2], value)
	return w.write(w.scratch[:2])
}

func (w *Writer) WriteU32(value uint32) error {
	binary.LittleEndian.PutUint32(w.scratch[:4], value)
	return w.write(w.scratch[:4])
}

func (w *Writer) WriteU64(value uint64) error {
	binary.LittleEndian.PutUint64(w.scratch[:8], value)
	return w.write(w.scratch[:8])
}

func (w *Writer) WriteVarUint(value uint64) error {
	n := binary.PutUvarint(w.scratch[:], value)
	return w.write(w.scratch[:n])
}

func (w *Writer) WriteBool(value bool) error {
	if value {
		return w.WriteU8(0x01)
	}
	return w.WriteU8(0x00)
}

func (w *Writer) WriteString(value string) error {
	if err := w.WriteVarUint(uint64(len(value))); err != nil {
		return err
	}
	return w.write([]byte(value))
}

func (w *Writer) WriteCoord(lat float64, lon float64) error {
	latDat := uint32(math.Round((lat + 90.0) * ConversionFactor))
	lonDat := uint32(math.Round((lon + 180.0) * ConversionFactor))
	if err := w.WriteU32(latDat); err != nil {
		return err
	}
	return w.WriteU32(lonDat)
}

// PatchU64 overwrites a fixed-width u64 that was written earlier. Used for
// forward references like the parent link of region records.
func (w *Writer) PatchU64(pos int64, value uint64) error {
	if err := w.buffered.Flush(); err != nil {
		return errors.Wrapf(ErrIO, "error flushing file %s: %v", w.filename, err)
	}
	var data [8]byte
	binary.LittleEndian.PutUint64(data[:], value)
	if _, err := w.file.WriteAt(data[:], pos); err != nil {
		return errors.Wrapf(ErrIO, "error patching file %s at position %d: %v", w.filename, pos, err)
	}
	return nil
}

func (w *Writer) Close() error {
	if err := w.buffered.Flush(); err != nil {
		w.file.Close()
		return errors.Wrapf(ErrIO, "error flushing file %s: %v", w.filename, err)
	}
	if err := w.file.Close(); err != nil {
		return errors.Wrapf(ErrIO, "unable to close file %s: %v", w.filename, err)
	}
	return nil
}
