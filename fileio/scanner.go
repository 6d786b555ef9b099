package fileio

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
)

// ConversionFactor scales geographic coordinates into the unsigned fixed-point
// representation used throughout the dataset files.
const ConversionFactor = 10000000.0

const sequentialBufferSize = 10_000

// ErrIO marks a failure of the underlying storage (read, seek, open).
var ErrIO = errors.New("I/O error")

// ErrCorruptData marks data that violates the binary format, e.g. a
// variable-length field running past the end of the file.
var ErrCorruptData = errors.New("corrupt data")

type Mode int

const (
	// ModeSequential reads through a fixed read-ahead buffer. Best for
	// scanning a file front to back.
	ModeSequential Mode = iota
	// ModeLowMemRandom issues one positioned read per request and keeps no
	// buffer between calls.
	ModeLowMemRandom
	// ModeMmap maps the whole file into memory and serves reads from the
	// mapping.
	ModeMmap
)

// Scanner decodes the fixed- and variable-width primitives of the dataset
// files. The first failed read latches a sticky error; all following reads
// return zero values until the scanner is closed.
type Scanner struct {
	filename string
	mode     Mode

	file   *os.File
	mapped *mmap.ReaderAt
	reader io.ReaderAt
	size   int64
	pos    int64

	// Read-ahead state for ModeSequential. The buffer is reused, so callers
	// only ever see slices of it.
	buffer       []byte
	bufferStart  int64
	bufferLength int64

	scratch [8]byte
	err     error
}

func NewScanner(filename string, mode Mode) (*Scanner, error) {
	s := &Scanner{
		filename: filename,
		mode:     mode,
	}

	switch mode {
	case ModeMmap:
		mapped, err := mmap.Open(filename)
		if err != nil {
			return nil, errors.Wrapf(ErrIO, "unable to mmap file %s: %v", filename, err)
		}
		s.mapped = mapped
		s.reader = mapped
		s.size = int64(mapped.Len())
	default:
		file, err := os.Open(filename)
		if err != nil {
			return nil, errors.Wrapf(ErrIO, "unable to open file %s: %v", filename, err)
		}
		info, err := file.Stat()
		if err != nil {
			file.Close()
			return nil, errors.Wrapf(ErrIO, "unable to stat file %s: %v", filename, err)
		}
		s.file = file
		s.reader = file
		s.size = info.Size()
		if mode == ModeSequential {
			s.buffer = make([]byte, sequentialBufferSize)
		}
	}

	return s, nil
}

func (s *Scanner) Filename() string {
	return s.filename
}

func (s *Scanner) Size() int64 {
	return s.size
}

func (s *Scanner) GetPos() int64 {
	return s.pos
}

func (s *Scanner) SetPos(pos int64) {
	if s.err != nil {
		return
	}
	if pos < 0 || pos > s.size {
		s.fail(errors.Wrapf(ErrIO, "position %d out of range [0, %d] in file %s", pos, s.size, s.filename))
		return
	}
	s.pos = pos
}

// HasError reports whether the sticky error flag is set.
func (s *Scanner) HasError() bool {
	return s.err != nil
}

func (s *Scanner) Err() error {
	return s.err
}

// ClearError resets the sticky error flag so the scanner can serve the next
// independent read. The position is unspecified afterwards, callers have to
// seek before reading again.
func (s *Scanner) ClearError() {
	s.err = nil
}

// Close releases the file handle and clears the sticky error flag.
func (s *Scanner) Close() error {
	s.err = nil
	s.buffer = nil

	if s.mapped != nil {
		mapped := s.mapped
		s.mapped = nil
		s.reader = nil
		if err := mapped.Close(); err != nil {
			return errors.Wrapf(ErrIO, "unable to close mapping of %s: %v", s.filename, err)
		}
		return nil
	}

	if s.file != nil {
		file := s.file
		s.file = nil
		s.reader = nil
		if err := file.Close(); err != nil {
			return errors.Wrapf(ErrIO, "unable to close file %s: %v", s.filename, err)
		}
	}

	return nil
}

func (s *Scanner) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// read returns length bytes starting at the current position and advances the
// position. The returned slice is only valid until the next read.
func (s *Scanner) read(length int) []byte {
	if s.err != nil {
		return nil
	}
	if s.reader == nil {
		s.fail(errors.Wrapf(ErrIO, "file %s is not open", s.filename))
		return nil
	}
	if s.pos+int64(length) > s.size {
		s.fail(errors.Wrapf(ErrCorruptData, "read of %d bytes at position %d exceeds file %s of size %d", length, s.pos, s.filename, s.size))
		return nil
	}

	var data []byte

	if s.mode == ModeSequential {
		data = s.readBuffered(length)
	} else {
		if length <= len(s.scratch) {
			data = s.scratch[:length]
		} else {
			data = make([]byte, length)
		}
		if _, err := s.reader.ReadAt(data, s.pos); err != nil && err != io.EOF {
			s.fail(errors.Wrapf(ErrIO, "error reading %d bytes at position %d from file %s: %v", length, s.pos, s.filename, err))
			return nil
		}
	}

	if s.err != nil {
		return nil
	}

	s.pos += int64(length)
	return data
}

func (s *Scanner) readBuffered(length int) []byte {
	if int64(length) > int64(len(s.buffer)) {
		// Larger than the read-ahead window, bypass it.
		data := make([]byte, length)
		if _, err := s.reader.ReadAt(data, s.pos); err != nil && err != io.EOF {
			s.fail(errors.Wrapf(ErrIO, "error reading %d bytes at position %d from file %s: %v", length, s.pos, s.filename, err))
			return nil
		}
		return data
	}

	bufferEnd := s.bufferStart + s.bufferLength
	if s.pos < s.bufferStart || s.pos+int64(length) > bufferEnd {
		readBytes, err := s.reader.ReadAt(s.buffer, s.pos)
		// An EOF only means the buffer is not completely filled, which is
		// fine as long as the requested range is covered.
		if err != nil && err != io.EOF {
			s.fail(errors.Wrapf(ErrIO, "error filling read buffer at position %d of file %s: %v", s.pos, s.filename, err))
			return nil
		}
		if int64(readBytes) < int64(length) {
			s.fail(errors.Wrapf(ErrCorruptData, "only %d of %d bytes available at position %d of file %s", readBytes, length, s.pos, s.filename))
			return nil
		}
		s.bufferStart = s.pos
		s.bufferLength = int64(readBytes)
	}

	start := s.pos - s.bufferStart
	return s.buffer[start : start+int64(length)]
}

func (s *Scanner) ReadU8() uint8 {
	data := s.read(1)
	if data == nil {
		return 0
	}
	return data[0]
}

func (s *Scanner) ReadU16() uint16 {
	data := s.read(2)
	if data == nil {
		return 0
	}
	return uint16(data[0]) | uint16(data[1])<<8
}

func (s *Scanner) ReadU32() uint32 {
	data := s.read(4)
	if data == nil {
		return 0
	}
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
}

func (s *Scanner) ReadU64() uint64 {
	data := s.read(8)
	if data == nil {
		return 0
	}
	var value uint64
	for i := 7; i >= 0; i-- {
		value = value<<8 | uint64(data[i])
	}
	return value
}

// ReadVarUint decodes an unsigned integer of up to 64 bit stored with 7-bit
// continuation encoding (MSB set = one more byte follows).
func (s *Scanner) ReadVarUint() uint64 {
	var value uint64
	var shift uint

	for {
		if shift > 63 {
			s.fail(errors.Wrapf(ErrCorruptData, "variable-length integer at position %d of file %s exceeds 64 bit", s.pos, s.filename))
			return 0
		}
		data := s.read(1)
		if data == nil {
			return 0
		}
		b := data[0]
		value |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return value
		}
		shift += 7
	}
}

func (s *Scanner) ReadBool() bool {
	data := s.read(1)
	if data == nil {
		return false
	}
	if data[0] != 0x00 && data[0] != 0x01 {
		s.fail(errors.Wrapf(ErrCorruptData, "invalid boolean byte 0x%02x at position %d of file %s", data[0], s.pos-1, s.filename))
		return false
	}
	return data[0] == 0x01
}

// ReadString decodes a length-prefixed UTF-8 string.
func (s *Scanner) ReadString() string {
	length := s.ReadVarUint()
	if s.err != nil {
		return ""
	}
	if int64(length) > s.size-s.pos {
		s.fail(errors.Wrapf(ErrCorruptData, "string of length %d at position %d exceeds file %s", length, s.pos, s.filename))
		return ""
	}
	if length == 0 {
		return ""
	}
	data := s.read(int(length))
	if data == nil {
		return ""
	}
	return string(data)
}

// ReadCoord decodes one geographic coordinate from its two scaled unsigned
// fixed-point components.
func (s *Scanner) ReadCoord() (lat float64, lon float64) {
	latDat := s.ReadU32()
	lonDat := s.ReadU32()
	if s.err != nil {
		return 0, 0
	}
	lat = float64(latDat)/ConversionFactor - 90.0
	lon = float64(lonDat)/ConversionFactor - 180.0
	return lat, lon
}
