package fileio

import (
	"os"
	"path"
	"testing"

	"github.com/pkg/errors"

	"scoutdb/util"
)

func writeTestFile(t *testing.T) string {
	filename := path.Join(t.TempDir(), "test.dat")

	writer, err := NewWriter(filename)
	util.AssertNil(t, err)

	util.AssertNil(t, writer.WriteU8(0x42))
	util.AssertNil(t, writer.WriteU16(0x1234))
	util.AssertNil(t, writer.WriteU32(0xdeadbeef))
	util.AssertNil(t, writer.WriteU64(0x0123456789abcdef))
	util.AssertNil(t, writer.WriteVarUint(0))
	util.AssertNil(t, writer.WriteVarUint(127))
	util.AssertNil(t, writer.WriteVarUint(128))
	util.AssertNil(t, writer.WriteVarUint(1_234_567_890_123))
	util.AssertNil(t, writer.WriteBool(true))
	util.AssertNil(t, writer.WriteBool(false))
	util.AssertNil(t, writer.WriteString("Hauptstraße"))
	util.AssertNil(t, writer.WriteString(""))
	util.AssertNil(t, writer.WriteCoord(48.137, 11.575))
	util.AssertNil(t, writer.Close())

	return filename
}

func readTestFile(t *testing.T, scanner *Scanner) {
	util.AssertEqual(t, uint8(0x42), scanner.ReadU8())
	util.AssertEqual(t, uint16(0x1234), scanner.ReadU16())
	util.AssertEqual(t, uint32(0xdeadbeef), scanner.ReadU32())
	util.AssertEqual(t, uint64(0x0123456789abcdef), scanner.ReadU64())
	util.AssertEqual(t, uint64(0), scanner.ReadVarUint())
	util.AssertEqual(t, uint64(127), scanner.ReadVarUint())
	util.AssertEqual(t, uint64(128), scanner.ReadVarUint())
	util.AssertEqual(t, uint64(1_234_567_890_123), scanner.ReadVarUint())
	util.AssertTrue(t, scanner.ReadBool())
	util.AssertFalse(t, scanner.ReadBool())
	util.AssertEqual(t, "Hauptstraße", scanner.ReadString())
	util.AssertEqual(t, "", scanner.ReadString())

	lat, lon := scanner.ReadCoord()
	util.AssertApprox(t, 48.137, lat, 1e-6)
	util.AssertApprox(t, 11.575, lon, 1e-6)

	util.AssertFalse(t, scanner.HasError())
	util.AssertNil(t, scanner.Err())
}

func TestScanner_readAllModes(t *testing.T) {
	filename := writeTestFile(t)

	for _, mode := range []Mode{ModeSequential, ModeLowMemRandom, ModeMmap} {
		scanner, err := NewScanner(filename, mode)
		util.AssertNil(t, err)

		readTestFile(t, scanner)

		util.AssertNil(t, scanner.Close())
	}
}

func TestScanner_setAndGetPos(t *testing.T) {
	filename := writeTestFile(t)

	scanner, err := NewScanner(filename, ModeLowMemRandom)
	util.AssertNil(t, err)
	defer scanner.Close()

	util.AssertEqual(t, int64(0), scanner.GetPos())

	scanner.ReadU8()
	util.AssertEqual(t, int64(1), scanner.GetPos())

	scanner.SetPos(0)
	util.AssertEqual(t, uint8(0x42), scanner.ReadU8())

	// Reading the u16 again after a jump back.
	scanner.SetPos(1)
	util.AssertEqual(t, uint16(0x1234), scanner.ReadU16())
}

func TestScanner_stickyErrorOnTruncatedData(t *testing.T) {
	filename := path.Join(t.TempDir(), "truncated.dat")

	// A var-uint whose continuation byte never arrives.
	err := os.WriteFile(filename, []byte{0x80}, 0644)
	util.AssertNil(t, err)

	scanner, err := NewScanner(filename, ModeLowMemRandom)
	util.AssertNil(t, err)

	util.AssertEqual(t, uint64(0), scanner.ReadVarUint())
	util.AssertTrue(t, scanner.HasError())
	util.AssertEqual(t, ErrCorruptData, errors.Cause(scanner.Err()))

	// All following reads short-circuit.
	util.AssertEqual(t, uint8(0), scanner.ReadU8())
	util.AssertTrue(t, scanner.HasError())

	// Closing clears the flag.
	util.AssertNil(t, scanner.Close())
	util.AssertFalse(t, scanner.HasError())
}

func TestScanner_stringExceedingFile(t *testing.T) {
	filename := path.Join(t.TempDir(), "string.dat")

	// Length prefix of 100 followed by 2 bytes only.
	err := os.WriteFile(filename, []byte{100, 'h', 'i'}, 0644)
	util.AssertNil(t, err)

	scanner, err := NewScanner(filename, ModeLowMemRandom)
	util.AssertNil(t, err)
	defer scanner.Close()

	util.AssertEqual(t, "", scanner.ReadString())
	util.AssertTrue(t, scanner.HasError())
	util.AssertEqual(t, ErrCorruptData, errors.Cause(scanner.Err()))
}

func TestScanner_setPosOutOfRange(t *testing.T) {
	filename := writeTestFile(t)

	scanner, err := NewScanner(filename, ModeLowMemRandom)
	util.AssertNil(t, err)
	defer scanner.Close()

	scanner.SetPos(scanner.Size() + 1)
	util.AssertTrue(t, scanner.HasError())
	util.AssertEqual(t, ErrIO, errors.Cause(scanner.Err()))
}
