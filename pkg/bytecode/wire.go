package bytecode

import (
	"bytes"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// FormatVersion is the current bytecode file format version.
// Increment when making incompatible changes to the format.
const FormatVersion uint16 = 1

// Magic bytes for bytecode files: "RLBC" (Rill ByteCode)
var Magic = []byte{'R', 'L', 'B', 'C'}

// File is the on-disk container for a compiled program.
type File struct {
	Version   uint16  // format version
	BuildID   string  // unique id of the producing compilation
	CreatedAt int64   // unix seconds
	Program   Program
}

// cborEncMode uses canonical options for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a File to its wire form: magic bytes followed by the
// canonical CBOR encoding.
func Marshal(f *File) ([]byte, error) {
	body, err := cborEncMode.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal: %w", err)
	}
	out := make([]byte, 0, len(Magic)+len(body))
	out = append(out, Magic...)
	out = append(out, body...)
	return out, nil
}

// Unmarshal deserializes a File from its wire form.
func Unmarshal(data []byte) (*File, error) {
	if len(data) < len(Magic) || !bytes.Equal(data[:len(Magic)], Magic) {
		return nil, fmt.Errorf("bytecode: bad magic, not a Rill bytecode file")
	}
	var f File
	if err := cbor.Unmarshal(data[len(Magic):], &f); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal: %w", err)
	}
	if f.Version > FormatVersion {
		return nil, fmt.Errorf("bytecode: format version %d is newer than supported version %d", f.Version, FormatVersion)
	}
	return &f, nil
}

// WriteFile writes a File to the given path.
func WriteFile(path string, f *File) error {
	data, err := Marshal(f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("bytecode: write %s: %w", path, err)
	}
	return nil
}

// ReadFile reads a File from the given path.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bytecode: read %s: %w", path, err)
	}
	return Unmarshal(data)
}
