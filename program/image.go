package program

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/intcode/vm"
)

// Image is a memory snapshot plus the program counter to resume from.
type Image struct {
	Memory []int64 `cbor:"1,keyasint"`
	PC     int     `cbor:"2,keyasint,omitempty"`
	State  string  `cbor:"3,keyasint,omitempty"`
}

// FromResult captures the end of a run as an Image. A halted run keeps
// HaltedPC and the "halted" state; the CLI reports such an image as halted
// without running it again.
func FromResult(res *vm.Result) *Image {
	return &Image{
		Memory: append([]int64(nil), res.Memory...),
		PC:     res.PC,
		State:  res.State.String(),
	}
}

// Format identifies an image encoding.
type Format int

const (
	FormatText Format = iota
	FormatCBOR
	FormatWire
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatCBOR:
		return "cbor"
	case FormatWire:
		return "wire"
	default:
		return "unknown"
	}
}

// ParseFormat accepts the names returned by Format.String.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text", "txt", "ic":
		return FormatText, nil
	case "cbor", "icb":
		return FormatCBOR, nil
	case "wire", "icw", "pb":
		return FormatWire, nil
	}
	return 0, fmt.Errorf("unknown image format %q", s)
}

// FormatFor picks a format from a file extension: .icb is CBOR, .icw is
// wire, anything else is text.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".icb", ".cbor":
		return FormatCBOR
	case ".icw", ".pb":
		return FormatWire
	default:
		return FormatText
	}
}

// Encode serializes img in the given format. The text format carries
// memory only.
func Encode(f Format, img *Image) ([]byte, error) {
	switch f {
	case FormatText:
		return []byte(MarshalText(img.Memory) + "\n"), nil
	case FormatCBOR:
		return MarshalCBOR(img)
	case FormatWire:
		return MarshalWire(img), nil
	}
	return nil, fmt.Errorf("unknown image format %d", int(f))
}

// Decode parses data in the given format.
func Decode(f Format, data []byte) (*Image, error) {
	switch f {
	case FormatText:
		mem, err := ParseText(string(data))
		if err != nil {
			return nil, err
		}
		return &Image{Memory: mem}, nil
	case FormatCBOR:
		return UnmarshalCBOR(data)
	case FormatWire:
		return UnmarshalWire(data)
	}
	return nil, fmt.Errorf("unknown image format %d", int(f))
}

// Load reads an image, choosing the format from the file extension.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	img, err := Decode(FormatFor(path), data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return img, nil
}

// Save writes an image, choosing the format from the file extension.
func Save(path string, img *Image) error {
	data, err := Encode(FormatFor(path), img)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}
