package program

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the wire image.
const (
	wireMemory protowire.Number = 1 // packed sint64
	wirePC     protowire.Number = 2 // sint64
	wireState  protowire.Number = 3 // string
)

// MarshalWire encodes an Image in protobuf wire format.
func MarshalWire(img *Image) []byte {
	var packed []byte
	for _, v := range img.Memory {
		packed = protowire.AppendVarint(packed, protowire.EncodeZigZag(v))
	}

	var b []byte
	b = protowire.AppendTag(b, wireMemory, protowire.BytesType)
	b = protowire.AppendBytes(b, packed)
	if img.PC != 0 {
		b = protowire.AppendTag(b, wirePC, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(img.PC)))
	}
	if img.State != "" {
		b = protowire.AppendTag(b, wireState, protowire.BytesType)
		b = protowire.AppendString(b, img.State)
	}
	return b
}

// UnmarshalWire decodes an Image from protobuf wire format. Unknown fields
// are skipped.
func UnmarshalWire(data []byte) (*Image, error) {
	img := &Image{Memory: []int64{}}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("program: wire image tag: %w", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == wireMemory && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("program: wire image memory: %w", protowire.ParseError(n))
			}
			data = data[n:]
			for len(packed) > 0 {
				v, m := protowire.ConsumeVarint(packed)
				if m < 0 {
					return nil, fmt.Errorf("program: wire image word %d: %w", len(img.Memory), protowire.ParseError(m))
				}
				img.Memory = append(img.Memory, protowire.DecodeZigZag(v))
				packed = packed[m:]
			}

		case num == wireMemory && typ == protowire.VarintType:
			// Unpacked repeated encoding.
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("program: wire image word %d: %w", len(img.Memory), protowire.ParseError(n))
			}
			data = data[n:]
			img.Memory = append(img.Memory, protowire.DecodeZigZag(v))

		case num == wirePC && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("program: wire image pc: %w", protowire.ParseError(n))
			}
			data = data[n:]
			img.PC = int(protowire.DecodeZigZag(v))

		case num == wireState && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(data)
			if n < 0 {
				return nil, fmt.Errorf("program: wire image state: %w", protowire.ParseError(n))
			}
			data = data[n:]
			img.State = s

		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, fmt.Errorf("program: wire image field %d: %w", num, protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return img, nil
}
