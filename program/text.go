// Package program loads and saves Intcode memory images.
//
// Three formats are supported:
//   - text: comma-separated decimal integers (the conventional form)
//   - CBOR: canonical CBOR encoding of an Image
//   - wire: protobuf wire format with memory as packed zig-zag varints
package program

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseText parses comma-separated integers. Whitespace around fields is
// ignored, as is a single empty field at the end (a trailing comma or
// newline). Any other empty field is an error.
func ParseText(src string) ([]int64, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return []int64{}, nil
	}
	fields := strings.Split(src, ",")
	if strings.TrimSpace(fields[len(fields)-1]) == "" {
		fields = fields[:len(fields)-1]
	}

	out := make([]int64, len(fields))
	for i, f := range fields {
		f = strings.TrimSpace(f)
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// MarshalText renders memory as comma-separated integers.
func MarshalText(mem []int64) string {
	var sb strings.Builder
	for i, v := range mem {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatInt(v, 10))
	}
	return sb.String()
}
