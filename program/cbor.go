package program

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical encoding so equal images encode identically.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("program: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalCBOR serializes an Image to CBOR bytes.
func MarshalCBOR(img *Image) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// UnmarshalCBOR deserializes an Image from CBOR bytes.
func UnmarshalCBOR(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("program: unmarshal cbor image: %w", err)
	}
	return &img, nil
}
