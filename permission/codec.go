package permission

import (
	"encoding/binary"
	"errors"
)

// ErrMaskSize is returned by [DecodeMask] for payloads that are not exactly
// one version byte plus eight mask bytes.
var ErrMaskSize = errors.New("invalid mask size")

// ErrMaskVersion is returned by [DecodeMask] when the encoded catalogue
// version does not match the registry the mask is being decoded against.
var ErrMaskVersion = errors.New("mask catalogue version mismatch")

const encodedMaskSize = 9

// EncodeMask serializes a mask for storage: one catalogue version byte
// followed by the mask in big-endian order.
func EncodeMask(r *Registry, m Mask) []byte {
	b := make([]byte, encodedMaskSize)
	b[0] = r.Version()
	binary.BigEndian.PutUint64(b[1:], uint64(m))
	return b
}

// DecodeMask deserializes a mask produced by [EncodeMask], rejecting
// payloads encoded under a different catalogue version. Bits outside the
// registry's catalogue are cleared so a newer writer cannot smuggle
// undefined grants into an older reader.
func DecodeMask(r *Registry, data []byte) (Mask, error) {
	if len(data) != encodedMaskSize {
		return 0, ErrMaskSize
	}

	if data[0] != r.Version() {
		return 0, ErrMaskVersion
	}

	m := Mask(binary.BigEndian.Uint64(data[1:]))
	return m & r.All(), nil
}
