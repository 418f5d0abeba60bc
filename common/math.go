package common

import (
	"encoding/binary"
	"math"
)

// Uint32sToBytes encodes values as little-endian u32 words, the layout WGSL uses for array<u32>.
// The result is a copy and independent of host byte order.
//
// Parameters:
//   - values: the words to encode
//
// Returns:
//   - []byte: a new slice of len(values)*4 bytes
func Uint32sToBytes(values []uint32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

// BytesToUint32s decodes little-endian u32 words. Trailing bytes that do not fill a word are ignored.
//
// Parameters:
//   - data: the raw buffer contents
//
// Returns:
//   - []uint32: the decoded words
func BytesToUint32s(data []byte) []uint32 {
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out
}

// Float32sToBytes encodes values as little-endian IEEE-754 f32 words.
//
// Parameters:
//   - values: the floats to encode
//
// Returns:
//   - []byte: a new slice of len(values)*4 bytes
func Float32sToBytes(values ...float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// BytesToFloat32s decodes little-endian f32 words.
//
// Parameters:
//   - data: the raw buffer contents
//
// Returns:
//   - []float32: the decoded floats
func BytesToFloat32s(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}
