package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWordEncoding(t *testing.T) {
	words := []uint32{0, 1, 0xdeadbeef}
	data := Uint32sToBytes(words)
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 0, 0, 0, 0xef, 0xbe, 0xad, 0xde}, data)
	assert.Equal(t, words, BytesToUint32s(data))
	assert.Equal(t, []uint32{1}, BytesToUint32s([]byte{1, 0, 0, 0, 7}), "trailing bytes are ignored")

	floats := Float32sToBytes(1, -2.5)
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f, 0, 0, 0x20, 0xc0}, floats)
	assert.Equal(t, []float32{1, -2.5}, BytesToFloat32s(floats))
}

func TestCeilDiv(t *testing.T) {
	tests := []struct {
		n, d, want uint32
	}{
		{0, 8, 0},
		{1, 8, 1},
		{8, 8, 1},
		{9, 8, 2},
		{64, 8, 8},
		{5, 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CeilDiv(tt.n, tt.d), "CeilDiv(%d, %d)", tt.n, tt.d)
	}
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
	assert.Equal(t, 3, Coalesce(3))
}
