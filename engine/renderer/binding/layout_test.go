package binding

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLayout() Layout {
	return NewLayout("test",
		Slot{Binding: 2, Name: "out", Kind: wgpu.BufferBindingTypeStorage, Visibility: wgpu.ShaderStageCompute},
		Slot{Binding: 0, Name: "uniform", Kind: wgpu.BufferBindingTypeUniform, Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageCompute},
		Slot{Binding: 1, Name: "in", Kind: wgpu.BufferBindingTypeReadOnlyStorage, Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageCompute},
	)
}

func TestNewLayoutSortsSlots(t *testing.T) {
	l := testLayout()
	require.Len(t, l.Slots, 3)
	for i, s := range l.Slots {
		assert.Equal(t, uint32(i), s.Binding)
	}

	d := l.Descriptor()
	assert.Equal(t, "test", d.Label)
	require.Len(t, d.Entries, 3)
	assert.Equal(t, wgpu.BufferBindingTypeStorage, d.Entries[2].Buffer.Type)
	assert.Equal(t, wgpu.ShaderStageCompute, d.Entries[2].Visibility)
}

func TestVisible(t *testing.T) {
	l := testLayout()
	assert.Len(t, l.Visible(wgpu.ShaderStageCompute), 3)
	assert.Len(t, l.Visible(wgpu.ShaderStageVertex), 2)
	assert.Empty(t, l.Visible(wgpu.ShaderStageFragment))
}

func TestCheck(t *testing.T) {
	l := testLayout()
	entry := func(b uint32, kind wgpu.BufferBindingType) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{Binding: b, Buffer: wgpu.BufferBindingLayout{Type: kind}}
	}

	tests := []struct {
		name    string
		stage   wgpu.ShaderStage
		entries []wgpu.BindGroupLayoutEntry
		wantErr bool
	}{
		{"compute uses all", wgpu.ShaderStageCompute, []wgpu.BindGroupLayoutEntry{entry(0, wgpu.BufferBindingTypeUniform), entry(1, wgpu.BufferBindingTypeReadOnlyStorage), entry(2, wgpu.BufferBindingTypeStorage)}, false},
		{"vertex subset", wgpu.ShaderStageVertex, []wgpu.BindGroupLayoutEntry{entry(0, wgpu.BufferBindingTypeUniform), entry(1, wgpu.BufferBindingTypeReadOnlyStorage)}, false},
		{"vertex writes", wgpu.ShaderStageVertex, []wgpu.BindGroupLayoutEntry{entry(2, wgpu.BufferBindingTypeStorage)}, true},
		{"wrong kind", wgpu.ShaderStageCompute, []wgpu.BindGroupLayoutEntry{entry(1, wgpu.BufferBindingTypeStorage)}, true},
		{"unknown binding", wgpu.ShaderStageCompute, []wgpu.BindGroupLayoutEntry{entry(5, wgpu.BufferBindingTypeUniform)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Check(tt.stage, wgpu.BindGroupLayoutDescriptor{Entries: tt.entries})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrLayoutMismatch)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
