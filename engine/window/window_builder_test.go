package window

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngineWindowDefaults(t *testing.T) {
	w, err := newEngineWindow(WithTitle(""))
	require.NoError(t, err)
	assert.Equal(t, "Oxy Life", w.title, "an empty title keeps the default")
	assert.Equal(t, 512, w.Width())
	assert.Equal(t, 512, w.Height())
	assert.Equal(t, 64, w.minWidth)
	assert.Equal(t, 64, w.minHeight)
}

func TestNewEngineWindowOptions(t *testing.T) {
	w, err := newEngineWindow(
		WithTitle("Life"),
		WithSize(300, 200),
		WithMinSize(256, 256),
	)
	require.NoError(t, err)
	assert.Equal(t, "Life", w.title)
	assert.Equal(t, 300, w.Width())
	assert.Equal(t, 256, w.Height(), "the initial size is raised to the minimum")

	w, err = newEngineWindow(WithSize(100, 100), WithMinSize(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 100, w.Width())
	assert.Equal(t, 0, w.minWidth)
}

func TestNewEngineWindowRejectsBadSizes(t *testing.T) {
	tests := []struct {
		name string
		opt  WindowBuilderOption
	}{
		{"zero width", WithSize(0, 100)},
		{"negative height", WithSize(100, -1)},
		{"negative minimum", WithMinSize(-1, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newEngineWindow(tt.opt)
			assert.Error(t, err)
		})
	}
}

func TestSizeLimit(t *testing.T) {
	assert.Equal(t, 64, sizeLimit(64))
	assert.NotEqual(t, 0, sizeLimit(0), "zero maps to the platform's unbounded value")
}
