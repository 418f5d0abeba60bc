package renderer

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// SurfaceSource is anything that can describe a presentation surface and report its size in pixels.
// window.Window satisfies it.
type SurfaceSource interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// HeadlessSurface is an off-screen SurfaceSource for the software backend. It never yields a
// platform descriptor and can be told to refuse frames to exercise transient surface loss.
type HeadlessSurface struct {
	mu       sync.Mutex
	width    int
	height   int
	failNext int
	acquired int
}

// NewHeadlessSurface creates an off-screen surface of the given size.
func NewHeadlessSurface(width, height int) *HeadlessSurface {
	return &HeadlessSurface{width: width, height: height}
}

func (s *HeadlessSurface) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return nil
}

func (s *HeadlessSurface) Width() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width
}

func (s *HeadlessSurface) Height() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height
}

// Resize changes the reported size.
func (s *HeadlessSurface) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
}

// FailNext makes the next n frame acquisitions fail with ErrSurfaceUnavailable.
func (s *HeadlessSurface) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// Acquired returns the number of frames successfully acquired so far.
func (s *HeadlessSurface) Acquired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquired
}

func (s *HeadlessSurface) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext > 0 {
		s.failNext--
		return ErrSurfaceUnavailable
	}
	if s.width <= 0 || s.height <= 0 {
		return ErrSurfaceUnavailable
	}
	s.acquired++
	return nil
}
