package engine

import (
	"encoding/binary"
	"sync"
)

// bytesPerFrame is 16-bit signed little-endian stereo.
const bytesPerFrame = 4

// Stream implements io.Reader over a Renderer for an audio player. It keeps
// rendering until stopped and then returns silence.
type Stream struct {
	renderer    *Renderer
	left, right []float32
	stopped     bool
	mu          sync.Mutex
}

// NewStream wraps r.
func NewStream(r *Renderer) *Stream {
	return &Stream{renderer: r}
}

// Read implements io.Reader. It always fills whole frames.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := len(p) / bytesPerFrame
	if frames == 0 {
		return 0, nil
	}
	size := frames * bytesPerFrame

	if s.stopped || s.renderer == nil {
		clear(p[:size])
		return size, nil
	}

	if cap(s.left) < frames {
		s.left = make([]float32, frames)
		s.right = make([]float32, frames)
	}
	left := s.left[:frames]
	right := s.right[:frames]
	s.renderer.Render(left, right)

	for i := range frames {
		l := int16(clamp(left[i], -1, 1) * 32767)
		r := int16(clamp(right[i], -1, 1) * 32767)
		binary.LittleEndian.PutUint16(p[i*4:], uint16(l))
		binary.LittleEndian.PutUint16(p[i*4+2:], uint16(r))
	}
	return size, nil
}

// Stop makes subsequent reads return silence.
func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}
