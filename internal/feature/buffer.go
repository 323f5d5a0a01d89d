package feature

// Buffer is a bounded FIFO of feature vectors for the sequence mode.
// When full, pushing evicts the oldest frame. It is owned by a single
// pipeline instance and is not safe for concurrent use.
type Buffer struct {
	frames   [][]float64
	capacity int
}

// NewBuffer creates a Buffer holding at most capacity frames.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		frames:   make([][]float64, 0, capacity),
		capacity: capacity,
	}
}

// Push appends a frame, evicting the oldest when the buffer is full.
func (b *Buffer) Push(frame []float64) {
	if len(b.frames) >= b.capacity {
		copy(b.frames, b.frames[1:])
		b.frames = b.frames[:b.capacity-1]
	}
	b.frames = append(b.frames, frame)
}

// Len returns the number of buffered frames.
func (b *Buffer) Len() int {
	return len(b.frames)
}

// Full reports whether the buffer has reached capacity.
func (b *Buffer) Full() bool {
	return len(b.frames) == b.capacity
}

// Frames returns a copy of the buffered frames, oldest first. The frame
// slices themselves are shared; callers must not mutate them.
func (b *Buffer) Frames() [][]float64 {
	out := make([][]float64, len(b.frames))
	copy(out, b.frames)
	return out
}

// Reset discards all buffered frames.
func (b *Buffer) Reset() {
	b.frames = b.frames[:0]
}
