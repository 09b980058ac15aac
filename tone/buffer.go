package tone

// Buffer is an immutable stereo tone. Callers must not modify the slices
// returned by Left and Right.
type Buffer struct {
	left       []float32
	right      []float32
	sampleRate int
	freq       float64
	timbre     Timbre
	note       NoteID
	hasNote    bool
}

// NewBuffer wraps existing channel data. The slices are copied.
func NewBuffer(left, right []float32, sampleRate int) (*Buffer, error) {
	if len(left) != len(right) {
		return nil, ErrChannelLengths
	}
	b := &Buffer{
		left:       make([]float32, len(left)),
		right:      make([]float32, len(right)),
		sampleRate: sampleRate,
	}
	copy(b.left, left)
	copy(b.right, right)
	return b, nil
}

func (b *Buffer) Left() []float32    { return b.left }
func (b *Buffer) Right() []float32   { return b.right }
func (b *Buffer) Frames() int        { return len(b.left) }
func (b *Buffer) SampleRate() int    { return b.sampleRate }
func (b *Buffer) Frequency() float64 { return b.freq }
func (b *Buffer) Timbre() Timbre     { return b.timbre }

// Note returns the keyboard note the buffer was rendered for, if any.
func (b *Buffer) Note() (NoteID, bool) {
	return b.note, b.hasNote
}

// Duration in seconds.
func (b *Buffer) Duration() float64 {
	if b.sampleRate <= 0 {
		return 0
	}
	return float64(len(b.left)) / float64(b.sampleRate)
}

// Interleaved returns a fresh L/R interleaved copy.
func (b *Buffer) Interleaved() []float32 {
	out := make([]float32, len(b.left)*2)
	for i := range b.left {
		out[i*2] = b.left[i]
		out[i*2+1] = b.right[i]
	}
	return out
}

// Mono returns the channel average.
func (b *Buffer) Mono() []float32 {
	out := make([]float32, len(b.left))
	for i := range b.left {
		out[i] = 0.5 * (b.left[i] + b.right[i])
	}
	return out
}

// Peak is the largest absolute sample over both channels.
func (b *Buffer) Peak() float32 {
	var peak float32
	for i := range b.left {
		if v := abs32(b.left[i]); v > peak {
			peak = v
		}
		if v := abs32(b.right[i]); v > peak {
			peak = v
		}
	}
	return peak
}

// Equal reports whether both buffers hold bit-identical samples.
func (b *Buffer) Equal(o *Buffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	if len(b.left) != len(o.left) || b.sampleRate != o.sampleRate {
		return false
	}
	for i := range b.left {
		if b.left[i] != o.left[i] || b.right[i] != o.right[i] {
			return false
		}
	}
	return true
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
