// Package lpf is a moving-average low-pass filter over a fixed ring of
// integer samples.
package lpf

// MaxSize is the largest window a Filter will hold.
const MaxSize = 512

type Filter struct {
	buf  [MaxSize]uint32
	sum  uint32
	size int
	i    int
}

// Init primes the whole window with initial. A size above MaxSize is clamped
// to MaxSize; a size below 1 is treated as 1.
func (f *Filter) Init(initial uint32, size int) {
	if size > MaxSize {
		size = MaxSize
	}
	if size < 1 {
		size = 1
	}
	f.size = size
	f.i = 0
	for j := 0; j < size; j++ {
		f.buf[j] = initial
	}
	f.sum = initial * uint32(size)
}

// Update replaces the oldest sample with x and returns the truncated mean of
// the window.
func (f *Filter) Update(x uint32) uint32 {
	f.sum = f.sum - f.buf[f.i] + x
	f.buf[f.i] = x
	f.i++
	if f.i >= f.size {
		f.i = 0
	}
	return f.sum / uint32(f.size)
}

func (f *Filter) Size() int {
	return f.size
}

// Noise returns the integer standard deviation of the samples in the window.
func (f *Filter) Noise() uint32 {
	if f.size < 2 {
		return 0
	}
	mean := int64(f.sum / uint32(f.size))
	var sumSq uint64
	for j := 0; j < f.size; j++ {
		d := int64(f.buf[j]) - mean
		sumSq += uint64(d * d)
	}
	return isqrt(sumSq / uint64(f.size-1))
}

func isqrt(s uint64) uint32 {
	if s < 2 {
		return uint32(s)
	}
	x := s
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + s/x) / 2
	}
	return uint32(x)
}
