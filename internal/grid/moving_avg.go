package grid

import "iter"

// Number is the set of types MovingAvg can average.
type Number interface {
	~int | ~int32 | ~int64 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// MovingAvg yields the average of every full window of size window in seq.
// A sequence of n values yields n-window+1 averages; a window <= 0 or larger
// than the sequence yields nothing.
func MovingAvg[T Number](seq iter.Seq[T], window int) iter.Seq[T] {
	return func(yield func(T) bool) {
		if window <= 0 {
			return
		}

		buf := make([]T, window)
		var sum T
		n := 0

		for v := range seq {
			slot := n % window
			if n >= window {
				sum -= buf[slot]
			}
			buf[slot] = v
			sum += v
			n++

			if n >= window && !yield(sum/T(window)) {
				return
			}
		}
	}
}

// MovingAverage is the streaming form of MovingAvg for values that arrive one
// at a time, such as the distance of a single zone from frame to frame.
type MovingAverage struct {
	buf  []float64
	sum  float64
	n    int
	size int
}

// NewMovingAverage creates a MovingAverage over window values. A window < 1 is
// treated as 1, which passes values through unchanged.
func NewMovingAverage(window int) *MovingAverage {
	if window < 1 {
		window = 1
	}
	return &MovingAverage{
		buf:  make([]float64, window),
		size: window,
	}
}

// Add pushes v and returns the average of the last window values, or of all
// values seen so far while the window is still filling.
func (a *MovingAverage) Add(v float64) float64 {
	slot := a.n % a.size
	if a.n >= a.size {
		a.sum -= a.buf[slot]
	}
	a.buf[slot] = v
	a.sum += v
	a.n++

	return a.sum / float64(a.Len())
}

// Len returns the number of values currently in the window.
func (a *MovingAverage) Len() int {
	return min(a.n, a.size)
}

// Full reports whether the window holds window values.
func (a *MovingAverage) Full() bool {
	return a.n >= a.size
}

// Reset drops all values.
func (a *MovingAverage) Reset() {
	clear(a.buf)
	a.sum = 0
	a.n = 0
}
