package service

import (
	"errors"
	"sync"
)

// History represents a bounded record of the most recent forecasts of a
// target. At capacity the oldest entry is overwritten.
type History struct {
	data  []*Forecast
	start int
	count int
	mtx   sync.RWMutex
}

// NewHistory initializes a new forecast history.
func NewHistory(size int) (*History, error) {
	if size < 0 {
		return nil, errors.New("history size cannot be negative")
	}
	if size == 0 {
		return nil, errors.New("history size cannot be zero")
	}

	return &History{data: make([]*Forecast, size)}, nil
}

// Update adds the provided forecast to the history.
func (h *History) Update(f *Forecast) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	size := len(h.data)
	end := (h.start + h.count) % size
	h.data[end] = f

	if h.count == size {
		h.start = (h.start + 1) % size
		return
	}
	h.count++
}

// Last returns the most recent forecast.
func (h *History) Last() *Forecast {
	h.mtx.RLock()
	defer h.mtx.RUnlock()

	if h.count == 0 {
		return nil
	}

	return h.data[(h.start+h.count-1)%len(h.data)]
}

// LastN returns up to the n most recent forecasts, oldest first.
func (h *History) LastN(n int) []*Forecast {
	if n <= 0 {
		return nil
	}

	h.mtx.RLock()
	defer h.mtx.RUnlock()

	size := len(h.data)
	n = min(n, h.count)
	set := make([]*Forecast, n)
	first := (h.start + h.count - n + size) % size
	for i := range n {
		set[i] = h.data[(first+i)%size]
	}

	return set
}

// Len returns the number of recorded forecasts.
func (h *History) Len() int {
	h.mtx.RLock()
	defer h.mtx.RUnlock()

	return h.count
}
