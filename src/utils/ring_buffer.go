package utils

import (
	"candle-relay/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of candles.
// Appending to a full buffer overwrites the oldest element.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     []models.MCandle
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 800
	}

	return &RingBuffer{
		data:     make([]models.MCandle, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds a candle, evicting the oldest one when full
func (rb *RingBuffer) Append(c models.MCandle) {
	rb.data[rb.index] = c
	rb.index = (rb.index + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// ReplaceLast overwrites the newest element. No-op on an empty buffer.
func (rb *RingBuffer) ReplaceLast(c models.MCandle) bool {
	if rb.size == 0 {
		return false
	}
	rb.data[(rb.index-1+rb.capacity)%rb.capacity] = c
	return true
}

// -----------------------------------------------------------------------------

// Last returns a copy of the newest element
func (rb *RingBuffer) Last() (models.MCandle, bool) {
	if rb.size == 0 {
		return models.MCandle{}, false
	}
	return rb.data[(rb.index-1+rb.capacity)%rb.capacity], true
}

// -----------------------------------------------------------------------------

// GetLatest returns the n newest records, oldest first
func (rb *RingBuffer) GetLatest(n int) []models.MCandle {
	if rb.size == 0 || n <= 0 {
		return []models.MCandle{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MCandle, count)
	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all data in insertion order (oldest to newest)
func (rb *RingBuffer) GetAll() []models.MCandle {
	return rb.GetLatest(rb.size)
}

// -----------------------------------------------------------------------------

// Reset replaces the contents with candles, keeping the newest ones if the
// slice is larger than the capacity.
func (rb *RingBuffer) Reset(candles []models.MCandle) {
	if len(candles) > rb.capacity {
		candles = candles[len(candles)-rb.capacity:]
	}

	rb.Clear()
	for _, c := range candles {
		rb.Append(c)
	}
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// Resize changes the capacity of the buffer
// If newCapacity < size, oldest data is dropped
func (rb *RingBuffer) Resize(newCapacity int) {
	if newCapacity <= 0 || newCapacity == rb.capacity {
		return
	}

	kept := rb.GetLatest(newCapacity)

	rb.data = make([]models.MCandle, newCapacity)
	rb.capacity = newCapacity
	copy(rb.data, kept)
	rb.size = len(kept)
	rb.index = rb.size % newCapacity
}

// -----------------------------------------------------------------------------

// IsFull returns whether buffer is full
func (rb *RingBuffer) IsFull() bool {
	return rb.size == rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *RingBuffer) Clear() {
	rb.index = 0
	rb.size = 0
	for i := range rb.data {
		rb.data[i] = models.MCandle{}
	}
}
