package analysis

import "github.com/san-kum/pose-analyzer/server/models"

// DefaultHistoryCapacity is used when a History is constructed with a
// non-positive capacity.
const DefaultHistoryCapacity = 300

// History is the bounded FIFO buffer of the most recent frame features.
// Insertion order is arrival order; once capacity is exceeded the oldest
// entry is evicted. History is not goroutine-safe: the owning session
// controller serializes all access.
type History struct {
	frames   []*models.FrameFeatures
	capacity int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{
		frames:   make([]*models.FrameFeatures, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a frame to the tail, evicting the head when the buffer is
// full. At most one eviction happens per append.
func (h *History) Append(f *models.FrameFeatures) {
	h.frames = append(h.frames, f)
	if len(h.frames) > h.capacity {
		h.frames = h.frames[1:]
	}
}

// Clear empties the buffer; used on session reset.
func (h *History) Clear() {
	h.frames = h.frames[:0]
}

func (h *History) Len() int {
	return len(h.frames)
}

func (h *History) Capacity() int {
	return h.capacity
}

// Recent returns the last n entries in arrival order, or fewer if the buffer
// is shorter. It never fails for n exceeding the length.
func (h *History) Recent(n int) []*models.FrameFeatures {
	if n <= 0 {
		return nil
	}
	if n > len(h.frames) {
		n = len(h.frames)
	}
	out := make([]*models.FrameFeatures, n)
	copy(out, h.frames[len(h.frames)-n:])
	return out
}

// Snapshot returns a copy of the full buffer in arrival order. Entries are
// shared, which is safe because frame features are immutable once produced.
func (h *History) Snapshot() []*models.FrameFeatures {
	out := make([]*models.FrameFeatures, len(h.frames))
	copy(out, h.frames)
	return out
}
