package gpu

import "errors"

// UniformSlot is the dynamic offset alignment wgpu guarantees.
const UniformSlot = 256

var ErrRingFull = errors.New("gpu: uniform ring full")

// uniformRing hands out 256-byte slots of one buffer for the current frame.
type uniformRing struct {
	slots int
	head  int
}

func (r *uniformRing) reset() { r.head = 0 }

// alloc returns the byte offset of the next slot.
func (r *uniformRing) alloc() (uint32, error) {
	if r.head >= r.slots {
		return 0, ErrRingFull
	}
	off := uint32(r.head * UniformSlot)
	r.head++
	return off, nil
}

func (r *uniformRing) size() uint64 { return uint64(r.slots * UniformSlot) }
