package synth

// Handle identifies a voice in the registry. A handle goes stale once its
// voice is released; stale handles are ignored everywhere.
type Handle struct {
	index uint32
	gen   uint32
}

type voiceSlot struct {
	voice Voice
	gen   uint32
	live  bool
	dense int // position in registry.active while live
}

// registry is an arena of voice slots with a free list. Live slots are also
// listed in a dense slice so mixing and StopAll touch only active voices.
// It is not safe for concurrent use; OutputContext guards it.
type registry struct {
	slots  []voiceSlot
	free   []uint32
	active []uint32
}

func newRegistry(capacity int) *registry {
	return &registry{
		slots:  make([]voiceSlot, 0, capacity),
		free:   make([]uint32, 0, capacity),
		active: make([]uint32, 0, capacity),
	}
}

// Acquire stores v in a free slot and returns its handle.
func (r *registry) Acquire(v Voice) Handle {
	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, voiceSlot{})
	}
	s := &r.slots[idx]
	s.voice = v
	s.live = true
	s.dense = len(r.active)
	r.active = append(r.active, idx)
	return Handle{index: idx, gen: s.gen}
}

// Release frees the voice behind h using swap-and-pop on the active list.
// It returns false for stale or unknown handles.
func (r *registry) Release(h Handle) bool {
	if int(h.index) >= len(r.slots) {
		return false
	}
	s := &r.slots[h.index]
	if !s.live || s.gen != h.gen {
		return false
	}
	last := len(r.active) - 1
	moved := r.active[last]
	r.active[s.dense] = moved
	r.slots[moved].dense = s.dense
	r.active = r.active[:last]

	s.live = false
	s.gen++
	s.voice = Voice{}
	r.free = append(r.free, h.index)
	return true
}

// Get returns a copy of the voice behind h.
func (r *registry) Get(h Handle) (Voice, bool) {
	if int(h.index) >= len(r.slots) {
		return Voice{}, false
	}
	s := &r.slots[h.index]
	if !s.live || s.gen != h.gen {
		return Voice{}, false
	}
	return s.voice, true
}

// Each calls fn for every live voice. Iteration runs from the back of the
// active list, so fn may release the voice it is given.
func (r *registry) Each(fn func(h Handle, v *Voice)) {
	for i := len(r.active) - 1; i >= 0; i-- {
		if i >= len(r.active) {
			continue
		}
		idx := r.active[i]
		s := &r.slots[idx]
		fn(Handle{index: idx, gen: s.gen}, &s.voice)
	}
}

// Clear releases every live voice in one pass and returns how many there were.
func (r *registry) Clear() int {
	n := len(r.active)
	for _, idx := range r.active {
		s := &r.slots[idx]
		s.live = false
		s.gen++
		s.voice = Voice{}
		r.free = append(r.free, idx)
	}
	r.active = r.active[:0]
	return n
}

// Len returns the number of live voices.
func (r *registry) Len() int {
	return len(r.active)
}
