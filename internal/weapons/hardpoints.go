package weapons

// Hardpoints manages missile rails: a reload timer per rail, a global
// debounce and a rotating start index.
type Hardpoints struct {
	mounts   int
	reload   []float64
	debounce float64
	index    int

	reloadTime   float64
	debounceTime float64
}

func NewHardpoints(count int, reloadTime, debounceTime float64) *Hardpoints {
	return &Hardpoints{
		mounts:       count,
		reload:       make([]float64, count),
		reloadTime:   reloadTime,
		debounceTime: debounceTime,
	}
}

func (h *Hardpoints) Cooldown(dt float64) {
	h.debounce = countdown(h.debounce, dt)
	for i := range h.reload {
		h.reload[i] = countdown(h.reload[i], dt)
	}
}

// TryFire picks the first ready rail starting at the rotating index and arms
// its reload and the global debounce.
func (h *Hardpoints) TryFire() (int, bool) {
	for i := 0; i < h.mounts; i++ {
		idx := (h.index + i) % h.mounts
		if h.debounce == 0 && h.reload[idx] == 0 {
			h.index = (idx + 1) % h.mounts
			h.reload[idx] = h.reloadTime
			h.debounce = h.debounceTime
			return idx, true
		}
	}
	return -1, false
}

// Ready reports which rails currently hold a missile.
func (h *Hardpoints) Ready() []bool {
	out := make([]bool, h.mounts)
	for i, r := range h.reload {
		out[i] = r == 0
	}
	return out
}

func (h *Hardpoints) ReloadTimers() []float64 {
	return append([]float64(nil), h.reload...)
}

func (h *Hardpoints) Count() int { return h.mounts }
