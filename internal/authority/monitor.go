package authority

import "time"

// DefaultGrace absorbs transient desync while an authority handover settles.
const DefaultGrace = 3 * time.Second

// Monitor watches one actor for the input-without-state violation. It is a
// countdown re-armed on every consistent observation.
type Monitor struct {
	grace   float64
	elapsed float64
}

func NewMonitor(grace time.Duration) *Monitor {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Monitor{grace: grace.Seconds()}
}

// Observe advances the monitor by dt seconds. It returns true once the
// violation has been sustained for the grace window, and re-arms.
func (m *Monitor) Observe(t Tag, dt float64) bool {
	if t.Consistent() {
		m.elapsed = 0
		return false
	}
	m.elapsed += dt
	if m.elapsed >= m.grace-1e-9 {
		m.elapsed = 0
		return true
	}
	return false
}

// Elapsed is the current violation duration in seconds.
func (m *Monitor) Elapsed() float64 { return m.elapsed }
