package sim

import (
	"math"

	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/authority"
)

const timerEpsilon = 1e-9

// updateTargets gives every piloted aircraft this replica owns the nearest
// live aircraft as its target. Dead or despawned targets are cleared and
// the search retries at the configured interval while unassigned.
func (w *World) updateTargets() {
	retry := w.opts.TargetRetry.Seconds()
	for _, id := range w.aircraft.IDs() {
		e, _ := w.aircraft.Get(id)
		ac := e.ac
		if !ac.Tag().HasState() || e.owners.Input == authority.Nobody || ac.Dead() {
			continue
		}

		if cur := ac.Target(); cur.Valid() {
			if t, ok := w.aircraft.Get(cur); ok && !t.ac.Dead() {
				continue
			}
			_ = ac.SetTarget(actor.None)
			e.retarget = 0
		}

		e.retarget -= w.dt
		if e.retarget > timerEpsilon {
			continue
		}
		e.retarget = retry

		next := w.nearest(id)
		if !next.Valid() {
			continue
		}
		if err := ac.SetTarget(next); err != nil {
			w.actorLog(id, ac.Callsign).Warn("target not assigned", "error", err)
			continue
		}
		w.actorLog(id, ac.Callsign).Debug("target assigned", "target", next.String())
	}
}

// nearest returns the closest live aircraft other than self.
func (w *World) nearest(self actor.ID) actor.ID {
	e, ok := w.aircraft.Get(self)
	if !ok || e.ac.Body() == nil {
		return actor.None
	}
	from := e.ac.Body().Position

	best, bestDist := actor.None, math.Inf(1)
	for _, id := range w.aircraft.IDs() {
		if id == self {
			continue
		}
		o, _ := w.aircraft.Get(id)
		if o.ac.Dead() || o.ac.Body() == nil {
			continue
		}
		if d := o.ac.Body().Position.Dist(from); d < bestDist {
			best, bestDist = id, d
		}
	}
	return best
}
