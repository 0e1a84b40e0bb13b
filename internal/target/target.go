// Package target tracks the missiles homing on an actor.
package target

import (
	"sort"

	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/vecmath"
)

// SortInterval is how often the incoming list is re-ordered by distance.
const SortInterval = 0.5

// timerEpsilon absorbs float drift when a countdown is stepped by a fixed dt.
const timerEpsilon = 1e-9

// Body is the kinematic source a Record reads from. A Record without a body
// reports the zero position and velocity.
type Body interface {
	Pos() vecmath.Vec3
	Vel() vecmath.Vec3
}

// Locator resolves a missile handle to its current position.
type Locator func(actor.ID) (vecmath.Vec3, bool)

// Record is the tracking façade over an aircraft. It never owns the missiles
// it lists.
type Record struct {
	Name     string
	Aircraft actor.ID

	body      Body
	incoming  []actor.ID
	sortTimer float64
}

func NewRecord(name string, aircraft actor.ID, body Body) *Record {
	return &Record{Name: name, Aircraft: aircraft, body: body}
}

func (r *Record) Position() vecmath.Vec3 {
	if r.body == nil {
		return vecmath.Zero
	}
	return r.body.Pos()
}

func (r *Record) Velocity() vecmath.Vec3 {
	if r.body == nil {
		return vecmath.Zero
	}
	return r.body.Vel()
}

// NotifyMissile registers (launched=true) or deregisters a missile homing
// on this record. Registration resorts immediately.
func (r *Record) NotifyMissile(id actor.ID, launched bool, locate Locator) {
	if launched {
		for _, m := range r.incoming {
			if m == id {
				return
			}
		}
		r.incoming = append(r.incoming, id)
		r.sort(locate)
		return
	}
	for i, m := range r.incoming {
		if m == id {
			r.incoming = append(r.incoming[:i], r.incoming[i+1:]...)
			return
		}
	}
}

// Tick advances the resort timer and resorts when it reaches zero.
func (r *Record) Tick(dt float64, locate Locator) {
	r.sortTimer = max(0, r.sortTimer-dt)
	if r.sortTimer < timerEpsilon {
		r.sort(locate)
		r.sortTimer = SortInterval
	}
}

// IncomingMissile returns the nearest homing missile as of the last sort.
func (r *Record) IncomingMissile() (actor.ID, bool) {
	if len(r.incoming) == 0 {
		return actor.None, false
	}
	return r.incoming[0], true
}

// Incoming returns a copy of the homing list in its current order.
func (r *Record) Incoming() []actor.ID {
	return append([]actor.ID(nil), r.incoming...)
}

// sort orders by distance and drops handles that no longer resolve.
func (r *Record) sort(locate Locator) {
	if len(r.incoming) == 0 || locate == nil {
		return
	}
	pos := r.Position()
	dist := make(map[actor.ID]float64, len(r.incoming))
	live := r.incoming[:0]
	for _, id := range r.incoming {
		p, ok := locate(id)
		if !ok {
			continue
		}
		dist[id] = p.Dist(pos)
		live = append(live, id)
	}
	r.incoming = live
	sort.SliceStable(r.incoming, func(i, j int) bool {
		return dist[r.incoming[i]] < dist[r.incoming[j]]
	})
}
