package transport

import (
	"github.com/OCAP2/dogfight/internal/projectile"
	"github.com/OCAP2/dogfight/internal/sim"
	"github.com/OCAP2/dogfight/internal/vecmath"
	"github.com/OCAP2/dogfight/pkg/streaming"
)

func vec3(v vecmath.Vec3) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }
func quat(q vecmath.Quat) [4]float64 { return [4]float64{q.X, q.Y, q.Z, q.W} }

// snapshotMsg flattens a world snapshot for the wire. Events travel
// separately as event frames.
func snapshotMsg(s sim.Snapshot) streaming.SnapshotMsg {
	msg := streaming.SnapshotMsg{
		Tick:        s.Tick,
		Time:        s.Time.UnixMilli(),
		Aircraft:    make([]streaming.AircraftMsg, 0, len(s.Aircraft)),
		Projectiles: make([]streaming.ProjectileMsg, 0, len(s.Projectiles)),
	}
	for _, a := range s.Aircraft {
		st := a.State
		msg.Aircraft = append(msg.Aircraft, streaming.AircraftMsg{
			ID:             uint64(a.ID),
			Callsign:       a.Callsign,
			Team:           a.Team,
			InputOwner:     int32(a.Owners.Input),
			StateOwner:     int32(a.Owners.State),
			Pilot:          int32(a.Pilot),
			Position:       vec3(st.Position),
			Rotation:       quat(st.Rotation),
			Velocity:       vec3(st.Velocity),
			Throttle:       st.Throttle,
			Health:         st.Health,
			MaxHealth:      st.MaxHealth,
			Flaps:          st.Flaps,
			Dead:           st.Dead,
			Crashed:        st.Crashed,
			DamageEffect:   st.DamageEffect,
			DeathEffect:    st.DeathEffect,
			Lock:           st.Lock.String(),
			Target:         uint64(st.Target),
			TargetDistance: a.TargetDistance,
			Incoming:       uint64(a.Incoming),
		})
	}
	for _, p := range s.Projectiles {
		msg.Projectiles = append(msg.Projectiles, streaming.ProjectileMsg{
			ID:       uint64(p.ID),
			Kind:     p.Kind.String(),
			Owner:    uint64(p.Owner),
			Target:   uint64(p.Target),
			Position: vec3(p.Position),
			Rotation: quat(p.Rotation),
			Velocity: vec3(p.Velocity),
			Exploded: p.Exploded,
		})
	}
	return msg
}

func damageMsg(d projectile.Damage) streaming.DamageMsg {
	return streaming.DamageMsg{
		Victim:     uint64(d.Victim),
		Source:     uint64(d.Source),
		Projectile: uint64(d.Projectile),
		Amount:     d.Amount,
		Cause:      string(d.Cause),
		Point:      vec3(d.Point),
	}
}
