package sim

import (
	"fmt"
	"slices"

	"github.com/OCAP2/dogfight/internal/actor"
	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/flight"
	"github.com/OCAP2/dogfight/internal/physics"
	"github.com/OCAP2/dogfight/internal/projectile"
	"github.com/OCAP2/dogfight/internal/target"
	"github.com/OCAP2/dogfight/internal/vecmath"
	"github.com/OCAP2/dogfight/internal/weapons"
	"github.com/OCAP2/dogfight/pkg/core"
)

const (
	TeamA = "A"
	TeamB = "B"
)

// missileRadius is the collider radius of a missile body.
const missileRadius = 0.5

// SpawnPoint is a team spawn pose. Heading is in degrees.
type SpawnPoint struct {
	Position vecmath.Vec3
	Heading  float64
}

// Bot is a host-driven aircraft spawned with the match.
type Bot struct {
	Callsign string
	Team     string
	Profile  string
}

// ProfileSource resolves an aircraft profile by name.
type ProfileSource func(name string) (flight.Profile, error)

func defaultProfiles(name string) (flight.Profile, error) {
	p := flight.DefaultProfile()
	if name != "" {
		p.Name = name
	}
	return p, nil
}

// TeamOf assigns participants to teams by ID parity.
func TeamOf(p authority.Participant) string {
	if p%2 == 0 {
		return TeamA
	}
	return TeamB
}

// AircraftSpec describes an aircraft to spawn.
type AircraftSpec struct {
	Callsign string
	Team     string
	Profile  flight.Profile
	Position vecmath.Vec3
	Rotation vecmath.Quat
	Owners   authority.Owners
	Pilot    authority.Participant
	Bot      bool
}

// SpawnAircraft adds an aircraft to the world and returns its handle.
func (w *World) SpawnAircraft(spec AircraftSpec) actor.ID {
	id := w.ids.Next()
	body := physics.NewBody(spec.Position, spec.Rotation, spec.Profile.Mass)
	ac := flight.New(id, spec.Callsign, spec.Profile, body, spec.Owners.TagFor(w.opts.Local), w.rng)
	ac.Team = spec.Team

	e := &aircraftEntry{
		ac:      ac,
		owners:  spec.Owners,
		monitor: authority.NewMonitor(w.opts.Grace),
		record:  target.NewRecord(spec.Callsign, id, ac),
		profile: spec.Profile.Name,
		pilot:   spec.Pilot,
		bot:     spec.Bot,
		joined:  w.tick,
	}
	w.aircraft.Put(id, e)
	w.space.Add(&physics.Collider{
		ID:     id,
		Layer:  physics.LayerAircraft,
		Radius: spec.Profile.ColliderRadius,
		Body:   body,
	})

	w.actorLog(id, spec.Callsign).Info("aircraft spawned",
		"team", spec.Team, "profile", spec.Profile.Name,
		"input", spec.Owners.Input.String(), "state", spec.Owners.State.String())
	w.emit(core.AircraftAdded{Aircraft: core.Aircraft{
		ID:         uint64(id),
		JoinTime:   w.now(),
		JoinTick:   w.tick,
		Callsign:   spec.Callsign,
		Profile:    spec.Profile.Name,
		Team:       spec.Team,
		InputOwner: int32(spec.Owners.Input),
		StateOwner: int32(spec.Owners.State),
		Bot:        spec.Bot,
	}})
	return id
}

// spawnPilot places a participant's aircraft at the next spawn point of
// its team.
func (w *World) spawnPilot(p authority.Participant, callsign string) (actor.ID, string, error) {
	team := TeamOf(p)
	prof, err := w.opts.Profiles("default")
	if err != nil {
		return actor.None, team, fmt.Errorf("join %s: %w", p, err)
	}
	if callsign == "" {
		callsign = fmt.Sprintf("pilot-%d", p)
	}
	pos, rot := w.nextSpawn(team)
	id := w.SpawnAircraft(AircraftSpec{
		Callsign: callsign,
		Team:     team,
		Profile:  prof,
		Position: pos,
		Rotation: rot,
		Owners:   authority.Bound(authority.Host),
		Pilot:    p,
	})
	return id, team, nil
}

// SpawnBots spawns the configured bots. Only the server does this.
func (w *World) SpawnBots() error {
	for _, b := range w.opts.Bots {
		prof, err := w.opts.Profiles(b.Profile)
		if err != nil {
			return fmt.Errorf("bot %s: %w", b.Callsign, err)
		}
		pos, rot := w.nextSpawn(b.Team)
		w.SpawnAircraft(AircraftSpec{
			Callsign: b.Callsign,
			Team:     b.Team,
			Profile:  prof,
			Position: pos,
			Rotation: rot,
			Owners:   authority.Bound(authority.Host),
			Pilot:    authority.Host,
			Bot:      true,
		})
	}
	return nil
}

func (w *World) nextSpawn(team string) (vecmath.Vec3, vecmath.Quat) {
	n := w.spawned[team]
	w.spawned[team] = n + 1
	points := w.opts.SpawnPoints[team]
	if len(points) == 0 {
		// spread out so fallback spawns never overlap
		x := 500.0
		if team == TeamA {
			x = -500
		}
		return vecmath.V(x, 1000, float64(n)*50), vecmath.Identity
	}
	sp := points[n%len(points)]
	return sp.Position, vecmath.Euler(0, sp.Heading, 0)
}

// SpawnBullet implements flight.Armory.
// Bullets are owned outright by the shooter's state-authoritative replica.
func (w *World) SpawnBullet(shooter *flight.Aircraft, pos vecmath.Vec3, rot vecmath.Quat) {
	owners := authority.Bound(w.ownersOf(shooter.ID).State)
	id := w.ids.Next()
	b := projectile.NewBullet(id, shooter.ID, owners.TagFor(w.opts.Local), pos, rot, w.opts.Bullet)
	w.bullets.Put(id, &bulletEntry{
		b:       b,
		owners:  owners,
		monitor: authority.NewMonitor(w.opts.Grace),
		fired:   w.tick,
	})
	w.emit(core.FiredEvent{
		Time:         w.now(),
		Tick:         w.tick,
		ShooterID:    uint64(shooter.ID),
		ProjectileID: uint64(id),
		Weapon:       "cannon",
		Hardpoint:    -1,
		Position:     pos3(pos),
		Direction:    pos3(rot.Forward()),
	})
}

// SpawnMissile implements flight.Armory. The missile is owned outright by
// the shooter's input-authoritative replica.
func (w *World) SpawnMissile(shooter *flight.Aircraft, hardpoint int, pos vecmath.Vec3, rot vecmath.Quat, tgt actor.ID) {
	owners := authority.Bound(w.ownersOf(shooter.ID).Input)
	id := w.launchMissile(shooter.ID, tgt, owners, pos, rot, w.opts.Missile)
	w.emit(core.FiredEvent{
		Time:         w.now(),
		Tick:         w.tick,
		ShooterID:    uint64(shooter.ID),
		ProjectileID: uint64(id),
		Weapon:       "missile",
		Hardpoint:    hardpoint,
		TargetID:     uint64(tgt),
		Position:     pos3(pos),
		Direction:    pos3(rot.Forward()),
	})
	w.actorLog(shooter.ID, shooter.Callsign).Debug("missile launched",
		"missile", id.String(), "target", tgt.String(), "hardpoint", hardpoint)
}

func (w *World) launchMissile(owner, tgt actor.ID, owners authority.Owners, pos vecmath.Vec3, rot vecmath.Quat, cfg projectile.MissileConfig) actor.ID {
	id := w.ids.Next()
	body := physics.NewBody(pos, rot, 1)
	w.space.Add(&physics.Collider{ID: id, Layer: physics.LayerProjectile, Radius: missileRadius, Body: body})
	m := projectile.Launch(id, owner, tgt, owners.TagFor(w.opts.Local), body, cfg)
	w.missiles.Put(id, &missileEntry{
		m:       m,
		owners:  owners,
		monitor: authority.NewMonitor(w.opts.Grace),
		fired:   w.tick,
	})
	m.Register(w)
	return id
}

// LockTarget implements flight.Armory.
func (w *World) LockTarget(id actor.ID) *weapons.LockTarget {
	e, ok := w.aircraft.Get(id)
	if !ok || e.ac.Body() == nil {
		return nil
	}
	return &weapons.LockTarget{Position: e.ac.Body().Position, Alive: !e.ac.Dead()}
}

func (w *World) ownersOf(id actor.ID) authority.Owners {
	if o, ok := w.Owners(id); ok {
		return o
	}
	return authority.Bound(w.opts.Local)
}

func (w *World) setOwners(id actor.ID, o authority.Owners) {
	tag := o.TagFor(w.opts.Local)
	if e, ok := w.aircraft.Get(id); ok {
		e.owners = o
		e.ac.SetTag(tag)
		return
	}
	if e, ok := w.bullets.Get(id); ok {
		e.owners = o
		e.b.Tag = tag
		return
	}
	if e, ok := w.missiles.Get(id); ok {
		e.owners = o
		e.m.Tag = tag
	}
}

// despawn schedules removal at the end of the tick.
func (w *World) despawn(id actor.ID) {
	if !slices.Contains(w.pending, id) {
		w.pending = append(w.pending, id)
	}
}

func (w *World) flushDespawns() {
	for _, id := range w.pending {
		w.space.Remove(id)
		if w.aircraft.Delete(id) {
			continue
		}
		if e, ok := w.bullets.Get(id); ok {
			w.bullets.Delete(id)
			w.emitProjectile(e.b.Summary(), e.fired)
			continue
		}
		if e, ok := w.missiles.Get(id); ok {
			w.missiles.Delete(id)
			if e.m.Target.Valid() {
				if rec, ok := w.TargetRecord(e.m.Target); ok {
					rec.NotifyMissile(id, false, w.Locate)
				}
			}
			w.emitProjectile(e.m.Summary(), e.fired)
		}
	}
	w.pending = w.pending[:0]
}

func (w *World) emitProjectile(s projectile.Summary, fired uint) {
	w.emit(core.ProjectileEvent{
		Time:         w.now(),
		LaunchTick:   fired,
		EndTick:      w.tick,
		ProjectileID: uint64(s.ID),
		Kind:         s.Kind.String(),
		OwnerID:      uint64(s.Owner),
		TargetID:     uint64(s.Target),
		Outcome:      string(s.Outcome),
		HitID:        uint64(s.Hit),
		FlightTime:   float32(s.Flight),
		Trajectory: []core.TrajectoryPoint{
			{Position: pos3(s.Start), Tick: fired},
			{Position: pos3(s.End), Tick: w.tick},
		},
	})
}

func pos3(v vecmath.Vec3) core.Position3D {
	return core.Position3D{X: v.X, Y: v.Y, Z: v.Z}
}
