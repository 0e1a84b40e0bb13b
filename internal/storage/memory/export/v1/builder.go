package v1

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/OCAP2/dogfight/internal/geo"
	"github.com/OCAP2/dogfight/pkg/core"
)

// MatchData contains all the data needed to build an export
type MatchData struct {
	Match    *core.Match
	Origin   geo.Origin
	Aircraft map[uint64]*AircraftRecord

	HitEvents        []core.HitEvent
	KillEvents       []core.KillEvent
	LockEvents       []core.LockEvent
	AuthorityEvents  []core.AuthorityEvent
	GeneralEvents    []core.GeneralEvent
	ProjectileEvents []core.ProjectileEvent
}

// AircraftRecord groups an aircraft with all its time-series data
type AircraftRecord struct {
	Aircraft    core.Aircraft
	States      []core.AircraftState
	FiredEvents []core.FiredEvent
}

// Build creates an Export from the match data. Aircraft are ordered by ID,
// events by tick.
func Build(data *MatchData) Export {
	export := Export{
		Version:   Version,
		SessionID: data.Match.SessionID,
		MatchName: data.Match.Name,
		WorldName: data.Match.WorldName,
		Tags:      data.Match.Tag,
		StartTime: data.Match.StartTime.UTC().Format(time.RFC3339),
		TickRate:  data.Match.TickRate,
		Origin:    []float64{data.Origin.Lon, data.Origin.Lat},
		Aircraft:  make([]Aircraft, 0, len(data.Aircraft)),
		Events:    make([][]any, 0),
		Shots:     make([]Projectile, 0, len(data.ProjectileEvents)),
	}

	var maxTick uint
	bump := func(t uint) {
		if t > maxTick {
			maxTick = t
		}
	}

	ids := make([]uint64, 0, len(data.Aircraft))
	for id := range data.Aircraft {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		record := data.Aircraft[id]
		entity := Aircraft{
			ID:          record.Aircraft.ID,
			Callsign:    record.Aircraft.Callsign,
			Team:        record.Aircraft.Team,
			TeamIndex:   teamToIndex(record.Aircraft.Team),
			Profile:     record.Aircraft.Profile,
			IsBot:       boolToInt(record.Aircraft.Bot),
			JoinTick:    record.Aircraft.JoinTick,
			Positions:   make([][]any, 0, len(record.States)),
			FramesFired: make([][]any, 0, len(record.FiredEvents)),
		}

		// Format: [tick, [lon, lat, alt], heading, pitch, roll, speed, health, isAlive, lockState]
		for _, state := range record.States {
			lon, lat, alt := data.Origin.ToLonLat(state.Position)
			entity.Positions = append(entity.Positions, []any{
				state.Tick,
				[]float64{round(lon, 7), round(lat, 7), round(alt, 1)},
				round(float64(state.Heading), 1),
				round(float64(state.Pitch), 1),
				round(float64(state.Roll), 1),
				round(float64(state.Speed), 1),
				round(float64(state.Health), 1),
				boolToInt(state.IsAlive),
				state.LockState,
			})
			bump(state.Tick)
		}

		// Format: [tick, weapon, [lon, lat, alt], targetId]
		for _, fired := range record.FiredEvents {
			lon, lat, alt := data.Origin.ToLonLat(fired.Position)
			entity.FramesFired = append(entity.FramesFired, []any{
				fired.Tick,
				fired.Weapon,
				[]float64{round(lon, 7), round(lat, 7), round(alt, 1)},
				fired.TargetID,
			})
			bump(fired.Tick)
		}

		export.Aircraft = append(export.Aircraft, entity)
	}

	// Format: [tick, "hit", victimId, [shooterId, cause], distance]
	for _, evt := range data.HitEvents {
		export.Events = append(export.Events, []any{
			evt.Tick,
			"hit",
			evt.VictimID,
			[]any{evt.ShooterID, evt.Cause},
			round(float64(evt.Distance), 1),
		})
		bump(evt.Tick)
	}

	// Format: [tick, "killed", victimId, [killerId, cause], crashed]
	for _, evt := range data.KillEvents {
		export.Events = append(export.Events, []any{
			evt.Tick,
			"killed",
			evt.VictimID,
			[]any{evt.KillerID, evt.Cause},
			boolToInt(evt.Crashed),
		})
		bump(evt.Tick)
	}

	// Format: [tick, "lock", aircraftId, targetId, state]
	for _, evt := range data.LockEvents {
		export.Events = append(export.Events, []any{
			evt.Tick,
			"lock",
			evt.AircraftID,
			evt.TargetID,
			evt.To,
		})
		bump(evt.Tick)
	}

	// Format: [tick, "authority", actorId, kind, reason, replacedBy]
	for _, evt := range data.AuthorityEvents {
		export.Events = append(export.Events, []any{
			evt.Tick,
			"authority",
			evt.ActorID,
			evt.Kind,
			evt.Reason,
			evt.ReplacedBy,
		})
		bump(evt.Tick)
	}

	// Format: [tick, name, message]
	for _, evt := range data.GeneralEvents {
		export.Events = append(export.Events, []any{
			evt.Tick,
			evt.Name,
			evt.Message,
		})
		bump(evt.Tick)
	}

	sort.SliceStable(export.Events, func(i, j int) bool {
		return export.Events[i][0].(uint) < export.Events[j][0].(uint)
	})

	for _, pe := range data.ProjectileEvents {
		shot := Projectile{
			ID:         pe.ProjectileID,
			Kind:       pe.Kind,
			Owner:      pe.OwnerID,
			Target:     pe.TargetID,
			Outcome:    pe.Outcome,
			Hit:        pe.HitID,
			LaunchTick: pe.LaunchTick,
			EndTick:    pe.EndTick,
		}
		if path, err := data.Origin.Path(pe.Trajectory); err == nil {
			if raw, err := path.MarshalJSON(); err == nil {
				shot.Path = raw
			}
		}
		export.Shots = append(export.Shots, shot)
		bump(pe.EndTick)
	}

	export.EndTick = maxTick
	if data.Match.TickRate > 0 {
		export.Duration = float64(maxTick) / float64(data.Match.TickRate)
	}
	return export
}

// teamToIndex converts a team name to a numeric index: A=0, B=1, anything
// else -1.
func teamToIndex(team string) int {
	switch strings.ToUpper(team) {
	case "A":
		return 0
	case "B":
		return 1
	default:
		return -1
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
