package main

import (
	"log/slog"

	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/config"
	"github.com/OCAP2/dogfight/internal/sim"
)

// worldOptions maps the sim, projectile and profile settings onto the
// server world. Sink and Sender are wired by the caller.
func worldOptions(cfg config.SimConfig, proj config.Projectiles, log *slog.Logger) sim.Options {
	spawns := make(map[string][]sim.SpawnPoint, len(cfg.SpawnPoints))
	for team, points := range cfg.SpawnPoints {
		for _, p := range points {
			spawns[team] = append(spawns[team], sim.SpawnPoint{Position: p.Vec(), Heading: p.Heading})
		}
	}
	bots := make([]sim.Bot, 0, len(cfg.Bots))
	for _, b := range cfg.Bots {
		bots = append(bots, sim.Bot{Callsign: b.Callsign, Team: b.Team, Profile: b.Profile})
	}

	return sim.Options{
		Local:         authority.Host,
		Server:        true,
		TickRate:      cfg.TickRate,
		SnapshotEvery: cfg.SnapshotEvery,
		StateEvery:    cfg.StateEvery,
		Grace:         cfg.AuthorityGrace,
		TargetRetry:   cfg.TargetRetry,
		GroundHeight:  cfg.GroundHeight,
		Seed:          cfg.Seed,
		Bullet:        proj.Bullet,
		Missile:       proj.Missile,
		SpawnPoints:   spawns,
		Bots:          bots,
		Profiles:      config.GetAircraftProfile,
		Logger:        log,
	}
}

// snapshotsPerSecond is how often the world publishes.
func snapshotsPerSecond(cfg config.SimConfig) int {
	return max(cfg.TickRate/max(cfg.SnapshotEvery, 1), 1)
}
