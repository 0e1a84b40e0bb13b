// Package v1 contains the v1 export format for recorded matches.
package v1

import "encoding/json"

// Version is written into every export.
const Version = "1"

// Export is the root JSON structure for v1 format
type Export struct {
	Version   string       `json:"version"`
	SessionID string       `json:"sessionId"`
	MatchName string       `json:"matchName"`
	WorldName string       `json:"worldName"`
	Tags      string       `json:"tags"`
	StartTime string       `json:"startTime"`
	TickRate  int          `json:"tickRate"`
	EndTick   uint         `json:"endTick"`
	Duration  float64      `json:"duration"`
	Origin    []float64    `json:"origin"` // [lon, lat]
	Aircraft  []Aircraft   `json:"aircraft"`
	Events    [][]any      `json:"events"`
	Shots     []Projectile `json:"projectiles"`
}

// Aircraft is one registered airframe and its sampled track
type Aircraft struct {
	ID          uint64  `json:"id"`
	Callsign    string  `json:"callsign"`
	Team        string  `json:"team"`
	TeamIndex   int     `json:"teamIndex"`
	Profile     string  `json:"profile"`
	IsBot       int     `json:"isBot"`
	JoinTick    uint    `json:"joinTick"`
	Positions   [][]any `json:"positions"`
	FramesFired [][]any `json:"framesFired"`
}

// Projectile is a missile or bullet summary with its path as GeoJSON
type Projectile struct {
	ID         uint64          `json:"id"`
	Kind       string          `json:"kind"`
	Owner      uint64          `json:"owner"`
	Target     uint64          `json:"target,omitempty"`
	Outcome    string          `json:"outcome"`
	Hit        uint64          `json:"hit,omitempty"`
	LaunchTick uint            `json:"launchTick"`
	EndTick    uint            `json:"endTick"`
	Path       json.RawMessage `json:"path,omitempty"`
}
