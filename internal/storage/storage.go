// Package storage defines the match recorder backends.
package storage

import "github.com/OCAP2/dogfight/pkg/core"

// Backend is the interface all recorder implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Match management
	StartMatch(match *core.Match) error
	EndMatch() error

	// Registration
	AddAircraft(a *core.Aircraft) error

	// State recording
	RecordAircraftState(s *core.AircraftState) error

	// Event recording
	RecordFiredEvent(e *core.FiredEvent) error
	RecordHitEvent(e *core.HitEvent) error
	RecordKillEvent(e *core.KillEvent) error
	RecordProjectileEvent(e *core.ProjectileEvent) error
	RecordLockEvent(e *core.LockEvent) error
	RecordAuthorityEvent(e *core.AuthorityEvent) error
	RecordGeneralEvent(e *core.GeneralEvent) error
}

// Uploadable is an optional interface for backends that produce a file
// suitable for upload to the match archive.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// PerformanceRecorder is an optional interface for backends that keep
// server performance samples.
type PerformanceRecorder interface {
	RecordServerPerformance(p *core.ServerPerformance) error
}
