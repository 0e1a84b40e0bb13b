// Package monitor samples tick loop health once a second. Each sample is
// written to a status file, handed to the recorder and, when configured,
// to InfluxDB.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/OCAP2/dogfight/internal/dispatcher"
	"github.com/OCAP2/dogfight/internal/match"
	"github.com/OCAP2/dogfight/internal/sim"
	"github.com/OCAP2/dogfight/internal/worker"
	"github.com/OCAP2/dogfight/pkg/core"
)

// StatsSource is the world's tick timing window.
type StatsSource interface {
	Stats() sim.Stats
}

// ClientCounter is the transport's connection counters.
type ClientCounter interface {
	Clients() int
	Dropped() uint64
	DroppedInput() uint64
}

// PerformanceWriter takes samples outside the recorder, e.g. InfluxDB.
type PerformanceWriter interface {
	RecordServerPerformance(*core.ServerPerformance) error
}

// Dispatcher is where samples go to reach the recorder.
type Dispatcher interface {
	Dispatch(dispatcher.Event) (any, error)
}

// backlogger is a dispatcher that reports its queue depths.
type backlogger interface {
	Backlog() map[string]int
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	World      StatsSource
	Clients    ClientCounter // optional
	Dispatcher Dispatcher    // optional
	Worker     *worker.Manager
	Influx     PerformanceWriter // optional
	Match      *match.Context
	StatusPath string // no status file when empty
	Logger     *slog.Logger
}

// Status is the content of the status file.
type Status struct {
	Match           string                 `json:"match"`
	Performance     core.ServerPerformance `json:"performance"`
	LastWriteMs     float64                `json:"lastWriteMs"`
	RecorderDropped int                    `json:"recorderDropped"`
	StatesTooEarly  int                    `json:"statesTooEarly"`
	OutboundDropped uint64                 `json:"outboundDropped"`
	InboundDropped  uint64                 `json:"inboundDropped"`
	Backlog         map[string]int         `json:"backlog,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps     Dependencies
	interval time.Duration

	mu        sync.RWMutex
	isRunning bool
	last      Status
}

// NewService creates a monitor sampling every interval, one second if
// interval is not positive.
func NewService(deps Dependencies, interval time.Duration) *Service {
	if interval <= 0 {
		interval = time.Second
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps, interval: interval}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Last returns the most recent sample.
func (s *Service) Last() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Sample reads the counters. It resets the world's tick timing window.
func (s *Service) Sample() Status {
	stats := s.deps.World.Stats()
	st := Status{
		Performance: core.ServerPerformance{
			Time:        time.Now(),
			Tick:        stats.Tick,
			TickAvgMs:   float32(stats.Average.Seconds() * 1000),
			TickMaxMs:   float32(stats.Max.Seconds() * 1000),
			Aircraft:    stats.Aircraft,
			Projectiles: stats.Projectiles,
		},
	}
	if s.deps.Match != nil {
		st.Match = s.deps.Match.SessionID()
	}
	if c := s.deps.Clients; c != nil {
		st.Performance.Clients = c.Clients()
		st.Performance.DroppedInput = int(c.DroppedInput())
		st.OutboundDropped = c.Dropped()
		st.InboundDropped = c.DroppedInput()
	}
	if w := s.deps.Worker; w != nil {
		st.LastWriteMs = w.LastWriteDuration().Seconds() * 1000
		st.RecorderDropped = w.Dropped()
		st.StatesTooEarly = w.TooEarly()
	}
	if b, ok := s.deps.Dispatcher.(backlogger); ok {
		st.Backlog = b.Backlog()
	}
	return st
}

// Run samples until ctx is cancelled. Samples are only published while a
// match is running.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("monitor already running")
	}
	s.isRunning = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
	}()

	var statusFile *os.File
	if s.deps.StatusPath != "" {
		f, err := os.Create(s.deps.StatusPath)
		if err != nil {
			s.deps.Logger.Error("Error creating status file", "path", s.deps.StatusPath, "error", err)
		} else {
			statusFile = f
			defer statusFile.Close()
		}
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		st := s.Sample()
		s.mu.Lock()
		s.last = st
		s.mu.Unlock()

		if statusFile != nil {
			if err := writeStatus(statusFile, st); err != nil {
				s.deps.Logger.Warn("Error writing status file", "error", err)
			}
		}
		if st.Match == "" && s.deps.Match != nil {
			continue
		}
		s.publish(st.Performance)
	}
}

func (s *Service) publish(p core.ServerPerformance) {
	if s.deps.Dispatcher != nil {
		_, err := s.deps.Dispatcher.Dispatch(dispatcher.Event{
			Command:   worker.CmdPerformance,
			Source:    "monitor",
			Payload:   p,
			Timestamp: p.Time,
		})
		if err != nil {
			s.deps.Logger.Debug("Performance sample not recorded", "error", err)
		}
	}
	if s.deps.Influx != nil {
		if err := s.deps.Influx.RecordServerPerformance(&p); err != nil {
			s.deps.Logger.Warn("Error writing performance to InfluxDB", "error", err)
		}
	}
}

func writeStatus(f *os.File, st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}
