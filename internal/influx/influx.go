// Package influx writes flight telemetry and server performance to InfluxDB,
// or to a gzipped line protocol file when InfluxDB cannot be reached.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/OCAP2/dogfight/internal/config"
	"github.com/OCAP2/dogfight/internal/geo"
	"github.com/OCAP2/dogfight/internal/sim"
	"github.com/OCAP2/dogfight/pkg/core"
)

// Buckets written by the server.
const (
	BucketTelemetry   = "match_telemetry"
	BucketPerformance = "server_performance"
)

// DefaultBucketNames are created on first connect.
var DefaultBucketNames = []string{BucketTelemetry, BucketPerformance}

// ErrDisabled is returned by Connect when influx is turned off.
var ErrDisabled = errors.New("influx disabled")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	cfg    config.InfluxConfig
	mu     sync.Mutex
	backup *os.File
}

// NewManager creates a new InfluxDB manager.
func NewManager(cfg config.InfluxConfig, log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
		cfg:         cfg,
	}
}

// Connect establishes a connection to InfluxDB. A failed ping switches the
// manager to the backup file.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	running, err := m.Client.Ping(pingCtx)
	m.IsValid = err == nil && running

	if !m.IsValid {
		m.Logger.Warn().Err(err).Str("backupPath", m.BackupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.CreateWriters()
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) openBackup() error {
	if m.BackupWriter != nil {
		return nil
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backup = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgName := m.cfg.Org

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// 30 day retention
	for _, bucket := range m.BucketNames {
		if _, err := m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")
		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 30,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}
	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	for _, bucket := range m.BucketNames {
		w := m.Client.WriteAPI(m.cfg.Org, bucket)
		m.Writers[bucket] = w

		go func(bucket string, errs <-chan error) {
			for err := range errs {
				m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error sending data to InfluxDB")
			}
		}(bucket, w.Errors())
	}
	m.Logger.Debug().Int("buckets", len(m.BucketNames)).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	line := strings.TrimSuffix(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.BackupWriter.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteSnapshot writes one telemetry point per live aircraft.
func (m *Manager) WriteSnapshot(origin geo.Origin, matchID string, snap sim.Snapshot) error {
	var errs []error
	for _, a := range snap.Aircraft {
		if err := m.WritePoint(BucketTelemetry, TelemetryPoint(origin, matchID, snap, a)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordServerPerformance writes a tick loop health sample.
func (m *Manager) RecordServerPerformance(p *core.ServerPerformance) error {
	return m.WritePoint(BucketPerformance, PerformancePoint(p))
}

// Run writes every nth snapshot until ctx is cancelled or snaps closes.
func (m *Manager) Run(ctx context.Context, origin geo.Origin, matchID string, snaps <-chan sim.Snapshot, every int) error {
	every = max(every, 1)
	n := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			n++
			if n%every != 0 {
				continue
			}
			if err := m.WriteSnapshot(origin, matchID, snap); err != nil {
				m.Logger.Warn().Err(err).Uint("tick", snap.Tick).Msg("Telemetry write failed")
			}
		}
	}
}

// Close flushes pending writes and closes the client and the backup file.
func (m *Manager) Close() error {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	if m.BackupWriter != nil {
		errs = append(errs, m.BackupWriter.Close())
		m.BackupWriter = nil
	}
	if m.backup != nil {
		errs = append(errs, m.backup.Close())
		m.backup = nil
	}
	return errors.Join(errs...)
}

// TelemetryPoint is an aircraft's geodetic position and flight state.
func TelemetryPoint(origin geo.Origin, matchID string, snap sim.Snapshot, a sim.AircraftView) *influxdb2_write.Point {
	s := a.State
	lon, lat, alt := origin.ToLonLat(core.Position3D{X: s.Position.X, Y: s.Position.Y, Z: s.Position.Z})

	return influxdb2_write.NewPointWithMeasurement("aircraft").
		AddTag("match", matchID).
		AddTag("actor", strconv.FormatUint(uint64(a.ID), 10)).
		AddTag("callsign", a.Callsign).
		AddTag("team", a.Team).
		AddField("lon", lon).
		AddField("lat", lat).
		AddField("alt", alt).
		AddField("speed", s.Velocity.Len()).
		AddField("throttle", s.Throttle).
		AddField("health", s.Health).
		AddField("g", s.GForce.Len()).
		AddField("lock", s.Lock.String()).
		AddField("tick", snap.Tick).
		SetTime(snap.Time)
}

// PerformancePoint is a server performance sample.
func PerformancePoint(p *core.ServerPerformance) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement("tick_loop").
		AddField("tick", p.Tick).
		AddField("tick_avg_ms", p.TickAvgMs).
		AddField("tick_max_ms", p.TickMaxMs).
		AddField("aircraft", p.Aircraft).
		AddField("projectiles", p.Projectiles).
		AddField("clients", p.Clients).
		AddField("dropped_input", p.DroppedInput).
		SetTime(p.Time)
}
