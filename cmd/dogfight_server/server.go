package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/OCAP2/dogfight/internal/api"
	"github.com/OCAP2/dogfight/internal/authority"
	"github.com/OCAP2/dogfight/internal/cache"
	"github.com/OCAP2/dogfight/internal/config"
	"github.com/OCAP2/dogfight/internal/dispatcher"
	"github.com/OCAP2/dogfight/internal/influx"
	"github.com/OCAP2/dogfight/internal/logging"
	"github.com/OCAP2/dogfight/internal/match"
	"github.com/OCAP2/dogfight/internal/monitor"
	"github.com/OCAP2/dogfight/internal/otel"
	"github.com/OCAP2/dogfight/internal/parser"
	"github.com/OCAP2/dogfight/internal/projectile"
	"github.com/OCAP2/dogfight/internal/sim"
	"github.com/OCAP2/dogfight/internal/storage"
	"github.com/OCAP2/dogfight/internal/transport"
	"github.com/OCAP2/dogfight/internal/worker"
	"github.com/OCAP2/dogfight/pkg/core"
)

const shutdownTimeout = 10 * time.Second

// senderRef lets the world be built before the hub that delivers its
// damage requests.
type senderRef struct{ hub *transport.Hub }

func (s *senderRef) SendDamage(to authority.Participant, d projectile.Damage) {
	if s.hub != nil {
		s.hub.SendDamage(to, d)
	}
}

// logs holds the open log sinks.
type logs struct {
	slog   *logging.SlogManager
	zero   zerolog.Logger
	otel   *otel.Provider
	closer []io.Closer
}

func (l *logs) Close() {
	for _, c := range l.closer {
		_ = c.Close()
	}
}

func openLogs(ctx context.Context, startedAt time.Time, session logging.Session, tick func() uint) (*logs, error) {
	dir := config.GetString("logsDir")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	l := &logs{slog: logging.NewSlogManager()}

	file, err := os.Create(logging.LogFilePath(dir, ServerName, startedAt))
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	l.closer = append(l.closer, file)

	level, err := zerolog.ParseLevel(strings.ToLower(config.GetString("logLevel")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	l.zero = zerolog.New(file).Level(level).With().Timestamp().Logger()

	otelCfg := config.GetOTelConfig()
	providerCfg := otel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	}
	if otelCfg.Enabled {
		stamp := startedAt.Format("20060102_150405")
		logFile, err := os.Create(filepath.Join(dir, fmt.Sprintf("%s.otel.%s.jsonl", ServerName, stamp)))
		if err != nil {
			return nil, fmt.Errorf("create otel log file: %w", err)
		}
		metricFile, err := os.Create(filepath.Join(dir, fmt.Sprintf("%s.metrics.%s.jsonl", ServerName, stamp)))
		if err != nil {
			logFile.Close()
			return nil, fmt.Errorf("create metrics file: %w", err)
		}
		l.closer = append(l.closer, logFile, metricFile)
		providerCfg.LogWriter = logFile
		providerCfg.MetricWriter = metricFile
	}
	l.otel, err = otel.New(ctx, providerCfg)
	if err != nil {
		return nil, err
	}

	opts := logging.Options{
		File:     file,
		Level:    config.GetString("logLevel"),
		Provider: l.otel.LoggerProvider(),
		Context:  logging.SessionContext(session, tick, config.GetStorageConfig().Type),
	}
	if config.GetBool("graylog.enabled") {
		gw, err := logging.NewGraylogWriter(config.GetString("graylog.address"), ServerName)
		if err != nil {
			l.zero.Warn().Err(err).Msg("Graylog disabled")
		} else {
			l.closer = append(l.closer, gw)
			opts.Graylog = gw
		}
	}
	l.slog.Setup(opts)
	return l, nil
}

func newMatch(startedAt time.Time, cfg config.SimConfig) *core.Match {
	geoCfg := config.GetGeoConfig()
	return &core.Match{
		SessionID: uuid.NewString(),
		Name:      config.GetString("matchName"),
		WorldName: config.GetString("worldName"),
		Tag:       config.GetString("matchTag"),
		StartTime: startedAt,
		TickRate:  cfg.TickRate,
		OriginLat: geoCfg.OriginLat,
		OriginLon: geoCfg.OriginLon,
		Settings: map[string]any{
			"version":       BuildVersion,
			"snapshotEvery": cfg.SnapshotEvery,
			"stateEvery":    cfg.StateEvery,
			"bots":          len(cfg.Bots),
			"maxPlayers":    config.GetServerConfig().MaxPlayers,
		},
	}
}

func serve(configFound bool) error {
	startedAt := time.Now()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	simCfg, err := config.GetSimConfig()
	if err != nil {
		return err
	}

	mc := match.NewContext()
	var running atomic.Pointer[sim.World]
	l, err := openLogs(ctx, startedAt, mc, func() uint {
		if w := running.Load(); w != nil {
			return w.LastTick()
		}
		return 0
	})
	if err != nil {
		return err
	}
	defer l.Close()
	log := l.slog.Logger()
	if !configFound {
		log.Warn("No config file found, using defaults", "file", config.FileName)
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(l.zero))
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}

	entities := cache.NewEntityCache()
	storageCfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(storageCfg, storage.Dependencies{
		EntityCache: entities,
		HitCache:    cache.NewHitCache(),
		Logger:      log,
		DBConfig:    config.GetDBConfig(),
		ServerURL:   config.GetAPIConfig().ServerURL,
		StartedAt:   startedAt,
	})
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("init %s storage: %w", storageCfg.Type, err)
	}
	log.Info("Storage initialized", "type", storageCfg.Type)

	wm := worker.NewManager(worker.Dependencies{EntityCache: entities, Logger: log}, backend)
	wm.RegisterHandlers(d)

	sender := &senderRef{}
	opts := worldOptions(simCfg, config.GetProjectileConfig(), log.With("component", "sim"))
	opts.Sink = wm.Sink(d)
	opts.Sender = sender
	world := sim.New(opts)
	running.Store(world)

	serverCfg := config.GetServerConfig()
	hub := transport.New(transport.Config{
		SendBuffer: serverCfg.SendBuffer,
		MaxPlayers: serverCfg.MaxPlayers,
	}, world, parser.NewParser(log.With("component", "parser")), log)
	hub.RegisterHandlers(d)
	sender.hub = hub

	m := newMatch(startedAt, simCfg)
	if err := mc.Start(m); err != nil {
		return fmt.Errorf("match origin: %w", err)
	}
	if _, err := d.Dispatch(dispatcher.Event{Command: worker.CmdMatchStart, Source: "server", Payload: m, Timestamp: startedAt}); err != nil {
		return fmt.Errorf("start match: %w", err)
	}
	log.Info("Match started", "name", m.Name, "world", m.WorldName, "tickRate", world.TickRate())

	if err := world.SpawnBots(); err != nil {
		log.Error("Spawning bots failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	var telemetry *influx.Manager
	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		backup := filepath.Join(config.GetString("logsDir"), fmt.Sprintf("influx_backup_%s.log.gz", startedAt.Format("20060102_150405")))
		telemetry = influx.NewManager(influxCfg, l.zero.With().Str("component", "influx").Logger(), backup)
		if err := telemetry.Connect(ctx); err != nil {
			log.Error("InfluxDB disabled", "error", err)
			telemetry = nil
		} else {
			snaps, unsubscribe := world.Subscribe()
			g.Go(func() error {
				defer unsubscribe()
				return telemetry.Run(gctx, mc.Origin(), m.SessionID, snaps, snapshotsPerSecond(simCfg))
			})
		}
	}

	monDeps := monitor.Dependencies{
		World:      world,
		Clients:    hub,
		Dispatcher: d,
		Worker:     wm,
		Match:      mc,
		StatusPath: filepath.Join(config.GetString("logsDir"), "status.json"),
		Logger:     log.With("component", "monitor"),
	}
	if telemetry != nil {
		monDeps.Influx = telemetry
	}
	mon := monitor.NewService(monDeps, config.GetDuration("statusInterval"))

	srv := &http.Server{
		Addr:              serverCfg.Listen,
		Handler:           hub.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error { return world.Run(gctx) })
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return mon.Run(gctx) })
	g.Go(func() error {
		log.Info("Listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	runErr := g.Wait()
	if runErr != nil {
		log.Error("Server stopped", "error", runErr)
	} else {
		log.Info("Shutting down")
	}
	return errors.Join(runErr, shutdown(l, d, wm, mc, telemetry, log))
}

// shutdown drains the recorder queues, ends the match, closes the backend
// and uploads the export when configured.
func shutdown(l *logs, d *dispatcher.Dispatcher, wm *worker.Manager, mc *match.Context, telemetry *influx.Manager, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	d.Close()
	if _, err := d.Dispatch(dispatcher.Event{Command: worker.CmdMatchEnd, Source: "server", Timestamp: time.Now()}); err != nil {
		errs = append(errs, fmt.Errorf("end match: %w", err))
	}
	m := mc.End()
	if m != nil {
		log.Info("Match ended", "duration", time.Since(m.StartTime).Round(time.Second).String(),
			"recorderDropped", wm.Dropped(), "statesTooEarly", wm.TooEarly())
	}

	backend := wm.Backend()
	if err := backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}

	if apiCfg := config.GetAPIConfig(); apiCfg.Upload {
		client := api.New(apiCfg.ServerURL, apiCfg.APIKey)
		uploaded, err := client.UploadBackend(ctx, backend)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("upload: %w", err))
		case uploaded:
			log.Info("Recording uploaded", "server", apiCfg.ServerURL)
		}
	}

	if telemetry != nil {
		if err := telemetry.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close influx: %w", err))
		}
	}
	if err := l.slog.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := l.otel.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
