package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-navigator/pkg/api"
	"github.com/dd0wney/cluso-navigator/pkg/api/middleware"
	"github.com/dd0wney/cluso-navigator/pkg/config"
	"github.com/dd0wney/cluso-navigator/pkg/health"
	"github.com/dd0wney/cluso-navigator/pkg/ingest"
	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/dd0wney/cluso-navigator/pkg/metrics"
	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/dd0wney/cluso-navigator/pkg/replication"
	"github.com/dd0wney/cluso-navigator/pkg/server"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type serveOptions struct {
	Addr    string
	MapFile string
}

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/GraphQL server",
		Long: `Run the navigator server.

The campus is loaded from campus.map_file, else the newest snapshot, else
Postgres. A replica starts empty and follows its primary. SIGHUP reloads
the map file (or Postgres).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := rootOpts.load(cmd)
			if err != nil {
				return err
			}
			if opts.Addr != "" {
				cfg.Server.Addr = opts.Addr
			}
			if opts.MapFile != "" {
				cfg.Campus.MapFile = opts.MapFile
			}
			return runServe(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&opts.MapFile, "map", "", "campus map file (overrides campus.map_file)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Info("campus navigator starting",
		logging.String("version", version),
		logging.String("addr", cfg.Server.Addr),
		logging.String("role", cfg.Replication.Role))

	reg := metrics.NewRegistry()
	nav, err := newNavigator(cfg, logger, reg)
	if err != nil {
		return err
	}
	defer nav.Close()

	store, err := openSnapshotStore(ctx, cfg.Snapshot)
	if err != nil {
		return fmt.Errorf("snapshot store: %w", err)
	}

	var pg *ingest.PGSource
	if cfg.Postgres.URL != "" {
		if pg, err = ingest.NewPGSource(ctx, cfg.Postgres.URL); err != nil {
			return err
		}
		defer pg.Close()
	}

	replica := cfg.Replication.Role == config.RoleReplica
	loader := &campusLoader{mapFile: cfg.Campus.MapFile, snapshots: store, postgres: pg, logger: logger}
	if !replica {
		if _, err := loader.load(ctx, nav); err != nil {
			if !errors.Is(err, errNoCampus) {
				return err
			}
			logger.Warn("starting without a campus map; ingest one through the admin API")
		}
	}

	checker := health.NewHealthChecker()
	checker.RegisterLivenessCheck("server", health.SimpleCheck("server"))
	checker.RegisterLivenessCheck("memory", health.MemoryCheck(health.RuntimeMemory))
	checker.RegisterReadinessCheck("graph", health.GraphCheck(nav))
	checker.RegisterCheck("graph", health.GraphCheck(nav))
	checker.RegisterCheck("topology", health.TopologyCheck(nav.Topology))
	checker.RegisterCheck("workers", health.WorkerPoolCheck(nav, 64))
	if pg != nil {
		checker.RegisterCheck("database", health.DatabaseCheck(pg.Ping))
	}

	stopReplication, err := startReplication(cfg.Replication, nav, checker, logger, reg)
	if err != nil {
		return err
	}
	defer stopReplication()

	validator, err := newTokenValidator(cfg.Auth)
	if err != nil {
		return err
	}

	var rateLimit *middleware.RateLimitConfig
	if cfg.Server.RateLimitRPS > 0 {
		rateLimit = &middleware.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimitRPS,
			BurstSize:         cfg.Server.RateLimitBurst,
		}
	}

	srv, err := api.NewServer(api.Config{
		Navigator:    nav,
		Health:       checker,
		Metrics:      reg,
		Logger:       logger,
		Auth:         validator,
		RequireAuth:  cfg.Auth.Require,
		Snapshots:    store,
		SnapshotKeep: cfg.Snapshot.Keep,
		SaveOnIngest: cfg.Snapshot.SaveOnIngest,
		ReadOnly:     replica,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		RateLimit:    rateLimit,
		Version:      version,
	})
	if err != nil {
		return err
	}
	defer srv.Close()
	go srv.RunMetrics(ctx)

	gs := server.NewGracefulServer(srv.Handler(), server.Options{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logger,
	})
	gs.SetReloadFunc(reloadFunc(cfg, replica, nav, pg))

	return gs.Run(ctx)
}

// startReplication starts the configured side of the snapshot stream and
// registers its health check. The returned func stops it.
func startReplication(cfg config.ReplicationConfig, nav *navigator.Navigator, checker *health.HealthChecker,
	logger logging.Logger, reg *metrics.Registry) (func(), error) {

	rcfg := replication.DefaultConfig()
	rcfg.PublishAddr = cfg.PublishAddr
	rcfg.HealthAddr = cfg.HealthAddr
	rcfg.NodeID = cfg.NodeID
	rcfg.Logger = logger
	rcfg.Metrics = reg
	factory := replication.NewMangosSocketFactory()
	th := replication.DefaultHealthThresholds()

	switch cfg.Role {
	case config.RolePrimary:
		p, err := replication.NewPrimary(factory, rcfg, nav)
		if err != nil {
			return nil, err
		}
		if err := p.Start(); err != nil {
			return nil, fmt.Errorf("start replication primary: %w", err)
		}
		checker.RegisterCheck("replication", health.ReplicationCheck(p.State, th))
		return func() { stopLogged(p.Stop, logger) }, nil

	case config.RoleReplica:
		r, err := replication.NewReplica(factory, rcfg, nav)
		if err != nil {
			return nil, err
		}
		if err := r.Start(); err != nil {
			return nil, fmt.Errorf("start replication replica: %w", err)
		}
		checker.RegisterReadinessCheck("replication", health.ReplicationCheck(r.State, th))
		checker.RegisterCheck("replication", health.ReplicationCheck(r.State, th))
		return func() { stopLogged(r.Stop, logger) }, nil
	}
	return func() {}, nil
}

func stopLogged(stop func() error, logger logging.Logger) {
	if err := stop(); err != nil {
		logger.Warn("replication did not stop cleanly", logging.Error(err))
	}
}

// reloadFunc re-reads the campus on SIGHUP. Replicas only follow their
// primary.
func reloadFunc(cfg *config.Config, replica bool, nav *navigator.Navigator, pg *ingest.PGSource) server.ReloadFunc {
	return func(ctx context.Context) error {
		switch {
		case replica:
			return errors.New("a replica reloads from its primary only")
		case cfg.Campus.MapFile != "":
			_, err := loadMapFile(ctx, nav, cfg.Campus.MapFile)
			return err
		case pg != nil:
			doc, err := pg.Load(ctx)
			if err != nil {
				return err
			}
			_, err = nav.Ingest(ctx, doc, ingest.ModeReplace)
			return err
		}
		return errNoCampus
	}
}
