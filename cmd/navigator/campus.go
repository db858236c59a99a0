package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dd0wney/cluso-navigator/pkg/algorithms"
	"github.com/dd0wney/cluso-navigator/pkg/auth"
	"github.com/dd0wney/cluso-navigator/pkg/config"
	"github.com/dd0wney/cluso-navigator/pkg/ingest"
	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/dd0wney/cluso-navigator/pkg/metrics"
	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/dd0wney/cluso-navigator/pkg/snapshot"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

var errNoCampus = errors.New("no campus map: set campus.map_file, a snapshot store or postgres.url")

// newNavigator builds a navigator from the routing and campus sections.
func newNavigator(cfg *config.Config, logger logging.Logger, reg *metrics.Registry) (*navigator.Navigator, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	strategy, err := algorithms.ParseStrategy(cfg.Routing.Strategy)
	if err != nil {
		return nil, err
	}
	return navigator.New(navigator.Config{
		Workers:           cfg.Routing.Workers,
		DefaultTimeout:    cfg.Routing.QueryTimeout,
		TransitionPenalty: storage.CostFromFloat(cfg.Routing.TransitionPenalty),
		Strategy:          strategy,
		MaxExpansions:     cfg.Routing.MaxExpansions,
		Location:          loc,
		StrictTopology:    cfg.Routing.StrictTopology,
		Logger:            logger,
		Metrics:           reg,
	})
}

// readMap decodes a YAML/JSON map document, or imports a Tiled .tmx file.
func readMap(path string, tmx ingest.TMXOptions) (*ingest.Document, error) {
	if !strings.EqualFold(filepath.Ext(path), ".tmx") {
		return ingest.LoadFile(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map %s: %w", path, err)
	}
	defer f.Close()
	doc, err := ingest.ImportTMX(f, tmx)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", path, err)
	}
	return doc, nil
}

// loadMapFile ingests path into nav as a replacement.
func loadMapFile(ctx context.Context, nav *navigator.Navigator, path string) (*navigator.IngestResult, error) {
	doc, err := readMap(path, ingest.TMXOptions{})
	if err != nil {
		return nil, err
	}
	return nav.Ingest(ctx, doc, ingest.ModeReplace)
}

// openSnapshotStore returns nil when snapshots are not configured. An S3
// bucket takes precedence over a directory.
func openSnapshotStore(ctx context.Context, cfg config.SnapshotConfig) (snapshot.Store, error) {
	switch {
	case cfg.S3.Bucket != "":
		return snapshot.NewS3Store(ctx, snapshot.S3Config{
			Bucket:   cfg.S3.Bucket,
			Prefix:   cfg.S3.Prefix,
			Region:   cfg.S3.Region,
			Endpoint: cfg.S3.Endpoint,
		})
	case cfg.Dir != "":
		return snapshot.NewFileStore(cfg.Dir)
	}
	return nil, nil
}

// newTokenValidator combines the JWT manager and API keys. It returns nil
// when neither is configured.
func newTokenValidator(cfg config.AuthConfig) (auth.TokenValidator, error) {
	var validators []auth.TokenValidator
	if cfg.JWTSecret != "" {
		jwt, err := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			return nil, err
		}
		validators = append(validators, jwt)
	}
	if len(cfg.APIKeys) > 0 {
		keys, err := auth.NewAPIKeyStore(cfg.APIKeys)
		if err != nil {
			return nil, err
		}
		validators = append(validators, keys)
	}

	switch len(validators) {
	case 0:
		return nil, nil
	case 1:
		return validators[0], nil
	}
	return auth.NewCompositeTokenValidator(validators...), nil
}

// campusSource is where loadCampus found the initial map.
type campusSource string

const (
	sourceMapFile  campusSource = "map_file"
	sourceSnapshot campusSource = "snapshot"
	sourcePostgres campusSource = "postgres"
)

// campusLoader fills an empty navigator at start. The map file wins, then
// the newest snapshot, then Postgres.
type campusLoader struct {
	mapFile   string
	snapshots snapshot.Store
	postgres  *ingest.PGSource
	logger    logging.Logger
}

func (l *campusLoader) load(ctx context.Context, nav *navigator.Navigator) (campusSource, error) {
	if l.mapFile != "" {
		res, err := loadMapFile(ctx, nav, l.mapFile)
		if err != nil {
			return "", err
		}
		l.logLoaded(sourceMapFile, res)
		return sourceMapFile, nil
	}

	if l.snapshots != nil {
		snap, err := snapshot.LoadLatest(ctx, l.snapshots)
		switch {
		case err == nil:
			res, err := nav.Ingest(ctx, snap.Document, ingest.ModeReplace)
			if err != nil {
				return "", fmt.Errorf("restore snapshot v%d: %w", snap.GraphVersion, err)
			}
			l.logLoaded(sourceSnapshot, res)
			return sourceSnapshot, nil
		case errors.Is(err, snapshot.ErrNoSnapshot):
			l.logger.Info("no snapshot to restore")
		default:
			return "", err
		}
	}

	if l.postgres != nil {
		doc, err := l.postgres.Load(ctx)
		if err != nil {
			return "", err
		}
		res, err := nav.Ingest(ctx, doc, ingest.ModeReplace)
		if err != nil {
			return "", err
		}
		l.logLoaded(sourcePostgres, res)
		return sourcePostgres, nil
	}

	return "", errNoCampus
}

func (l *campusLoader) logLoaded(src campusSource, res *navigator.IngestResult) {
	l.logger.Info("campus loaded",
		logging.String("source", string(src)),
		logging.Version(res.GraphVersion),
		logging.Int("nodes", res.Nodes),
		logging.Int("edges", res.Edges),
		logging.Int("constraints", res.Constraints),
		logging.Int("violations", len(res.Violations)))
}
