package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSource loads campus maps from PostgreSQL
type PGSource struct {
	pool *pgxpool.Pool
}

// NewPGSource connects to databaseURL and creates the map tables if needed.
func NewPGSource(ctx context.Context, databaseURL string) (*PGSource, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &PGSource{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *PGSource) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS campus_buildings (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		floors INTEGER[] NOT NULL
	);

	CREATE TABLE IF NOT EXISTS campus_nodes (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		x DOUBLE PRECISION NOT NULL,
		y DOUBLE PRECISION NOT NULL,
		floor INTEGER NOT NULL DEFAULT 0,
		building_id TEXT REFERENCES campus_buildings(id),
		tags TEXT[] NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS campus_edges (
		id TEXT PRIMARY KEY,
		from_id TEXT NOT NULL REFERENCES campus_nodes(id),
		to_id TEXT NOT NULL REFERENCES campus_nodes(id),
		cost DOUBLE PRECISION,
		directed BOOLEAN NOT NULL DEFAULT FALSE,
		kind TEXT NOT NULL DEFAULT 'walkway'
	);

	CREATE TABLE IF NOT EXISTS campus_constraints (
		id TEXT PRIMARY KEY,
		body JSONB NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_campus_nodes_building ON campus_nodes(building_id);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Ping checks database connectivity
func (s *PGSource) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *PGSource) Close() {
	s.pool.Close()
}

// Load reads the whole campus inside one read-only transaction so the
// document is consistent.
func (s *PGSource) Load(ctx context.Context) (*Document, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	doc := &Document{Version: FormatVersion}

	doc.Buildings, err = collect(ctx, tx, `SELECT id, name, floors FROM campus_buildings ORDER BY id`,
		func(row pgx.CollectableRow) (BuildingDoc, error) {
			var b BuildingDoc
			var floors []int32
			if err := row.Scan(&b.ID, &b.Name, &floors); err != nil {
				return b, err
			}
			for _, f := range floors {
				b.Floors = append(b.Floors, int(f))
			}
			return b, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load buildings: %w", err)
	}

	doc.Nodes, err = collect(ctx, tx, `SELECT id, type, name, x, y, floor, COALESCE(building_id, ''), tags FROM campus_nodes ORDER BY id`,
		func(row pgx.CollectableRow) (NodeDoc, error) {
			var n NodeDoc
			var floor int32
			err := row.Scan(&n.ID, &n.Type, &n.Name, &n.X, &n.Y, &floor, &n.Building, &n.Tags)
			n.Floor = int(floor)
			return n, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}

	doc.Edges, err = collect(ctx, tx, `SELECT id, from_id, to_id, cost, directed, kind FROM campus_edges ORDER BY id`,
		func(row pgx.CollectableRow) (EdgeDoc, error) {
			var e EdgeDoc
			err := row.Scan(&e.ID, &e.From, &e.To, &e.Cost, &e.Directed, &e.Kind)
			return e, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}

	doc.Constraints, err = collect(ctx, tx, `SELECT body FROM campus_constraints ORDER BY id`,
		func(row pgx.CollectableRow) (*constraints.Constraint, error) {
			var body []byte
			if err := row.Scan(&body); err != nil {
				return nil, err
			}
			c := &constraints.Constraint{}
			if err := json.Unmarshal(body, c); err != nil {
				return nil, fmt.Errorf("failed to unmarshal constraint: %w", err)
			}
			return c, nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to load constraints: %w", err)
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Save replaces the stored campus with doc in one transaction.
func (s *PGSource) Save(ctx context.Context, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, table := range []string{"campus_constraints", "campus_edges", "campus_nodes", "campus_buildings"} {
			if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		batch := &pgx.Batch{}
		for _, b := range doc.Buildings {
			batch.Queue(`INSERT INTO campus_buildings (id, name, floors) VALUES ($1, $2, $3)`, b.ID, b.Name, b.Floors)
		}
		for _, n := range doc.Nodes {
			var building any
			if n.Building != "" {
				building = n.Building
			}
			tags := n.Tags
			if tags == nil {
				tags = []string{}
			}
			batch.Queue(`INSERT INTO campus_nodes (id, type, name, x, y, floor, building_id, tags) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				n.ID, n.Type, n.Name, n.X, n.Y, n.Floor, building, tags)
		}
		for _, e := range doc.Edges {
			kind := e.Kind
			if kind == "" {
				kind = "walkway"
			}
			batch.Queue(`INSERT INTO campus_edges (id, from_id, to_id, cost, directed, kind) VALUES ($1, $2, $3, $4, $5, $6)`,
				e.ID, e.From, e.To, e.Cost, e.Directed, kind)
		}
		for _, c := range doc.Constraints {
			body, err := json.Marshal(c)
			if err != nil {
				return fmt.Errorf("failed to marshal constraint %s: %w", c.ID, err)
			}
			batch.Queue(`INSERT INTO campus_constraints (id, body) VALUES ($1, $2)`, c.ID, body)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to store campus: %w", err)
		}
		return nil
	})
}

func collect[T any](ctx context.Context, tx pgx.Tx, query string, fn pgx.RowToFunc[T]) ([]T, error) {
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, fn)
}
