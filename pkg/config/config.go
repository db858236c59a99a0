// Package config loads the navigator server configuration from a YAML file
// with NAV_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/algorithms"
	"github.com/dd0wney/cluso-navigator/pkg/auth"
	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
	"github.com/dd0wney/cluso-navigator/pkg/validation"
	"gopkg.in/yaml.v3"
)

// Replication roles.
const (
	RoleNone    = "none"
	RolePrimary = "primary"
	RoleReplica = "replica"
)

// Config is the complete server configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Campus      CampusConfig      `yaml:"campus"`
	Routing     RoutingConfig     `yaml:"routing"`
	Logging     LoggingConfig     `yaml:"logging"`
	Auth        AuthConfig        `yaml:"auth"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Replication ReplicationConfig `yaml:"replication"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	// RateLimitRPS enables per-client rate limiting when positive.
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// CampusConfig names the campus time zone and initial map.
type CampusConfig struct {
	TimeZone string `yaml:"time_zone"`
	// MapFile is a YAML/JSON document or a .tmx file loaded at start.
	MapFile string `yaml:"map_file"`
}

// RoutingConfig tunes the pathfinder and worker pool.
type RoutingConfig struct {
	TransitionPenalty float64       `yaml:"transition_penalty"`
	QueryTimeout      time.Duration `yaml:"query_timeout"`
	Workers           int           `yaml:"workers"` // 0 = number of CPUs
	MaxExpansions     int           `yaml:"max_expansions"`
	Strategy          string        `yaml:"strategy"`
	StrictTopology    bool          `yaml:"strict_topology"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// AuthConfig configures bearer tokens and admin API keys.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	// Require rejects anonymous route queries.
	Require bool          `yaml:"require"`
	APIKeys []auth.APIKey `yaml:"api_keys"`
}

// Enabled reports whether any credential source is configured.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != "" || len(a.APIKeys) > 0
}

// SnapshotConfig selects where snapshots are kept.
type SnapshotConfig struct {
	Dir          string   `yaml:"dir"`
	Keep         int      `yaml:"keep"`
	SaveOnIngest bool     `yaml:"save_on_ingest"`
	S3           S3Config `yaml:"s3"`
}

// S3Config points at a bucket. Credentials come from the default AWS chain.
type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// Enabled reports whether snapshots are configured at all.
func (s SnapshotConfig) Enabled() bool {
	return s.Dir != "" || s.S3.Bucket != ""
}

// PostgresConfig configures the campus data source.
type PostgresConfig struct {
	URL string `yaml:"url"`
}

// ReplicationConfig configures snapshot streaming.
type ReplicationConfig struct {
	Role        string `yaml:"role"`
	PublishAddr string `yaml:"publish_addr"`
	HealthAddr  string `yaml:"health_addr"`
	NodeID      string `yaml:"node_id"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    64 << 20,
		},
		Campus: CampusConfig{TimeZone: "UTC"},
		Routing: RoutingConfig{
			QueryTimeout: 5 * time.Second,
			Strategy:     "astar",
		},
		Logging:     LoggingConfig{Level: "info"},
		Auth:        AuthConfig{TokenTTL: time.Hour},
		Snapshot:    SnapshotConfig{Keep: 5},
		Replication: ReplicationConfig{Role: RoleNone},
	}
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.parse(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parse(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks every section and reports all failures together.
func (c *Config) Validate() error {
	return errors.Join(
		validation.NewConfigValidator("server").
			Required("addr", c.Server.Addr).
			MinDuration("read_timeout", c.Server.ReadTimeout, 0).
			MinDuration("write_timeout", c.Server.WriteTimeout, 0).
			MinDuration("shutdown_timeout", c.Server.ShutdownTimeout, time.Second).
			Custom("max_body_bytes", func() error {
				if c.Server.MaxBodyBytes <= 0 {
					return fmt.Errorf("value %d must be positive", c.Server.MaxBodyBytes)
				}
				return nil
			}).
			Validate(),
		validation.NewConfigValidator("campus").
			Custom("time_zone", func() error {
				_, err := c.Location()
				return err
			}).
			Validate(),
		validation.NewConfigValidator("routing").
			NonNegativeFloat("transition_penalty", c.Routing.TransitionPenalty).
			Custom("transition_penalty", func() error {
				if limit := storage.MaxEdgeCost.Float(); c.Routing.TransitionPenalty > limit {
					return fmt.Errorf("value %g exceeds %g", c.Routing.TransitionPenalty, limit)
				}
				return nil
			}).
			MinDuration("query_timeout", c.Routing.QueryTimeout, time.Millisecond).
			NonNegative("workers", c.Routing.Workers).
			NonNegative("max_expansions", c.Routing.MaxExpansions).
			Custom("strategy", func() error {
				_, err := algorithms.ParseStrategy(c.Routing.Strategy)
				return err
			}).
			Validate(),
		validation.NewConfigValidator("logging").
			OneOf("level", c.Logging.Level, "debug", "info", "warn", "error").
			Validate(),
		validation.NewConfigValidator("auth").
			When(c.Auth.JWTSecret != "", func(v *validation.ConfigValidator) {
				v.Custom("jwt_secret", func() error {
					if len(c.Auth.JWTSecret) < 32 {
						return auth.ErrShortSecret
					}
					return nil
				})
				v.MinDuration("token_ttl", c.Auth.TokenTTL, time.Minute)
			}).
			When(c.Auth.Require, func(v *validation.ConfigValidator) {
				v.Custom("require", func() error {
					if !c.Auth.Enabled() {
						return errors.New("auth is required but no jwt_secret or api_keys are configured")
					}
					return nil
				})
			}).
			Custom("api_keys", func() error {
				_, err := auth.NewAPIKeyStore(c.Auth.APIKeys)
				return err
			}).
			Validate(),
		validation.NewConfigValidator("snapshot").
			NonNegative("keep", c.Snapshot.Keep).
			When(c.Snapshot.SaveOnIngest, func(v *validation.ConfigValidator) {
				v.Custom("save_on_ingest", func() error {
					if !c.Snapshot.Enabled() {
						return errors.New("save_on_ingest needs dir or s3.bucket")
					}
					return nil
				})
			}).
			Validate(),
		validation.NewConfigValidator("replication").
			OneOf("role", c.Replication.Role, RoleNone, RolePrimary, RoleReplica).
			When(c.Replication.Role != RoleNone, func(v *validation.ConfigValidator) {
				v.Required("publish_addr", c.Replication.PublishAddr)
			}).
			Validate(),
	)
}

// Location loads the campus time zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(validation.DefaultOr(c.Campus.TimeZone, "UTC"))
}

// LoggerConfig converts the logging section.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{Level: c.Logging.Level, Pretty: c.Logging.Pretty}
}
