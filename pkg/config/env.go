package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix starts every override variable.
const EnvPrefix = "NAV_"

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// envBinding maps one variable onto a config field.
type envBinding struct {
	key string
	set func(value string) error
}

func (c *Config) envBindings() []envBinding {
	return []envBinding{
		{"SERVER_ADDR", setString(&c.Server.Addr)},
		{"SERVER_READ_TIMEOUT", setDuration(&c.Server.ReadTimeout)},
		{"SERVER_WRITE_TIMEOUT", setDuration(&c.Server.WriteTimeout)},
		{"SERVER_SHUTDOWN_TIMEOUT", setDuration(&c.Server.ShutdownTimeout)},
		{"SERVER_MAX_BODY_BYTES", setInt64(&c.Server.MaxBodyBytes)},
		{"SERVER_RATE_LIMIT_RPS", setFloat(&c.Server.RateLimitRPS)},
		{"SERVER_RATE_LIMIT_BURST", setInt(&c.Server.RateLimitBurst)},
		{"CAMPUS_TIME_ZONE", setString(&c.Campus.TimeZone)},
		{"CAMPUS_MAP_FILE", setString(&c.Campus.MapFile)},
		{"ROUTING_TRANSITION_PENALTY", setFloat(&c.Routing.TransitionPenalty)},
		{"ROUTING_QUERY_TIMEOUT", setDuration(&c.Routing.QueryTimeout)},
		{"ROUTING_WORKERS", setInt(&c.Routing.Workers)},
		{"ROUTING_MAX_EXPANSIONS", setInt(&c.Routing.MaxExpansions)},
		{"ROUTING_STRATEGY", setString(&c.Routing.Strategy)},
		{"ROUTING_STRICT_TOPOLOGY", setBool(&c.Routing.StrictTopology)},
		{"LOG_LEVEL", setString(&c.Logging.Level)},
		{"LOG_PRETTY", setBool(&c.Logging.Pretty)},
		{"AUTH_JWT_SECRET", setString(&c.Auth.JWTSecret)},
		{"AUTH_TOKEN_TTL", setDuration(&c.Auth.TokenTTL)},
		{"AUTH_REQUIRE", setBool(&c.Auth.Require)},
		{"SNAPSHOT_DIR", setString(&c.Snapshot.Dir)},
		{"SNAPSHOT_KEEP", setInt(&c.Snapshot.Keep)},
		{"SNAPSHOT_SAVE_ON_INGEST", setBool(&c.Snapshot.SaveOnIngest)},
		{"SNAPSHOT_S3_BUCKET", setString(&c.Snapshot.S3.Bucket)},
		{"SNAPSHOT_S3_PREFIX", setString(&c.Snapshot.S3.Prefix)},
		{"SNAPSHOT_S3_REGION", setString(&c.Snapshot.S3.Region)},
		{"SNAPSHOT_S3_ENDPOINT", setString(&c.Snapshot.S3.Endpoint)},
		{"POSTGRES_URL", setString(&c.Postgres.URL)},
		{"REPLICATION_ROLE", setString(&c.Replication.Role)},
		{"REPLICATION_PUBLISH_ADDR", setString(&c.Replication.PublishAddr)},
		{"REPLICATION_HEALTH_ADDR", setString(&c.Replication.HealthAddr)},
		{"REPLICATION_NODE_ID", setString(&c.Replication.NodeID)},
	}
}

// ApplyEnv overrides fields from NAV_* variables found by lookup.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	for _, b := range c.envBindings() {
		value, ok := lookup(EnvPrefix + b.key)
		if !ok {
			continue
		}
		if err := b.set(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, b.key, err)
		}
	}
	return nil
}

// EnvKeys lists every recognized variable.
func EnvKeys() []string {
	var c Config
	bindings := c.envBindings()
	keys := make([]string, len(bindings))
	for i, b := range bindings {
		keys[i] = EnvPrefix + b.key
	}
	return keys
}

func setString(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func setBool(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func setInt64(dst *int64) func(string) error {
	return func(v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func setFloat(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func setDuration(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}
