package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/EconSOM/internal/config"
)

// validConfig returns a Config that passes Validate() with all required fields set.
func validConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Database.User = "econsom"
	cfg.Database.Password = "secret"
	return cfg
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Errors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"server port", func(c *config.Config) { c.Server.Port = 70000 }, "server.port"},
		{"server mode", func(c *config.Config) { c.Server.Mode = "production" }, "server.mode"},
		{"rate limit", func(c *config.Config) { c.Server.RateLimit = -1 }, "server.rate_limit"},
		{"db driver", func(c *config.Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"db host", func(c *config.Config) { c.Database.Host = "" }, "database.host"},
		{"db user", func(c *config.Config) { c.Database.User = "" }, "database.user"},
		{"db name", func(c *config.Config) { c.Database.DBName = "" }, "database.db_name"},
		{"db conns", func(c *config.Config) { c.Database.MaxOpenConns = 0 }, "database.max_open_conns"},
		{"redis addr", func(c *config.Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }, "redis.addr"},
		{"kafka brokers", func(c *config.Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"kafka sasl", func(c *config.Config) { c.Kafka.Enabled = true; c.Kafka.SASLMechanism = "GSSAPI" }, "kafka.sasl_mechanism"},
		{"kafka sasl creds", func(c *config.Config) { c.Kafka.Enabled = true; c.Kafka.SASLMechanism = "PLAIN" }, "kafka.sasl_username"},
		{"minio bucket", func(c *config.Config) { c.MinIO.Enabled = true; c.MinIO.Bucket = "" }, "minio.bucket"},
		{"metrics port", func(c *config.Config) { c.Metrics.Enabled = true; c.Metrics.Port = -1 }, "metrics.port"},
		{"worker", func(c *config.Config) { c.Worker.Concurrency = 0 }, "worker.concurrency"},
		{"log level", func(c *config.Config) { c.Log.Level = "verbose" }, "log.level"},
		{"log format", func(c *config.Config) { c.Log.Format = "xml" }, "log.format"},
		{"profile", func(c *config.Config) { c.Analysis.Profile = "debug" }, "analysis.profile"},
		{"grid", func(c *config.Config) { c.Analysis.Cols = -2 }, "analysis grid"},
		{"decay floor", func(c *config.Config) { c.Analysis.DecayFloor = 2 }, "analysis.decay_floor"},
		{"selection", func(c *config.Config) { c.Analysis.Selection = "shuffle" }, "analysis.selection"},
		{"coverage", func(c *config.Config) { v := 1.2; c.Analysis.RowCoverage = &v }, "analysis.row_coverage"},
		{"dedup", func(c *config.Config) { c.Analysis.DedupPolicy = "first" }, "analysis.dedup_policy"},
		{"concurrency", func(c *config.Config) { c.Analysis.MaxConcurrent = -1 }, "analysis.max_concurrent"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestConfig_DisabledSectionsAreNotValidated(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Redis.Addr = ""
	cfg.Kafka.Brokers = nil
	cfg.MinIO.Endpoint = ""
	assert.NoError(t, cfg.Validate())
}

func TestServerConfig_Addr(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "127.0.0.1:9000", config.ServerConfig{Host: "127.0.0.1", Port: 9000}.Addr())
}

//Personal.AI order the ending
