package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/hyperdiff/pkg/config"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/matchers"
	"github.com/Sumatoshi-tech/hyperdiff/pkg/observability"
)

const (
	testPort          = 9000
	testSizeThreshold = 50
	testWorkers       = 4
	testBodyBytes     = 2_000_000
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hyperdiff.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, config.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, config.DefaultServerHost, cfg.Server.Host)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, config.DefaultLogFormat, cfg.Logging.Format)

	mc, err := cfg.MatcherConfig()
	require.NoError(t, err)
	assert.Equal(t, matchers.DefaultConfig(), mc)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
matcher:
  size_threshold: 50
  sim_threshold_num: 2
  sim_threshold_den: 3
  slicing: decompress
server:
  port: 9000
  max_body_size: 2MB
logging:
  level: debug
  format: json
batch:
  workers: 4
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	mc, err := cfg.MatcherConfig()
	require.NoError(t, err)
	assert.Equal(t, testSizeThreshold, mc.SizeThreshold)
	assert.InDelta(t, 2.0/3.0, mc.SimThreshold(), 1e-9)
	assert.Equal(t, matchers.SliceDecompress, mc.Slicing)
	assert.Equal(t, config.DefaultMinHeight, mc.MinHeight)

	assert.Equal(t, testPort, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr())
	assert.Equal(t, testWorkers, cfg.Batch.Workers)

	limit, err := cfg.Server.MaxBodyBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(testBodyBytes), limit)

	oc := cfg.ObservabilityConfig(observability.ModeServer, "v1.2.3")
	assert.Equal(t, slog.LevelDebug, oc.LogLevel)
	assert.True(t, oc.LogJSON)
	assert.Equal(t, observability.ModeServer, oc.Mode)
	assert.Equal(t, "v1.2.3", oc.ServiceVersion)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("HYPERDIFF_MATCHER_SIZE_THRESHOLD", "7")
	t.Setenv("HYPERDIFF_SERVER_PORT", "9100")

	cfg, err := config.LoadConfig(writeConfig(t, "server:\n  port: 9000\n"))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Matcher.SizeThreshold)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"port", "server:\n  port: 70000\n", config.ErrInvalidPort},
		{"slicing", "matcher:\n  slicing: sideways\n", matchers.ErrUnknownSlicing},
		{"threshold", "matcher:\n  sim_threshold_num: 3\n", matchers.ErrInvalidSimThreshold},
		{"level", "logging:\n  level: loud\n", observability.ErrUnknownLogLevel},
		{"format", "logging:\n  format: xml\n", config.ErrInvalidLogFormat},
		{"ratio", "observability:\n  sample_ratio: 2\n", config.ErrInvalidSampleRatio},
		{"workers", "batch:\n  workers: -1\n", config.ErrInvalidWorkers},
		{"body", "server:\n  max_body_size: lots\n", config.ErrInvalidBodyLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
