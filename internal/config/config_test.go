package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avkarenow/beacond/internal/domain"
)

func TestNotifyLevel_IsValid(t *testing.T) {
	tests := []struct {
		level NotifyLevel
		want  bool
	}{
		{NotifyError, true},
		{NotifyWarning, true},
		{NotifyAlways, true},
		{NotifyLevel("invalid"), false},
		{NotifyLevel(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.IsValid())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	validConfig := func() *Config {
		return &Config{
			Service: ServiceConfig{
				Name:      "beacond",
				Scope:     "system",
				KeepAlive: true,
			},
			Beacon: BeaconConfig{
				Interval:  30 * time.Second,
				CPUSample: 200 * time.Millisecond,
			},
			Retry: RetryConfig{
				MaxAttempts:  3,
				InitialDelay: 5 * time.Second,
				MaxDelay:     30 * time.Second,
			},
			Metrics: MetricsConfig{
				Enabled:        true,
				PushgatewayURL: "http://pushgateway:9091",
			},
			Apprise: AppriseConfig{
				Enabled: true,
				URL:     "http://localhost:8000",
				Key:     "beacond",
				Notify:  NotifyError,
			},
			Log: LogConfig{
				Level:     "info",
				MaxSizeMB: 10,
			},
		}
	}

	t.Run("valid config", func(t *testing.T) {
		cfg := validConfig()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing service name", func(t *testing.T) {
		cfg := validConfig()
		cfg.Service.Name = ""
		assert.ErrorContains(t, cfg.Validate(), "service.name is required")
	})

	t.Run("invalid scope", func(t *testing.T) {
		cfg := validConfig()
		cfg.Service.Scope = "galactic"
		assert.ErrorContains(t, cfg.Validate(), "service.scope")
	})

	t.Run("invalid session target", func(t *testing.T) {
		cfg := validConfig()
		cfg.Service.SessionTargets = []string{"interactive", "hologram"}
		assert.ErrorContains(t, cfg.Validate(), "service.session_targets")
	})

	t.Run("interval too short", func(t *testing.T) {
		cfg := validConfig()
		cfg.Beacon.Interval = 500 * time.Millisecond
		assert.ErrorContains(t, cfg.Validate(), "beacon.interval must be at least 1 second")
	})

	t.Run("cpu sample must be positive", func(t *testing.T) {
		cfg := validConfig()
		cfg.Beacon.CPUSample = 0
		assert.ErrorContains(t, cfg.Validate(), "beacon.cpu_sample must be positive")
	})

	t.Run("cpu sample longer than interval", func(t *testing.T) {
		cfg := validConfig()
		cfg.Beacon.CPUSample = time.Minute
		assert.ErrorContains(t, cfg.Validate(), "beacon.cpu_sample must be shorter")
	})

	t.Run("empty pushgateway URL when metrics enabled", func(t *testing.T) {
		cfg := validConfig()
		cfg.Metrics.Enabled = true
		cfg.Metrics.PushgatewayURL = ""
		assert.ErrorContains(t, cfg.Validate(), "metrics.pushgateway_url is required when metrics is enabled")
	})

	t.Run("metrics disabled skips validation", func(t *testing.T) {
		cfg := validConfig()
		cfg.Metrics.Enabled = false
		cfg.Metrics.PushgatewayURL = ""
		assert.NoError(t, cfg.Validate())
	})

	t.Run("retry max_attempts less than 1", func(t *testing.T) {
		cfg := validConfig()
		cfg.Retry.MaxAttempts = 0
		assert.ErrorContains(t, cfg.Validate(), "retry.max_attempts must be at least 1")
	})

	t.Run("retry max_delay less than initial_delay", func(t *testing.T) {
		cfg := validConfig()
		cfg.Retry.MaxDelay = 1 * time.Second
		cfg.Retry.InitialDelay = 5 * time.Second
		assert.ErrorContains(t, cfg.Validate(), "retry.max_delay must be >= retry.initial_delay")
	})

	t.Run("apprise enabled without URL", func(t *testing.T) {
		cfg := validConfig()
		cfg.Apprise.Enabled = true
		cfg.Apprise.URL = ""
		assert.ErrorContains(t, cfg.Validate(), "apprise.url is required")
	})

	t.Run("apprise enabled without key", func(t *testing.T) {
		cfg := validConfig()
		cfg.Apprise.Enabled = true
		cfg.Apprise.Key = ""
		assert.ErrorContains(t, cfg.Validate(), "apprise.key is required")
	})

	t.Run("invalid apprise notify level", func(t *testing.T) {
		cfg := validConfig()
		cfg.Apprise.Notify = NotifyLevel("invalid")
		assert.ErrorContains(t, cfg.Validate(), "apprise.notify must be one of")
	})

	t.Run("apprise disabled skips validation", func(t *testing.T) {
		cfg := validConfig()
		cfg.Apprise.Enabled = false
		cfg.Apprise.URL = ""
		cfg.Apprise.Key = ""
		assert.NoError(t, cfg.Validate())
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := validConfig()
		cfg.Log.Level = "invalid"
		assert.ErrorContains(t, cfg.Validate(), "log.level must be one of")
	})

	t.Run("log max_size_mb less than 1", func(t *testing.T) {
		cfg := validConfig()
		cfg.Log.MaxSizeMB = 0
		assert.ErrorContains(t, cfg.Validate(), "log.max_size_mb must be at least 1")
	})
}

func TestServiceConfig_Spec(t *testing.T) {
	t.Run("builds spec", func(t *testing.T) {
		sc := ServiceConfig{
			Name:           "sample.agent",
			DisplayName:    "Sample Agent",
			Scope:          "user",
			SessionTargets: []string{"interactive"},
			KeepAlive:      true,
		}

		spec, err := sc.Spec("/usr/local/bin/beacond")
		require.NoError(t, err)

		assert.Equal(t, "sample.agent", spec.Name)
		assert.Equal(t, domain.ScopeUserAgent, spec.Scope)
		assert.Equal(t, []domain.SessionTarget{domain.SessionInteractive}, spec.SessionTargets)
		assert.True(t, spec.KeepAlive)
		assert.Equal(t, "/usr/local/bin/beacond", spec.ExecutablePath)
	})

	t.Run("rejects bad scope", func(t *testing.T) {
		sc := ServiceConfig{Name: "beacond", Scope: "galactic"}

		_, err := sc.Spec("/usr/local/bin/beacond")
		assert.Error(t, err)
	})

	t.Run("rejects relative executable", func(t *testing.T) {
		sc := ServiceConfig{Name: "beacond", Scope: "system"}

		_, err := sc.Spec("beacond")
		assert.Error(t, err)
	})
}

func TestLoader_Load_Defaults(t *testing.T) {
	loader := NewLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultServiceName, cfg.Service.Name)
	assert.Equal(t, DefaultServiceDisplayName, cfg.Service.DisplayName)
	assert.Equal(t, DefaultServiceScope, cfg.Service.Scope)
	assert.Equal(t, DefaultServiceKeepAlive, cfg.Service.KeepAlive)
	assert.Equal(t, DefaultBeaconInterval, cfg.Beacon.Interval)
	assert.Equal(t, DefaultBeaconCPUSample, cfg.Beacon.CPUSample)
	assert.Equal(t, DefaultMetricsEnabled, cfg.Metrics.Enabled)
	assert.Equal(t, DefaultMetricsPushgatewayURL, cfg.Metrics.PushgatewayURL)
	assert.Equal(t, DefaultRetryMaxAttempts, cfg.Retry.MaxAttempts)
	assert.Equal(t, DefaultRetryInitialDelay, cfg.Retry.InitialDelay)
	assert.Equal(t, DefaultRetryMaxDelay, cfg.Retry.MaxDelay)
	assert.Equal(t, DefaultAppriseEnabled, cfg.Apprise.Enabled)
	assert.Equal(t, DefaultAppriseNotify, cfg.Apprise.Notify)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogMaxSizeMB, cfg.Log.MaxSizeMB)
}

func TestLoader_Load_FromFile(t *testing.T) {
	// Create temp config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
[service]
name = "sample.agent"
display_name = "Sample Agent"
scope = "user"
session_targets = ["interactive"]
keep_alive = false

[beacon]
interval = "10s"
cpu_sample = "100ms"

[retry]
max_attempts = 5
initial_delay = "10s"
max_delay = "60s"

[metrics]
enabled = true
pushgateway_url = "http://custom-pushgateway:9091"

[apprise]
enabled = false
url = "http://apprise:8000"
key = "test"
notify = "always"

[log]
level = "debug"
max_size_mb = 20
`
	err := os.WriteFile(configPath, []byte(content), 0600)
	require.NoError(t, err)

	loader := NewLoader().WithConfigPath(configPath)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "sample.agent", cfg.Service.Name)
	assert.Equal(t, "Sample Agent", cfg.Service.DisplayName)
	assert.Equal(t, "user", cfg.Service.Scope)
	assert.Equal(t, []string{"interactive"}, cfg.Service.SessionTargets)
	assert.False(t, cfg.Service.KeepAlive)
	assert.Equal(t, 10*time.Second, cfg.Beacon.Interval)
	assert.Equal(t, 100*time.Millisecond, cfg.Beacon.CPUSample)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "http://custom-pushgateway:9091", cfg.Metrics.PushgatewayURL)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, 60*time.Second, cfg.Retry.MaxDelay)
	assert.False(t, cfg.Apprise.Enabled)
	assert.Equal(t, "http://apprise:8000", cfg.Apprise.URL)
	assert.Equal(t, "test", cfg.Apprise.Key)
	assert.Equal(t, NotifyAlways, cfg.Apprise.Notify)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 20, cfg.Log.MaxSizeMB)
}

func TestLoader_Load_EnvOverrides(t *testing.T) {
	// Set environment variables
	t.Setenv("BEACOND_SERVICE_NAME", "env.agent")
	t.Setenv("BEACOND_BEACON_INTERVAL", "45s")
	t.Setenv("BEACOND_LOG_LEVEL", "debug")

	loader := NewLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "env.agent", cfg.Service.Name)
	assert.Equal(t, 45*time.Second, cfg.Beacon.Interval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_Set(t *testing.T) {
	loader := NewLoader()
	loader.Set("beacon.interval", "60s")
	loader.Set("log.level", "error")

	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.Beacon.Interval)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestWriteExampleConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.toml")

	err := WriteExampleConfig(configPath)
	require.NoError(t, err)

	// Verify file exists
	_, err = os.Stat(configPath)
	require.NoError(t, err)

	// Verify it can be loaded
	loader := NewLoader().WithConfigPath(configPath)
	cfg, err := loader.Load()
	require.NoError(t, err)

	// Should have default values
	assert.Equal(t, DefaultServiceName, cfg.Service.Name)
	assert.Equal(t, DefaultBeaconInterval, cfg.Beacon.Interval)
}

func TestDefaultConfigDir(t *testing.T) {
	dir, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.NotEmpty(t, dir)
	assert.Contains(t, dir, AppName)
}

func TestDefaultConfigPath(t *testing.T) {
	path, err := DefaultConfigPath()
	require.NoError(t, err)
	assert.NotEmpty(t, path)
	assert.Contains(t, path, ConfigFileName)
}

func TestDefaultLogPath(t *testing.T) {
	path, err := DefaultLogPath()
	require.NoError(t, err)
	assert.Contains(t, path, AppName+".log")
}
