// Package config loads Settings from configuration.yaml and APP_* environment variables.
package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	configName = "configuration"
	envPrefix  = "APP"
)

var defaults = map[string]any{
	"application.service_name":        "newsletter",
	"application.service_version":     "1.0.0",
	"application.host":                "127.0.0.1",
	"application.port":                8000,
	"application.gin_mode":            "release",
	"application.metrics_path":        "/metrics",
	"application.read_header_timeout": "5s",
	"application.read_timeout":        "10s",
	"application.write_timeout":       "10s",
	"application.idle_timeout":        "60s",
	"application.request_timeout":     "10s",
	"application.shutdown_timeout":    "30s",

	"database.backend":           BackendPostgres,
	"database.host":              "127.0.0.1",
	"database.port":              5432,
	"database.username":          "postgres",
	"database.password":          "password",
	"database.name":              "newsletter",
	"database.ssl_mode":          "disable",
	"database.max_open_conns":    10,
	"database.max_idle_conns":    10,
	"database.conn_max_lifetime": "30m",
	"database.connect_timeout":   "2s",
	"database.ping_on_startup":   true,

	"dapr.address": "",
	"dapr.binding": "subscriptions-db",

	"log.level":             "info",
	"log.format":            "json",
	"log.output":            "stdout",
	"log.file.path":         "newsletter.log",
	"log.file.max_size_mb":  100,
	"log.file.max_backups":  3,
	"log.file.max_age_days": 28,
	"log.file.compress":     true,

	"telemetry.exporter":     "stdout",
	"telemetry.sample_ratio": 1.0,
}

// Load reads configuration.yaml from dir, then applies environment overrides.
// A missing file is not an error; defaults apply. Nested keys map to
// environment variables with "__", e.g. APP_DATABASE__HOST.
func Load(dir string) (Settings, error) {
	if dir == "" {
		dir = "."
	}

	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, errors.Wrap(err, "failed to read configuration file")
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, errors.Wrap(err, "failed to decode configuration")
	}

	return s, Validate(s)
}

// Validate checks the settings the server can not start without.
func Validate(s Settings) error {
	invalid := "invalid config"

	if s.Application.Port < 0 || s.Application.Port > 65535 {
		return errors.Wrap(ErrInvalidPort, invalid)
	}

	for _, d := range []struct {
		name  string
		value int64
	}{
		{"application.read_header_timeout", int64(s.Application.ReadHeaderTimeout)},
		{"application.read_timeout", int64(s.Application.ReadTimeout)},
		{"application.write_timeout", int64(s.Application.WriteTimeout)},
		{"application.idle_timeout", int64(s.Application.IdleTimeout)},
		{"application.request_timeout", int64(s.Application.RequestTimeout)},
		{"application.shutdown_timeout", int64(s.Application.ShutdownTimeout)},
		{"database.connect_timeout", int64(s.Database.ConnectTimeout)},
	} {
		if d.value <= 0 {
			return errors.Wrapf(ErrNonPositiveTimeout, "%s: %s", invalid, d.name)
		}
	}

	if s.Application.MetricsPath != "" && !strings.HasPrefix(s.Application.MetricsPath, "/") {
		return errors.Wrap(ErrInvalidMetricsPath, invalid)
	}

	switch s.Database.Backend {
	case BackendPostgres, BackendMemory:
	case BackendDapr:
		if s.Dapr.Binding == "" {
			return errors.Wrap(ErrEmptyDaprBinding, invalid)
		}
	default:
		return errors.Wrapf(ErrUnknownBackend, "%s: %q", invalid, s.Database.Backend)
	}

	switch s.Log.Format {
	case "json", "text":
	default:
		return errors.Wrapf(ErrUnknownLogFormat, "%s: %q", invalid, s.Log.Format)
	}

	switch s.Log.Output {
	case "stdout", "stderr", "file":
	default:
		return errors.Wrapf(ErrUnknownLogOutput, "%s: %q", invalid, s.Log.Output)
	}

	switch s.Telemetry.Exporter {
	case "stdout", "none":
	default:
		return errors.Wrapf(ErrUnknownExporter, "%s: %q", invalid, s.Telemetry.Exporter)
	}

	if s.Telemetry.SampleRatio < 0 || s.Telemetry.SampleRatio > 1 {
		return errors.Wrap(ErrInvalidSampleRatio, invalid)
	}

	return nil
}
