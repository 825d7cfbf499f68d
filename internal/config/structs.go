package config

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

const (
	BackendPostgres = "postgres"
	BackendDapr     = "dapr"
	BackendMemory   = "memory"
)

// Settings overall data structure.
type Settings struct {
	Application Application `mapstructure:"application"`
	Database    Database    `mapstructure:"database"`
	Dapr        Dapr        `mapstructure:"dapr"`
	Log         Log         `mapstructure:"log"`
	Telemetry   Telemetry   `mapstructure:"telemetry"`
}

// Application holds the HTTP server settings.
type Application struct {
	ServiceName       string        `mapstructure:"service_name"`
	ServiceVersion    string        `mapstructure:"service_version"`
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	GinMode           string        `mapstructure:"gin_mode"`
	MetricsPath       string        `mapstructure:"metrics_path"` // empty disables the metrics route
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// Address is the host:port the listener binds to.
func (a Application) Address() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Database holds the connection descriptor and pool limits.
type Database struct {
	Backend         string        `mapstructure:"backend"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        Secret        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	PingOnStartup   bool          `mapstructure:"ping_on_startup"`
}

// ConnectionString is the postgres URL for the configured database.
func (d Database) ConnectionString() Secret {
	u := d.baseURL()
	u.Path = "/" + d.Name

	return Secret(u.String())
}

// ConnectionStringWithoutDB points at the server only, used to create databases.
func (d Database) ConnectionStringWithoutDB() Secret {
	return Secret(d.baseURL().String())
}

func (d Database) baseURL() *url.URL {
	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}

	if secs := int(d.ConnectTimeout / time.Second); secs > 0 {
		q.Set("connect_timeout", strconv.Itoa(secs))
	}

	return &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.Username, d.Password.Expose()),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		RawQuery: q.Encode(),
	}
}

// Dapr holds the sidecar settings for the dapr storage backend.
type Dapr struct {
	Address string `mapstructure:"address"` // empty uses the sidecar default from the environment
	Binding string `mapstructure:"binding"`
}

// Log holds the logger settings.
type Log struct {
	Level  string  `mapstructure:"level"`
	Format string  `mapstructure:"format"`
	Output string  `mapstructure:"output"`
	File   LogFile `mapstructure:"file"`
}

// LogFile configures the rotating log file used when Log.Output is "file".
type LogFile struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Telemetry holds the tracing settings.
type Telemetry struct {
	Exporter    string  `mapstructure:"exporter"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}
