package config

import (
	"errors"
)

var (
	// ErrInvalidPort is returned when application.port is outside 0-65535.
	ErrInvalidPort = errors.New("config application.port must be between 0 and 65535")

	// ErrNonPositiveTimeout is returned when any server, request or connect timeout is not set.
	ErrNonPositiveTimeout = errors.New("config timeouts must be greater than zero")

	// ErrInvalidMetricsPath is returned when application.metrics_path does not start with a slash.
	ErrInvalidMetricsPath = errors.New("config application.metrics_path must start with /")

	// ErrUnknownBackend is returned for a database.backend other than postgres, dapr or memory.
	ErrUnknownBackend = errors.New("config database.backend must be one of postgres, dapr, memory")

	// ErrEmptyDaprBinding is returned when the dapr backend is selected without a binding name.
	ErrEmptyDaprBinding = errors.New("config dapr.binding can not be empty when database.backend is dapr")

	// ErrUnknownLogFormat is returned for a log.format other than json or text.
	ErrUnknownLogFormat = errors.New("config log.format must be json or text")

	// ErrUnknownLogOutput is returned for a log.output other than stdout, stderr or file.
	ErrUnknownLogOutput = errors.New("config log.output must be stdout, stderr or file")

	// ErrUnknownExporter is returned for a telemetry.exporter other than stdout or none.
	ErrUnknownExporter = errors.New("config telemetry.exporter must be stdout or none")

	// ErrInvalidSampleRatio is returned when telemetry.sample_ratio is outside [0, 1].
	ErrInvalidSampleRatio = errors.New("config telemetry.sample_ratio must be between 0 and 1")
)
