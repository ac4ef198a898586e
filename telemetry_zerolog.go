package sdk

import (
	"context"

	"github.com/rs/zerolog"
)

// ZerologTelemetry returns hooks that forward SDK log entries and metrics to
// logger. Metrics are written at debug level under the "metric" message.
//
// Example:
//
//	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	client, err := sdk.NewClient(sdk.Config{APIKey: key, Telemetry: sdk.ZerologTelemetry(logger)})
func ZerologTelemetry(logger zerolog.Logger) TelemetryHooks {
	return TelemetryHooks{
		OnLogEntry: func(_ context.Context, entry LogEntry) {
			logger.WithLevel(zerologLevel(entry.Level)).Fields(entry.Fields).Msg(entry.Message)
		},
		OnMetric: func(_ context.Context, m Metric) {
			labels := zerolog.Dict()
			for k, v := range m.Labels {
				labels = labels.Str(k, v)
			}
			logger.Debug().Str("name", m.Name).Float64("value", m.Value).Dict("labels", labels).Msg("metric")
		},
	}
}

func zerologLevel(level LogLevel) zerolog.Level {
	switch level {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
