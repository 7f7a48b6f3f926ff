// Package logger builds the slog.Logger used across hapticqueue and provides
// attribute helpers so queue, executor, and device logs share key names.
//
// New applies functional options (format, level, static attributes, context
// extractors) and wraps the chosen slog handler with LogHandlerDecorator,
// which injects attributes pulled from context.Context on every record.
//
//	log := logger.New(
//		logger.WithEnvironment(os.Getenv("APP_ENV"), "hapticd"),
//		logger.WithLevelName(os.Getenv("LOG_LEVEL")),
//	)
//	log.Info("command sent",
//		logger.QueueID(item.ID),
//		logger.DeviceID(cmd.DeviceID()),
//		logger.Duration(time.Since(start)),
//	)
//
// Error and the id helpers return an empty attribute for nil or empty input,
// so they can be passed unconditionally.
package logger
