package simdb

import (
	"log/slog"
	"os"
)

var logLevel = new(slog.LevelVar)

// ConfigureLogging sets up the global default logger with a TextHandler
// and configures the log level based on the SIMDB_LOG_LEVEL environment
// variable. It defaults to Info level if not specified.
//
// This writes diagnostics only: the directive loop's report lines (spec §6)
// are written directly to the driver's io.Writer and never go through this
// logger.
func ConfigureLogging() {
	logLevel.Set(slog.LevelInfo)

	switch os.Getenv("SIMDB_LOG_LEVEL") {
	case "DEBUG":
		logLevel.Set(slog.LevelDebug)
	case "WARN":
		logLevel.Set(slog.LevelWarn)
	case "ERROR":
		logLevel.Set(slog.LevelError)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// SetLogLevel sets the logging level for the logger configured by ConfigureLogging.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}
