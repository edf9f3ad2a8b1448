// Package logging provides structured logging with per-module log levels.
//
// Every package asks for its own logger:
//
//	logger := logging.GetLogger("devices")
//	logger.Debug("Reading controls", "device", 0)
//
// Records go to stderr (text or JSON), to the systemd journal when journald
// is reachable, and to an in-memory ring buffer that backs GET /api/logs and
// the log SSE stream. Stdout is left to command output.
//
// Levels are held in slog.LevelVar values, so Initialize, SetLevel and
// SetModuleLevel take effect on loggers already handed out:
//
//	[logging]
//	level = "info"
//	format = "text"
//	output = "stderr"
//
//	[logging.modules]
//	devices = "debug"
//
// A top-level device or control attribute ties a record to a camera. The
// buffer lifts them into LogEntry fields for LogQuery; the journal, like
// every other attribute, gets them as CAMCTL_* fields:
//
//	journalctl -t camctl CAMCTL_MODULE=devices CAMCTL_DEVICE=0
package logging
