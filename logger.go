package eldapo

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with eldapo-specific context: structured
// logging with consistent field names across the tailer (LogPoll) and the
// Directory's search and apply paths (LogSearch, LogApplyChange).
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler. A nil handler falls
// back to a text handler on stderr at info level.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that emits JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger discards all log output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(1000)}))}
}

// WithSeq adds a sequence/revision field to the logger (the tailer's
// watermark in LogPoll, an entry's rev in LogApplyChange).
func (l *Logger) WithSeq(seq int64) *Logger {
	return &Logger{Logger: l.Logger.With("seq", seq)}
}

// WithRequester adds the requester's subject to the logger.
func (l *Logger) WithRequester(subject string) *Logger {
	return &Logger{Logger: l.Logger.With("subject", subject)}
}

// LogSearch logs a search operation against the request surface.
func (l *Logger) LogSearch(filter string, limit, resultCount int, requester string, err error) {
	lg := l.WithRequester(requester)
	if err != nil {
		lg.Error("search failed", "filter", filter, "limit", limit, "error", err)
		return
	}
	lg.Debug("search completed", "filter", filter, "limit", limit, "results", resultCount)
}

// LogApplyChange logs one tailer-applied change. applied is false when the
// incoming rev was not strictly greater than the stored rev and the
// update was discarded.
func (l *Logger) LogApplyChange(id string, rev int64, applied bool) {
	lg := l.WithSeq(rev)
	if applied {
		lg.Debug("change applied", "id", id)
		return
	}
	lg.Debug("change discarded: stale rev", "id", id)
}

// LogPoll logs one tailer poll cycle.
func (l *Logger) LogPoll(lastSeq int64, rows int, err error) {
	lg := l.WithSeq(lastSeq)
	if err != nil {
		lg.Error("poll failed", "error", err)
		return
	}
	lg.Debug("poll completed", "rows", rows)
}
