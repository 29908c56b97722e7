// Package diag builds the loader's diagnostic logger: a slog.Logger
// that always writes records at or above the configured level to
// stderr, and, when configured with a path, fans out every record to a
// JSON-lines file as well — this is spec.md §6's "optional diagnostic
// log file at a well-known temporary path", which the original loader
// left as an ad hoc #ifdef'd fprintf and this rewrite makes a first-
// class (if still optional) component.
package diag

import (
	"fmt"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"

	"github.com/moneytech/objfcn/internal/config"
)

// New builds a logger per cfg. The returned closer must be called when
// the logger is no longer needed (it's a no-op if no diagnostic file
// was opened).
func New(cfg *config.Config) (*slog.Logger, func(), error) {
	level := parseLevel(cfg.DiagLevel)

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}
	closer := func() {}

	if cfg.DiagLogPath != "" {
		f, err := os.OpenFile(cfg.DiagLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("diag: opening diagnostic log %s: %w", cfg.DiagLogPath, err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		closer = func() { f.Close() }
	}

	logger := slog.New(slogmulti.Fanout(handlers...))
	return logger, closer, nil
}

func parseLevel(name string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return l
}
