// Package logging builds the zap logger used by the CLI and adapts it to the
// narrow logger interface the persistence service accepts.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON production logger at the given level ("debug", "info",
// "warn", "error"). An empty level means info.
func New(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if strings.TrimSpace(level) != "" {
		parsed, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		lvl = parsed
	}
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Sugared forwards leveled messages with alternating key/value args to a
// zap SugaredLogger.
type Sugared struct {
	log *zap.SugaredLogger
}

// Adapt wraps l. A nil logger yields a no-op logger.
func Adapt(l *zap.Logger) Sugared {
	if l == nil {
		l = zap.NewNop()
	}
	return Sugared{log: l.Sugar()}
}

// Debug logs msg at debug level with key/value args.
func (s Sugared) Debug(msg string, args ...any) { s.log.Debugw(msg, args...) }

// Info logs msg at info level with key/value args.
func (s Sugared) Info(msg string, args ...any) { s.log.Infow(msg, args...) }

// Warn logs msg at warn level with key/value args.
func (s Sugared) Warn(msg string, args ...any) { s.log.Warnw(msg, args...) }

// Error logs msg at error level with key/value args.
func (s Sugared) Error(msg string, args ...any) { s.log.Errorw(msg, args...) }
