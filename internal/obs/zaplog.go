package obs

import (
	"go.uber.org/zap"

	"piececore/pkg/domain"
)

// ZapLogger adapts a zap sugared logger to the domain.Logger contract.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// LogConfig holds structured-logging configuration.
type LogConfig struct {
	Level       string // debug|info|warn|error (default info)
	Format      string // "json" or "console" (default json)
	Development bool
}

// NewZapLogger builds a production zap logger honoring cfg.
func NewZapLogger(cfg LogConfig) (*ZapLogger, error) {
	var zapConfig zap.Config
	if cfg.Development {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	} else {
		zapConfig.Encoding = "json"
	}
	logger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: logger.Sugar()}, nil
}

// NewDefaultZapLogger builds a JSON info-level logger.
func NewDefaultZapLogger() *ZapLogger {
	l, err := NewZapLogger(LogConfig{})
	if err != nil {
		// Config above is static; Build only fails on invalid sink setups.
		return &ZapLogger{sugar: zap.NewNop().Sugar()}
	}
	return l
}

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error { return l.sugar.Sync() }

// Debug implements domain.Logger.
func (l *ZapLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }

// Info implements domain.Logger.
func (l *ZapLogger) Info(msg string, args ...any) { l.sugar.Infow(msg, args...) }

// Warn implements domain.Logger.
func (l *ZapLogger) Warn(msg string, args ...any) { l.sugar.Warnw(msg, args...) }

// Error implements domain.Logger.
func (l *ZapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

var _ domain.Logger = (*ZapLogger)(nil)
