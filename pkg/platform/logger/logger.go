// Package logger builds the zap SugaredLogger used across the service.
package logger

import (
	"strings"

	"go.uber.org/zap"
)

// New returns a sugared logger configured for the given mode.
// "prod"/"production" selects JSON output; anything else gets the
// developer console encoder. Level comes from mode too: production
// logs at Info, development at Debug.
func New(mode string) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return base.Sugar(), nil
}

// NewNop returns a logger that discards everything. Used by tests and
// by collaborators constructed without an explicit logger.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
