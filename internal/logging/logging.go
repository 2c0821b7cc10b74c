// Package logging builds the relay's zap loggers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// serviceName tags every production log line so relay output can be
// filtered out of shared log streams.
const serviceName = "readlater-relay"

// New builds the relay's root logger. Development output is colored
// console; production output is JSON carrying a service field.
func New(development bool) (*zap.Logger, error) {
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return logger, nil
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = false
	cfg.EncoderConfig.TimeKey = "ts"
	logger, err := cfg.Build(zap.Fields(zap.String("service", serviceName)))
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}

// Component returns a named sub-logger for one relay component (api,
// tagger, annotate, content, completion). A nil root yields a no-op
// logger so components stay usable in isolation.
func Component(root *zap.Logger, name string) *zap.Logger {
	if root == nil {
		return zap.NewNop()
	}
	return root.Named(name)
}
