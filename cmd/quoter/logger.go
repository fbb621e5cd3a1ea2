package main

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// zapAdapter bridges a zap logger to the library's Logger interface.
type zapAdapter struct {
	sugar *zap.SugaredLogger
}

func newZapAdapter(logger *zap.Logger) zapAdapter {
	return zapAdapter{sugar: logger.Sugar()}
}

func (a zapAdapter) Debug(msg string, args ...any) { a.sugar.Debugw(msg, args...) }
func (a zapAdapter) Info(msg string, args ...any)  { a.sugar.Infow(msg, args...) }
func (a zapAdapter) Warn(msg string, args ...any)  { a.sugar.Warnw(msg, args...) }
func (a zapAdapter) Error(msg string, args ...any) { a.sugar.Errorw(msg, args...) }
