package logger

import (
	"go.uber.org/zap"
)

var base = zap.NewNop()

// Init builds the process-wide logger. dev env gets human-readable output,
// everything else gets production JSON.
func Init(env string) error {
	var (
		l   *zap.Logger
		err error
	)
	if env == "dev" {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	base = l
	return nil
}

// L returns the current logger for callers that need the raw *zap.Logger.
func L() *zap.Logger { return base }

func Debug(msg string, fields ...zap.Field) { base.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { base.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { base.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { base.Error(msg, fields...) }
func Fatal(msg string, fields ...zap.Field) { base.Fatal(msg, fields...) }

// Sync flushes buffered entries, for use in deferred shutdown paths.
func Sync() { _ = base.Sync() }
