package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var log *zap.Logger = zap.NewNop()

// Init configures the process-wide logger. Mode is "debug" or "prod".
// When filePath is non-empty, log output is duplicated to a rotating file.
func Init(mode string, filePath string) error {
	var cfg zap.Config
	switch mode {
	case "debug":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	case "prod":
		cfg = zap.NewProductionConfig()
	default:
		return fmt.Errorf("unknown log mode: %q", mode)
	}

	base, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	if filePath != "" {
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
		fileCore := zapcore.NewCore(fileEncoder, fileWriter, cfg.Level)
		base = base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, fileCore)
		}))
	}

	log = base
	return nil
}

// InitTestLogger installs a no-op logger for unit tests.
func InitTestLogger() {
	log = zap.NewNop()
}

func Sync() {
	_ = log.Sync()
}

func Debug(msg string, fields ...zap.Field) {
	log.Debug(msg, fields...)
}

func Info(msg string, fields ...zap.Field) {
	log.Info(msg, fields...)
}

func Warn(msg string, fields ...zap.Field) {
	log.Warn(msg, fields...)
}

func Error(msg string, fields ...zap.Field) {
	log.Error(msg, fields...)
}
