// Package logger builds zap loggers from config.LogConfig.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/abhisek/quizdungeon/internal/config"
)

// New builds a logger writing to stdout, rotating files, or both. File
// output also tees errors into error.log next to the main file.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	return build(cfg, os.Stdout)
}

func build(cfg config.LogConfig, stdout io.Writer) (*zap.Logger, error) {
	level := ParseLevel(cfg.Level)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	output := cfg.Output
	if output == "" {
		output = "stdout"
	}

	var cores []zapcore.Core
	switch output {
	case "stdout", "file", "both":
	default:
		return nil, fmt.Errorf("unknown log output %q", output)
	}

	if output == "stdout" || output == "both" {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(stdout), level))
	}

	if output == "file" || output == "both" {
		dir := cfg.File.Path
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		filename := cfg.File.Filename
		if filename == "" {
			filename = "quizdungeon.log"
		}
		cores = append(cores,
			zapcore.NewCore(encoder, zapcore.AddSync(rotating(cfg.File, filepath.Join(dir, filename))), level),
			zapcore.NewCore(encoder, zapcore.AddSync(rotating(cfg.File, filepath.Join(dir, "error.log"))), zapcore.ErrorLevel),
		)
	}

	return zap.New(
		zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

func rotating(cfg config.LogFileConfig, filename string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxAge,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
}

// ParseLevel maps a level name onto a zap level. Unknown names mean info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// Module returns a named child of base. A level configured for the module
// in cfg.Modules can only raise the threshold, never lower it.
func Module(base *zap.Logger, cfg config.LogConfig, name string) *zap.Logger {
	l := base.Named(name)
	if lvl, ok := cfg.Modules[name]; ok {
		l = l.WithOptions(zap.IncreaseLevel(ParseLevel(lvl)))
	}
	return l
}
