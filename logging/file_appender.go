package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewFileLogger returns a logger that writes to stdout like NewLogger and also
// appends JSON lines to a size-rotated file at path. The returned closer
// flushes and closes the file.
func NewFileLogger(name, path string, debug bool) (Logger, io.Closer) {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		level.SetLevel(zap.DebugLevel)
	}
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    64,
		MaxBackups: 3,
		Compress:   true,
	}

	cfg := NewLoggerConfig()
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg.EncoderConfig), zapcore.Lock(zapcore.AddSync(stdout)), level)

	fileEncoderCfg := cfg.EncoderConfig
	fileEncoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderCfg), zapcore.AddSync(rotator), level)

	logger := zap.New(zapcore.NewTee(consoleCore, fileCore), zap.AddCaller())
	return &impl{logger.Sugar().Named(name)}, rotator
}
