// Copyright 2024 The ftsdb Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// LoggingFormat selects the zapcore encoder.
type LoggingFormat int8

const (
	JSONFormat LoggingFormat = iota - 1
	StackdriverFormat
)

// SetupLogging builds the node's logger from cfg, following the teacher's
// console-plus-optional-rotating-file-plus-tee arrangement.
func SetupLogging(bootstrap *zap.Logger, cfg Config) *zap.Logger {
	level := zapcore.InfoLevel
	switch strings.ToLower(cfg.GetLog().Level) {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		bootstrap.Fatal("log level invalid, must be one of: debug, info, warn, error")
	}

	format := JSONFormat
	switch strings.ToLower(cfg.GetLog().Format) {
	case "", "json":
		format = JSONFormat
	case "stackdriver":
		format = StackdriverFormat
	default:
		bootstrap.Fatal("log format invalid, must be one of: '', json, stackdriver")
	}

	console := newJSONLogger(os.Stdout, level, format)
	if cfg.GetLog().File == "" {
		return console
	}

	var file *zap.Logger
	if cfg.GetLog().Rotation {
		file = newRotatingFileLogger(console, cfg, level, format)
	} else {
		file = newPlainFileLogger(console, cfg.GetLog().File, level, format)
	}
	if file == nil {
		return console
	}
	if cfg.GetLog().Stdout {
		return newMultiLogger(console, file)
	}
	return file
}

func newPlainFileLogger(console *zap.Logger, fileName string, level zapcore.Level, format LoggingFormat) *zap.Logger {
	output, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		console.Error("could not open log file", zap.Error(err))
		return nil
	}
	return newJSONLogger(output, level, format)
}

func newRotatingFileLogger(console *zap.Logger, cfg Config, level zapcore.Level, format LoggingFormat) *zap.Logger {
	fileName := cfg.GetLog().File
	logDir := filepath.Dir(fileName)
	if _, err := os.Stat(logDir); os.IsNotExist(err) {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			console.Error("could not create log directory", zap.Error(err))
			return nil
		}
	}

	// lumberjack.Logger is already safe for concurrent use.
	writeSyncer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    cfg.GetLog().MaxSize,
		MaxAge:     cfg.GetLog().MaxAge,
		MaxBackups: cfg.GetLog().MaxBackups,
		LocalTime:  cfg.GetLog().LocalTime,
		Compress:   cfg.GetLog().Compress,
	})
	core := zapcore.NewCore(newEncoder(format), writeSyncer, level)
	return zap.New(core, zap.AddCaller())
}

func newMultiLogger(loggers ...*zap.Logger) *zap.Logger {
	cores := make([]zapcore.Core, 0, len(loggers))
	for _, l := range loggers {
		cores = append(cores, l.Core())
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller())
}

func newJSONLogger(output *os.File, level zapcore.Level, format LoggingFormat) *zap.Logger {
	core := zapcore.NewCore(newEncoder(format), zapcore.Lock(output), level)
	return zap.New(core, zap.AddCaller())
}

func newEncoder(format LoggingFormat) zapcore.Encoder {
	if format == StackdriverFormat {
		return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			TimeKey:        "time",
			LevelKey:       "severity",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "message",
			StacktraceKey:  "stacktrace",
			EncodeLevel:    stackdriverLevelEncoder,
			EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		})
	}
	return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	})
}

func stackdriverLevelEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapcore.DebugLevel:
		enc.AppendString("DEBUG")
	case zapcore.InfoLevel:
		enc.AppendString("INFO")
	case zapcore.WarnLevel:
		enc.AppendString("WARNING")
	case zapcore.ErrorLevel:
		enc.AppendString("ERROR")
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		enc.AppendString("CRITICAL")
	default:
		enc.AppendString("DEFAULT")
	}
}
