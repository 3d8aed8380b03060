// Package logger builds the zap logger used across the service.
package logger

import (
    "os"
    "strings"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
    Level      string // debug, info, warn, error
    Format     string // json, console
    Output     string // stdout, stderr, or file path
    TimeFormat string // Go time layout
}

// DefaultConfig returns a configuration suitable for development
func DefaultConfig() Config {
    return Config{
        Level:      "info",
        Format:     "console",
        Output:     "stdout",
        TimeFormat: "2006-01-02T15:04:05.000Z07:00",
    }
}

// New creates a zap logger with the given configuration.  Empty fields
// fall back to DefaultConfig.
func New(cfg Config) *zap.Logger {
    def := DefaultConfig()
    if cfg.Level == "" {
        cfg.Level = def.Level
    }
    if cfg.Format == "" {
        cfg.Format = def.Format
    }
    if cfg.Output == "" {
        cfg.Output = def.Output
    }
    if cfg.TimeFormat == "" {
        cfg.TimeFormat = def.TimeFormat
    }

    core := zapcore.NewCore(createEncoder(cfg), createWriter(cfg.Output), parseLevel(cfg.Level))
    return zap.New(core,
        zap.AddCaller(),
        zap.AddStacktrace(zapcore.ErrorLevel),
    )
}

// parseLevel converts a string level to zapcore.Level
func parseLevel(level string) zapcore.Level {
    switch strings.ToLower(level) {
    case "debug":
        return zapcore.DebugLevel
    case "info":
        return zapcore.InfoLevel
    case "warn", "warning":
        return zapcore.WarnLevel
    case "error":
        return zapcore.ErrorLevel
    default:
        return zapcore.InfoLevel
    }
}

func createEncoder(cfg Config) zapcore.Encoder {
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
        EncodeTime:     zapcore.TimeEncoderOfLayout(cfg.TimeFormat),
        EncodeDuration: zapcore.MillisDurationEncoder,
        EncodeCaller:   zapcore.ShortCallerEncoder,
    }
    if strings.EqualFold(cfg.Format, "console") {
        encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
        return zapcore.NewConsoleEncoder(encoderConfig)
    }
    return zapcore.NewJSONEncoder(encoderConfig)
}

func createWriter(output string) zapcore.WriteSyncer {
    switch strings.ToLower(output) {
    case "stdout":
        return zapcore.AddSync(os.Stdout)
    case "stderr":
        return zapcore.AddSync(os.Stderr)
    default:
        f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
        if err != nil {
            // fall back to stdout if the file cannot be opened
            return zapcore.AddSync(os.Stdout)
        }
        return zapcore.AddSync(f)
    }
}
