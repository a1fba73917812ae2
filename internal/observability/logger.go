// Package observability builds the diagnostic logger from the [log] config section.
package observability

import (
	"io"
	"os"

	"github.com/msalah0e/orbit/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger writing to stderr.
func New(cfg config.LogConfig) *zap.Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter returns a logger writing to w. An unknown level means warn; an unknown
// format means console.
func NewWithWriter(cfg config.LogConfig, w io.Writer) *zap.Logger {
	level := zap.NewAtomicLevelAt(zap.WarnLevel)
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level.SetLevel(zap.WarnLevel)
		}
	}

	core := zapcore.NewCore(encoder(cfg.Format), zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core, zap.AddStacktrace(zap.ErrorLevel)).Named("orbit")
}

func encoder(format string) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "json" {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return zapcore.NewConsoleEncoder(ec)
}
