package logger

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nextbud/premium/pkg/config"
)

// New builds a JSON production logger; dev environments also get debug level.
func New(cfg *config.Config) (*zap.SugaredLogger, error) {
	zc := zap.NewProductionConfig()
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.EncoderConfig.TimeKey = "time"
	env := config.EnvProd
	if cfg != nil && cfg.Env != "" {
		env = cfg.Env
	}
	if env == config.EnvDev {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar().With("env", env), nil
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, l *zap.SugaredLogger) {
		lc.Append(fx.StopHook(func() { _ = l.Sync() }))
	}),
)
