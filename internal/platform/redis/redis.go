package redis

import (
	"context"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/nextbud/premium/pkg/config"
)

// NewClient returns nil when redis.addr is empty; callers treat a nil client
// as "no distributed coordination".
func NewClient(l *zap.SugaredLogger, cfg *cfgpkg.Config) *goredis.Client {
	if cfg.Redis.Addr == "" {
		l.Infow("redis not configured, distributed job locks disabled")
		return nil
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// registerRedisClose pings on start and closes the pool on shutdown.
func registerRedisClose(lc fx.Lifecycle, l *zap.SugaredLogger, client *goredis.Client) {
	if client == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				l.Warnw("redis ping failed", "err", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			l.Infow("closing redis client")
			return client.Close()
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewClient),
	fx.Invoke(registerRedisClose),
)
