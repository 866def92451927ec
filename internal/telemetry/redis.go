package telemetry

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// MonitorRedis instruments r with OpenTelemetry tracing and metrics and logs
// every command at debug level.
func MonitorRedis(r redis.UniversalClient, log *zap.Logger) error {
	if err := redisotel.InstrumentTracing(r); err != nil {
		return fmt.Errorf("instrument tracing: %w", err)
	}
	if err := redisotel.InstrumentMetrics(r); err != nil {
		return fmt.Errorf("instrument metrics: %w", err)
	}
	r.AddHook(redisLog{log: log.Named("redis")})
	return nil
}

type redisLog struct {
	log *zap.Logger
}

func (l redisLog) DialHook(hook redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := hook(ctx, network, addr)
		if err != nil {
			l.log.Warn("dial failed", zap.String("network", network), zap.String("addr", addr), zap.Error(err))
		} else {
			l.log.Debug("dialed", zap.String("network", network), zap.String("addr", addr))
		}
		return conn, err
	}
}

func (l redisLog) ProcessHook(hook redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := hook(ctx, cmd)
		l.log.Debug("command",
			zap.String("cmd", cmd.Name()),
			zap.Duration("took", time.Since(start)),
			zap.NamedError("err", ignoreNil(err)))
		return err
	}
}

func (l redisLog) ProcessPipelineHook(hook redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := hook(ctx, cmds)
		l.log.Debug("pipeline",
			zap.Int("cmds", len(cmds)),
			zap.Duration("took", time.Since(start)),
			zap.NamedError("err", ignoreNil(err)))
		return err
	}
}

// redis.Nil is a cache miss, not a failure.
func ignoreNil(err error) error {
	if err == redis.Nil {
		return nil
	}
	return err
}
