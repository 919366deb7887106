package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"MProject/global"
	"MProject/logger"
)

// NewClient 建立 Redis 连接并 ping 校验。
// 返回显式句柄，由启动代码注入各组件，不做进程级单例。
// ping 失败不算致命：缓存层允许降级运行，go-redis 会自行重连。
func NewClient(cfg global.RedisConfig) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, cache starts degraded",
			zap.String("addr", cfg.Addr), zap.Error(err))
	}
	return rdb
}
