package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"MProject/module/chat/model"
	"MProject/tools/errs"
)

const windowKeyPrefix = "chat:win:"

// ConversationCache 会话窗口缓存。命中与否都不是错误；
// 存储不可用时返回错误，由协调器降级为在线库重建。
type ConversationCache interface {
	// Get 读取窗口。第二个返回值表示是否命中。
	Get(ctx context.Context, chatKey string) (model.ConversationWindow, bool, error)
	// Put 整体覆盖窗口并重置过期时间。重复写入幂等。
	Put(ctx context.Context, chatKey string, w model.ConversationWindow, ttl time.Duration) error
}

// RedisCache 基于 go-redis 的窗口缓存，窗口以 JSON 存单 key。
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Get(ctx context.Context, chatKey string) (model.ConversationWindow, bool, error) {
	var w model.ConversationWindow
	raw, err := c.rdb.Get(ctx, windowKeyPrefix+chatKey).Bytes()
	if err == redis.Nil {
		return w, false, nil
	}
	if err != nil {
		return w, false, errs.ErrCacheDown.WrapMsg("redis get", "key", chatKey, "err", err)
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		// 脏数据按未命中处理，窗口随时可从在线库重建
		return model.ConversationWindow{}, false, nil
	}
	return w, true, nil
}

func (c *RedisCache) Put(ctx context.Context, chatKey string, w model.ConversationWindow, ttl time.Duration) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return errs.WrapMsg(err, "marshal window", "key", chatKey)
	}
	if err := c.rdb.Set(ctx, windowKeyPrefix+chatKey, raw, ttl).Err(); err != nil {
		return errs.ErrCacheDown.WrapMsg("redis set", "key", chatKey, "err", err)
	}
	return nil
}
