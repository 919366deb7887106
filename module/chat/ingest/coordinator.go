package ingest

import (
	"context"
	"time"

	"go.uber.org/zap"

	"MProject/logger"
	"MProject/module/chat/archive"
	"MProject/module/chat/cache"
	"MProject/module/chat/model"
	"MProject/module/chat/store"
	"MProject/tools/errs"
	"MProject/tools/ids"
	"MProject/tools/safe"
)

// 外部协作方接口。注册、拉黑、群成员的维护不在本核心内实现。
type (
	UserDirectory interface {
		Exists(ctx context.Context, userID string) (bool, error)
	}
	BlockList interface {
		IsBlocked(ctx context.Context, senderID, receiverID string) (bool, error)
	}
	GroupMembership interface {
		MembersOf(ctx context.Context, groupID string) ([]string, error)
	}
)

// Archiver 归档触发面：内联直接跑 Pipeline，异步则投递队列。
type Archiver interface {
	Trigger(ctx context.Context, job archive.Job) error
}

// 单条消息的流水线状态，只用于日志与断言。
type state int

const (
	stateValidating state = iota
	stateCacheUpdating
	statePersisting
	stateMetadataUpdating
	stateArchivalCheck
	stateComplete
	stateRejected
)

func (s state) String() string {
	switch s {
	case stateValidating:
		return "validating"
	case stateCacheUpdating:
		return "cache_updating"
	case statePersisting:
		return "persisting"
	case stateMetadataUpdating:
		return "metadata_updating"
	case stateArchivalCheck:
		return "archival_check"
	case stateComplete:
		return "complete"
	case stateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Options 流水线参数
type Options struct {
	WindowSize       int           // 窗口容量 X
	DBLimit          int64         // 单会话在线消息阈值
	CacheTTL         time.Duration // 窗口过期
	MetadataMaxRetry int           // 条件更新冲突的重试上限
}

// Coordinator 消息进入后的全部编排：
// validating → cache_updating → persisting → metadata_updating → archival_check → complete。
// 校验失败走 rejected 终态，什么都不写。
type Coordinator struct {
	users    UserDirectory
	blocks   BlockList
	groups   GroupMembership
	cache    cache.ConversationCache
	msgs     store.MessageStore
	meta     store.MetadataStore
	archiver Archiver
	opt      Options
	now      func() time.Time
	newID    func() string
}

func NewCoordinator(
	users UserDirectory,
	blocks BlockList,
	groups GroupMembership,
	c cache.ConversationCache,
	msgs store.MessageStore,
	meta store.MetadataStore,
	archiver Archiver,
	opt Options,
) *Coordinator {
	safe.MustNotNil(users, "user directory")
	safe.MustNotNil(blocks, "block list")
	safe.MustNotNil(c, "conversation cache")
	safe.MustNotNil(msgs, "message store")
	safe.MustNotNil(meta, "metadata store")
	safe.MustNotNil(archiver, "archiver")
	if opt.WindowSize <= 0 {
		opt.WindowSize = 100
	}
	if opt.DBLimit <= 0 {
		opt.DBLimit = 1000
	}
	if opt.CacheTTL <= 0 {
		opt.CacheTTL = time.Hour
	}
	if opt.MetadataMaxRetry <= 0 {
		opt.MetadataMaxRetry = 3
	}
	return &Coordinator{
		users:    users,
		blocks:   blocks,
		groups:   groups,
		cache:    c,
		msgs:     msgs,
		meta:     meta,
		archiver: archiver,
		opt:      opt,
		now:      time.Now,
		newID:    ids.NewMessageID,
	}
}

// WithClock 测试用：替换时间源与ID源
func (co *Coordinator) WithClock(now func() time.Time, newID func() string) *Coordinator {
	if now != nil {
		co.now = now
	}
	if newID != nil {
		co.newID = newID
	}
	return co
}

// Ingest 单聊消息入口。
// 成功返回已持久化的消息；校验失败返回 ErrUnknownUser / ErrBlocked，
// 消息ID冲突返回 ErrDuplicateKey（调用方换ID重试，这里绝不自动重试同ID）。
func (co *Coordinator) Ingest(ctx context.Context, senderID, receiverID, content string) (model.Message, error) {
	var zero model.Message

	// —— validating ——
	if senderID == "" || receiverID == "" || senderID == receiverID {
		return zero, errs.ErrArgs.WrapMsg("sender/receiver", "sender", senderID, "receiver", receiverID)
	}
	if err := co.validate(ctx, senderID, receiverID); err != nil {
		logger.Debug("ingest rejected",
			zap.String("state", stateRejected.String()),
			zap.String("sender", senderID),
			zap.String("receiver", receiverID))
		return zero, err
	}

	m := model.Message{
		MessageID:  co.newID(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Timestamp:  co.now().UnixMilli(),
	}
	chatKey := model.ChatKey(senderID, receiverID)

	// —— cache_updating —— 缓存坏了不拦路，降级记日志继续
	co.updateWindow(ctx, chatKey, m)

	// —— persisting ——
	if err := co.msgs.Put(ctx, m); err != nil {
		return zero, err
	}

	// —— metadata_updating ——
	md, err := co.bumpMetadata(ctx, chatKey, m)
	if err != nil {
		return zero, err
	}

	// —— archival_check —— 阈值判定用本次更新后的会话计数
	if md.MessageCount >= co.opt.DBLimit {
		if err := co.archiver.Trigger(ctx, archive.Job{OwnerID: senderID, OtherID: receiverID}); err != nil {
			// 归档失败对调用方不可见：会话保持越阈值，下一次合格写入再触发
			logger.Error("archival trigger failed",
				zap.String("state", stateArchivalCheck.String()),
				zap.String("chat", chatKey),
				zap.Error(err))
		}
	}

	// —— complete ——
	return m, nil
}

func (co *Coordinator) validate(ctx context.Context, senderID, receiverID string) error {
	for _, id := range []string{senderID, receiverID} {
		ok, err := co.users.Exists(ctx, id)
		if err != nil {
			return errs.ErrInternal.WrapMsg("user lookup", "user", id, "err", err)
		}
		if !ok {
			return errs.ErrUnknownUser.WrapMsg("validate", "user", id)
		}
	}
	blocked, err := co.blocks.IsBlocked(ctx, senderID, receiverID)
	if err != nil {
		return errs.ErrInternal.WrapMsg("block lookup", "sender", senderID, "receiver", receiverID, "err", err)
	}
	if blocked {
		return errs.ErrBlocked.WrapMsg("validate", "sender", senderID, "receiver", receiverID)
	}
	return nil
}

// updateWindow 命中则追加，未命中则用在线库最近 X 条重建后追加，再带 TTL 写回。
// 缓存任何一步失败都只降级，不影响消息入库。
func (co *Coordinator) updateWindow(ctx context.Context, chatKey string, m model.Message) {
	w, hit, err := co.cache.Get(ctx, chatKey)
	if err != nil {
		logger.Warn("cache degraded on read",
			zap.String("state", stateCacheUpdating.String()),
			zap.String("chat", chatKey),
			zap.Error(err))
	}
	if !hit {
		rebuilt, rerr := co.rebuildWindow(ctx, m.SenderID, m.ReceiverID)
		if rerr != nil {
			logger.Warn("window rebuild skipped",
				zap.String("chat", chatKey),
				zap.Error(rerr))
			return
		}
		w = rebuilt
	}

	w = w.Append(m, co.opt.WindowSize)
	if err := co.cache.Put(ctx, chatKey, w, co.opt.CacheTTL); err != nil {
		logger.Warn("cache degraded on write",
			zap.String("state", stateCacheUpdating.String()),
			zap.String("chat", chatKey),
			zap.Error(err))
	}
}

// rebuildWindow 以在线库为准取会话最近 X 条
func (co *Coordinator) rebuildWindow(ctx context.Context, a, b string) (model.ConversationWindow, error) {
	msgs, err := co.msgs.ListByConversation(ctx, a, b)
	if err != nil {
		return model.ConversationWindow{}, err
	}
	return model.NewWindow(msgs, co.opt.WindowSize), nil
}

// bumpMetadata 原子计数；CAS 实现冲突时带新读重试有限次，然后升级为 Internal。
func (co *Coordinator) bumpMetadata(ctx context.Context, chatKey string, m model.Message) (model.ConversationMetadata, error) {
	var (
		md  model.ConversationMetadata
		err error
	)
	for i := 0; i < co.opt.MetadataMaxRetry; i++ {
		md, err = co.meta.CreateOrUpdate(ctx, chatKey, m)
		if err == nil {
			return md, nil
		}
		if !errs.IsCode(err, errs.CodeMetadataRace) {
			return md, err
		}
		logger.Debug("metadata race, retrying",
			zap.String("state", stateMetadataUpdating.String()),
			zap.String("chat", chatKey),
			zap.Int("attempt", i+1))
	}
	return md, errs.ErrInternal.WrapMsg("metadata update retries exhausted", "chat", chatKey, "err", err)
}

// FetchRecent 读路径：先窗口，未命中回源在线库并回填缓存。
func (co *Coordinator) FetchRecent(ctx context.Context, userID, peerID string) ([]model.Message, error) {
	chatKey := model.ChatKey(userID, peerID)

	w, hit, err := co.cache.Get(ctx, chatKey)
	if err != nil {
		logger.Warn("cache degraded on read path", zap.String("chat", chatKey), zap.Error(err))
	}
	if hit {
		return w.Messages, nil
	}

	w, err = co.rebuildWindow(ctx, userID, peerID)
	if err != nil {
		return nil, err
	}
	if len(w.Messages) > 0 {
		if perr := co.cache.Put(ctx, chatKey, w, co.opt.CacheTTL); perr != nil {
			logger.Warn("cache backfill skipped", zap.String("chat", chatKey), zap.Error(perr))
		}
	}
	return w.Messages, nil
}

// ListChats 某用户发出过消息的所有会话，按对端分组（会话列表页用）。
func (co *Coordinator) ListChats(ctx context.Context, userID string) (map[string][]model.Message, error) {
	return co.msgs.ListBySender(ctx, userID)
}
