package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"MProject/logger"
	"MProject/module/chat/model"
	"MProject/module/chat/store"
	"MProject/tools/errs"
	"MProject/tools/safe"
)

// BlobStore 冷存储写入面。归档对象一旦写成功才允许删在线数据。
type BlobStore interface {
	PutObject(ctx context.Context, key string, body []byte) error
}

// Job 一次归档任务：由越过阈值的那条消息的收发双方标识会话。
type Job struct {
	OwnerID string `json:"owner_id"` // 触发消息的发送方
	OtherID string `json:"other_id"` // 触发消息的接收方
}

// ObjectKey 归档对象键：{owner}/{year}/{day_of_year}/{hour}/{other}.json（UTC）。
// 与既有归档桶内的历史对象逐字节一致，不得改动格式。
func ObjectKey(ownerID, otherID string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("%s/%d/%d/%d/%s.json", ownerID, at.Year(), at.YearDay(), at.Hour(), otherID)
}

// Pipeline 把一个会话的全部在线消息搬去冷存储并从在线库清除。
//
// 顺序固定：快照 → 写冷存储 → 逐条删除 → 计数清零。
// 冷存储写失败则整体放弃，消息全部保持在线，下次越阈值时重试。
// 删除是幂等的，删一半崩溃也只是让下一轮归档重复搬运（at-least-once，不丢）。
// 快照之后并发写入的新消息不在删除范围内，归档后合法地继续在线。
type Pipeline struct {
	msgs  store.MessageStore
	meta  store.MetadataStore
	blob  BlobStore
	locks *safe.KeyMutex
	now   func() time.Time
}

func NewPipeline(msgs store.MessageStore, meta store.MetadataStore, blob BlobStore) *Pipeline {
	safe.MustNotNil(msgs, "message store")
	safe.MustNotNil(meta, "metadata store")
	safe.MustNotNil(blob, "blob store")
	return &Pipeline{
		msgs:  msgs,
		meta:  meta,
		blob:  blob,
		locks: safe.NewKeyMutex(),
		now:   time.Now,
	}
}

// WithClock 测试用：替换归档时间源
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Run 执行一次归档。零条在线消息时空转成功（幂等）。
func (p *Pipeline) Run(ctx context.Context, job Job) error {
	chatKey := model.ChatKey(job.OwnerID, job.OtherID)
	p.locks.Lock(chatKey)
	defer p.locks.Unlock(chatKey)

	snapshot, err := p.msgs.ListByConversation(ctx, job.OwnerID, job.OtherID)
	if err != nil {
		return errs.WrapMsg(err, "archive snapshot", "chat", chatKey)
	}
	if len(snapshot) == 0 {
		logger.Debug("archive: nothing live", zap.String("chat", chatKey))
		return nil
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return errs.WrapMsg(err, "marshal archive batch", "chat", chatKey)
	}
	key := ObjectKey(job.OwnerID, job.OtherID, p.now())

	if err := p.blob.PutObject(ctx, key, body); err != nil {
		// 写失败：一条都不删，会话保持越阈值状态等下次触发
		return errs.ErrArchiveWrite.WrapMsg("put archive object", "key", key, "err", err)
	}

	for _, m := range snapshot {
		if err := p.msgs.Delete(ctx, m.MessageID); err != nil {
			// 剩余消息仍在线，下一轮归档会连同它们重新快照
			return errs.WrapMsg(err, "purge archived message", "id", m.MessageID, "chat", chatKey)
		}
	}

	if err := p.meta.Reset(ctx, chatKey, model.NoLiveMessages); err != nil {
		return errs.WrapMsg(err, "reset metadata after archive", "chat", chatKey)
	}

	logger.Info("archive: conversation flushed to cold storage",
		zap.String("chat", chatKey),
		zap.String("key", key),
		zap.Int("messages", len(snapshot)))
	return nil
}
