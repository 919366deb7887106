package natsx

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"MProject/logger"
	"MProject/module/chat/archive"
	"MProject/tools/errs"
)

const (
	archiveSubject = "chat.archive.job"
	archiveQueue   = "chat-archive" // 队列组：多实例下任务只被一个 worker 消费
)

// ArchiveQueue 异步归档的投递端。入库路径只负责丢任务，不等归档完成。
type ArchiveQueue struct {
	nc *nats.Conn
}

func NewArchiveQueue(nc *nats.Conn) *ArchiveQueue {
	return &ArchiveQueue{nc: nc}
}

// Trigger 实现 ingest.Archiver
func (q *ArchiveQueue) Trigger(_ context.Context, job archive.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return errs.WrapMsg(err, "marshal archive job")
	}
	if err := q.nc.Publish(archiveSubject, data); err != nil {
		return errs.WrapMsg(err, "publish archive job", "subject", archiveSubject)
	}
	return nil
}

// ArchiveWorker 队列组消费端，逐个执行归档任务。
// 任务失败只记日志：会话仍越阈值，下一次合格写入会再投一条。
type ArchiveWorker struct {
	nc       *nats.Conn
	pipeline *archive.Pipeline
	sub      *nats.Subscription
}

func NewArchiveWorker(nc *nats.Conn, p *archive.Pipeline) *ArchiveWorker {
	return &ArchiveWorker{nc: nc, pipeline: p}
}

func (w *ArchiveWorker) Start(ctx context.Context) error {
	sub, err := w.nc.QueueSubscribe(archiveSubject, archiveQueue, func(m *nats.Msg) {
		var job archive.Job
		if err := json.Unmarshal(m.Data, &job); err != nil {
			logger.Error("archive worker: bad job payload", zap.Error(err))
			return
		}
		if err := w.pipeline.Run(ctx, job); err != nil {
			logger.Error("archive worker: run failed",
				zap.String("owner", job.OwnerID),
				zap.String("other", job.OtherID),
				zap.Error(err))
		}
	})
	if err != nil {
		return errs.WrapMsg(err, "subscribe archive queue", "subject", archiveSubject)
	}
	w.sub = sub
	return nil
}

func (w *ArchiveWorker) Stop() {
	if w.sub != nil {
		_ = w.sub.Drain()
	}
}
