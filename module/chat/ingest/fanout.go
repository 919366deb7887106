package ingest

import (
	"context"

	"go.uber.org/zap"

	"MProject/logger"
	"MProject/module/chat/archive"
	"MProject/module/chat/model"
	"MProject/tools/errs"
)

// FanoutResult 群发时单个成员的入库结果
type FanoutResult struct {
	MemberID string
	Message  model.Message
	Err      error
}

// IngestGroup 群消息按成员展开：每个成员一条独立消息，各自完整走一遍流水线。
// 单个成员被拒（拉黑等）不影响其他成员。
func (co *Coordinator) IngestGroup(ctx context.Context, senderID, groupID, content string) ([]FanoutResult, error) {
	if co.groups == nil {
		return nil, errs.ErrInternal.WrapMsg("group membership not configured")
	}
	members, err := co.groups.MembersOf(ctx, groupID)
	if err != nil {
		return nil, errs.ErrInternal.WrapMsg("group members lookup", "group", groupID, "err", err)
	}

	results := make([]FanoutResult, 0, len(members))
	for _, member := range members {
		if member == senderID {
			continue
		}
		m, ierr := co.Ingest(ctx, senderID, member, content)
		if ierr != nil {
			logger.Warn("group fanout member failed",
				zap.String("group", groupID),
				zap.String("member", member),
				zap.Error(ierr))
		}
		results = append(results, FanoutResult{MemberID: member, Message: m, Err: ierr})
	}
	return results, nil
}

// InlineArchiver 同步归档：越过阈值的那次写入自己扛归档耗时。
type InlineArchiver struct {
	Pipeline *archive.Pipeline
}

func (a InlineArchiver) Trigger(ctx context.Context, job archive.Job) error {
	return a.Pipeline.Run(ctx, job)
}
