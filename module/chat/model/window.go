package model

// ConversationWindow 会话最近消息的滑动窗口（缓存层投影）。
// 只是在线库的投影，随时可能缺失或过期，永远不能当权威数据。
type ConversationWindow struct {
	Messages   []Message `json:"messages"`
	StartIndex string    `json:"start_index"` // 窗口首条消息ID，空串表示窗口为空
	EndIndex   string    `json:"end_index"`   // 窗口末条消息ID
}

// Append 把 m 追加到窗口尾部，超出 maxSize 时从头部逐条淘汰（FIFO）。
// 纯函数：不修改 w，调用方自行 Put 回缓存。
func (w ConversationWindow) Append(m Message, maxSize int) ConversationWindow {
	msgs := make([]Message, 0, len(w.Messages)+1)
	msgs = append(msgs, w.Messages...)
	msgs = append(msgs, m)
	for maxSize > 0 && len(msgs) > maxSize {
		msgs = msgs[1:]
	}

	out := ConversationWindow{Messages: msgs}
	if len(msgs) > 0 {
		out.StartIndex = msgs[0].MessageID
		out.EndIndex = msgs[len(msgs)-1].MessageID
	}
	return out
}

// NewWindow 从已排序的消息序列构建窗口，只保留末尾 maxSize 条。
func NewWindow(msgs []Message, maxSize int) ConversationWindow {
	if maxSize > 0 && len(msgs) > maxSize {
		msgs = msgs[len(msgs)-maxSize:]
	}
	w := ConversationWindow{Messages: append([]Message(nil), msgs...)}
	if len(w.Messages) > 0 {
		w.StartIndex = w.Messages[0].MessageID
		w.EndIndex = w.Messages[len(w.Messages)-1].MessageID
	}
	return w
}
