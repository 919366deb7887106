package model

import (
	"sort"
	"strings"
)

// Message 一条消息的不可变主记录。
// 写入后不再修改；只有归档会把它从在线库删除。
// 同一时刻一条消息只会活在一层：在线库（热）或冷存储（已归档）。
type Message struct {
	MessageID  string `bson:"_id" json:"id"`                // 调用方生成的随机128位ID
	SenderID   string `bson:"sender_id" json:"sender_id"`   // 发送者
	ReceiverID string `bson:"receiver_id" json:"receiver_id"` // 接收者
	Content    string `bson:"content" json:"content"`
	Timestamp  int64  `bson:"timestamp" json:"timestamp"` // Unix ms
}

// ChatKey 无序会话键：两个用户ID按字典序拼接，保证 (a,b) 与 (b,a) 同键。
func ChatKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + ":" + b
}

// Less 会话内排序：时间戳优先，同刻按消息ID字典序，保证确定性。
func Less(a, b Message) bool {
	if a.Timestamp != b.Timestamp {
		return a.Timestamp < b.Timestamp
	}
	return a.MessageID < b.MessageID
}

// SortMessages 原地按会话序排序
func SortMessages(msgs []Message) {
	sort.Slice(msgs, func(i, j int) bool { return Less(msgs[i], msgs[j]) })
}

// PeerOf 返回会话中相对 userID 的另一方；消息不属于该用户时返回空串。
func PeerOf(m Message, userID string) string {
	switch userID {
	case m.SenderID:
		return m.ReceiverID
	case m.ReceiverID:
		return m.SenderID
	default:
		return ""
	}
}

// SplitChatKey 拆回两个成员ID
func SplitChatKey(key string) (string, string) {
	i := strings.IndexByte(key, ':')
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+1:]
}
