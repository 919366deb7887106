package model

// NoLiveMessages start_index 哨兵：会话当前没有在线消息（刚归档完）。
const NoLiveMessages = ""

// ConversationMetadata 会话级计数与指针。
// 不变量：MessageCount 等于该会话在线库中的消息数；
// EndIndex/LatestTimestamp 始终指向最近一次写入的在线消息。
// 首条消息时创建，归档后 Reset 清零计数但保留记录。
type ConversationMetadata struct {
	ChatID          string `bson:"_id" json:"chat_id"`
	MessageCount    int64  `bson:"message_count" json:"message_count"`
	StartIndex      string `bson:"start_index" json:"start_index"`
	EndIndex        string `bson:"end_index" json:"end_index"`
	LatestTimestamp int64  `bson:"latest_timestamp" json:"latest_timestamp"` // Unix ms
}
