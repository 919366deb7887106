package model

// User 用户主档。本服务只关心“存在性”，偏好/安全等不在此处。
type User struct {
	UserID    string `bson:"_id" json:"id"`
	Email     string `bson:"email" json:"email"` // 注册键，唯一
	CreatedAt int64  `bson:"created_at" json:"created_at"` // Unix ms
}

// Block 拉黑记录：blocker 不再接收 blocked 的消息。
type Block struct {
	BlockID   string `bson:"_id" json:"id"`
	BlockerID string `bson:"blocker_id" json:"blocker_id"`
	BlockedID string `bson:"blocked_id" json:"blocked_id"`
	CreatedAt int64  `bson:"created_at" json:"created_at"`
}

// Group 群组主档
type Group struct {
	GroupID   string `bson:"_id" json:"id"`
	Name      string `bson:"name" json:"name"`
	CreatedAt int64  `bson:"created_at" json:"created_at"`
}

// GroupMember 群成员关系，(group_id, user_id) 唯一
type GroupMember struct {
	GroupID  string `bson:"group_id" json:"group_id"`
	UserID   string `bson:"user_id" json:"user_id"`
	JoinedAt int64  `bson:"joined_at" json:"joined_at"`
}
