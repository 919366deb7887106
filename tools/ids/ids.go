package ids

import (
	"github.com/google/uuid"
)

// NewMessageID 生成消息ID（随机128位，调用方生成，冲突视为致命错误）
func NewMessageID() string {
	return uuid.NewString()
}

// NewUserID 生成用户ID
func NewUserID() string {
	return uuid.NewString()
}

// NewGroupID 生成群组ID
func NewGroupID() string {
	return uuid.NewString()
}
