package api

import (
	"github.com/gin-gonic/gin"
)

// NewRouter 路由注册。核心不感知传输层，这里只是薄壳。
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/register", h.Register)
	r.POST("/send_message", h.SendMessage)
	r.POST("/send_group_message", h.SendGroupMessage)
	r.POST("/block_user", h.BlockUser)
	r.POST("/create_group", h.CreateGroup)
	r.POST("/add_user_to_group", h.AddUserToGroup)
	r.POST("/remove_user_from_group", h.RemoveUserFromGroup)
	r.GET("/recent", h.Recent)
	r.GET("/chats", h.Chats)

	return r
}
