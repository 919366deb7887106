package api

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"MProject/module/chat/ingest"
	"MProject/module/user"
	"MProject/tools/errs"
)

// Handler 只做参数绑定与错误映射，所有语义在协调器与目录里。
type Handler struct {
	coord *ingest.Coordinator
	dir   *user.Directory
}

func NewHandler(coord *ingest.Coordinator, dir *user.Directory) *Handler {
	return &Handler{coord: coord, dir: dir}
}

// writeErr CodeError 的前两位段号就是 HTTP 状态（40301→403）
func writeErr(c *gin.Context, err error) {
	var ce errs.CodeError
	if stderrors.As(err, &ce) {
		c.JSON(ce.Code/100, gin.H{"code": ce.Code, "detail": ce.Msg})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"code": errs.CodeInternal, "detail": "internal error"})
}

type registerReq struct {
	Email string `json:"email" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, errs.ErrArgs.WrapMsg("bind", "err", err))
		return
	}
	u, err := h.dir.CreateUser(c.Request.Context(), req.Email)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type sendMessageReq struct {
	SenderID   string `json:"sender_id" binding:"required"`
	ReceiverID string `json:"receiver_id" binding:"required"`
	Content    string `json:"content"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, errs.ErrArgs.WrapMsg("bind", "err", err))
		return
	}
	m, err := h.coord.Ingest(c.Request.Context(), req.SenderID, req.ReceiverID, req.Content)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type sendGroupMessageReq struct {
	SenderID string `json:"sender_id" binding:"required"`
	GroupID  string `json:"group_id" binding:"required"`
	Content  string `json:"content"`
}

func (h *Handler) SendGroupMessage(c *gin.Context) {
	var req sendGroupMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, errs.ErrArgs.WrapMsg("bind", "err", err))
		return
	}
	results, err := h.coord.IngestGroup(c.Request.Context(), req.SenderID, req.GroupID, req.Content)
	if err != nil {
		writeErr(c, err)
		return
	}
	out := make([]gin.H, 0, len(results))
	for _, r := range results {
		item := gin.H{"member_id": r.MemberID}
		if r.Err != nil {
			var ce errs.CodeError
			if stderrors.As(r.Err, &ce) {
				item["code"] = ce.Code
			} else {
				item["code"] = errs.CodeInternal
			}
		} else {
			item["message"] = r.Message
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

type blockUserReq struct {
	BlockerID string `json:"blocker_id" binding:"required"`
	BlockedID string `json:"blocked_id" binding:"required"`
}

func (h *Handler) BlockUser(c *gin.Context) {
	var req blockUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, errs.ErrArgs.WrapMsg("bind", "err", err))
		return
	}
	b, err := h.dir.CreateBlock(c.Request.Context(), req.BlockerID, req.BlockedID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type createGroupReq struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) CreateGroup(c *gin.Context) {
	var req createGroupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, errs.ErrArgs.WrapMsg("bind", "err", err))
		return
	}
	g, err := h.dir.CreateGroup(c.Request.Context(), req.Name)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

type groupMemberReq struct {
	GroupID string `json:"group_id" binding:"required"`
	UserID  string `json:"user_id" binding:"required"`
}

func (h *Handler) AddUserToGroup(c *gin.Context) {
	var req groupMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, errs.ErrArgs.WrapMsg("bind", "err", err))
		return
	}
	if err := h.dir.AddMember(c.Request.Context(), req.GroupID, req.UserID); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "ok"})
}

func (h *Handler) RemoveUserFromGroup(c *gin.Context) {
	var req groupMemberReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErr(c, errs.ErrArgs.WrapMsg("bind", "err", err))
		return
	}
	if err := h.dir.RemoveMember(c.Request.Context(), req.GroupID, req.UserID); err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "user removed from group"})
}

func (h *Handler) Recent(c *gin.Context) {
	userID := c.Query("user_id")
	peerID := c.Query("peer_id")
	if userID == "" || peerID == "" {
		writeErr(c, errs.ErrArgs.WrapMsg("user_id and peer_id required"))
		return
	}
	msgs, err := h.coord.FetchRecent(c.Request.Context(), userID, peerID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (h *Handler) Chats(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		writeErr(c, errs.ErrArgs.WrapMsg("user_id required"))
		return
	}
	chats, err := h.coord.ListChats(c.Request.Context(), userID)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}
