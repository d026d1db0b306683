package handlers

import (
	"net/http"

	"newsboard/internal/middleware"
	"newsboard/internal/services"
	"newsboard/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	board *services.Board
}

func NewUserHandler(board *services.Board) *UserHandler {
	return &UserHandler{board: board}
}

// Profile 用户公开资料
func (h *UserHandler) Profile(c *gin.Context) {
	user, err := h.board.Accounts.ByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		Fail(c, err)
		return
	}
	if user == nil {
		Fail(c, services.ErrNotFound)
		return
	}
	now := h.board.Now()
	OK(c, gin.H{"user": gin.H{
		"id":       user.ID,
		"username": user.Username,
		"karma":    user.Karma,
		"about":    utils.RenderMarkdown(user.About),
		"ctime":    user.CreatedAt,
		"ago":      utils.TimeAgo(user.CreatedAt, now),
	}})
}

// Me 当前登录用户的完整资料
func (h *UserHandler) Me(c *gin.Context) {
	u := middleware.Viewer(c).User
	OK(c, gin.H{"user": gin.H{
		"id":       u.ID,
		"username": u.Username,
		"karma":    u.Karma,
		"about":    u.About,
		"email":    u.Email,
		"replies":  u.Replies,
		"admin":    u.IsAdmin(),
	}})
}

// UpdateProfile 修改简介、邮箱，password 非空时修改密码
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	about, okAbout := c.GetPostForm("about")
	email, okEmail := c.GetPostForm("email")
	password, okPassword := c.GetPostForm("password")
	if !okAbout || !okEmail || !okPassword {
		RenderError(c, http.StatusBadRequest, "Missing parameters.")
		return
	}
	if err := h.board.Accounts.UpdateProfile(c.Request.Context(), middleware.Viewer(c), about, email, password); err != nil {
		Fail(c, err)
		return
	}
	OK(c, nil)
}
