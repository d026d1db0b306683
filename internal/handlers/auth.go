package handlers

import (
	"net/http"
	"strings"

	"newsboard/internal/middleware"
	"newsboard/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	accounts *services.AccountService
	log      *zap.Logger
}

func NewAuthHandler(board *services.Board, log *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: board.Accounts, log: log}
}

// remember 把认证令牌写入 session cookie
func (h *AuthHandler) remember(c *gin.Context, token string) {
	session := sessions.Default(c)
	session.Set(middleware.SessionAuthKey, token)
	if err := session.Save(); err != nil {
		h.log.Warn("failed to save session", zap.Error(err))
	}
}

// CreateAccount 注册，成功后直接登录
func (h *AuthHandler) CreateAccount(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	if username == "" || password == "" {
		RenderError(c, http.StatusBadRequest, "Username and password are two required fields.")
		return
	}

	user, err := h.accounts.Create(c.Request.Context(), username, password, c.ClientIP())
	if err != nil {
		Fail(c, err)
		return
	}
	h.remember(c, user.Auth)
	OK(c, gin.H{"auth": user.Auth, "apisecret": user.APISecret})
}

// Login 校验用户名密码，返回认证令牌和 apisecret
func (h *AuthHandler) Login(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	password := c.Query("password")
	if username == "" || password == "" {
		RenderError(c, http.StatusBadRequest, "Username and password are two required fields.")
		return
	}

	user, err := h.accounts.CheckCredentials(c.Request.Context(), username, password)
	if err != nil {
		if statusOf(err) == http.StatusForbidden {
			RenderError(c, http.StatusForbidden, "No match for the specified username / password pair.")
			return
		}
		Fail(c, err)
		return
	}
	h.remember(c, user.Auth)
	OK(c, gin.H{"auth": user.Auth, "apisecret": user.APISecret})
}

// Logout 换发令牌，所有已登录的客户端失效
func (h *AuthHandler) Logout(c *gin.Context) {
	if _, err := h.accounts.RotateAuthToken(c.Request.Context(), middleware.Viewer(c)); err != nil {
		Fail(c, err)
		return
	}
	session := sessions.Default(c)
	session.Delete(middleware.SessionAuthKey)
	if err := session.Save(); err != nil {
		h.log.Warn("failed to save session", zap.Error(err))
	}
	OK(c, nil)
}
