package middleware

import (
	"net/http"

	"newsboard/internal/models"
	"newsboard/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ViewerKey = "viewer"

// SessionAuthKey session 中保存认证令牌的字段
const SessionAuthKey = "auth"

// LoadViewer 按 session、auth cookie 或 auth 参数识别当前用户，并发放访问积分
func LoadViewer(board *services.Board, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := &models.Viewer{IP: c.ClientIP()}

		token := authToken(c)
		if token != "" {
			user, err := board.Accounts.ByAuth(c.Request.Context(), token)
			if err != nil {
				log.Warn("failed to load user", zap.Error(err))
			} else if user != nil {
				v.User = user
				if err := board.Karma.PassiveIncrement(c.Request.Context(), v); err != nil {
					log.Warn("passive karma increment failed", zap.Int64("user_id", user.ID), zap.Error(err))
				}
			}
		}

		c.Set(ViewerKey, v)
		c.Next()
	}
}

func authToken(c *gin.Context) string {
	if token, ok := sessions.Default(c).Get(SessionAuthKey).(string); ok && token != "" {
		return token
	}
	if token, err := c.Cookie("auth"); err == nil && token != "" {
		return token
	}
	if token := c.Query("auth"); token != "" {
		return token
	}
	return c.PostForm("auth")
}

// Viewer 取出当前请求的执行者，未经过 LoadViewer 时为匿名
func Viewer(c *gin.Context) *models.Viewer {
	if v, ok := c.Get(ViewerKey); ok {
		if viewer, ok := v.(*models.Viewer); ok {
			return viewer
		}
	}
	return &models.Viewer{IP: c.ClientIP()}
}

// AuthRequired ensures a user is logged in
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Viewer(c).LoggedIn() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": "err", "error": "Not authenticated."})
			return
		}
		c.Next()
	}
}

// APISecretRequired 修改类请求必须带上用户的 apisecret
func APISecretRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		v := Viewer(c)
		if !v.LoggedIn() || c.PostForm("apisecret") != v.User.APISecret {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"status": "err", "error": "Wrong form secret."})
			return
		}
		c.Next()
	}
}
