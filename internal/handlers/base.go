package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"newsboard/internal/services"

	"github.com/gin-gonic/gin"
)

// OK 成功响应，附带 status=ok
func OK(c *gin.Context, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}
	obj["status"] = "ok"
	c.JSON(http.StatusOK, obj)
}

// RenderError 参数错误等直接给出提示
func RenderError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"status": "err", "error": message})
}

// Fail 把服务层错误映射为 HTTP 状态码和错误 JSON
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var dup *services.DuplicateURLError
	if errors.As(err, &dup) {
		c.JSON(http.StatusConflict, gin.H{
			"status":  "err",
			"error":   msg(err),
			"news_id": dup.PostID,
		})
		return
	}
	var limited *services.RateLimitedError
	if errors.As(err, &limited) {
		c.Header("Retry-After", strconv.Itoa(int(limited.RetryAfter.Seconds())))
	}
	RenderError(c, statusOf(err), msg(err))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrPermissionDenied),
		errors.Is(err, services.ErrEditWindowExpired),
		errors.Is(err, services.ErrInsufficientKarma):
		return http.StatusForbidden
	case errors.Is(err, services.ErrDuplicateVote),
		errors.Is(err, services.ErrDuplicateURL):
		return http.StatusConflict
	case errors.Is(err, services.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func msg(err error) string {
	if err == nil {
		return ""
	}
	// 存储层细节不对外暴露
	if errors.Is(err, services.ErrStoreUnavailable) {
		return "Service temporarily unavailable."
	}
	if errors.Is(err, services.ErrPermissionDenied) {
		return "Permission denied."
	}
	return err.Error()
}

func paramInt(c *gin.Context, name string) (int64, bool) {
	n, err := strconv.ParseInt(c.Param(name), 10, 64)
	return n, err == nil
}

func formInt(c *gin.Context, name string) (int64, bool) {
	n, err := strconv.ParseInt(c.PostForm(name), 10, 64)
	return n, err == nil
}
