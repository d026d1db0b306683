package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"newsboard/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrPermissionDenied, http.StatusForbidden},
		{services.ErrEditWindowExpired, http.StatusForbidden},
		{services.ErrInsufficientKarma, http.StatusForbidden},
		{services.ErrDuplicateVote, http.StatusConflict},
		{&services.DuplicateURLError{PostID: 3}, http.StatusConflict},
		{&services.RateLimitedError{RetryAfter: time.Minute}, http.StatusTooManyRequests},
		{services.ErrUsernameTaken, http.StatusBadRequest},
		{fmt.Errorf("news.get: %w: %w", services.ErrStoreUnavailable, errors.New("dial tcp")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.err))
		})
	}
}

func TestFail(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("duplicate url carries the original id", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		Fail(c, &services.DuplicateURLError{PostID: 42})

		assert.Equal(t, http.StatusConflict, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "err", body["status"])
		assert.Equal(t, 42.0, body["news_id"])
	})

	t.Run("rate limited sets retry-after", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		Fail(c, &services.RateLimitedError{RetryAfter: 90 * time.Second})

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "90", w.Header().Get("Retry-After"))
	})

	t.Run("store details are hidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		Fail(c, fmt.Errorf("news.get: %w: %w", services.ErrStoreUnavailable, errors.New("secret dsn")))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.NotContains(t, w.Body.String(), "secret dsn")
	})
}

func TestParseRef(t *testing.T) {
	n, c, ok := parseRef("12-0")
	assert.True(t, ok)
	assert.Equal(t, int64(12), n)
	assert.Equal(t, int64(0), c)

	_, _, ok = parseRef("12")
	assert.False(t, ok)
	_, _, ok = parseRef("a-b")
	assert.False(t, ok)
}
