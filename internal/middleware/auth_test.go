package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"newsboard/internal/models"
	"newsboard/internal/services"
	"newsboard/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*gin.Engine, *services.Board, *clockwork.FakeClock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	board, err := services.NewBoard(store.NewMemoryStore(clock), clock, services.DefaultSettings(), zap.NewNop(), nil)
	require.NoError(t, err)

	r := gin.New()
	r.Use(sessions.Sessions("test", cookie.NewStore([]byte("secret"))))
	r.Use(LoadViewer(board, zap.NewNop()))
	r.GET("/whoami", func(c *gin.Context) {
		v := Viewer(c)
		c.JSON(http.StatusOK, gin.H{"id": v.UserID(), "karma": karmaOf(v)})
	})
	r.GET("/private", AuthRequired(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.POST("/mutate", AuthRequired(), APISecretRequired(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r, board, clock
}

func karmaOf(v *models.Viewer) int64 {
	if !v.LoggedIn() {
		return 0
	}
	return v.User.Karma
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoadViewer(t *testing.T) {
	r, board, clock := setup(t)
	u, err := board.Accounts.Create(context.Background(), "alice", "password123", "10.0.0.1")
	require.NoError(t, err)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.JSONEq(t, `{"id":0,"karma":0}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/whoami?auth="+u.Auth, nil))
	assert.JSONEq(t, `{"id":1,"karma":1}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "auth", Value: u.Auth})
	w = serve(r, req)
	assert.JSONEq(t, `{"id":1,"karma":1}`, w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/whoami?auth=bogus", nil))
	assert.JSONEq(t, `{"id":0,"karma":0}`, w.Body.String())

	// a request after the increment interval earns passive karma once
	clock.Advance(time.Hour)
	w = serve(r, httptest.NewRequest(http.MethodGet, "/whoami?auth="+u.Auth, nil))
	assert.JSONEq(t, `{"id":1,"karma":2}`, w.Body.String())
	w = serve(r, httptest.NewRequest(http.MethodGet, "/whoami?auth="+u.Auth, nil))
	assert.JSONEq(t, `{"id":1,"karma":2}`, w.Body.String())
}

func TestAuthRequired(t *testing.T) {
	r, board, _ := setup(t)
	u, err := board.Accounts.Create(context.Background(), "alice", "password123", "10.0.0.1")
	require.NoError(t, err)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Not authenticated.")

	w = serve(r, httptest.NewRequest(http.MethodGet, "/private?auth="+u.Auth, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAPISecretRequired(t *testing.T) {
	r, board, _ := setup(t)
	u, err := board.Accounts.Create(context.Background(), "alice", "password123", "10.0.0.1")
	require.NoError(t, err)

	post := func(form url.Values) int {
		req := httptest.NewRequest(http.MethodPost, "/mutate", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return serve(r, req).Code
	}
	assert.Equal(t, http.StatusForbidden, post(url.Values{"auth": {u.Auth}}))
	assert.Equal(t, http.StatusForbidden, post(url.Values{"auth": {u.Auth}, "apisecret": {"wrong"}}))
	assert.Equal(t, http.StatusNoContent, post(url.Values{"auth": {u.Auth}, "apisecret": {u.APISecret}}))
}
