package router

import (
	"net/http"

	"newsboard/internal/handlers"
	"newsboard/internal/metrics"
	"newsboard/internal/middleware"
	"newsboard/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Options 构建路由所需的依赖
type Options struct {
	Board         *services.Board
	Log           *zap.Logger
	Registry      *prometheus.Registry
	SessionSecret string
	SessionName   string
	Secure        bool
}

// New 创建 gin 引擎并注册全部路由
func New(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if opts.Registry != nil {
		r.Use(metrics.NewHTTPMetrics(opts.Registry).Middleware())
		r.GET("/metrics", gin.WrapH(metrics.Handler(opts.Registry)))
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	name := opts.SessionName
	if name == "" {
		name = "newsboard_session"
	}
	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 30,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(name, store))
	r.Use(middleware.LoadViewer(opts.Board, opts.Log))
	r.Use(middleware.RequestLogger(opts.Log))

	RegisterRoutes(r, opts.Board, opts.Log)
	return r
}

func RegisterRoutes(r *gin.Engine, board *services.Board, log *zap.Logger) {
	// Handlers
	authHandler := handlers.NewAuthHandler(board, log)
	newsHandler := handlers.NewNewsHandler(board)
	commentHandler := handlers.NewCommentHandler(board)
	userHandler := handlers.NewUserHandler(board)

	api := r.Group("/api")

	// 公共路由 (Public Routes)
	api.GET("/login", authHandler.Login)                                   // 登录，返回 auth 与 apisecret
	api.POST("/create_account", authHandler.CreateAccount)                 // 注册
	api.GET("/getnews/:sort/:start/:count", newsHandler.List)              // top / latest 列表
	api.GET("/news/:news_id", newsHandler.Detail)                          // 单个帖子
	api.GET("/getcomments/:news_id", commentHandler.List)                  // 评论树
	api.GET("/usercomments/:username/:start", commentHandler.UserComments) // 用户的评论
	api.GET("/usernews/:username/:start", newsHandler.UserNews)            // 用户提交的帖子
	api.GET("/user/:username", userHandler.Profile)                        // 用户资料

	// 需要登录 (Authenticated)
	authorized := api.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/me", userHandler.Me)              // 当前用户
		authorized.GET("/saved/:start", newsHandler.Saved) // 赞过的帖子
		authorized.GET("/replies", commentHandler.Replies) // 我的评论及回复
	}

	// 修改类请求还需 apisecret (Mutations)
	mutating := api.Group("/")
	mutating.Use(middleware.AuthRequired(), middleware.APISecretRequired())
	{
		mutating.POST("/logout", authHandler.Logout)               // 登出并换发令牌
		mutating.POST("/submit", newsHandler.Submit)               // 发布/编辑帖子
		mutating.POST("/delnews", newsHandler.Delete)              // 删除帖子
		mutating.POST("/votenews", newsHandler.Vote)               // 帖子投票
		mutating.POST("/postcomment", commentHandler.Post)         // 发表/编辑/删除评论
		mutating.POST("/votecomment", commentHandler.Vote)         // 评论投票
		mutating.POST("/updateprofile", userHandler.UpdateProfile) // 修改资料
	}
}
