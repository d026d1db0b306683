package handlers

import (
	"net/http"

	"newsboard/internal/middleware"
	"newsboard/internal/models"
	"newsboard/internal/services"
	"newsboard/internal/utils"

	"github.com/gin-gonic/gin"
)

type NewsHandler struct {
	board *services.Board
}

func NewNewsHandler(board *services.Board) *NewsHandler {
	return &NewsHandler{board: board}
}

// newsView 对外的帖子格式，不含 rank、score、user_id
type newsView struct {
	ID        int64             `json:"id"`
	Title     string            `json:"title"`
	URL       string            `json:"url"`
	Domain    string            `json:"domain,omitempty"`
	HTML      string            `json:"html,omitempty"`
	Username  string            `json:"username"`
	CreatedAt int64             `json:"ctime"`
	Ago       string            `json:"ago"`
	Up        int64             `json:"up"`
	Down      int64             `json:"down"`
	Comments  int64             `json:"comments"`
	Voted     *models.Direction `json:"voted,omitempty"`
}

func toNewsView(p *models.PostView, now int64) newsView {
	return newsView{
		ID:        p.ID,
		Title:     p.Title,
		URL:       p.URL,
		Domain:    p.Domain,
		HTML:      utils.RenderMarkdown(p.Text),
		Username:  p.Username,
		CreatedAt: p.CreatedAt,
		Ago:       utils.TimeAgo(p.CreatedAt, now),
		Up:        p.Up,
		Down:      p.Down,
		Comments:  p.Comments,
		Voted:     p.ViewerVote,
	}
}

func toNewsViews(posts []*models.PostView, now int64) []newsView {
	out := make([]newsView, 0, len(posts))
	for _, p := range posts {
		out = append(out, toNewsView(p, now))
	}
	return out
}

// Submit news_id 为 -1 时发布新帖，否则编辑
func (h *NewsHandler) Submit(c *gin.Context) {
	title := c.PostForm("title")
	link := c.PostForm("url")
	text := c.PostForm("text")
	newsID, ok := formInt(c, "news_id")
	if !ok || title == "" || (link == "" && text == "") {
		RenderError(c, http.StatusBadRequest, "Please specify a news title and address or text.")
		return
	}

	ctx := c.Request.Context()
	v := middleware.Viewer(c)
	if newsID == -1 {
		id, err := h.board.Posts.Create(ctx, v, title, link, text)
		if err != nil {
			Fail(c, err)
			return
		}
		OK(c, gin.H{"news_id": id})
		return
	}
	if err := h.board.Posts.Edit(ctx, v, newsID, title, link, text); err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"news_id": newsID})
}

// Delete 删除帖子
func (h *NewsHandler) Delete(c *gin.Context) {
	newsID, err := services.ParseID(c.PostForm("news_id"))
	if err != nil {
		Fail(c, err)
		return
	}
	if err := h.board.Posts.Delete(c.Request.Context(), middleware.Viewer(c), newsID); err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"news_id": -1})
}

// Vote 给帖子投票，vote_type 为 up 或 down
func (h *NewsHandler) Vote(c *gin.Context) {
	newsID, err := services.ParseID(c.PostForm("news_id"))
	d, ok := models.ParseDirection(c.PostForm("vote_type"))
	if err != nil || !ok {
		RenderError(c, http.StatusBadRequest, "Missing news ID or invalid vote type.")
		return
	}
	rank, err := h.board.Votes.CastPostVote(c.Request.Context(), middleware.Viewer(c), newsID, d)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"news_id": newsID, "rank": rank})
}

// List 按 top 或 latest 分页读取
func (h *NewsHandler) List(c *gin.Context) {
	start, okStart := paramInt(c, "start")
	count, okCount := paramInt(c, "count")
	if !okStart || !okCount {
		RenderError(c, http.StatusBadRequest, "Invalid start or count.")
		return
	}
	if count > h.board.Settings().MaxPageSize {
		RenderError(c, http.StatusBadRequest, "Count is too big")
		return
	}

	ctx := c.Request.Context()
	v := middleware.Viewer(c)
	var page *services.Page
	var err error
	switch c.Param("sort") {
	case "top":
		page, err = h.board.Ranking.ListRanked(ctx, v, start, count)
	case "latest":
		page, err = h.board.Ranking.ListChronological(ctx, v, start, count)
	default:
		RenderError(c, http.StatusBadRequest, "Invalid sort parameter")
		return
	}
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"news": toNewsViews(page.Posts, h.board.Now()), "count": page.Total})
}

// Detail 单个帖子
func (h *NewsHandler) Detail(c *gin.Context) {
	newsID, err := services.ParseID(c.Param("news_id"))
	if err != nil {
		Fail(c, err)
		return
	}
	post, err := h.board.Posts.Get(c.Request.Context(), middleware.Viewer(c), newsID)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"news": toNewsView(post, h.board.Now())})
}

// Saved 当前用户赞过的帖子
func (h *NewsHandler) Saved(c *gin.Context) {
	v := middleware.Viewer(c)
	start := utils.StringToInt64(c.Param("start"), 0)
	page, err := h.board.Ranking.ListSaved(c.Request.Context(), v, v.User.ID, start, h.board.Settings().SavedNewsPerPage)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"news": toNewsViews(page.Posts, h.board.Now()), "count": page.Total})
}

// UserNews 某用户提交的帖子
func (h *NewsHandler) UserNews(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := h.board.Accounts.ByUsername(ctx, c.Param("username"))
	if err != nil {
		Fail(c, err)
		return
	}
	if user == nil {
		Fail(c, services.ErrNotFound)
		return
	}
	start := utils.StringToInt64(c.Param("start"), 0)
	page, err := h.board.Ranking.ListUserPosts(ctx, middleware.Viewer(c), user.ID, start, h.board.Settings().SavedNewsPerPage)
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"news": toNewsViews(page.Posts, h.board.Now()), "count": page.Total})
}
