package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"newsboard/internal/middleware"
	"newsboard/internal/models"
	"newsboard/internal/services"
	"newsboard/internal/utils"

	"github.com/gin-gonic/gin"
)

// DeletedCommentBody 墓碑评论对外显示的正文
const DeletedCommentBody = "[comment deleted]"

type CommentHandler struct {
	board *services.Board
}

func NewCommentHandler(board *services.Board) *CommentHandler {
	return &CommentHandler{board: board}
}

type commentView struct {
	ID        string            `json:"comment_id"`
	NewsID    int64             `json:"news_id"`
	ParentID  int64             `json:"parent_id"`
	Username  string            `json:"username,omitempty"`
	Body      string            `json:"body"`
	HTML      string            `json:"html,omitempty"`
	CreatedAt int64             `json:"ctime"`
	Ago       string            `json:"ago"`
	Up        int64             `json:"up"`
	Down      int64             `json:"down"`
	Voted     *models.Direction `json:"voted,omitempty"`
	Deleted   bool              `json:"del,omitempty"`
	Replies   []*commentView    `json:"replies"`
}

// view 构建单条评论；墓碑只保留结构信息
func (h *CommentHandler) view(ctx context.Context, v *models.Viewer, cm *models.Comment, now int64) (*commentView, error) {
	out := &commentView{
		ID:        fmt.Sprintf("%d-%d", cm.PostID, cm.ID),
		NewsID:    cm.PostID,
		ParentID:  cm.ParentID,
		CreatedAt: cm.CreatedAt,
		Ago:       utils.TimeAgo(cm.CreatedAt, now),
		Up:        cm.Up,
		Down:      cm.Down,
		Replies:   []*commentView{},
	}
	if cm.IsDeleted() {
		out.Deleted = true
		out.Body = DeletedCommentBody
		return out, nil
	}

	name, err := h.board.Hydrator.Username(ctx, cm.AuthorID)
	if err != nil {
		return nil, err
	}
	vote, err := h.board.Comments.ViewerVote(ctx, v, cm.PostID, cm.ID)
	if err != nil {
		return nil, err
	}
	out.Username = name
	out.Body = cm.Body
	out.HTML = utils.RenderMarkdown(cm.Body)
	out.Voted = vote
	return out, nil
}

// tree 递归构建 parent 下的全部回复
func (h *CommentHandler) tree(ctx context.Context, v *models.Viewer, t *services.Thread, children []*models.Comment, now int64) ([]*commentView, error) {
	out := make([]*commentView, 0, len(children))
	for _, cm := range children {
		cv, err := h.view(ctx, v, cm, now)
		if err != nil {
			return nil, err
		}
		if cv.Replies, err = h.tree(ctx, v, t, t.Children(cm.ID), now); err != nil {
			return nil, err
		}
		out = append(out, cv)
	}
	return out, nil
}

// List 帖子的评论树
func (h *CommentHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	v := middleware.Viewer(c)
	newsID, err := services.ParseID(c.Param("news_id"))
	if err != nil {
		RenderError(c, http.StatusNotFound, "Wrong news ID.")
		return
	}
	if _, err := h.board.Posts.Get(ctx, v, newsID); err != nil {
		Fail(c, err)
		return
	}

	thread, err := h.board.Comments.FetchThread(ctx, newsID, services.NoParent, nil)
	if err != nil {
		Fail(c, err)
		return
	}
	comments, err := h.tree(ctx, v, thread, thread.Top(), h.board.Now())
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"comments": comments})
}

// Post 新增、编辑或删除评论；comment_id 为 -1 时新增，正文为空时删除
func (h *CommentHandler) Post(c *gin.Context) {
	newsID, ok1 := formInt(c, "news_id")
	commentID, ok2 := formInt(c, "comment_id")
	parentID, ok3 := formInt(c, "parent_id")
	if !ok1 || !ok2 || !ok3 {
		RenderError(c, http.StatusBadRequest, "Missing news_id, comment_id, parent_id, or comment parameter.")
		return
	}

	res, err := h.board.Comments.Upsert(c.Request.Context(), middleware.Viewer(c), newsID, commentID, parentID, c.PostForm("comment"))
	if err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{
		"op":         res.Op,
		"comment_id": res.CommentID,
		"parent_id":  parentID,
		"news_id":    res.PostID,
	})
}

// Vote comment_id 形如 "<news_id>-<comment_id>"
func (h *CommentHandler) Vote(c *gin.Context) {
	ref := c.PostForm("comment_id")
	d, ok := models.ParseDirection(c.PostForm("vote_type"))
	newsID, commentID, refOK := parseRef(ref)
	if !ok || !refOK {
		RenderError(c, http.StatusBadRequest, "Missing comment ID or invalid vote type.")
		return
	}
	if err := h.board.Votes.CastCommentVote(c.Request.Context(), middleware.Viewer(c), newsID, commentID, d); err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"comment_id": ref})
}

// UserComments 某用户的评论，按时间倒序
func (h *CommentHandler) UserComments(c *gin.Context) {
	ctx := c.Request.Context()
	v := middleware.Viewer(c)
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
	list, total, err := h.board.Comments.ListUserComments(ctx, user.ID, start, h.board.Settings().UserCommentsPerPage)
	if err != nil {
		Fail(c, err)
		return
	}
	now := h.board.Now()
	out := make([]*commentView, 0, len(list))
	for _, cm := range list {
		cv, err := h.view(ctx, v, cm, now)
		if err != nil {
			Fail(c, err)
			return
		}
		out = append(out, cv)
	}
	OK(c, gin.H{"comments": out, "count": total})
}

// Replies 当前用户最近的评论及其下的回复，读取后清零未读回复数
func (h *CommentHandler) Replies(c *gin.Context) {
	ctx := c.Request.Context()
	v := middleware.Viewer(c)
	list, _, err := h.board.Comments.ListUserComments(ctx, v.User.ID, 0, h.board.Settings().UserCommentsPerPage)
	if err != nil {
		Fail(c, err)
		return
	}

	now := h.board.Now()
	out := make([]*commentView, 0, len(list))
	for _, cm := range list {
		thread, err := h.board.Comments.FetchThread(ctx, cm.PostID, cm.ID, nil)
		if err != nil {
			Fail(c, err)
			return
		}
		cv, err := h.view(ctx, v, cm, now)
		if err != nil {
			Fail(c, err)
			return
		}
		if cv.Replies, err = h.tree(ctx, v, thread, thread.Top(), now); err != nil {
			Fail(c, err)
			return
		}
		out = append(out, cv)
	}

	if err := h.board.Karma.ResetReplies(ctx, v); err != nil {
		Fail(c, err)
		return
	}
	OK(c, gin.H{"comments": out})
}

func parseRef(ref string) (int64, int64, bool) {
	a, b, ok := strings.Cut(ref, "-")
	if !ok {
		return 0, 0, false
	}
	newsID, err1 := strconv.ParseInt(a, 10, 64)
	commentID, err2 := strconv.ParseInt(b, 10, 64)
	return newsID, commentID, err1 == nil && err2 == nil
}
