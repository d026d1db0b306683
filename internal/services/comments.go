package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"newsboard/internal/models"

	"go.uber.org/zap"
)

// CommentOp 评论写操作的结果
type CommentOp string

const (
	OpInsert CommentOp = "insert"
	OpUpdate CommentOp = "update"
	OpDelete CommentOp = "delete"
)

// NoParent 顶层评论的 parent_id
const NoParent int64 = -1

// CommentResult Upsert 的返回值
type CommentResult struct {
	PostID    int64     `json:"news_id"`
	CommentID int64     `json:"comment_id"`
	Op        CommentOp `json:"op"`
}

// CommentForest 每个帖子一棵评论森林，存放在 thread:comment:<post_id>
type CommentForest struct {
	*core
	karma *KarmaAccount
}

func (f *CommentForest) checkBody(body string) error {
	if len(body) > f.settings.CommentMaxLength {
		return invalid("comment too long")
	}
	return nil
}

// Insert 新增评论，返回按帖子递增的评论 id（从 0 开始）
func (f *CommentForest) Insert(ctx context.Context, v *models.Viewer, postID, parentID int64, body string) (int64, error) {
	if !v.LoggedIn() {
		return 0, ErrPermissionDenied
	}
	if strings.TrimSpace(body) == "" {
		return 0, invalid("empty comment")
	}
	if err := f.checkBody(body); err != nil {
		return 0, err
	}
	if _, err := loadLivePost(ctx, f.core, postID); err != nil {
		return 0, err
	}

	var parent *models.Comment
	if parentID != NoParent {
		p, err := loadComment(ctx, f.core, postID, parentID)
		if err != nil {
			return 0, err
		}
		parent = p
	}

	thread := keyThread(postID)
	next, err := f.store.HIncrBy(ctx, thread, "nextid", 1)
	if err != nil {
		return 0, f.fail("comment.nextid", err)
	}
	id := next - 1
	uid := v.User.ID
	now := f.now()

	c := &models.Comment{
		PostID:    postID,
		ID:        id,
		ParentID:  parentID,
		AuthorID:  uid,
		Body:      body,
		CreatedAt: now,
		State:     models.Live{},
	}
	if err := saveComment(ctx, f.core, c); err != nil {
		return 0, err
	}

	// 作者自动给自己的评论点赞
	if err := f.store.ZAdd(ctx, keyCommentUp(postID, id), formatID(uid), float64(now)); err != nil {
		return 0, f.fail("comment.self_vote", err)
	}
	if _, err := f.store.HIncrBy(ctx, keyCommentVotes(postID), commentVoteField(id, models.Up), 1); err != nil {
		return 0, f.fail("comment.self_vote_counter", err)
	}

	if _, err := f.store.HIncrBy(ctx, keyNews(postID), "comments", 1); err != nil {
		return 0, f.fail("comment.count", err)
	}
	if err := f.store.ZAdd(ctx, keyUserComments(uid), commentRef(postID, id), float64(now)); err != nil {
		return 0, f.fail("comment.user_index", err)
	}
	if parent != nil {
		if err := f.karma.IncrReplies(ctx, parent.AuthorID); err != nil {
			return 0, err
		}
	}

	f.metrics.CommentOps.WithLabelValues(string(OpInsert)).Inc()
	f.log.Debug("comment inserted", zap.Int64("news_id", postID), zap.Int64("comment_id", id), zap.Int64("user_id", uid))
	return id, nil
}

// Edit 修改或删除（空正文）自己的评论，限编辑窗口内
func (f *CommentForest) Edit(ctx context.Context, v *models.Viewer, postID, commentID int64, body string) (CommentOp, error) {
	if !v.LoggedIn() {
		return "", ErrPermissionDenied
	}
	if err := f.checkBody(body); err != nil {
		return "", err
	}
	if _, err := loadLivePost(ctx, f.core, postID); err != nil {
		return "", err
	}
	c, err := loadComment(ctx, f.core, postID, commentID)
	if err != nil {
		return "", err
	}
	if c.AuthorID != v.User.ID {
		return "", ErrPermissionDenied
	}
	now := f.now()
	if time.Duration(now-c.CreatedAt)*time.Second > f.settings.CommentEditTime {
		return "", ErrEditWindowExpired
	}

	wasDeleted := c.IsDeleted()
	op := OpUpdate
	delta := int64(0)
	if strings.TrimSpace(body) == "" {
		op = OpDelete
		if !wasDeleted {
			c.State = models.Deleted{OriginalAuthor: c.AuthorID, At: now}
			c.Body = ""
			delta = -1
		}
	} else {
		c.Body = body
		c.State = models.Live{}
		if wasDeleted {
			delta = 1
		}
	}

	if err := saveComment(ctx, f.core, c); err != nil {
		return "", err
	}
	if delta != 0 {
		if _, err := f.store.HIncrBy(ctx, keyNews(postID), "comments", delta); err != nil {
			return "", f.fail("comment.count", err)
		}
	}
	f.metrics.CommentOps.WithLabelValues(string(op)).Inc()
	return op, nil
}

// Upsert commentID 为 -1 时新增，否则修改；空正文为删除
func (f *CommentForest) Upsert(ctx context.Context, v *models.Viewer, postID, commentID, parentID int64, body string) (*CommentResult, error) {
	if commentID == NoParent {
		id, err := f.Insert(ctx, v, postID, parentID, body)
		if err != nil {
			return nil, err
		}
		return &CommentResult{PostID: postID, CommentID: id, Op: OpInsert}, nil
	}
	op, err := f.Edit(ctx, v, postID, commentID, body)
	if err != nil {
		return nil, err
	}
	return &CommentResult{PostID: postID, CommentID: commentID, Op: op}, nil
}

// Fetch 读取单条评论（含墓碑）及其票数
func (f *CommentForest) Fetch(ctx context.Context, postID, commentID int64) (*models.Comment, error) {
	c, err := loadComment(ctx, f.core, postID, commentID)
	if err != nil {
		return nil, err
	}
	votes, err := f.store.HGetAll(ctx, keyCommentVotes(postID))
	if err != nil {
		return nil, f.fail("comment.votes", err)
	}
	applyVotes(c, votes)
	return c, nil
}

// ViewerVote 查看者对评论的投票方向，未投票或匿名返回 nil
func (f *CommentForest) ViewerVote(ctx context.Context, v *models.Viewer, postID, commentID int64) (*models.Direction, error) {
	if !v.LoggedIn() {
		return nil, nil
	}
	member := formatID(v.User.ID)
	if _, ok, err := f.store.ZScore(ctx, keyCommentUp(postID, commentID), member); err != nil {
		return nil, f.fail("comment.viewer_vote", err)
	} else if ok {
		d := models.Up
		return &d, nil
	}
	if _, ok, err := f.store.ZScore(ctx, keyCommentDown(postID, commentID), member); err != nil {
		return nil, f.fail("comment.viewer_vote", err)
	} else if ok {
		d := models.Down
		return &d, nil
	}
	return nil, nil
}

// ByScoreThenNewest 默认排序：分数高的在前，同分时新的在前
func ByScoreThenNewest(a, b *models.Comment) bool {
	if a.Score() != b.Score() {
		return a.Score() > b.Score()
	}
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt > b.CreatedAt
	}
	return a.ID > b.ID
}

// Thread 按父评论分组后的评论森林
type Thread struct {
	Root     int64
	children map[int64][]*models.Comment
	byID     map[int64]*models.Comment
}

// Children 某条评论的直接回复（已排序）
func (t *Thread) Children(id int64) []*models.Comment {
	return t.children[id]
}

// Top 根下的第一层评论
func (t *Thread) Top() []*models.Comment {
	return t.children[t.Root]
}

// Get 按 id 查找
func (t *Thread) Get(id int64) (*models.Comment, bool) {
	c, ok := t.byID[id]
	return c, ok
}

// Len 森林中的评论数（含墓碑）
func (t *Thread) Len() int {
	return len(t.byID)
}

// Walk 深度优先遍历，level 从 0 开始
func (t *Thread) Walk(fn func(c *models.Comment, level int)) {
	var walk func(parent int64, level int)
	walk = func(parent int64, level int) {
		for _, c := range t.children[parent] {
			fn(c, level)
			walk(c.ID, level+1)
		}
	}
	walk(t.Root, 0)
}

// FetchThread 读取帖子下全部评论并按 parent_id 分组，每组用 less 排序
// 墓碑保留在树中，正文由调用方替换
func (f *CommentForest) FetchThread(ctx context.Context, postID, root int64, less func(a, b *models.Comment) bool) (*Thread, error) {
	if less == nil {
		less = ByScoreThenNewest
	}
	raw, err := f.store.HGetAll(ctx, keyThread(postID))
	if err != nil {
		return nil, f.fail("comment.thread", err)
	}
	votes, err := f.store.HGetAll(ctx, keyCommentVotes(postID))
	if err != nil {
		return nil, f.fail("comment.votes", err)
	}

	t := &Thread{
		Root:     root,
		children: make(map[int64][]*models.Comment),
		byID:     make(map[int64]*models.Comment, len(raw)),
	}
	for field, data := range raw {
		if field == "nextid" {
			continue
		}
		var c models.Comment
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			f.log.Warn("skipping malformed comment", zap.Int64("news_id", postID), zap.String("field", field), zap.Error(err))
			continue
		}
		applyVotes(&c, votes)
		t.byID[c.ID] = &c
		t.children[c.ParentID] = append(t.children[c.ParentID], &c)
	}
	for _, group := range t.children {
		sort.SliceStable(group, func(i, j int) bool { return less(group[i], group[j]) })
	}
	return t, nil
}

// ListUserComments 用户的评论，按时间倒序
func (f *CommentForest) ListUserComments(ctx context.Context, userID, start, count int64) ([]*models.Comment, int64, error) {
	if count < 0 || count > f.settings.MaxPageSize {
		return nil, 0, invalid("count out of range")
	}
	if start < 0 {
		start = 0
	}
	key := keyUserComments(userID)
	total, err := f.store.ZCard(ctx, key)
	if err != nil {
		return nil, 0, f.fail("comment.user_total", err)
	}
	if count == 0 {
		return nil, total, nil
	}
	refs, err := f.store.ZRevRange(ctx, key, start, start+count-1)
	if err != nil {
		return nil, 0, f.fail("comment.user_range", err)
	}
	out := make([]*models.Comment, 0, len(refs))
	for _, ref := range refs {
		postID, commentID, ok := parseCommentRef(ref)
		if !ok {
			continue
		}
		c, err := f.Fetch(ctx, postID, commentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, nil
}

func loadComment(ctx context.Context, c *core, postID, commentID int64) (*models.Comment, error) {
	data, ok, err := c.store.HGet(ctx, keyThread(postID), formatID(commentID))
	if err != nil {
		return nil, c.fail("comment.get", err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	var cm models.Comment
	if err := json.Unmarshal([]byte(data), &cm); err != nil {
		return nil, ErrNotFound
	}
	return &cm, nil
}

func saveComment(ctx context.Context, c *core, cm *models.Comment) error {
	data, err := json.Marshal(cm)
	if err != nil {
		return err
	}
	if err := c.store.HSet(ctx, keyThread(cm.PostID), map[string]string{formatID(cm.ID): string(data)}); err != nil {
		return c.fail("comment.save", err)
	}
	return nil
}

func applyVotes(c *models.Comment, votes map[string]string) {
	c.Up = parseCount(votes[commentVoteField(c.ID, models.Up)])
	c.Down = parseCount(votes[commentVoteField(c.ID, models.Down)])
}

func commentRef(postID, commentID int64) string {
	return formatID(postID) + "-" + formatID(commentID)
}

func parseCommentRef(ref string) (int64, int64, bool) {
	a, b, ok := strings.Cut(ref, "-")
	if !ok {
		return 0, 0, false
	}
	postID, err1 := strconv.ParseInt(a, 10, 64)
	commentID, err2 := strconv.ParseInt(b, 10, 64)
	return postID, commentID, err1 == nil && err2 == nil
}
