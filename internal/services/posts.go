package services

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"newsboard/internal/models"

	"go.uber.org/zap"
)

// PostService 帖子的提交、编辑、删除与读取
type PostService struct {
	*core
	gate     *RateGate
	votes    *VoteLedger
	hydrator *Hydrator
}

// normalize 校验标题和链接/正文，返回要存储的 url 字段
// 同时给出链接和正文时以链接为准
func (s *PostService) normalize(title, link, text string) (string, string, error) {
	title = strings.TrimSpace(title)
	link = strings.TrimSpace(link)
	if title == "" {
		return "", "", invalid("title is required")
	}
	if len(title) > s.settings.TitleMaxLength {
		return "", "", invalid("title too long")
	}
	if link == "" {
		if strings.TrimSpace(text) == "" {
			return "", "", invalid("url or text is required")
		}
		if len(text) > s.settings.CommentMaxLength {
			text = text[:s.settings.CommentMaxLength]
		}
		return title, models.TextPrefix + text, nil
	}
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", "", invalid("url must start with http:// or https://")
	}
	return title, link, nil
}

// Create 提交新帖，返回帖子 id
// 作者自动投一票赞成；冷却标记只在成功后设置
func (s *PostService) Create(ctx context.Context, v *models.Viewer, title, link, text string) (int64, error) {
	if !v.LoggedIn() {
		return 0, ErrPermissionDenied
	}
	title, link, err := s.normalize(title, link, text)
	if err != nil {
		return 0, err
	}
	uid := v.User.ID

	wait, err := s.gate.AllowedToPostIn(ctx, uid)
	if err != nil {
		return 0, err
	}
	if wait > 0 {
		return 0, &RateLimitedError{RetryAfter: wait}
	}
	if existing, found, err := s.gate.RepostGuard(ctx, link); err != nil {
		return 0, err
	} else if found {
		return 0, &DuplicateURLError{PostID: existing}
	}

	id, err := s.store.Incr(ctx, keyNewsCount)
	if err != nil {
		return 0, s.fail("news.nextid", err)
	}
	if owner, ok, err := s.gate.InstallRepostGuard(ctx, link, id); err != nil {
		return 0, err
	} else if !ok {
		return 0, &DuplicateURLError{PostID: owner}
	}

	post := &models.Post{
		ID:        id,
		Title:     title,
		URL:       link,
		AuthorID:  uid,
		CreatedAt: s.now(),
	}
	if err := s.publish(ctx, v, post); err != nil {
		s.discard(ctx, post)
		return 0, err
	}
	if err := s.gate.MarkSubmitted(ctx, uid); err != nil {
		// the post is already live; only the cooldown is lost
		s.log.Warn("failed to mark submission", zap.Int64("news_id", id), zap.Int64("user_id", uid), zap.Error(err))
	}

	s.metrics.PostsCreated.Inc()
	s.log.Info("news submitted", zap.Int64("news_id", id), zap.Int64("user_id", uid))
	return id, nil
}

// publish 写入帖子记录、作者的自动赞和两个索引
func (s *PostService) publish(ctx context.Context, v *models.Viewer, post *models.Post) error {
	if err := s.store.HSet(ctx, keyNews(post.ID), post.ToHash()); err != nil {
		return s.fail("news.save", err)
	}
	if _, err := s.votes.CastPostVote(ctx, v, post.ID, models.Up); err != nil {
		return err
	}
	member := formatID(post.ID)
	if err := s.store.ZAdd(ctx, keyUserPosted(post.AuthorID), member, float64(post.CreatedAt)); err != nil {
		return s.fail("news.user_index", err)
	}
	if err := s.store.ZAdd(ctx, keyNewsCron, member, float64(post.CreatedAt)); err != nil {
		return s.fail("news.cron", err)
	}
	return nil
}

// discard 撤销发布到一半的帖子，先释放它占用的 URL
func (s *PostService) discard(ctx context.Context, post *models.Post) {
	log := s.log.With(zap.Int64("news_id", post.ID))
	if err := s.gate.ReleaseRepostGuard(ctx, post.URL, post.ID); err != nil {
		log.Warn("failed to release repost guard", zap.Error(err))
	}
	member := formatID(post.ID)
	for _, key := range []string{keyNewsTop, keyNewsCron, keyUserPosted(post.AuthorID), keyUserSaved(post.AuthorID)} {
		if err := s.store.ZRem(ctx, key, member); err != nil {
			log.Warn("failed to unindex discarded news", zap.String("key", key), zap.Error(err))
		}
	}
	if err := s.store.Del(ctx, keyNews(post.ID), keyNewsUp(post.ID), keyNewsDown(post.ID)); err != nil {
		log.Warn("failed to drop discarded news", zap.Error(err))
	}
}

// editable 所有者在编辑窗口内可修改；管理员不受限
func (s *PostService) editable(ctx context.Context, v *models.Viewer, id int64) (*models.Post, error) {
	if !v.LoggedIn() {
		return nil, ErrPermissionDenied
	}
	post, err := loadLivePost(ctx, s.core, id)
	if err != nil {
		return nil, err
	}
	if v.User.IsAdmin() {
		return post, nil
	}
	if post.AuthorID != v.User.ID {
		return nil, ErrPermissionDenied
	}
	if time.Duration(s.now()-post.CreatedAt)*time.Second > s.settings.NewsEditTime {
		return nil, ErrEditWindowExpired
	}
	return post, nil
}

// Edit 修改标题和链接/正文；换到被占用的 URL 时拒绝
func (s *PostService) Edit(ctx context.Context, v *models.Viewer, id int64, title, link, text string) error {
	post, err := s.editable(ctx, v, id)
	if err != nil {
		return err
	}
	title, link, err = s.normalize(title, link, text)
	if err != nil {
		return err
	}

	moved := link != post.URL
	if moved {
		if owner, ok, err := s.gate.InstallRepostGuard(ctx, link, id); err != nil {
			return err
		} else if !ok {
			return &DuplicateURLError{PostID: owner}
		}
	}

	if err := s.store.HSet(ctx, keyNews(id), map[string]string{"title": title, "url": link}); err != nil {
		if moved {
			if rerr := s.gate.ReleaseRepostGuard(ctx, link, id); rerr != nil {
				s.log.Warn("failed to release repost guard", zap.Int64("news_id", id), zap.Error(rerr))
			}
		}
		return s.fail("news.edit", err)
	}
	if moved {
		return s.gate.ReleaseRepostGuard(ctx, post.URL, id)
	}
	return nil
}

// Delete 软删除：标记 del 并移出列表与用户索引；URL 防重复标记保留
func (s *PostService) Delete(ctx context.Context, v *models.Viewer, id int64) error {
	post, err := s.editable(ctx, v, id)
	if err != nil {
		return err
	}
	if err := s.store.HSet(ctx, keyNews(id), map[string]string{"del": "1"}); err != nil {
		return s.fail("news.delete", err)
	}
	member := formatID(id)
	for _, key := range []string{keyNewsTop, keyNewsCron, keyUserPosted(post.AuthorID)} {
		if err := s.store.ZRem(ctx, key, member); err != nil {
			return s.fail("news.delete_index", err)
		}
	}
	voters, err := s.store.ZRange(ctx, keyNewsUp(id), 0, -1)
	if err != nil {
		return s.fail("news.delete_voters", err)
	}
	for _, raw := range voters {
		uid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		if err := s.store.ZRem(ctx, keyUserSaved(uid), member); err != nil {
			return s.fail("news.delete_saved", err)
		}
	}
	s.log.Info("news deleted", zap.Int64("news_id", id), zap.Int64("user_id", v.User.ID))
	return nil
}

// Get 读取单个帖子并为查看者补全
func (s *PostService) Get(ctx context.Context, v *models.Viewer, id int64) (*models.PostView, error) {
	post, err := loadLivePost(ctx, s.core, id)
	if err != nil {
		return nil, err
	}
	views, err := s.hydrator.Hydrate(ctx, v, []*models.Post{post})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// Hydrate 批量补全
func (s *PostService) Hydrate(ctx context.Context, v *models.Viewer, posts []*models.Post) ([]*models.PostView, error) {
	return s.hydrator.Hydrate(ctx, v, posts)
}

// ParseID 解析路径中的帖子 id
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("bad id")
	}
	return id, nil
}
