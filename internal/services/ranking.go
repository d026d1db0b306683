package services

import (
	"context"
	"sort"
	"strconv"

	"newsboard/internal/models"

	"go.uber.org/zap"
)

// RankIndex 维护按排名 (news.top) 和按时间 (news.cron) 排序的帖子视图
// 没有后台任务：读取列表时顺带修正漂移的排名
type RankIndex struct {
	*core
	hydrator *Hydrator
}

// Page 一页帖子及该视图的总数
type Page struct {
	Posts []*models.PostView
	Total int64
}

// CorrectRank 由缓存的分数和年龄重新计算排名；超过误差才算变化
func (r *RankIndex) CorrectRank(p *models.Post, now int64) (float64, bool) {
	fresh := r.settings.Rank.CalculateRank(p.Score, p.CreatedAt, now)
	return fresh, r.settings.Rank.RankDrifted(p.Rank, fresh)
}

// Recompute 用投票集合的真实基数重算分数和排名，写回缓存和 news.top
func (r *RankIndex) Recompute(ctx context.Context, p *models.Post) (float64, float64, error) {
	up, err := r.store.ZCard(ctx, keyNewsUp(p.ID))
	if err != nil {
		return 0, 0, r.fail("rank.card_up", err)
	}
	down, err := r.store.ZCard(ctx, keyNewsDown(p.ID))
	if err != nil {
		return 0, 0, r.fail("rank.card_down", err)
	}
	score := r.settings.Rank.CalculateScore(up, down)
	rank := r.settings.Rank.CalculateRank(score, p.CreatedAt, r.now())

	if err := r.store.HSet(ctx, keyNews(p.ID), map[string]string{
		"score": strconv.FormatFloat(score, 'f', -1, 64),
		"rank":  strconv.FormatFloat(rank, 'f', -1, 64),
	}); err != nil {
		return 0, 0, r.fail("rank.save", err)
	}
	if err := r.store.ZAdd(ctx, keyNewsTop, formatID(p.ID), rank); err != nil {
		return 0, 0, r.fail("rank.index", err)
	}
	p.Score, p.Rank = score, rank
	return score, rank, nil
}

// correct 修正单个帖子的排名；未漂移时不写入
func (r *RankIndex) correct(ctx context.Context, p *models.Post, now int64) error {
	rank, changed := r.CorrectRank(p, now)
	if !changed {
		return nil
	}
	if err := r.store.HSet(ctx, keyNews(p.ID), map[string]string{
		"rank": strconv.FormatFloat(rank, 'f', -1, 64),
	}); err != nil {
		return r.fail("rank.correct", err)
	}
	if err := r.store.ZAdd(ctx, keyNewsTop, formatID(p.ID), rank); err != nil {
		return r.fail("rank.correct_index", err)
	}
	r.metrics.RankCorrections.Inc()
	r.log.Debug("rank corrected", zap.Int64("news_id", p.ID), zap.Float64("from", p.Rank), zap.Float64("to", rank))
	p.Rank = rank
	return nil
}

// ListRanked 首页：按排名分页，修正后按新排名重新排序
func (r *RankIndex) ListRanked(ctx context.Context, v *models.Viewer, start, count int64) (*Page, error) {
	posts, total, err := r.window(ctx, keyNewsTop, start, count, true)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].Rank > posts[j].Rank })
	return r.page(ctx, v, posts, total)
}

// ListChronological 最新：按发布时间分页
func (r *RankIndex) ListChronological(ctx context.Context, v *models.Viewer, start, count int64) (*Page, error) {
	posts, total, err := r.window(ctx, keyNewsCron, start, count, true)
	if err != nil {
		return nil, err
	}
	return r.page(ctx, v, posts, total)
}

// ListSaved 用户赞过的帖子
func (r *RankIndex) ListSaved(ctx context.Context, v *models.Viewer, userID, start, count int64) (*Page, error) {
	posts, total, err := r.window(ctx, keyUserSaved(userID), start, count, false)
	if err != nil {
		return nil, err
	}
	return r.page(ctx, v, posts, total)
}

// ListUserPosts 用户提交的帖子
func (r *RankIndex) ListUserPosts(ctx context.Context, v *models.Viewer, userID, start, count int64) (*Page, error) {
	posts, total, err := r.window(ctx, keyUserPosted(userID), start, count, false)
	if err != nil {
		return nil, err
	}
	return r.page(ctx, v, posts, total)
}

func (r *RankIndex) page(ctx context.Context, v *models.Viewer, posts []*models.Post, total int64) (*Page, error) {
	views, err := r.hydrator.Hydrate(ctx, v, posts)
	if err != nil {
		return nil, err
	}
	return &Page{Posts: views, Total: total}, nil
}

// window 读取 key 中 [start, start+count) 的未删除帖子；fix 为 true 时顺带修正排名
func (r *RankIndex) window(ctx context.Context, key string, start, count int64, fix bool) ([]*models.Post, int64, error) {
	start, err := r.checkPage(start, count)
	if err != nil {
		return nil, 0, err
	}
	total, err := r.store.ZCard(ctx, key)
	if err != nil {
		return nil, 0, r.fail("rank.total", err)
	}
	if count == 0 {
		return nil, total, nil
	}
	ids, err := r.store.ZRevRange(ctx, key, start, start+count-1)
	if err != nil {
		return nil, 0, r.fail("rank.range", err)
	}

	now := r.now()
	posts := make([]*models.Post, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		p, err := loadPost(ctx, r.core, id)
		if err != nil {
			return nil, 0, err
		}
		if p == nil || p.Deleted {
			continue
		}
		if fix {
			if err := r.correct(ctx, p, now); err != nil {
				return nil, 0, err
			}
		}
		posts = append(posts, p)
	}
	return posts, total, nil
}

// checkPage 负数 start 视为 0；count 超过上限拒绝
func (r *RankIndex) checkPage(start, count int64) (int64, error) {
	if count < 0 || count > r.settings.MaxPageSize {
		return 0, invalid("count out of range")
	}
	if start < 0 {
		start = 0
	}
	return start, nil
}

// loadPost 读取帖子，不存在返回 nil
func loadPost(ctx context.Context, c *core, id int64) (*models.Post, error) {
	h, err := c.store.HGetAll(ctx, keyNews(id))
	if err != nil {
		return nil, c.fail("news.get", err)
	}
	return models.PostFromHash(h), nil
}

// loadLivePost 读取未删除的帖子，否则 ErrNotFound
func loadLivePost(ctx context.Context, c *core, id int64) (*models.Post, error) {
	p, err := loadPost(ctx, c, id)
	if err != nil {
		return nil, err
	}
	if p == nil || p.Deleted {
		return nil, ErrNotFound
	}
	return p, nil
}
