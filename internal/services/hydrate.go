package services

import (
	"context"

	"newsboard/internal/models"
	"newsboard/internal/utils"
)

// Hydrator 为查看者补全帖子：作者名、查看者的投票方向、域名、正文
type Hydrator struct {
	*core
	names *utils.Cache[string]
}

// Username 用户名查询，带本地缓存；用户名不可修改
func (h *Hydrator) Username(ctx context.Context, userID int64) (string, error) {
	key := formatID(userID)
	if name, ok := h.names.Get(key); ok {
		return name, nil
	}
	name, ok, err := h.store.HGet(ctx, keyUser(userID), "username")
	if err != nil {
		return "", h.fail("hydrate.username", err)
	}
	if !ok {
		return "", nil
	}
	h.names.Set(key, name)
	return name, nil
}

// ViewerVote 查看者对帖子的投票方向，未投票或匿名返回 nil
func (h *Hydrator) ViewerVote(ctx context.Context, v *models.Viewer, postID int64) (*models.Direction, error) {
	if !v.LoggedIn() {
		return nil, nil
	}
	member := formatID(v.User.ID)
	for _, d := range []models.Direction{models.Up, models.Down} {
		key := keyNewsUp(postID)
		if d == models.Down {
			key = keyNewsDown(postID)
		}
		_, ok, err := h.store.ZScore(ctx, key, member)
		if err != nil {
			return nil, h.fail("hydrate.vote", err)
		}
		if ok {
			dir := d
			return &dir, nil
		}
	}
	return nil, nil
}

// Hydrate 一次性构建展示所需的帖子视图
func (h *Hydrator) Hydrate(ctx context.Context, v *models.Viewer, posts []*models.Post) ([]*models.PostView, error) {
	views := make([]*models.PostView, 0, len(posts))
	for _, p := range posts {
		name, err := h.Username(ctx, p.AuthorID)
		if err != nil {
			return nil, err
		}
		vote, err := h.ViewerVote(ctx, v, p.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, &models.PostView{
			Post:       *p,
			Username:   name,
			ViewerVote: vote,
			Domain:     p.Domain(),
			Text:       p.Text(),
		})
	}
	return views, nil
}
