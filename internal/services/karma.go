package services

import (
	"context"
	"strconv"

	"newsboard/internal/models"

	"go.uber.org/zap"
)

// KarmaAccount 用户积分（karma）与回复计数
type KarmaAccount struct {
	*core
}

// PassiveIncrement 访问奖励：距上次发放超过间隔时增加固定积分
// 同一间隔内重复或并发调用只发放一次
func (k *KarmaAccount) PassiveIncrement(ctx context.Context, v *models.Viewer) error {
	if !v.LoggedIn() {
		return nil
	}
	u := v.User
	now := k.now()
	if now-u.KarmaIncrTime < int64(k.settings.KarmaIncrementInterval.Seconds()) {
		return nil
	}

	// one payout per interval across concurrent requests
	won, err := k.store.SetNX(ctx, keyKarmaIncr(u.ID), strconv.FormatInt(now, 10), k.settings.KarmaIncrementInterval)
	if err != nil {
		return k.fail("karma.incr_gate", err)
	}
	if !won {
		return nil
	}

	key := keyUser(u.ID)
	if err := k.store.HSet(ctx, key, map[string]string{"karma_incr_time": strconv.FormatInt(now, 10)}); err != nil {
		return k.fail("karma.incr_time", err)
	}
	karma, err := k.store.HIncrBy(ctx, key, "karma", k.settings.KarmaIncrementAmount)
	if err != nil {
		return k.fail("karma.incr", err)
	}
	u.KarmaIncrTime = now
	u.Karma = karma
	k.log.Debug("passive karma increment", zap.Int64("user_id", u.ID), zap.Int64("karma", karma))
	return nil
}

// Adjust 增减积分，不做下限截断；执行者自己的缓存记录同步更新
func (k *KarmaAccount) Adjust(ctx context.Context, v *models.Viewer, userID, delta int64) (int64, error) {
	karma, err := k.store.HIncrBy(ctx, keyUser(userID), "karma", delta)
	if err != nil {
		return 0, k.fail("karma.adjust", err)
	}
	if v.UserID() == userID {
		v.User.Karma = karma
	}
	return karma, nil
}

// Karma 查询积分；执行者自己的记录直接返回缓存值
func (k *KarmaAccount) Karma(ctx context.Context, v *models.Viewer, userID int64) (int64, error) {
	if v.UserID() == userID && userID != 0 {
		return v.User.Karma, nil
	}
	raw, ok, err := k.store.HGet(ctx, keyUser(userID), "karma")
	if err != nil {
		return 0, k.fail("karma.get", err)
	}
	if !ok {
		return 0, ErrNotFound
	}
	n, _ := strconv.ParseInt(raw, 10, 64)
	return n, nil
}

// MinKarmaFor 投票所需的最低积分，踩比赞要求高
func (k *KarmaAccount) MinKarmaFor(d models.Direction) int64 {
	if d == models.Down {
		return k.settings.NewsDownvoteMinKarma
	}
	return k.settings.NewsUpvoteMinKarma
}

// IncrReplies 未读回复数 +1，用户不存在时忽略
func (k *KarmaAccount) IncrReplies(ctx context.Context, userID int64) error {
	key := keyUser(userID)
	exists, err := k.store.Exists(ctx, key)
	if err != nil {
		return k.fail("replies.exists", err)
	}
	if !exists {
		return nil
	}
	if _, err := k.store.HIncrBy(ctx, key, "replies", 1); err != nil {
		return k.fail("replies.incr", err)
	}
	return nil
}

// ResetReplies 清零执行者的未读回复数
func (k *KarmaAccount) ResetReplies(ctx context.Context, v *models.Viewer) error {
	if !v.LoggedIn() {
		return ErrPermissionDenied
	}
	if err := k.store.HSet(ctx, keyUser(v.User.ID), map[string]string{"replies": "0"}); err != nil {
		return k.fail("replies.reset", err)
	}
	v.User.Replies = 0
	return nil
}
