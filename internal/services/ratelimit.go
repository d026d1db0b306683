package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"newsboard/internal/models"
)

// RateGate 提交冷却、URL 防重复提交、注册限流
type RateGate struct {
	*core
}

// GuardSubmission 冷却期内返回 true
func (g *RateGate) GuardSubmission(ctx context.Context, userID int64) (bool, error) {
	ok, err := g.store.Exists(ctx, keySubmittedRecently(userID))
	if err != nil {
		return false, g.fail("gate.submission", err)
	}
	return ok, nil
}

// AllowedToPostIn 距离可以再次提交的剩余时间，0 表示现在即可
func (g *RateGate) AllowedToPostIn(ctx context.Context, userID int64) (time.Duration, error) {
	ttl, err := g.store.TTL(ctx, keySubmittedRecently(userID))
	if err != nil {
		return 0, g.fail("gate.submission_ttl", err)
	}
	return ttl, nil
}

// MarkSubmitted 提交成功后才设置冷却标记
func (g *RateGate) MarkSubmitted(ctx context.Context, userID int64) error {
	if err := g.store.SetEX(ctx, keySubmittedRecently(userID), "1", g.settings.NewsSubmissionBreak); err != nil {
		return g.fail("gate.mark_submitted", err)
	}
	return nil
}

// RepostGuard 返回仍在防重复窗口内的同 URL 帖子 id
func (g *RateGate) RepostGuard(ctx context.Context, url string) (int64, bool, error) {
	if !IsGuardedURL(url) {
		return 0, false, nil
	}
	raw, ok, err := g.store.Get(ctx, keyURL(url))
	if err != nil {
		return 0, false, g.fail("gate.repost", err)
	}
	if !ok {
		return 0, false, nil
	}
	id, _ := strconv.ParseInt(raw, 10, 64)
	return id, true, nil
}

// InstallRepostGuard 原子地占用 URL；已被占用时返回占用者的帖子 id
func (g *RateGate) InstallRepostGuard(ctx context.Context, url string, postID int64) (int64, bool, error) {
	if !IsGuardedURL(url) {
		return 0, true, nil
	}
	ok, err := g.store.SetNX(ctx, keyURL(url), formatID(postID), g.settings.PreventRepostTime)
	if err != nil {
		return 0, false, g.fail("gate.install_repost", err)
	}
	if ok {
		return postID, true, nil
	}
	owner, found, err := g.RepostGuard(ctx, url)
	if err != nil {
		return 0, false, err
	}
	if !found {
		// expired between the two calls
		return g.InstallRepostGuard(ctx, url, postID)
	}
	return owner, owner == postID, nil
}

// ReleaseRepostGuard 释放 postID 持有的 URL 标记；已被其他帖子占用时不动
func (g *RateGate) ReleaseRepostGuard(ctx context.Context, url string, postID int64) error {
	if !IsGuardedURL(url) {
		return nil
	}
	if _, err := g.store.DelIfEquals(ctx, keyURL(url), formatID(postID)); err != nil {
		return g.fail("gate.release_repost", err)
	}
	return nil
}

// GuardSignup 同一 IP 在限流窗口内再次注册时返回 true
func (g *RateGate) GuardSignup(ctx context.Context, ip string) (bool, error) {
	ok, err := g.store.SetNX(ctx, keySignupLimit(ip), "1", g.settings.SignupThrottle)
	if err != nil {
		return false, g.fail("gate.signup", err)
	}
	return !ok, nil
}

// SignupRetryAfter 注册限流剩余时间
func (g *RateGate) SignupRetryAfter(ctx context.Context, ip string) (time.Duration, error) {
	ttl, err := g.store.TTL(ctx, keySignupLimit(ip))
	if err != nil {
		return 0, g.fail("gate.signup_ttl", err)
	}
	return ttl, nil
}

// IsGuardedURL 只有真实链接受防重复保护，文本帖不受
func IsGuardedURL(url string) bool {
	return url != "" && !strings.HasPrefix(url, models.TextPrefix)
}
