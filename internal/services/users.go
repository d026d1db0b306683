package services

import (
	"context"
	"strconv"
	"strings"

	"newsboard/internal/models"
	"newsboard/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountService 账号：注册、登录校验、令牌、标志位、资料
type AccountService struct {
	*core
	gate *RateGate
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Create 注册新用户；第一个用户自动成为管理员
func (a *AccountService) Create(ctx context.Context, username, password, ip string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.ContainsAny(username, " \t\r\n") {
		return nil, invalid("bad username")
	}
	if len(password) < a.settings.PasswordMinLength {
		return nil, invalid("password is too short")
	}

	taken, err := a.store.Exists(ctx, keyUsername(username))
	if err != nil {
		return nil, a.fail("user.exists", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}
	blocked, err := a.gate.GuardSignup(ctx, ip)
	if err != nil {
		return nil, err
	}
	if blocked {
		wait, err := a.gate.SignupRetryAfter(ctx, ip)
		if err != nil {
			return nil, err
		}
		return nil, &RateLimitedError{RetryAfter: wait}
	}

	id, err := a.store.Incr(ctx, keyUsersCount)
	if err != nil {
		return nil, a.fail("user.nextid", err)
	}
	claimed, err := a.store.SetNX(ctx, keyUsername(username), formatID(id), 0)
	if err != nil {
		return nil, a.fail("user.claim", err)
	}
	if !claimed {
		return nil, ErrUsernameTaken
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := a.now()
	u := &models.User{
		ID:            id,
		Username:      username,
		Password:      hash,
		CreatedAt:     now,
		Karma:         a.settings.UserInitialKarma,
		KarmaIncrTime: now,
		Auth:          newToken(),
		APISecret:     newToken(),
	}
	if id == 1 {
		u.Flags = models.FlagAdmin
	}
	if err := a.store.HSet(ctx, keyUser(id), u.ToHash()); err != nil {
		return nil, a.fail("user.save", err)
	}
	if err := a.store.Set(ctx, keyAuth(u.Auth), formatID(id)); err != nil {
		return nil, a.fail("user.auth", err)
	}
	a.log.Info("user created", zap.Int64("user_id", id), zap.String("username", username))
	return u, nil
}

// CheckCredentials 校验用户名和密码
func (a *AccountService) CheckCredentials(ctx context.Context, username, password string) (*models.User, error) {
	u, err := a.ByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil || !utils.CheckPassword(password, u.Password) {
		return nil, ErrPermissionDenied
	}
	return u, nil
}

// ByID 不存在返回 nil
func (a *AccountService) ByID(ctx context.Context, id int64) (*models.User, error) {
	h, err := a.store.HGetAll(ctx, keyUser(id))
	if err != nil {
		return nil, a.fail("user.get", err)
	}
	return models.UserFromHash(h), nil
}

// ByUsername 用户名不区分大小写
func (a *AccountService) ByUsername(ctx context.Context, username string) (*models.User, error) {
	raw, ok, err := a.store.Get(ctx, keyUsername(strings.TrimSpace(username)))
	if err != nil {
		return nil, a.fail("user.lookup", err)
	}
	if !ok {
		return nil, nil
	}
	id, _ := strconv.ParseInt(raw, 10, 64)
	return a.ByID(ctx, id)
}

// ByAuth 按会话令牌查找用户
func (a *AccountService) ByAuth(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	raw, ok, err := a.store.Get(ctx, keyAuth(token))
	if err != nil {
		return nil, a.fail("user.auth_lookup", err)
	}
	if !ok {
		return nil, nil
	}
	id, _ := strconv.ParseInt(raw, 10, 64)
	u, err := a.ByID(ctx, id)
	if err != nil || u == nil || u.Auth != token {
		return nil, err
	}
	return u, nil
}

// RotateAuthToken 换发会话令牌（登出），旧令牌立即失效
func (a *AccountService) RotateAuthToken(ctx context.Context, v *models.Viewer) (string, error) {
	if !v.LoggedIn() {
		return "", ErrPermissionDenied
	}
	u := v.User
	token := newToken()
	if err := a.store.Del(ctx, keyAuth(u.Auth)); err != nil {
		return "", a.fail("user.auth_del", err)
	}
	if err := a.store.Set(ctx, keyAuth(token), formatID(u.ID)); err != nil {
		return "", a.fail("user.auth_set", err)
	}
	if err := a.store.HSet(ctx, keyUser(u.ID), map[string]string{"auth": token}); err != nil {
		return "", a.fail("user.auth_save", err)
	}
	u.Auth = token
	return token, nil
}

// AddFlags 追加标志位
func (a *AccountService) AddFlags(ctx context.Context, userID int64, flags string) error {
	u, err := a.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return ErrNotFound
	}
	merged := u.Flags
	for _, f := range flags {
		if !strings.ContainsRune(merged, f) {
			merged += string(f)
		}
	}
	if err := a.store.HSet(ctx, keyUser(userID), map[string]string{"flags": merged}); err != nil {
		return a.fail("user.flags", err)
	}
	return nil
}

// UpdateProfile 修改简介、邮箱；password 非空时一并修改
func (a *AccountService) UpdateProfile(ctx context.Context, v *models.Viewer, about, email, password string) error {
	if !v.LoggedIn() {
		return ErrPermissionDenied
	}
	if len(about) > a.settings.CommentMaxLength {
		return invalid("about too long")
	}
	fields := map[string]string{
		"about": about,
		"email": strings.TrimSpace(email),
	}
	if password != "" {
		if len(password) < a.settings.PasswordMinLength {
			return invalid("password is too short")
		}
		hash, err := utils.HashPassword(password)
		if err != nil {
			return err
		}
		fields["password"] = hash
	}
	if err := a.store.HSet(ctx, keyUser(v.User.ID), fields); err != nil {
		return a.fail("user.profile", err)
	}
	v.User.About = fields["about"]
	v.User.Email = fields["email"]
	if hash, ok := fields["password"]; ok {
		v.User.Password = hash
	}
	return nil
}
