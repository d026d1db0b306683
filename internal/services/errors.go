package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrEditWindowExpired = errors.New("edit time expired")
	ErrDuplicateVote     = errors.New("duplicated vote")
	ErrInsufficientKarma = errors.New("insufficient karma")
	ErrRateLimited       = errors.New("rate limited")
	ErrDuplicateURL      = errors.New("url already submitted")
	ErrInvalidInput      = errors.New("invalid input")
	ErrStoreUnavailable  = errors.New("store unavailable")

	ErrUsernameTaken = fmt.Errorf("%w: username is already taken", ErrInvalidInput)
)

// RateLimitedError 提交/注册过于频繁，RetryAfter 为剩余冷却时间
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// DuplicateURLError 该 URL 在防重复窗口内已被提交，PostID 为原帖
type DuplicateURLError struct {
	PostID int64
}

func (e *DuplicateURLError) Error() string {
	return fmt.Sprintf("url already submitted as news %d", e.PostID)
}

func (e *DuplicateURLError) Is(target error) bool {
	return target == ErrDuplicateURL
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}
