package models

import (
	"strconv"
	"strings"
)

// 用户标志位
const (
	FlagAdmin       = "a"
	FlagKarmaSource = "k"
)

// User 用户记录，对应 user:<id> 哈希
type User struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Password      string `json:"-"` // bcrypt hash
	CreatedAt     int64  `json:"ctime"`
	Karma         int64  `json:"karma"`
	KarmaIncrTime int64  `json:"-"`
	About         string `json:"about"`
	Email         string `json:"-"`
	Auth          string `json:"-"`
	APISecret     string `json:"-"`
	Flags         string `json:"-"`
	Replies       int64  `json:"replies"`
}

// HasFlags 是否拥有全部指定标志
func (u *User) HasFlags(flags string) bool {
	for _, f := range flags {
		if !strings.ContainsRune(u.Flags, f) {
			return false
		}
	}
	return true
}

func (u *User) IsAdmin() bool {
	return u.HasFlags(FlagAdmin)
}

func (u *User) ToHash() map[string]string {
	return map[string]string{
		"id":              strconv.FormatInt(u.ID, 10),
		"username":        u.Username,
		"password":        u.Password,
		"ctime":           strconv.FormatInt(u.CreatedAt, 10),
		"karma":           strconv.FormatInt(u.Karma, 10),
		"karma_incr_time": strconv.FormatInt(u.KarmaIncrTime, 10),
		"about":           u.About,
		"email":           u.Email,
		"auth":            u.Auth,
		"apisecret":       u.APISecret,
		"flags":           u.Flags,
		"replies":         strconv.FormatInt(u.Replies, 10),
	}
}

// UserFromHash 从存储哈希还原用户；空哈希返回 nil
func UserFromHash(h map[string]string) *User {
	if len(h) == 0 || h["id"] == "" {
		return nil
	}
	return &User{
		ID:            parseInt(h["id"]),
		Username:      h["username"],
		Password:      h["password"],
		CreatedAt:     parseInt(h["ctime"]),
		Karma:         parseInt(h["karma"]),
		KarmaIncrTime: parseInt(h["karma_incr_time"]),
		About:         h["about"],
		Email:         h["email"],
		Auth:          h["auth"],
		APISecret:     h["apisecret"],
		Flags:         h["flags"],
		Replies:       parseInt(h["replies"]),
	}
}

// Viewer 一次请求的执行者：可能是匿名访客
type Viewer struct {
	User *User
	IP   string
}

// UserID 匿名访客返回 0
func (v *Viewer) UserID() int64 {
	if v == nil || v.User == nil {
		return 0
	}
	return v.User.ID
}

func (v *Viewer) LoggedIn() bool {
	return v != nil && v.User != nil
}
