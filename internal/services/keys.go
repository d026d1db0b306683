package services

import (
	"fmt"
	"strings"
)

// 存储键布局
const (
	keyNewsCount  = "news.count"
	keyNewsTop    = "news.top"
	keyNewsCron   = "news.cron"
	keyUsersCount = "users.count"
)

func keyNews(id int64) string     { return fmt.Sprintf("news:%d", id) }
func keyNewsUp(id int64) string   { return fmt.Sprintf("news.up:%d", id) }
func keyNewsDown(id int64) string { return fmt.Sprintf("news.down:%d", id) }

func keyUser(id int64) string         { return fmt.Sprintf("user:%d", id) }
func keyUserSaved(id int64) string    { return fmt.Sprintf("user.saved:%d", id) }
func keyUserPosted(id int64) string   { return fmt.Sprintf("user.posted:%d", id) }
func keyUserComments(id int64) string { return fmt.Sprintf("user.comments:%d", id) }
func keySubmittedRecently(id int64) string {
	return fmt.Sprintf("user:%d:submitted_recently", id)
}
func keyKarmaIncr(id int64) string   { return fmt.Sprintf("user:%d:karma_incr", id) }
func keyUsername(name string) string { return "username.to.id:" + strings.ToLower(name) }
func keyAuth(token string) string    { return "auth:" + token }

func keyThread(postID int64) string        { return fmt.Sprintf("thread:comment:%d", postID) }
func keyCommentVotes(postID int64) string  { return fmt.Sprintf("comment.votes:%d", postID) }
func keyCommentUp(postID, id int64) string { return fmt.Sprintf("comment.up:%d-%d", postID, id) }
func keyCommentDown(postID, id int64) string {
	return fmt.Sprintf("comment.down:%d-%d", postID, id)
}

func keyURL(url string) string        { return "url:" + url }
func keySignupLimit(ip string) string { return "limit:create_user." + ip }
