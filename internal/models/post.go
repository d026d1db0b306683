package models

import (
	"net/url"
	"strconv"
	"strings"
)

// TextPrefix 文本帖的 URL 前缀，正文直接编码在 url 字段中
const TextPrefix = "text://"

// Post 帖子记录，对应 news:<id> 哈希
type Post struct {
	ID        int64   `json:"id"`
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	AuthorID  int64   `json:"user_id"`
	CreatedAt int64   `json:"ctime"`
	Score     float64 `json:"score"`
	Rank      float64 `json:"rank"`
	Up        int64   `json:"up"`
	Down      int64   `json:"down"`
	Comments  int64   `json:"comments"`
	Deleted   bool    `json:"del"`
}

// IsText 是否为文本帖
func (p *Post) IsText() bool {
	return strings.HasPrefix(p.URL, TextPrefix)
}

// Text 文本帖正文，链接帖返回空
func (p *Post) Text() string {
	if !p.IsText() {
		return ""
	}
	return strings.TrimPrefix(p.URL, TextPrefix)
}

// Domain 链接帖的主机名（去掉 www.）
func (p *Post) Domain() string {
	if p.IsText() {
		return ""
	}
	u, err := url.Parse(p.URL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// ToHash 序列化为存储哈希字段
func (p *Post) ToHash() map[string]string {
	del := "0"
	if p.Deleted {
		del = "1"
	}
	return map[string]string{
		"id":       strconv.FormatInt(p.ID, 10),
		"title":    p.Title,
		"url":      p.URL,
		"user_id":  strconv.FormatInt(p.AuthorID, 10),
		"ctime":    strconv.FormatInt(p.CreatedAt, 10),
		"score":    formatFloat(p.Score),
		"rank":     formatFloat(p.Rank),
		"up":       strconv.FormatInt(p.Up, 10),
		"down":     strconv.FormatInt(p.Down, 10),
		"comments": strconv.FormatInt(p.Comments, 10),
		"del":      del,
	}
}

// PostFromHash 从存储哈希还原帖子；空哈希返回 nil
func PostFromHash(h map[string]string) *Post {
	if len(h) == 0 || h["id"] == "" {
		return nil
	}
	return &Post{
		ID:        parseInt(h["id"]),
		Title:     h["title"],
		URL:       h["url"],
		AuthorID:  parseInt(h["user_id"]),
		CreatedAt: parseInt(h["ctime"]),
		Score:     parseFloat(h["score"]),
		Rank:      parseFloat(h["rank"]),
		Up:        parseInt(h["up"]),
		Down:      parseInt(h["down"]),
		Comments:  parseInt(h["comments"]),
		Deleted:   h["del"] == "1",
	}
}

// PostView 为当前查看者补全后的帖子
type PostView struct {
	Post
	Username   string     `json:"username"`
	ViewerVote *Direction `json:"voted,omitempty"`
	Domain     string     `json:"domain,omitempty"`
	Text       string     `json:"text,omitempty"`
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
