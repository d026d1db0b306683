package models

import (
	"encoding/json"
	"fmt"

	"newsboard/internal/utils"
)

// CommentState 评论状态：Live 或 Deleted
type CommentState interface {
	isCommentState()
}

// Live 正常评论
type Live struct{}

// Deleted 墓碑：正文已清空，节点保留以维持树结构
type Deleted struct {
	OriginalAuthor int64
	At             int64
}

func (Live) isCommentState()    {}
func (Deleted) isCommentState() {}

// Comment 评论记录，存放在 thread:comment:<post_id> 哈希中
type Comment struct {
	PostID    int64
	ID        int64
	ParentID  int64 // -1 为顶层评论
	AuthorID  int64
	Body      string
	CreatedAt int64
	Up        int64
	Down      int64
	State     CommentState
}

// IsDeleted 是否为墓碑
func (c *Comment) IsDeleted() bool {
	_, ok := c.State.(Deleted)
	return ok
}

// Score 排序用分数
func (c *Comment) Score() int64 {
	return utils.CommentScore(c.Up, c.Down)
}

type commentRecord struct {
	ID        int64  `json:"id"`
	PostID    int64  `json:"post_id"`
	ParentID  int64  `json:"parent_id"`
	AuthorID  int64  `json:"user_id"`
	Body      string `json:"body"`
	CreatedAt int64  `json:"ctime"`
	Del       bool   `json:"del,omitempty"`
	DelBy     int64  `json:"del_by,omitempty"`
	DelAt     int64  `json:"del_at,omitempty"`
}

// MarshalJSON 存储格式；投票计数单独存放，不写入记录
func (c *Comment) MarshalJSON() ([]byte, error) {
	rec := commentRecord{
		ID:        c.ID,
		PostID:    c.PostID,
		ParentID:  c.ParentID,
		AuthorID:  c.AuthorID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
	}
	switch s := c.State.(type) {
	case Deleted:
		rec.Del = true
		rec.DelBy = s.OriginalAuthor
		rec.DelAt = s.At
		rec.Body = ""
	case Live, nil:
	default:
		return nil, fmt.Errorf("unknown comment state %T", s)
	}
	return json.Marshal(rec)
}

func (c *Comment) UnmarshalJSON(data []byte) error {
	var rec commentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*c = Comment{
		PostID:    rec.PostID,
		ID:        rec.ID,
		ParentID:  rec.ParentID,
		AuthorID:  rec.AuthorID,
		Body:      rec.Body,
		CreatedAt: rec.CreatedAt,
		State:     Live{},
	}
	if rec.Del {
		c.State = Deleted{OriginalAuthor: rec.DelBy, At: rec.DelAt}
	}
	return nil
}
