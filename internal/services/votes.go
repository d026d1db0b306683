package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"newsboard/internal/models"

	"go.uber.org/zap"
)

// VoteLedger 帖子与评论的投票：每人每个对象最多一票，不可撤销、不可改向
type VoteLedger struct {
	*core
	karma   *KarmaAccount
	ranking *RankIndex
}

func voteSets(up, down string, d models.Direction) (string, string) {
	if d == models.Down {
		return down, up
	}
	return up, down
}

// alreadyVoted 投票者是否已在任一集合中
func (l *VoteLedger) alreadyVoted(ctx context.Context, member string, keys ...string) (bool, error) {
	for _, k := range keys {
		_, ok, err := l.store.ZScore(ctx, k, member)
		if err != nil {
			return false, l.fail("vote.check", err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// CastPostVote 给帖子投票，返回重算后的排名
func (l *VoteLedger) CastPostVote(ctx context.Context, v *models.Viewer, postID int64, d models.Direction) (float64, error) {
	rank, err := l.castPostVote(ctx, v, postID, d)
	l.observe("post", d, err)
	return rank, err
}

func (l *VoteLedger) castPostVote(ctx context.Context, v *models.Viewer, postID int64, d models.Direction) (float64, error) {
	if !v.LoggedIn() {
		return 0, ErrPermissionDenied
	}
	uid := v.User.ID
	post, err := loadLivePost(ctx, l.core, postID)
	if err != nil {
		return 0, err
	}

	member := formatID(uid)
	target, other := voteSets(keyNewsUp(postID), keyNewsDown(postID), d)
	voted, err := l.alreadyVoted(ctx, member, target, other)
	if err != nil {
		return 0, err
	}
	if voted {
		return 0, ErrDuplicateVote
	}

	author := post.AuthorID == uid
	if !author {
		karma, err := l.karma.Karma(ctx, v, uid)
		if err != nil {
			return 0, err
		}
		if karma < l.karma.MinKarmaFor(d) {
			return 0, ErrInsufficientKarma
		}
	}

	now := l.now()
	added, err := l.store.ZAddExclusive(ctx, target, []string{other}, member, float64(now))
	if err != nil {
		return 0, l.fail("vote.insert", err)
	}
	if !added {
		return 0, ErrDuplicateVote
	}
	if _, err := l.store.HIncrBy(ctx, keyNews(postID), string(d), 1); err != nil {
		return 0, l.fail("vote.counter", err)
	}

	_, rank, err := l.ranking.Recompute(ctx, post)
	if err != nil {
		return 0, err
	}

	if d == models.Up {
		if err := l.store.ZAdd(ctx, keyUserSaved(uid), formatID(postID), float64(now)); err != nil {
			return 0, l.fail("vote.saved", err)
		}
	}

	if !author {
		if err := l.transfer(ctx, v, post.AuthorID, d); err != nil {
			return 0, err
		}
	}
	l.log.Debug("news vote",
		zap.Int64("news_id", postID),
		zap.Int64("user_id", uid),
		zap.String("direction", string(d)),
		zap.Float64("rank", rank))
	return rank, nil
}

// transfer 赞：投票者付出、作者获得；踩：只扣投票者
func (l *VoteLedger) transfer(ctx context.Context, v *models.Viewer, authorID int64, d models.Direction) error {
	s := l.settings
	if d == models.Up {
		if _, err := l.karma.Adjust(ctx, v, v.User.ID, -s.NewsUpvoteKarmaCost); err != nil {
			return err
		}
		_, err := l.karma.Adjust(ctx, v, authorID, s.NewsUpvoteKarmaTransfered)
		return err
	}
	_, err := l.karma.Adjust(ctx, v, v.User.ID, -s.NewsDownvoteKarmaCost)
	return err
}

// CastCommentVote 给评论投票；评论分数只用于排序，不涉及积分
func (l *VoteLedger) CastCommentVote(ctx context.Context, v *models.Viewer, postID, commentID int64, d models.Direction) error {
	err := l.castCommentVote(ctx, v, postID, commentID, d)
	l.observe("comment", d, err)
	return err
}

func (l *VoteLedger) castCommentVote(ctx context.Context, v *models.Viewer, postID, commentID int64, d models.Direction) error {
	if !v.LoggedIn() {
		return ErrPermissionDenied
	}
	if _, err := loadLivePost(ctx, l.core, postID); err != nil {
		return err
	}
	if _, err := loadComment(ctx, l.core, postID, commentID); err != nil {
		return err
	}

	member := formatID(v.User.ID)
	target, other := voteSets(keyCommentUp(postID, commentID), keyCommentDown(postID, commentID), d)
	voted, err := l.alreadyVoted(ctx, member, target, other)
	if err != nil {
		return err
	}
	if voted {
		return ErrDuplicateVote
	}

	added, err := l.store.ZAddExclusive(ctx, target, []string{other}, member, float64(l.now()))
	if err != nil {
		return l.fail("comment_vote.insert", err)
	}
	if !added {
		return ErrDuplicateVote
	}
	if _, err := l.store.HIncrBy(ctx, keyCommentVotes(postID), commentVoteField(commentID, d), 1); err != nil {
		return l.fail("comment_vote.counter", err)
	}
	return nil
}

func (l *VoteLedger) observe(kind string, d models.Direction, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrDuplicateVote):
		result = "duplicate"
	case errors.Is(err, ErrInsufficientKarma):
		result = "karma"
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	l.metrics.VotesCast.WithLabelValues(kind, string(d), result).Inc()
}

func commentVoteField(commentID int64, d models.Direction) string {
	return fmt.Sprintf("%d:%s", commentID, d)
}

func parseCount(raw string) int64 {
	n, _ := strconv.ParseInt(raw, 10, 64)
	return n
}
