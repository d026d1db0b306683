package services

import (
	"time"

	"newsboard/internal/config"
	"newsboard/internal/utils"
)

// Settings 积分经济、频率限制与排名参数
type Settings struct {
	Rank utils.RankConfig

	UserInitialKarma          int64
	KarmaIncrementInterval    time.Duration
	KarmaIncrementAmount      int64
	NewsUpvoteMinKarma        int64
	NewsDownvoteMinKarma      int64
	NewsUpvoteKarmaCost       int64
	NewsUpvoteKarmaTransfered int64
	NewsDownvoteKarmaCost     int64

	NewsSubmissionBreak time.Duration
	PreventRepostTime   time.Duration
	SignupThrottle      time.Duration
	NewsEditTime        time.Duration
	CommentEditTime     time.Duration
	CommentMaxLength    int
	TitleMaxLength      int
	PasswordMinLength   int
	MaxPageSize         int64
	SavedNewsPerPage    int64
	UserCommentsPerPage int64
}

// DefaultSettings 与 config 默认值一致
func DefaultSettings() Settings {
	return Settings{
		Rank: utils.DefaultConfig,

		UserInitialKarma:          1,
		KarmaIncrementInterval:    time.Hour,
		KarmaIncrementAmount:      1,
		NewsUpvoteMinKarma:        0,
		NewsDownvoteMinKarma:      30,
		NewsUpvoteKarmaCost:       1,
		NewsUpvoteKarmaTransfered: 1,
		NewsDownvoteKarmaCost:     6,

		NewsSubmissionBreak: 15 * time.Minute,
		PreventRepostTime:   48 * time.Hour,
		SignupThrottle:      15 * time.Hour,
		NewsEditTime:        15 * time.Minute,
		CommentEditTime:     2 * time.Hour,
		CommentMaxLength:    4096,
		TitleMaxLength:      200,
		PasswordMinLength:   8,
		MaxPageSize:         32,
		SavedNewsPerPage:    10,
		UserCommentsPerPage: 10,
	}
}

// SettingsFromConfig 从环境配置构建
func SettingsFromConfig(cfg *config.Config) Settings {
	s := DefaultSettings()
	s.Rank.LogStart = cfg.Ranking.LogStart
	s.Rank.LogBooster = cfg.Ranking.LogBooster
	s.Rank.AgePadding = cfg.Ranking.AgePadding
	s.Rank.AgingFactor = cfg.Ranking.AgingFactor
	s.Rank.TopAgeLimit = cfg.Ranking.TopAgeLimit
	s.Rank.TooOldPenalty = cfg.Ranking.TooOldPenalty

	k := cfg.Karma
	s.UserInitialKarma = k.UserInitialKarma
	s.KarmaIncrementInterval = k.KarmaIncrementInterval
	s.KarmaIncrementAmount = k.KarmaIncrementAmount
	s.NewsUpvoteMinKarma = k.NewsUpvoteMinKarma
	s.NewsDownvoteMinKarma = k.NewsDownvoteMinKarma
	s.NewsUpvoteKarmaCost = k.NewsUpvoteKarmaCost
	s.NewsUpvoteKarmaTransfered = k.NewsUpvoteKarmaTransfered
	s.NewsDownvoteKarmaCost = k.NewsDownvoteKarmaCost

	l := cfg.Limits
	s.NewsSubmissionBreak = l.NewsSubmissionBreak
	s.PreventRepostTime = l.PreventRepostTime
	s.SignupThrottle = l.SignupThrottle
	s.NewsEditTime = l.NewsEditTime
	s.CommentEditTime = l.CommentEditTime
	s.CommentMaxLength = l.CommentMaxLength
	s.TitleMaxLength = l.TitleMaxLength
	s.PasswordMinLength = l.PasswordMinLength
	s.MaxPageSize = l.MaxPageSize
	s.SavedNewsPerPage = l.SavedNewsPerPage
	s.UserCommentsPerPage = l.UserCommentsPerPage
	return s
}
