package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

// 存储后端
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	AppEnv        string `env:"APP_ENV" default:"development"`
	Port          string `env:"PORT" default:"8080"`
	LogLevel      string `env:"LOG_LEVEL" default:"info"`
	StoreBackend  string `env:"STORE_BACKEND" default:"memory"`
	RedisURL      string `env:"REDIS_URL" default:"redis://localhost:6379/0"`
	DatabaseURL   string `env:"DATABASE_URL"`
	SessionSecret string `env:"SESSION_SECRET" default:"secret_key_change_me"`
	SiteName      string `env:"SITE_NAME" default:"Newsboard"`

	Karma   KarmaConfig
	Ranking RankingConfig
	Limits  LimitsConfig
}

// KarmaConfig 积分经济参数
type KarmaConfig struct {
	UserInitialKarma          int64         `env:"USER_INITIAL_KARMA" default:"1"`
	KarmaIncrementInterval    time.Duration `env:"KARMA_INCREMENT_INTERVAL" default:"1h"`
	KarmaIncrementAmount      int64         `env:"KARMA_INCREMENT_AMOUNT" default:"1"`
	NewsUpvoteMinKarma        int64         `env:"NEWS_UPVOTE_MIN_KARMA" default:"0"`
	NewsDownvoteMinKarma      int64         `env:"NEWS_DOWNVOTE_MIN_KARMA" default:"30"`
	NewsUpvoteKarmaCost       int64         `env:"NEWS_UPVOTE_KARMA_COST" default:"1"`
	NewsUpvoteKarmaTransfered int64         `env:"NEWS_UPVOTE_KARMA_TRANSFERED" default:"1"`
	NewsDownvoteKarmaCost     int64         `env:"NEWS_DOWNVOTE_KARMA_COST" default:"6"`
}

// RankingConfig 排名公式参数
type RankingConfig struct {
	LogStart      int64         `env:"NEWS_SCORE_LOG_START" default:"10"`
	LogBooster    float64       `env:"NEWS_SCORE_LOG_BOOSTER" default:"2"`
	AgePadding    time.Duration `env:"NEWS_AGE_PADDING" default:"8h"`
	AgingFactor   float64       `env:"RANK_AGING_FACTOR" default:"2.2"`
	TopAgeLimit   time.Duration `env:"TOP_NEWS_AGE_LIMIT" default:"48h"`
	TooOldPenalty float64       `env:"TOO_OLD_PENALTY" default:"1000"`
}

// LimitsConfig 频率限制、编辑窗口与长度限制
type LimitsConfig struct {
	NewsSubmissionBreak time.Duration `env:"NEWS_SUBMISSION_BREAK" default:"15m"`
	PreventRepostTime   time.Duration `env:"PREVENT_REPOST_TIME" default:"48h"`
	SignupThrottle      time.Duration `env:"SIGNUP_THROTTLE" default:"15h"`
	NewsEditTime        time.Duration `env:"NEWS_EDIT_TIME" default:"15m"`
	CommentEditTime     time.Duration `env:"COMMENT_EDIT_TIME" default:"2h"`
	CommentMaxLength    int           `env:"COMMENT_MAX_LENGTH" default:"4096"`
	TitleMaxLength      int           `env:"TITLE_MAX_LENGTH" default:"200"`
	PasswordMinLength   int           `env:"PASSWORD_MIN_LENGTH" default:"8"`
	MaxPageSize         int64         `env:"API_MAX_NEWS_COUNT" default:"32"`
	SavedNewsPerPage    int64         `env:"SAVED_NEWS_PER_PAGE" default:"10"`
	UserCommentsPerPage int64         `env:"USER_COMMENTS_PER_PAGE" default:"10"`
}

// Load 读取 .env（若存在）和环境变量
func Load() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.StoreBackend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		return fmt.Errorf("STORE_BACKEND must be one of memory, redis, postgres; got %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == BackendRedis && cfg.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when STORE_BACKEND=redis")
	}
	if cfg.AppEnv == "production" && cfg.SessionSecret == "secret_key_change_me" {
		return fmt.Errorf("SESSION_SECRET must be set in production")
	}
	if cfg.Karma.KarmaIncrementInterval <= 0 {
		return fmt.Errorf("KARMA_INCREMENT_INTERVAL must be positive")
	}
	if cfg.Limits.MaxPageSize <= 0 {
		return fmt.Errorf("API_MAX_NEWS_COUNT must be positive")
	}
	return nil
}
