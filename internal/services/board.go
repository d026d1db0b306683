package services

import (
	"fmt"
	"strconv"
	"time"

	"newsboard/internal/metrics"
	"newsboard/internal/store"
	"newsboard/internal/utils"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// core 各服务共享的依赖
type core struct {
	store    store.Store
	clock    clockwork.Clock
	settings Settings
	log      *zap.Logger
	metrics  *metrics.BoardMetrics
}

func (c *core) now() int64 {
	return c.clock.Now().Unix()
}

// fail 记录存储错误并包装为 ErrStoreUnavailable
func (c *core) fail(op string, err error) error {
	c.metrics.StoreErrors.WithLabelValues(op).Inc()
	c.log.Warn("store operation failed", zap.String("op", op), zap.Error(err))
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// Board 新闻板核心的全部服务
type Board struct {
	Karma    *KarmaAccount
	Gate     *RateGate
	Votes    *VoteLedger
	Ranking  *RankIndex
	Comments *CommentForest
	Posts    *PostService
	Accounts *AccountService
	Hydrator *Hydrator
}

// NewBoard 组装各服务；m 为 nil 时使用独立的 registry
func NewBoard(st store.Store, clock clockwork.Clock, settings Settings, log *zap.Logger, m *metrics.BoardMetrics) (*Board, error) {
	if m == nil {
		m = metrics.NewBoardMetrics(prometheus.NewRegistry())
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &core{store: st, clock: clock, settings: settings, log: log, metrics: m}

	names, err := utils.NewCache[string](1024, 10*time.Minute, clock)
	if err != nil {
		return nil, err
	}

	b := &Board{
		Karma:    &KarmaAccount{core: c},
		Gate:     &RateGate{core: c},
		Accounts: &AccountService{core: c},
	}
	b.Accounts.gate = b.Gate
	hydrator := &Hydrator{core: c, names: names}
	b.Hydrator = hydrator
	b.Ranking = &RankIndex{core: c, hydrator: hydrator}
	b.Votes = &VoteLedger{core: c, karma: b.Karma, ranking: b.Ranking}
	b.Comments = &CommentForest{core: c, karma: b.Karma}
	b.Posts = &PostService{core: c, gate: b.Gate, votes: b.Votes, hydrator: hydrator}
	return b, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Settings 当前生效的参数
func (b *Board) Settings() Settings {
	return b.Posts.settings
}

// Now 当前时间（秒）
func (b *Board) Now() int64 {
	return b.Posts.now()
}
