package utils

import (
	"math"
	"time"
)

type RankConfig struct {
	LogStart      int64         // 总票数超过该值后开始加对数奖励 (10)
	LogBooster    float64       // 对数奖励系数 (2)
	Scale         float64       // 放大系数 (1000000)
	AgePadding    time.Duration // 年龄补偿，防止 age=0 时除数过小 (8h)
	AgingFactor   float64       // 时间重力 (2.2)
	TopAgeLimit   time.Duration // 超过该年龄的帖子不再上首页 (48h)
	TooOldPenalty float64       // 超龄惩罚 (1000)
	Epsilon       float64       // 缓存 rank 的允许误差 (1e-6)
}

var DefaultConfig = RankConfig{
	LogStart:      10,
	LogBooster:    2,
	Scale:         1000000,
	AgePadding:    8 * time.Hour,
	AgingFactor:   2.2,
	TopAgeLimit:   48 * time.Hour,
	TooOldPenalty: 1000,
	Epsilon:       1e-6,
}

// CalculateScore 由赞/踩数量计算帖子分数
// 必须用投票集合的真实基数计算，不做增量调整
func (c RankConfig) CalculateScore(up, down int64) float64 {
	score := float64(up - down)
	// 票数多且正反都有的帖子，比票少的帖子更值得排前
	if total := up + down; total > c.LogStart {
		score += math.Log(float64(total-c.LogStart)) * c.LogBooster
	}
	return score
}

// CalculateRank 由分数和发布时间计算排名值，时间单位为秒
func (c RankConfig) CalculateRank(score float64, createdAt, now int64) float64 {
	age := float64(now - createdAt)
	rank := ((score - 1) * c.Scale) / math.Pow(age+c.AgePadding.Seconds(), c.AgingFactor)
	if age > c.TopAgeLimit.Seconds() {
		rank -= c.TooOldPenalty
	}
	return rank
}

// RankDrifted 缓存值与真实值的差是否超过误差
func (c RankConfig) RankDrifted(cached, real float64) bool {
	return math.Abs(real-cached) > c.Epsilon
}

// CommentScore 评论排序分数
func CommentScore(up, down int64) int64 {
	return up - down
}
