package store

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry 字符串键（计数器、带过期时间的守卫标记、索引）
type KVEntry struct {
	Key       string     `gorm:"primaryKey;size:255"`
	Value     string     `gorm:"type:text;not null"`
	ExpiresAt *time.Time `gorm:"index"`
}

func (KVEntry) TableName() string { return "kv_entries" }

// HashField 哈希记录的一个字段（帖子、用户、评论线程）
type HashField struct {
	Key   string `gorm:"primaryKey;size:255"`
	Field string `gorm:"primaryKey;size:255"`
	Value string `gorm:"type:text;not null"`
}

func (HashField) TableName() string { return "hash_fields" }

// ZSetMember 有序集合成员（排名视图、投票集合、用户索引）
type ZSetMember struct {
	Key    string  `gorm:"primaryKey;size:255"`
	Member string  `gorm:"primaryKey;size:255"`
	Score  float64 `gorm:"not null;index"`
}

func (ZSetMember) TableName() string { return "zset_members" }

// Models lists the tables GormStore needs, for AutoMigrate.
func Models() []any {
	return []any{&KVEntry{}, &HashField{}, &ZSetMember{}}
}

// GormStore maps the store contract onto three PostgreSQL tables.
// Expiry is evaluated against the injected clock, not the database clock.
type GormStore struct {
	db    *gorm.DB
	clock clockwork.Clock
}

func NewGormStore(db *gorm.DB, clock clockwork.Clock) *GormStore {
	return &GormStore{db: db, clock: clock}
}

func (s *GormStore) live(tx *gorm.DB) *gorm.DB {
	return tx.Where("(expires_at IS NULL OR expires_at > ?)", s.clock.Now())
}

func (s *GormStore) entry(ctx context.Context, key string) (*KVEntry, error) {
	var e KVEntry
	err := s.live(s.db.WithContext(ctx)).Where("key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *GormStore) Get(ctx context.Context, key string) (string, bool, error) {
	e, err := s.entry(ctx, key)
	if err != nil || e == nil {
		return "", false, err
	}
	return e.Value, true, nil
}

func (s *GormStore) upsert(ctx context.Context, e *KVEntry) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
	}).Create(e).Error
}

func (s *GormStore) Set(ctx context.Context, key, value string) error {
	return s.upsert(ctx, &KVEntry{Key: key, Value: value})
}

func (s *GormStore) SetEX(ctx context.Context, key, value string, ttl time.Duration) error {
	exp := s.clock.Now().Add(ttl)
	return s.upsert(ctx, &KVEntry{Key: key, Value: value, ExpiresAt: &exp})
}

func (s *GormStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	var added bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		if err := tx.Where("key = ? AND expires_at IS NOT NULL AND expires_at <= ?", key, now).
			Delete(&KVEntry{}).Error; err != nil {
			return err
		}
		e := KVEntry{Key: key, Value: value}
		if ttl > 0 {
			exp := now.Add(ttl)
			e.ExpiresAt = &exp
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&e)
		if res.Error != nil {
			return res.Error
		}
		added = res.RowsAffected == 1
		return nil
	})
	return added, err
}

func (s *GormStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	e, err := s.entry(ctx, key)
	if err != nil || e == nil || e.ExpiresAt == nil {
		return 0, err
	}
	return e.ExpiresAt.Sub(s.clock.Now()), nil
}

func (s *GormStore) Exists(ctx context.Context, key string) (bool, error) {
	db := s.db.WithContext(ctx)
	var n int64
	if err := s.live(db.Model(&KVEntry{})).Where("key = ?", key).Count(&n).Error; err != nil || n > 0 {
		return n > 0, err
	}
	if err := db.Model(&HashField{}).Where("key = ?", key).Count(&n).Error; err != nil || n > 0 {
		return n > 0, err
	}
	err := db.Model(&ZSetMember{}).Where("key = ?", key).Count(&n).Error
	return n > 0, err
}

func (s *GormStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range Models() {
			if err := tx.Where("key IN ?", keys).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormStore) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	res := s.live(s.db.WithContext(ctx)).Where("key = ? AND value = ?", key, value).Delete(&KVEntry{})
	return res.RowsAffected > 0, res.Error
}

func (s *GormStore) Incr(ctx context.Context, key string) (int64, error) {
	var value string
	err := s.db.WithContext(ctx).Raw(`INSERT INTO kv_entries (key, value) VALUES (?, '1')
ON CONFLICT (key) DO UPDATE SET value = (CAST(kv_entries.value AS BIGINT) + 1)::text, expires_at = NULL
RETURNING value`, key).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(value, 10, 64)
}

func (s *GormStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	var h HashField
	err := s.db.WithContext(ctx).Where("key = ? AND field = ?", key, field).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return h.Value, true, nil
}

func (s *GormStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	var rows []HashField
	if err := s.db.WithContext(ctx).Where("key = ?", key).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Field] = r.Value
	}
	return out, nil
}

func (s *GormStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	rows := make([]HashField, 0, len(fields))
	for f, v := range fields {
		rows = append(rows, HashField{Key: key, Field: f, Value: v})
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}, {Name: "field"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&rows).Error
}

func (s *GormStore) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	var value string
	err := s.db.WithContext(ctx).Raw(`INSERT INTO hash_fields (key, field, value) VALUES (?, ?, ?)
ON CONFLICT (key, field) DO UPDATE SET value = (CAST(hash_fields.value AS BIGINT) + ?)::text
RETURNING value`, key, field, strconv.FormatInt(delta, 10), delta).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(value, 10, 64)
}

func (s *GormStore) ZAdd(ctx context.Context, key, member string, score float64) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}, {Name: "member"}},
		DoUpdates: clause.AssignmentColumns([]string{"score"}),
	}).Create(&ZSetMember{Key: key, Member: member, Score: score}).Error
}

// ZAddExclusive serialises writers of the same member/set group with a
// transaction-scoped advisory lock, then checks and inserts.
func (s *GormStore) ZAddExclusive(ctx context.Context, key string, exclusive []string, member string, score float64) (bool, error) {
	keys := append([]string{key}, exclusive...)
	group := append([]string(nil), keys...)
	sort.Strings(group)

	var added bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", strings.Join(group, "|")+"#"+member).Error; err != nil {
			return err
		}
		var n int64
		if err := tx.Model(&ZSetMember{}).Where("key IN ? AND member = ?", keys, member).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if err := tx.Create(&ZSetMember{Key: key, Member: member, Score: score}).Error; err != nil {
			return err
		}
		added = true
		return nil
	})
	return added, err
}

func (s *GormStore) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	var z ZSetMember
	err := s.db.WithContext(ctx).Where("key = ? AND member = ?", key, member).First(&z).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return z.Score, true, nil
}

func (s *GormStore) ZRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Where("key = ? AND member IN ?", key, members).Delete(&ZSetMember{}).Error
}

func (s *GormStore) ZCard(ctx context.Context, key string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&ZSetMember{}).Where("key = ?", key).Count(&n).Error
	return n, err
}

func (s *GormStore) zwindow(ctx context.Context, key string, start, stop int64, order string) ([]Member, error) {
	n, err := s.ZCard(ctx, key)
	if err != nil {
		return nil, err
	}
	lo, hi, ok := rangeBounds(start, stop, n)
	if !ok {
		return nil, nil
	}
	var rows []ZSetMember
	if err := s.db.WithContext(ctx).Where("key = ?", key).Order(order).
		Offset(int(lo)).Limit(int(hi - lo)).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Member, len(rows))
	for i, r := range rows {
		out[i] = Member{Member: r.Member, Score: r.Score}
	}
	return out, nil
}

func (s *GormStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	ms, err := s.zwindow(ctx, key, start, stop, "score ASC, member ASC")
	return names(ms), err
}

func (s *GormStore) ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	ms, err := s.zwindow(ctx, key, start, stop, "score DESC, member DESC")
	return names(ms), err
}

func (s *GormStore) ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]Member, error) {
	return s.zwindow(ctx, key, start, stop, "score DESC, member DESC")
}
