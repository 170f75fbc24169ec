package rpanalysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/common/entity"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/errorx"
)

// releaseScript 仅当锁的值等于 token 时删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisAnalysisRepository 分析仓储实现（Redis）
type RedisAnalysisRepository struct {
	rdb     *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewRedisAnalysisRepository 创建 Redis 分析仓储
func NewRedisAnalysisRepository(rdb *redis.Client, ttl, lockTTL time.Duration) AnalysisRepository {
	return &RedisAnalysisRepository{rdb: rdb, ttl: ttl, lockTTL: lockTTL}
}

// Create 保存新分析
func (r *RedisAnalysisRepository) Create(ctx context.Context, analysis *etanalysis.Analysis) error {
	payload, err := r.marshal(analysis)
	if err != nil {
		return err
	}

	ok, err := r.rdb.SetNX(ctx, entity.AnalysisKey(analysis.ID), payload, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("save analysis failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("analysis already exists: id=%s", analysis.ID)
	}
	return nil
}

// Get 查询分析
func (r *RedisAnalysisRepository) Get(ctx context.Context, analysisID string) (*etanalysis.Analysis, error) {
	payload, err := r.rdb.Get(ctx, entity.AnalysisKey(analysisID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errorx.ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("load analysis failed: %w", err)
	}

	var po entity.Analysis
	if err := json.Unmarshal(payload, &po); err != nil {
		return nil, fmt.Errorf("unmarshal analysis failed: %w", err)
	}
	return toDomain(&po)
}

// Update 覆盖已存在的分析（XX + KEEPTTL）
func (r *RedisAnalysisRepository) Update(ctx context.Context, analysis *etanalysis.Analysis) error {
	payload, err := r.marshal(analysis)
	if err != nil {
		return err
	}

	err = r.rdb.SetArgs(ctx, entity.AnalysisKey(analysis.ID), payload, redis.SetArgs{
		Mode:    "XX",
		KeepTTL: true,
	}).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errorx.ErrAnalysisNotFound
		}
		return fmt.Errorf("update analysis failed: %w", err)
	}
	return nil
}

// AcquireSession 获取会话提交锁
func (r *RedisAnalysisRepository) AcquireSession(ctx context.Context, sessionID, token string) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, entity.SessionLockKey(sessionID), token, r.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire session lock failed: %w", err)
	}
	return ok, nil
}

// ReleaseSession 释放会话提交锁
func (r *RedisAnalysisRepository) ReleaseSession(ctx context.Context, sessionID, token string) error {
	if err := releaseScript.Run(ctx, r.rdb, []string{entity.SessionLockKey(sessionID)}, token).Err(); err != nil {
		return fmt.Errorf("release session lock failed: %w", err)
	}
	return nil
}

func (r *RedisAnalysisRepository) marshal(analysis *etanalysis.Analysis) ([]byte, error) {
	po, err := toPO(analysis)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(po)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis failed: %w", err)
	}
	return payload, nil
}
