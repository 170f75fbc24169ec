package rpanalysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Duskwillow/automatic-ECG-diagnostic-application/common/entity"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/domains/entity/etanalysis"
	"github.com/Duskwillow/automatic-ECG-diagnostic-application/internal/app/pkg/errorx"
)

type memoryItem struct {
	po        *entity.Analysis
	expiresAt time.Time
}

type memoryLock struct {
	token     string
	expiresAt time.Time
}

// MemoryAnalysisRepository 分析仓储实现（进程内），用于单机模式和测试
type MemoryAnalysisRepository struct {
	mu      sync.Mutex
	items   map[string]memoryItem
	locks   map[string]memoryLock
	ttl     time.Duration
	lockTTL time.Duration
	now     func() time.Time
}

// NewMemoryAnalysisRepository 创建进程内分析仓储
func NewMemoryAnalysisRepository(ttl, lockTTL time.Duration) *MemoryAnalysisRepository {
	return &MemoryAnalysisRepository{
		items:   make(map[string]memoryItem),
		locks:   make(map[string]memoryLock),
		ttl:     ttl,
		lockTTL: lockTTL,
		now:     time.Now,
	}
}

// Create 保存新分析
func (r *MemoryAnalysisRepository) Create(ctx context.Context, analysis *etanalysis.Analysis) error {
	po, err := toPO(analysis)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if item, ok := r.items[analysis.ID]; ok && now.Before(item.expiresAt) {
		return fmt.Errorf("analysis already exists: id=%s", analysis.ID)
	}
	r.items[analysis.ID] = memoryItem{po: po, expiresAt: now.Add(r.ttl)}
	return nil
}

// Get 查询分析
func (r *MemoryAnalysisRepository) Get(ctx context.Context, analysisID string) (*etanalysis.Analysis, error) {
	r.mu.Lock()
	item, ok := r.items[analysisID]
	if ok && !r.now().Before(item.expiresAt) {
		delete(r.items, analysisID)
		ok = false
	}
	r.mu.Unlock()

	if !ok {
		return nil, errorx.ErrAnalysisNotFound
	}
	return toDomain(item.po)
}

// Update 覆盖已存在的分析，保持原过期时间
func (r *MemoryAnalysisRepository) Update(ctx context.Context, analysis *etanalysis.Analysis) error {
	po, err := toPO(analysis)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[analysis.ID]
	if !ok || !r.now().Before(item.expiresAt) {
		return errorx.ErrAnalysisNotFound
	}
	r.items[analysis.ID] = memoryItem{po: po, expiresAt: item.expiresAt}
	return nil
}

// AcquireSession 获取会话提交锁
func (r *MemoryAnalysisRepository) AcquireSession(ctx context.Context, sessionID, token string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if lock, ok := r.locks[sessionID]; ok && now.Before(lock.expiresAt) {
		return false, nil
	}
	r.locks[sessionID] = memoryLock{token: token, expiresAt: now.Add(r.lockTTL)}
	return true, nil
}

// ReleaseSession 释放会话提交锁
func (r *MemoryAnalysisRepository) ReleaseSession(ctx context.Context, sessionID, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lock, ok := r.locks[sessionID]; ok && lock.token == token {
		delete(r.locks, sessionID)
	}
	return nil
}
