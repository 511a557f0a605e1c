package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"

	"github.com/google/uuid"
)

// MemoryAlarmConfigsRepo 报警配置内存实现
type MemoryAlarmConfigsRepo struct {
	mu      sync.RWMutex
	configs map[string]*domain.AlarmConfig
}

func NewMemoryAlarmConfigsRepo() *MemoryAlarmConfigsRepo {
	return &MemoryAlarmConfigsRepo{configs: map[string]*domain.AlarmConfig{}}
}

var _ AlarmConfigsRepository = (*MemoryAlarmConfigsRepo)(nil)

func cloneConfig(c *domain.AlarmConfig) *domain.AlarmConfig {
	cp := *c
	return &cp
}

func (r *MemoryAlarmConfigsRepo) GetAlarmConfig(_ context.Context, id string) (*domain.AlarmConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.configs[id]
	if !ok {
		return nil, fmt.Errorf("alarm config %s: %w", id, domain.ErrNotFound)
	}
	return cloneConfig(c), nil
}

func (r *MemoryAlarmConfigsRepo) GetAlarmConfigByCode(_ context.Context, code string) (*domain.AlarmConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.configs {
		if c.AlarmCode == code {
			return cloneConfig(c), nil
		}
	}
	return nil, fmt.Errorf("alarm config code %s: %w", code, domain.ErrNotFound)
}

func (r *MemoryAlarmConfigsRepo) ListAlarmConfigs(_ context.Context, filter AlarmConfigFilter) ([]*domain.AlarmConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kw := strings.ToLower(strings.TrimSpace(filter.Keyword))
	out := make([]*domain.AlarmConfig, 0)
	for _, c := range r.configs {
		if filter.DataPointID != "" && c.DataPointID != filter.DataPointID {
			continue
		}
		if filter.EnabledOnly && !c.Enabled {
			continue
		}
		if kw != "" && !strings.Contains(strings.ToLower(c.AlarmCode), kw) && !strings.Contains(strings.ToLower(c.AlarmName), kw) {
			continue
		}
		out = append(out, cloneConfig(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AlarmCode < out[j].AlarmCode })
	return out, nil
}

func (r *MemoryAlarmConfigsRepo) CreateAlarmConfig(_ context.Context, c *domain.AlarmConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.configs {
		if existing.AlarmCode == c.AlarmCode {
			return fmt.Errorf("alarm_code %s already exists: %w", c.AlarmCode, domain.ErrConflict)
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	r.configs[c.ID] = cloneConfig(c)
	return nil
}

func (r *MemoryAlarmConfigsRepo) UpdateAlarmConfig(_ context.Context, c *domain.AlarmConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[c.ID]; !ok {
		return fmt.Errorf("alarm config %s: %w", c.ID, domain.ErrNotFound)
	}
	for _, existing := range r.configs {
		if existing.ID != c.ID && existing.AlarmCode == c.AlarmCode {
			return fmt.Errorf("alarm_code %s already exists: %w", c.AlarmCode, domain.ErrConflict)
		}
	}
	c.UpdatedAt = time.Now()
	r.configs[c.ID] = cloneConfig(c)
	return nil
}

func (r *MemoryAlarmConfigsRepo) DeleteAlarmConfig(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.configs[id]; !ok {
		return fmt.Errorf("alarm config %s: %w", id, domain.ErrNotFound)
	}
	delete(r.configs, id)
	return nil
}

// MemoryAlarmRecordsRepo 报警记录内存实现
type MemoryAlarmRecordsRepo struct {
	mu      sync.RWMutex
	records map[string]*domain.AlarmRecord
}

func NewMemoryAlarmRecordsRepo() *MemoryAlarmRecordsRepo {
	return &MemoryAlarmRecordsRepo{records: map[string]*domain.AlarmRecord{}}
}

var _ AlarmRecordsRepository = (*MemoryAlarmRecordsRepo)(nil)

func cloneRecord(r *domain.AlarmRecord) *domain.AlarmRecord {
	cp := *r
	return &cp
}

func (r *MemoryAlarmRecordsRepo) CreateAlarmRecord(_ context.Context, rec *domain.AlarmRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.Status == domain.AlarmStatusActive {
		for _, existing := range r.records {
			if existing.AlarmConfigID == rec.AlarmConfigID && existing.Status == domain.AlarmStatusActive {
				return fmt.Errorf("alarm config %s already has an active record: %w", rec.AlarmConfigID, domain.ErrConflict)
			}
		}
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	r.records[rec.ID] = cloneRecord(rec)
	return nil
}

func (r *MemoryAlarmRecordsRepo) GetAlarmRecord(_ context.Context, id string) (*domain.AlarmRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, fmt.Errorf("alarm record %s: %w", id, domain.ErrNotFound)
	}
	return cloneRecord(rec), nil
}

func (r *MemoryAlarmRecordsRepo) FindActiveRecord(_ context.Context, configID string) (*domain.AlarmRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.AlarmConfigID == configID && rec.Status == domain.AlarmStatusActive {
			return cloneRecord(rec), nil
		}
	}
	return nil, fmt.Errorf("no active record for alarm config %s: %w", configID, domain.ErrNotFound)
}

func (r *MemoryAlarmRecordsRepo) UpdateAlarmRecord(_ context.Context, rec *domain.AlarmRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.ID]; !ok {
		return fmt.Errorf("alarm record %s: %w", rec.ID, domain.ErrNotFound)
	}
	r.records[rec.ID] = cloneRecord(rec)
	return nil
}

func (r *MemoryAlarmRecordsRepo) ListAlarmRecords(_ context.Context, filter AlarmRecordFilter) ([]*domain.AlarmRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.AlarmRecord, 0)
	for _, rec := range r.records {
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.DataPointID != "" && rec.DataPointID != filter.DataPointID {
			continue
		}
		if filter.AlarmConfigID != "" && rec.AlarmConfigID != filter.AlarmConfigID {
			continue
		}
		if filter.From != nil && rec.AlarmTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && rec.AlarmTime.After(*filter.To) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AlarmTime.After(out[j].AlarmTime) })
	return out, nil
}
