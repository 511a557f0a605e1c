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

// MemoryDataPointsRepo 内存实现（DB 未就绪时用于联调和测试）
type MemoryDataPointsRepo struct {
	mu     sync.RWMutex
	points map[string]*domain.DataPoint
}

func NewMemoryDataPointsRepo() *MemoryDataPointsRepo {
	return &MemoryDataPointsRepo{points: map[string]*domain.DataPoint{}}
}

var _ DataPointsRepository = (*MemoryDataPointsRepo)(nil)

func clonePoint(p *domain.DataPoint) *domain.DataPoint {
	cp := *p
	return &cp
}

func (r *MemoryDataPointsRepo) GetDataPoint(_ context.Context, id string) (*domain.DataPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.points[id]
	if !ok {
		return nil, fmt.Errorf("data point %s: %w", id, domain.ErrNotFound)
	}
	return clonePoint(p), nil
}

func (r *MemoryDataPointsRepo) GetDataPointByCode(_ context.Context, code string) (*domain.DataPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.points {
		if p.PointCode == code {
			return clonePoint(p), nil
		}
	}
	return nil, fmt.Errorf("data point code %s: %w", code, domain.ErrNotFound)
}

func (r *MemoryDataPointsRepo) ListDataPoints(_ context.Context, filter DataPointFilter) ([]*domain.DataPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids map[string]bool
	if len(filter.IDs) > 0 {
		ids = make(map[string]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = true
		}
	}
	kw := strings.ToLower(strings.TrimSpace(filter.Keyword))

	out := make([]*domain.DataPoint, 0)
	for _, p := range r.points {
		if ids != nil && !ids[p.ID] {
			continue
		}
		if kw != "" && !strings.Contains(strings.ToLower(p.PointCode), kw) && !strings.Contains(strings.ToLower(p.PointName), kw) {
			continue
		}
		if filter.PointType != "" && p.PointType != filter.PointType {
			continue
		}
		if filter.MeterID != "" && (p.MeterID == nil || *p.MeterID != filter.MeterID) {
			continue
		}
		if filter.CollectionMode != "" && p.CollectionMode != filter.CollectionMode {
			continue
		}
		if filter.EnabledOnly && !p.Enabled {
			continue
		}
		out = append(out, clonePoint(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PointCode < out[j].PointCode })
	return out, nil
}

func (r *MemoryDataPointsRepo) CreateDataPoint(_ context.Context, p *domain.DataPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.points {
		if existing.PointCode == p.PointCode {
			return fmt.Errorf("point_code %s already exists: %w", p.PointCode, domain.ErrConflict)
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.points[p.ID] = clonePoint(p)
	return nil
}

func (r *MemoryDataPointsRepo) UpdateDataPoint(_ context.Context, p *domain.DataPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.points[p.ID]
	if !ok {
		return fmt.Errorf("data point %s: %w", p.ID, domain.ErrNotFound)
	}
	for _, existing := range r.points {
		if existing.ID != p.ID && existing.PointCode == p.PointCode {
			return fmt.Errorf("point_code %s already exists: %w", p.PointCode, domain.ErrConflict)
		}
	}
	// 当前值只由 UpdateCurrentValue 维护
	p.CurrentValue, p.LastCollectionTime = current.CurrentValue, current.LastCollectionTime
	p.UpdatedAt = time.Now()
	r.points[p.ID] = clonePoint(p)
	return nil
}

func (r *MemoryDataPointsRepo) DeleteDataPoint(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.points[id]; !ok {
		return fmt.Errorf("data point %s: %w", id, domain.ErrNotFound)
	}
	delete(r.points, id)
	return nil
}

func (r *MemoryDataPointsRepo) UpdateCurrentValue(_ context.Context, id string, value float64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.points[id]
	if !ok {
		return fmt.Errorf("data point %s: %w", id, domain.ErrNotFound)
	}
	v, t := value, at
	p.CurrentValue = &v
	p.LastCollectionTime = &t
	p.UpdatedAt = time.Now()
	return nil
}

// MemorySamplesRepo 运行数据内存实现
type MemorySamplesRepo struct {
	mu      sync.RWMutex
	byPoint map[string][]*domain.Sample
}

func NewMemorySamplesRepo() *MemorySamplesRepo {
	return &MemorySamplesRepo{byPoint: map[string][]*domain.Sample{}}
}

var _ SamplesRepository = (*MemorySamplesRepo)(nil)

func (r *MemorySamplesRepo) AppendSample(_ context.Context, s *domain.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	cp := *s
	list := append(r.byPoint[s.DataPointID], &cp)
	// 保持按采集时间有序（乱序到达时插入到正确位置）
	sort.SliceStable(list, func(i, j int) bool { return list[i].CollectionTime.Before(list[j].CollectionTime) })
	r.byPoint[s.DataPointID] = list
	return nil
}

func (r *MemorySamplesRepo) ListSamples(_ context.Context, pointID string, from, to time.Time) ([]*domain.Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Sample, 0)
	for _, s := range r.byPoint[pointID] {
		if s.CollectionTime.Before(from) || s.CollectionTime.After(to) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemorySamplesRepo) LatestSample(_ context.Context, pointID string) (*domain.Sample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byPoint[pointID]
	if len(list) == 0 {
		return nil, fmt.Errorf("no samples for data point %s: %w", pointID, domain.ErrNotFound)
	}
	cp := *list[len(list)-1]
	return &cp, nil
}

// MemoryStatisticsRepo 统计数据内存实现，数据由 AddStatistics 灌入
type MemoryStatisticsRepo struct {
	mu    sync.RWMutex
	stats []*domain.DataStatistics
}

func NewMemoryStatisticsRepo() *MemoryStatisticsRepo {
	return &MemoryStatisticsRepo{}
}

var _ StatisticsRepository = (*MemoryStatisticsRepo)(nil)

// AddStatistics 写入统计数据（模拟外部汇总任务）
func (r *MemoryStatisticsRepo) AddStatistics(stats ...*domain.DataStatistics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range stats {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		cp := *s
		r.stats = append(r.stats, &cp)
	}
}

func (r *MemoryStatisticsRepo) FindStatistics(_ context.Context, pointIDs []string, period domain.StatisticsPeriod, startDate, endDate time.Time) ([]*domain.DataStatistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := make(map[string]bool, len(pointIDs))
	for _, id := range pointIDs {
		want[id] = true
	}
	start, end := dateOnly(startDate), dateOnly(endDate)

	out := make([]*domain.DataStatistics, 0)
	for _, s := range r.stats {
		if !want[s.DataPointID] || s.StatisticsPeriod != period {
			continue
		}
		d := dateOnly(s.StatisticsDate)
		if d.Before(start) || d.After(end) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DataPointID != out[j].DataPointID {
			return out[i].DataPointID < out[j].DataPointID
		}
		return out[i].BucketTime().Before(out[j].BucketTime())
	})
	return out, nil
}

// dateOnly 截断到日期（UTC 比较）
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
