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

// MemoryMetersRepo 表计内存实现
type MemoryMetersRepo struct {
	mu           sync.RWMutex
	meters       map[string]*domain.Meter
	attributes   map[string][]*domain.MeterAttribute   // key: meter id
	measurements map[string][]*domain.MeterMeasurement // key: meter id
}

func NewMemoryMetersRepo() *MemoryMetersRepo {
	return &MemoryMetersRepo{
		meters:       map[string]*domain.Meter{},
		attributes:   map[string][]*domain.MeterAttribute{},
		measurements: map[string][]*domain.MeterMeasurement{},
	}
}

var _ MetersRepository = (*MemoryMetersRepo)(nil)

func cloneMeter(m *domain.Meter) *domain.Meter {
	cp := *m
	cp.StaticAttributes, cp.Measurements = nil, nil
	return &cp
}

func derefEq(p *string, want string) bool {
	return p != nil && *p == want
}

func (r *MemoryMetersRepo) GetMeter(_ context.Context, id string) (*domain.Meter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.meters[id]
	if !ok {
		return nil, fmt.Errorf("meter %s: %w", id, domain.ErrNotFound)
	}
	return cloneMeter(m), nil
}

func (r *MemoryMetersRepo) GetMeterByCode(_ context.Context, code string) (*domain.Meter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.meters {
		if m.MeterCode == code {
			return cloneMeter(m), nil
		}
	}
	return nil, fmt.Errorf("meter code %s: %w", code, domain.ErrNotFound)
}

func (r *MemoryMetersRepo) ListMeters(_ context.Context, filter MeterFilter) ([]*domain.Meter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kw := strings.ToLower(strings.TrimSpace(filter.Keyword))
	out := make([]*domain.Meter, 0)
	for _, m := range r.meters {
		if kw != "" &&
			!strings.Contains(strings.ToLower(m.MeterCode), kw) &&
			!strings.Contains(strings.ToLower(m.MeterName), kw) &&
			!strings.Contains(strings.ToLower(m.MeterModel), kw) {
			continue
		}
		if filter.MeterType != "" && m.MeterType != filter.MeterType {
			continue
		}
		if filter.SpaceNodeID != "" && !derefEq(m.SpaceNodeID, filter.SpaceNodeID) {
			continue
		}
		if filter.DeviceID != "" && !derefEq(m.DeviceID, filter.DeviceID) {
			continue
		}
		if filter.EnabledOnly && !m.Enabled {
			continue
		}
		out = append(out, cloneMeter(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MeterCode < out[j].MeterCode })
	return out, nil
}

func (r *MemoryMetersRepo) CreateMeter(_ context.Context, m *domain.Meter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.meters {
		if existing.MeterCode == m.MeterCode {
			return fmt.Errorf("meter_code %s already exists: %w", m.MeterCode, domain.ErrConflict)
		}
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	r.meters[m.ID] = cloneMeter(m)
	return nil
}

func (r *MemoryMetersRepo) UpdateMeter(_ context.Context, m *domain.Meter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meters[m.ID]; !ok {
		return fmt.Errorf("meter %s: %w", m.ID, domain.ErrNotFound)
	}
	for _, existing := range r.meters {
		if existing.ID != m.ID && existing.MeterCode == m.MeterCode {
			return fmt.Errorf("meter_code %s already exists: %w", m.MeterCode, domain.ErrConflict)
		}
	}
	m.UpdatedAt = time.Now()
	r.meters[m.ID] = cloneMeter(m)
	return nil
}

func (r *MemoryMetersRepo) DeleteMeter(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meters[id]; !ok {
		return fmt.Errorf("meter %s: %w", id, domain.ErrNotFound)
	}
	delete(r.meters, id)
	delete(r.attributes, id)
	delete(r.measurements, id)
	return nil
}

func (r *MemoryMetersRepo) ListMeterAttributes(_ context.Context, meterID string) ([]*domain.MeterAttribute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.MeterAttribute, 0, len(r.attributes[meterID]))
	for _, a := range r.attributes[meterID] {
		cp := *a
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r *MemoryMetersRepo) ReplaceMeterAttributes(_ context.Context, meterID string, attrs []*domain.MeterAttribute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meters[meterID]; !ok {
		return fmt.Errorf("meter %s: %w", meterID, domain.ErrNotFound)
	}
	list := make([]*domain.MeterAttribute, 0, len(attrs))
	for _, a := range attrs {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.MeterID = meterID
		cp := *a
		list = append(list, &cp)
	}
	r.attributes[meterID] = list
	return nil
}

func (r *MemoryMetersRepo) ListMeterMeasurements(_ context.Context, meterID string) ([]*domain.MeterMeasurement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.MeterMeasurement, 0, len(r.measurements[meterID]))
	for _, m := range r.measurements[meterID] {
		cp := *m
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r *MemoryMetersRepo) ReplaceMeterMeasurements(_ context.Context, meterID string, items []*domain.MeterMeasurement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.meters[meterID]; !ok {
		return fmt.Errorf("meter %s: %w", meterID, domain.ErrNotFound)
	}
	list := make([]*domain.MeterMeasurement, 0, len(items))
	for _, m := range items {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		m.MeterID = meterID
		cp := *m
		list = append(list, &cp)
	}
	r.measurements[meterID] = list
	return nil
}
