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

func matchHierarchy(filter HierarchyFilter, code, name, typ string, parentID *string, enabled bool) bool {
	if kw := strings.ToLower(strings.TrimSpace(filter.Keyword)); kw != "" {
		if !strings.Contains(strings.ToLower(code), kw) && !strings.Contains(strings.ToLower(name), kw) {
			return false
		}
	}
	if filter.RootOnly && parentID != nil {
		return false
	}
	if filter.ParentID != nil && (parentID == nil || *parentID != *filter.ParentID) {
		return false
	}
	if filter.Type != "" && typ != filter.Type {
		return false
	}
	if filter.EnabledOnly && !enabled {
		return false
	}
	return true
}

// MemoryAnalysisModelsRepo 分析模型内存实现
type MemoryAnalysisModelsRepo struct {
	mu     sync.RWMutex
	models map[string]*domain.AnalysisModel
	points map[string][]*domain.AnalysisModelPoint // key: model id
}

func NewMemoryAnalysisModelsRepo() *MemoryAnalysisModelsRepo {
	return &MemoryAnalysisModelsRepo{
		models: map[string]*domain.AnalysisModel{},
		points: map[string][]*domain.AnalysisModelPoint{},
	}
}

var _ AnalysisModelsRepository = (*MemoryAnalysisModelsRepo)(nil)

func cloneModel(m *domain.AnalysisModel) *domain.AnalysisModel {
	cp := *m
	cp.Points = nil
	return &cp
}

func (r *MemoryAnalysisModelsRepo) GetAnalysisModel(_ context.Context, id string) (*domain.AnalysisModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("analysis model %s: %w", id, domain.ErrNotFound)
	}
	return cloneModel(m), nil
}

func (r *MemoryAnalysisModelsRepo) GetAnalysisModelByCode(_ context.Context, code string) (*domain.AnalysisModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.models {
		if m.ModelCode == code {
			return cloneModel(m), nil
		}
	}
	return nil, fmt.Errorf("analysis model code %s: %w", code, domain.ErrNotFound)
}

func (r *MemoryAnalysisModelsRepo) ListAnalysisModels(_ context.Context, filter HierarchyFilter) ([]*domain.AnalysisModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.AnalysisModel, 0)
	for _, m := range r.models {
		if matchHierarchy(filter, m.ModelCode, m.ModelName, string(m.ModelType), m.ParentID, m.Enabled) {
			out = append(out, cloneModel(m))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ModelCode < out[j].ModelCode
	})
	return out, nil
}

func (r *MemoryAnalysisModelsRepo) CreateAnalysisModel(_ context.Context, m *domain.AnalysisModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.models {
		if existing.ModelCode == m.ModelCode {
			return fmt.Errorf("model_code %s already exists: %w", m.ModelCode, domain.ErrConflict)
		}
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	r.models[m.ID] = cloneModel(m)
	return nil
}

func (r *MemoryAnalysisModelsRepo) UpdateAnalysisModel(_ context.Context, m *domain.AnalysisModel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[m.ID]; !ok {
		return fmt.Errorf("analysis model %s: %w", m.ID, domain.ErrNotFound)
	}
	for _, existing := range r.models {
		if existing.ID != m.ID && existing.ModelCode == m.ModelCode {
			return fmt.Errorf("model_code %s already exists: %w", m.ModelCode, domain.ErrConflict)
		}
	}
	m.UpdatedAt = time.Now()
	r.models[m.ID] = cloneModel(m)
	return nil
}

func (r *MemoryAnalysisModelsRepo) DeleteAnalysisModel(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[id]; !ok {
		return fmt.Errorf("analysis model %s: %w", id, domain.ErrNotFound)
	}
	delete(r.models, id)
	delete(r.points, id)
	return nil
}

func (r *MemoryAnalysisModelsRepo) ListModelPoints(_ context.Context, modelID string) ([]*domain.AnalysisModelPoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.AnalysisModelPoint, 0, len(r.points[modelID]))
	for _, p := range r.points[modelID] {
		cp := *p
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r *MemoryAnalysisModelsRepo) ReplaceModelPoints(_ context.Context, modelID string, points []*domain.AnalysisModelPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[modelID]; !ok {
		return fmt.Errorf("analysis model %s: %w", modelID, domain.ErrNotFound)
	}
	list := make([]*domain.AnalysisModelPoint, 0, len(points))
	for _, p := range points {
		cp := *p
		if cp.ID == "" {
			cp.ID = uuid.NewString()
		}
		cp.AnalysisModelID = modelID
		list = append(list, &cp)
	}
	r.points[modelID] = list
	return nil
}

// MemorySpaceNodesRepo 空间节点内存实现
type MemorySpaceNodesRepo struct {
	mu    sync.RWMutex
	nodes map[string]*domain.SpaceNode
}

func NewMemorySpaceNodesRepo() *MemorySpaceNodesRepo {
	return &MemorySpaceNodesRepo{nodes: map[string]*domain.SpaceNode{}}
}

var _ SpaceNodesRepository = (*MemorySpaceNodesRepo)(nil)

func (r *MemorySpaceNodesRepo) GetSpaceNode(_ context.Context, id string) (*domain.SpaceNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[id]
	if !ok {
		return nil, fmt.Errorf("space node %s: %w", id, domain.ErrNotFound)
	}
	cp := *n
	return &cp, nil
}

func (r *MemorySpaceNodesRepo) GetSpaceNodeByCode(_ context.Context, code string) (*domain.SpaceNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.nodes {
		if n.NodeCode == code {
			cp := *n
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("space node code %s: %w", code, domain.ErrNotFound)
}

func (r *MemorySpaceNodesRepo) ListSpaceNodes(_ context.Context, filter HierarchyFilter) ([]*domain.SpaceNode, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.SpaceNode, 0)
	for _, n := range r.nodes {
		if matchHierarchy(filter, n.NodeCode, n.NodeName, string(n.NodeType), n.ParentID, n.Enabled) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].NodeCode < out[j].NodeCode
	})
	return out, nil
}

func (r *MemorySpaceNodesRepo) CreateSpaceNode(_ context.Context, n *domain.SpaceNode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.nodes {
		if existing.NodeCode == n.NodeCode {
			return fmt.Errorf("node_code %s already exists: %w", n.NodeCode, domain.ErrConflict)
		}
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := time.Now()
	n.CreatedAt, n.UpdatedAt = now, now
	cp := *n
	r.nodes[n.ID] = &cp
	return nil
}

func (r *MemorySpaceNodesRepo) UpdateSpaceNode(_ context.Context, n *domain.SpaceNode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[n.ID]; !ok {
		return fmt.Errorf("space node %s: %w", n.ID, domain.ErrNotFound)
	}
	for _, existing := range r.nodes {
		if existing.ID != n.ID && existing.NodeCode == n.NodeCode {
			return fmt.Errorf("node_code %s already exists: %w", n.NodeCode, domain.ErrConflict)
		}
	}
	n.UpdatedAt = time.Now()
	cp := *n
	r.nodes[n.ID] = &cp
	return nil
}

func (r *MemorySpaceNodesRepo) DeleteSpaceNode(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nodes[id]; !ok {
		return fmt.Errorf("space node %s: %w", id, domain.ErrNotFound)
	}
	delete(r.nodes, id)
	return nil
}

// MemoryFormulasRepo 公式内存实现
type MemoryFormulasRepo struct {
	mu       sync.RWMutex
	formulas map[string]*domain.VirtualMeterFormula
	params   map[string][]*domain.FormulaParameter // key: formula id
}

func NewMemoryFormulasRepo() *MemoryFormulasRepo {
	return &MemoryFormulasRepo{
		formulas: map[string]*domain.VirtualMeterFormula{},
		params:   map[string][]*domain.FormulaParameter{},
	}
}

var _ FormulasRepository = (*MemoryFormulasRepo)(nil)

func cloneFormula(f *domain.VirtualMeterFormula) *domain.VirtualMeterFormula {
	cp := *f
	cp.Parameters = nil
	return &cp
}

func (r *MemoryFormulasRepo) GetFormula(_ context.Context, id string) (*domain.VirtualMeterFormula, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.formulas[id]
	if !ok {
		return nil, fmt.Errorf("formula %s: %w", id, domain.ErrNotFound)
	}
	return cloneFormula(f), nil
}

func (r *MemoryFormulasRepo) GetFormulaByCode(_ context.Context, code string) (*domain.VirtualMeterFormula, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, f := range r.formulas {
		if f.FormulaCode == code {
			return cloneFormula(f), nil
		}
	}
	return nil, fmt.Errorf("formula code %s: %w", code, domain.ErrNotFound)
}

func (r *MemoryFormulasRepo) ListFormulas(_ context.Context, filter FormulaFilter) ([]*domain.VirtualMeterFormula, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kw := strings.ToLower(strings.TrimSpace(filter.Keyword))
	out := make([]*domain.VirtualMeterFormula, 0)
	for _, f := range r.formulas {
		if kw != "" && !strings.Contains(strings.ToLower(f.FormulaCode), kw) && !strings.Contains(strings.ToLower(f.FormulaName), kw) {
			continue
		}
		if filter.OutputPointID != "" && f.OutputPointID != filter.OutputPointID {
			continue
		}
		if filter.EnabledOnly && !f.Enabled {
			continue
		}
		out = append(out, cloneFormula(f))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FormulaCode < out[j].FormulaCode })
	return out, nil
}

func (r *MemoryFormulasRepo) CreateFormula(_ context.Context, f *domain.VirtualMeterFormula) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.formulas {
		if existing.FormulaCode == f.FormulaCode {
			return fmt.Errorf("formula_code %s already exists: %w", f.FormulaCode, domain.ErrConflict)
		}
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	now := time.Now()
	f.CreatedAt, f.UpdatedAt = now, now
	r.formulas[f.ID] = cloneFormula(f)
	return nil
}

func (r *MemoryFormulasRepo) UpdateFormula(_ context.Context, f *domain.VirtualMeterFormula) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.formulas[f.ID]; !ok {
		return fmt.Errorf("formula %s: %w", f.ID, domain.ErrNotFound)
	}
	for _, existing := range r.formulas {
		if existing.ID != f.ID && existing.FormulaCode == f.FormulaCode {
			return fmt.Errorf("formula_code %s already exists: %w", f.FormulaCode, domain.ErrConflict)
		}
	}
	f.UpdatedAt = time.Now()
	r.formulas[f.ID] = cloneFormula(f)
	return nil
}

func (r *MemoryFormulasRepo) DeleteFormula(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.formulas[id]; !ok {
		return fmt.Errorf("formula %s: %w", id, domain.ErrNotFound)
	}
	delete(r.formulas, id)
	delete(r.params, id)
	return nil
}

func (r *MemoryFormulasRepo) ListParameters(_ context.Context, formulaID string) ([]*domain.FormulaParameter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.FormulaParameter, 0, len(r.params[formulaID]))
	for _, p := range r.params[formulaID] {
		cp := *p
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r *MemoryFormulasRepo) ReplaceParameters(_ context.Context, formulaID string, params []*domain.FormulaParameter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.formulas[formulaID]; !ok {
		return fmt.Errorf("formula %s: %w", formulaID, domain.ErrNotFound)
	}
	list := make([]*domain.FormulaParameter, 0, len(params))
	for _, p := range params {
		cp := *p
		if cp.ID == "" {
			cp.ID = uuid.NewString()
		}
		cp.FormulaID = formulaID
		list = append(list, &cp)
	}
	r.params[formulaID] = list
	return nil
}
