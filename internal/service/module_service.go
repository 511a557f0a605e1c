package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/tree"

	"go.uber.org/zap"
)

// ModuleNode 功能模块树节点
type ModuleNode = tree.Node[*domain.Module, any]

// ModuleService 系统功能模块服务
type ModuleService struct {
	modules repository.ModulesRepository
	h       hierarchy[*domain.Module]
	logger  *zap.Logger
}

func NewModuleService(modules repository.ModulesRepository, logger *zap.Logger) *ModuleService {
	return &ModuleService{
		modules: modules,
		logger:  logger,
		h: hierarchy[*domain.Module]{
			kind:     "module",
			get:      modules.GetModule,
			children: modules.ListChildModules,
			update:   modules.UpdateModule,
			id:       func(m *domain.Module) string { return m.ID },
			parentID: func(m *domain.Module) *string { return m.ParentID },
			level:    func(m *domain.Module) int { return m.Level },
			setLevel: func(m *domain.Module, l int) { m.Level = l },
		},
	}
}

// ModuleRequest 创建/更新功能模块请求
type ModuleRequest struct {
	ZhName        string  `json:"zh_name"`
	EnName        string  `json:"en_name"`
	OrderNo       int     `json:"order_no"`
	Path          string  `json:"path"`
	Icon          string  `json:"icon"`
	GroupCode     string  `json:"group_code"`
	PermissionKey string  `json:"permission_key"`
	ParentID      *string `json:"parent_id"`
	ParentNode    bool    `json:"parent_node"`
	Expanded      bool    `json:"expanded"`
	Visible       *bool   `json:"visible"` // 默认 true
}

func (req ModuleRequest) apply(m *domain.Module) error {
	m.ZhName = strings.TrimSpace(req.ZhName)
	m.PermissionKey = strings.TrimSpace(req.PermissionKey)
	if m.ZhName == "" || m.PermissionKey == "" {
		return fmt.Errorf("zh_name and permission_key are required: %w", domain.ErrInvalidArgument)
	}
	m.EnName = req.EnName
	m.OrderNo = req.OrderNo
	m.Path = req.Path
	m.Icon = req.Icon
	m.GroupCode = req.GroupCode
	m.ParentNode = req.ParentNode
	m.Expanded = req.Expanded
	if req.Visible != nil {
		m.Visible = *req.Visible
	} else if m.ID == "" {
		m.Visible = true
	}
	return nil
}

func (s *ModuleService) List(ctx context.Context) ([]*domain.Module, error) {
	return s.modules.ListModules(ctx)
}

func (s *ModuleService) Children(ctx context.Context, parentID string) ([]*domain.Module, error) {
	if _, err := s.modules.GetModule(ctx, parentID); err != nil {
		return nil, err
	}
	return s.modules.ListChildModules(ctx, parentID)
}

func (s *ModuleService) Get(ctx context.Context, id string) (*domain.Module, error) {
	return s.modules.GetModule(ctx, id)
}

func (s *ModuleService) GetByPermissionKey(ctx context.Context, key string) (*domain.Module, error) {
	return s.modules.GetModuleByPermissionKey(ctx, key)
}

func (s *ModuleService) Create(ctx context.Context, req ModuleRequest) (*domain.Module, error) {
	m := &domain.Module{}
	if err := req.apply(m); err != nil {
		return nil, err
	}
	m.ParentID = normalizeParent(req.ParentID)
	level, err := s.h.levelUnder(ctx, "", m.ParentID)
	if err != nil {
		return nil, err
	}
	m.Level = level
	if err := s.modules.CreateModule(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *ModuleService) Update(ctx context.Context, id string, req ModuleRequest) (*domain.Module, error) {
	m, err := s.modules.GetModule(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.apply(m); err != nil {
		return nil, err
	}
	newParent := normalizeParent(req.ParentID)
	reparent := !sameParent(m.ParentID, newParent)
	if reparent {
		if m.Level, err = s.h.levelUnder(ctx, m.ID, newParent); err != nil {
			return nil, err
		}
		m.ParentID = newParent
	}
	if err := s.modules.UpdateModule(ctx, m); err != nil {
		return nil, err
	}
	if reparent {
		if err := s.h.relevel(ctx, m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (s *ModuleService) Delete(ctx context.Context, id string) error {
	if _, err := s.modules.GetModule(ctx, id); err != nil {
		return err
	}
	if err := s.h.ensureLeaf(ctx, id); err != nil {
		return err
	}
	return s.modules.DeleteModule(ctx, id)
}

// Tree 完整功能模块树
func (s *ModuleService) Tree(ctx context.Context) ([]*ModuleNode, error) {
	all, err := s.modules.ListModules(ctx)
	if err != nil {
		return nil, err
	}
	return tree.BuildForest(all, moduleAccessors[any](nil)), nil
}

func moduleAccessors[O any](overlay func(*domain.Module) O) tree.Accessors[*domain.Module, string, O] {
	return tree.Accessors[*domain.Module, string, O]{
		ID:       func(m *domain.Module) string { return m.ID },
		ParentID: func(m *domain.Module) (string, bool) { return derefParent(m.ParentID) },
		SortKey:  func(m *domain.Module) int { return m.OrderNo },
		Overlay:  overlay,
	}
}
