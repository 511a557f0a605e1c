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

// AnalysisModelNode 分析模型树节点（无 overlay）
type AnalysisModelNode = tree.Node[*domain.AnalysisModel, any]

// AnalysisModelService 分析模型服务
type AnalysisModelService struct {
	models repository.AnalysisModelsRepository
	points repository.DataPointsRepository
	h      hierarchy[*domain.AnalysisModel]
	logger *zap.Logger
}

// NewAnalysisModelService 创建分析模型服务
func NewAnalysisModelService(models repository.AnalysisModelsRepository, points repository.DataPointsRepository, logger *zap.Logger) *AnalysisModelService {
	s := &AnalysisModelService{models: models, points: points, logger: logger}
	s.h = hierarchy[*domain.AnalysisModel]{
		kind: "analysis model",
		get:  models.GetAnalysisModel,
		children: func(ctx context.Context, parentID string) ([]*domain.AnalysisModel, error) {
			return models.ListAnalysisModels(ctx, repository.HierarchyFilter{ParentID: &parentID})
		},
		update:   models.UpdateAnalysisModel,
		id:       func(m *domain.AnalysisModel) string { return m.ID },
		parentID: func(m *domain.AnalysisModel) *string { return m.ParentID },
		level:    func(m *domain.AnalysisModel) int { return m.Level },
		setLevel: func(m *domain.AnalysisModel, l int) { m.Level = l },
	}
	return s
}

// AnalysisModelPointRequest 模型成员点
type AnalysisModelPointRequest struct {
	DataPointID string   `json:"data_point_id"`
	DisplayName string   `json:"display_name"`
	CurveGroup  string   `json:"curve_group"`
	CurveColor  string   `json:"curve_color"`
	YAxisMin    *float64 `json:"y_axis_min"`
	YAxisMax    *float64 `json:"y_axis_max"`
	SortOrder   int      `json:"sort_order"`
	Remark      string   `json:"remark"`
}

// AnalysisModelRequest 创建/更新分析模型请求，成员点整体替换
type AnalysisModelRequest struct {
	ModelCode   string                      `json:"model_code"`
	ModelName   string                      `json:"model_name"`
	ModelType   domain.AnalysisModelType    `json:"model_type"` // 默认 DEVICE
	ParentID    *string                     `json:"parent_id"`
	SortOrder   int                         `json:"sort_order"`
	Description string                      `json:"description"`
	Enabled     *bool                       `json:"enabled"` // 默认 true
	Remark      string                      `json:"remark"`
	Points      []AnalysisModelPointRequest `json:"points"`
}

// ListAnalysisModelsRequest 查询条件
type ListAnalysisModelsRequest struct {
	Keyword   string
	ParentID  string
	RootOnly  bool
	ModelType domain.AnalysisModelType
}

// List 查询分析模型（全部 / 根 / 子模型 / 类型 / 关键字），按 sort_order 排序
func (s *AnalysisModelService) List(ctx context.Context, req ListAnalysisModelsRequest) ([]*domain.AnalysisModel, error) {
	if req.ModelType != "" && !req.ModelType.Valid() {
		return nil, fmt.Errorf("invalid model_type %q: %w", req.ModelType, domain.ErrInvalidArgument)
	}
	filter := repository.HierarchyFilter{
		Keyword:  strings.TrimSpace(req.Keyword),
		RootOnly: req.RootOnly,
		Type:     string(req.ModelType),
	}
	if req.ParentID != "" {
		filter.ParentID = &req.ParentID
	}
	return s.models.ListAnalysisModels(ctx, filter)
}

// Get 模型详情（含成员点）
func (s *AnalysisModelService) Get(ctx context.Context, id string) (*domain.AnalysisModel, error) {
	m, err := s.models.GetAnalysisModel(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Points, err = s.models.ListModelPoints(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to list model points: %w", err)
	}
	return m, nil
}

// Points 模型成员点，curveGroup 非空时按曲线分组过滤
func (s *AnalysisModelService) Points(ctx context.Context, modelID, curveGroup string) ([]*domain.AnalysisModelPoint, error) {
	if _, err := s.models.GetAnalysisModel(ctx, modelID); err != nil {
		return nil, err
	}
	all, err := s.models.ListModelPoints(ctx, modelID)
	if err != nil {
		return nil, err
	}
	if curveGroup == "" {
		return all, nil
	}
	out := make([]*domain.AnalysisModelPoint, 0, len(all))
	for _, p := range all {
		if p.CurveGroup == curveGroup {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *AnalysisModelService) apply(ctx context.Context, m *domain.AnalysisModel, req AnalysisModelRequest) ([]*domain.AnalysisModelPoint, error) {
	m.ModelCode = strings.TrimSpace(req.ModelCode)
	m.ModelName = strings.TrimSpace(req.ModelName)
	if m.ModelCode == "" || m.ModelName == "" {
		return nil, fmt.Errorf("model_code and model_name are required: %w", domain.ErrInvalidArgument)
	}
	if req.ModelType != "" {
		m.ModelType = req.ModelType
	} else if m.ModelType == "" {
		m.ModelType = domain.ModelTypeDevice
	}
	if !m.ModelType.Valid() {
		return nil, fmt.Errorf("invalid model_type %q: %w", m.ModelType, domain.ErrInvalidArgument)
	}
	m.SortOrder = req.SortOrder
	m.Description = req.Description
	if req.Enabled != nil {
		m.Enabled = *req.Enabled
	} else if m.ID == "" {
		m.Enabled = true
	}
	m.Remark = req.Remark

	points := make([]*domain.AnalysisModelPoint, 0, len(req.Points))
	for i, pr := range req.Points {
		if _, err := s.points.GetDataPoint(ctx, pr.DataPointID); err != nil {
			return nil, fmt.Errorf("model point %d: %w", i+1, err)
		}
		if pr.YAxisMin != nil && pr.YAxisMax != nil && *pr.YAxisMin > *pr.YAxisMax {
			return nil, fmt.Errorf("model point %d: y_axis_min greater than y_axis_max: %w", i+1, domain.ErrInvalidArgument)
		}
		points = append(points, &domain.AnalysisModelPoint{
			DataPointID: pr.DataPointID,
			DisplayName: pr.DisplayName,
			CurveGroup:  pr.CurveGroup,
			CurveColor:  pr.CurveColor,
			YAxisMin:    pr.YAxisMin,
			YAxisMax:    pr.YAxisMax,
			SortOrder:   pr.SortOrder,
			Remark:      pr.Remark,
		})
	}
	return points, nil
}

// Create 创建分析模型，level = 父层级 + 1
func (s *AnalysisModelService) Create(ctx context.Context, req AnalysisModelRequest) (*domain.AnalysisModel, error) {
	m := &domain.AnalysisModel{}
	points, err := s.apply(ctx, m, req)
	if err != nil {
		return nil, err
	}
	m.ParentID = normalizeParent(req.ParentID)
	if m.Level, err = s.h.levelUnder(ctx, "", m.ParentID); err != nil {
		return nil, err
	}
	if err := s.models.CreateAnalysisModel(ctx, m); err != nil {
		return nil, err
	}
	if err := s.models.ReplaceModelPoints(ctx, m.ID, points); err != nil {
		return nil, fmt.Errorf("failed to save model points: %w", err)
	}
	m.Points = points
	return m, nil
}

// Update 更新分析模型；父节点变化时整棵子树重新计算层级
func (s *AnalysisModelService) Update(ctx context.Context, id string, req AnalysisModelRequest) (*domain.AnalysisModel, error) {
	m, err := s.models.GetAnalysisModel(ctx, id)
	if err != nil {
		return nil, err
	}
	points, err := s.apply(ctx, m, req)
	if err != nil {
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
	if err := s.models.UpdateAnalysisModel(ctx, m); err != nil {
		return nil, err
	}
	if reparent {
		if err := s.h.relevel(ctx, m); err != nil {
			return nil, err
		}
	}
	if err := s.models.ReplaceModelPoints(ctx, m.ID, points); err != nil {
		return nil, fmt.Errorf("failed to save model points: %w", err)
	}
	m.Points = points
	return m, nil
}

// Delete 删除分析模型及其成员点；有子模型时返回 InvalidState
func (s *AnalysisModelService) Delete(ctx context.Context, id string) error {
	if _, err := s.models.GetAnalysisModel(ctx, id); err != nil {
		return err
	}
	if err := s.h.ensureLeaf(ctx, id); err != nil {
		return err
	}
	return s.models.DeleteAnalysisModel(ctx, id)
}

// Tree 分析模型树；rootID 非空时只返回该子树
func (s *AnalysisModelService) Tree(ctx context.Context, rootID string) ([]*AnalysisModelNode, error) {
	all, err := s.models.ListAnalysisModels(ctx, repository.HierarchyFilter{})
	if err != nil {
		return nil, err
	}
	forest := tree.BuildForest(all, tree.Accessors[*domain.AnalysisModel, string, any]{
		ID:       func(m *domain.AnalysisModel) string { return m.ID },
		ParentID: func(m *domain.AnalysisModel) (string, bool) { return derefParent(m.ParentID) },
		SortKey:  func(m *domain.AnalysisModel) int { return m.SortOrder },
	})
	return subtree(forest, rootID, func(m *domain.AnalysisModel) string { return m.ID })
}

func derefParent(p *string) (string, bool) {
	if p == nil || *p == "" {
		return "", false
	}
	return *p, true
}
