package repository

import (
	"context"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
)

// HierarchyFilter 树形目录通用过滤条件
type HierarchyFilter struct {
	Keyword     string  // 模糊匹配编码 / 名称
	ParentID    *string // 指定父节点
	RootOnly    bool    // 只查根节点
	Type        string  // 节点类型
	EnabledOnly bool
}

// AnalysisModelsRepository 分析模型 Repository 接口
type AnalysisModelsRepository interface {
	GetAnalysisModel(ctx context.Context, id string) (*domain.AnalysisModel, error)
	GetAnalysisModelByCode(ctx context.Context, code string) (*domain.AnalysisModel, error)
	// 按 sort_order 排序
	ListAnalysisModels(ctx context.Context, filter HierarchyFilter) ([]*domain.AnalysisModel, error)
	CreateAnalysisModel(ctx context.Context, m *domain.AnalysisModel) error
	UpdateAnalysisModel(ctx context.Context, m *domain.AnalysisModel) error
	// 删除模型及其成员数据点
	DeleteAnalysisModel(ctx context.Context, id string) error

	// 成员数据点，按 sort_order 排序
	ListModelPoints(ctx context.Context, modelID string) ([]*domain.AnalysisModelPoint, error)
	// 整体替换成员数据点（先删后插）
	ReplaceModelPoints(ctx context.Context, modelID string, points []*domain.AnalysisModelPoint) error
}

// SpaceNodesRepository 空间节点 Repository 接口
type SpaceNodesRepository interface {
	GetSpaceNode(ctx context.Context, id string) (*domain.SpaceNode, error)
	GetSpaceNodeByCode(ctx context.Context, code string) (*domain.SpaceNode, error)
	ListSpaceNodes(ctx context.Context, filter HierarchyFilter) ([]*domain.SpaceNode, error)
	CreateSpaceNode(ctx context.Context, n *domain.SpaceNode) error
	UpdateSpaceNode(ctx context.Context, n *domain.SpaceNode) error
	DeleteSpaceNode(ctx context.Context, id string) error
}

// FormulasRepository 虚拟表公式 Repository 接口
type FormulasRepository interface {
	GetFormula(ctx context.Context, id string) (*domain.VirtualMeterFormula, error)
	GetFormulaByCode(ctx context.Context, code string) (*domain.VirtualMeterFormula, error)
	ListFormulas(ctx context.Context, filter FormulaFilter) ([]*domain.VirtualMeterFormula, error)
	CreateFormula(ctx context.Context, f *domain.VirtualMeterFormula) error
	UpdateFormula(ctx context.Context, f *domain.VirtualMeterFormula) error
	// 删除公式及其参数
	DeleteFormula(ctx context.Context, id string) error

	// 公式参数，按 sort_order 排序
	ListParameters(ctx context.Context, formulaID string) ([]*domain.FormulaParameter, error)
	ReplaceParameters(ctx context.Context, formulaID string, params []*domain.FormulaParameter) error
}

// FormulaFilter 公式过滤条件
type FormulaFilter struct {
	Keyword       string
	OutputPointID string
	EnabledOnly   bool
}

// MetersRepository 表计 Repository 接口
type MetersRepository interface {
	GetMeter(ctx context.Context, id string) (*domain.Meter, error)
	GetMeterByCode(ctx context.Context, code string) (*domain.Meter, error)
	// 按 meter_code 排序
	ListMeters(ctx context.Context, filter MeterFilter) ([]*domain.Meter, error)
	CreateMeter(ctx context.Context, m *domain.Meter) error
	UpdateMeter(ctx context.Context, m *domain.Meter) error
	// 删除表计及其静态属性、检测属性
	DeleteMeter(ctx context.Context, id string) error

	// 静态属性 / 检测属性，按 sort_order 排序；整体替换（先删后插）
	ListMeterAttributes(ctx context.Context, meterID string) ([]*domain.MeterAttribute, error)
	ReplaceMeterAttributes(ctx context.Context, meterID string, attrs []*domain.MeterAttribute) error
	ListMeterMeasurements(ctx context.Context, meterID string) ([]*domain.MeterMeasurement, error)
	ReplaceMeterMeasurements(ctx context.Context, meterID string, items []*domain.MeterMeasurement) error
}

// MeterFilter 表计过滤条件
type MeterFilter struct {
	Keyword     string // 模糊匹配编码 / 名称 / 型号
	MeterType   domain.MeterType
	SpaceNodeID string
	DeviceID    string
	EnabledOnly bool
}
