package domain

import "time"

// AnalysisModel 分析模型（树形，对应 remote_analysis_model 表）
type AnalysisModel struct {
	ID          string            `json:"id"`
	ModelCode   string            `json:"model_code"`
	ModelName   string            `json:"model_name"`
	ModelType   AnalysisModelType `json:"model_type"`
	ParentID    *string           `json:"parent_id,omitempty"`
	Level       int               `json:"level"`
	SortOrder   int               `json:"sort_order"`
	Description string            `json:"description,omitempty"`
	Enabled     bool              `json:"enabled"`
	Remark      string            `json:"remark,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`

	Points []*AnalysisModelPoint `json:"points,omitempty"`
}

// AnalysisModelPoint 分析模型成员数据点
type AnalysisModelPoint struct {
	ID              string   `json:"id"`
	AnalysisModelID string   `json:"analysis_model_id"`
	DataPointID     string   `json:"data_point_id"`
	DisplayName     string   `json:"display_name,omitempty"`
	CurveGroup      string   `json:"curve_group,omitempty"`
	CurveColor      string   `json:"curve_color,omitempty"`
	YAxisMin        *float64 `json:"y_axis_min,omitempty"`
	YAxisMax        *float64 `json:"y_axis_max,omitempty"`
	SortOrder       int      `json:"sort_order"`
	Remark          string   `json:"remark,omitempty"`
}

// SpaceNode 空间节点（公司/区域/楼/层/房间）
type SpaceNode struct {
	ID            string        `json:"id"`
	NodeCode      string        `json:"node_code"`
	NodeName      string        `json:"node_name"`
	NodeType      SpaceNodeType `json:"node_type"`
	ParentID      *string       `json:"parent_id,omitempty"`
	Level         int           `json:"level"`
	SortOrder     int           `json:"sort_order"`
	ContactPerson string        `json:"contact_person,omitempty"`
	ContactPhone  string        `json:"contact_phone,omitempty"`
	Address       string        `json:"address,omitempty"`
	Longitude     *float64      `json:"longitude,omitempty"`
	Latitude      *float64      `json:"latitude,omitempty"`
	Description   string        `json:"description,omitempty"`
	Enabled       bool          `json:"enabled"`
	Remark        string        `json:"remark,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Module 系统功能模块（菜单），PermissionKey 唯一
type Module struct {
	ID            string  `json:"id"`
	ZhName        string  `json:"zh_name"`
	EnName        string  `json:"en_name,omitempty"`
	Level         int     `json:"level"`
	OrderNo       int     `json:"order_no"`
	Path          string  `json:"path,omitempty"`
	Icon          string  `json:"icon,omitempty"`
	GroupCode     string  `json:"group_code,omitempty"`
	PermissionKey string  `json:"permission_key"`
	ParentID      *string `json:"parent_id,omitempty"`
	ParentNode    bool    `json:"parent_node"`
	Expanded      bool    `json:"expanded"`
	Visible       bool    `json:"visible"`
}

// AdminRoleName 管理员角色名（大小写不敏感），可见全部模块
const AdminRoleName = "ADMIN"

// Role 角色（外部权限系统的只读视图）
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoleModulePermission 角色-模块权限
type RoleModulePermission struct {
	ID        string `json:"id"`
	RoleID    string `json:"role_id"`
	ModuleID  string `json:"module_id"`
	CanRead   bool   `json:"can_read"`
	CanAdd    bool   `json:"can_add"`
	CanUpdate bool   `json:"can_update"`
	CanSee    bool   `json:"can_see"`
}

// VirtualMeterFormula 虚拟表计算公式
// Expression 仅用于展示，计算以参数列表为准
type VirtualMeterFormula struct {
	ID            string    `json:"id"`
	FormulaCode   string    `json:"formula_code"`
	FormulaName   string    `json:"formula_name"`
	OutputPointID string    `json:"output_point_id"`
	Expression    string    `json:"expression,omitempty"`
	Description   string    `json:"description,omitempty"`
	Precision     int       `json:"precision"`
	Enabled       bool      `json:"enabled"`
	Remark        string    `json:"remark,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Parameters []*FormulaParameter `json:"parameters,omitempty"`
}

// FormulaParameter 公式参数，按 SortOrder 顺序参与计算
type FormulaParameter struct {
	ID            string          `json:"id"`
	FormulaID     string          `json:"formula_id"`
	ParameterName string          `json:"parameter_name"`
	DataPointID   string          `json:"data_point_id"`
	Coefficient   float64         `json:"coefficient"`
	Operator      FormulaOperator `json:"operator"`
	SortOrder     int             `json:"sort_order"`
	Remark        string          `json:"remark,omitempty"`
}
