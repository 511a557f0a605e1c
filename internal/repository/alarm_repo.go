package repository

import (
	"context"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
)

// AlarmConfigsRepository 报警配置 Repository 接口
type AlarmConfigsRepository interface {
	GetAlarmConfig(ctx context.Context, id string) (*domain.AlarmConfig, error)
	GetAlarmConfigByCode(ctx context.Context, code string) (*domain.AlarmConfig, error)
	ListAlarmConfigs(ctx context.Context, filter AlarmConfigFilter) ([]*domain.AlarmConfig, error)
	CreateAlarmConfig(ctx context.Context, cfg *domain.AlarmConfig) error
	UpdateAlarmConfig(ctx context.Context, cfg *domain.AlarmConfig) error
	// 删除配置，历史报警记录保留
	DeleteAlarmConfig(ctx context.Context, id string) error
}

// AlarmConfigFilter 报警配置过滤条件
type AlarmConfigFilter struct {
	DataPointID string
	Keyword     string // 模糊匹配 alarm_code / alarm_name
	EnabledOnly bool
}

// AlarmRecordsRepository 报警记录 Repository 接口
type AlarmRecordsRepository interface {
	// 创建报警记录
	// 同一配置已存在 ACTIVE 记录时返回 domain.ErrConflict
	CreateAlarmRecord(ctx context.Context, r *domain.AlarmRecord) error
	GetAlarmRecord(ctx context.Context, id string) (*domain.AlarmRecord, error)
	// 配置当前的 ACTIVE 记录，没有时返回 domain.ErrNotFound
	FindActiveRecord(ctx context.Context, configID string) (*domain.AlarmRecord, error)
	UpdateAlarmRecord(ctx context.Context, r *domain.AlarmRecord) error
	// 按 alarm_time 倒序
	ListAlarmRecords(ctx context.Context, filter AlarmRecordFilter) ([]*domain.AlarmRecord, error)
}

// AlarmRecordFilter 报警记录过滤条件
type AlarmRecordFilter struct {
	Status        domain.AlarmStatus
	DataPointID   string
	AlarmConfigID string
	From          *time.Time
	To            *time.Time
}
