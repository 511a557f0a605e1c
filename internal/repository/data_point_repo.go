package repository

import (
	"context"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
)

// DataPointsRepository 数据点 Repository 接口
type DataPointsRepository interface {
	GetDataPoint(ctx context.Context, id string) (*domain.DataPoint, error)
	GetDataPointByCode(ctx context.Context, code string) (*domain.DataPoint, error)
	// 查询数据点列表（按 point_code 排序）
	ListDataPoints(ctx context.Context, filter DataPointFilter) ([]*domain.DataPoint, error)
	CreateDataPoint(ctx context.Context, p *domain.DataPoint) error
	UpdateDataPoint(ctx context.Context, p *domain.DataPoint) error
	DeleteDataPoint(ctx context.Context, id string) error

	// 更新当前值缓存（最后写入者胜出）
	UpdateCurrentValue(ctx context.Context, id string, value float64, at time.Time) error
}

// DataPointFilter 数据点过滤条件（空值表示不过滤）
type DataPointFilter struct {
	IDs            []string
	Keyword        string // 模糊匹配 point_code / point_name
	PointType      domain.PointType
	MeterID        string
	CollectionMode domain.CollectionMode
	EnabledOnly    bool
}

// SamplesRepository 运行数据 Repository 接口（只追加）
type SamplesRepository interface {
	AppendSample(ctx context.Context, s *domain.Sample) error
	// 时间范围内的采样，按采集时间升序，闭区间
	ListSamples(ctx context.Context, pointID string, from, to time.Time) ([]*domain.Sample, error)
	// 最新一条采样，没有时返回 domain.ErrNotFound
	LatestSample(ctx context.Context, pointID string) (*domain.Sample, error)
}

// StatisticsRepository 统计数据 Repository 接口（只读）
type StatisticsRepository interface {
	// 按数据点 + 周期 + 日期区间（闭区间，按日比较）查询
	// 返回结果按 data_point_id、statistics_date、hour_of_day 排序
	FindStatistics(ctx context.Context, pointIDs []string, period domain.StatisticsPeriod, startDate, endDate time.Time) ([]*domain.DataStatistics, error)
}
