package domain

import "time"

// DataPoint 数据点（对应 remote_data_point 表）
// CurrentValue / LastCollectionTime 是最新采样的缓存，由 Telemetry Store 维护
type DataPoint struct {
	ID                 string          `json:"id"`
	PointCode          string          `json:"point_code"` // 唯一
	PointName          string          `json:"point_name"`
	PointType          PointType       `json:"point_type"`
	DataType           MeasurementType `json:"data_type"`
	MeterID            *string         `json:"meter_id,omitempty"`
	Unit               string          `json:"unit,omitempty"`
	Multiplier         float64         `json:"multiplier"`          // 默认 1
	CollectionMode     CollectionMode  `json:"collection_mode"`     // 默认 POLLING
	CollectionInterval int             `json:"collection_interval"` // 秒，默认 60
	Precision          int             `json:"precision"`           // 小数位，未指定时为 2
	MinValue           *float64        `json:"min_value,omitempty"`
	MaxValue           *float64        `json:"max_value,omitempty"`
	Protocol           string          `json:"protocol,omitempty"`
	CommAddress        string          `json:"comm_address,omitempty"`
	RegisterAddress    string          `json:"register_address,omitempty"`
	CurrentValue       *float64        `json:"current_value,omitempty"`
	LastCollectionTime *time.Time      `json:"last_collection_time,omitempty"`
	Enabled            bool            `json:"enabled"`
	AlarmEnabled       bool            `json:"alarm_enabled"`
	Remark             string          `json:"remark,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ApplyDefaults 填充缺省值
func (p *DataPoint) ApplyDefaults() {
	if p.PointType == "" {
		p.PointType = PointTypeReal
	}
	if p.DataType == "" {
		p.DataType = MeasurementAnalog
	}
	if p.Multiplier == 0 {
		p.Multiplier = 1
	}
	if p.CollectionMode == "" {
		p.CollectionMode = CollectionPolling
	}
	if p.CollectionInterval == 0 {
		p.CollectionInterval = 60
	}
}

// DefaultPrecision 未指定小数位时的默认值
const DefaultPrecision = 2

// Sample 运行数据（对应 remote_device_running_data 表），只追加
type Sample struct {
	ID             string      `json:"id"`
	DataPointID    string      `json:"data_point_id"`
	CollectionTime time.Time   `json:"collection_time"`
	Value          float64     `json:"value"`     // 换算后的值
	RawValue       float64     `json:"raw_value"` // 原始值
	Quality        DataQuality `json:"quality"`
	Source         DataSource  `json:"source"`
	InputByID      *string     `json:"input_by_id,omitempty"`
	InputByName    *string     `json:"input_by_name,omitempty"`
	Remark         string      `json:"remark,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// DataStatistics 统计数据（对应 remote_data_statistics 表），由外部汇总任务写入
type DataStatistics struct {
	ID               string           `json:"id"`
	DataPointID      string           `json:"data_point_id"`
	StatisticsPeriod StatisticsPeriod `json:"statistics_period"`
	StatisticsDate   time.Time        `json:"statistics_date"`
	HourOfDay        *int             `json:"hour_of_day,omitempty"`
	WeekOfYear       *int             `json:"week_of_year,omitempty"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          time.Time        `json:"end_time"`
	AvgValue         float64          `json:"avg_value"`
	MaxValue         float64          `json:"max_value"`
	MaxValueTime     *time.Time       `json:"max_value_time,omitempty"`
	MinValue         float64          `json:"min_value"`
	MinValueTime     *time.Time       `json:"min_value_time,omitempty"`
	SumValue         *float64         `json:"sum_value,omitempty"`
	DataCount        int              `json:"data_count"`
}

// BucketTime 统计桶起点：日期 + 小时
func (s *DataStatistics) BucketTime() time.Time {
	y, m, d := s.StatisticsDate.Date()
	hour := 0
	if s.HourOfDay != nil {
		hour = *s.HourOfDay
	}
	return time.Date(y, m, d, hour, 0, 0, 0, s.StatisticsDate.Location())
}
