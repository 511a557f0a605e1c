package domain

import "time"

// Meter 表计（水表、电表、压力表等，对应 remote_meter 表）
// 数据点通过 DataPoint.MeterID 挂在表计下
type Meter struct {
	ID              string     `json:"id"`
	MeterCode       string     `json:"meter_code"` // 唯一
	MeterName       string     `json:"meter_name"`
	MeterType       MeterType  `json:"meter_type"`
	MeterFunction   string     `json:"meter_function,omitempty"`
	MeterModel      string     `json:"meter_model,omitempty"`
	MeterUnit       string     `json:"meter_unit,omitempty"`
	Multiplier      float64    `json:"multiplier"`
	InstallLocation string     `json:"install_location,omitempty"`
	InstallDate     *time.Time `json:"install_date,omitempty"`
	SpaceNodeID     *string    `json:"space_node_id,omitempty"`
	DeviceID        *string    `json:"device_id,omitempty"` // 外部设备台账 ID，不校验
	Protocol        string     `json:"protocol,omitempty"`
	CommAddress     string     `json:"comm_address,omitempty"`
	Enabled         bool       `json:"enabled"`
	Remark          string     `json:"remark,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	StaticAttributes []*MeterAttribute   `json:"static_attributes,omitempty"`
	Measurements     []*MeterMeasurement `json:"measurements,omitempty"`
}

// MeterAttribute 表计静态属性（铭牌信息等）
type MeterAttribute struct {
	ID             string             `json:"id"`
	MeterID        string             `json:"meter_id"`
	AttributeName  string             `json:"attribute_name"`
	AttributeCode  string             `json:"attribute_code"`
	AttributeValue string             `json:"attribute_value,omitempty"`
	ValueType      AttributeValueType `json:"value_type"`
	Unit           string             `json:"unit,omitempty"`
	SortOrder      int                `json:"sort_order"`
	Remark         string             `json:"remark,omitempty"`
}

// MeterMeasurement 表计检测属性（流量、电压等），可关联一个数据点
type MeterMeasurement struct {
	ID              string          `json:"id"`
	MeterID         string          `json:"meter_id"`
	MeasurementName string          `json:"measurement_name"`
	MeasurementCode string          `json:"measurement_code"`
	MeasurementType MeasurementType `json:"measurement_type"`
	Unit            string          `json:"unit,omitempty"`
	Precision       int             `json:"precision"`
	MinValue        *float64        `json:"min_value,omitempty"`
	MaxValue        *float64        `json:"max_value,omitempty"`
	DataPointID     *string         `json:"data_point_id,omitempty"`
	SortOrder       int             `json:"sort_order"`
	Enabled         bool            `json:"enabled"`
	Remark          string          `json:"remark,omitempty"`
}
