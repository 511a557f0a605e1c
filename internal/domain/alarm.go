package domain

import "time"

// AlarmConfig 报警配置（对应 remote_alarm_config 表）
type AlarmConfig struct {
	ID                   string     `json:"id"`
	AlarmCode            string     `json:"alarm_code"` // 唯一
	AlarmName            string     `json:"alarm_name"`
	DataPointID          string     `json:"data_point_id"`
	AlarmType            AlarmType  `json:"alarm_type"`
	AlarmLevel           AlarmLevel `json:"alarm_level"`
	UpperLimit           *float64   `json:"upper_limit,omitempty"`
	LowerLimit           *float64   `json:"lower_limit,omitempty"`
	Deadband             float64    `json:"deadband"`      // 保留字段，当前不参与判断
	DelaySeconds         int        `json:"delay_seconds"` // 保留字段，当前不参与判断
	AlarmMessageTemplate string     `json:"alarm_message_template,omitempty"`
	Enabled              bool       `json:"enabled"`
	NotifyEnabled        bool       `json:"notify_enabled"`
	NotifyMethod         string     `json:"notify_method,omitempty"`    // STREAM / WEBHOOK，逗号分隔
	NotifyReceivers      string     `json:"notify_receivers,omitempty"` // 逗号分隔
	Remark               string     `json:"remark,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// AlarmRecord 报警记录（对应 remote_alarm_record 表）
// 同一配置最多只有一条 ACTIVE 记录；删除配置不删除记录
type AlarmRecord struct {
	ID                 string      `json:"id"`
	AlarmConfigID      string      `json:"alarm_config_id"`
	DataPointID        string      `json:"data_point_id"`
	AlarmType          AlarmType   `json:"alarm_type"`
	AlarmLevel         AlarmLevel  `json:"alarm_level"`
	AlarmTime          time.Time   `json:"alarm_time"`
	RecoveryTime       *time.Time  `json:"recovery_time,omitempty"`
	AlarmValue         float64     `json:"alarm_value"`
	ThresholdValue     *float64    `json:"threshold_value,omitempty"`
	AlarmMessage       string      `json:"alarm_message"`
	Status             AlarmStatus `json:"status"`
	AcknowledgedByID   *string     `json:"acknowledged_by_id,omitempty"`
	AcknowledgedByName *string     `json:"acknowledged_by_name,omitempty"`
	AcknowledgedTime   *time.Time  `json:"acknowledged_time,omitempty"`
	HandleRemark       *string     `json:"handle_remark,omitempty"`
}
