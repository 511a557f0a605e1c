// Package notify 报警通知（Redis Stream / Webhook）
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"

	"go.uber.org/zap"
)

// 通知方式（AlarmConfig.NotifyMethod，逗号分隔）
const (
	MethodStream  = "STREAM"
	MethodWebhook = "WEBHOOK"
)

// AlarmNotification 通知内容
type AlarmNotification struct {
	RecordID      string             `json:"record_id"`
	AlarmConfigID string             `json:"alarm_config_id"`
	AlarmCode     string             `json:"alarm_code"`
	AlarmName     string             `json:"alarm_name"`
	DataPointID   string             `json:"data_point_id"`
	AlarmType     domain.AlarmType   `json:"alarm_type"`
	AlarmLevel    domain.AlarmLevel  `json:"alarm_level"`
	AlarmTime     time.Time          `json:"alarm_time"`
	AlarmValue    float64            `json:"alarm_value"`
	Threshold     *float64           `json:"threshold_value,omitempty"`
	Message       string             `json:"alarm_message"`
	Status        domain.AlarmStatus `json:"status"`
	Receivers     []string           `json:"receivers,omitempty"`
}

// NewAlarmNotification 由报警记录和配置构建通知内容
func NewAlarmNotification(rec *domain.AlarmRecord, cfg *domain.AlarmConfig) AlarmNotification {
	return AlarmNotification{
		RecordID:      rec.ID,
		AlarmConfigID: rec.AlarmConfigID,
		AlarmCode:     cfg.AlarmCode,
		AlarmName:     cfg.AlarmName,
		DataPointID:   rec.DataPointID,
		AlarmType:     rec.AlarmType,
		AlarmLevel:    rec.AlarmLevel,
		AlarmTime:     rec.AlarmTime,
		AlarmValue:    rec.AlarmValue,
		Threshold:     rec.ThresholdValue,
		Message:       rec.AlarmMessage,
		Status:        rec.Status,
		Receivers:     splitList(cfg.NotifyReceivers),
	}
}

// Notifier 报警通知接口
type Notifier interface {
	Notify(ctx context.Context, n AlarmNotification) error
}

// Dispatcher 按配置的通知方式分发
type Dispatcher struct {
	byMethod map[string]Notifier
	logger   *zap.Logger
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{byMethod: map[string]Notifier{}, logger: logger}
}

// Register 注册通知方式（大小写不敏感）
func (d *Dispatcher) Register(method string, n Notifier) {
	d.byMethod[strings.ToUpper(strings.TrimSpace(method))] = n
}

// Dispatch 对每种配置的通知方式发送一次
// 未配置方式时默认走 STREAM；未注册的方式记日志跳过
func (d *Dispatcher) Dispatch(ctx context.Context, rec *domain.AlarmRecord, cfg *domain.AlarmConfig) error {
	methods := splitList(strings.ToUpper(cfg.NotifyMethod))
	if len(methods) == 0 {
		methods = []string{MethodStream}
	}

	n := NewAlarmNotification(rec, cfg)
	var errs []error
	for _, m := range methods {
		notifier, ok := d.byMethod[m]
		if !ok {
			d.logger.Debug("Notify method not registered, skipped",
				zap.String("method", m),
				zap.String("alarm_code", cfg.AlarmCode),
			)
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m, err))
		}
	}
	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
