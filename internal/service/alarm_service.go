package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/evaluator"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/metrics"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"

	"go.uber.org/zap"
)

// AlarmDispatcher 报警通知分发（notify.Dispatcher 实现）
type AlarmDispatcher interface {
	Dispatch(ctx context.Context, rec *domain.AlarmRecord, cfg *domain.AlarmConfig) error
}

// AlarmService 报警服务：配置管理、越限判断、记录生命周期
//
// 记录状态：ACTIVE -> ACKNOWLEDGED -> RECOVERED，ACTIVE -> RECOVERED。
// 同一配置最多一条 ACTIVE 记录；进程内按配置加锁，跨进程由数据库部分唯一索引保证。
type AlarmService struct {
	configs  repository.AlarmConfigsRepository
	records  repository.AlarmRecordsRepository
	points   repository.DataPointsRepository
	notifier AlarmDispatcher // 可为 nil
	locks    *keyedMutex
	logger   *zap.Logger
	now      func() time.Time
}

// NewAlarmService 创建报警服务
func NewAlarmService(
	configs repository.AlarmConfigsRepository,
	records repository.AlarmRecordsRepository,
	points repository.DataPointsRepository,
	notifier AlarmDispatcher,
	logger *zap.Logger,
) *AlarmService {
	return &AlarmService{
		configs:  configs,
		records:  records,
		points:   points,
		notifier: notifier,
		locks:    newKeyedMutex(),
		logger:   logger,
		now:      time.Now,
	}
}

var _ AlarmEvaluator = (*AlarmService)(nil)

// ============================================
// 越限判断
// ============================================

// Evaluate 用数据点的最新值逐条检查启用的报警配置
// 越限且该配置没有 ACTIVE 记录时新建一条；不会自动恢复
// 单条配置失败不影响其他配置，错误合并返回
func (s *AlarmService) Evaluate(ctx context.Context, pointID string, value float64) ([]*domain.AlarmRecord, error) {
	cfgs, err := s.configs.ListAlarmConfigs(ctx, repository.AlarmConfigFilter{DataPointID: pointID, EnabledOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to load alarm configs: %w", err)
	}

	triggered := make([]*domain.AlarmRecord, 0)
	var pointName *string
	var errs []error
	for _, cfg := range cfgs {
		b, err := evaluator.Check(cfg, value)
		if err != nil {
			errs = append(errs, fmt.Errorf("alarm config %s: %w", cfg.AlarmCode, err))
			continue
		}
		if !b.Breached {
			continue
		}

		if pointName == nil {
			name := ""
			if p, err := s.points.GetDataPoint(ctx, pointID); err == nil {
				name = p.PointName
			}
			pointName = &name
		}
		msg := evaluator.RenderMessage(evaluator.MessageContext{Config: cfg, PointName: *pointName, Value: value, Breach: b})

		rec, err := s.openRecord(ctx, cfg, value, b.Threshold, msg)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			errs = append(errs, fmt.Errorf("alarm config %s: %w", cfg.AlarmCode, err))
			continue
		}
		triggered = append(triggered, rec)
	}
	return triggered, errors.Join(errs...)
}

// TriggerAlarm 手动触发报警
// message 为空时使用模板或内置描述；已有 ACTIVE 记录返回 Conflict
func (s *AlarmService) TriggerAlarm(ctx context.Context, configID string, value float64, message string) (*domain.AlarmRecord, error) {
	cfg, err := s.configs.GetAlarmConfig(ctx, configID)
	if err != nil {
		return nil, err
	}

	b, err := evaluator.Check(cfg, value)
	if err != nil {
		return nil, err
	}
	threshold := b.Threshold
	if threshold == nil {
		threshold = cfg.UpperLimit
		if threshold == nil {
			threshold = cfg.LowerLimit
		}
	}

	if strings.TrimSpace(message) == "" {
		pointName := ""
		if p, err := s.points.GetDataPoint(ctx, cfg.DataPointID); err == nil {
			pointName = p.PointName
		}
		message = evaluator.RenderMessage(evaluator.MessageContext{Config: cfg, PointName: pointName, Value: value, Breach: b})
	}
	return s.openRecord(ctx, cfg, value, threshold, message)
}

// openRecord 检查并创建 ACTIVE 记录（按配置串行）
// 已存在 ACTIVE 记录时返回 ErrConflict
func (s *AlarmService) openRecord(ctx context.Context, cfg *domain.AlarmConfig, value float64, threshold *float64, message string) (*domain.AlarmRecord, error) {
	unlock := s.locks.Lock(cfg.ID)
	defer unlock()

	active, err := s.records.FindActiveRecord(ctx, cfg.ID)
	if err == nil {
		return nil, fmt.Errorf("alarm config %s already has active record %s: %w", cfg.AlarmCode, active.ID, domain.ErrConflict)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to find active record: %w", err)
	}

	rec := &domain.AlarmRecord{
		AlarmConfigID:  cfg.ID,
		DataPointID:    cfg.DataPointID,
		AlarmType:      cfg.AlarmType,
		AlarmLevel:     cfg.AlarmLevel,
		AlarmTime:      s.now(),
		AlarmValue:     value,
		ThresholdValue: threshold,
		AlarmMessage:   message,
		Status:         domain.AlarmStatusActive,
	}
	// 跨进程竞争时由唯一索引兜底，返回 ErrConflict
	if err := s.records.CreateAlarmRecord(ctx, rec); err != nil {
		return nil, err
	}

	metrics.AlarmsTriggered.WithLabelValues(string(rec.AlarmType), string(rec.AlarmLevel)).Inc()
	s.logger.Info("Alarm triggered",
		zap.String("record_id", rec.ID),
		zap.String("alarm_code", cfg.AlarmCode),
		zap.String("point_id", rec.DataPointID),
		zap.String("alarm_level", string(rec.AlarmLevel)),
		zap.Float64("value", value),
	)
	s.notify(ctx, rec, cfg)
	return rec, nil
}

func (s *AlarmService) notify(ctx context.Context, rec *domain.AlarmRecord, cfg *domain.AlarmConfig) {
	if s.notifier == nil || !cfg.NotifyEnabled {
		return
	}
	if err := s.notifier.Dispatch(ctx, rec, cfg); err != nil {
		metrics.NotifyFailures.Inc()
		s.logger.Warn("Failed to notify alarm",
			zap.String("record_id", rec.ID),
			zap.String("alarm_code", cfg.AlarmCode),
			zap.Error(err),
		)
	}
}

// ============================================
// 记录生命周期
// ============================================

// AcknowledgeRequest 确认报警请求
type AcknowledgeRequest struct {
	AcknowledgedByID   string `json:"acknowledged_by_id"`
	AcknowledgedByName string `json:"acknowledged_by_name"`
	HandleRemark       string `json:"handle_remark"`
}

// Acknowledge 确认报警，只能确认 ACTIVE 记录
func (s *AlarmService) Acknowledge(ctx context.Context, recordID string, req AcknowledgeRequest) (*domain.AlarmRecord, error) {
	rec, err := s.records.GetAlarmRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(rec.AlarmConfigID)
	defer unlock()

	// 加锁后重新读取
	if rec, err = s.records.GetAlarmRecord(ctx, recordID); err != nil {
		return nil, err
	}
	if rec.Status != domain.AlarmStatusActive {
		return nil, fmt.Errorf("alarm record %s is %s, only ACTIVE can be acknowledged: %w", rec.ID, rec.Status, domain.ErrInvalidState)
	}

	now := s.now()
	rec.Status = domain.AlarmStatusAcknowledged
	rec.AcknowledgedByID = optionalString(req.AcknowledgedByID)
	rec.AcknowledgedByName = optionalString(req.AcknowledgedByName)
	rec.AcknowledgedTime = &now
	rec.HandleRemark = optionalString(req.HandleRemark)
	if err := s.records.UpdateAlarmRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Recover 恢复报警
// ACTIVE 与 ACKNOWLEDGED 均可直接恢复；已恢复的记录原样返回
func (s *AlarmService) Recover(ctx context.Context, recordID string) (*domain.AlarmRecord, error) {
	rec, err := s.records.GetAlarmRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(rec.AlarmConfigID)
	defer unlock()

	if rec, err = s.records.GetAlarmRecord(ctx, recordID); err != nil {
		return nil, err
	}
	if rec.Status == domain.AlarmStatusRecovered {
		return rec, nil
	}

	now := s.now()
	rec.Status = domain.AlarmStatusRecovered
	rec.RecoveryTime = &now
	if err := s.records.UpdateAlarmRecord(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ============================================
// 记录查询（按报警时间倒序）
// ============================================

func (s *AlarmService) ActiveRecords(ctx context.Context) ([]*domain.AlarmRecord, error) {
	return s.records.ListAlarmRecords(ctx, repository.AlarmRecordFilter{Status: domain.AlarmStatusActive})
}

func (s *AlarmService) RecordsByStatus(ctx context.Context, status domain.AlarmStatus) ([]*domain.AlarmRecord, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("invalid alarm status %q: %w", status, domain.ErrInvalidArgument)
	}
	return s.records.ListAlarmRecords(ctx, repository.AlarmRecordFilter{Status: status})
}

func (s *AlarmService) RecordsByDataPoint(ctx context.Context, pointID string) ([]*domain.AlarmRecord, error) {
	return s.records.ListAlarmRecords(ctx, repository.AlarmRecordFilter{DataPointID: pointID})
}

func (s *AlarmService) RecordsByTimeRange(ctx context.Context, from, to time.Time) ([]*domain.AlarmRecord, error) {
	if from.After(to) {
		return nil, fmt.Errorf("start time after end time: %w", domain.ErrInvalidArgument)
	}
	return s.records.ListAlarmRecords(ctx, repository.AlarmRecordFilter{From: &from, To: &to})
}

func (s *AlarmService) GetRecord(ctx context.Context, id string) (*domain.AlarmRecord, error) {
	return s.records.GetAlarmRecord(ctx, id)
}

// ============================================
// 配置管理
// ============================================

// AlarmConfigRequest 创建/更新报警配置请求
type AlarmConfigRequest struct {
	AlarmCode            string            `json:"alarm_code"`
	AlarmName            string            `json:"alarm_name"`
	DataPointID          string            `json:"data_point_id"`
	AlarmType            domain.AlarmType  `json:"alarm_type"`  // 默认 HIGH
	AlarmLevel           domain.AlarmLevel `json:"alarm_level"` // 默认 WARNING
	UpperLimit           *float64          `json:"upper_limit"`
	LowerLimit           *float64          `json:"lower_limit"`
	Deadband             float64           `json:"deadband"`
	DelaySeconds         int               `json:"delay_seconds"`
	AlarmMessageTemplate string            `json:"alarm_message_template"`
	Enabled              *bool             `json:"enabled"`        // 默认 true
	NotifyEnabled        *bool             `json:"notify_enabled"` // 默认 true
	NotifyMethod         string            `json:"notify_method"`
	NotifyReceivers      string            `json:"notify_receivers"`
	Remark               string            `json:"remark"`
}

func (req AlarmConfigRequest) apply(c *domain.AlarmConfig) error {
	c.AlarmCode = strings.TrimSpace(req.AlarmCode)
	c.AlarmName = strings.TrimSpace(req.AlarmName)
	c.DataPointID = strings.TrimSpace(req.DataPointID)
	if c.AlarmCode == "" || c.AlarmName == "" || c.DataPointID == "" {
		return fmt.Errorf("alarm_code, alarm_name and data_point_id are required: %w", domain.ErrInvalidArgument)
	}

	c.AlarmType = req.AlarmType
	if c.AlarmType == "" {
		c.AlarmType = domain.AlarmTypeHigh
	}
	c.AlarmLevel = req.AlarmLevel
	if c.AlarmLevel == "" {
		c.AlarmLevel = domain.AlarmLevelWarning
	}
	c.UpperLimit = req.UpperLimit
	c.LowerLimit = req.LowerLimit
	c.Deadband = req.Deadband
	c.DelaySeconds = req.DelaySeconds
	c.AlarmMessageTemplate = req.AlarmMessageTemplate
	c.Enabled = req.Enabled == nil || *req.Enabled
	c.NotifyEnabled = req.NotifyEnabled == nil || *req.NotifyEnabled
	c.NotifyMethod = req.NotifyMethod
	c.NotifyReceivers = req.NotifyReceivers
	c.Remark = req.Remark
	return validateAlarmConfig(c)
}

func validateAlarmConfig(c *domain.AlarmConfig) error {
	if !c.AlarmType.Valid() {
		return fmt.Errorf("invalid alarm_type %q: %w", c.AlarmType, domain.ErrInvalidArgument)
	}
	if !c.AlarmLevel.Valid() {
		return fmt.Errorf("invalid alarm_level %q: %w", c.AlarmLevel, domain.ErrInvalidArgument)
	}
	switch c.AlarmType {
	case domain.AlarmTypeHigh:
		if c.UpperLimit == nil {
			return fmt.Errorf("HIGH alarm requires upper_limit: %w", domain.ErrInvalidArgument)
		}
	case domain.AlarmTypeLow:
		if c.LowerLimit == nil {
			return fmt.Errorf("LOW alarm requires lower_limit: %w", domain.ErrInvalidArgument)
		}
	case domain.AlarmTypeRange:
		if c.UpperLimit == nil && c.LowerLimit == nil {
			return fmt.Errorf("RANGE alarm requires at least one limit: %w", domain.ErrInvalidArgument)
		}
	}
	if c.UpperLimit != nil && c.LowerLimit != nil && *c.UpperLimit < *c.LowerLimit {
		return fmt.Errorf("upper_limit less than lower_limit: %w", domain.ErrInvalidArgument)
	}
	if c.Deadband < 0 || c.DelaySeconds < 0 {
		return fmt.Errorf("deadband and delay_seconds must be non-negative: %w", domain.ErrInvalidArgument)
	}
	return nil
}

func (s *AlarmService) ListConfigs(ctx context.Context) ([]*domain.AlarmConfig, error) {
	return s.configs.ListAlarmConfigs(ctx, repository.AlarmConfigFilter{})
}

// SearchConfigs 关键字为空时返回全部
func (s *AlarmService) SearchConfigs(ctx context.Context, keyword string) ([]*domain.AlarmConfig, error) {
	return s.configs.ListAlarmConfigs(ctx, repository.AlarmConfigFilter{Keyword: strings.TrimSpace(keyword)})
}

func (s *AlarmService) ConfigsByDataPoint(ctx context.Context, pointID string) ([]*domain.AlarmConfig, error) {
	return s.configs.ListAlarmConfigs(ctx, repository.AlarmConfigFilter{DataPointID: pointID})
}

func (s *AlarmService) GetConfig(ctx context.Context, id string) (*domain.AlarmConfig, error) {
	return s.configs.GetAlarmConfig(ctx, id)
}

// CreateConfig 创建报警配置，数据点必须存在
func (s *AlarmService) CreateConfig(ctx context.Context, req AlarmConfigRequest) (*domain.AlarmConfig, error) {
	cfg := &domain.AlarmConfig{}
	if err := req.apply(cfg); err != nil {
		return nil, err
	}
	if _, err := s.points.GetDataPoint(ctx, cfg.DataPointID); err != nil {
		return nil, err
	}
	if err := s.configs.CreateAlarmConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *AlarmService) UpdateConfig(ctx context.Context, id string, req AlarmConfigRequest) (*domain.AlarmConfig, error) {
	cfg, err := s.configs.GetAlarmConfig(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.apply(cfg); err != nil {
		return nil, err
	}
	if _, err := s.points.GetDataPoint(ctx, cfg.DataPointID); err != nil {
		return nil, err
	}
	if err := s.configs.UpdateAlarmConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DeleteConfig 删除配置，历史记录保留
func (s *AlarmService) DeleteConfig(ctx context.Context, id string) error {
	return s.configs.DeleteAlarmConfig(ctx, id)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
