package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/metrics"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/store"

	"go.uber.org/zap"
)

// AlarmEvaluator 报警判断入口（AlarmService 实现）
type AlarmEvaluator interface {
	Evaluate(ctx context.Context, pointID string, value float64) ([]*domain.AlarmRecord, error)
}

// TelemetryService 采集数据服务：入库、当前值、历史
type TelemetryService struct {
	points  repository.DataPointsRepository
	samples repository.SamplesRepository
	models  repository.AnalysisModelsRepository
	cache   *store.RealtimeCache // 可为 nil
	alarms  AlarmEvaluator       // 可为 nil
	locks   *keyedMutex
	logger  *zap.Logger
	now     func() time.Time
}

// NewTelemetryService 创建采集数据服务
func NewTelemetryService(
	points repository.DataPointsRepository,
	samples repository.SamplesRepository,
	models repository.AnalysisModelsRepository,
	cache *store.RealtimeCache,
	alarms AlarmEvaluator,
	logger *zap.Logger,
) *TelemetryService {
	return &TelemetryService{
		points:  points,
		samples: samples,
		models:  models,
		cache:   cache,
		alarms:  alarms,
		locks:   newKeyedMutex(),
		logger:  logger,
		now:     time.Now,
	}
}

// RecordSampleRequest 写入采样请求
type RecordSampleRequest struct {
	PointID        string            `json:"data_point_id"`
	Value          float64           `json:"value"`
	CollectionTime *time.Time        `json:"collection_time,omitempty"` // 为空时取当前时间
	Source         domain.DataSource `json:"source,omitempty"`          // 默认 AUTO
	InputByID      *string           `json:"input_by_id,omitempty"`
	InputByName    *string           `json:"input_by_name,omitempty"`
	Remark         string            `json:"remark,omitempty"`
}

// IngestResult 写入结果
// AlarmErr 非空表示报警判断失败，采样本身已入库
type IngestResult struct {
	Sample          *domain.Sample        `json:"sample"`
	TriggeredAlarms []*domain.AlarmRecord `json:"triggered_alarms"`
	AlarmErr        error                 `json:"-"`
}

// RecordSample 写入一条采样
// 同一数据点串行：读点位 -> 追加采样 -> 更新当前值 -> 报警判断
func (s *TelemetryService) RecordSample(ctx context.Context, req RecordSampleRequest) (*IngestResult, error) {
	start := time.Now()
	if req.Source == "" {
		req.Source = domain.SourceAuto
	}
	if !req.Source.Valid() {
		return nil, fmt.Errorf("invalid source %q: %w", req.Source, domain.ErrInvalidArgument)
	}
	if math.IsNaN(req.Value) || math.IsInf(req.Value, 0) {
		return nil, fmt.Errorf("value must be a finite number: %w", domain.ErrInvalidArgument)
	}

	unlock := s.locks.Lock(req.PointID)
	defer unlock()

	point, err := s.points.GetDataPoint(ctx, req.PointID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data point: %w", err)
	}

	at := s.now()
	if req.CollectionTime != nil {
		at = *req.CollectionTime
	}

	// 人工录入和公式结果视为已换算
	value := req.Value
	if req.Source == domain.SourceAuto && point.Multiplier != 0 {
		value = req.Value * point.Multiplier
	}

	sample := &domain.Sample{
		DataPointID:    point.ID,
		CollectionTime: at,
		Value:          value,
		RawValue:       req.Value,
		Quality:        domain.QualityGood,
		Source:         req.Source,
		InputByID:      req.InputByID,
		InputByName:    req.InputByName,
		Remark:         req.Remark,
	}
	if err := s.samples.AppendSample(ctx, sample); err != nil {
		return nil, fmt.Errorf("failed to append sample: %w", err)
	}

	// 最后写入者胜出，不比较采集时间
	if err := s.points.UpdateCurrentValue(ctx, point.ID, value, at); err != nil {
		return nil, fmt.Errorf("failed to update current value: %w", err)
	}
	s.refreshCache(ctx, point.ID, value, at)
	metrics.SamplesIngested.WithLabelValues(string(req.Source)).Inc()

	result := &IngestResult{Sample: sample, TriggeredAlarms: []*domain.AlarmRecord{}}
	if s.alarms != nil {
		records, err := s.alarms.Evaluate(ctx, point.ID, value)
		if err != nil {
			metrics.AlarmEvaluationErrors.Inc()
			s.logger.Error("Alarm evaluation failed",
				zap.String("point_id", point.ID),
				zap.Float64("value", value),
				zap.Error(err),
			)
			result.AlarmErr = err
		}
		if records != nil {
			result.TriggeredAlarms = records
		}
	}

	metrics.IngestLatency.Observe(time.Since(start).Seconds())
	return result, nil
}

// RecordSampleByCode 按 point_code 写入（MQTT 采集使用）
func (s *TelemetryService) RecordSampleByCode(ctx context.Context, pointCode string, req RecordSampleRequest) (*IngestResult, error) {
	point, err := s.points.GetDataPointByCode(ctx, pointCode)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data point: %w", err)
	}
	req.PointID = point.ID
	return s.RecordSample(ctx, req)
}

func (s *TelemetryService) refreshCache(ctx context.Context, pointID string, value float64, at time.Time) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, pointID, store.RealtimeValue{Value: value, CollectionTime: at}); err != nil {
		s.logger.Warn("Failed to refresh realtime cache", zap.String("point_id", pointID), zap.Error(err))
	}
}

// CurrentValue 数据点当前值
type CurrentValue struct {
	DataPointID    string    `json:"data_point_id"`
	Value          float64   `json:"value"`
	CollectionTime time.Time `json:"collection_time"`
}

// CurrentValue 读取当前值：先读缓存，再读点位记录，不查历史
// 缓存只由 RecordSample 在点位锁内写入，读路径不回填
// 尚无采样返回 IncompleteInput
func (s *TelemetryService) CurrentValue(ctx context.Context, pointID string) (*CurrentValue, error) {
	if s.cache != nil {
		v, err := s.cache.Get(ctx, pointID)
		if err == nil {
			return &CurrentValue{DataPointID: pointID, Value: v.Value, CollectionTime: v.CollectionTime}, nil
		}
		if !errors.Is(err, store.ErrMiss) {
			s.logger.Debug("Realtime cache read failed", zap.String("point_id", pointID), zap.Error(err))
		}
	}

	point, err := s.points.GetDataPoint(ctx, pointID)
	if err != nil {
		return nil, err
	}
	if point.CurrentValue == nil {
		return nil, fmt.Errorf("data point %s has no current value: %w", point.PointCode, domain.ErrIncompleteInput)
	}
	cv := &CurrentValue{DataPointID: point.ID, Value: *point.CurrentValue}
	if point.LastCollectionTime != nil {
		cv.CollectionTime = *point.LastCollectionTime
	}
	return cv, nil
}

// History 时间范围内的采样（闭区间，升序）
func (s *TelemetryService) History(ctx context.Context, pointID string, from, to time.Time) ([]*domain.Sample, error) {
	if from.After(to) {
		return nil, fmt.Errorf("start time after end time: %w", domain.ErrInvalidArgument)
	}
	return s.samples.ListSamples(ctx, pointID, from, to)
}

// LatestSample 最新一条采样（按采集时间）
func (s *TelemetryService) LatestSample(ctx context.Context, pointID string) (*domain.Sample, error) {
	return s.samples.LatestSample(ctx, pointID)
}

// Realtime 全部启用数据点的实时值
func (s *TelemetryService) Realtime(ctx context.Context) ([]*domain.DataPoint, error) {
	return s.points.ListDataPoints(ctx, repository.DataPointFilter{EnabledOnly: true})
}

// RealtimeByPoint 单个数据点实时值
func (s *TelemetryService) RealtimeByPoint(ctx context.Context, pointID string) (*domain.DataPoint, error) {
	return s.points.GetDataPoint(ctx, pointID)
}

// RealtimeByAnalysisModel 分析模型成员点的实时值（按成员排序）
func (s *TelemetryService) RealtimeByAnalysisModel(ctx context.Context, modelID string) ([]*domain.DataPoint, error) {
	if _, err := s.models.GetAnalysisModel(ctx, modelID); err != nil {
		return nil, err
	}
	members, err := s.models.ListModelPoints(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list model points: %w", err)
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.DataPointID)
	}
	if len(ids) == 0 {
		return []*domain.DataPoint{}, nil
	}
	points, err := s.points.ListDataPoints(ctx, repository.DataPointFilter{IDs: ids})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.DataPoint, len(points))
	for _, p := range points {
		byID[p.ID] = p
	}
	out := make([]*domain.DataPoint, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}
