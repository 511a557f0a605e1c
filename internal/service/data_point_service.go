package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/store"

	"go.uber.org/zap"
)

// DataPointService 数据点配置服务
type DataPointService struct {
	points repository.DataPointsRepository
	meters repository.MetersRepository
	cache  *store.RealtimeCache // 可为 nil
	logger *zap.Logger
}

// NewDataPointService 创建数据点配置服务
func NewDataPointService(
	points repository.DataPointsRepository,
	meters repository.MetersRepository,
	cache *store.RealtimeCache,
	logger *zap.Logger,
) *DataPointService {
	return &DataPointService{points: points, meters: meters, cache: cache, logger: logger}
}

// DataPointRequest 创建/更新数据点请求（当前值字段不可通过此接口修改）
type DataPointRequest struct {
	PointCode          string                 `json:"point_code"`
	PointName          string                 `json:"point_name"`
	PointType          domain.PointType       `json:"point_type"`
	DataType           domain.MeasurementType `json:"data_type"`
	MeterID            *string                `json:"meter_id"`
	Unit               string                 `json:"unit"`
	Multiplier         float64                `json:"multiplier"`
	CollectionMode     domain.CollectionMode  `json:"collection_mode"`
	CollectionInterval int                    `json:"collection_interval"`
	Precision          *int                   `json:"precision"` // 默认 2，0 表示取整
	MinValue           *float64               `json:"min_value"`
	MaxValue           *float64               `json:"max_value"`
	Protocol           string                 `json:"protocol"`
	CommAddress        string                 `json:"comm_address"`
	RegisterAddress    string                 `json:"register_address"`
	Enabled            *bool                  `json:"enabled"`       // 默认 true
	AlarmEnabled       *bool                  `json:"alarm_enabled"` // 默认 false
	Remark             string                 `json:"remark"`
}

func (req DataPointRequest) apply(p *domain.DataPoint) error {
	p.PointCode = strings.TrimSpace(req.PointCode)
	p.PointName = strings.TrimSpace(req.PointName)
	if p.PointCode == "" || p.PointName == "" {
		return fmt.Errorf("point_code and point_name are required: %w", domain.ErrInvalidArgument)
	}
	p.PointType = req.PointType
	p.DataType = req.DataType
	p.MeterID = normalizeParent(req.MeterID)
	p.Unit = req.Unit
	p.Multiplier = req.Multiplier
	p.CollectionMode = req.CollectionMode
	p.CollectionInterval = req.CollectionInterval
	p.Precision = domain.DefaultPrecision
	if req.Precision != nil {
		p.Precision = *req.Precision
	}
	p.MinValue = req.MinValue
	p.MaxValue = req.MaxValue
	p.Protocol = req.Protocol
	p.CommAddress = req.CommAddress
	p.RegisterAddress = req.RegisterAddress
	p.Enabled = req.Enabled == nil || *req.Enabled
	p.AlarmEnabled = req.AlarmEnabled != nil && *req.AlarmEnabled
	p.Remark = req.Remark
	p.ApplyDefaults()

	switch {
	case !p.PointType.Valid():
		return fmt.Errorf("invalid point_type %q: %w", p.PointType, domain.ErrInvalidArgument)
	case !p.DataType.Valid():
		return fmt.Errorf("invalid data_type %q: %w", p.DataType, domain.ErrInvalidArgument)
	case !p.CollectionMode.Valid():
		return fmt.Errorf("invalid collection_mode %q: %w", p.CollectionMode, domain.ErrInvalidArgument)
	case p.CollectionInterval < 0 || p.Precision < 0:
		return fmt.Errorf("collection_interval and precision must be non-negative: %w", domain.ErrInvalidArgument)
	case p.MinValue != nil && p.MaxValue != nil && *p.MinValue > *p.MaxValue:
		return fmt.Errorf("min_value greater than max_value: %w", domain.ErrInvalidArgument)
	}
	return nil
}

// ListDataPointsRequest 数据点查询条件
type ListDataPointsRequest struct {
	Keyword        string
	PointType      domain.PointType
	MeterID        string
	CollectionMode domain.CollectionMode
	EnabledOnly    bool
}

// List 查询数据点（全部 / 关键字 / 类型 / 表计 / 采集方式）
func (s *DataPointService) List(ctx context.Context, req ListDataPointsRequest) ([]*domain.DataPoint, error) {
	if req.PointType != "" && !req.PointType.Valid() {
		return nil, fmt.Errorf("invalid point_type %q: %w", req.PointType, domain.ErrInvalidArgument)
	}
	if req.CollectionMode != "" && !req.CollectionMode.Valid() {
		return nil, fmt.Errorf("invalid collection_mode %q: %w", req.CollectionMode, domain.ErrInvalidArgument)
	}
	return s.points.ListDataPoints(ctx, repository.DataPointFilter{
		Keyword:        strings.TrimSpace(req.Keyword),
		PointType:      req.PointType,
		MeterID:        req.MeterID,
		CollectionMode: req.CollectionMode,
		EnabledOnly:    req.EnabledOnly,
	})
}

// ListByIDs 批量查询
func (s *DataPointService) ListByIDs(ctx context.Context, ids []string) ([]*domain.DataPoint, error) {
	if len(ids) == 0 {
		return []*domain.DataPoint{}, nil
	}
	return s.points.ListDataPoints(ctx, repository.DataPointFilter{IDs: ids})
}

func (s *DataPointService) Get(ctx context.Context, id string) (*domain.DataPoint, error) {
	return s.points.GetDataPoint(ctx, id)
}

// checkMeter 指定了表计时表计必须存在
func (s *DataPointService) checkMeter(ctx context.Context, p *domain.DataPoint) error {
	if p.MeterID == nil {
		return nil
	}
	if _, err := s.meters.GetMeter(ctx, *p.MeterID); err != nil {
		return fmt.Errorf("meter: %w", err)
	}
	return nil
}

// Create 创建数据点，point_code 重复返回 Conflict
func (s *DataPointService) Create(ctx context.Context, req DataPointRequest) (*domain.DataPoint, error) {
	p := &domain.DataPoint{}
	if err := req.apply(p); err != nil {
		return nil, err
	}
	if err := s.checkMeter(ctx, p); err != nil {
		return nil, err
	}
	if err := s.points.CreateDataPoint(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Data point created", zap.String("point_id", p.ID), zap.String("point_code", p.PointCode))
	return p, nil
}

// Update 更新数据点配置，保留当前值
func (s *DataPointService) Update(ctx context.Context, id string, req DataPointRequest) (*domain.DataPoint, error) {
	p, err := s.points.GetDataPoint(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := req.apply(p); err != nil {
		return nil, err
	}
	if err := s.checkMeter(ctx, p); err != nil {
		return nil, err
	}
	if err := s.points.UpdateDataPoint(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *DataPointService) Delete(ctx context.Context, id string) error {
	if err := s.points.DeleteDataPoint(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.logger.Warn("Failed to invalidate realtime cache", zap.String("point_id", id), zap.Error(err))
		}
	}
	return nil
}
