package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"

	"go.uber.org/zap"
)

// MeterService 表计台账服务
type MeterService struct {
	meters repository.MetersRepository
	nodes  repository.SpaceNodesRepository
	points repository.DataPointsRepository
	logger *zap.Logger
}

// NewMeterService 创建表计服务
func NewMeterService(
	meters repository.MetersRepository,
	nodes repository.SpaceNodesRepository,
	points repository.DataPointsRepository,
	logger *zap.Logger,
) *MeterService {
	return &MeterService{meters: meters, nodes: nodes, points: points, logger: logger}
}

// MeterAttributeRequest 静态属性
type MeterAttributeRequest struct {
	AttributeName  string                    `json:"attribute_name"`
	AttributeCode  string                    `json:"attribute_code"`
	AttributeValue string                    `json:"attribute_value"`
	ValueType      domain.AttributeValueType `json:"value_type"` // 默认 STRING
	Unit           string                    `json:"unit"`
	SortOrder      int                       `json:"sort_order"`
	Remark         string                    `json:"remark"`
}

// MeterMeasurementRequest 检测属性
type MeterMeasurementRequest struct {
	MeasurementName string                 `json:"measurement_name"`
	MeasurementCode string                 `json:"measurement_code"`
	MeasurementType domain.MeasurementType `json:"measurement_type"` // 默认 ANALOG
	Unit            string                 `json:"unit"`
	Precision       *int                   `json:"precision"` // 默认 2
	MinValue        *float64               `json:"min_value"`
	MaxValue        *float64               `json:"max_value"`
	DataPointID     *string                `json:"data_point_id"`
	SortOrder       int                    `json:"sort_order"`
	Enabled         *bool                  `json:"enabled"` // 默认 true
	Remark          string                 `json:"remark"`
}

// MeterRequest 创建/更新表计请求，静态属性和检测属性整体替换
type MeterRequest struct {
	MeterCode        string                    `json:"meter_code"`
	MeterName        string                    `json:"meter_name"`
	MeterType        domain.MeterType          `json:"meter_type"` // 默认 OTHER
	MeterFunction    string                    `json:"meter_function"`
	MeterModel       string                    `json:"meter_model"`
	MeterUnit        string                    `json:"meter_unit"`
	Multiplier       *float64                  `json:"multiplier"` // 默认 1
	InstallLocation  string                    `json:"install_location"`
	InstallDate      string                    `json:"install_date"` // YYYY-MM-DD
	SpaceNodeID      *string                   `json:"space_node_id"`
	DeviceID         *string                   `json:"device_id"`
	Protocol         string                    `json:"protocol"`
	CommAddress      string                    `json:"comm_address"`
	Enabled          *bool                     `json:"enabled"` // 默认 true
	Remark           string                    `json:"remark"`
	StaticAttributes []MeterAttributeRequest   `json:"static_attributes"`
	Measurements     []MeterMeasurementRequest `json:"measurements"`
}

func (s *MeterService) build(ctx context.Context, m *domain.Meter, req MeterRequest) ([]*domain.MeterAttribute, []*domain.MeterMeasurement, error) {
	m.MeterCode = strings.TrimSpace(req.MeterCode)
	m.MeterName = strings.TrimSpace(req.MeterName)
	if m.MeterCode == "" || m.MeterName == "" {
		return nil, nil, fmt.Errorf("meter_code and meter_name are required: %w", domain.ErrInvalidArgument)
	}
	m.MeterType = req.MeterType
	if m.MeterType == "" {
		m.MeterType = domain.MeterOther
	}
	if !m.MeterType.Valid() {
		return nil, nil, fmt.Errorf("invalid meter_type %q: %w", m.MeterType, domain.ErrInvalidArgument)
	}
	m.Multiplier = 1
	if req.Multiplier != nil {
		m.Multiplier = *req.Multiplier
	}
	if m.Multiplier <= 0 {
		return nil, nil, fmt.Errorf("multiplier must be positive: %w", domain.ErrInvalidArgument)
	}
	m.InstallDate = nil
	if d := strings.TrimSpace(req.InstallDate); d != "" {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid install_date %q: %w", d, domain.ErrInvalidArgument)
		}
		m.InstallDate = &t
	}
	m.SpaceNodeID = normalizeParent(req.SpaceNodeID)
	if m.SpaceNodeID != nil {
		if _, err := s.nodes.GetSpaceNode(ctx, *m.SpaceNodeID); err != nil {
			return nil, nil, fmt.Errorf("space node: %w", err)
		}
	}
	m.DeviceID = normalizeParent(req.DeviceID)
	m.MeterFunction = req.MeterFunction
	m.MeterModel = req.MeterModel
	m.MeterUnit = req.MeterUnit
	m.InstallLocation = req.InstallLocation
	m.Protocol = req.Protocol
	m.CommAddress = req.CommAddress
	m.Enabled = req.Enabled == nil || *req.Enabled
	m.Remark = req.Remark

	attrs := make([]*domain.MeterAttribute, 0, len(req.StaticAttributes))
	for i, ar := range req.StaticAttributes {
		a := &domain.MeterAttribute{
			AttributeName:  strings.TrimSpace(ar.AttributeName),
			AttributeCode:  strings.TrimSpace(ar.AttributeCode),
			AttributeValue: ar.AttributeValue,
			ValueType:      ar.ValueType,
			Unit:           ar.Unit,
			SortOrder:      ar.SortOrder,
			Remark:         ar.Remark,
		}
		if a.AttributeName == "" || a.AttributeCode == "" {
			return nil, nil, fmt.Errorf("static attribute %d: attribute_name and attribute_code are required: %w", i+1, domain.ErrInvalidArgument)
		}
		if a.ValueType == "" {
			a.ValueType = domain.AttributeString
		}
		if !a.ValueType.Valid() {
			return nil, nil, fmt.Errorf("static attribute %d: invalid value_type %q: %w", i+1, a.ValueType, domain.ErrInvalidArgument)
		}
		attrs = append(attrs, a)
	}

	items := make([]*domain.MeterMeasurement, 0, len(req.Measurements))
	for i, mr := range req.Measurements {
		it := &domain.MeterMeasurement{
			MeasurementName: strings.TrimSpace(mr.MeasurementName),
			MeasurementCode: strings.TrimSpace(mr.MeasurementCode),
			MeasurementType: mr.MeasurementType,
			Unit:            mr.Unit,
			Precision:       domain.DefaultPrecision,
			MinValue:        mr.MinValue,
			MaxValue:        mr.MaxValue,
			DataPointID:     normalizeParent(mr.DataPointID),
			SortOrder:       mr.SortOrder,
			Enabled:         mr.Enabled == nil || *mr.Enabled,
			Remark:          mr.Remark,
		}
		if mr.Precision != nil {
			it.Precision = *mr.Precision
		}
		if it.MeasurementType == "" {
			it.MeasurementType = domain.MeasurementAnalog
		}
		switch {
		case it.MeasurementName == "" || it.MeasurementCode == "":
			return nil, nil, fmt.Errorf("measurement %d: measurement_name and measurement_code are required: %w", i+1, domain.ErrInvalidArgument)
		case !it.MeasurementType.Valid():
			return nil, nil, fmt.Errorf("measurement %d: invalid measurement_type %q: %w", i+1, it.MeasurementType, domain.ErrInvalidArgument)
		case it.Precision < 0:
			return nil, nil, fmt.Errorf("measurement %d: precision must be non-negative: %w", i+1, domain.ErrInvalidArgument)
		case it.MinValue != nil && it.MaxValue != nil && *it.MinValue > *it.MaxValue:
			return nil, nil, fmt.Errorf("measurement %d: min_value greater than max_value: %w", i+1, domain.ErrInvalidArgument)
		}
		if it.DataPointID != nil {
			if _, err := s.points.GetDataPoint(ctx, *it.DataPointID); err != nil {
				return nil, nil, fmt.Errorf("measurement %d: %w", i+1, err)
			}
		}
		items = append(items, it)
	}
	return attrs, items, nil
}

// ListMetersRequest 查询条件
type ListMetersRequest struct {
	Keyword     string
	MeterType   domain.MeterType
	SpaceNodeID string
	DeviceID    string
	EnabledOnly bool
}

// List 查询表计（全部 / 关键字 / 类型 / 空间节点 / 设备）
func (s *MeterService) List(ctx context.Context, req ListMetersRequest) ([]*domain.Meter, error) {
	if req.MeterType != "" && !req.MeterType.Valid() {
		return nil, fmt.Errorf("invalid meter_type %q: %w", req.MeterType, domain.ErrInvalidArgument)
	}
	return s.meters.ListMeters(ctx, repository.MeterFilter{
		Keyword:     strings.TrimSpace(req.Keyword),
		MeterType:   req.MeterType,
		SpaceNodeID: req.SpaceNodeID,
		DeviceID:    req.DeviceID,
		EnabledOnly: req.EnabledOnly,
	})
}

// Get 表计详情（含静态属性和检测属性）
func (s *MeterService) Get(ctx context.Context, id string) (*domain.Meter, error) {
	m, err := s.meters.GetMeter(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.StaticAttributes, err = s.meters.ListMeterAttributes(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to list meter attributes: %w", err)
	}
	if m.Measurements, err = s.meters.ListMeterMeasurements(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to list meter measurements: %w", err)
	}
	return m, nil
}

// Create 创建表计，meter_code 重复返回 Conflict
func (s *MeterService) Create(ctx context.Context, req MeterRequest) (*domain.Meter, error) {
	m := &domain.Meter{}
	attrs, items, err := s.build(ctx, m, req)
	if err != nil {
		return nil, err
	}
	if err := s.meters.CreateMeter(ctx, m); err != nil {
		return nil, err
	}
	if err := s.saveChildren(ctx, m, attrs, items); err != nil {
		return nil, err
	}
	s.logger.Info("Meter created", zap.String("meter_id", m.ID), zap.String("meter_code", m.MeterCode))
	return m, nil
}

// Update 更新表计，属性先删后插
func (s *MeterService) Update(ctx context.Context, id string, req MeterRequest) (*domain.Meter, error) {
	m, err := s.meters.GetMeter(ctx, id)
	if err != nil {
		return nil, err
	}
	attrs, items, err := s.build(ctx, m, req)
	if err != nil {
		return nil, err
	}
	if err := s.meters.UpdateMeter(ctx, m); err != nil {
		return nil, err
	}
	if err := s.saveChildren(ctx, m, attrs, items); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MeterService) saveChildren(ctx context.Context, m *domain.Meter, attrs []*domain.MeterAttribute, items []*domain.MeterMeasurement) error {
	if err := s.meters.ReplaceMeterAttributes(ctx, m.ID, attrs); err != nil {
		return fmt.Errorf("failed to save meter attributes: %w", err)
	}
	if err := s.meters.ReplaceMeterMeasurements(ctx, m.ID, items); err != nil {
		return fmt.Errorf("failed to save meter measurements: %w", err)
	}
	m.StaticAttributes, m.Measurements = attrs, items
	return nil
}

// Delete 删除表计及其属性；仍有数据点挂在该表计下时返回 InvalidState
func (s *MeterService) Delete(ctx context.Context, id string) error {
	m, err := s.meters.GetMeter(ctx, id)
	if err != nil {
		return err
	}
	bound, err := s.points.ListDataPoints(ctx, repository.DataPointFilter{MeterID: id})
	if err != nil {
		return fmt.Errorf("failed to list meter data points: %w", err)
	}
	if len(bound) > 0 {
		return fmt.Errorf("meter %s still has %d data points: %w", m.MeterCode, len(bound), domain.ErrInvalidState)
	}
	if err := s.meters.DeleteMeter(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Meter deleted", zap.String("meter_id", id), zap.String("meter_code", m.MeterCode))
	return nil
}
