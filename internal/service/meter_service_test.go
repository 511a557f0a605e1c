package service

import (
	"context"
	"testing"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type meterFixture struct {
	meters *MeterService
	points *DataPointService
	nodes  *SpaceNodeService
}

func newMeterFixture() *meterFixture {
	logger := zap.NewNop()
	nodeRepo := repository.NewMemorySpaceNodesRepo()
	meterRepo := repository.NewMemoryMetersRepo()
	pointRepo := repository.NewMemoryDataPointsRepo()
	return &meterFixture{
		meters: NewMeterService(meterRepo, nodeRepo, pointRepo, logger),
		points: NewDataPointService(pointRepo, meterRepo, nil, logger),
		nodes:  NewSpaceNodeService(nodeRepo, logger),
	}
}

func TestMeterService_CreateWithAttributesAndDefaults(t *testing.T) {
	f := newMeterFixture()
	ctx := context.Background()

	room, err := f.nodes.Create(ctx, SpaceNodeRequest{NodeCode: "R101", NodeName: "泵房", NodeType: domain.SpaceNodeRoom})
	require.NoError(t, err)
	flow, err := f.points.Create(ctx, DataPointRequest{PointCode: "FLOW-001", PointName: "瞬时流量"})
	require.NoError(t, err)

	m, err := f.meters.Create(ctx, MeterRequest{
		MeterCode:   "WM-001",
		MeterName:   "1#水表",
		MeterType:   domain.MeterWater,
		InstallDate: "2023-03-01",
		SpaceNodeID: &room.ID,
		StaticAttributes: []MeterAttributeRequest{
			{AttributeName: "口径", AttributeCode: "DN", AttributeValue: "100", ValueType: domain.AttributeNumber, SortOrder: 2},
			{AttributeName: "厂家", AttributeCode: "VENDOR", AttributeValue: "宁水", SortOrder: 1},
		},
		Measurements: []MeterMeasurementRequest{
			{MeasurementName: "瞬时流量", MeasurementCode: "FLOW", DataPointID: &flow.ID, Precision: intPtr(0)},
			{MeasurementName: "压力", MeasurementCode: "PRESS"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Multiplier)
	assert.True(t, m.Enabled)
	require.NotNil(t, m.InstallDate)
	assert.Equal(t, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), *m.InstallDate)

	got, err := f.meters.Get(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, got.StaticAttributes, 2)
	assert.Equal(t, "VENDOR", got.StaticAttributes[0].AttributeCode)
	assert.Equal(t, domain.AttributeString, got.StaticAttributes[0].ValueType)
	require.Len(t, got.Measurements, 2)
	assert.Equal(t, 0, got.Measurements[0].Precision)
	assert.Equal(t, domain.DefaultPrecision, got.Measurements[1].Precision)
	assert.Equal(t, domain.MeasurementAnalog, got.Measurements[1].MeasurementType)
	assert.True(t, got.Measurements[1].Enabled)

	other, err := f.meters.Create(ctx, MeterRequest{MeterCode: "X-001", MeterName: "杂项"})
	require.NoError(t, err)
	assert.Equal(t, domain.MeterOther, other.MeterType)
}

func TestMeterService_Validation(t *testing.T) {
	f := newMeterFixture()
	ctx := context.Background()

	_, err := f.meters.Create(ctx, MeterRequest{MeterCode: "", MeterName: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.meters.Create(ctx, MeterRequest{MeterCode: "A", MeterName: "a", MeterType: "GAS"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.meters.Create(ctx, MeterRequest{MeterCode: "A", MeterName: "a", InstallDate: "2023/03/01"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.meters.Create(ctx, MeterRequest{MeterCode: "A", MeterName: "a", Multiplier: float64Ptr(0)})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.meters.Create(ctx, MeterRequest{MeterCode: "A", MeterName: "a", SpaceNodeID: strPtr("missing")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.meters.Create(ctx, MeterRequest{MeterCode: "A", MeterName: "a", Measurements: []MeterMeasurementRequest{
		{MeasurementName: "流量", MeasurementCode: "FLOW", DataPointID: strPtr("missing")},
	}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.meters.Create(ctx, MeterRequest{MeterCode: "A", MeterName: "a", StaticAttributes: []MeterAttributeRequest{
		{AttributeName: "口径", AttributeCode: "DN", ValueType: "JSON"},
	}})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.meters.Create(ctx, MeterRequest{MeterCode: "A", MeterName: "a"})
	require.NoError(t, err)
	_, err = f.meters.Create(ctx, MeterRequest{MeterCode: "A", MeterName: "dup"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.meters.List(ctx, ListMetersRequest{MeterType: "GAS"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestMeterService_ListFilters(t *testing.T) {
	f := newMeterFixture()
	ctx := context.Background()
	room, err := f.nodes.Create(ctx, SpaceNodeRequest{NodeCode: "R101", NodeName: "配电室"})
	require.NoError(t, err)

	_, err = f.meters.Create(ctx, MeterRequest{MeterCode: "EM-001", MeterName: "总电表", MeterType: domain.MeterElectric, MeterModel: "DTSD1352", SpaceNodeID: &room.ID})
	require.NoError(t, err)
	_, err = f.meters.Create(ctx, MeterRequest{MeterCode: "EM-002", MeterName: "照明电表", MeterType: domain.MeterElectric, DeviceID: strPtr("dev-9"), Enabled: boolPtr(false)})
	require.NoError(t, err)
	_, err = f.meters.Create(ctx, MeterRequest{MeterCode: "WM-001", MeterName: "水表", MeterType: domain.MeterWater})
	require.NoError(t, err)

	codes := func(req ListMetersRequest) []string {
		list, err := f.meters.List(ctx, req)
		require.NoError(t, err)
		out := make([]string, 0, len(list))
		for _, m := range list {
			out = append(out, m.MeterCode)
		}
		return out
	}
	assert.Equal(t, []string{"EM-001", "EM-002", "WM-001"}, codes(ListMetersRequest{}))
	assert.Equal(t, []string{"EM-001", "EM-002"}, codes(ListMetersRequest{MeterType: domain.MeterElectric}))
	assert.Equal(t, []string{"EM-001"}, codes(ListMetersRequest{SpaceNodeID: room.ID}))
	assert.Equal(t, []string{"EM-002"}, codes(ListMetersRequest{DeviceID: "dev-9"}))
	assert.Equal(t, []string{"EM-001"}, codes(ListMetersRequest{Keyword: "dtsd"}))
	assert.Equal(t, []string{"EM-001", "WM-001"}, codes(ListMetersRequest{EnabledOnly: true}))
}

func TestMeterService_UpdateReplacesChildren(t *testing.T) {
	f := newMeterFixture()
	ctx := context.Background()

	m, err := f.meters.Create(ctx, MeterRequest{MeterCode: "EM-001", MeterName: "总电表", Measurements: []MeterMeasurementRequest{
		{MeasurementName: "电压", MeasurementCode: "U"},
		{MeasurementName: "电流", MeasurementCode: "I"},
	}})
	require.NoError(t, err)

	_, err = f.meters.Update(ctx, m.ID, MeterRequest{MeterCode: "EM-001", MeterName: "总电表", Multiplier: float64Ptr(80), Measurements: []MeterMeasurementRequest{
		{MeasurementName: "有功功率", MeasurementCode: "P"},
	}})
	require.NoError(t, err)

	got, err := f.meters.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 80.0, got.Multiplier)
	require.Len(t, got.Measurements, 1)
	assert.Equal(t, "P", got.Measurements[0].MeasurementCode)

	_, err = f.meters.Update(ctx, "missing", MeterRequest{MeterCode: "X", MeterName: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMeterService_DeleteGuardedByDataPoints(t *testing.T) {
	f := newMeterFixture()
	ctx := context.Background()

	m, err := f.meters.Create(ctx, MeterRequest{MeterCode: "EM-001", MeterName: "总电表"})
	require.NoError(t, err)
	p, err := f.points.Create(ctx, DataPointRequest{PointCode: "EM-001-P", PointName: "有功功率", MeterID: &m.ID})
	require.NoError(t, err)

	_, err = f.points.Create(ctx, DataPointRequest{PointCode: "ORPHAN", PointName: "x", MeterID: strPtr("missing")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	bound, err := f.points.List(ctx, ListDataPointsRequest{MeterID: m.ID})
	require.NoError(t, err)
	require.Len(t, bound, 1)

	assert.ErrorIs(t, f.meters.Delete(ctx, m.ID), domain.ErrInvalidState)

	_, err = f.points.Update(ctx, p.ID, DataPointRequest{PointCode: "EM-001-P", PointName: "有功功率"})
	require.NoError(t, err)
	require.NoError(t, f.meters.Delete(ctx, m.ID))

	_, err = f.meters.Get(ctx, m.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.meters.Delete(ctx, m.ID), domain.ErrNotFound)
}
