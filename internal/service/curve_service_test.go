package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var curveDay = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

func hourlyStat(pointID string, hour int, avg float64) *domain.DataStatistics {
	h := hour
	return &domain.DataStatistics{
		DataPointID:      pointID,
		StatisticsPeriod: domain.PeriodHourly,
		StatisticsDate:   curveDay,
		HourOfDay:        &h,
		StartTime:        curveDay.Add(time.Duration(hour) * time.Hour),
		EndTime:          curveDay.Add(time.Duration(hour+1) * time.Hour),
		AvgValue:         avg,
		MaxValue:         avg + 1,
		MinValue:         avg - 1,
		DataCount:        60,
	}
}

func TestCurve_RawUsesSamples(t *testing.T) {
	f := newMonitorFixture(t, nil)
	p := f.addPoint(t, "TEMP-001")
	ctx := context.Background()
	for i, v := range []float64{1, 2, 3} {
		at := curveDay.Add(time.Duration(i) * time.Minute)
		_, err := f.telemetry.RecordSample(ctx, RecordSampleRequest{PointID: p.ID, Value: v, CollectionTime: &at})
		require.NoError(t, err)
	}
	f.stats.AddStatistics(hourlyStat(p.ID, 0, 99))

	series, err := f.curves.Curve(ctx, CurveRequest{
		PointIDs:  []string{p.ID, "missing"},
		StartTime: curveDay,
		EndTime:   curveDay.Add(time.Hour),
	})

	require.NoError(t, err)
	require.Len(t, series, 1)
	require.Len(t, series[0].Values, 3)
	assert.Equal(t, 1.0, series[0].Values[0].Value)
	assert.Nil(t, series[0].Values[0].Min)
}

func TestCurve_HourlyUsesStatistics(t *testing.T) {
	f := newMonitorFixture(t, nil)
	p := f.addPoint(t, "TEMP-001")
	f.stats.AddStatistics(hourlyStat(p.ID, 9, 20), hourlyStat(p.ID, 8, 10))
	f.record(t, p.ID, 1000)

	series, err := f.curves.HourlyCurve(context.Background(), []string{p.ID}, curveDay.Add(15*time.Hour))

	require.NoError(t, err)
	require.Len(t, series, 1)
	values := series[0].Values
	require.Len(t, values, 2)
	assert.Equal(t, curveDay.Add(8*time.Hour), values[0].Time)
	assert.Equal(t, 10.0, values[0].Value)
	require.NotNil(t, values[0].Max)
	assert.Equal(t, 11.0, *values[0].Max)
	assert.Equal(t, 20.0, values[1].Value)
}

func TestCurve_AnalysisModelGroup(t *testing.T) {
	f := newMonitorFixture(t, nil)
	ctx := context.Background()
	a := f.addPoint(t, "A")
	b := f.addPoint(t, "B")
	c := f.addPoint(t, "C")

	models := NewAnalysisModelService(f.models, f.points, zap.NewNop())
	model, err := models.Create(ctx, AnalysisModelRequest{
		ModelCode: "M1", ModelName: "1#机组",
		Points: []AnalysisModelPointRequest{
			{DataPointID: c.ID, CurveGroup: "temp", DisplayName: "出口温度", CurveColor: "#f00", SortOrder: 1},
			{DataPointID: a.ID, CurveGroup: "temp", SortOrder: 2},
			{DataPointID: b.ID, CurveGroup: "press", SortOrder: 3},
		},
	})
	require.NoError(t, err)

	series, err := f.curves.Curve(ctx, CurveRequest{
		AnalysisModelID: model.ID,
		CurveGroup:      "temp",
		StartTime:       curveDay,
		EndTime:         curveDay,
		Granularity:     domain.GranularityRaw,
	})

	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, c.ID, series[0].DataPointID)
	assert.Equal(t, "出口温度", series[0].PointName)
	assert.Equal(t, "#f00", series[0].CurveColor)
	assert.Equal(t, a.ID, series[1].DataPointID)
	assert.Empty(t, series[1].Values)
}

func TestCurve_InvalidRequests(t *testing.T) {
	f := newMonitorFixture(t, nil)
	ctx := context.Background()

	_, err := f.curves.Curve(ctx, CurveRequest{StartTime: curveDay, EndTime: curveDay.Add(-time.Hour)})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.curves.Curve(ctx, CurveRequest{StartTime: curveDay, EndTime: curveDay, Granularity: "MINUTE"})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.curves.Curve(ctx, CurveRequest{AnalysisModelID: "missing", StartTime: curveDay, EndTime: curveDay})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	series, err := f.curves.Curve(ctx, CurveRequest{StartTime: curveDay, EndTime: curveDay})
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestReport_DailyExport(t *testing.T) {
	f := newMonitorFixture(t, nil)
	p := f.addPoint(t, "TEMP-001", func(p *domain.DataPoint) { p.PointName = "温度"; p.Unit = "℃" })
	f.stats.AddStatistics(hourlyStat(p.ID, 1, 12.5), hourlyStat(p.ID, 0, 10))
	ctx := context.Background()

	rep, err := f.curves.BuildReport(ctx, ReportDaily, []string{p.ID}, curveDay, curveDay)
	require.NoError(t, err)
	require.Len(t, rep.Rows, 2)

	data, err := f.curves.ExportReport(ctx, rep)
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows("daily report")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, reportHeader, rows[0])
	assert.Equal(t, "TEMP-001", rows[1][0])
	assert.Equal(t, "温度", rows[1][1])
	assert.Equal(t, "0", rows[1][5])
	assert.Equal(t, "10", rows[1][6])
	assert.Equal(t, "1", rows[2][5])
}

func TestBuildReport_UnknownKind(t *testing.T) {
	f := newMonitorFixture(t, nil)

	_, err := f.curves.BuildReport(context.Background(), "yearly", nil, curveDay, curveDay)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
