package service

import (
	"context"
	"testing"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// monitorFixture 内存仓库 + 全部监控服务
type monitorFixture struct {
	points  *repository.MemoryDataPointsRepo
	samples *repository.MemorySamplesRepo
	stats   *repository.MemoryStatisticsRepo
	models  *repository.MemoryAnalysisModelsRepo
	configs *repository.MemoryAlarmConfigsRepo
	records *repository.MemoryAlarmRecordsRepo

	alarms    *AlarmService
	telemetry *TelemetryService
	formulas  *FormulaService
	curves    *CurveService
}

func newMonitorFixture(t *testing.T, notifier AlarmDispatcher) *monitorFixture {
	t.Helper()
	logger := zap.NewNop()
	f := &monitorFixture{
		points:  repository.NewMemoryDataPointsRepo(),
		samples: repository.NewMemorySamplesRepo(),
		stats:   repository.NewMemoryStatisticsRepo(),
		models:  repository.NewMemoryAnalysisModelsRepo(),
		configs: repository.NewMemoryAlarmConfigsRepo(),
		records: repository.NewMemoryAlarmRecordsRepo(),
	}
	f.alarms = NewAlarmService(f.configs, f.records, f.points, notifier, logger)
	f.telemetry = NewTelemetryService(f.points, f.samples, f.models, nil, f.alarms, logger)
	f.formulas = NewFormulaService(repository.NewMemoryFormulasRepo(), f.points, f.telemetry, logger)
	f.curves = NewCurveService(f.points, f.samples, f.stats, f.models, logger)
	return f
}

func (f *monitorFixture) addPoint(t *testing.T, code string, mutate ...func(p *domain.DataPoint)) *domain.DataPoint {
	t.Helper()
	p := &domain.DataPoint{PointCode: code, PointName: code, Enabled: true}
	p.ApplyDefaults()
	for _, m := range mutate {
		m(p)
	}
	require.NoError(t, f.points.CreateDataPoint(context.Background(), p))
	return p
}

func (f *monitorFixture) addAlarm(t *testing.T, req AlarmConfigRequest) *domain.AlarmConfig {
	t.Helper()
	cfg, err := f.alarms.CreateConfig(context.Background(), req)
	require.NoError(t, err)
	return cfg
}

func (f *monitorFixture) record(t *testing.T, pointID string, value float64) *IngestResult {
	t.Helper()
	res, err := f.telemetry.RecordSample(context.Background(), RecordSampleRequest{PointID: pointID, Value: value})
	require.NoError(t, err)
	return res
}

func float64Ptr(v float64) *float64 { return &v }

func boolPtr(v bool) *bool { return &v }

func intPtr(v int) *int { return &v }
