package service

import (
	"context"
	"sync"
	"testing"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []*domain.AlarmRecord
}

func (d *recordingDispatcher) Dispatch(_ context.Context, rec *domain.AlarmRecord, _ *domain.AlarmConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, rec)
	return nil
}

func TestEvaluate_HighAlarmOpensOnce(t *testing.T) {
	f := newMonitorFixture(t, nil)
	p := f.addPoint(t, "TEMP-001")
	cfg := f.addAlarm(t, AlarmConfigRequest{AlarmCode: "A1", AlarmName: "高温", DataPointID: p.ID, UpperLimit: float64Ptr(100)})

	for _, v := range []float64{80, 120, 130, 90} {
		f.record(t, p.ID, v)
	}

	records, err := f.alarms.RecordsByDataPoint(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, cfg.ID, rec.AlarmConfigID)
	assert.Equal(t, domain.AlarmStatusActive, rec.Status)
	assert.Equal(t, 120.0, rec.AlarmValue)
	require.NotNil(t, rec.ThresholdValue)
	assert.Equal(t, 100.0, *rec.ThresholdValue)
	assert.Contains(t, rec.AlarmMessage, "120")
}

func TestEvaluate_RangeWithUpperOnly(t *testing.T) {
	f := newMonitorFixture(t, nil)
	p := f.addPoint(t, "PRESS-001")
	f.addAlarm(t, AlarmConfigRequest{
		AlarmCode: "R1", AlarmName: "压力", DataPointID: p.ID,
		AlarmType: domain.AlarmTypeRange, UpperLimit: float64Ptr(100),
	})
	ctx := context.Background()

	recs, err := f.alarms.Evaluate(ctx, p.ID, -1000)
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = f.alarms.Evaluate(ctx, p.ID, 150)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, domain.AlarmTypeRange, recs[0].AlarmType)
}

func TestEvaluate_DisabledConfigIgnored(t *testing.T) {
	f := newMonitorFixture(t, nil)
	p := f.addPoint(t, "TEMP-001")
	f.addAlarm(t, AlarmConfigRequest{
		AlarmCode: "A1", AlarmName: "高温", DataPointID: p.ID,
		UpperLimit: float64Ptr(100), Enabled: boolPtr(false),
	})

	recs, err := f.alarms.Evaluate(context.Background(), p.ID, 500)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestEvaluate_ConcurrentBreachesOpenOneRecord(t *testing.T) {
	f := newMonitorFixture(t, nil)
	p := f.addPoint(t, "TEMP-001")
	f.addAlarm(t, AlarmConfigRequest{AlarmCode: "A1", AlarmName: "高温", DataPointID: p.ID, UpperLimit: float64Ptr(100)})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.alarms.Evaluate(ctx, p.ID, 150)
		}()
	}
	wg.Wait()

	active, err := f.alarms.ActiveRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestAlarmLifecycle(t *testing.T) {
	f := newMonitorFixture(t, nil)
	p := f.addPoint(t, "TEMP-001")
	f.addAlarm(t, AlarmConfigRequest{AlarmCode: "A1", AlarmName: "高温", DataPointID: p.ID, UpperLimit: float64Ptr(100)})
	ctx := context.Background()

	rec := f.record(t, p.ID, 120).TriggeredAlarms[0]

	acked, err := f.alarms.Acknowledge(ctx, rec.ID, AcknowledgeRequest{AcknowledgedByID: "u1", AcknowledgedByName: "张三", HandleRemark: "现场检查"})
	require.NoError(t, err)
	assert.Equal(t, domain.AlarmStatusAcknowledged, acked.Status)
	require.NotNil(t, acked.AcknowledgedTime)
	require.NotNil(t, acked.AcknowledgedByName)
	assert.Equal(t, "张三", *acked.AcknowledgedByName)

	_, err = f.alarms.Acknowledge(ctx, rec.ID, AcknowledgeRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// 已确认的记录不再是 ACTIVE，新的越限会再开一条
	again := f.record(t, p.ID, 130)
	require.Len(t, again.TriggeredAlarms, 1)

	recovered, err := f.alarms.Recover(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlarmStatusRecovered, recovered.Status)
	require.NotNil(t, recovered.RecoveryTime)
	firstRecovery := *recovered.RecoveryTime

	// 重复恢复不改变记录
	same, err := f.alarms.Recover(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, firstRecovery, *same.RecoveryTime)

	_, err = f.alarms.Acknowledge(ctx, rec.ID, AcknowledgeRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.alarms.Recover(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTriggerAlarm_ConflictWhenActive(t *testing.T) {
	f := newMonitorFixture(t, nil)
	p := f.addPoint(t, "TEMP-001")
	cfg := f.addAlarm(t, AlarmConfigRequest{AlarmCode: "A1", AlarmName: "高温", DataPointID: p.ID, UpperLimit: float64Ptr(100)})
	ctx := context.Background()

	rec, err := f.alarms.TriggerAlarm(ctx, cfg.ID, 50, "手动测试")
	require.NoError(t, err)
	assert.Equal(t, "手动测试", rec.AlarmMessage)
	require.NotNil(t, rec.ThresholdValue)
	assert.Equal(t, 100.0, *rec.ThresholdValue)

	_, err = f.alarms.TriggerAlarm(ctx, cfg.ID, 150, "")
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.alarms.TriggerAlarm(ctx, "missing", 1, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOpenRecord_NotifiesWhenEnabled(t *testing.T) {
	d := &recordingDispatcher{}
	f := newMonitorFixture(t, d)
	p := f.addPoint(t, "TEMP-001")
	f.addAlarm(t, AlarmConfigRequest{AlarmCode: "A1", AlarmName: "通知", DataPointID: p.ID, UpperLimit: float64Ptr(100)})
	f.addAlarm(t, AlarmConfigRequest{
		AlarmCode: "A2", AlarmName: "静默", DataPointID: p.ID,
		UpperLimit: float64Ptr(100), NotifyEnabled: boolPtr(false),
	})

	res := f.record(t, p.ID, 150)

	assert.Len(t, res.TriggeredAlarms, 2)
	require.Len(t, d.calls, 1)
}

func TestCreateConfig_Validation(t *testing.T) {
	f := newMonitorFixture(t, nil)
	p := f.addPoint(t, "TEMP-001")
	ctx := context.Background()

	tests := []struct {
		name string
		req  AlarmConfigRequest
		want error
	}{
		{"missing code", AlarmConfigRequest{AlarmName: "x", DataPointID: p.ID, UpperLimit: float64Ptr(1)}, domain.ErrInvalidArgument},
		{"high without upper", AlarmConfigRequest{AlarmCode: "c", AlarmName: "x", DataPointID: p.ID}, domain.ErrInvalidArgument},
		{"low without lower", AlarmConfigRequest{AlarmCode: "c", AlarmName: "x", DataPointID: p.ID, AlarmType: domain.AlarmTypeLow}, domain.ErrInvalidArgument},
		{"range without limits", AlarmConfigRequest{AlarmCode: "c", AlarmName: "x", DataPointID: p.ID, AlarmType: domain.AlarmTypeRange}, domain.ErrInvalidArgument},
		{"inverted limits", AlarmConfigRequest{
			AlarmCode: "c", AlarmName: "x", DataPointID: p.ID, AlarmType: domain.AlarmTypeRange,
			UpperLimit: float64Ptr(1), LowerLimit: float64Ptr(2),
		}, domain.ErrInvalidArgument},
		{"negative deadband", AlarmConfigRequest{AlarmCode: "c", AlarmName: "x", DataPointID: p.ID, UpperLimit: float64Ptr(1), Deadband: -1}, domain.ErrInvalidArgument},
		{"unknown level", AlarmConfigRequest{AlarmCode: "c", AlarmName: "x", DataPointID: p.ID, UpperLimit: float64Ptr(1), AlarmLevel: "LOUD"}, domain.ErrInvalidArgument},
		{"unknown point", AlarmConfigRequest{AlarmCode: "c", AlarmName: "x", DataPointID: "missing", UpperLimit: float64Ptr(1)}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.alarms.CreateConfig(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	cfg, err := f.alarms.CreateConfig(ctx, AlarmConfigRequest{AlarmCode: "ok", AlarmName: "x", DataPointID: p.ID, UpperLimit: float64Ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, domain.AlarmTypeHigh, cfg.AlarmType)
	assert.Equal(t, domain.AlarmLevelWarning, cfg.AlarmLevel)
	assert.True(t, cfg.Enabled)
	assert.True(t, cfg.NotifyEnabled)
}

func TestRecordsByTimeRange_InvalidRange(t *testing.T) {
	f := newMonitorFixture(t, nil)
	now := f.alarms.now()

	_, err := f.alarms.RecordsByTimeRange(context.Background(), now, now.Add(-1))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = f.alarms.RecordsByStatus(context.Background(), "OPEN")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
