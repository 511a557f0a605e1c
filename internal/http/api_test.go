package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type testAPI struct {
	router *Router
	stats  *repository.MemoryStatisticsRepo
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zap.NewNop()

	points := repository.NewMemoryDataPointsRepo()
	samples := repository.NewMemorySamplesRepo()
	stats := repository.NewMemoryStatisticsRepo()
	models := repository.NewMemoryAnalysisModelsRepo()
	modules := repository.NewMemoryModulesRepo()
	roles := repository.NewMemoryRolesRepo(&domain.Role{ID: "r-op", Name: "operator"})
	nodes := repository.NewMemorySpaceNodesRepo()
	meters := repository.NewMemoryMetersRepo()

	alarms := service.NewAlarmService(repository.NewMemoryAlarmConfigsRepo(), repository.NewMemoryAlarmRecordsRepo(), points, nil, logger)
	telemetry := service.NewTelemetryService(points, samples, models, nil, alarms, logger)
	curves := service.NewCurveService(points, samples, stats, models, logger)
	formulas := service.NewFormulaService(repository.NewMemoryFormulasRepo(), points, telemetry, logger)

	r := NewRouter(logger)
	r.RegisterAlarmRoutes(NewAlarmHandler(alarms, logger))
	r.RegisterDataPointRoutes(NewDataPointHandler(service.NewDataPointService(points, meters, nil, logger), logger))
	r.RegisterMonitoringRoutes(NewMonitoringHandler(telemetry, curves, logger))
	r.RegisterSpaceNodeRoutes(NewSpaceNodeHandler(service.NewSpaceNodeService(nodes, logger), logger))
	r.RegisterMeterRoutes(NewMeterHandler(service.NewMeterService(meters, nodes, points, logger), logger))
	r.RegisterAnalysisModelRoutes(NewAnalysisModelHandler(service.NewAnalysisModelService(models, points, logger), logger))
	r.RegisterFormulaRoutes(NewFormulaHandler(formulas, logger))
	r.RegisterModuleRoutes(NewModuleHandler(service.NewModuleService(modules, logger), logger))
	r.RegisterPermissionRoutes(NewPermissionHandler(service.NewPermissionService(modules, roles, repository.NewMemoryRolePermissionsRepo(), logger), logger))
	r.RegisterOpsRoutes()

	return &testAPI{router: r, stats: stats}
}

func (a *testAPI) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// decode 解出信封并把 result 解到 out
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) Result[json.RawMessage] {
	t.Helper()
	var res Result[json.RawMessage]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	if out != nil {
		require.NoError(t, json.Unmarshal(res.Result, out))
	}
	return res
}

func (a *testAPI) createPoint(t *testing.T, code string) *domain.DataPoint {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/remote-monitoring/data-points", map[string]any{
		"point_code": code,
		"point_name": code + " name",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p domain.DataPoint
	decode(t, w, &p)
	return &p
}

func TestDataPoints_CreateGetConflict(t *testing.T) {
	api := newTestAPI(t)
	p := api.createPoint(t, "TEMP-001")
	assert.NotEmpty(t, p.ID)

	w := api.do(t, http.MethodGet, "/api/remote-monitoring/data-points/"+p.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.DataPoint
	res := decode(t, w, &got)
	assert.Equal(t, ResultSuccess, res.Code)
	assert.Equal(t, "TEMP-001", got.PointCode)
	assert.Equal(t, domain.PointTypeReal, got.PointType)

	w = api.do(t, http.MethodPost, "/api/remote-monitoring/data-points", map[string]any{
		"point_code": "TEMP-001",
		"point_name": "dup",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, ResultConflict, decode(t, w, nil).Code)

	w = api.do(t, http.MethodGet, "/api/remote-monitoring/data-points/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ResultNotFound, decode(t, w, nil).Code)
}

func TestDataPoints_PrecisionZeroKept(t *testing.T) {
	api := newTestAPI(t)
	p := api.createPoint(t, "TEMP-001")
	assert.Equal(t, domain.DefaultPrecision, p.Precision)

	w := api.do(t, http.MethodPost, "/api/remote-monitoring/data-points", map[string]any{
		"point_code": "CNT-001",
		"point_name": "计数",
		"precision":  0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got domain.DataPoint
	decode(t, w, &got)
	assert.Equal(t, 0, got.Precision)

	w = api.do(t, http.MethodPut, "/api/remote-monitoring/data-points/"+p.ID, map[string]any{
		"point_code": "TEMP-001",
		"point_name": "温度",
		"precision":  0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &got)
	assert.Equal(t, 0, got.Precision)
}

func TestDataPoints_ListByIDs(t *testing.T) {
	api := newTestAPI(t)
	a := api.createPoint(t, "A")
	api.createPoint(t, "B")

	w := api.do(t, http.MethodGet, "/api/remote-monitoring/data-points?ids="+a.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []*domain.DataPoint
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].PointCode)

	w = api.do(t, http.MethodGet, "/api/remote-monitoring/data-points?point_type=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonitoring_ManualSampleAndCurrentValue(t *testing.T) {
	api := newTestAPI(t)
	p := api.createPoint(t, "FLOW-01")

	// 尚无采样
	w := api.do(t, http.MethodGet, "/api/remote-monitoring/monitoring/points/"+p.ID+"/current", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, ResultIncompleteInput, decode(t, w, nil).Code)

	w = api.do(t, http.MethodPost, "/api/remote-monitoring/monitoring/samples", map[string]any{
		"point_code":    "FLOW-01",
		"value":         12.5,
		"input_by_name": "张三",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res service.IngestResult
	decode(t, w, &res)
	require.NotNil(t, res.Sample)
	assert.Equal(t, domain.SourceManual, res.Sample.Source)
	assert.Equal(t, 12.5, res.Sample.Value)

	w = api.do(t, http.MethodGet, "/api/remote-monitoring/monitoring/points/"+p.ID+"/current", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cv service.CurrentValue
	decode(t, w, &cv)
	assert.Equal(t, 12.5, cv.Value)

	w = api.do(t, http.MethodPost, "/api/remote-monitoring/monitoring/samples", map[string]any{"value": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonitoring_HistoryRequiresRange(t *testing.T) {
	api := newTestAPI(t)
	p := api.createPoint(t, "P")

	w := api.do(t, http.MethodGet, "/api/remote-monitoring/monitoring/points/"+p.ID+"/history?end_time=2024-01-01T00:00:00Z", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/remote-monitoring/monitoring/points/"+p.ID+
		"/history?start_time=2024-01-01T00:00:00Z&end_time=2024-01-02T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []*domain.Sample
	decode(t, w, &list)
	assert.Empty(t, list)
}

func TestAlarms_BreachAcknowledgeRecover(t *testing.T) {
	api := newTestAPI(t)
	p := api.createPoint(t, "TEMP-001")

	w := api.do(t, http.MethodPost, "/api/remote-monitoring/alarms/configs", map[string]any{
		"alarm_code":    "ALM-1",
		"alarm_name":    "高温",
		"data_point_id": p.ID,
		"alarm_type":    "HIGH",
		"upper_limit":   100,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var cfg domain.AlarmConfig
	decode(t, w, &cfg)

	w = api.do(t, http.MethodPost, "/api/remote-monitoring/monitoring/samples", map[string]any{
		"data_point_id": p.ID,
		"value":         120,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var res service.IngestResult
	decode(t, w, &res)
	require.Len(t, res.TriggeredAlarms, 1)
	recID := res.TriggeredAlarms[0].ID

	w = api.do(t, http.MethodGet, "/api/remote-monitoring/alarms/records", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var active []*domain.AlarmRecord
	decode(t, w, &active)
	require.Len(t, active, 1)
	assert.Equal(t, recID, active[0].ID)

	// 已有 ACTIVE 记录时手动触发冲突
	w = api.do(t, http.MethodPost, "/api/remote-monitoring/alarms/trigger", map[string]any{
		"alarm_config_id": cfg.ID,
		"value":           130,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodPost, "/api/remote-monitoring/alarms/records/"+recID+"/acknowledge", map[string]any{
		"acknowledged_by_name": "李四",
		"handle_remark":        "已处理",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var rec domain.AlarmRecord
	decode(t, w, &rec)
	assert.Equal(t, domain.AlarmStatusAcknowledged, rec.Status)

	w = api.do(t, http.MethodPost, "/api/remote-monitoring/alarms/records/"+recID+"/acknowledge", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, ResultInvalidState, decode(t, w, nil).Code)

	w = api.do(t, http.MethodPost, "/api/remote-monitoring/alarms/records/"+recID+"/recover", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &rec)
	assert.Equal(t, domain.AlarmStatusRecovered, rec.Status)
	assert.NotNil(t, rec.RecoveryTime)

	w = api.do(t, http.MethodGet, "/api/remote-monitoring/alarms/records?status=recovered", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recovered []*domain.AlarmRecord
	decode(t, w, &recovered)
	assert.Len(t, recovered, 1)
}

func TestAlarms_InvalidConfigAndRange(t *testing.T) {
	api := newTestAPI(t)
	p := api.createPoint(t, "P")

	w := api.do(t, http.MethodPost, "/api/remote-monitoring/alarms/configs", map[string]any{
		"alarm_code":    "ALM-1",
		"alarm_name":    "range",
		"data_point_id": p.ID,
		"alarm_type":    "RANGE",
		"upper_limit":   10,
		"lower_limit":   20,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/remote-monitoring/alarms/records?start_time=2024-01-02T00:00:00Z&end_time=2024-01-01T00:00:00Z", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/api/remote-monitoring/alarms/trigger", map[string]any{"value": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReports_JSONAndExport(t *testing.T) {
	api := newTestAPI(t)
	p := api.createPoint(t, "E-01")

	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.Local)
	hour := 8
	api.stats.AddStatistics(&domain.DataStatistics{
		DataPointID:      p.ID,
		StatisticsPeriod: domain.PeriodHourly,
		StatisticsDate:   day,
		HourOfDay:        &hour,
		StartTime:        day.Add(8 * time.Hour),
		EndTime:          day.Add(9 * time.Hour),
		AvgValue:         20,
		MaxValue:         25,
		MinValue:         15,
		DataCount:        60,
	})

	w := api.do(t, http.MethodGet, "/api/remote-monitoring/monitoring/reports/daily?point_ids="+p.ID+"&start_date=2024-03-05", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rep service.Report
	decode(t, w, &rep)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, 20.0, rep.Rows[0].AvgValue)

	w = api.do(t, http.MethodGet, "/api/remote-monitoring/monitoring/reports/daily/export?point_ids="+p.ID+"&start_date=2024-03-05", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "daily_report_20240305.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.NotEmpty(t, f.GetSheetList())

	w = api.do(t, http.MethodGet, "/api/remote-monitoring/monitoring/reports/yearly?start_date=2024-03-05", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/remote-monitoring/monitoring/reports/daily?start_date=05/03/2024", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCurve_BadGranularity(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodPost, "/api/remote-monitoring/monitoring/curve", map[string]any{
		"data_point_ids": []string{"x"},
		"start_time":     "2024-01-01T00:00:00Z",
		"end_time":       "2024-01-02T00:00:00Z",
		"granularity":    "MINUTELY",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSpaceNodes_TreeAndDeleteWithChildren(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/remote-monitoring/space-nodes", map[string]any{
		"node_code": "HQ",
		"node_name": "总部",
		"node_type": "COMPANY",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var root domain.SpaceNode
	decode(t, w, &root)

	w = api.do(t, http.MethodPost, "/api/remote-monitoring/space-nodes", map[string]any{
		"node_code": "B1",
		"node_name": "1号楼",
		"node_type": "BUILDING",
		"parent_id": root.ID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, "/api/remote-monitoring/space-nodes/tree", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var forest []map[string]any
	decode(t, w, &forest)
	require.Len(t, forest, 1)

	w = api.do(t, http.MethodDelete, "/api/remote-monitoring/space-nodes/"+root.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFormulas_EvaluateMissing(t *testing.T) {
	api := newTestAPI(t)
	w := api.do(t, http.MethodPost, "/api/remote-monitoring/formulas/missing/evaluate", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPermissions_UnknownRoleSeesNothing(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/permissions/roles/nobody/accessible", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var forest []map[string]any
	decode(t, w, &forest)
	assert.Empty(t, forest)

	w = api.do(t, http.MethodPut, "/api/permissions/roles/nobody", map[string]any{"permissions": []any{}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/api/permissions/roles/nobody/tree", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMeters_CRUDAndFilters(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/remote-monitoring/meters", map[string]any{
		"meter_code":   "WM-001",
		"meter_name":   "1#水表",
		"meter_type":   "WATER",
		"install_date": "2023-03-01",
		"device_id":    "dev-1",
		"measurements": []map[string]any{
			{"measurement_name": "瞬时流量", "measurement_code": "FLOW"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var m domain.Meter
	decode(t, w, &m)
	assert.NotEmpty(t, m.ID)
	require.Len(t, m.Measurements, 1)

	w = api.do(t, http.MethodPost, "/api/remote-monitoring/meters", map[string]any{
		"meter_code": "WM-001",
		"meter_name": "dup",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, http.MethodPost, "/api/remote-monitoring/meters", map[string]any{
		"meter_code":    "WM-002",
		"meter_name":    "2#水表",
		"space_node_id": "missing",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	var list []*domain.Meter
	w = api.do(t, http.MethodGet, "/api/remote-monitoring/meters/type/water", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list, 1)

	w = api.do(t, http.MethodGet, "/api/remote-monitoring/meters/type/ELECTRIC", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Empty(t, list)

	w = api.do(t, http.MethodGet, "/api/remote-monitoring/meters/device/dev-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list, 1)

	w = api.do(t, http.MethodGet, "/api/remote-monitoring/meters/type/GAS", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodPost, "/api/remote-monitoring/data-points", map[string]any{
		"point_code": "FLOW-001",
		"point_name": "瞬时流量",
		"meter_id":   m.ID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, "/api/remote-monitoring/data-points", map[string]any{
		"point_code": "FLOW-002",
		"point_name": "x",
		"meter_id":   "missing",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodDelete, "/api/remote-monitoring/meters/"+m.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, ResultInvalidState, decode(t, w, nil).Code)

	w = api.do(t, http.MethodGet, "/api/remote-monitoring/meters/"+m.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.Meter
	decode(t, w, &got)
	assert.Equal(t, "FLOW", got.Measurements[0].MeasurementCode)
}

func TestModules_CreateAndGrant(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/modules", map[string]any{
		"zh_name":        "远程监控",
		"permission_key": "remote-monitoring",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var m domain.Module
	decode(t, w, &m)

	w = api.do(t, http.MethodGet, "/api/modules/by-key/remote-monitoring", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodPut, "/api/permissions/roles/r-op", map[string]any{
		"permissions": []map[string]any{{"module_id": m.ID, "can_read": true, "can_see": true}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodGet, "/api/permissions/roles/r-op/accessible", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var forest []map[string]any
	decode(t, w, &forest)
	assert.Len(t, forest, 1)
}

func TestRouter_UnknownRouteAndHealth(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPatch, "/api/remote-monitoring/data-points", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
