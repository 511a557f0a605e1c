package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/service"

	"go.uber.org/zap"
)

const monitoringDataPrefix = monitoringPrefix + "/monitoring"

// MonitoringHandler 实时数据、历史、曲线与报表
type MonitoringHandler struct {
	telemetry *service.TelemetryService
	curves    *service.CurveService
	logger    *zap.Logger
}

func NewMonitoringHandler(telemetry *service.TelemetryService, curves *service.CurveService, logger *zap.Logger) *MonitoringHandler {
	return &MonitoringHandler{telemetry: telemetry, curves: curves, logger: logger}
}

// sampleRequest 手工录入：data_point_id 与 point_code 二选一
type sampleRequest struct {
	service.RecordSampleRequest
	PointCode string `json:"point_code,omitempty"`
}

func (h *MonitoringHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seg := pathSegments(r.URL.Path, monitoringDataPrefix)
	switch {
	case len(seg) == 1 && seg[0] == "realtime" && r.Method == http.MethodGet:
		h.Realtime(w, r)
	case len(seg) == 3 && seg[0] == "realtime" && seg[1] == "points" && r.Method == http.MethodGet:
		h.RealtimeByPoint(w, r, seg[2])
	case len(seg) == 3 && seg[0] == "realtime" && seg[1] == "models" && r.Method == http.MethodGet:
		h.RealtimeByModel(w, r, seg[2])

	case len(seg) == 3 && seg[0] == "points" && seg[2] == "current" && r.Method == http.MethodGet:
		h.CurrentValue(w, r, seg[1])
	case len(seg) == 3 && seg[0] == "points" && seg[2] == "latest" && r.Method == http.MethodGet:
		h.LatestSample(w, r, seg[1])
	case len(seg) == 3 && seg[0] == "points" && seg[2] == "history" && r.Method == http.MethodGet:
		h.History(w, r, seg[1])
	case len(seg) == 1 && seg[0] == "samples" && r.Method == http.MethodPost:
		h.RecordSample(w, r)

	case len(seg) == 1 && seg[0] == "curve" && r.Method == http.MethodPost:
		h.Curve(w, r)
	case len(seg) == 2 && seg[0] == "curve" && seg[1] == "hourly" && r.Method == http.MethodGet:
		h.HourlyCurve(w, r)
	case len(seg) == 2 && seg[0] == "curve" && seg[1] == "daily" && r.Method == http.MethodGet:
		h.DailyCurve(w, r)

	case len(seg) == 2 && seg[0] == "reports" && r.Method == http.MethodGet:
		h.Report(w, r, seg[1])
	case len(seg) == 3 && seg[0] == "reports" && seg[2] == "export" && r.Method == http.MethodGet:
		h.ExportReport(w, r, seg[1])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *MonitoringHandler) Realtime(w http.ResponseWriter, r *http.Request) {
	list, err := h.telemetry.Realtime(r.Context())
	if err != nil {
		writeError(w, h.logger, "Realtime", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *MonitoringHandler) RealtimeByPoint(w http.ResponseWriter, r *http.Request, pointID string) {
	p, err := h.telemetry.RealtimeByPoint(r.Context(), pointID)
	if err != nil {
		writeError(w, h.logger, "RealtimeByPoint", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(p))
}

func (h *MonitoringHandler) RealtimeByModel(w http.ResponseWriter, r *http.Request, modelID string) {
	list, err := h.telemetry.RealtimeByAnalysisModel(r.Context(), modelID)
	if err != nil {
		writeError(w, h.logger, "RealtimeByAnalysisModel", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *MonitoringHandler) CurrentValue(w http.ResponseWriter, r *http.Request, pointID string) {
	cv, err := h.telemetry.CurrentValue(r.Context(), pointID)
	if err != nil {
		writeError(w, h.logger, "CurrentValue", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cv))
}

func (h *MonitoringHandler) LatestSample(w http.ResponseWriter, r *http.Request, pointID string) {
	s, err := h.telemetry.LatestSample(r.Context(), pointID)
	if err != nil {
		writeError(w, h.logger, "LatestSample", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(s))
}

// History GET /monitoring/points/{id}/history?start_time=&end_time= (RFC3339)
func (h *MonitoringHandler) History(w http.ResponseWriter, r *http.Request, pointID string) {
	start, err := parseTimeQuery(r, "start_time")
	if err != nil {
		writeError(w, h.logger, "History", err)
		return
	}
	end, err := parseTimeQuery(r, "end_time")
	if err != nil {
		writeError(w, h.logger, "History", err)
		return
	}
	list, err := h.telemetry.History(r.Context(), pointID, start, end)
	if err != nil {
		writeError(w, h.logger, "History", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

// RecordSample POST /monitoring/samples，来源缺省为 MANUAL
func (h *MonitoringHandler) RecordSample(w http.ResponseWriter, r *http.Request) {
	var req sampleRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	if req.Source == "" {
		req.Source = domain.SourceManual
	}

	var (
		res *service.IngestResult
		err error
	)
	switch {
	case strings.TrimSpace(req.PointID) != "":
		res, err = h.telemetry.RecordSample(r.Context(), req.RecordSampleRequest)
	case strings.TrimSpace(req.PointCode) != "":
		res, err = h.telemetry.RecordSampleByCode(r.Context(), strings.TrimSpace(req.PointCode), req.RecordSampleRequest)
	default:
		writeBadRequest(w, "data_point_id or point_code is required")
		return
	}
	if err != nil {
		writeError(w, h.logger, "RecordSample", err)
		return
	}
	if res.AlarmErr != nil {
		h.logger.Warn("Alarm evaluation failed after sample stored",
			zap.String("point_id", res.Sample.DataPointID),
			zap.Error(res.AlarmErr),
		)
	}
	writeJSON(w, http.StatusOK, Ok(res))
}

// Curve POST /monitoring/curve
func (h *MonitoringHandler) Curve(w http.ResponseWriter, r *http.Request) {
	var req service.CurveRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	series, err := h.curves.Curve(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "Curve", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(series))
}

// HourlyCurve GET /monitoring/curve/hourly?point_ids=&date=，date 缺省为今天
func (h *MonitoringHandler) HourlyCurve(w http.ResponseWriter, r *http.Request) {
	today := time.Now()
	date, err := parseDateQuery(r, "date", &today)
	if err != nil {
		writeError(w, h.logger, "HourlyCurve", err)
		return
	}
	series, err := h.curves.HourlyCurve(r.Context(), splitIDs(r.URL.Query().Get("point_ids")), date)
	if err != nil {
		writeError(w, h.logger, "HourlyCurve", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(series))
}

// DailyCurve GET /monitoring/curve/daily?point_ids=&start_date=&end_date=
func (h *MonitoringHandler) DailyCurve(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseDateRange(r)
	if err != nil {
		writeError(w, h.logger, "DailyCurve", err)
		return
	}
	series, err := h.curves.DailyCurve(r.Context(), splitIDs(r.URL.Query().Get("point_ids")), start, end)
	if err != nil {
		writeError(w, h.logger, "DailyCurve", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(series))
}

func (h *MonitoringHandler) buildReport(r *http.Request, kind string) (*service.Report, error) {
	start, end, err := parseDateRange(r)
	if err != nil {
		return nil, err
	}
	return h.curves.BuildReport(r.Context(), service.ReportKind(strings.ToLower(kind)), splitIDs(r.URL.Query().Get("point_ids")), start, end)
}

// Report GET /monitoring/reports/{daily|weekly|monthly}?point_ids=&start_date=&end_date=
func (h *MonitoringHandler) Report(w http.ResponseWriter, r *http.Request, kind string) {
	rep, err := h.buildReport(r, kind)
	if err != nil {
		writeError(w, h.logger, "Report", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rep))
}

// ExportReport GET /monitoring/reports/{kind}/export，返回 xlsx
func (h *MonitoringHandler) ExportReport(w http.ResponseWriter, r *http.Request, kind string) {
	rep, err := h.buildReport(r, kind)
	if err != nil {
		writeError(w, h.logger, "ExportReport", err)
		return
	}
	data, err := h.curves.ExportReport(r.Context(), rep)
	if err != nil {
		writeError(w, h.logger, "ExportReport", err)
		return
	}
	filename := fmt.Sprintf("%s_report_%s.xlsx", rep.Kind, rep.StartDate.Format("20060102"))
	writeXLSX(w, filename, data)
}

// parseDateRange start_date 必填，end_date 缺省等于 start_date
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	start, err := parseDateQuery(r, "start_date", nil)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDateQuery(r, "end_date", &start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
