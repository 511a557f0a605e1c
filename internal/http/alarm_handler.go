package httpapi

import (
	"net/http"
	"strings"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/service"

	"go.uber.org/zap"
)

const alarmsPrefix = monitoringPrefix + "/alarms"

// AlarmHandler 报警配置与报警记录
type AlarmHandler struct {
	alarms *service.AlarmService
	logger *zap.Logger
}

func NewAlarmHandler(alarms *service.AlarmService, logger *zap.Logger) *AlarmHandler {
	return &AlarmHandler{alarms: alarms, logger: logger}
}

// triggerRequest 手动触发报警
type triggerRequest struct {
	AlarmConfigID string  `json:"alarm_config_id"`
	Value         float64 `json:"value"`
	Message       string  `json:"message"`
}

func (h *AlarmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seg := pathSegments(r.URL.Path, alarmsPrefix)
	switch {
	// 配置
	case len(seg) == 1 && seg[0] == "configs" && r.Method == http.MethodGet:
		h.ListConfigs(w, r)
	case len(seg) == 1 && seg[0] == "configs" && r.Method == http.MethodPost:
		h.CreateConfig(w, r)
	case len(seg) == 2 && seg[0] == "configs" && r.Method == http.MethodGet:
		h.GetConfig(w, r, seg[1])
	case len(seg) == 2 && seg[0] == "configs" && r.Method == http.MethodPut:
		h.UpdateConfig(w, r, seg[1])
	case len(seg) == 2 && seg[0] == "configs" && r.Method == http.MethodDelete:
		h.DeleteConfig(w, r, seg[1])

	// 记录
	case len(seg) == 1 && seg[0] == "records" && r.Method == http.MethodGet:
		h.ListRecords(w, r)
	case len(seg) == 2 && seg[0] == "records" && seg[1] == "active" && r.Method == http.MethodGet:
		h.ActiveRecords(w, r)
	case len(seg) == 2 && seg[0] == "records" && r.Method == http.MethodGet:
		h.GetRecord(w, r, seg[1])
	case len(seg) == 3 && seg[0] == "records" && seg[2] == "acknowledge" && r.Method == http.MethodPost:
		h.Acknowledge(w, r, seg[1])
	case len(seg) == 3 && seg[0] == "records" && seg[2] == "recover" && r.Method == http.MethodPost:
		h.Recover(w, r, seg[1])
	case len(seg) == 1 && seg[0] == "trigger" && r.Method == http.MethodPost:
		h.Trigger(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListConfigs GET /alarms/configs?keyword=&data_point_id=
func (h *AlarmHandler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		list []*domain.AlarmConfig
		err  error
	)
	switch {
	case q.Get("data_point_id") != "":
		list, err = h.alarms.ConfigsByDataPoint(ctx, q.Get("data_point_id"))
	case strings.TrimSpace(q.Get("keyword")) != "":
		list, err = h.alarms.SearchConfigs(ctx, q.Get("keyword"))
	default:
		list, err = h.alarms.ListConfigs(ctx)
	}
	if err != nil {
		writeError(w, h.logger, "ListAlarmConfigs", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *AlarmHandler) GetConfig(w http.ResponseWriter, r *http.Request, id string) {
	cfg, err := h.alarms.GetConfig(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "GetAlarmConfig", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cfg))
}

func (h *AlarmHandler) CreateConfig(w http.ResponseWriter, r *http.Request) {
	var req service.AlarmConfigRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	cfg, err := h.alarms.CreateConfig(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "CreateAlarmConfig", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cfg))
}

func (h *AlarmHandler) UpdateConfig(w http.ResponseWriter, r *http.Request, id string) {
	var req service.AlarmConfigRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	cfg, err := h.alarms.UpdateConfig(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, "UpdateAlarmConfig", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cfg))
}

func (h *AlarmHandler) DeleteConfig(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.alarms.DeleteConfig(r.Context(), id); err != nil {
		writeError(w, h.logger, "DeleteAlarmConfig", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": id}))
}

// ListRecords GET /alarms/records?status=|data_point_id=|start_time=&end_time=
// 无条件时返回 ACTIVE 记录
func (h *AlarmHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		list []*domain.AlarmRecord
		err  error
	)
	switch {
	case q.Get("status") != "":
		list, err = h.alarms.RecordsByStatus(ctx, domain.AlarmStatus(strings.ToUpper(q.Get("status"))))
	case q.Get("data_point_id") != "":
		list, err = h.alarms.RecordsByDataPoint(ctx, q.Get("data_point_id"))
	case q.Get("start_time") != "" || q.Get("end_time") != "":
		start, perr := parseTimeQuery(r, "start_time")
		if perr != nil {
			writeError(w, h.logger, "ListAlarmRecords", perr)
			return
		}
		end, perr := parseTimeQuery(r, "end_time")
		if perr != nil {
			writeError(w, h.logger, "ListAlarmRecords", perr)
			return
		}
		list, err = h.alarms.RecordsByTimeRange(ctx, start, end)
	default:
		list, err = h.alarms.ActiveRecords(ctx)
	}
	if err != nil {
		writeError(w, h.logger, "ListAlarmRecords", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *AlarmHandler) ActiveRecords(w http.ResponseWriter, r *http.Request) {
	list, err := h.alarms.ActiveRecords(r.Context())
	if err != nil {
		writeError(w, h.logger, "ActiveAlarmRecords", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *AlarmHandler) GetRecord(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.alarms.GetRecord(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "GetAlarmRecord", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// Acknowledge POST /alarms/records/{id}/acknowledge
func (h *AlarmHandler) Acknowledge(w http.ResponseWriter, r *http.Request, id string) {
	var req service.AcknowledgeRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	rec, err := h.alarms.Acknowledge(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, "AcknowledgeAlarm", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// Recover POST /alarms/records/{id}/recover
func (h *AlarmHandler) Recover(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.alarms.Recover(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "RecoverAlarm", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(rec))
}

// Trigger POST /alarms/trigger
func (h *AlarmHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req triggerRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	if strings.TrimSpace(req.AlarmConfigID) == "" {
		writeBadRequest(w, "alarm_config_id is required")
		return
	}
	rec, err := h.alarms.TriggerAlarm(r.Context(), req.AlarmConfigID, req.Value, req.Message)
	if err != nil {
		writeError(w, h.logger, "TriggerAlarm", err)
		return
	}
	h.logger.Info("Alarm triggered manually",
		zap.String("alarm_config_id", req.AlarmConfigID),
		zap.String("alarm_record_id", rec.ID),
		zap.Float64("value", req.Value),
	)
	writeJSON(w, http.StatusOK, Ok(rec))
}
