package httpapi

import (
	"net/http"
	"strings"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/service"

	"go.uber.org/zap"
)

const metersPrefix = monitoringPrefix + "/meters"

// MeterHandler 表计台账
type MeterHandler struct {
	meters *service.MeterService
	logger *zap.Logger
}

func NewMeterHandler(meters *service.MeterService, logger *zap.Logger) *MeterHandler {
	return &MeterHandler{meters: meters, logger: logger}
}

func (h *MeterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seg := pathSegments(r.URL.Path, metersPrefix)
	switch {
	case len(seg) == 0 && r.Method == http.MethodGet:
		h.List(w, r, service.ListMetersRequest{})
	case len(seg) == 0 && r.Method == http.MethodPost:
		h.Create(w, r)
	case len(seg) == 2 && seg[0] == "type" && r.Method == http.MethodGet:
		h.List(w, r, service.ListMetersRequest{MeterType: domain.MeterType(strings.ToUpper(seg[1]))})
	case len(seg) == 2 && seg[0] == "space-node" && r.Method == http.MethodGet:
		h.List(w, r, service.ListMetersRequest{SpaceNodeID: seg[1]})
	case len(seg) == 2 && seg[0] == "device" && r.Method == http.MethodGet:
		h.List(w, r, service.ListMetersRequest{DeviceID: seg[1]})
	case len(seg) == 1 && r.Method == http.MethodGet:
		h.Get(w, r, seg[0])
	case len(seg) == 1 && r.Method == http.MethodPut:
		h.Update(w, r, seg[0])
	case len(seg) == 1 && r.Method == http.MethodDelete:
		h.Delete(w, r, seg[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// List GET /meters?keyword=&meter_type=&space_node_id=&device_id=&enabled_only=
// 路径上的 type / space-node / device 与查询参数合并
func (h *MeterHandler) List(w http.ResponseWriter, r *http.Request, req service.ListMetersRequest) {
	q := r.URL.Query()
	req.Keyword = q.Get("keyword")
	if req.MeterType == "" {
		req.MeterType = domain.MeterType(strings.ToUpper(q.Get("meter_type")))
	}
	if req.SpaceNodeID == "" {
		req.SpaceNodeID = q.Get("space_node_id")
	}
	if req.DeviceID == "" {
		req.DeviceID = q.Get("device_id")
	}
	req.EnabledOnly = parseBool(q.Get("enabled_only"))

	list, err := h.meters.List(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "ListMeters", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *MeterHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	m, err := h.meters.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "GetMeter", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(m))
}

func (h *MeterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.MeterRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	m, err := h.meters.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "CreateMeter", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(m))
}

func (h *MeterHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	var req service.MeterRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	m, err := h.meters.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, "UpdateMeter", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(m))
}

func (h *MeterHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.meters.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, "DeleteMeter", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": id}))
}
