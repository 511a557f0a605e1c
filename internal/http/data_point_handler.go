package httpapi

import (
	"net/http"
	"strings"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/service"

	"go.uber.org/zap"
)

const dataPointsPrefix = monitoringPrefix + "/data-points"

// DataPointHandler 数据点管理
type DataPointHandler struct {
	points *service.DataPointService
	logger *zap.Logger
}

func NewDataPointHandler(points *service.DataPointService, logger *zap.Logger) *DataPointHandler {
	return &DataPointHandler{points: points, logger: logger}
}

func (h *DataPointHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seg := pathSegments(r.URL.Path, dataPointsPrefix)
	switch {
	case len(seg) == 0 && r.Method == http.MethodGet:
		h.List(w, r)
	case len(seg) == 0 && r.Method == http.MethodPost:
		h.Create(w, r)
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

// List GET /data-points?ids=a,b 或 keyword/point_type/meter_id/collection_mode/enabled_only
func (h *DataPointHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		list []*domain.DataPoint
		err  error
	)
	if q.Has("ids") {
		list, err = h.points.ListByIDs(ctx, splitIDs(q.Get("ids")))
	} else {
		list, err = h.points.List(ctx, service.ListDataPointsRequest{
			Keyword:        q.Get("keyword"),
			PointType:      domain.PointType(strings.ToUpper(q.Get("point_type"))),
			MeterID:        q.Get("meter_id"),
			CollectionMode: domain.CollectionMode(strings.ToUpper(q.Get("collection_mode"))),
			EnabledOnly:    parseBool(q.Get("enabled_only")),
		})
	}
	if err != nil {
		writeError(w, h.logger, "ListDataPoints", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *DataPointHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.points.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "GetDataPoint", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(p))
}

func (h *DataPointHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.DataPointRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	p, err := h.points.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "CreateDataPoint", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(p))
}

func (h *DataPointHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	var req service.DataPointRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	p, err := h.points.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, "UpdateDataPoint", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(p))
}

func (h *DataPointHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.points.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, "DeleteDataPoint", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": id}))
}
