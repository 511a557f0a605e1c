package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const monitoringPrefix = "/api/remote-monitoring"

// Router 使用标准库 http.ServeMux
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler 支持 http.Handler 接口
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// handleTree 同时注册集合路径和子路径
func (r *Router) handleTree(path string, h http.Handler) {
	r.HandleHandler(path, h)
	r.HandleHandler(path+"/", h)
}

func (r *Router) RegisterAlarmRoutes(h *AlarmHandler) {
	r.handleTree(monitoringPrefix+"/alarms", h)
}

func (r *Router) RegisterDataPointRoutes(h *DataPointHandler) {
	r.handleTree(monitoringPrefix+"/data-points", h)
}

func (r *Router) RegisterMonitoringRoutes(h *MonitoringHandler) {
	r.handleTree(monitoringPrefix+"/monitoring", h)
}

func (r *Router) RegisterSpaceNodeRoutes(h *SpaceNodeHandler) {
	r.handleTree(monitoringPrefix+"/space-nodes", h)
}

func (r *Router) RegisterAnalysisModelRoutes(h *AnalysisModelHandler) {
	r.handleTree(monitoringPrefix+"/analysis-models", h)
}

func (r *Router) RegisterMeterRoutes(h *MeterHandler) {
	r.handleTree(monitoringPrefix+"/meters", h)
}

func (r *Router) RegisterFormulaRoutes(h *FormulaHandler) {
	r.handleTree(monitoringPrefix+"/formulas", h)
}

func (r *Router) RegisterModuleRoutes(h *ModuleHandler) {
	r.handleTree("/api/modules", h)
}

func (r *Router) RegisterPermissionRoutes(h *PermissionHandler) {
	r.handleTree("/api/permissions", h)
}

// RegisterOpsRoutes /metrics 与健康检查
func (r *Router) RegisterOpsRoutes() {
	r.HandleHandler("/metrics", promhttp.Handler())
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, Ok("ok"))
	})
}
