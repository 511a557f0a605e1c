package httpapi

import (
	"net/http"
	"strings"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/service"

	"go.uber.org/zap"
)

const (
	spaceNodesPrefix     = monitoringPrefix + "/space-nodes"
	analysisModelsPrefix = monitoringPrefix + "/analysis-models"
)

// ============================================
// 空间节点
// ============================================

type SpaceNodeHandler struct {
	nodes  *service.SpaceNodeService
	logger *zap.Logger
}

func NewSpaceNodeHandler(nodes *service.SpaceNodeService, logger *zap.Logger) *SpaceNodeHandler {
	return &SpaceNodeHandler{nodes: nodes, logger: logger}
}

func (h *SpaceNodeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seg := pathSegments(r.URL.Path, spaceNodesPrefix)
	switch {
	case len(seg) == 0 && r.Method == http.MethodGet:
		h.List(w, r)
	case len(seg) == 0 && r.Method == http.MethodPost:
		h.Create(w, r)
	case len(seg) == 1 && seg[0] == "tree" && r.Method == http.MethodGet:
		h.Tree(w, r)
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

// List GET /space-nodes?keyword=&parent_id=&root_only=&node_type=
func (h *SpaceNodeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.nodes.List(r.Context(), service.ListSpaceNodesRequest{
		Keyword:  q.Get("keyword"),
		ParentID: q.Get("parent_id"),
		RootOnly: parseBool(q.Get("root_only")),
		NodeType: domain.SpaceNodeType(strings.ToUpper(q.Get("node_type"))),
	})
	if err != nil {
		writeError(w, h.logger, "ListSpaceNodes", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

// Tree GET /space-nodes/tree?root_id=
func (h *SpaceNodeHandler) Tree(w http.ResponseWriter, r *http.Request) {
	forest, err := h.nodes.Tree(r.Context(), r.URL.Query().Get("root_id"))
	if err != nil {
		writeError(w, h.logger, "SpaceNodeTree", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(forest))
}

func (h *SpaceNodeHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	n, err := h.nodes.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "GetSpaceNode", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(n))
}

func (h *SpaceNodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.SpaceNodeRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	n, err := h.nodes.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "CreateSpaceNode", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(n))
}

func (h *SpaceNodeHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	var req service.SpaceNodeRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	n, err := h.nodes.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, "UpdateSpaceNode", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(n))
}

func (h *SpaceNodeHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.nodes.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, "DeleteSpaceNode", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": id}))
}

// ============================================
// 分析模型
// ============================================

type AnalysisModelHandler struct {
	models *service.AnalysisModelService
	logger *zap.Logger
}

func NewAnalysisModelHandler(models *service.AnalysisModelService, logger *zap.Logger) *AnalysisModelHandler {
	return &AnalysisModelHandler{models: models, logger: logger}
}

func (h *AnalysisModelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seg := pathSegments(r.URL.Path, analysisModelsPrefix)
	switch {
	case len(seg) == 0 && r.Method == http.MethodGet:
		h.List(w, r)
	case len(seg) == 0 && r.Method == http.MethodPost:
		h.Create(w, r)
	case len(seg) == 1 && seg[0] == "tree" && r.Method == http.MethodGet:
		h.Tree(w, r)
	case len(seg) == 1 && r.Method == http.MethodGet:
		h.Get(w, r, seg[0])
	case len(seg) == 1 && r.Method == http.MethodPut:
		h.Update(w, r, seg[0])
	case len(seg) == 1 && r.Method == http.MethodDelete:
		h.Delete(w, r, seg[0])
	case len(seg) == 2 && seg[1] == "points" && r.Method == http.MethodGet:
		h.Points(w, r, seg[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// List GET /analysis-models?keyword=&parent_id=&root_only=&model_type=
func (h *AnalysisModelHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.models.List(r.Context(), service.ListAnalysisModelsRequest{
		Keyword:   q.Get("keyword"),
		ParentID:  q.Get("parent_id"),
		RootOnly:  parseBool(q.Get("root_only")),
		ModelType: domain.AnalysisModelType(strings.ToUpper(q.Get("model_type"))),
	})
	if err != nil {
		writeError(w, h.logger, "ListAnalysisModels", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *AnalysisModelHandler) Tree(w http.ResponseWriter, r *http.Request) {
	forest, err := h.models.Tree(r.Context(), r.URL.Query().Get("root_id"))
	if err != nil {
		writeError(w, h.logger, "AnalysisModelTree", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(forest))
}

func (h *AnalysisModelHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	m, err := h.models.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "GetAnalysisModel", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(m))
}

// Points GET /analysis-models/{id}/points?curve_group=
func (h *AnalysisModelHandler) Points(w http.ResponseWriter, r *http.Request, id string) {
	list, err := h.models.Points(r.Context(), id, r.URL.Query().Get("curve_group"))
	if err != nil {
		writeError(w, h.logger, "AnalysisModelPoints", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *AnalysisModelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.AnalysisModelRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	m, err := h.models.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "CreateAnalysisModel", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(m))
}

func (h *AnalysisModelHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	var req service.AnalysisModelRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	m, err := h.models.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, "UpdateAnalysisModel", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(m))
}

func (h *AnalysisModelHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.models.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, "DeleteAnalysisModel", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": id}))
}
