package httpapi

import (
	"net/http"
	"strings"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/service"

	"go.uber.org/zap"
)

const formulasPrefix = monitoringPrefix + "/formulas"

// FormulaHandler 虚拟表公式
type FormulaHandler struct {
	formulas *service.FormulaService
	logger   *zap.Logger
}

func NewFormulaHandler(formulas *service.FormulaService, logger *zap.Logger) *FormulaHandler {
	return &FormulaHandler{formulas: formulas, logger: logger}
}

func (h *FormulaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seg := pathSegments(r.URL.Path, formulasPrefix)
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
	case len(seg) == 2 && seg[1] == "evaluate" && r.Method == http.MethodPost:
		h.Evaluate(w, r, seg[0])
	case len(seg) == 2 && seg[1] == "store" && r.Method == http.MethodPost:
		h.EvaluateAndStore(w, r, seg[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// List GET /formulas?keyword=&enabled_only=
func (h *FormulaHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		list []*domain.VirtualMeterFormula
		err  error
	)
	switch {
	case strings.TrimSpace(q.Get("keyword")) != "":
		list, err = h.formulas.Search(ctx, q.Get("keyword"))
	case parseBool(q.Get("enabled_only")):
		list, err = h.formulas.ListEnabled(ctx)
	default:
		list, err = h.formulas.List(ctx)
	}
	if err != nil {
		writeError(w, h.logger, "ListFormulas", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *FormulaHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	f, err := h.formulas.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "GetFormula", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(f))
}

func (h *FormulaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.FormulaRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	f, err := h.formulas.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "CreateFormula", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(f))
}

func (h *FormulaHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	var req service.FormulaRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	f, err := h.formulas.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, "UpdateFormula", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(f))
}

func (h *FormulaHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.formulas.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, "DeleteFormula", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": id}))
}

// Evaluate POST /formulas/{id}/evaluate：只计算不落库
func (h *FormulaHandler) Evaluate(w http.ResponseWriter, r *http.Request, id string) {
	v, err := h.formulas.Evaluate(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "EvaluateFormula", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"formula_id": id, "value": v}))
}

// EvaluateAndStore POST /formulas/{id}/store：计算并写入输出点
func (h *FormulaHandler) EvaluateAndStore(w http.ResponseWriter, r *http.Request, id string) {
	res, err := h.formulas.EvaluateAndStore(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "EvaluateAndStoreFormula", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(res))
}
