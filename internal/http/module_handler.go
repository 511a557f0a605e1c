package httpapi

import (
	"net/http"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/service"

	"go.uber.org/zap"
)

const (
	modulesPrefix     = "/api/modules"
	permissionsPrefix = "/api/permissions"
)

// ModuleHandler 功能模块
type ModuleHandler struct {
	modules *service.ModuleService
	logger  *zap.Logger
}

func NewModuleHandler(modules *service.ModuleService, logger *zap.Logger) *ModuleHandler {
	return &ModuleHandler{modules: modules, logger: logger}
}

func (h *ModuleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seg := pathSegments(r.URL.Path, modulesPrefix)
	switch {
	case len(seg) == 0 && r.Method == http.MethodGet:
		h.List(w, r)
	case len(seg) == 0 && r.Method == http.MethodPost:
		h.Create(w, r)
	case len(seg) == 1 && seg[0] == "tree" && r.Method == http.MethodGet:
		h.Tree(w, r)
	case len(seg) == 2 && seg[0] == "by-key" && r.Method == http.MethodGet:
		h.GetByPermissionKey(w, r, seg[1])
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

// List GET /api/modules?parent_id=
func (h *ModuleHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if parentID := r.URL.Query().Get("parent_id"); parentID != "" {
		list, err := h.modules.Children(ctx, parentID)
		if err != nil {
			writeError(w, h.logger, "ListChildModules", err)
			return
		}
		writeJSON(w, http.StatusOK, Ok(list))
		return
	}
	list, err := h.modules.List(ctx)
	if err != nil {
		writeError(w, h.logger, "ListModules", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *ModuleHandler) Tree(w http.ResponseWriter, r *http.Request) {
	forest, err := h.modules.Tree(r.Context())
	if err != nil {
		writeError(w, h.logger, "ModuleTree", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(forest))
}

func (h *ModuleHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	m, err := h.modules.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "GetModule", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(m))
}

func (h *ModuleHandler) GetByPermissionKey(w http.ResponseWriter, r *http.Request, key string) {
	m, err := h.modules.GetByPermissionKey(r.Context(), key)
	if err != nil {
		writeError(w, h.logger, "GetModuleByPermissionKey", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(m))
}

func (h *ModuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.ModuleRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	m, err := h.modules.Create(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "CreateModule", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(m))
}

func (h *ModuleHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	var req service.ModuleRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	m, err := h.modules.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, h.logger, "UpdateModule", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(m))
}

func (h *ModuleHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.modules.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, "DeleteModule", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"deleted": id}))
}

// PermissionHandler 角色模块权限
type PermissionHandler struct {
	perms  *service.PermissionService
	logger *zap.Logger
}

func NewPermissionHandler(perms *service.PermissionService, logger *zap.Logger) *PermissionHandler {
	return &PermissionHandler{perms: perms, logger: logger}
}

// savePermissionsRequest PUT /api/permissions/roles/{roleId}
type savePermissionsRequest struct {
	Permissions []service.PermissionItem `json:"permissions"`
}

func (h *PermissionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seg := pathSegments(r.URL.Path, permissionsPrefix)
	switch {
	case len(seg) == 2 && seg[0] == "roles" && r.Method == http.MethodGet:
		h.List(w, r, seg[1])
	case len(seg) == 2 && seg[0] == "roles" && r.Method == http.MethodPut:
		h.Save(w, r, seg[1])
	case len(seg) == 3 && seg[0] == "roles" && seg[2] == "tree" && r.Method == http.MethodGet:
		h.TreeWithPermissions(w, r, seg[1])
	case len(seg) == 3 && seg[0] == "roles" && seg[2] == "accessible" && r.Method == http.MethodGet:
		h.Accessible(w, r, seg[1])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *PermissionHandler) List(w http.ResponseWriter, r *http.Request, roleID string) {
	list, err := h.perms.ListPermissions(r.Context(), roleID)
	if err != nil {
		writeError(w, h.logger, "ListPermissions", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(list))
}

func (h *PermissionHandler) Save(w http.ResponseWriter, r *http.Request, roleID string) {
	var req savePermissionsRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeBadRequest(w, "invalid body")
		return
	}
	if err := h.perms.SavePermissions(r.Context(), roleID, req.Permissions); err != nil {
		writeError(w, h.logger, "SavePermissions", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"role_id": roleID, "count": len(req.Permissions)}))
}

// TreeWithPermissions 全部模块 + 该角色的勾选状态
func (h *PermissionHandler) TreeWithPermissions(w http.ResponseWriter, r *http.Request, roleID string) {
	forest, err := h.perms.ModuleTreeWithPermissions(r.Context(), roleID)
	if err != nil {
		writeError(w, h.logger, "ModuleTreeWithPermissions", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(forest))
}

// Accessible 角色可见的菜单树
func (h *PermissionHandler) Accessible(w http.ResponseWriter, r *http.Request, roleID string) {
	forest, err := h.perms.AccessibleModuleTree(r.Context(), roleID)
	if err != nil {
		writeError(w, h.logger, "AccessibleModuleTree", err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(forest))
}
