package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"

	"github.com/google/uuid"
)

// MemoryModulesRepo 功能模块内存实现
type MemoryModulesRepo struct {
	mu      sync.RWMutex
	modules map[string]*domain.Module
}

func NewMemoryModulesRepo() *MemoryModulesRepo {
	return &MemoryModulesRepo{modules: map[string]*domain.Module{}}
}

var _ ModulesRepository = (*MemoryModulesRepo)(nil)

func (r *MemoryModulesRepo) GetModule(_ context.Context, id string) (*domain.Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[id]
	if !ok {
		return nil, fmt.Errorf("module %s: %w", id, domain.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryModulesRepo) GetModuleByPermissionKey(_ context.Context, key string) (*domain.Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.modules {
		if m.PermissionKey == key {
			cp := *m
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("module permission_key %s: %w", key, domain.ErrNotFound)
}

func (r *MemoryModulesRepo) list(match func(*domain.Module) bool) []*domain.Module {
	out := make([]*domain.Module, 0, len(r.modules))
	for _, m := range r.modules {
		if match(m) {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OrderNo != out[j].OrderNo {
			return out[i].OrderNo < out[j].OrderNo
		}
		return out[i].PermissionKey < out[j].PermissionKey
	})
	return out
}

func (r *MemoryModulesRepo) ListModules(_ context.Context) ([]*domain.Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(func(*domain.Module) bool { return true }), nil
}

func (r *MemoryModulesRepo) ListChildModules(_ context.Context, parentID string) ([]*domain.Module, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(func(m *domain.Module) bool { return m.ParentID != nil && *m.ParentID == parentID }), nil
}

func (r *MemoryModulesRepo) CreateModule(_ context.Context, m *domain.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.modules {
		if existing.PermissionKey == m.PermissionKey {
			return fmt.Errorf("permission_key %s already exists: %w", m.PermissionKey, domain.ErrConflict)
		}
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	cp := *m
	r.modules[m.ID] = &cp
	return nil
}

func (r *MemoryModulesRepo) UpdateModule(_ context.Context, m *domain.Module) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[m.ID]; !ok {
		return fmt.Errorf("module %s: %w", m.ID, domain.ErrNotFound)
	}
	for _, existing := range r.modules {
		if existing.ID != m.ID && existing.PermissionKey == m.PermissionKey {
			return fmt.Errorf("permission_key %s already exists: %w", m.PermissionKey, domain.ErrConflict)
		}
	}
	cp := *m
	r.modules[m.ID] = &cp
	return nil
}

func (r *MemoryModulesRepo) DeleteModule(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.modules[id]; !ok {
		return fmt.Errorf("module %s: %w", id, domain.ErrNotFound)
	}
	delete(r.modules, id)
	return nil
}

// MemoryRolesRepo 角色内存实现
type MemoryRolesRepo struct {
	mu    sync.RWMutex
	roles map[string]*domain.Role
}

func NewMemoryRolesRepo(roles ...*domain.Role) *MemoryRolesRepo {
	r := &MemoryRolesRepo{roles: map[string]*domain.Role{}}
	for _, role := range roles {
		cp := *role
		r.roles[role.ID] = &cp
	}
	return r
}

var _ RolesRepository = (*MemoryRolesRepo)(nil)

func (r *MemoryRolesRepo) GetRole(_ context.Context, id string) (*domain.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roles[id]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", id, domain.ErrNotFound)
	}
	cp := *role
	return &cp, nil
}

// PutRole 新增或覆盖角色
func (r *MemoryRolesRepo) PutRole(role *domain.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *role
	r.roles[role.ID] = &cp
}

// MemoryRolePermissionsRepo 角色权限内存实现
type MemoryRolePermissionsRepo struct {
	mu     sync.RWMutex
	byRole map[string][]*domain.RoleModulePermission
}

func NewMemoryRolePermissionsRepo() *MemoryRolePermissionsRepo {
	return &MemoryRolePermissionsRepo{byRole: map[string][]*domain.RoleModulePermission{}}
}

var _ RolePermissionsRepository = (*MemoryRolePermissionsRepo)(nil)

func (r *MemoryRolePermissionsRepo) ListRolePermissions(_ context.Context, roleID string) ([]*domain.RoleModulePermission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.RoleModulePermission, 0, len(r.byRole[roleID]))
	for _, p := range r.byRole[roleID] {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MemoryRolePermissionsRepo) ReplaceRolePermissions(_ context.Context, roleID string, perms []*domain.RoleModulePermission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := make([]*domain.RoleModulePermission, 0, len(perms))
	for _, p := range perms {
		cp := *p
		if cp.ID == "" {
			cp.ID = uuid.NewString()
		}
		cp.RoleID = roleID
		list = append(list, &cp)
	}
	r.byRole[roleID] = list
	return nil
}
