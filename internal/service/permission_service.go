package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/repository"
	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/tree"

	"go.uber.org/zap"
)

// PermissionOverlay 权限树节点上叠加的角色权限
type PermissionOverlay struct {
	Selected  bool `json:"selected"`
	CanRead   bool `json:"can_read"`
	CanAdd    bool `json:"can_add"`
	CanUpdate bool `json:"can_update"`
	CanSee    bool `json:"can_see"`
}

// PermissionNode 权限树节点
type PermissionNode = tree.Node[*domain.Module, PermissionOverlay]

// PermissionService 角色-模块权限服务
type PermissionService struct {
	modules repository.ModulesRepository
	roles   repository.RolesRepository
	perms   repository.RolePermissionsRepository
	logger  *zap.Logger
}

func NewPermissionService(
	modules repository.ModulesRepository,
	roles repository.RolesRepository,
	perms repository.RolePermissionsRepository,
	logger *zap.Logger,
) *PermissionService {
	return &PermissionService{modules: modules, roles: roles, perms: perms, logger: logger}
}

// ModuleTreeWithPermissions 完整模块树，已授权模块 selected=true 并带上四项权限
// 角色不存在返回 NotFound
func (s *PermissionService) ModuleTreeWithPermissions(ctx context.Context, roleID string) ([]*PermissionNode, error) {
	if _, err := s.roles.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	all, err := s.modules.ListModules(ctx)
	if err != nil {
		return nil, err
	}
	granted, err := s.permissionsByModule(ctx, roleID)
	if err != nil {
		return nil, err
	}
	return tree.BuildForest(all, moduleAccessors(func(m *domain.Module) PermissionOverlay {
		p, ok := granted[m.ID]
		if !ok {
			return PermissionOverlay{}
		}
		return PermissionOverlay{Selected: true, CanRead: p.CanRead, CanAdd: p.CanAdd, CanUpdate: p.CanUpdate, CanSee: p.CanSee}
	})), nil
}

// AccessibleModuleTree 角色可见的模块树
//   - ADMIN（大小写不敏感）可见全部
//   - 角色不存在或无可见模块时返回空
//   - 可见模块的祖先一并返回，保证树完整
func (s *PermissionService) AccessibleModuleTree(ctx context.Context, roleID string) ([]*ModuleNode, error) {
	role, err := s.roles.GetRole(ctx, roleID)
	if errors.Is(err, domain.ErrNotFound) {
		return []*ModuleNode{}, nil
	}
	if err != nil {
		return nil, err
	}

	all, err := s.modules.ListModules(ctx)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(role.Name, domain.AdminRoleName) {
		return tree.BuildForest(all, moduleAccessors[any](nil)), nil
	}

	granted, err := s.permissionsByModule(ctx, roleID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Module, len(all))
	for _, m := range all {
		byID[m.ID] = m
	}
	keep := make(map[string]bool)
	for moduleID, p := range granted {
		if !p.CanSee {
			continue
		}
		for m := byID[moduleID]; m != nil && !keep[m.ID]; {
			keep[m.ID] = true
			pid, ok := derefParent(m.ParentID)
			if !ok {
				break
			}
			m = byID[pid]
		}
	}
	if len(keep) == 0 {
		return []*ModuleNode{}, nil
	}

	visible := make([]*domain.Module, 0, len(keep))
	for _, m := range all {
		if keep[m.ID] {
			visible = append(visible, m)
		}
	}
	return tree.BuildForest(visible, moduleAccessors[any](nil)), nil
}

// ListPermissions 角色的权限记录
func (s *PermissionService) ListPermissions(ctx context.Context, roleID string) ([]*domain.RoleModulePermission, error) {
	if _, err := s.roles.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.perms.ListRolePermissions(ctx, roleID)
}

// PermissionItem 保存权限请求项
type PermissionItem struct {
	ModuleID  string `json:"module_id"`
	CanRead   bool   `json:"can_read"`
	CanAdd    bool   `json:"can_add"`
	CanUpdate bool   `json:"can_update"`
	CanSee    bool   `json:"can_see"`
}

// SavePermissions 整体替换角色权限；角色或模块不存在返回 NotFound
func (s *PermissionService) SavePermissions(ctx context.Context, roleID string, items []PermissionItem) error {
	if _, err := s.roles.GetRole(ctx, roleID); err != nil {
		return err
	}
	perms := make([]*domain.RoleModulePermission, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if _, err := s.modules.GetModule(ctx, it.ModuleID); err != nil {
			return err
		}
		if seen[it.ModuleID] {
			return fmt.Errorf("module %s listed twice: %w", it.ModuleID, domain.ErrInvalidArgument)
		}
		seen[it.ModuleID] = true
		perms = append(perms, &domain.RoleModulePermission{
			RoleID:    roleID,
			ModuleID:  it.ModuleID,
			CanRead:   it.CanRead,
			CanAdd:    it.CanAdd,
			CanUpdate: it.CanUpdate,
			CanSee:    it.CanSee,
		})
	}
	if err := s.perms.ReplaceRolePermissions(ctx, roleID, perms); err != nil {
		return fmt.Errorf("failed to save role permissions: %w", err)
	}
	s.logger.Info("Role permissions saved", zap.String("role_id", roleID), zap.Int("count", len(perms)))
	return nil
}

func (s *PermissionService) permissionsByModule(ctx context.Context, roleID string) (map[string]*domain.RoleModulePermission, error) {
	list, err := s.perms.ListRolePermissions(ctx, roleID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*domain.RoleModulePermission, len(list))
	for _, p := range list {
		out[p.ModuleID] = p
	}
	return out, nil
}
