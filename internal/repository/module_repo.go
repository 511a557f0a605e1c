package repository

import (
	"context"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"
)

// ModulesRepository 功能模块 Repository 接口
type ModulesRepository interface {
	GetModule(ctx context.Context, id string) (*domain.Module, error)
	GetModuleByPermissionKey(ctx context.Context, key string) (*domain.Module, error)
	// 全部模块，按 order_no 排序
	ListModules(ctx context.Context) ([]*domain.Module, error)
	ListChildModules(ctx context.Context, parentID string) ([]*domain.Module, error)
	CreateModule(ctx context.Context, m *domain.Module) error
	UpdateModule(ctx context.Context, m *domain.Module) error
	DeleteModule(ctx context.Context, id string) error
}

// RolesRepository 角色只读视图（角色本身由权限系统维护）
type RolesRepository interface {
	GetRole(ctx context.Context, id string) (*domain.Role, error)
}

// RolePermissionsRepository 角色-模块权限 Repository 接口
type RolePermissionsRepository interface {
	ListRolePermissions(ctx context.Context, roleID string) ([]*domain.RoleModulePermission, error)
	// 整体替换角色权限
	ReplaceRolePermissions(ctx context.Context, roleID string, perms []*domain.RoleModulePermission) error
}
