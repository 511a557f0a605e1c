package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"

	"github.com/google/uuid"
)

// PostgresModulesRepository 功能模块 Repository 实现
type PostgresModulesRepository struct {
	db *sql.DB
}

func NewPostgresModulesRepository(db *sql.DB) *PostgresModulesRepository {
	return &PostgresModulesRepository{db: db}
}

var _ ModulesRepository = (*PostgresModulesRepository)(nil)

const moduleColumns = `
	id::text, zh_name, en_name, level, order_no, path, icon, group_code, permission_key,
	parent_id::text, parent_node, expanded, visible`

func scanModule(row rowScanner) (*domain.Module, error) {
	var m domain.Module
	var parentID sql.NullString
	err := row.Scan(
		&m.ID, &m.ZhName, &m.EnName, &m.Level, &m.OrderNo, &m.Path, &m.Icon, &m.GroupCode, &m.PermissionKey,
		&parentID, &m.ParentNode, &m.Expanded, &m.Visible,
	)
	if err != nil {
		return nil, err
	}
	m.ParentID = stringPtr(parentID)
	return &m, nil
}

func (r *PostgresModulesRepository) GetModule(ctx context.Context, id string) (*domain.Module, error) {
	m, err := scanModule(r.db.QueryRowContext(ctx, `SELECT `+moduleColumns+` FROM sys_module WHERE id = $1`, id))
	if err != nil {
		return nil, queryError(err, "module "+id)
	}
	return m, nil
}

func (r *PostgresModulesRepository) GetModuleByPermissionKey(ctx context.Context, key string) (*domain.Module, error) {
	m, err := scanModule(r.db.QueryRowContext(ctx, `SELECT `+moduleColumns+` FROM sys_module WHERE permission_key = $1`, key))
	if err != nil {
		return nil, queryError(err, "module permission_key "+key)
	}
	return m, nil
}

func (r *PostgresModulesRepository) queryModules(ctx context.Context, query string, args ...any) ([]*domain.Module, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Module, 0)
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresModulesRepository) ListModules(ctx context.Context) ([]*domain.Module, error) {
	return r.queryModules(ctx, `SELECT `+moduleColumns+` FROM sys_module ORDER BY order_no, permission_key`)
}

func (r *PostgresModulesRepository) ListChildModules(ctx context.Context, parentID string) ([]*domain.Module, error) {
	return r.queryModules(ctx, `SELECT `+moduleColumns+` FROM sys_module WHERE parent_id = $1 ORDER BY order_no, permission_key`, parentID)
}

func (r *PostgresModulesRepository) CreateModule(ctx context.Context, m *domain.Module) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	query := `
		INSERT INTO sys_module (
			id, zh_name, en_name, level, order_no, path, icon, group_code, permission_key,
			parent_id, parent_node, expanded, visible
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.ID, m.ZhName, m.EnName, m.Level, m.OrderNo, m.Path, m.Icon, m.GroupCode, m.PermissionKey,
		nullString(m.ParentID), m.ParentNode, m.Expanded, m.Visible,
	)
	if err != nil {
		return writeError(err, "module "+m.PermissionKey)
	}
	return nil
}

func (r *PostgresModulesRepository) UpdateModule(ctx context.Context, m *domain.Module) error {
	query := `
		UPDATE sys_module SET
			zh_name = $2, en_name = $3, level = $4, order_no = $5, path = $6, icon = $7, group_code = $8,
			permission_key = $9, parent_id = $10, parent_node = $11, expanded = $12, visible = $13
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		m.ID, m.ZhName, m.EnName, m.Level, m.OrderNo, m.Path, m.Icon, m.GroupCode,
		m.PermissionKey, nullString(m.ParentID), m.ParentNode, m.Expanded, m.Visible,
	)
	if err != nil {
		return writeError(err, "module "+m.PermissionKey)
	}
	return expectAffected(res, "module "+m.ID)
}

func (r *PostgresModulesRepository) DeleteModule(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sys_module WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete module: %w", err)
	}
	return expectAffected(res, "module "+id)
}

// PostgresRolesRepository 角色只读视图
type PostgresRolesRepository struct {
	db *sql.DB
}

func NewPostgresRolesRepository(db *sql.DB) *PostgresRolesRepository {
	return &PostgresRolesRepository{db: db}
}

var _ RolesRepository = (*PostgresRolesRepository)(nil)

func (r *PostgresRolesRepository) GetRole(ctx context.Context, id string) (*domain.Role, error) {
	var role domain.Role
	err := r.db.QueryRowContext(ctx, `SELECT id::text, name FROM sys_role WHERE id = $1`, id).Scan(&role.ID, &role.Name)
	if err != nil {
		return nil, queryError(err, "role "+id)
	}
	return &role, nil
}

// PostgresRolePermissionsRepository 角色权限 Repository 实现
type PostgresRolePermissionsRepository struct {
	db *sql.DB
}

func NewPostgresRolePermissionsRepository(db *sql.DB) *PostgresRolePermissionsRepository {
	return &PostgresRolePermissionsRepository{db: db}
}

var _ RolePermissionsRepository = (*PostgresRolePermissionsRepository)(nil)

func (r *PostgresRolePermissionsRepository) ListRolePermissions(ctx context.Context, roleID string) ([]*domain.RoleModulePermission, error) {
	query := `
		SELECT id::text, role_id::text, module_id::text, can_read, can_add, can_update, can_see
		FROM sys_role_module_permission
		WHERE role_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role permissions: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.RoleModulePermission, 0)
	for rows.Next() {
		var p domain.RoleModulePermission
		if err := rows.Scan(&p.ID, &p.RoleID, &p.ModuleID, &p.CanRead, &p.CanAdd, &p.CanUpdate, &p.CanSee); err != nil {
			return nil, fmt.Errorf("failed to scan role permission: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *PostgresRolePermissionsRepository) ReplaceRolePermissions(ctx context.Context, roleID string, perms []*domain.RoleModulePermission) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sys_role_module_permission WHERE role_id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to delete role permissions: %w", err)
	}
	for _, p := range perms {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.RoleID = roleID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sys_role_module_permission (id, role_id, module_id, can_read, can_add, can_update, can_see)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, roleID, p.ModuleID, p.CanRead, p.CanAdd, p.CanUpdate, p.CanSee,
		)
		if err != nil {
			return fmt.Errorf("failed to insert role permission: %w", err)
		}
	}
	return tx.Commit()
}
