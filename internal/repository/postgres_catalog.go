package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"

	"github.com/google/uuid"
)

// hierarchyWhere 树形目录通用过滤
func hierarchyWhere(filter HierarchyFilter, codeCol, nameCol, typeCol string) whereBuilder {
	var w whereBuilder
	if filter.Keyword != "" {
		w.add("("+codeCol+" ILIKE ? OR "+nameCol+" ILIKE ?)", likePattern(filter.Keyword))
	}
	if filter.RootOnly {
		w.addRaw("parent_id IS NULL")
	}
	if filter.ParentID != nil {
		w.add("parent_id = ?", *filter.ParentID)
	}
	if filter.Type != "" {
		w.add(typeCol+" = ?", filter.Type)
	}
	if filter.EnabledOnly {
		w.addRaw("enabled = TRUE")
	}
	return w
}

// PostgresAnalysisModelsRepository 分析模型 Repository 实现
type PostgresAnalysisModelsRepository struct {
	db *sql.DB
}

func NewPostgresAnalysisModelsRepository(db *sql.DB) *PostgresAnalysisModelsRepository {
	return &PostgresAnalysisModelsRepository{db: db}
}

var _ AnalysisModelsRepository = (*PostgresAnalysisModelsRepository)(nil)

const analysisModelColumns = `
	id::text, model_code, model_name, model_type, parent_id::text, level, sort_order,
	description, enabled, remark, created_at, updated_at`

func scanAnalysisModel(row rowScanner) (*domain.AnalysisModel, error) {
	var m domain.AnalysisModel
	var parentID sql.NullString
	err := row.Scan(
		&m.ID, &m.ModelCode, &m.ModelName, &m.ModelType, &parentID, &m.Level, &m.SortOrder,
		&m.Description, &m.Enabled, &m.Remark, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.ParentID = stringPtr(parentID)
	return &m, nil
}

func (r *PostgresAnalysisModelsRepository) GetAnalysisModel(ctx context.Context, id string) (*domain.AnalysisModel, error) {
	query := `SELECT ` + analysisModelColumns + ` FROM remote_analysis_model WHERE id = $1`
	m, err := scanAnalysisModel(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, queryError(err, "analysis model "+id)
	}
	return m, nil
}

func (r *PostgresAnalysisModelsRepository) GetAnalysisModelByCode(ctx context.Context, code string) (*domain.AnalysisModel, error) {
	query := `SELECT ` + analysisModelColumns + ` FROM remote_analysis_model WHERE model_code = $1`
	m, err := scanAnalysisModel(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		return nil, queryError(err, "analysis model code "+code)
	}
	return m, nil
}

func (r *PostgresAnalysisModelsRepository) ListAnalysisModels(ctx context.Context, filter HierarchyFilter) ([]*domain.AnalysisModel, error) {
	w := hierarchyWhere(filter, "model_code", "model_name", "model_type")
	query := `SELECT ` + analysisModelColumns + ` FROM remote_analysis_model` + w.sql() + ` ORDER BY sort_order, model_code`
	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis models: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.AnalysisModel, 0)
	for rows.Next() {
		m, err := scanAnalysisModel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis model: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresAnalysisModelsRepository) CreateAnalysisModel(ctx context.Context, m *domain.AnalysisModel) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	query := `
		INSERT INTO remote_analysis_model (
			id, model_code, model_name, model_type, parent_id, level, sort_order, description, enabled, remark
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		m.ID, m.ModelCode, m.ModelName, string(m.ModelType), nullString(m.ParentID), m.Level, m.SortOrder,
		m.Description, m.Enabled, m.Remark,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return writeError(err, "analysis model "+m.ModelCode)
	}
	return nil
}

func (r *PostgresAnalysisModelsRepository) UpdateAnalysisModel(ctx context.Context, m *domain.AnalysisModel) error {
	query := `
		UPDATE remote_analysis_model SET
			model_code = $2, model_name = $3, model_type = $4, parent_id = $5, level = $6, sort_order = $7,
			description = $8, enabled = $9, remark = $10, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		m.ID, m.ModelCode, m.ModelName, string(m.ModelType), nullString(m.ParentID), m.Level, m.SortOrder,
		m.Description, m.Enabled, m.Remark,
	)
	if err != nil {
		return writeError(err, "analysis model "+m.ModelCode)
	}
	return expectAffected(res, "analysis model "+m.ID)
}

func (r *PostgresAnalysisModelsRepository) DeleteAnalysisModel(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM remote_analysis_model_point WHERE analysis_model_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete model points: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM remote_analysis_model WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis model: %w", err)
	}
	if err := expectAffected(res, "analysis model "+id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PostgresAnalysisModelsRepository) ListModelPoints(ctx context.Context, modelID string) ([]*domain.AnalysisModelPoint, error) {
	query := `
		SELECT id::text, analysis_model_id::text, data_point_id::text, display_name, curve_group, curve_color,
		       y_axis_min, y_axis_max, sort_order, remark
		FROM remote_analysis_model_point
		WHERE analysis_model_id = $1
		ORDER BY sort_order
	`
	rows, err := r.db.QueryContext(ctx, query, modelID)
	if err != nil {
		return nil, fmt.Errorf("failed to list model points: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.AnalysisModelPoint, 0)
	for rows.Next() {
		var p domain.AnalysisModelPoint
		var yMin, yMax sql.NullFloat64
		if err := rows.Scan(
			&p.ID, &p.AnalysisModelID, &p.DataPointID, &p.DisplayName, &p.CurveGroup, &p.CurveColor,
			&yMin, &yMax, &p.SortOrder, &p.Remark,
		); err != nil {
			return nil, fmt.Errorf("failed to scan model point: %w", err)
		}
		p.YAxisMin = floatPtr(yMin)
		p.YAxisMax = floatPtr(yMax)
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *PostgresAnalysisModelsRepository) ReplaceModelPoints(ctx context.Context, modelID string, points []*domain.AnalysisModelPoint) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM remote_analysis_model_point WHERE analysis_model_id = $1`, modelID); err != nil {
		return fmt.Errorf("failed to delete model points: %w", err)
	}
	for _, p := range points {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.AnalysisModelID = modelID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO remote_analysis_model_point (
				id, analysis_model_id, data_point_id, display_name, curve_group, curve_color,
				y_axis_min, y_axis_max, sort_order, remark
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			p.ID, modelID, p.DataPointID, p.DisplayName, p.CurveGroup, p.CurveColor,
			nullFloat(p.YAxisMin), nullFloat(p.YAxisMax), p.SortOrder, p.Remark,
		)
		if err != nil {
			return fmt.Errorf("failed to insert model point: %w", err)
		}
	}
	return tx.Commit()
}

// PostgresSpaceNodesRepository 空间节点 Repository 实现
type PostgresSpaceNodesRepository struct {
	db *sql.DB
}

func NewPostgresSpaceNodesRepository(db *sql.DB) *PostgresSpaceNodesRepository {
	return &PostgresSpaceNodesRepository{db: db}
}

var _ SpaceNodesRepository = (*PostgresSpaceNodesRepository)(nil)

const spaceNodeColumns = `
	id::text, node_code, node_name, node_type, parent_id::text, level, sort_order,
	contact_person, contact_phone, address, longitude, latitude, description, enabled, remark,
	created_at, updated_at`

func scanSpaceNode(row rowScanner) (*domain.SpaceNode, error) {
	var n domain.SpaceNode
	var parentID sql.NullString
	var lon, lat sql.NullFloat64
	err := row.Scan(
		&n.ID, &n.NodeCode, &n.NodeName, &n.NodeType, &parentID, &n.Level, &n.SortOrder,
		&n.ContactPerson, &n.ContactPhone, &n.Address, &lon, &lat, &n.Description, &n.Enabled, &n.Remark,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	n.ParentID = stringPtr(parentID)
	n.Longitude = floatPtr(lon)
	n.Latitude = floatPtr(lat)
	return &n, nil
}

func (r *PostgresSpaceNodesRepository) GetSpaceNode(ctx context.Context, id string) (*domain.SpaceNode, error) {
	query := `SELECT ` + spaceNodeColumns + ` FROM remote_space_node WHERE id = $1`
	n, err := scanSpaceNode(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, queryError(err, "space node "+id)
	}
	return n, nil
}

func (r *PostgresSpaceNodesRepository) GetSpaceNodeByCode(ctx context.Context, code string) (*domain.SpaceNode, error) {
	query := `SELECT ` + spaceNodeColumns + ` FROM remote_space_node WHERE node_code = $1`
	n, err := scanSpaceNode(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		return nil, queryError(err, "space node code "+code)
	}
	return n, nil
}

func (r *PostgresSpaceNodesRepository) ListSpaceNodes(ctx context.Context, filter HierarchyFilter) ([]*domain.SpaceNode, error) {
	w := hierarchyWhere(filter, "node_code", "node_name", "node_type")
	query := `SELECT ` + spaceNodeColumns + ` FROM remote_space_node` + w.sql() + ` ORDER BY sort_order, node_code`
	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list space nodes: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.SpaceNode, 0)
	for rows.Next() {
		n, err := scanSpaceNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan space node: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PostgresSpaceNodesRepository) CreateSpaceNode(ctx context.Context, n *domain.SpaceNode) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	query := `
		INSERT INTO remote_space_node (
			id, node_code, node_name, node_type, parent_id, level, sort_order,
			contact_person, contact_phone, address, longitude, latitude, description, enabled, remark
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		n.ID, n.NodeCode, n.NodeName, string(n.NodeType), nullString(n.ParentID), n.Level, n.SortOrder,
		n.ContactPerson, n.ContactPhone, n.Address, nullFloat(n.Longitude), nullFloat(n.Latitude), n.Description, n.Enabled, n.Remark,
	).Scan(&n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return writeError(err, "space node "+n.NodeCode)
	}
	return nil
}

func (r *PostgresSpaceNodesRepository) UpdateSpaceNode(ctx context.Context, n *domain.SpaceNode) error {
	query := `
		UPDATE remote_space_node SET
			node_code = $2, node_name = $3, node_type = $4, parent_id = $5, level = $6, sort_order = $7,
			contact_person = $8, contact_phone = $9, address = $10, longitude = $11, latitude = $12,
			description = $13, enabled = $14, remark = $15, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		n.ID, n.NodeCode, n.NodeName, string(n.NodeType), nullString(n.ParentID), n.Level, n.SortOrder,
		n.ContactPerson, n.ContactPhone, n.Address, nullFloat(n.Longitude), nullFloat(n.Latitude),
		n.Description, n.Enabled, n.Remark,
	)
	if err != nil {
		return writeError(err, "space node "+n.NodeCode)
	}
	return expectAffected(res, "space node "+n.ID)
}

func (r *PostgresSpaceNodesRepository) DeleteSpaceNode(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM remote_space_node WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete space node: %w", err)
	}
	return expectAffected(res, "space node "+id)
}
