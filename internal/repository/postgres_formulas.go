package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"

	"github.com/google/uuid"
)

// PostgresFormulasRepository 虚拟表公式 Repository 实现
type PostgresFormulasRepository struct {
	db *sql.DB
}

func NewPostgresFormulasRepository(db *sql.DB) *PostgresFormulasRepository {
	return &PostgresFormulasRepository{db: db}
}

var _ FormulasRepository = (*PostgresFormulasRepository)(nil)

const formulaColumns = `
	id::text, formula_code, formula_name, output_point_id::text, expression, description,
	decimal_precision, enabled, remark, created_at, updated_at`

func scanFormula(row rowScanner) (*domain.VirtualMeterFormula, error) {
	var f domain.VirtualMeterFormula
	err := row.Scan(
		&f.ID, &f.FormulaCode, &f.FormulaName, &f.OutputPointID, &f.Expression, &f.Description,
		&f.Precision, &f.Enabled, &f.Remark, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PostgresFormulasRepository) GetFormula(ctx context.Context, id string) (*domain.VirtualMeterFormula, error) {
	query := `SELECT ` + formulaColumns + ` FROM remote_virtual_meter_formula WHERE id = $1`
	f, err := scanFormula(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, queryError(err, "formula "+id)
	}
	return f, nil
}

func (r *PostgresFormulasRepository) GetFormulaByCode(ctx context.Context, code string) (*domain.VirtualMeterFormula, error) {
	query := `SELECT ` + formulaColumns + ` FROM remote_virtual_meter_formula WHERE formula_code = $1`
	f, err := scanFormula(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		return nil, queryError(err, "formula code "+code)
	}
	return f, nil
}

func (r *PostgresFormulasRepository) ListFormulas(ctx context.Context, filter FormulaFilter) ([]*domain.VirtualMeterFormula, error) {
	var w whereBuilder
	if filter.Keyword != "" {
		w.add("(formula_code ILIKE ? OR formula_name ILIKE ?)", likePattern(filter.Keyword))
	}
	if filter.OutputPointID != "" {
		w.add("output_point_id = ?", filter.OutputPointID)
	}
	if filter.EnabledOnly {
		w.addRaw("enabled = TRUE")
	}
	query := `SELECT ` + formulaColumns + ` FROM remote_virtual_meter_formula` + w.sql() + ` ORDER BY formula_code`
	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list formulas: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.VirtualMeterFormula, 0)
	for rows.Next() {
		f, err := scanFormula(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan formula: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *PostgresFormulasRepository) CreateFormula(ctx context.Context, f *domain.VirtualMeterFormula) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	query := `
		INSERT INTO remote_virtual_meter_formula (
			id, formula_code, formula_name, output_point_id, expression, description, decimal_precision, enabled, remark
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		f.ID, f.FormulaCode, f.FormulaName, f.OutputPointID, f.Expression, f.Description, f.Precision, f.Enabled, f.Remark,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return writeError(err, "formula "+f.FormulaCode)
	}
	return nil
}

func (r *PostgresFormulasRepository) UpdateFormula(ctx context.Context, f *domain.VirtualMeterFormula) error {
	query := `
		UPDATE remote_virtual_meter_formula SET
			formula_code = $2, formula_name = $3, output_point_id = $4, expression = $5, description = $6,
			decimal_precision = $7, enabled = $8, remark = $9, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		f.ID, f.FormulaCode, f.FormulaName, f.OutputPointID, f.Expression, f.Description, f.Precision, f.Enabled, f.Remark,
	)
	if err != nil {
		return writeError(err, "formula "+f.FormulaCode)
	}
	return expectAffected(res, "formula "+f.ID)
}

func (r *PostgresFormulasRepository) DeleteFormula(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM remote_formula_parameter WHERE formula_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete formula parameters: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM remote_virtual_meter_formula WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete formula: %w", err)
	}
	if err := expectAffected(res, "formula "+id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PostgresFormulasRepository) ListParameters(ctx context.Context, formulaID string) ([]*domain.FormulaParameter, error) {
	query := `
		SELECT id::text, formula_id::text, parameter_name, data_point_id::text, coefficient, operator, sort_order, remark
		FROM remote_formula_parameter
		WHERE formula_id = $1
		ORDER BY sort_order
	`
	rows, err := r.db.QueryContext(ctx, query, formulaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list formula parameters: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.FormulaParameter, 0)
	for rows.Next() {
		var p domain.FormulaParameter
		if err := rows.Scan(&p.ID, &p.FormulaID, &p.ParameterName, &p.DataPointID, &p.Coefficient, &p.Operator, &p.SortOrder, &p.Remark); err != nil {
			return nil, fmt.Errorf("failed to scan formula parameter: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *PostgresFormulasRepository) ReplaceParameters(ctx context.Context, formulaID string, params []*domain.FormulaParameter) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM remote_formula_parameter WHERE formula_id = $1`, formulaID); err != nil {
		return fmt.Errorf("failed to delete formula parameters: %w", err)
	}
	for _, p := range params {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.FormulaID = formulaID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO remote_formula_parameter (
				id, formula_id, parameter_name, data_point_id, coefficient, operator, sort_order, remark
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, formulaID, p.ParameterName, p.DataPointID, p.Coefficient, string(p.Operator), p.SortOrder, p.Remark,
		)
		if err != nil {
			return fmt.Errorf("failed to insert formula parameter: %w", err)
		}
	}
	return tx.Commit()
}
