package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"

	"github.com/google/uuid"
)

// PostgresMetersRepository 表计 Repository 实现
type PostgresMetersRepository struct {
	db *sql.DB
}

func NewPostgresMetersRepository(db *sql.DB) *PostgresMetersRepository {
	return &PostgresMetersRepository{db: db}
}

var _ MetersRepository = (*PostgresMetersRepository)(nil)

const meterColumns = `
	id::text, meter_code, meter_name, meter_type, meter_function, meter_model, meter_unit,
	multiplier, install_location, install_date, space_node_id::text, device_id,
	protocol, comm_address, enabled, remark, created_at, updated_at`

func scanMeter(row rowScanner) (*domain.Meter, error) {
	var m domain.Meter
	var installDate sql.NullTime
	var spaceNodeID, deviceID sql.NullString
	err := row.Scan(
		&m.ID, &m.MeterCode, &m.MeterName, &m.MeterType, &m.MeterFunction, &m.MeterModel, &m.MeterUnit,
		&m.Multiplier, &m.InstallLocation, &installDate, &spaceNodeID, &deviceID,
		&m.Protocol, &m.CommAddress, &m.Enabled, &m.Remark, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.InstallDate = timePtr(installDate)
	m.SpaceNodeID = stringPtr(spaceNodeID)
	m.DeviceID = stringPtr(deviceID)
	return &m, nil
}

func (r *PostgresMetersRepository) GetMeter(ctx context.Context, id string) (*domain.Meter, error) {
	query := `SELECT ` + meterColumns + ` FROM remote_meter WHERE id = $1`
	m, err := scanMeter(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, queryError(err, "meter "+id)
	}
	return m, nil
}

func (r *PostgresMetersRepository) GetMeterByCode(ctx context.Context, code string) (*domain.Meter, error) {
	query := `SELECT ` + meterColumns + ` FROM remote_meter WHERE meter_code = $1`
	m, err := scanMeter(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		return nil, queryError(err, "meter code "+code)
	}
	return m, nil
}

func (r *PostgresMetersRepository) ListMeters(ctx context.Context, filter MeterFilter) ([]*domain.Meter, error) {
	var w whereBuilder
	if filter.Keyword != "" {
		w.add("(meter_code ILIKE ? OR meter_name ILIKE ? OR meter_model ILIKE ?)", likePattern(filter.Keyword))
	}
	if filter.MeterType != "" {
		w.add("meter_type = ?", string(filter.MeterType))
	}
	if filter.SpaceNodeID != "" {
		w.add("space_node_id = ?", filter.SpaceNodeID)
	}
	if filter.DeviceID != "" {
		w.add("device_id = ?", filter.DeviceID)
	}
	if filter.EnabledOnly {
		w.addRaw("enabled = TRUE")
	}
	query := `SELECT ` + meterColumns + ` FROM remote_meter` + w.sql() + ` ORDER BY meter_code`
	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list meters: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Meter, 0)
	for rows.Next() {
		m, err := scanMeter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meter: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresMetersRepository) CreateMeter(ctx context.Context, m *domain.Meter) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	query := `
		INSERT INTO remote_meter (
			id, meter_code, meter_name, meter_type, meter_function, meter_model, meter_unit,
			multiplier, install_location, install_date, space_node_id, device_id,
			protocol, comm_address, enabled, remark
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		m.ID, m.MeterCode, m.MeterName, string(m.MeterType), m.MeterFunction, m.MeterModel, m.MeterUnit,
		m.Multiplier, m.InstallLocation, nullTime(m.InstallDate), nullString(m.SpaceNodeID), nullString(m.DeviceID),
		m.Protocol, m.CommAddress, m.Enabled, m.Remark,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return writeError(err, "meter "+m.MeterCode)
	}
	return nil
}

func (r *PostgresMetersRepository) UpdateMeter(ctx context.Context, m *domain.Meter) error {
	query := `
		UPDATE remote_meter SET
			meter_code = $2, meter_name = $3, meter_type = $4, meter_function = $5, meter_model = $6, meter_unit = $7,
			multiplier = $8, install_location = $9, install_date = $10, space_node_id = $11, device_id = $12,
			protocol = $13, comm_address = $14, enabled = $15, remark = $16, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		m.ID, m.MeterCode, m.MeterName, string(m.MeterType), m.MeterFunction, m.MeterModel, m.MeterUnit,
		m.Multiplier, m.InstallLocation, nullTime(m.InstallDate), nullString(m.SpaceNodeID), nullString(m.DeviceID),
		m.Protocol, m.CommAddress, m.Enabled, m.Remark,
	)
	if err != nil {
		return writeError(err, "meter "+m.MeterCode)
	}
	return expectAffected(res, "meter "+m.ID)
}

func (r *PostgresMetersRepository) DeleteMeter(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM remote_meter_attribute WHERE meter_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete meter attributes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM remote_meter_measurement WHERE meter_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete meter measurements: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM remote_meter WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete meter: %w", err)
	}
	if err := expectAffected(res, "meter "+id); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PostgresMetersRepository) ListMeterAttributes(ctx context.Context, meterID string) ([]*domain.MeterAttribute, error) {
	query := `
		SELECT id::text, meter_id::text, attribute_name, attribute_code, attribute_value, value_type, unit, sort_order, remark
		FROM remote_meter_attribute
		WHERE meter_id = $1
		ORDER BY sort_order
	`
	rows, err := r.db.QueryContext(ctx, query, meterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meter attributes: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.MeterAttribute, 0)
	for rows.Next() {
		var a domain.MeterAttribute
		if err := rows.Scan(&a.ID, &a.MeterID, &a.AttributeName, &a.AttributeCode, &a.AttributeValue, &a.ValueType, &a.Unit, &a.SortOrder, &a.Remark); err != nil {
			return nil, fmt.Errorf("failed to scan meter attribute: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *PostgresMetersRepository) ReplaceMeterAttributes(ctx context.Context, meterID string, attrs []*domain.MeterAttribute) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM remote_meter_attribute WHERE meter_id = $1`, meterID); err != nil {
		return fmt.Errorf("failed to delete meter attributes: %w", err)
	}
	for _, a := range attrs {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		a.MeterID = meterID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO remote_meter_attribute (
				id, meter_id, attribute_name, attribute_code, attribute_value, value_type, unit, sort_order, remark
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			a.ID, meterID, a.AttributeName, a.AttributeCode, a.AttributeValue, string(a.ValueType), a.Unit, a.SortOrder, a.Remark,
		)
		if err != nil {
			return fmt.Errorf("failed to insert meter attribute: %w", err)
		}
	}
	return tx.Commit()
}

func (r *PostgresMetersRepository) ListMeterMeasurements(ctx context.Context, meterID string) ([]*domain.MeterMeasurement, error) {
	query := `
		SELECT id::text, meter_id::text, measurement_name, measurement_code, measurement_type, unit,
			decimal_precision, min_value, max_value, data_point_id::text, sort_order, enabled, remark
		FROM remote_meter_measurement
		WHERE meter_id = $1
		ORDER BY sort_order
	`
	rows, err := r.db.QueryContext(ctx, query, meterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meter measurements: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.MeterMeasurement, 0)
	for rows.Next() {
		var m domain.MeterMeasurement
		var minValue, maxValue sql.NullFloat64
		var pointID sql.NullString
		err := rows.Scan(
			&m.ID, &m.MeterID, &m.MeasurementName, &m.MeasurementCode, &m.MeasurementType, &m.Unit,
			&m.Precision, &minValue, &maxValue, &pointID, &m.SortOrder, &m.Enabled, &m.Remark,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meter measurement: %w", err)
		}
		m.MinValue = floatPtr(minValue)
		m.MaxValue = floatPtr(maxValue)
		m.DataPointID = stringPtr(pointID)
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *PostgresMetersRepository) ReplaceMeterMeasurements(ctx context.Context, meterID string, items []*domain.MeterMeasurement) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM remote_meter_measurement WHERE meter_id = $1`, meterID); err != nil {
		return fmt.Errorf("failed to delete meter measurements: %w", err)
	}
	for _, m := range items {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		m.MeterID = meterID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO remote_meter_measurement (
				id, meter_id, measurement_name, measurement_code, measurement_type, unit,
				decimal_precision, min_value, max_value, data_point_id, sort_order, enabled, remark
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			m.ID, meterID, m.MeasurementName, m.MeasurementCode, string(m.MeasurementType), m.Unit,
			m.Precision, nullFloat(m.MinValue), nullFloat(m.MaxValue), nullString(m.DataPointID), m.SortOrder, m.Enabled, m.Remark,
		)
		if err != nil {
			return fmt.Errorf("failed to insert meter measurement: %w", err)
		}
	}
	return tx.Commit()
}
