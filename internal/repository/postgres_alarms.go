package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"

	"github.com/google/uuid"
)

// PostgresAlarmConfigsRepository 报警配置 Repository 实现
type PostgresAlarmConfigsRepository struct {
	db *sql.DB
}

func NewPostgresAlarmConfigsRepository(db *sql.DB) *PostgresAlarmConfigsRepository {
	return &PostgresAlarmConfigsRepository{db: db}
}

var _ AlarmConfigsRepository = (*PostgresAlarmConfigsRepository)(nil)

const alarmConfigColumns = `
	id::text, alarm_code, alarm_name, data_point_id::text, alarm_type, alarm_level,
	upper_limit, lower_limit, deadband, delay_seconds, alarm_message_template,
	enabled, notify_enabled, notify_method, notify_receivers, remark, created_at, updated_at`

func scanAlarmConfig(row rowScanner) (*domain.AlarmConfig, error) {
	var c domain.AlarmConfig
	var upper, lower sql.NullFloat64
	err := row.Scan(
		&c.ID, &c.AlarmCode, &c.AlarmName, &c.DataPointID, &c.AlarmType, &c.AlarmLevel,
		&upper, &lower, &c.Deadband, &c.DelaySeconds, &c.AlarmMessageTemplate,
		&c.Enabled, &c.NotifyEnabled, &c.NotifyMethod, &c.NotifyReceivers, &c.Remark, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.UpperLimit = floatPtr(upper)
	c.LowerLimit = floatPtr(lower)
	return &c, nil
}

func (r *PostgresAlarmConfigsRepository) GetAlarmConfig(ctx context.Context, id string) (*domain.AlarmConfig, error) {
	query := `SELECT ` + alarmConfigColumns + ` FROM remote_alarm_config WHERE id = $1`
	c, err := scanAlarmConfig(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, queryError(err, "alarm config "+id)
	}
	return c, nil
}

func (r *PostgresAlarmConfigsRepository) GetAlarmConfigByCode(ctx context.Context, code string) (*domain.AlarmConfig, error) {
	query := `SELECT ` + alarmConfigColumns + ` FROM remote_alarm_config WHERE alarm_code = $1`
	c, err := scanAlarmConfig(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		return nil, queryError(err, "alarm config code "+code)
	}
	return c, nil
}

func (r *PostgresAlarmConfigsRepository) ListAlarmConfigs(ctx context.Context, filter AlarmConfigFilter) ([]*domain.AlarmConfig, error) {
	var w whereBuilder
	if filter.DataPointID != "" {
		w.add("data_point_id = ?", filter.DataPointID)
	}
	if filter.Keyword != "" {
		w.add("(alarm_code ILIKE ? OR alarm_name ILIKE ?)", likePattern(filter.Keyword))
	}
	if filter.EnabledOnly {
		w.addRaw("enabled = TRUE")
	}
	query := `SELECT ` + alarmConfigColumns + ` FROM remote_alarm_config` + w.sql() + ` ORDER BY alarm_code`
	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alarm configs: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.AlarmConfig, 0)
	for rows.Next() {
		c, err := scanAlarmConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alarm config: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresAlarmConfigsRepository) CreateAlarmConfig(ctx context.Context, c *domain.AlarmConfig) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	query := `
		INSERT INTO remote_alarm_config (
			id, alarm_code, alarm_name, data_point_id, alarm_type, alarm_level,
			upper_limit, lower_limit, deadband, delay_seconds, alarm_message_template,
			enabled, notify_enabled, notify_method, notify_receivers, remark
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		c.ID, c.AlarmCode, c.AlarmName, c.DataPointID, string(c.AlarmType), string(c.AlarmLevel),
		nullFloat(c.UpperLimit), nullFloat(c.LowerLimit), c.Deadband, c.DelaySeconds, c.AlarmMessageTemplate,
		c.Enabled, c.NotifyEnabled, c.NotifyMethod, c.NotifyReceivers, c.Remark,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return writeError(err, "alarm config "+c.AlarmCode)
	}
	return nil
}

func (r *PostgresAlarmConfigsRepository) UpdateAlarmConfig(ctx context.Context, c *domain.AlarmConfig) error {
	query := `
		UPDATE remote_alarm_config SET
			alarm_code = $2, alarm_name = $3, data_point_id = $4, alarm_type = $5, alarm_level = $6,
			upper_limit = $7, lower_limit = $8, deadband = $9, delay_seconds = $10, alarm_message_template = $11,
			enabled = $12, notify_enabled = $13, notify_method = $14, notify_receivers = $15, remark = $16,
			updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		c.ID, c.AlarmCode, c.AlarmName, c.DataPointID, string(c.AlarmType), string(c.AlarmLevel),
		nullFloat(c.UpperLimit), nullFloat(c.LowerLimit), c.Deadband, c.DelaySeconds, c.AlarmMessageTemplate,
		c.Enabled, c.NotifyEnabled, c.NotifyMethod, c.NotifyReceivers, c.Remark,
	)
	if err != nil {
		return writeError(err, "alarm config "+c.AlarmCode)
	}
	return expectAffected(res, "alarm config "+c.ID)
}

func (r *PostgresAlarmConfigsRepository) DeleteAlarmConfig(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM remote_alarm_config WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete alarm config: %w", err)
	}
	return expectAffected(res, "alarm config "+id)
}

// PostgresAlarmRecordsRepository 报警记录 Repository 实现
// 表上有部分唯一索引 (alarm_config_id) WHERE status = 'ACTIVE'，跨进程保证最多一条 ACTIVE
type PostgresAlarmRecordsRepository struct {
	db *sql.DB
}

func NewPostgresAlarmRecordsRepository(db *sql.DB) *PostgresAlarmRecordsRepository {
	return &PostgresAlarmRecordsRepository{db: db}
}

var _ AlarmRecordsRepository = (*PostgresAlarmRecordsRepository)(nil)

const alarmRecordColumns = `
	id::text, alarm_config_id::text, data_point_id::text, alarm_type, alarm_level,
	alarm_time, recovery_time, alarm_value, threshold_value, alarm_message, status,
	acknowledged_by_id, acknowledged_by_name, acknowledged_time, handle_remark`

func scanAlarmRecord(row rowScanner) (*domain.AlarmRecord, error) {
	var rec domain.AlarmRecord
	var recovery, ackTime sql.NullTime
	var threshold sql.NullFloat64
	var ackByID, ackByName, remark sql.NullString
	err := row.Scan(
		&rec.ID, &rec.AlarmConfigID, &rec.DataPointID, &rec.AlarmType, &rec.AlarmLevel,
		&rec.AlarmTime, &recovery, &rec.AlarmValue, &threshold, &rec.AlarmMessage, &rec.Status,
		&ackByID, &ackByName, &ackTime, &remark,
	)
	if err != nil {
		return nil, err
	}
	rec.RecoveryTime = timePtr(recovery)
	rec.ThresholdValue = floatPtr(threshold)
	rec.AcknowledgedByID = stringPtr(ackByID)
	rec.AcknowledgedByName = stringPtr(ackByName)
	rec.AcknowledgedTime = timePtr(ackTime)
	rec.HandleRemark = stringPtr(remark)
	return &rec, nil
}

func (r *PostgresAlarmRecordsRepository) CreateAlarmRecord(ctx context.Context, rec *domain.AlarmRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	query := `
		INSERT INTO remote_alarm_record (
			id, alarm_config_id, data_point_id, alarm_type, alarm_level,
			alarm_time, alarm_value, threshold_value, alarm_message, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.AlarmConfigID, rec.DataPointID, string(rec.AlarmType), string(rec.AlarmLevel),
		rec.AlarmTime, rec.AlarmValue, nullFloat(rec.ThresholdValue), rec.AlarmMessage, string(rec.Status),
	)
	if err != nil {
		return writeError(err, "active alarm record for config "+rec.AlarmConfigID)
	}
	return nil
}

func (r *PostgresAlarmRecordsRepository) GetAlarmRecord(ctx context.Context, id string) (*domain.AlarmRecord, error) {
	query := `SELECT ` + alarmRecordColumns + ` FROM remote_alarm_record WHERE id = $1`
	rec, err := scanAlarmRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, queryError(err, "alarm record "+id)
	}
	return rec, nil
}

func (r *PostgresAlarmRecordsRepository) FindActiveRecord(ctx context.Context, configID string) (*domain.AlarmRecord, error) {
	query := `SELECT ` + alarmRecordColumns + ` FROM remote_alarm_record WHERE alarm_config_id = $1 AND status = 'ACTIVE' LIMIT 1`
	rec, err := scanAlarmRecord(r.db.QueryRowContext(ctx, query, configID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no active record for alarm config %s: %w", configID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find active record: %w", err)
	}
	return rec, nil
}

func (r *PostgresAlarmRecordsRepository) UpdateAlarmRecord(ctx context.Context, rec *domain.AlarmRecord) error {
	query := `
		UPDATE remote_alarm_record SET
			status = $2, recovery_time = $3, acknowledged_by_id = $4, acknowledged_by_name = $5,
			acknowledged_time = $6, handle_remark = $7
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		rec.ID, string(rec.Status), nullTime(rec.RecoveryTime), nullString(rec.AcknowledgedByID), nullString(rec.AcknowledgedByName),
		nullTime(rec.AcknowledgedTime), nullString(rec.HandleRemark),
	)
	if err != nil {
		return fmt.Errorf("failed to update alarm record: %w", err)
	}
	return expectAffected(res, "alarm record "+rec.ID)
}

func (r *PostgresAlarmRecordsRepository) ListAlarmRecords(ctx context.Context, filter AlarmRecordFilter) ([]*domain.AlarmRecord, error) {
	var w whereBuilder
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	if filter.DataPointID != "" {
		w.add("data_point_id = ?", filter.DataPointID)
	}
	if filter.AlarmConfigID != "" {
		w.add("alarm_config_id = ?", filter.AlarmConfigID)
	}
	if filter.From != nil {
		w.add("alarm_time >= ?", *filter.From)
	}
	if filter.To != nil {
		w.add("alarm_time <= ?", *filter.To)
	}
	query := `SELECT ` + alarmRecordColumns + ` FROM remote_alarm_record` + w.sql() + ` ORDER BY alarm_time DESC`
	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alarm records: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.AlarmRecord, 0)
	for rows.Next() {
		rec, err := scanAlarmRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alarm record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
