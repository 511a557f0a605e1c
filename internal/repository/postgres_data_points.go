package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresDataPointsRepository 数据点 Repository 实现
type PostgresDataPointsRepository struct {
	db *sql.DB
}

func NewPostgresDataPointsRepository(db *sql.DB) *PostgresDataPointsRepository {
	return &PostgresDataPointsRepository{db: db}
}

// 确保实现了接口
var _ DataPointsRepository = (*PostgresDataPointsRepository)(nil)

const dataPointColumns = `
	id::text, point_code, point_name, point_type, data_type, meter_id, unit,
	multiplier, collection_mode, collection_interval, decimal_precision,
	min_value, max_value, protocol, comm_address, register_address,
	current_value, last_collection_time, enabled, alarm_enabled, remark,
	created_at, updated_at`

func scanDataPoint(row rowScanner) (*domain.DataPoint, error) {
	var p domain.DataPoint
	var meterID sql.NullString
	var minValue, maxValue, currentValue sql.NullFloat64
	var lastCollection sql.NullTime
	err := row.Scan(
		&p.ID, &p.PointCode, &p.PointName, &p.PointType, &p.DataType, &meterID, &p.Unit,
		&p.Multiplier, &p.CollectionMode, &p.CollectionInterval, &p.Precision,
		&minValue, &maxValue, &p.Protocol, &p.CommAddress, &p.RegisterAddress,
		&currentValue, &lastCollection, &p.Enabled, &p.AlarmEnabled, &p.Remark,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.MeterID = stringPtr(meterID)
	p.MinValue = floatPtr(minValue)
	p.MaxValue = floatPtr(maxValue)
	p.CurrentValue = floatPtr(currentValue)
	p.LastCollectionTime = timePtr(lastCollection)
	return &p, nil
}

func (r *PostgresDataPointsRepository) GetDataPoint(ctx context.Context, id string) (*domain.DataPoint, error) {
	query := `SELECT ` + dataPointColumns + ` FROM remote_data_point WHERE id = $1`
	p, err := scanDataPoint(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, queryError(err, "data point "+id)
	}
	return p, nil
}

func (r *PostgresDataPointsRepository) GetDataPointByCode(ctx context.Context, code string) (*domain.DataPoint, error) {
	query := `SELECT ` + dataPointColumns + ` FROM remote_data_point WHERE point_code = $1`
	p, err := scanDataPoint(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		return nil, queryError(err, "data point code "+code)
	}
	return p, nil
}

func (r *PostgresDataPointsRepository) ListDataPoints(ctx context.Context, filter DataPointFilter) ([]*domain.DataPoint, error) {
	var w whereBuilder
	if len(filter.IDs) > 0 {
		w.add("id::text = ANY(?)", pq.Array(filter.IDs))
	}
	if filter.Keyword != "" {
		w.add("(point_code ILIKE ? OR point_name ILIKE ?)", likePattern(filter.Keyword))
	}
	if filter.PointType != "" {
		w.add("point_type = ?", string(filter.PointType))
	}
	if filter.MeterID != "" {
		w.add("meter_id = ?", filter.MeterID)
	}
	if filter.CollectionMode != "" {
		w.add("collection_mode = ?", string(filter.CollectionMode))
	}
	if filter.EnabledOnly {
		w.addRaw("enabled = TRUE")
	}

	query := `SELECT ` + dataPointColumns + ` FROM remote_data_point` + w.sql() + ` ORDER BY point_code`
	rows, err := r.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list data points: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.DataPoint, 0)
	for rows.Next() {
		p, err := scanDataPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan data point: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresDataPointsRepository) CreateDataPoint(ctx context.Context, p *domain.DataPoint) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	query := `
		INSERT INTO remote_data_point (
			id, point_code, point_name, point_type, data_type, meter_id, unit,
			multiplier, collection_mode, collection_interval, decimal_precision,
			min_value, max_value, protocol, comm_address, register_address,
			enabled, alarm_enabled, remark
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.PointCode, p.PointName, string(p.PointType), string(p.DataType), nullString(p.MeterID), p.Unit,
		p.Multiplier, string(p.CollectionMode), p.CollectionInterval, p.Precision,
		nullFloat(p.MinValue), nullFloat(p.MaxValue), p.Protocol, p.CommAddress, p.RegisterAddress,
		p.Enabled, p.AlarmEnabled, p.Remark,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return writeError(err, "data point "+p.PointCode)
	}
	return nil
}

func (r *PostgresDataPointsRepository) UpdateDataPoint(ctx context.Context, p *domain.DataPoint) error {
	query := `
		UPDATE remote_data_point SET
			point_code = $2, point_name = $3, point_type = $4, data_type = $5, meter_id = $6, unit = $7,
			multiplier = $8, collection_mode = $9, collection_interval = $10, decimal_precision = $11,
			min_value = $12, max_value = $13, protocol = $14, comm_address = $15, register_address = $16,
			enabled = $17, alarm_enabled = $18, remark = $19, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		p.ID, p.PointCode, p.PointName, string(p.PointType), string(p.DataType), nullString(p.MeterID), p.Unit,
		p.Multiplier, string(p.CollectionMode), p.CollectionInterval, p.Precision,
		nullFloat(p.MinValue), nullFloat(p.MaxValue), p.Protocol, p.CommAddress, p.RegisterAddress,
		p.Enabled, p.AlarmEnabled, p.Remark,
	)
	if err != nil {
		return writeError(err, "data point "+p.PointCode)
	}
	return expectAffected(res, "data point "+p.ID)
}

func (r *PostgresDataPointsRepository) DeleteDataPoint(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM remote_data_point WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete data point: %w", err)
	}
	return expectAffected(res, "data point "+id)
}

func (r *PostgresDataPointsRepository) UpdateCurrentValue(ctx context.Context, id string, value float64, at time.Time) error {
	query := `
		UPDATE remote_data_point
		SET current_value = $2, last_collection_time = $3, updated_at = NOW()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, id, value, at)
	if err != nil {
		return fmt.Errorf("failed to update current value: %w", err)
	}
	return expectAffected(res, "data point "+id)
}

// PostgresSamplesRepository 运行数据 Repository 实现
type PostgresSamplesRepository struct {
	db *sql.DB
}

func NewPostgresSamplesRepository(db *sql.DB) *PostgresSamplesRepository {
	return &PostgresSamplesRepository{db: db}
}

var _ SamplesRepository = (*PostgresSamplesRepository)(nil)

const sampleColumns = `
	id::text, data_point_id::text, collection_time, value, raw_value, quality, source,
	input_by_id, input_by_name, remark, created_at`

func scanSample(row rowScanner) (*domain.Sample, error) {
	var s domain.Sample
	var inputByID, inputByName sql.NullString
	err := row.Scan(
		&s.ID, &s.DataPointID, &s.CollectionTime, &s.Value, &s.RawValue, &s.Quality, &s.Source,
		&inputByID, &inputByName, &s.Remark, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.InputByID = stringPtr(inputByID)
	s.InputByName = stringPtr(inputByName)
	return &s, nil
}

func (r *PostgresSamplesRepository) AppendSample(ctx context.Context, s *domain.Sample) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	query := `
		INSERT INTO remote_device_running_data (
			id, data_point_id, collection_time, value, raw_value, quality, source,
			input_by_id, input_by_name, remark
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		s.ID, s.DataPointID, s.CollectionTime, s.Value, s.RawValue, string(s.Quality), string(s.Source),
		nullString(s.InputByID), nullString(s.InputByName), s.Remark,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append sample: %w", err)
	}
	return nil
}

func (r *PostgresSamplesRepository) ListSamples(ctx context.Context, pointID string, from, to time.Time) ([]*domain.Sample, error) {
	query := `
		SELECT ` + sampleColumns + `
		FROM remote_device_running_data
		WHERE data_point_id = $1 AND collection_time BETWEEN $2 AND $3
		ORDER BY collection_time ASC
	`
	rows, err := r.db.QueryContext(ctx, query, pointID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Sample, 0)
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresSamplesRepository) LatestSample(ctx context.Context, pointID string) (*domain.Sample, error) {
	query := `
		SELECT ` + sampleColumns + `
		FROM remote_device_running_data
		WHERE data_point_id = $1
		ORDER BY collection_time DESC
		LIMIT 1
	`
	s, err := scanSample(r.db.QueryRowContext(ctx, query, pointID))
	if err != nil {
		return nil, queryError(err, "latest sample of data point "+pointID)
	}
	return s, nil
}

// PostgresStatisticsRepository 统计数据 Repository 实现（只读）
type PostgresStatisticsRepository struct {
	db *sql.DB
}

func NewPostgresStatisticsRepository(db *sql.DB) *PostgresStatisticsRepository {
	return &PostgresStatisticsRepository{db: db}
}

var _ StatisticsRepository = (*PostgresStatisticsRepository)(nil)

func (r *PostgresStatisticsRepository) FindStatistics(ctx context.Context, pointIDs []string, period domain.StatisticsPeriod, startDate, endDate time.Time) ([]*domain.DataStatistics, error) {
	if len(pointIDs) == 0 {
		return []*domain.DataStatistics{}, nil
	}
	query := `
		SELECT
			id::text, data_point_id::text, statistics_period, statistics_date, hour_of_day, week_of_year,
			start_time, end_time, avg_value, max_value, max_value_time, min_value, min_value_time,
			sum_value, data_count
		FROM remote_data_statistics
		WHERE data_point_id::text = ANY($1)
		  AND statistics_period = $2
		  AND statistics_date BETWEEN $3::date AND $4::date
		ORDER BY data_point_id, statistics_date, hour_of_day NULLS FIRST
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(pointIDs), string(period),
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.DataStatistics, 0)
	for rows.Next() {
		var s domain.DataStatistics
		var hour, week sql.NullInt64
		var maxTime, minTime sql.NullTime
		var sum sql.NullFloat64
		if err := rows.Scan(
			&s.ID, &s.DataPointID, &s.StatisticsPeriod, &s.StatisticsDate, &hour, &week,
			&s.StartTime, &s.EndTime, &s.AvgValue, &s.MaxValue, &maxTime, &s.MinValue, &minTime,
			&sum, &s.DataCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan statistics: %w", err)
		}
		s.HourOfDay = intPtr(hour)
		s.WeekOfYear = intPtr(week)
		s.MaxValueTime = timePtr(maxTime)
		s.MinValueTime = timePtr(minTime)
		s.SumValue = floatPtr(sum)
		out = append(out, &s)
	}
	return out, rows.Err()
}
