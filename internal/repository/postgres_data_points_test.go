package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/zhangfangjin/Integrated-marketing-and-service-management-system-sub000/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDataPointsDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresDataPointsRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresDataPointsRepository(db)
}

var dataPointRowColumns = []string{
	"id", "point_code", "point_name", "point_type", "data_type", "meter_id", "unit",
	"multiplier", "collection_mode", "collection_interval", "decimal_precision",
	"min_value", "max_value", "protocol", "comm_address", "register_address",
	"current_value", "last_collection_time", "enabled", "alarm_enabled", "remark",
	"created_at", "updated_at",
}

func TestGetDataPoint_Success(t *testing.T) {
	db, mock, repo := setupMockDataPointsDB(t)
	defer db.Close()

	ctx := context.Background()
	id := uuid.New().String()
	now := time.Now()

	rows := sqlmock.NewRows(dataPointRowColumns).AddRow(
		id, "TEMP-001", "1#变压器温度", "REAL", "ANALOG", nil, "℃",
		1.0, "POLLING", 60, 2,
		nil, 150.0, "MODBUS", "192.168.1.10", "40001",
		85.5, now, true, true, "",
		now, now,
	)
	mock.ExpectQuery(`SELECT`).WithArgs(id).WillReturnRows(rows)

	p, err := repo.GetDataPoint(ctx, id)

	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "TEMP-001", p.PointCode)
	assert.Equal(t, domain.PointTypeReal, p.PointType)
	assert.Equal(t, domain.CollectionPolling, p.CollectionMode)
	assert.Nil(t, p.MeterID)
	assert.Nil(t, p.MinValue)
	require.NotNil(t, p.MaxValue)
	assert.Equal(t, 150.0, *p.MaxValue)
	require.NotNil(t, p.CurrentValue)
	assert.Equal(t, 85.5, *p.CurrentValue)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDataPoint_NotFound(t *testing.T) {
	db, mock, repo := setupMockDataPointsDB(t)
	defer db.Close()

	id := uuid.New().String()
	mock.ExpectQuery(`SELECT`).WithArgs(id).WillReturnError(sql.ErrNoRows)

	p, err := repo.GetDataPoint(context.Background(), id)

	assert.Nil(t, p)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDataPoint_DuplicateCode(t *testing.T) {
	db, mock, repo := setupMockDataPointsDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO remote_data_point`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "remote_data_point_point_code_key"})

	p := &domain.DataPoint{PointCode: "TEMP-001", PointName: "dup"}
	p.ApplyDefaults()
	err := repo.CreateDataPoint(context.Background(), p)

	assert.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCurrentValue(t *testing.T) {
	db, mock, repo := setupMockDataPointsDB(t)
	defer db.Close()

	id := uuid.New().String()
	at := time.Now()
	mock.ExpectExec(`UPDATE remote_data_point`).
		WithArgs(id, 42.0, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateCurrentValue(context.Background(), id, 42.0, at)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCurrentValue_NotFound(t *testing.T) {
	db, mock, repo := setupMockDataPointsDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE remote_data_point`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateCurrentValue(context.Background(), "missing", 1, time.Now())

	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDataPoints_Filter(t *testing.T) {
	db, mock, repo := setupMockDataPointsDB(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(dataPointRowColumns).AddRow(
		uuid.New().String(), "VM-001", "总用电量", "VIRTUAL", "CUMULATIVE", nil, "kWh",
		1.0, "REALTIME", 60, 2,
		nil, nil, "", "", "",
		nil, nil, true, false, "",
		now, now,
	)
	mock.ExpectQuery(`SELECT .* FROM remote_data_point WHERE point_type = \$1 AND enabled = TRUE ORDER BY point_code`).
		WithArgs("VIRTUAL").
		WillReturnRows(rows)

	list, err := repo.ListDataPoints(context.Background(), DataPointFilter{PointType: domain.PointTypeVirtual, EnabledOnly: true})

	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.PointTypeVirtual, list[0].PointType)
	assert.Nil(t, list[0].CurrentValue)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSamples(t *testing.T) {
	db, mock, _ := setupMockDataPointsDB(t)
	defer db.Close()
	repo := NewPostgresSamplesRepository(db)

	pointID := uuid.New().String()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)

	rows := sqlmock.NewRows([]string{
		"id", "data_point_id", "collection_time", "value", "raw_value", "quality", "source",
		"input_by_id", "input_by_name", "remark", "created_at",
	}).
		AddRow(uuid.New().String(), pointID, from, 10.0, 10.0, "GOOD", "AUTO", nil, nil, "", from).
		AddRow(uuid.New().String(), pointID, to, 12.0, 12.0, "GOOD", "MANUAL", "u1", "张三", "补录", to)

	mock.ExpectQuery(`SELECT .* FROM remote_device_running_data`).
		WithArgs(pointID, from, to).
		WillReturnRows(rows)

	list, err := repo.ListSamples(context.Background(), pointID, from, to)

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 10.0, list[0].Value)
	assert.Equal(t, domain.SourceManual, list[1].Source)
	require.NotNil(t, list[1].InputByName)
	assert.Equal(t, "张三", *list[1].InputByName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindStatistics_EmptyPoints(t *testing.T) {
	db, mock, _ := setupMockDataPointsDB(t)
	defer db.Close()
	repo := NewPostgresStatisticsRepository(db)

	list, err := repo.FindStatistics(context.Background(), nil, domain.PeriodHourly, time.Now(), time.Now())

	require.NoError(t, err)
	assert.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindStatistics(t *testing.T) {
	db, mock, _ := setupMockDataPointsDB(t)
	defer db.Close()
	repo := NewPostgresStatisticsRepository(db)

	pointID := uuid.New().String()
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "data_point_id", "statistics_period", "statistics_date", "hour_of_day", "week_of_year",
		"start_time", "end_time", "avg_value", "max_value", "max_value_time", "min_value", "min_value_time",
		"sum_value", "data_count",
	}).AddRow(
		uuid.New().String(), pointID, "HOURLY", day, 8, nil,
		day.Add(8*time.Hour), day.Add(9*time.Hour), 20.0, 25.0, nil, 15.0, nil,
		nil, 60,
	)
	mock.ExpectQuery(`FROM remote_data_statistics`).
		WithArgs(pq.Array([]string{pointID}), "HOURLY", "2024-03-05", "2024-03-05").
		WillReturnRows(rows)

	list, err := repo.FindStatistics(context.Background(), []string{pointID}, domain.PeriodHourly, day, day)

	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].HourOfDay)
	assert.Equal(t, 8, *list[0].HourOfDay)
	assert.Equal(t, 20.0, list[0].AvgValue)
	assert.Nil(t, list[0].SumValue)
	require.NoError(t, mock.ExpectationsWereMet())
}
