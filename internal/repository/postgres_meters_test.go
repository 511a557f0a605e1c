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

func setupMockMetersDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresMetersRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresMetersRepository(db)
}

var meterRowColumns = []string{
	"id", "meter_code", "meter_name", "meter_type", "meter_function", "meter_model", "meter_unit",
	"multiplier", "install_location", "install_date", "space_node_id", "device_id",
	"protocol", "comm_address", "enabled", "remark", "created_at", "updated_at",
}

func TestGetMeter_Success(t *testing.T) {
	db, mock, repo := setupMockMetersDB(t)
	defer db.Close()

	id := uuid.New().String()
	nodeID := uuid.New().String()
	installed := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	now := time.Now()
	rows := sqlmock.NewRows(meterRowColumns).AddRow(
		id, "EM-001", "1#楼总电表", "ELECTRIC", "总进线计量", "DTSD1352", "kWh",
		80.0, "1#楼配电室", installed, nodeID, nil,
		"MODBUS", "192.168.1.20", true, "",
		now, now,
	)
	mock.ExpectQuery(`SELECT`).WithArgs(id).WillReturnRows(rows)

	m, err := repo.GetMeter(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, "EM-001", m.MeterCode)
	assert.Equal(t, domain.MeterElectric, m.MeterType)
	assert.Equal(t, 80.0, m.Multiplier)
	require.NotNil(t, m.InstallDate)
	assert.True(t, installed.Equal(*m.InstallDate))
	require.NotNil(t, m.SpaceNodeID)
	assert.Equal(t, nodeID, *m.SpaceNodeID)
	assert.Nil(t, m.DeviceID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMeter_NotFound(t *testing.T) {
	db, mock, repo := setupMockMetersDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	m, err := repo.GetMeter(context.Background(), "missing")

	assert.Nil(t, m)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListMeters_Filter(t *testing.T) {
	db, mock, repo := setupMockMetersDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM remote_meter WHERE meter_type = \$1 AND space_node_id = \$2 AND enabled = TRUE ORDER BY meter_code`).
		WithArgs("WATER", "node-1").
		WillReturnRows(sqlmock.NewRows(meterRowColumns))

	list, err := repo.ListMeters(context.Background(), MeterFilter{MeterType: domain.MeterWater, SpaceNodeID: "node-1", EnabledOnly: true})

	require.NoError(t, err)
	assert.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMeter_DuplicateCode(t *testing.T) {
	db, mock, repo := setupMockMetersDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO remote_meter`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "remote_meter_meter_code_key"})

	err := repo.CreateMeter(context.Background(), &domain.Meter{MeterCode: "EM-001", MeterName: "dup", MeterType: domain.MeterElectric, Multiplier: 1})

	assert.ErrorIs(t, err, domain.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMeter_RemovesChildren(t *testing.T) {
	db, mock, repo := setupMockMetersDB(t)
	defer db.Close()

	id := uuid.New().String()
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM remote_meter_attribute`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM remote_meter_measurement`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE FROM remote_meter WHERE`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteMeter(context.Background(), id))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMeter_NotFoundRollsBack(t *testing.T) {
	db, mock, repo := setupMockMetersDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM remote_meter_attribute`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM remote_meter_measurement`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM remote_meter WHERE`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.DeleteMeter(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceMeterMeasurements(t *testing.T) {
	db, mock, repo := setupMockMetersDB(t)
	defer db.Close()

	meterID := uuid.New().String()
	pointID := uuid.New().String()
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM remote_meter_measurement`).WithArgs(meterID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO remote_meter_measurement`).
		WithArgs(sqlmock.AnyArg(), meterID, "瞬时流量", "FLOW", "ANALOG", "m³/h",
			3, nil, 500.0, pointID, 1, true, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	maxFlow := 500.0
	items := []*domain.MeterMeasurement{{
		MeasurementName: "瞬时流量",
		MeasurementCode: "FLOW",
		MeasurementType: domain.MeasurementAnalog,
		Unit:            "m³/h",
		Precision:       3,
		MaxValue:        &maxFlow,
		DataPointID:     &pointID,
		SortOrder:       1,
		Enabled:         true,
	}}
	require.NoError(t, repo.ReplaceMeterMeasurements(context.Background(), meterID, items))
	assert.NotEmpty(t, items[0].ID)
	assert.Equal(t, meterID, items[0].MeterID)
	require.NoError(t, mock.ExpectationsWereMet())
}
