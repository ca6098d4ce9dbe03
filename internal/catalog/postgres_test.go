package catalog

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mmcloughlin/geohash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magick-workers/internal/common/logger"
	"magick-workers/internal/models"
)

var businessColumns = []string{"id", "name", "city", "neighborhood", "lat", "lng", "radius_km", "source", "tags", "url"}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestPostgresStore_Load(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db, logger.NewTestLogger(t))

	rows := sqlmock.NewRows(businessColumns).
		AddRow("a", "River Tower", "Jacksonville", "Southbank", 30.3178, -81.6587, 25.0, "local-sponsor", []byte(`["outdoor","entertainment"]`), "https://a").
		AddRow("b", "No Coords", "Tampa", "", nil, nil, 0.0, "viator", []byte(`not json`), "https://b")
	mock.ExpectQuery(`SELECT id, name, city, neighborhood, lat, lng, radius_km, source, tags, url FROM businesses WHERE deleted = false`).
		WillReturnRows(rows)

	businesses, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, businesses, 2)

	assert.Equal(t, "River Tower", businesses[0].Name)
	require.NotNil(t, businesses[0].Coord)
	assert.Equal(t, 30.3178, businesses[0].Coord.Lat)
	assert.Equal(t, []string{"outdoor", "entertainment"}, businesses[0].Tags)

	assert.Nil(t, businesses[1].Coord)
	assert.Equal(t, []string{}, businesses[1].Tags)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadEmpty(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db, logger.NewNoOpLogger())

	mock.ExpectQuery(`FROM businesses`).WillReturnRows(sqlmock.NewRows(businessColumns))

	businesses, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, businesses)
	assert.Empty(t, businesses)
}

func TestPostgresStore_LoadError(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db, logger.NewNoOpLogger())

	mock.ExpectQuery(`FROM businesses`).WillReturnError(errors.New("connection refused"))

	_, err := store.Load(context.Background())
	assert.ErrorContains(t, err, "query businesses")
	assert.ErrorContains(t, err, "connection refused")
}

func TestPostgresStore_Upsert(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db, logger.NewTestLogger(t))

	businesses := []models.Business{
		{ID: "a", Name: "River Tower", City: "Jacksonville", Coord: &models.GeoCoordinate{Lat: 30.3178, Lng: -81.6587}, Source: "local-sponsor", Tags: []string{"outdoor"}},
		{ID: "b", Name: "Online Class", Source: "fever"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO businesses`).
		WithArgs("a", "River Tower", "Jacksonville", "", 30.3178, -81.6587, 0.0, "local-sponsor", `["outdoor"]`, "",
			geohash.EncodeWithPrecision(30.3178, -81.6587, GeohashPrecision)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO businesses`).
		WithArgs("b", "Online Class", "", "", nil, nil, 0.0, "fever", `[]`, "", nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := store.Upsert(context.Background(), businesses)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertRollsBack(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db, logger.NewNoOpLogger())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO businesses`).WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	_, err := store.Upsert(context.Background(), []models.Business{{ID: "a", Name: "A"}})
	assert.ErrorContains(t, err, "upsert business a")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	db, mock := setupMockDB(t)
	store := NewPostgresStore(db, logger.NewNoOpLogger())

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS businesses`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
