package container

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"scifig/adapters/memory"
	"scifig/adapters/postgres"
	"scifig/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Engine: config.DefaultEngineConfig(),
		Server: config.ServerConfig{Port: "0", BatchWorkers: 2},
	}
}

func TestNewDefaultsToMemory(t *testing.T) {
	c, err := New(testConfig(), zerolog.Nop())
	require.NoError(t, err)

	assert.IsType(t, &memory.AnalysisRepository{}, c.Repository)
	assert.NotNil(t, c.Engine)
	assert.NoError(t, c.Connect(context.Background()), "no DATABASE_URL keeps memory storage")
	assert.Nil(t, c.DB)
	assert.NoError(t, c.Shutdown())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(nil, zerolog.Nop())
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Engine.Alpha = 2
	_, err = New(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestInitWithDatabase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	mock.ExpectPing()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("001"))
	mock.ExpectClose()

	c, err := New(testConfig(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, c.InitWithDatabase(context.Background(), sqlx.NewDb(db, "postgres")))

	assert.IsType(t, &postgres.AnalysisRepository{}, c.Repository)
	require.NoError(t, c.Shutdown())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitWithDatabasePingFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(assert.AnError)

	c, err := New(testConfig(), zerolog.Nop())
	require.NoError(t, err)
	err = c.InitWithDatabase(context.Background(), sqlx.NewDb(db, "postgres"))
	require.Error(t, err)
	assert.IsType(t, &memory.AnalysisRepository{}, c.Repository, "storage unchanged on failure")
}

func TestWebAPIServesHealth(t *testing.T) {
	c, err := New(testConfig(), zerolog.Nop())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	c.WebAPI().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
