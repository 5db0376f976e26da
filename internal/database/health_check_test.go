package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheckerHealthy(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()

	hc := NewHealthChecker(db)
	result := hc.Check(context.Background())

	assert.True(t, result.Healthy)
	assert.Empty(t, result.LastError)
	assert.True(t, hc.IsHealthy())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthCheckerUnhealthy(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillReturnError(assert.AnError)

	hc := NewHealthChecker(db)
	result := hc.Check(context.Background())

	assert.False(t, result.Healthy)
	assert.NotEmpty(t, result.LastError)
	assert.False(t, hc.IsHealthy())
}
