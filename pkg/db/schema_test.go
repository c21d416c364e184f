package db

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitAllTables(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS highscores").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, InitAllTables(context.Background(), conn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDropAllTables(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("DROP TABLE IF EXISTS stats_snapshots").
		WillReturnError(errors.New("permission denied"))

	assert.Error(t, DropAllTables(context.Background(), conn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaCoversTables(t *testing.T) {
	for _, table := range Tables {
		assert.Contains(t, CreateAllTablesSQL, "CREATE TABLE IF NOT EXISTS "+table)
		assert.Contains(t, DropAllTablesSQL, "DROP TABLE IF EXISTS "+table)
	}
}
