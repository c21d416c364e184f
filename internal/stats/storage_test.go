package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := NewFileStorage(fs, "data/stats.json")

	data, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, s.Save(ctx, []byte(`{"a":{}}`)))
	data, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{}}`, string(data))

	exists, err := afero.Exists(fs, "data/stats.json.tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileStorage_ReadOnly(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	s := NewFileStorage(fs, "stats.json")
	assert.Error(t, s.Save(context.Background(), []byte("{}")))
}

func TestRedisStorage(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStorage(client, "")
	data, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, s.Save(ctx, []byte(`{"bob":{}}`)))
	got, err := mr.Get(DefaultRedisKey)
	require.NoError(t, err)
	assert.Equal(t, `{"bob":{}}`, got)

	data, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"bob":{}}`, string(data))
}

func TestPostgresStorage(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresStorage(db)

	mock.ExpectQuery("SELECT data FROM stats_snapshots").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))
	mock.ExpectExec("INSERT INTO stats_snapshots").
		WithArgs(`{"carol":{}}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT data FROM stats_snapshots").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow([]byte(`{"carol":{}}`)))
	mock.ExpectExec("INSERT INTO stats_snapshots").
		WillReturnError(errors.New("read-only transaction"))

	data, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, s.Save(ctx, []byte(`{"carol":{}}`)))

	data, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"carol":{}}`, string(data))

	assert.Error(t, s.Save(ctx, []byte(`{}`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
