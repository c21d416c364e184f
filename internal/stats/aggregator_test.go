package stats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacl-coder/RPS-Server/internal/models"
)

// memStorage 内存存储，可注入写入错误
type memStorage struct {
	data    []byte
	loadErr error
	saveErr error
	saves   int
}

func (m *memStorage) Load(context.Context) ([]byte, error) {
	return m.data, m.loadErr
}

func (m *memStorage) Save(_ context.Context, data []byte) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestAggregator_RecordNewUser(t *testing.T) {
	ctx := context.Background()
	storage := &memStorage{}
	agg := NewAggregator(storage)

	st, err := agg.Record(ctx, "alice", models.OutcomeWin, 1)
	require.NoError(t, err)

	assert.Equal(t, 1, st.TotalGames)
	assert.Equal(t, 1, st.Wins)
	assert.Equal(t, 1, st.TotalPoints)
	assert.Equal(t, 100.0, st.WinRate)
	assert.Equal(t, 1.0, st.AveragePointsPerGame)
	assert.Equal(t, 1, storage.saves)
}

func TestAggregator_StreaksAndCounters(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregator(&memStorage{})

	sequence := []struct {
		outcome models.Outcome
		points  int
	}{
		{models.OutcomeWin, 1},
		{models.OutcomeWin, 1},
		{models.OutcomeDraw, 0},
		{models.OutcomeWin, 1},
		{models.OutcomeLose, -1},
		{models.OutcomeWin, 1},
	}

	var st models.PlayerStatistics
	for _, r := range sequence {
		var err error
		st, err = agg.Record(ctx, "bob", r.outcome, r.points)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, st.LongestWinStreak, st.CurrentStreak)
		assert.Equal(t, st.TotalGames, st.Wins+st.Losses+st.Draws)
		assert.GreaterOrEqual(t, st.WinRate, 0.0)
		assert.LessOrEqual(t, st.WinRate, 100.0)
	}

	assert.Equal(t, 6, st.TotalGames)
	assert.Equal(t, 4, st.Wins)
	assert.Equal(t, 1, st.Losses)
	assert.Equal(t, 1, st.Draws)
	assert.Equal(t, 3, st.TotalPoints)
	assert.Equal(t, 1, st.CurrentStreak)
	// 平局不打断连胜，败局才清零
	assert.Equal(t, 3, st.LongestWinStreak)
	assert.InDelta(t, 66.666, st.WinRate, 0.01)
	assert.InDelta(t, 0.5, st.AveragePointsPerGame, 1e-9)
}

func TestAggregator_LossResetsStreak(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregator(&memStorage{})

	_, _ = agg.Record(ctx, "carol", models.OutcomeWin, 1)
	_, _ = agg.Record(ctx, "carol", models.OutcomeWin, 1)
	st, err := agg.Record(ctx, "carol", models.OutcomeLose, -1)
	require.NoError(t, err)

	assert.Equal(t, 0, st.CurrentStreak)
	assert.Equal(t, 2, st.LongestWinStreak)
}

func TestAggregator_LastPlayed(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregator(&memStorage{})
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	agg.now = fixedClock(at)

	st, err := agg.Record(ctx, "dave", models.OutcomeDraw, 0)
	require.NoError(t, err)
	assert.Equal(t, at, st.LastPlayed)
	assert.Equal(t, 0.0, st.WinRate)
}

func TestAggregator_SaveFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	storage := &memStorage{saveErr: errors.New("disk full")}
	agg := NewAggregator(storage)

	_, err := agg.Record(ctx, "erin", models.OutcomeWin, 1)
	require.Error(t, err)

	st, ok := agg.Get("erin")
	require.True(t, ok)
	assert.Equal(t, 1, st.Wins)

	// 恢复后下一次写入带上之前的数据
	storage.saveErr = nil
	_, err = agg.Record(ctx, "erin", models.OutcomeWin, 1)
	require.NoError(t, err)

	var saved map[string]models.PlayerStatistics
	require.NoError(t, json.Unmarshal(storage.data, &saved))
	assert.Equal(t, 2, saved["erin"].Wins)
}

func TestAggregator_Reset(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregator(&memStorage{})

	_, _ = agg.Record(ctx, "frank", models.OutcomeWin, 1)
	_, _ = agg.Record(ctx, "grace", models.OutcomeLose, -1)

	st, err := agg.Reset(ctx, "frank")
	require.NoError(t, err)
	assert.Equal(t, 0, st.TotalGames)
	assert.Equal(t, 0.0, st.WinRate)

	other, ok := agg.Get("grace")
	require.True(t, ok)
	assert.Equal(t, 1, other.Losses)

	_, err = agg.Reset(ctx, "")
	assert.ErrorIs(t, err, ErrEmptyUsername)
}

func TestAggregator_EmptyUsername(t *testing.T) {
	agg := NewAggregator(&memStorage{})
	_, err := agg.Record(context.Background(), "", models.OutcomeWin, 1)
	assert.ErrorIs(t, err, ErrEmptyUsername)
}

func TestAggregator_InvalidOutcomePanics(t *testing.T) {
	agg := NewAggregator(&memStorage{})
	assert.Panics(t, func() {
		_, _ = agg.Record(context.Background(), "alice", models.Outcome(42), 0)
	})
}

func TestAggregator_Load(t *testing.T) {
	ctx := context.Background()
	storage := &memStorage{data: []byte(`{"alice":{"total_games":3,"wins":2,"losses":1,"current_streak":0,"longest_win_streak":2}}`)}
	agg := NewAggregator(storage)

	require.NoError(t, agg.Load(ctx))
	st, ok := agg.Get("alice")
	require.True(t, ok)
	assert.Equal(t, "alice", st.Username)
	assert.Equal(t, 3, st.TotalGames)

	st, err := agg.Record(ctx, "alice", models.OutcomeWin, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, st.TotalGames)
	assert.Equal(t, 75.0, st.WinRate)
}

func TestAggregator_LoadMalformed(t *testing.T) {
	storage := &memStorage{data: []byte("{not json")}
	agg := NewAggregator(storage)

	require.NoError(t, agg.Load(context.Background()))
	assert.Empty(t, agg.All())
}

func TestAggregator_LoadNullBlob(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "data/stats.json", []byte("null"), 0o644))

	agg := NewAggregator(NewFileStorage(fs, "data/stats.json"))
	require.NoError(t, agg.Load(ctx))
	assert.Empty(t, agg.All())

	st, err := agg.Record(ctx, "alice", models.OutcomeWin, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalGames)
}

func TestAggregator_LoadFailure(t *testing.T) {
	agg := NewAggregator(&memStorage{loadErr: errors.New("unreachable")})
	assert.Error(t, agg.Load(context.Background()))
}

func TestAggregator_AllSorted(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregator(&memStorage{})
	for _, name := range []string{"zed", "amy", "kim"} {
		_, err := agg.Record(ctx, name, models.OutcomeDraw, 0)
		require.NoError(t, err)
	}

	all := agg.All()
	require.Len(t, all, 3)
	assert.Equal(t, "amy", all[0].Username)
	assert.Equal(t, "kim", all[1].Username)
	assert.Equal(t, "zed", all[2].Username)
}

func TestAggregator_FileStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	agg := NewAggregator(NewFileStorage(fs, "data/stats.json"))
	require.NoError(t, agg.Load(ctx))
	_, err := agg.Record(ctx, "alice", models.OutcomeWin, 1)
	require.NoError(t, err)

	reloaded := NewAggregator(NewFileStorage(fs, "data/stats.json"))
	require.NoError(t, reloaded.Load(ctx))
	st, ok := reloaded.Get("alice")
	require.True(t, ok)
	assert.Equal(t, 1, st.Wins)
}
