package ratechart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository/memory"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	repos := memory.NewStore().Repositories()
	svc := NewService(repos.RateCharts, repos.Transactor, zaptest.NewLogger(t))
	svc.now = func() time.Time { return date("2024-03-20").Add(9 * time.Hour) }
	return svc
}

func TestService_RateSeedsDefault(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	q, err := svc.Rate(ctx, models.MilkCow, d("4.2"), d("8.5"), date("2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, "31.3", q.Rate.String())
	assert.Equal(t, 1, q.ChartVersion)

	again, err := svc.Rate(ctx, models.MilkCow, d("4.2"), d("8.5"), date("2024-03-01"))
	require.NoError(t, err)
	assert.True(t, q.Rate.Equal(again.Rate))

	history, err := svc.History(ctx, models.MilkCow)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestService_RateErrors(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.Rate(ctx, "camel", d("4"), d("8"), date("2024-03-01"))
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.Rate(ctx, models.MilkCow, d("-1"), d("8"), date("2024-03-01"))
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.Rate(ctx, models.MilkCow, d("4"), d("8"), date("1999-06-01"))
	assert.ErrorIs(t, err, models.ErrNoRateChart)
}

func TestService_SaveVersionsAndArchives(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	current, err := svc.Current(ctx, models.MilkCow)
	require.NoError(t, err)
	require.Equal(t, 1, current.Version)

	next := current
	next.BaseRate = d("12")
	next.EffectiveFrom = date("2024-04-01")
	saved, err := svc.Save(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)
	assert.NotEqual(t, current.ID, saved.ID)

	before, err := svc.Rate(ctx, models.MilkCow, d("4.2"), d("8.5"), date("2024-03-31"))
	require.NoError(t, err)
	assert.Equal(t, 1, before.ChartVersion)
	assert.Equal(t, "31.3", before.Rate.String())

	after, err := svc.Rate(ctx, models.MilkCow, d("4.2"), d("8.5"), date("2024-04-01"))
	require.NoError(t, err)
	assert.Equal(t, 2, after.ChartVersion)
	assert.Equal(t, "33.3", after.Rate.String())

	history, err := svc.History(ctx, models.MilkCow)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Version)
	assert.Nil(t, history[0].ArchivedAt)
	require.NotNil(t, history[1].ArchivedAt)
	assert.True(t, history[1].BaseRate.Equal(d("10")), "old version left untouched")

	latest, err := svc.Current(ctx, models.MilkCow)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, latest.ID)
}

func TestService_SaveRejectsInvalidChart(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	chart, _ := DefaultChart(models.MilkBuffalo, time.Now())
	chart.FatSlabs[1].From = d("5.5")
	_, err := svc.Save(ctx, chart)
	assert.ErrorIs(t, err, models.ErrInvalidRateChart)

	chart, _ = DefaultChart(models.MilkBuffalo, time.Now())
	chart.SnfRange.Min = chart.SnfRange.Max
	_, err = svc.Save(ctx, chart)
	assert.ErrorIs(t, err, models.ErrInvalidRateChart)

	history, err := svc.History(ctx, models.MilkBuffalo)
	require.NoError(t, err)
	assert.Len(t, history, 1, "only the seeded default exists")
}

func TestService_SaveDefaultsEffectiveToToday(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	chart, _ := DefaultChart(models.MilkMix, time.Now())
	chart.EffectiveFrom = time.Time{}
	saved, err := svc.Save(ctx, chart)
	require.NoError(t, err)
	assert.Equal(t, date("2024-03-20"), saved.EffectiveFrom)
	assert.Equal(t, 1, saved.Version)
}
