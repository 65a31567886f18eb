package billing

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// BatchResult summarizes a GenerateAll run.
type BatchResult struct {
	Generated int           `json:"generated"`
	Skipped   int           `json:"skipped"`
	Conflicts int           `json:"conflicts"`
	Bills     []models.Bill `json:"bills"`
}

// GenerateAll bills every active farmer for the period with bounded
// parallelism. Farmers with no liters and nothing payable are skipped.
// Paid or concurrently changed bills are counted as conflicts; any other
// error stops the batch.
func (g *Generator) GenerateAll(ctx context.Context, from, to time.Time) (BatchResult, error) {
	if _, err := models.NewBillingPeriod(from, to); err != nil {
		return BatchResult{}, err
	}
	farmers, err := g.repos.Farmers.ListActive(ctx)
	if err != nil {
		return BatchResult{}, err
	}

	var (
		mu     sync.Mutex
		result = BatchResult{Bills: []models.Bill{}}
	)
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for _, farmer := range farmers {
		eg.Go(func() error {
			preview, err := g.Preview(ctx, farmer.ID, from, to)
			if err != nil {
				return err
			}
			if preview.IsZero() {
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return nil
			}

			bill, err := g.Generate(ctx, farmer.ID, from, to)
			if errors.Is(err, models.ErrBillAlreadyPaid) || errors.Is(err, models.ErrBillConflict) {
				g.logger.Info("bill skipped", zap.String("farmer_id", farmer.ID), zap.Error(err))
				mu.Lock()
				result.Conflicts++
				mu.Unlock()
				return nil
			}
			if err != nil {
				return err
			}

			mu.Lock()
			result.Generated++
			result.Bills = append(result.Bills, bill)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		g.logger.Error("batch billing aborted", zap.Error(err))
		return BatchResult{}, err
	}

	sort.Slice(result.Bills, func(i, j int) bool { return result.Bills[i].FarmerID < result.Bills[j].FarmerID })
	g.logger.Info("batch billing finished",
		zap.String("period_from", from.Format(models.DateLayout)),
		zap.String("period_to", to.Format(models.DateLayout)),
		zap.Int("farmers", len(farmers)),
		zap.Int("generated", result.Generated),
		zap.Int("skipped", result.Skipped),
		zap.Int("conflicts", result.Conflicts),
	)
	return result, nil
}
