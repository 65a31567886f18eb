package bonus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

// RuleInput names and stores a rule.
type RuleInput struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
	RuleSpec
}

// ApplyInput accepts a computed bonus. Either Rule or RuleID selects the
// rule; RuleID wins when both are set.
type ApplyInput struct {
	PeriodFrom time.Time `json:"periodFrom"`
	PeriodTo   time.Time `json:"periodTo"`
	Rule       RuleSpec  `json:"rule"`
	RuleID     string    `json:"ruleId"`
	Reason     string    `json:"reason"`
}

// Service previews and records bonuses.
type Service struct {
	bonuses repository.BonusRepository
	milk    repository.MilkEntryRepository
	farmers repository.FarmerRepository
	tx      repository.Transactor
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a bonus service.
func NewService(bonuses repository.BonusRepository, milk repository.MilkEntryRepository, farmers repository.FarmerRepository, tx repository.Transactor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		bonuses: bonuses,
		milk:    milk,
		farmers: farmers,
		tx:      tx,
		logger:  logger.Named("svc.bonus"),
		now:     time.Now,
	}
}

// Preview computes the bonus of every farmer with milk in the period.
// Nothing is stored.
func (s *Service) Preview(ctx context.Context, from, to time.Time, spec RuleSpec) ([]models.BonusRow, error) {
	rule, err := ParseRule(spec)
	if err != nil {
		return nil, err
	}
	return s.preview(ctx, from, to, rule)
}

func (s *Service) preview(ctx context.Context, from, to time.Time, rule Rule) ([]models.BonusRow, error) {
	from, to = models.DateOnly(from), models.DateOnly(to)
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, fmt.Errorf("%w: periodFrom and periodTo are required and ordered", models.ErrInvalidPeriod)
	}

	totals, err := s.milk.TotalsByFarmer(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("load milk totals: %w", err)
	}
	rows := Compute(rule, totals)

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.FarmerID
	}
	farmers, err := s.farmers.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		f := farmers[rows[i].FarmerID]
		rows[i].FarmerCode, rows[i].FarmerName = f.Code, f.Name
	}
	return rows, nil
}

// SaveRule validates and stores a named rule.
func (s *Service) SaveRule(ctx context.Context, in RuleInput) (models.BonusRuleConfig, error) {
	if strings.TrimSpace(in.Name) == "" {
		return models.BonusRuleConfig{}, fmt.Errorf("%w: name is required", models.ErrInvalidBonusRule)
	}
	rule, err := ParseRule(in.RuleSpec)
	if err != nil {
		return models.BonusRuleConfig{}, err
	}
	spec := rule.Spec()
	cfg := models.BonusRuleConfig{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(in.Name),
		Type:      spec.Type,
		Value:     spec.Value,
		PerAmount: spec.PerAmount,
		Active:    in.Active,
		CreatedAt: s.now().UTC(),
	}
	if err := s.bonuses.InsertRule(ctx, cfg); err != nil {
		return models.BonusRuleConfig{}, err
	}
	return cfg, nil
}

// ListRules returns every stored rule, oldest first.
func (s *Service) ListRules(ctx context.Context) ([]models.BonusRuleConfig, error) {
	return s.bonuses.ListRules(ctx)
}

// Apply computes the bonus for the period and records one payment, dated
// periodTo, for every farmer with a positive bonus.
func (s *Service) Apply(ctx context.Context, in ApplyInput) ([]models.BonusPayment, error) {
	spec := in.Rule
	if in.RuleID != "" {
		cfg, err := s.bonuses.FindRule(ctx, in.RuleID)
		if err != nil {
			return nil, err
		}
		if !cfg.Active {
			return nil, fmt.Errorf("%w: bonus rule %s is inactive", models.ErrInvalidState, cfg.ID)
		}
		spec = RuleSpec{Type: cfg.Type, Value: cfg.Value, PerAmount: cfg.PerAmount}
	}
	rule, err := ParseRule(spec)
	if err != nil {
		return nil, err
	}

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = fmt.Sprintf("%s bonus %s to %s", rule.Kind(), in.PeriodFrom.Format(models.DateLayout), in.PeriodTo.Format(models.DateLayout))
	}

	var payments []models.BonusPayment
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		rows, err := s.preview(ctx, in.PeriodFrom, in.PeriodTo, rule)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		payments = payments[:0]
		for _, row := range rows {
			if !row.Bonus.IsPositive() {
				continue
			}
			payments = append(payments, models.BonusPayment{
				ID:         uuid.NewString(),
				FarmerID:   row.FarmerID,
				Date:       models.DateOnly(in.PeriodTo),
				Amount:     row.Bonus,
				Reason:     reason,
				RuleID:     in.RuleID,
				PeriodFrom: models.DateOnly(in.PeriodFrom),
				PeriodTo:   models.DateOnly(in.PeriodTo),
				CreatedAt:  now,
			})
		}
		return s.bonuses.InsertPayments(ctx, payments)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bonus applied",
		zap.String("rule", string(rule.Kind())),
		zap.String("period_from", in.PeriodFrom.Format(models.DateLayout)),
		zap.String("period_to", in.PeriodTo.Format(models.DateLayout)),
		zap.Int("payments", len(payments)),
	)
	return payments, nil
}

// Payments lists recorded bonus payments.
func (s *Service) Payments(ctx context.Context, filter repository.BonusPaymentFilter) ([]models.BonusPayment, error) {
	return s.bonuses.ListPayments(ctx, filter)
}
