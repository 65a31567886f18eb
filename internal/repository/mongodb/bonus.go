package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

type bonusRepo struct {
	rules    *mongo.Collection
	payments *mongo.Collection
}

func (r *bonusRepo) InsertRule(ctx context.Context, rule models.BonusRuleConfig) error {
	if _, err := r.rules.InsertOne(ctx, rule); err != nil {
		return fmt.Errorf("failed to insert bonus rule: %w", err)
	}
	return nil
}

func (r *bonusRepo) FindRule(ctx context.Context, id string) (models.BonusRuleConfig, error) {
	var rule models.BonusRuleConfig
	err := r.rules.FindOne(ctx, bson.M{"_id": id}).Decode(&rule)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.BonusRuleConfig{}, fmt.Errorf("%w: bonus rule %s", models.ErrNotFound, id)
	}
	if err != nil {
		return models.BonusRuleConfig{}, fmt.Errorf("failed to find bonus rule %s: %w", id, err)
	}
	return rule, nil
}

func (r *bonusRepo) ListRules(ctx context.Context) ([]models.BonusRuleConfig, error) {
	cur, err := r.rules.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list bonus rules: %w", err)
	}
	out := []models.BonusRuleConfig{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode bonus rules: %w", err)
	}
	return out, nil
}

func (r *bonusRepo) InsertPayments(ctx context.Context, payments []models.BonusPayment) error {
	if len(payments) == 0 {
		return nil
	}
	docs := make([]interface{}, len(payments))
	for i, p := range payments {
		docs[i] = p
	}
	if _, err := r.payments.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert bonus payments: %w", err)
	}
	return nil
}

func (r *bonusRepo) ListPayments(ctx context.Context, filter repository.BonusPaymentFilter) ([]models.BonusPayment, error) {
	q := bson.M{}
	if filter.FarmerID != "" {
		q["farmerId"] = filter.FarmerID
	}
	rangeFilter(q, "date", filter.From, filter.To)

	cur, err := r.payments.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list bonus payments: %w", err)
	}
	out := []models.BonusPayment{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode bonus payments: %w", err)
	}
	return out, nil
}
