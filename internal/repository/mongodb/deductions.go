package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

type deductionRepo struct {
	coll *mongo.Collection
}

var deductionSort = options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "createdAt", Value: 1}})

func (r *deductionRepo) Insert(ctx context.Context, d models.Deduction) error {
	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		return fmt.Errorf("failed to insert deduction: %w", err)
	}
	return nil
}

func (r *deductionRepo) FindByID(ctx context.Context, id string) (models.Deduction, error) {
	var d models.Deduction
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Deduction{}, fmt.Errorf("%w: deduction %s", models.ErrNotFound, id)
	}
	if err != nil {
		return models.Deduction{}, fmt.Errorf("failed to find deduction %s: %w", id, err)
	}
	return d, nil
}

func (r *deductionRepo) List(ctx context.Context, filter repository.DeductionFilter) ([]models.Deduction, error) {
	q := bson.M{}
	if filter.FarmerID != "" {
		q["farmerId"] = filter.FarmerID
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	rangeFilter(q, "date", filter.From, filter.To)
	return r.find(ctx, q)
}

func (r *deductionRepo) ListUnreconciled(ctx context.Context) ([]models.Deduction, error) {
	return r.find(ctx, bson.M{"autoAdjusted": false})
}

func (r *deductionRepo) find(ctx context.Context, q bson.M) ([]models.Deduction, error) {
	cur, err := r.coll.Find(ctx, q, deductionSort)
	if err != nil {
		return nil, fmt.Errorf("failed to list deductions: %w", err)
	}
	out := []models.Deduction{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode deductions: %w", err)
	}
	return out, nil
}

func (r *deductionRepo) MarkReconciled(ctx context.Context, d models.Deduction, expectedRemaining decimal.Decimal) (bool, error) {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": d.ID, "autoAdjusted": false, "remainingAmount": expectedRemaining},
		bson.M{"$set": balanceFields(d)})
	if err != nil {
		return false, fmt.Errorf("failed to reconcile deduction %s: %w", d.ID, err)
	}
	return res.MatchedCount == 1, nil
}

func (r *deductionRepo) UpdateBalance(ctx context.Context, d models.Deduction, expectedRemaining decimal.Decimal) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": d.ID, "remainingAmount": expectedRemaining},
		bson.M{"$set": manualFields(d)})
	if err != nil {
		return fmt.Errorf("failed to update deduction %s: %w", d.ID, err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.FindByID(ctx, d.ID); err != nil {
			return err
		}
		return models.ErrConcurrencyConflict
	}
	return nil
}

// manualFields never unsets a completed reconciliation.
func manualFields(d models.Deduction) bson.M {
	fields := balanceFields(d)
	if !d.AutoAdjusted {
		delete(fields, "autoAdjusted")
	}
	return fields
}

func balanceFields(d models.Deduction) bson.M {
	return bson.M{
		"remainingAmount": d.RemainingAmount,
		"status":          d.Status,
		"autoAdjusted":    d.AutoAdjusted,
		"updatedAt":       d.UpdatedAt,
	}
}
