package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

type milkRepo struct {
	coll *mongo.Collection
}

func (r *milkRepo) Insert(ctx context.Context, entry models.MilkEntry) error {
	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrDuplicateMilkEntry
		}
		return fmt.Errorf("failed to insert milk entry: %w", err)
	}
	return nil
}

func (r *milkRepo) List(ctx context.Context, farmerID string, from, to time.Time) ([]models.MilkEntry, error) {
	filter := bson.M{}
	if farmerID != "" {
		filter["farmerId"] = farmerID
	}
	rangeFilter(filter, "date", from, to)

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "shift", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list milk entries: %w", err)
	}
	entries := []models.MilkEntry{}
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode milk entries: %w", err)
	}
	return entries, nil
}

func (r *milkRepo) Totals(ctx context.Context, farmerID string, from, to time.Time) (models.FarmerMilkTotals, error) {
	match := rangeFilter(bson.M{"farmerId": farmerID}, "date", from, to)
	rows, err := r.aggregate(ctx, match)
	if err != nil {
		return models.FarmerMilkTotals{}, err
	}
	if len(rows) == 0 {
		return models.FarmerMilkTotals{FarmerID: farmerID}, nil
	}
	return rows[0], nil
}

func (r *milkRepo) TotalsByFarmer(ctx context.Context, from, to time.Time) ([]models.FarmerMilkTotals, error) {
	return r.aggregate(ctx, rangeFilter(bson.M{}, "date", from, to))
}

func (r *milkRepo) aggregate(ctx context.Context, match bson.M) ([]models.FarmerMilkTotals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$farmerId"},
			{Key: "liters", Value: bson.D{{Key: "$sum", Value: "$quantity"}}},
			{Key: "amount", Value: bson.D{{Key: "$sum", Value: "$totalAmount"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate milk totals: %w", err)
	}
	var rows []models.FarmerMilkTotals
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode milk totals: %w", err)
	}
	return rows, nil
}
