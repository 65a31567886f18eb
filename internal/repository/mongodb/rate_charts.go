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

type chartRepo struct {
	coll *mongo.Collection
}

func (r *chartRepo) Versions(ctx context.Context, milkType models.MilkType) ([]models.RateChart, error) {
	opts := options.Find().SetSort(bson.D{{Key: "version", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"milkType": milkType}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s rate charts: %w", milkType, err)
	}
	charts := []models.RateChart{}
	if err := cur.All(ctx, &charts); err != nil {
		return nil, fmt.Errorf("failed to decode rate charts: %w", err)
	}
	return charts, nil
}

func (r *chartRepo) Insert(ctx context.Context, chart models.RateChart) error {
	if _, err := r.coll.InsertOne(ctx, chart); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s chart version %d exists", models.ErrConcurrencyConflict, chart.MilkType, chart.Version)
		}
		return fmt.Errorf("failed to insert rate chart: %w", err)
	}
	return nil
}

func (r *chartRepo) Archive(ctx context.Context, id string, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "archivedAt": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"archivedAt": at}})
	if err != nil {
		return fmt.Errorf("failed to archive rate chart %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to look up rate chart %s: %w", id, err)
		}
		if n == 0 {
			return models.ErrNotFound
		}
	}
	return nil
}
