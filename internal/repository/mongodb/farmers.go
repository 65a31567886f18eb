package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

type farmerRepo struct {
	coll *mongo.Collection
}

func (r *farmerRepo) FindByID(ctx context.Context, id string) (models.Farmer, error) {
	var farmer models.Farmer
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&farmer)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Farmer{}, fmt.Errorf("%w: %s", models.ErrFarmerNotFound, id)
	}
	if err != nil {
		return models.Farmer{}, fmt.Errorf("failed to find farmer %s: %w", id, err)
	}
	return farmer, nil
}

func (r *farmerRepo) FindByIDs(ctx context.Context, ids []string) (map[string]models.Farmer, error) {
	out := make(map[string]models.Farmer, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find farmers: %w", err)
	}
	farmers := []models.Farmer{}
	if err := cur.All(ctx, &farmers); err != nil {
		return nil, fmt.Errorf("failed to decode farmers: %w", err)
	}
	for _, f := range farmers {
		out[f.ID] = f
	}
	return out, nil
}

func (r *farmerRepo) ListActive(ctx context.Context) ([]models.Farmer, error) {
	cur, err := r.coll.Find(ctx, bson.M{"active": true}, options.Find().SetSort(bson.D{{Key: "code", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list farmers: %w", err)
	}
	farmers := []models.Farmer{}
	if err := cur.All(ctx, &farmers); err != nil {
		return nil, fmt.Errorf("failed to decode farmers: %w", err)
	}
	return farmers, nil
}

func (r *farmerRepo) Save(ctx context.Context, farmer models.Farmer) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": farmer.ID}, farmer, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save farmer %s: %w", farmer.ID, err)
	}
	return nil
}
