package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

type billRepo struct {
	coll *mongo.Collection
}

func (r *billRepo) FindByID(ctx context.Context, id string) (models.Bill, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *billRepo) FindByFarmerMonth(ctx context.Context, farmerID string, month time.Time) (models.Bill, error) {
	return r.findOne(ctx, bson.M{"farmerId": farmerID, "billMonth": month})
}

func (r *billRepo) findOne(ctx context.Context, filter bson.M) (models.Bill, error) {
	var bill models.Bill
	err := r.coll.FindOne(ctx, filter).Decode(&bill)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Bill{}, models.ErrNotFound
	}
	if err != nil {
		return models.Bill{}, fmt.Errorf("failed to find bill: %w", err)
	}
	return bill, nil
}

func (r *billRepo) Replace(ctx context.Context, previousID string, bill models.Bill) error {
	if previousID != "" {
		res, err := r.coll.DeleteOne(ctx, bson.M{"_id": previousID, "status": models.BillPending})
		if err != nil {
			return fmt.Errorf("failed to remove previous bill %s: %w", previousID, err)
		}
		if res.DeletedCount == 0 {
			return models.ErrBillConflict
		}
	}
	if _, err := r.coll.InsertOne(ctx, bill); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrBillConflict
		}
		return fmt.Errorf("failed to insert bill: %w", err)
	}
	return nil
}

func (r *billRepo) MarkPaid(ctx context.Context, id string, at time.Time) (models.Bill, error) {
	var bill models.Bill
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.BillPending},
		bson.M{"$set": bson.M{"status": models.BillPaid, "paidAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&bill)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, err := r.FindByID(ctx, id); err != nil {
			return models.Bill{}, err
		}
		return models.Bill{}, models.ErrBillAlreadyPaid
	}
	if err != nil {
		return models.Bill{}, fmt.Errorf("failed to mark bill %s paid: %w", id, err)
	}
	return bill, nil
}

func (r *billRepo) DeletePending(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "status": models.BillPending})
	if err != nil {
		return fmt.Errorf("failed to delete bill %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return models.ErrBillAlreadyPaid
	}
	return nil
}

func (r *billRepo) List(ctx context.Context, filter repository.BillFilter) ([]models.Bill, error) {
	q := bson.M{}
	if filter.FarmerID != "" {
		q["farmerId"] = filter.FarmerID
	}
	if !filter.Month.IsZero() {
		q["billMonth"] = filter.Month
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "billMonth", Value: -1}, {Key: "farmerId", Value: 1}})
	cur, err := r.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	out := []models.Bill{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode bills: %w", err)
	}
	return out, nil
}
