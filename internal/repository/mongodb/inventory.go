package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

type inventoryRepo struct {
	coll *mongo.Collection
}

func (r *inventoryRepo) Insert(ctx context.Context, txn models.InventoryTransaction) error {
	if _, err := r.coll.InsertOne(ctx, txn); err != nil {
		return fmt.Errorf("failed to insert inventory transaction: %w", err)
	}
	return nil
}

func (r *inventoryRepo) FindByID(ctx context.Context, id string) (models.InventoryTransaction, error) {
	var txn models.InventoryTransaction
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&txn)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.InventoryTransaction{}, fmt.Errorf("%w: inventory transaction %s", models.ErrNotFound, id)
	}
	if err != nil {
		return models.InventoryTransaction{}, fmt.Errorf("failed to find inventory transaction %s: %w", id, err)
	}
	return txn, nil
}

func (r *inventoryRepo) Outstanding(ctx context.Context, farmerID string, asOf time.Time) ([]models.InventoryTransaction, error) {
	filter := bson.M{
		"farmerId":         farmerID,
		"paymentMethod":    bson.M{"$ne": models.PaymentCash},
		"remainingAmount":  bson.M{"$gt": 0},
		"isAdjustedInBill": false,
		"date":             bson.M{"$lte": models.DateOnly(asOf)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list outstanding inventory credit: %w", err)
	}
	out := []models.InventoryTransaction{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode inventory transactions: %w", err)
	}
	return out, nil
}

func (r *inventoryRepo) UpdatePayment(ctx context.Context, txn models.InventoryTransaction, expectedPaid decimal.Decimal) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": txn.ID, "paidAmount": expectedPaid, "isAdjustedInBill": false},
		bson.M{"$set": bson.M{"paidAmount": txn.PaidAmount, "remainingAmount": txn.RemainingAmount}})
	if err != nil {
		return fmt.Errorf("failed to record payment on %s: %w", txn.ID, err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.FindByID(ctx, txn.ID); err != nil {
			return err
		}
		return models.ErrConcurrencyConflict
	}
	return nil
}

func (r *inventoryRepo) MarkAdjusted(ctx context.Context, ids []string, billID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "isAdjustedInBill": false},
		bson.M{"$set": bson.M{"isAdjustedInBill": true, "billId": billID}})
	if err != nil {
		return 0, fmt.Errorf("failed to mark inventory credit as billed: %w", err)
	}
	return res.ModifiedCount, nil
}
