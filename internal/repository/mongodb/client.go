// Package mongodb stores the billing collections in MongoDB. Bill
// generation relies on multi-document transactions, so the server must run
// as a replica set.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/repository"
)

const (
	collFarmers       = "farmers"
	collMilkEntries   = "milk_entries"
	collRateCharts    = "rate_charts"
	collDeductions    = "deductions"
	collInventory     = "inventory_transactions"
	collBonusRules    = "bonus_rules"
	collBonusPayments = "bonus_payments"
	collBills         = "bills"
)

// Client owns the MongoDB connection and hands out repositories.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// Connect dials MongoDB, verifies the connection and ensures indexes.
func Connect(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri).SetRegistry(NewRegistry())
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	c := &Client{client: client, db: client.Database(dbName), logger: logger.Named("repo.mongodb")}
	if err := c.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("mongodb connected", zap.String("database", dbName))
	return c, nil
}

// Repositories exposes the collections through the repository contracts.
func (c *Client) Repositories() repository.Repositories {
	return repository.Repositories{
		Transactor:  c,
		Farmers:     &farmerRepo{coll: c.db.Collection(collFarmers)},
		MilkEntries: &milkRepo{coll: c.db.Collection(collMilkEntries)},
		RateCharts:  &chartRepo{coll: c.db.Collection(collRateCharts)},
		Deductions:  &deductionRepo{coll: c.db.Collection(collDeductions)},
		Inventory:   &inventoryRepo{coll: c.db.Collection(collInventory)},
		Bonuses:     &bonusRepo{rules: c.db.Collection(collBonusRules), payments: c.db.Collection(collBonusPayments)},
		Bills:       &billRepo{coll: c.db.Collection(collBills)},
	}
}

// WithTransaction runs fn inside a snapshot-isolated, majority-committed
// transaction. The driver retries fn on transient transaction errors, so fn
// must recompute everything it writes from what it reads.
func (c *Client) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	sess, err := c.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start mongodb session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnOptions := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txnOptions)
	return err
}

// Close closes the MongoDB connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

func (c *Client) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collMilkEntries: {
			{
				Keys:    bson.D{{Key: "farmerId", Value: 1}, {Key: "date", Value: 1}, {Key: "shift", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_farmer_date_shift"),
			},
			{Keys: bson.D{{Key: "date", Value: 1}}},
		},
		collRateCharts: {
			{
				Keys:    bson.D{{Key: "milkType", Value: 1}, {Key: "version", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_milk_type_version"),
			},
		},
		collDeductions: {
			{Keys: bson.D{{Key: "farmerId", Value: 1}, {Key: "date", Value: 1}}},
			{Keys: bson.D{{Key: "autoAdjusted", Value: 1}}},
		},
		collInventory: {
			{Keys: bson.D{{Key: "farmerId", Value: 1}, {Key: "isAdjustedInBill", Value: 1}, {Key: "date", Value: 1}}},
		},
		collBonusPayments: {
			{Keys: bson.D{{Key: "farmerId", Value: 1}, {Key: "date", Value: 1}}},
		},
		collBills: {
			{
				Keys:    bson.D{{Key: "farmerId", Value: 1}, {Key: "billMonth", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uniq_farmer_bill_month"),
			},
			{Keys: bson.D{{Key: "billMonth", Value: -1}}},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for name, models := range indexes {
		if _, err := c.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
		c.logger.Debug("indexes ensured", zap.String("collection", name), zap.Int("count", len(models)))
	}
	return nil
}

// rangeFilter adds an inclusive date range on field, leaving zero bounds open.
func rangeFilter(filter bson.M, field string, from, to time.Time) bson.M {
	cond := bson.M{}
	if !from.IsZero() {
		cond["$gte"] = from
	}
	if !to.IsZero() {
		cond["$lte"] = to
	}
	if len(cond) > 0 {
		filter[field] = cond
	}
	return filter
}
