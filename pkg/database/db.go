// Package database opens the MongoDB connection shared by the repositories.
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/shopkart/config"
)

// Collection names.
const (
	Users      = "users"
	Products   = "products"
	Carts      = "carts"
	Orders     = "orders"
	FailedJobs = "failed_jobs"
	Migrations = "migrations"
	Logs       = "logs"
)

// Connect opens a pooled client for MONGO_URI and returns MONGO_DATABASE.
// It fails if the server does not answer a ping.
func Connect(ctx context.Context) (*mongo.Database, error) {
	return Open(ctx, config.MongoURI(), config.MongoDatabase())
}

func Open(ctx context.Context, uri, name string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(5)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("database: connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("database: ping: %w", err)
	}

	return client.Database(name), nil
}

// Close disconnects the client behind db.
func Close(ctx context.Context, db *mongo.Database) error {
	if db == nil {
		return nil
	}
	return db.Client().Disconnect(ctx)
}
