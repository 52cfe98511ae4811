// Package migrations holds the index migrations. Each file registers itself
// from init(); cmd/shopkart imports the package for its side effects.
package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// indexMigration creates one named index on Up and drops it on Down.
type indexMigration struct {
	collection string
	name       string
	keys       bson.D
	unique     bool
}

func (m indexMigration) Up(ctx context.Context, db *mongo.Database) error {
	opts := options.Index().SetName(m.name)
	if m.unique {
		opts.SetUnique(true)
	}
	_, err := db.Collection(m.collection).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: m.keys, Options: opts})
	return err
}

func (m indexMigration) Down(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(m.collection).Indexes().DropOne(ctx, m.name)
	return err
}
