package migrations

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/shashiranjanraj/shopkart/pkg/database"
	"github.com/shashiranjanraj/shopkart/pkg/migration"
)

func init() {
	migration.Register("20260101000000_users_email_unique", indexMigration{
		collection: database.Users,
		name:       "email_unique",
		keys:       bson.D{{Key: "email", Value: 1}},
		unique:     true,
	})
	// One cart per user; the cart repository's upsert relies on it.
	migration.Register("20260101000001_carts_user_id_unique", indexMigration{
		collection: database.Carts,
		name:       "user_id_unique",
		keys:       bson.D{{Key: "user_id", Value: 1}},
		unique:     true,
	})
	migration.Register("20260101000002_products_listing", indexMigration{
		collection: database.Products,
		name:       "deleted_category_created_at",
		keys:       bson.D{{Key: "deleted", Value: 1}, {Key: "category", Value: 1}, {Key: "created_at", Value: -1}},
	})
	migration.Register("20260101000003_products_brand", indexMigration{
		collection: database.Products,
		name:       "deleted_brand",
		keys:       bson.D{{Key: "deleted", Value: 1}, {Key: "brand", Value: 1}},
	})
	migration.Register("20260101000004_products_seller", indexMigration{
		collection: database.Products,
		name:       "seller_id",
		keys:       bson.D{{Key: "seller_id", Value: 1}},
	})
	migration.Register("20260101000005_orders_user_created", indexMigration{
		collection: database.Orders,
		name:       "user_id_created_at",
		keys:       bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	migration.Register("20260101000006_failed_jobs_failed_at", indexMigration{
		collection: database.FailedJobs,
		name:       "failed_at",
		keys:       bson.D{{Key: "failed_at", Value: -1}},
	})
}
