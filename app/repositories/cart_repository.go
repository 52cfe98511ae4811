package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/database"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
)

// addItemAttempts bounds the increment/append loop when concurrent adds keep
// racing on the same cart.
const addItemAttempts = 5

// ClearResult is the cart after clearing and whether it was already empty
// (or did not exist).
type ClearResult struct {
	Cart         *models.Cart
	AlreadyEmpty bool
}

// CartRepository stores one cart document per user. Every mutation is a
// single conditional update, so concurrent requests never lose writes. It
// depends on the unique index on user_id.
type CartRepository struct {
	col *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{col: db.Collection(database.Carts)}
}

// Get returns the user's cart or a NotFound error.
func (r *CartRepository) Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	defer metrics.ObserveDBQuery("carts.get", time.Now())

	var cart models.Cart
	if err := r.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart); err != nil {
		return nil, notFound("carts.get", "cart", err)
	}
	return normalize(&cart), nil
}

// AddItem increments the line for productID by qty, or appends a new line,
// creating the cart if needed.
//
// The increment only matches carts that already hold the product; the append
// only matches (or upserts) carts that do not. When two requests race, the
// loser of the upsert hits the unique user_id index and retries, landing on
// the increment path.
func (r *CartRepository) AddItem(ctx context.Context, userID, productID primitive.ObjectID, qty int) (*models.Cart, error) {
	defer metrics.ObserveDBQuery("carts.add_item", time.Now())

	for attempt := 0; attempt < addItemAttempts; attempt++ {
		now := time.Now().UTC()

		var cart models.Cart
		err := r.col.FindOneAndUpdate(ctx,
			bson.M{"user_id": userID, "items.product_id": productID},
			bson.M{
				"$inc": bson.M{"items.$.quantity": qty},
				"$set": bson.M{"updated_at": now},
			},
			returnAfter,
		).Decode(&cart)
		if err == nil {
			return normalize(&cart), nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.Wrap("carts.add_item", err)
		}

		line := models.LineItem{
			ID:        primitive.NewObjectID(),
			ProductID: productID,
			Quantity:  qty,
			AddedAt:   now,
		}
		err = r.col.FindOneAndUpdate(ctx,
			bson.M{"user_id": userID, "items.product_id": bson.M{"$ne": productID}},
			bson.M{
				"$push":        bson.M{"items": line},
				"$set":         bson.M{"updated_at": now},
				"$setOnInsert": bson.M{"created_at": now},
			},
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
		).Decode(&cart)
		if err == nil {
			return normalize(&cart), nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, apperr.Wrap("carts.add_item", err)
		}
	}
	return nil, apperr.E(apperr.Internal, "carts.add_item", "gave up after %d contended attempts", addItemAttempts)
}

// UpdateQuantity sets the exact quantity of one line.
func (r *CartRepository) UpdateQuantity(ctx context.Context, userID, lineID primitive.ObjectID, qty int) (*models.Cart, error) {
	defer metrics.ObserveDBQuery("carts.update_quantity", time.Now())

	var cart models.Cart
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, "items._id": lineID},
		bson.M{"$set": bson.M{"items.$.quantity": qty, "updated_at": time.Now().UTC()}},
		returnAfter,
	).Decode(&cart)
	if err != nil {
		return nil, notFound("carts.update_quantity", "cart item", err)
	}
	return normalize(&cart), nil
}

// RemoveItem drops one line. The cart stays even when it becomes empty.
func (r *CartRepository) RemoveItem(ctx context.Context, userID, lineID primitive.ObjectID) (*models.Cart, error) {
	defer metrics.ObserveDBQuery("carts.remove_item", time.Now())

	var cart models.Cart
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID, "items._id": lineID},
		bson.M{
			"$pull": bson.M{"items": bson.M{"_id": lineID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
		returnAfter,
	).Decode(&cart)
	if err != nil {
		return nil, notFound("carts.remove_item", "cart item", err)
	}
	return normalize(&cart), nil
}

// Clear empties the cart. A missing cart is reported as already empty.
func (r *CartRepository) Clear(ctx context.Context, userID primitive.ObjectID) (ClearResult, error) {
	defer metrics.ObserveDBQuery("carts.clear", time.Now())

	now := time.Now().UTC()
	var before models.Cart
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"items": bson.A{}, "updated_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ClearResult{Cart: models.EmptyCart(userID), AlreadyEmpty: true}, nil
	}
	if err != nil {
		return ClearResult{}, apperr.Wrap("carts.clear", err)
	}

	wasEmpty := len(before.Items) == 0
	before.Items = []models.LineItem{}
	before.UpdatedAt = now
	return ClearResult{Cart: &before, AlreadyEmpty: wasEmpty}, nil
}

// RemoveLines takes each line down by the ordered quantity and drops lines
// that reach zero. Lines added after the order was built stay, and so do units
// added to an ordered line in the meantime. A missing cart comes back empty.
func (r *CartRepository) RemoveLines(ctx context.Context, userID primitive.ObjectID, takes []models.LineTake) (*models.Cart, error) {
	defer metrics.ObserveDBQuery("carts.remove_lines", time.Now())

	if len(takes) > 0 {
		now := time.Now().UTC()
		writes := make([]mongo.WriteModel, 0, len(takes)+1)
		for _, t := range takes {
			writes = append(writes, mongo.NewUpdateOneModel().
				SetFilter(bson.M{"user_id": userID, "items._id": t.LineID}).
				SetUpdate(bson.M{
					"$inc": bson.M{"items.$.quantity": -t.Quantity},
					"$set": bson.M{"updated_at": now},
				}))
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"user_id": userID}).
			SetUpdate(bson.M{"$pull": bson.M{"items": bson.M{"quantity": bson.M{"$lte": 0}}}}))

		if _, err := r.col.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true)); err != nil {
			return nil, apperr.Wrap("carts.remove_lines", err)
		}
	}

	cart, err := r.Get(ctx, userID)
	if apperr.KindOf(err) == apperr.NotFound {
		return models.EmptyCart(userID), nil
	}
	return cart, err
}

func normalize(c *models.Cart) *models.Cart {
	if c.Items == nil {
		c.Items = []models.LineItem{}
	}
	return c
}
