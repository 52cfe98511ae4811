package repositories

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/database"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
)

// UserRepository handles database operations for User.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(database.Users)}
}

// Create inserts user with a lower-cased email. A taken email is a Conflict.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	defer metrics.ObserveDBQuery("users.create", time.Now())

	now := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt, user.UpdatedAt = now, now

	if _, err := r.col.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperr.Duplicate("users.create", "email already registered")
		}
		return apperr.Wrap("users.create", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	defer metrics.ObserveDBQuery("users.find", time.Now())

	var u models.User
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFound("users.find", "user", err)
	}
	return &u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	defer metrics.ObserveDBQuery("users.find_by_email", time.Now())

	var u models.User
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, notFound("users.find_by_email", "user", err)
	}
	return &u, nil
}

// FindByIDs returns the users that exist among ids, keyed by id.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	defer metrics.ObserveDBQuery("users.find_many", time.Now())

	out := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, apperr.Wrap("users.find_many", err)
	}
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, apperr.Wrap("users.find_many", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// UpdateProfile sets the name and/or address. Nil or empty values are left alone.
func (r *UserRepository) UpdateProfile(ctx context.Context, id primitive.ObjectID, name string, addr *models.Address) (*models.User, error) {
	defer metrics.ObserveDBQuery("users.update", time.Now())

	set := bson.M{"updated_at": time.Now().UTC()}
	if name != "" {
		set["name"] = name
	}
	if addr != nil {
		set["address"] = addr
	}

	var u models.User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, returnAfter).Decode(&u)
	if err != nil {
		return nil, notFound("users.update", "user", err)
	}
	return &u, nil
}

// SetSeller flips the seller flag for the account with email.
func (r *UserRepository) SetSeller(ctx context.Context, email string, seller bool) (*models.User, error) {
	defer metrics.ObserveDBQuery("users.set_seller", time.Now())

	var u models.User
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"email": strings.ToLower(strings.TrimSpace(email))},
		bson.M{"$set": bson.M{"is_seller": seller, "updated_at": time.Now().UTC()}},
		returnAfter,
	).Decode(&u)
	if err != nil {
		return nil, notFound("users.set_seller", "user", err)
	}
	return &u, nil
}
