package seeders

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/auth"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	SellerEmail  = "seller@shopkart.test"
	BuyerEmail   = "buyer@shopkart.test"
	DemoPassword = "password"

	demoProducts = 24
)

func init() {
	Register("users", seedUsers)
	Register("products", seedProducts)
}

func seedUsers(ctx context.Context, db *mongo.Database) error {
	users := repositories.NewUserRepository(db)
	hash, err := auth.HashPassword(DemoPassword)
	if err != nil {
		return err
	}

	for _, u := range []*models.User{
		{Name: "Demo Seller", Email: SellerEmail, IsSeller: true},
		{Name: "Demo Buyer", Email: BuyerEmail, Address: &models.Address{
			Name:       "Demo Buyer",
			Phone:      "5550100",
			Street:     "221B Baker Street",
			City:       "London",
			State:      "Greater London",
			PostalCode: "NW16XE",
			Country:    "United Kingdom",
		}},
	} {
		now := time.Now().UTC()
		u.Password, u.CreatedAt, u.UpdatedAt = hash, now, now
		err := users.Create(ctx, u)
		if apperr.KindOf(err) == apperr.Conflict {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// seedProducts gives the demo seller a catalog, once.
func seedProducts(ctx context.Context, db *mongo.Database) error {
	seller, err := repositories.NewUserRepository(db).FindByEmail(ctx, SellerEmail)
	if err != nil {
		return fmt.Errorf("demo seller missing, run the users seeder first: %w", err)
	}
	products := repositories.NewProductRepository(db)

	_, total, err := products.List(ctx, repositories.ProductFilter{Page: 1, PageSize: 1})
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}
	return products.CreateMany(ctx, FakeProducts(gofakeit.New(0), seller.ID, demoProducts))
}
