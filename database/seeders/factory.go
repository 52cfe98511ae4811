package seeders

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/models"
)

// FakeProducts builds n valid products for seller.
func FakeProducts(f *gofakeit.Faker, seller primitive.ObjectID, n int) []*models.Product {
	out := make([]*models.Product, 0, n)
	for range n {
		brand := models.Brands[f.IntN(len(models.Brands))]
		category := models.Categories[f.IntN(len(models.Categories))]
		out = append(out, &models.Product{
			Name:        fmt.Sprintf("%s %s %s", brand, f.ProductFeature(), category),
			Description: f.ProductDescription(),
			Price:       models.MoneyFromFloat(f.Price(5, 2500)).Round(2),
			Brand:       brand,
			Category:    category,
			Status:      models.ProductActive,
			Stock:       f.IntRange(0, 200),
			Images:      []string{},
			SellerID:    seller,
		})
	}
	return out
}
