package repositories

import (
	"context"
	"math"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
)

func fakeProduct(seller primitive.ObjectID, name, category string, price int64) *models.Product {
	return &models.Product{
		Name:        name,
		Description: gofakeit.Sentence(8),
		Price:       models.MoneyFromInt(price),
		Brand:       "Apple",
		Category:    category,
		Status:      models.ProductActive,
		Stock:       gofakeit.IntRange(1, 50),
		SellerID:    seller,
	}
}

func TestProductListFiltersSortsAndPages(t *testing.T) {
	repo := NewProductRepository(testDB(t))
	ctx := context.Background()
	seller := primitive.NewObjectID()

	require.NoError(t, repo.CreateMany(ctx, []*models.Product{
		fakeProduct(seller, "Galaxy Phone", models.CategoryMobile, 700),
		fakeProduct(seller, "Pixel Phone", models.CategoryMobile, 600),
		fakeProduct(seller, "Work Laptop", models.CategoryLaptop, 1500),
		fakeProduct(seller, "Phone Case", models.CategoryAccessory, 20),
	}))

	page, total, err := repo.List(ctx, ProductFilter{Search: "phone", SortBy: "price", Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, []string{"Phone Case", "Pixel Phone"}, lo.Map(page, func(p models.Product, _ int) string { return p.Name }))

	page, _, err = repo.List(ctx, ProductFilter{Search: "phone", SortBy: "price", Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Galaxy Phone", page[0].Name)

	page, total, err = repo.List(ctx, ProductFilter{Category: models.CategoryMobile, SortBy: "price", SortDesc: true, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "Galaxy Phone", page[0].Name)
	assert.True(t, page[0].Price.Equal(models.MoneyFromInt(700)))

	page, total, err = repo.List(ctx, ProductFilter{Search: "phone", Page: math.MaxInt, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, page, "a page past the end is empty, not an error")
	assert.EqualValues(t, 3, total)
}

func TestProductSoftDeleteHidesProduct(t *testing.T) {
	repo := NewProductRepository(testDB(t))
	ctx := context.Background()
	seller := primitive.NewObjectID()
	p := fakeProduct(seller, "Old Tablet", models.CategoryTablet, 300)
	require.NoError(t, repo.Create(ctx, p))

	_, err := repo.SoftDelete(ctx, primitive.NewObjectID(), p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound, "other sellers cannot delete")

	deleted, err := repo.SoftDelete(ctx, seller, p.ID)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)

	_, err = repo.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	found, err := repo.FindByIDs(ctx, []primitive.ObjectID{p.ID})
	require.NoError(t, err)
	assert.Empty(t, found)

	_, total, err := repo.List(ctx, ProductFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestProductUpdateIsOwnerScoped(t *testing.T) {
	repo := NewProductRepository(testDB(t))
	ctx := context.Background()
	seller := primitive.NewObjectID()
	p := fakeProduct(seller, "Headphones", models.CategoryAccessory, 99)
	require.NoError(t, repo.Create(ctx, p))

	price := models.MoneyFromFloat(89.5)
	patch := ProductPatch{Price: &price, Images: []string{"/uploads/a.png"}}

	_, err := repo.Update(ctx, primitive.NewObjectID(), p.ID, patch)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	updated, err := repo.Update(ctx, seller, p.ID, patch)
	require.NoError(t, err)
	assert.Equal(t, "89.5", updated.Price.String())
	assert.Equal(t, "Headphones", updated.Name)
	assert.Equal(t, []string{"/uploads/a.png"}, updated.Images)
}

func TestUserEmailIsUnique(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Name: "Ada", Email: "Ada@Example.com", Password: "x"}))
	err := repo.Create(ctx, &models.User{Name: "Ada 2", Email: "ada@example.com", Password: "y"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	u, err := repo.FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)

	promoted, err := repo.SetSeller(ctx, "ada@example.com", true)
	require.NoError(t, err)
	assert.True(t, promoted.IsSeller)
}
