package services_test

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
)

func productInput(name string) services.ProductInput {
	return services.ProductInput{
		Name:        name,
		Description: "A dependable everyday machine.",
		Price:       models.MoneyFromInt(999),
		Brand:       "Dell",
		Category:    models.CategoryLaptop,
	}
}

func TestCreateDefaultsToActive(t *testing.T) {
	products := newFakeProducts()
	catalog := services.NewCatalogService(products, newFakeCarts())
	seller := primitive.NewObjectID()

	p, err := catalog.Create(context.Background(), seller, productInput("XPS 13"))
	require.NoError(t, err)
	assert.Equal(t, models.ProductActive, p.Status)
	assert.Equal(t, seller, p.SellerID)
	assert.Equal(t, []string{}, p.Images)
}

func TestCreateMany(t *testing.T) {
	catalog := services.NewCatalogService(newFakeProducts(), nil)
	ctx := context.Background()

	created, err := catalog.CreateMany(ctx, primitive.NewObjectID(), []services.ProductInput{productInput("A1"), productInput("A2")})
	require.NoError(t, err)
	assert.Len(t, created, 2)
	assert.NotEqual(t, created[0].ID, created[1].ID)

	_, err = catalog.CreateMany(ctx, primitive.NewObjectID(), nil)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestListTranslatesQuery(t *testing.T) {
	products := newFakeProducts()
	catalog := services.NewCatalogService(products, nil)
	ctx := context.Background()

	_, err := catalog.List(ctx, services.ProductQuery{SortBy: "price", SortOrder: "DESC", FilterBy: "brand", FilterValue: "Sony", PageSize: 500}, primitive.NilObjectID)
	require.NoError(t, err)
	assert.Equal(t, "price", products.last.SortBy)
	assert.True(t, products.last.SortDesc)
	assert.Equal(t, "Sony", products.last.Brand)
	assert.Equal(t, 100, products.last.PageSize)
	assert.Equal(t, 1, products.last.Page)

	page, err := catalog.List(ctx, services.ProductQuery{}, primitive.NilObjectID)
	require.NoError(t, err)
	assert.Equal(t, "created_at", products.last.SortBy)
	assert.True(t, products.last.SortDesc, "newest first by default")
	assert.Equal(t, 10, page.PageSize)
}

func TestListRejectsUnknownOptions(t *testing.T) {
	catalog := services.NewCatalogService(newFakeProducts(), nil)
	ctx := context.Background()

	for _, q := range []services.ProductQuery{
		{SortBy: "stock"},
		{SortOrder: "sideways"},
		{FilterBy: "color", FilterValue: "red"},
	} {
		_, err := catalog.List(ctx, q, primitive.NilObjectID)
		assert.Equal(t, apperr.Validation, apperr.KindOf(err), "%+v", q)
	}
}

func TestViewsMarkCartContents(t *testing.T) {
	products := newFakeProducts()
	carts := newFakeCarts()
	catalog := services.NewCatalogService(products, carts)
	ctx := context.Background()
	viewer := primitive.NewObjectID()

	inCart := products.add("MacBook Air", 1099, primitive.NewObjectID())
	other := products.add("Surface Go", 499, primitive.NewObjectID())
	_, err := carts.AddItem(ctx, viewer, inCart.ID, 3)
	require.NoError(t, err)

	page, err := catalog.List(ctx, services.ProductQuery{}, viewer)
	require.NoError(t, err)
	views := lo.KeyBy(page.Items, func(v services.ProductView) primitive.ObjectID { return v.ID })
	assert.True(t, views[inCart.ID].InCart)
	assert.Equal(t, 3, views[inCart.ID].CartQuantity)
	assert.False(t, views[other.ID].InCart)

	anon, err := catalog.Get(ctx, inCart.ID, primitive.NilObjectID)
	require.NoError(t, err)
	assert.False(t, anon.InCart)
}

func TestUpdateAndDeleteAreOwnerScoped(t *testing.T) {
	products := newFakeProducts()
	catalog := services.NewCatalogService(products, nil)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	p := products.add("Pixel 8", 699, owner)

	_, err := catalog.Update(ctx, owner, p.ID, services.ProductPatchInput{})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = catalog.Update(ctx, primitive.NewObjectID(), p.ID, services.ProductPatchInput{Name: lo.ToPtr("Pixel 8 Pro")})
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	updated, err := catalog.Update(ctx, owner, p.ID, services.ProductPatchInput{Status: lo.ToPtr("out_of_stock")})
	require.NoError(t, err)
	assert.Equal(t, models.ProductOutOfStock, updated.Status)

	_, err = catalog.Delete(ctx, primitive.NewObjectID(), p.ID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	_, err = catalog.Delete(ctx, owner, p.ID)
	require.NoError(t, err)
	_, err = catalog.Get(ctx, p.ID, primitive.NilObjectID)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	found, err := catalog.Lookup(ctx, []primitive.ObjectID{p.ID})
	require.NoError(t, err)
	assert.Empty(t, found)
}
