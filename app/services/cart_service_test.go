package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/cache"
)

type cartFixture struct {
	svc      *services.CartService
	carts    *fakeCarts
	products *fakeProducts
	redis    *miniredis.Miniredis
}

func newCartFixture(t *testing.T) cartFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	carts := newFakeCarts()
	products := newFakeProducts()
	c := cache.NewRedis[models.Cart](rdb, "cart", time.Minute)
	return cartFixture{
		svc:      services.NewCartService(carts, products, c),
		carts:    carts,
		products: products,
		redis:    mr,
	}
}

func TestAddItemCreatesCartWithRequestedQuantity(t *testing.T) {
	f := newCartFixture(t)
	p := f.products.add("iPad Air", 599, primitive.NewObjectID())
	subject := primitive.NewObjectID()

	cart, err := f.svc.AddItem(context.Background(), subject, p.ID, 4)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 4, cart.Items[0].Quantity)
}

func TestAddItemDefaultsToOne(t *testing.T) {
	f := newCartFixture(t)
	p := f.products.add("iPad Mini", 499, primitive.NewObjectID())

	cart, err := f.svc.AddItem(context.Background(), primitive.NewObjectID(), p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Items[0].Quantity)
}

// Repeat adds must grow the line by the requested amount, not by one.
func TestRepeatedAddIncrementsByRequestedQuantity(t *testing.T) {
	f := newCartFixture(t)
	p := f.products.add("Galaxy Tab", 399, primitive.NewObjectID())
	subject := primitive.NewObjectID()
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, subject, p.ID, 2)
	require.NoError(t, err)
	cart, err := f.svc.AddItem(ctx, subject, p.ID, 5)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 7, cart.Items[0].Quantity)
}

func TestConcurrentAddsKeepOneLine(t *testing.T) {
	f := newCartFixture(t)
	p := f.products.add("Pixel Buds", 99, primitive.NewObjectID())
	subject := primitive.NewObjectID()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.AddItem(context.Background(), subject, p.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	view, err := f.svc.GetCart(context.Background(), subject)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 10, view.Items[0].Quantity)
}

func TestAddItemRejectsMissingAndUnavailableProducts(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	subject := primitive.NewObjectID()

	_, err := f.svc.AddItem(ctx, subject, primitive.NewObjectID(), 1)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))

	p := f.products.add("Old Phone", 50, primitive.NewObjectID())
	f.products.byID[p.ID].Status = models.ProductInactive
	_, err = f.svc.AddItem(ctx, subject, p.ID, 1)
	assert.Equal(t, apperr.InvalidState, apperr.KindOf(err))

	_, err = f.svc.AddItem(ctx, subject, p.ID, -2)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestGetCartWithoutCartIsEmpty(t *testing.T) {
	f := newCartFixture(t)

	view, err := f.svc.GetCart(context.Background(), primitive.NewObjectID())
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Subtotal.IsZero())
}

func TestGetCartResolvesProducts(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	subject := primitive.NewObjectID()
	laptop := f.products.add("ThinkPad", 1200, primitive.NewObjectID())
	mouse := f.products.add("Mouse", 25, primitive.NewObjectID())

	_, err := f.svc.AddItem(ctx, subject, laptop.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, subject, mouse.ID, 2)
	require.NoError(t, err)
	f.products.byID[mouse.ID].Deleted = true

	view, err := f.svc.GetCart(ctx, subject)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.True(t, view.Items[0].Available)
	assert.Equal(t, "1200", view.Items[0].LineTotal.String())
	assert.False(t, view.Items[1].Available)
	assert.Nil(t, view.Items[1].Product)
	assert.Equal(t, "1200", view.Subtotal.String())
	assert.Equal(t, 3, view.ItemCount)
}

func TestGetCartIsCachedAndInvalidated(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	subject := primitive.NewObjectID()
	p := f.products.add("Kindle", 120, primitive.NewObjectID())

	_, err := f.svc.AddItem(ctx, subject, p.ID, 1)
	require.NoError(t, err)

	_, err = f.svc.GetCart(ctx, subject)
	require.NoError(t, err)
	assert.True(t, f.redis.Exists("cart:"+subject.Hex()))
	reads := f.carts.gets

	_, err = f.svc.GetCart(ctx, subject)
	require.NoError(t, err)
	assert.Equal(t, reads, f.carts.gets, "second read served from cache")

	_, err = f.svc.AddItem(ctx, subject, p.ID, 1)
	require.NoError(t, err)
	assert.False(t, f.redis.Exists("cart:"+subject.Hex()))

	view, err := f.svc.GetCart(ctx, subject)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Items[0].Quantity)
}

// A read that loaded the cart before a concurrent add must not cache the old
// document once the add has invalidated it.
func TestGetCartOverlappingAddDoesNotCacheStaleCart(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	subject := primitive.NewObjectID()
	first := f.products.add("Kindle", 120, primitive.NewObjectID())
	second := f.products.add("Kindle Cover", 30, primitive.NewObjectID())
	_, err := f.svc.AddItem(ctx, subject, first.ID, 1)
	require.NoError(t, err)

	f.carts.afterGet = func() {
		_, err := f.svc.AddItem(ctx, subject, second.ID, 1)
		require.NoError(t, err)
	}
	view, err := f.svc.GetCart(ctx, subject)
	require.NoError(t, err)
	assert.Len(t, view.Items, 1, "the overlapping read returns what it loaded")
	assert.False(t, f.redis.Exists("cart:"+subject.Hex()))

	view, err = f.svc.GetCart(ctx, subject)
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
}

func TestGetCartOverlappingRemoveNeverShowsRemovedLine(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	subject := primitive.NewObjectID()
	p := f.products.add("Echo Show", 90, primitive.NewObjectID())
	cart, err := f.svc.AddItem(ctx, subject, p.ID, 1)
	require.NoError(t, err)

	f.carts.afterGet = func() {
		_, err := f.svc.RemoveItem(ctx, subject, cart.Items[0].ID)
		require.NoError(t, err)
	}
	_, err = f.svc.GetCart(ctx, subject)
	require.NoError(t, err)

	view, err := f.svc.GetCart(ctx, subject)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestRemoveLinesKeepsLaterAdditions(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	subject := primitive.NewObjectID()
	ordered := f.products.add("Pixel", 699, primitive.NewObjectID())
	later := f.products.add("Pixel Case", 29, primitive.NewObjectID())
	snap, err := f.svc.AddItem(ctx, subject, ordered.ID, 2)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, subject, ordered.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, subject, later.ID, 4)
	require.NoError(t, err)

	cart, err := f.svc.RemoveLines(ctx, subject, snap.Takes())
	require.NoError(t, err)

	require.Len(t, cart.Items, 2)
	line, _ := cart.Line(ordered.ID)
	assert.Equal(t, 1, line.Quantity)
	line, _ = cart.Line(later.ID)
	assert.Equal(t, 4, line.Quantity)
}

func TestUpdateQuantity(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	subject := primitive.NewObjectID()
	p := f.products.add("Echo Dot", 50, primitive.NewObjectID())
	cart, err := f.svc.AddItem(ctx, subject, p.ID, 3)
	require.NoError(t, err)
	lineID := cart.Items[0].ID

	cart, err = f.svc.UpdateQuantity(ctx, subject, lineID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Items[0].Quantity)

	for _, bad := range []int{0, -1} {
		_, err = f.svc.UpdateQuantity(ctx, subject, lineID, bad)
		assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	}

	_, err = f.svc.UpdateQuantity(ctx, primitive.NewObjectID(), lineID, 2)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err), "another user's line")
}

func TestRemoveItemKeepsCart(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	subject := primitive.NewObjectID()
	p := f.products.add("AirPods", 179, primitive.NewObjectID())
	cart, err := f.svc.AddItem(ctx, subject, p.ID, 1)
	require.NoError(t, err)

	cart, err = f.svc.RemoveItem(ctx, subject, cart.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	view, err := f.svc.GetCart(ctx, subject)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, cart.ID, view.ID)

	_, err = f.svc.RemoveItem(ctx, subject, primitive.NewObjectID())
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestClearIsIdempotent(t *testing.T) {
	f := newCartFixture(t)
	ctx := context.Background()
	subject := primitive.NewObjectID()
	p := f.products.add("Fire TV", 40, primitive.NewObjectID())
	_, err := f.svc.AddItem(ctx, subject, p.ID, 2)
	require.NoError(t, err)

	first, err := f.svc.Clear(ctx, subject)
	require.NoError(t, err)
	assert.False(t, first.AlreadyEmpty)
	assert.Empty(t, first.Cart.Items)

	second, err := f.svc.Clear(ctx, subject)
	require.NoError(t, err)
	assert.True(t, second.AlreadyEmpty)
	assert.Empty(t, second.Cart.Items)

	never, err := f.svc.Clear(ctx, primitive.NewObjectID())
	require.NoError(t, err)
	assert.True(t, never.AlreadyEmpty)
}
