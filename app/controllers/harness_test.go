package controllers_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/controllers"
	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/app/routes"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/router"
	"github.com/shashiranjanraj/shopkart/pkg/storage"
	"github.com/shashiranjanraj/shopkart/pkg/testkit"
)

// gate treats the bearer token as the subject's hex id.
type gate struct {
	sellers map[primitive.ObjectID]bool
}

func (g *gate) Authenticate(credential string) (primitive.ObjectID, error) {
	if credential == "" {
		return primitive.NilObjectID, apperr.Unauthorized("test", "Authorization token required")
	}
	tok, ok := strings.CutPrefix(credential, "Bearer ")
	if !ok {
		return primitive.NilObjectID, apperr.Unauthorized("test", "Invalid authorization header")
	}
	id, err := primitive.ObjectIDFromHex(tok)
	if err != nil {
		return primitive.NilObjectID, apperr.Unauthorized("test", "Invalid or expired token")
	}
	return id, nil
}

func (g *gate) AuthenticateOptional(credential string) (primitive.ObjectID, bool) {
	id, err := g.Authenticate(credential)
	return id, err == nil
}

func (g *gate) CheckSeller(_ context.Context, subject primitive.ObjectID) error {
	if !g.sellers[subject] {
		return apperr.Denied("test", "Seller access required")
	}
	return nil
}

func (g *gate) IsSeller(_ context.Context, subject primitive.ObjectID) (bool, error) {
	return g.sellers[subject], nil
}

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, in)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockAccounts) Login(ctx context.Context, in services.LoginInput) (services.AccessToken, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(services.AccessToken), args.Error(1)
}

func (m *mockAccounts) Profile(ctx context.Context, subject primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, subject)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockAccounts) UpdateProfile(ctx context.Context, subject primitive.ObjectID, in services.ProfileInput) (*models.User, error) {
	args := m.Called(ctx, subject, in)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) Create(ctx context.Context, seller primitive.ObjectID, in services.ProductInput) (*models.Product, error) {
	args := m.Called(ctx, seller, in)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Error(1)
}

func (m *mockCatalog) CreateMany(ctx context.Context, seller primitive.ObjectID, in []services.ProductInput) ([]*models.Product, error) {
	args := m.Called(ctx, seller, in)
	ps, _ := args.Get(0).([]*models.Product)
	return ps, args.Error(1)
}

func (m *mockCatalog) Get(ctx context.Context, id, viewer primitive.ObjectID) (*services.ProductView, error) {
	args := m.Called(ctx, id, viewer)
	v, _ := args.Get(0).(*services.ProductView)
	return v, args.Error(1)
}

func (m *mockCatalog) List(ctx context.Context, q services.ProductQuery, viewer primitive.ObjectID) (services.ProductPage, error) {
	args := m.Called(ctx, q, viewer)
	return args.Get(0).(services.ProductPage), args.Error(1)
}

func (m *mockCatalog) Update(ctx context.Context, seller, id primitive.ObjectID, in services.ProductPatchInput) (*models.Product, error) {
	args := m.Called(ctx, seller, id, in)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Error(1)
}

func (m *mockCatalog) Delete(ctx context.Context, seller, id primitive.ObjectID) (*models.Product, error) {
	args := m.Called(ctx, seller, id)
	p, _ := args.Get(0).(*models.Product)
	return p, args.Error(1)
}

type mockCarts struct{ mock.Mock }

func (m *mockCarts) AddItem(ctx context.Context, subject, productID primitive.ObjectID, quantity int) (*models.Cart, error) {
	args := m.Called(ctx, subject, productID, quantity)
	c, _ := args.Get(0).(*models.Cart)
	return c, args.Error(1)
}

func (m *mockCarts) GetCart(ctx context.Context, subject primitive.ObjectID) (*services.CartView, error) {
	args := m.Called(ctx, subject)
	v, _ := args.Get(0).(*services.CartView)
	return v, args.Error(1)
}

func (m *mockCarts) UpdateQuantity(ctx context.Context, subject, lineID primitive.ObjectID, quantity int) (*models.Cart, error) {
	args := m.Called(ctx, subject, lineID, quantity)
	c, _ := args.Get(0).(*models.Cart)
	return c, args.Error(1)
}

func (m *mockCarts) RemoveItem(ctx context.Context, subject, lineID primitive.ObjectID) (*models.Cart, error) {
	args := m.Called(ctx, subject, lineID)
	c, _ := args.Get(0).(*models.Cart)
	return c, args.Error(1)
}

func (m *mockCarts) Clear(ctx context.Context, subject primitive.ObjectID) (repositories.ClearResult, error) {
	args := m.Called(ctx, subject)
	return args.Get(0).(repositories.ClearResult), args.Error(1)
}

type mockOrders struct{ mock.Mock }

func (m *mockOrders) PlaceOrder(ctx context.Context, subject primitive.ObjectID, in services.PlaceOrderInput) (*models.Order, error) {
	args := m.Called(ctx, subject, in)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockOrders) ListOrders(ctx context.Context, subject primitive.ObjectID, isSeller bool) ([]models.Order, error) {
	args := m.Called(ctx, subject, isSeller)
	os, _ := args.Get(0).([]models.Order)
	return os, args.Error(1)
}

func (m *mockOrders) GetOrder(ctx context.Context, subject primitive.ObjectID, isSeller bool, id primitive.ObjectID) (*models.Order, error) {
	args := m.Called(ctx, subject, isSeller, id)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockOrders) UpdateStatus(ctx context.Context, orderID primitive.ObjectID, next models.OrderStatus, actor primitive.ObjectID) (*models.Order, error) {
	args := m.Called(ctx, orderID, next, actor)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *mockOrders) CancelOwnOrder(ctx context.Context, subject, orderID primitive.ObjectID) (*models.Order, error) {
	args := m.Called(ctx, subject, orderID)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

type harness struct {
	api      *testkit.Client
	accounts *mockAccounts
	catalog  *mockCatalog
	carts    *mockCarts
	orders   *mockOrders
	feed     *services.OrderFeed
	handler  http.Handler
	buyer    primitive.ObjectID
	seller   primitive.ObjectID
}

// newHarness mounts the real route table over mocked services. disk may be nil.
func newHarness(t *testing.T, disk storage.Disk) *harness {
	t.Helper()
	h := &harness{
		accounts: &mockAccounts{},
		catalog:  &mockCatalog{},
		carts:    &mockCarts{},
		orders:   &mockOrders{},
		feed:     services.NewOrderFeed(8),
		buyer:    primitive.NewObjectID(),
		seller:   primitive.NewObjectID(),
	}
	g := &gate{sellers: map[primitive.ObjectID]bool{h.seller: true}}

	r := router.New()
	routes.RegisterAPI(r, routes.API{
		Gate:     g,
		Auth:     controllers.NewAuthController(h.accounts),
		Products: controllers.NewProductController(h.catalog, disk),
		Carts:    controllers.NewCartController(h.carts),
		Orders:   controllers.NewOrderController(h.orders, g, h.feed),
	})
	h.handler = r.Handler()
	h.api = testkit.New(t, h.handler)

	t.Cleanup(func() {
		h.accounts.AssertExpectations(t)
		h.catalog.AssertExpectations(t)
		h.carts.AssertExpectations(t)
		h.orders.AssertExpectations(t)
	})
	return h
}

func (h *harness) asBuyer() *testkit.Client  { return h.api.As(h.buyer.Hex()) }
func (h *harness) asSeller() *testkit.Client { return h.api.As(h.seller.Hex()) }
