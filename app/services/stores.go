// Package services holds the domain operations: identity, accounts, catalog,
// cart and orders. Inputs arrive already bound and validated; services apply
// the business rules and return apperr-classified errors.
package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/pkg/queue"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, name string, addr *models.Address) (*models.User, error)
	SetSeller(ctx context.Context, email string, seller bool) (*models.User, error)
}

type ProductStore interface {
	Create(ctx context.Context, p *models.Product) error
	CreateMany(ctx context.Context, products []*models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error)
	List(ctx context.Context, f repositories.ProductFilter) ([]models.Product, int64, error)
	Update(ctx context.Context, sellerID, id primitive.ObjectID, patch repositories.ProductPatch) (*models.Product, error)
	SoftDelete(ctx context.Context, sellerID, id primitive.ObjectID) (*models.Product, error)
}

type CartStore interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	AddItem(ctx context.Context, userID, productID primitive.ObjectID, qty int) (*models.Cart, error)
	UpdateQuantity(ctx context.Context, userID, lineID primitive.ObjectID, qty int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, lineID primitive.ObjectID) (*models.Cart, error)
	Clear(ctx context.Context, userID primitive.ObjectID) (repositories.ClearResult, error)
	RemoveLines(ctx context.Context, userID primitive.ObjectID, takes []models.LineTake) (*models.Cart, error)
}

type OrderStore interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus) (*models.Order, error)
}

// Publisher delivers domain events to in-process listeners.
type Publisher interface {
	FireAsync(ctx context.Context, event string, payload any)
}

// Dispatcher enqueues background jobs.
type Dispatcher interface {
	Dispatch(ctx context.Context, job queue.Job) error
}
