package services

import (
	"context"
	"errors"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/cache"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
)

type AddItemInput struct {
	ProductID string `json:"product_id" validate:"required,objectid"`
	Quantity  *int   `json:"quantity"   validate:"nullable,gte=1,lte=1000"`
}

type UpdateQuantityInput struct {
	Quantity int `json:"quantity" validate:"required,gte=1,lte=1000"`
}

// CartLineView is a line with its product resolved at read time.
type CartLineView struct {
	ID        primitive.ObjectID `json:"id"`
	ProductID primitive.ObjectID `json:"product_id"`
	Quantity  int                `json:"quantity"`
	AddedAt   time.Time          `json:"added_at"`
	Product   *models.Product    `json:"product"`
	Available bool               `json:"available"`
	LineTotal models.Money       `json:"line_total"`
}

// CartView is the cart as the owner sees it. Subtotal counts available
// lines only.
type CartView struct {
	ID        primitive.ObjectID `json:"id"`
	UserID    primitive.ObjectID `json:"user_id"`
	Items     []CartLineView     `json:"items"`
	ItemCount int                `json:"item_count"`
	Subtotal  models.Money       `json:"subtotal"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// CartService owns the per-user cart. Cart documents are cached; every
// mutation drops the cached copy and bumps its version, so a read that
// overlapped the mutation cannot put the old document back.
type CartService struct {
	carts    CartStore
	products ProductStore
	cache    cache.Cache[models.Cart]
	group    singleflight.Group
}

func NewCartService(carts CartStore, products ProductStore, c cache.Cache[models.Cart]) *CartService {
	if c == nil {
		c = cache.Noop[models.Cart]{}
	}
	return &CartService{carts: carts, products: products, cache: c}
}

// AddItem puts quantity units of productID in the cart, merging with an
// existing line. Quantity defaults to 1.
func (s *CartService) AddItem(ctx context.Context, subject, productID primitive.ObjectID, quantity int) (*models.Cart, error) {
	const op = "cart.add_item"

	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return nil, apperr.InvalidField(op, "quantity", "The quantity must be at least 1.")
	}
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Available() {
		return nil, apperr.State(op, "product is not available")
	}

	cart, err := s.carts.AddItem(ctx, subject, productID, quantity)
	s.invalidate(ctx, subject)
	if err != nil {
		return nil, err
	}
	metrics.CartOperations.WithLabelValues("add").Inc()
	return cart, nil
}

// GetCart never fails with NotFound; a user without a cart gets an empty one.
func (s *CartService) GetCart(ctx context.Context, subject primitive.ObjectID) (*CartView, error) {
	cart, err := s.load(ctx, subject)
	if err != nil {
		return nil, err
	}
	products, err := s.products.FindByIDs(ctx, cart.ProductIDs())
	if err != nil {
		return nil, err
	}
	return buildView(cart, products), nil
}

func (s *CartService) load(ctx context.Context, subject primitive.ObjectID) (*models.Cart, error) {
	key := subject.Hex()
	v, err, _ := s.group.Do(key, func() (any, error) {
		if cached, err := s.cache.Get(ctx, key); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			logger.WithCtx(ctx).Warn("cart cache read failed", "subject_id", key, "error", err)
		}

		// The version is read before the store so a mutation landing in
		// between makes the fill below a no-op.
		version, verErr := s.cache.Version(ctx, key)
		cart, err := s.carts.Get(ctx, subject)
		if apperr.KindOf(err) == apperr.NotFound {
			return models.EmptyCart(subject), nil
		}
		if err != nil {
			return nil, err
		}
		if verErr != nil {
			logger.WithCtx(ctx).Warn("cart cache version read failed", "subject_id", key, "error", verErr)
			return cart, nil
		}
		if _, err := s.cache.SetIfVersion(ctx, key, version, cart); err != nil {
			logger.WithCtx(ctx).Warn("cart cache write failed", "subject_id", key, "error", err)
		}
		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Cart), nil
}

func buildView(cart *models.Cart, products map[primitive.ObjectID]models.Product) *CartView {
	view := &CartView{
		ID:        cart.ID,
		UserID:    cart.UserID,
		UpdatedAt: cart.UpdatedAt,
		Items: lo.Map(cart.Items, func(it models.LineItem, _ int) CartLineView {
			line := CartLineView{ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity, AddedAt: it.AddedAt}
			if p, ok := products[it.ProductID]; ok {
				line.Product = &p
				line.Available = p.Available()
				line.LineTotal = p.Price.Times(it.Quantity)
			}
			return line
		}),
	}
	for _, l := range view.Items {
		view.ItemCount += l.Quantity
		if l.Available {
			view.Subtotal = view.Subtotal.Add(l.LineTotal)
		}
	}
	return view
}

// UpdateQuantity sets a line to exactly quantity.
func (s *CartService) UpdateQuantity(ctx context.Context, subject, lineID primitive.ObjectID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, apperr.InvalidField("cart.update_quantity", "quantity", "The quantity must be at least 1.")
	}
	cart, err := s.carts.UpdateQuantity(ctx, subject, lineID, quantity)
	s.invalidate(ctx, subject)
	if err != nil {
		return nil, err
	}
	metrics.CartOperations.WithLabelValues("update").Inc()
	return cart, nil
}

// RemoveItem drops a line. The cart itself stays even when it becomes empty.
func (s *CartService) RemoveItem(ctx context.Context, subject, lineID primitive.ObjectID) (*models.Cart, error) {
	cart, err := s.carts.RemoveItem(ctx, subject, lineID)
	s.invalidate(ctx, subject)
	if err != nil {
		return nil, err
	}
	metrics.CartOperations.WithLabelValues("remove").Inc()
	return cart, nil
}

// Clear empties the cart. Clearing an empty or missing cart succeeds.
func (s *CartService) Clear(ctx context.Context, subject primitive.ObjectID) (repositories.ClearResult, error) {
	res, err := s.carts.Clear(ctx, subject)
	s.invalidate(ctx, subject)
	if err != nil {
		return repositories.ClearResult{}, err
	}
	metrics.CartOperations.WithLabelValues("clear").Inc()
	return res, nil
}

// RemoveLines drops what an order consumed from the cart and leaves anything
// added since the order read it.
func (s *CartService) RemoveLines(ctx context.Context, subject primitive.ObjectID, takes []models.LineTake) (*models.Cart, error) {
	cart, err := s.carts.RemoveLines(ctx, subject, takes)
	s.invalidate(ctx, subject)
	if err != nil {
		return nil, err
	}
	metrics.CartOperations.WithLabelValues("checkout").Inc()
	return cart, nil
}

// invalidate runs after the write is attempted, whatever its outcome, since a
// failed call may still have reached the database.
func (s *CartService) invalidate(ctx context.Context, subject primitive.ObjectID) {
	if err := s.cache.Delete(ctx, subject.Hex()); err != nil {
		logger.WithCtx(ctx).Warn("cart cache invalidation failed", "subject_id", subject.Hex(), "error", err)
	}
}
