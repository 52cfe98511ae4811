package services

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
)

// Domain events fired by the order service.
const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

type OrderPlaced struct {
	Order models.Order
}

type OrderStatusChanged struct {
	OrderID primitive.ObjectID
	BuyerID primitive.ObjectID
	From    models.OrderStatus
	To      models.OrderStatus
	Actor   primitive.ObjectID
}

type PlaceOrderInput struct {
	Address *models.Address `json:"address" validate:"nullable,dive"`
}

type UpdateStatusInput struct {
	Status string `json:"status" validate:"required,in=Pending,Processing,Shipped,Delivered,Cancelled"`
}

// CartClearer removes ordered lines from a user's cart and drops any cached
// copy.
type CartClearer interface {
	RemoveLines(ctx context.Context, subject primitive.ObjectID, takes []models.LineTake) (*models.Cart, error)
}

// OrderService turns carts into orders and drives the order status machine.
type OrderService struct {
	orders   OrderStore
	carts    CartStore
	clearer  CartClearer
	products ProductStore
	users    UserStore
	identity *IdentityService
	events   Publisher
	jobs     Dispatcher
}

type OrderDeps struct {
	Orders   OrderStore
	Carts    CartStore
	Clearer  CartClearer
	Products ProductStore
	Users    UserStore
	Identity *IdentityService
	Events   Publisher
	Jobs     Dispatcher
}

func NewOrderService(d OrderDeps) *OrderService {
	return &OrderService{
		orders:   d.Orders,
		carts:    d.Carts,
		clearer:  d.Clearer,
		products: d.Products,
		users:    d.Users,
		identity: d.Identity,
		events:   d.Events,
		jobs:     d.Jobs,
	}
}

// PlaceOrder snapshots the subject's cart into a Pending order and removes
// the ordered lines from the cart. When the order is stored but the cart cannot be cleared, the
// order is returned together with an Internal error describing the mismatch
// and a reconciliation job is queued.
func (s *OrderService) PlaceOrder(ctx context.Context, subject primitive.ObjectID, in PlaceOrderInput) (*models.Order, error) {
	const op = "order.place"
	log := logger.WithCtx(ctx).With("op", op, "subject_id", subject.Hex())

	cart, err := s.carts.Get(ctx, subject)
	if err != nil && apperr.KindOf(err) != apperr.NotFound {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, apperr.State(op, "cart empty")
	}

	products, err := s.products.FindByIDs(ctx, cart.ProductIDs())
	if err != nil {
		return nil, err
	}
	lines := make([]models.OrderLine, 0, len(cart.Items))
	for _, it := range cart.Items {
		p, ok := products[it.ProductID]
		if !ok || !p.Available() {
			return nil, apperr.E(apperr.InvalidState, op, "product %s is no longer available", it.ProductID.Hex())
		}
		line := models.OrderLine{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  it.Quantity,
			Price:     p.Price,
		}
		if !p.SellerID.IsZero() {
			line.SellerID = lo.ToPtr(p.SellerID)
		}
		lines = append(lines, line)
	}

	addr := in.Address
	if addr == nil {
		u, err := s.users.FindByID(ctx, subject)
		if err != nil {
			return nil, err
		}
		addr = u.Address
	}
	if addr == nil {
		return nil, apperr.InvalidField(op, "address", "The address field is required when no address is saved on the profile.")
	}

	order := &models.Order{
		UserID:     subject,
		Items:      lines,
		Address:    addr,
		TotalPrice: models.LinesTotal(lines),
		Status:     models.OrderPending,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	log = log.With("order_id", order.ID.Hex())
	metrics.OrdersPlaced.Inc()
	s.publish(ctx, EventOrderPlaced, OrderPlaced{Order: *order})

	takes := cart.Takes()
	if _, err := s.clearer.RemoveLines(ctx, subject, takes); err != nil {
		log.Error("order created but cart not cleared", "error", err)
		s.scheduleReconcile(ctx, subject, order.ID, takes)
		return order, &apperr.Error{
			Kind:    apperr.Internal,
			Op:      op,
			Message: fmt.Sprintf("order %s created but cart not cleared", order.ID.Hex()),
			Err:     err,
		}
	}

	log.Info("order placed", "total", order.TotalPrice.String(), "lines", len(lines))
	return order, nil
}

func (s *OrderService) scheduleReconcile(ctx context.Context, subject, orderID primitive.ObjectID, takes []models.LineTake) {
	if s.jobs == nil {
		metrics.OrderReconciliations.WithLabelValues("unscheduled").Inc()
		return
	}
	if err := s.jobs.Dispatch(ctx, &ClearCartJob{UserID: subject, OrderID: orderID, Lines: takes}); err != nil {
		logger.WithCtx(ctx).Error("could not queue cart reconciliation",
			"order_id", orderID.Hex(), "subject_id", subject.Hex(), "error", err)
		metrics.OrderReconciliations.WithLabelValues("unscheduled").Inc()
		return
	}
	metrics.OrderReconciliations.WithLabelValues("scheduled").Inc()
}

// ListOrders returns every order to sellers, with the buyer attached, and
// only the caller's own orders to everyone else.
func (s *OrderService) ListOrders(ctx context.Context, subject primitive.ObjectID, isSeller bool) ([]models.Order, error) {
	if !isSeller {
		return s.orders.ListByUser(ctx, subject)
	}

	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	buyers, err := s.users.FindByIDs(ctx, lo.Uniq(lo.Map(orders, func(o models.Order, _ int) primitive.ObjectID { return o.UserID })))
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if u, ok := buyers[orders[i].UserID]; ok {
			orders[i].Buyer = lo.ToPtr(u.AsBuyer())
		}
	}
	return orders, nil
}

// GetOrder returns one order. Orders of other buyers are not found.
func (s *OrderService) GetOrder(ctx context.Context, subject primitive.ObjectID, isSeller bool, id primitive.ObjectID) (*models.Order, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isSeller && o.UserID != subject {
		return nil, apperr.Missing("order.get", "order")
	}
	return o, nil
}

// UpdateStatus moves an order along the status machine. Only sellers may call it.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID primitive.ObjectID, next models.OrderStatus, actor primitive.ObjectID) (*models.Order, error) {
	const op = "order.update_status"

	if _, err := s.identity.AuthorizeSeller(ctx, actor); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, apperr.InvalidField(op, "status", "The status must be one of: Pending, Processing, Shipped, Delivered, Cancelled.")
	}
	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, o, next, actor)
}

// CancelOwnOrder lets a buyer cancel an order that is still Pending.
func (s *OrderService) CancelOwnOrder(ctx context.Context, subject, orderID primitive.ObjectID) (*models.Order, error) {
	const op = "order.cancel"

	o, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != subject {
		return nil, apperr.Missing(op, "order")
	}
	if o.Status != models.OrderPending {
		return nil, apperr.Transition(op, fmt.Sprintf("only Pending orders can be cancelled, order is %s", o.Status))
	}
	return s.transition(ctx, o, models.OrderCancelled, subject)
}

func (s *OrderService) transition(ctx context.Context, o *models.Order, next models.OrderStatus, actor primitive.ObjectID) (*models.Order, error) {
	from := o.Status
	if !from.CanTransitionTo(next) {
		return nil, apperr.Transition("order.transition", fmt.Sprintf("cannot change status from %s to %s", from, next))
	}
	updated, err := s.orders.UpdateStatus(ctx, o.ID, from, next)
	if err != nil {
		return nil, err
	}

	metrics.OrderTransitions.WithLabelValues(string(from), string(next)).Inc()
	logger.WithCtx(ctx).Info("order status changed",
		"order_id", o.ID.Hex(), "from", from, "to", next, "actor_id", actor.Hex())
	s.publish(ctx, EventOrderStatusChanged, OrderStatusChanged{OrderID: o.ID, BuyerID: o.UserID, From: from, To: next, Actor: actor})
	return updated, nil
}

func (s *OrderService) publish(ctx context.Context, event string, payload any) {
	if s.events != nil {
		s.events.FireAsync(ctx, event, payload)
	}
}
