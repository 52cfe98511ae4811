package controllers

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/ctx"
	"github.com/shashiranjanraj/shopkart/pkg/sse"
)

type Orders interface {
	PlaceOrder(ctx context.Context, subject primitive.ObjectID, in services.PlaceOrderInput) (*models.Order, error)
	ListOrders(ctx context.Context, subject primitive.ObjectID, isSeller bool) ([]models.Order, error)
	GetOrder(ctx context.Context, subject primitive.ObjectID, isSeller bool, id primitive.ObjectID) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID primitive.ObjectID, next models.OrderStatus, actor primitive.ObjectID) (*models.Order, error)
	CancelOwnOrder(ctx context.Context, subject, orderID primitive.ObjectID) (*models.Order, error)
}

// Roles answers whether a subject is a seller.
type Roles interface {
	IsSeller(ctx context.Context, subject primitive.ObjectID) (bool, error)
}

// Feed hands out live order updates.
type Feed interface {
	Subscribe(subject primitive.ObjectID, seller bool) (<-chan services.OrderUpdate, func())
}

// streamHeartbeat keeps idle streams alive through proxies.
var streamHeartbeat = 25 * time.Second

type OrderController struct {
	orders Orders
	roles  Roles
	feed   Feed
}

func NewOrderController(orders Orders, roles Roles, feed Feed) *OrderController {
	return &OrderController{orders: orders, roles: roles, feed: feed}
}

// Place POST /api/orders/place
//
// The body is optional; without an address the saved profile address is used.
func (c *OrderController) Place(x *ctx.Context) {
	var in services.PlaceOrderInput
	if x.R.ContentLength != 0 && !x.BindJSON(&in) {
		return
	}

	order, err := c.orders.PlaceOrder(x.Context(), x.Subject(), in)
	switch {
	case err == nil:
		x.CreatedMessage("Order placed successfully", order)
	case order != nil:
		// Stored but the cart was not emptied; reconciliation is queued.
		x.Log().Error("order placed with pending cart reconciliation", "order_id", order.ID.Hex(), "error", err)
		msg := "Order placed, but the cart could not be cleared"
		if ae, ok := apperr.As(err); ok && ae.Message != "" {
			msg = ae.Message
		}
		x.CreatedMessage(msg, order)
	default:
		x.Fail(err)
	}
}

// Index GET /api/orders
func (c *OrderController) Index(x *ctx.Context) {
	isSeller, err := c.roles.IsSeller(x.Context(), x.Subject())
	if err != nil {
		x.Fail(err)
		return
	}
	orders, err := c.orders.ListOrders(x.Context(), x.Subject(), isSeller)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(orders)
}

// Stream GET /api/orders/stream
//
// Server-Sent Events: order.placed and order.status_changed for the caller's
// orders, or for every order when the caller is a seller.
func (c *OrderController) Stream(x *ctx.Context) {
	isSeller, err := c.roles.IsSeller(x.Context(), x.Subject())
	if err != nil {
		x.Fail(err)
		return
	}

	stream, err := sse.New(x.W, x.R)
	if err != nil {
		x.Log().Error("order stream unavailable", "error", err)
		return
	}
	updates, cancel := c.feed.Subscribe(x.Subject(), isSeller)
	defer cancel()

	if err := stream.Comment("connected"); err != nil {
		return
	}
	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-x.Context().Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := stream.Send(u.Event, u.OrderID.Hex(), u); err != nil {
				return
			}
		case <-heartbeat.C:
			if err := stream.Comment("ping"); err != nil {
				return
			}
		}
	}
}

// Show GET /api/orders/{id}
func (c *OrderController) Show(x *ctx.Context) {
	id, ok := x.ObjectIDParam("id")
	if !ok {
		return
	}
	isSeller, err := c.roles.IsSeller(x.Context(), x.Subject())
	if err != nil {
		x.Fail(err)
		return
	}
	order, err := c.orders.GetOrder(x.Context(), x.Subject(), isSeller, id)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(order)
}

// Cancel POST /api/orders/{id}/cancel
func (c *OrderController) Cancel(x *ctx.Context) {
	id, ok := x.ObjectIDParam("id")
	if !ok {
		return
	}
	order, err := c.orders.CancelOwnOrder(x.Context(), x.Subject(), id)
	if err != nil {
		x.Fail(err)
		return
	}
	x.SuccessMessage("Order cancelled", order)
}

// UpdateStatus PATCH /api/orders/{id}/status
func (c *OrderController) UpdateStatus(x *ctx.Context) {
	id, ok := x.ObjectIDParam("id")
	if !ok {
		return
	}
	var in services.UpdateStatusInput
	if !x.BindJSON(&in) {
		return
	}
	next, _ := models.ParseOrderStatus(in.Status)

	order, err := c.orders.UpdateStatus(x.Context(), id, next, x.Subject())
	if err != nil {
		x.Fail(err)
		return
	}
	x.SuccessMessage("Order status updated", order)
}
