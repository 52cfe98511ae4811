package services

import (
	"context"

	"github.com/shashiranjanraj/shopkart/pkg/event"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
)

// RegisterListeners attaches the audit listeners for order events.
func RegisterListeners(bus *event.Bus) {
	bus.Listen(EventOrderPlaced, func(ctx context.Context, payload any) {
		e, ok := payload.(OrderPlaced)
		if !ok {
			return
		}
		logger.WithCtx(ctx).Info("audit: order placed",
			"order_id", e.Order.ID.Hex(),
			"subject_id", e.Order.UserID.Hex(),
			"total", e.Order.TotalPrice.String(),
			"lines", len(e.Order.Items),
		)
	})

	bus.Listen(EventOrderStatusChanged, func(ctx context.Context, payload any) {
		e, ok := payload.(OrderStatusChanged)
		if !ok {
			return
		}
		logger.WithCtx(ctx).Info("audit: order status changed",
			"order_id", e.OrderID.Hex(),
			"from", e.From,
			"to", e.To,
			"actor_id", e.Actor.Hex(),
		)
	})
}
