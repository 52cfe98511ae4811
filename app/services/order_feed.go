package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/event"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
)

// OrderUpdate is one message on the live order stream.
type OrderUpdate struct {
	Event   string             `json:"event"`
	OrderID primitive.ObjectID `json:"order_id"`
	BuyerID primitive.ObjectID `json:"user_id"`
	Status  models.OrderStatus `json:"status"`
	From    models.OrderStatus `json:"from,omitempty"`
	At      time.Time          `json:"at"`
}

type feedSubscriber struct {
	subject primitive.ObjectID
	seller  bool
	ch      chan OrderUpdate
}

// OrderFeed fans order events out to connected clients. Sellers receive every
// update, buyers only their own. A subscriber whose buffer is full misses the
// update rather than stalling the publisher.
type OrderFeed struct {
	buffer int

	mu   sync.RWMutex
	subs map[*feedSubscriber]struct{}
}

func NewOrderFeed(buffer int) *OrderFeed {
	if buffer < 1 {
		buffer = 16
	}
	return &OrderFeed{buffer: buffer, subs: map[*feedSubscriber]struct{}{}}
}

// Subscribe registers a listener. The returned cancel closes the channel and
// is safe to call more than once.
func (f *OrderFeed) Subscribe(subject primitive.ObjectID, seller bool) (<-chan OrderUpdate, func()) {
	sub := &feedSubscriber{subject: subject, seller: seller, ch: make(chan OrderUpdate, f.buffer)}

	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	metrics.FeedSubscribers.Inc()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, sub)
			f.mu.Unlock()
			close(sub.ch)
			metrics.FeedSubscribers.Dec()
		})
	}
}

// Publish delivers u to every subscriber allowed to see it.
func (f *OrderFeed) Publish(u OrderUpdate) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for sub := range f.subs {
		if !sub.seller && sub.subject != u.BuyerID {
			continue
		}
		select {
		case sub.ch <- u:
		default:
			metrics.FeedDropped.Inc()
		}
	}
}

// Attach feeds order events from bus into f.
func (f *OrderFeed) Attach(bus *event.Bus) {
	bus.Listen(EventOrderPlaced, func(_ context.Context, payload any) {
		e, ok := payload.(OrderPlaced)
		if !ok {
			return
		}
		f.Publish(OrderUpdate{
			Event:   EventOrderPlaced,
			OrderID: e.Order.ID,
			BuyerID: e.Order.UserID,
			Status:  e.Order.Status,
			At:      e.Order.CreatedAt,
		})
	})

	bus.Listen(EventOrderStatusChanged, func(_ context.Context, payload any) {
		e, ok := payload.(OrderStatusChanged)
		if !ok {
			return
		}
		f.Publish(OrderUpdate{
			Event:   EventOrderStatusChanged,
			OrderID: e.OrderID,
			BuyerID: e.BuyerID,
			Status:  e.To,
			From:    e.From,
			At:      time.Now().UTC(),
		})
	})
}
