package models

import (
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cart is the single active cart of a user. It only references products;
// prices are resolved when the cart is read or ordered.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id"       json:"user_id"`
	Items     []LineItem         `bson:"items"         json:"items"`
	CreatedAt time.Time          `bson:"created_at"    json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"    json:"updated_at"`
}

// LineItem is unique by ProductID within a cart. Quantity is always >= 1.
type LineItem struct {
	ID        primitive.ObjectID `bson:"_id"        json:"id"`
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Quantity  int                `bson:"quantity"   json:"quantity"`
	AddedAt   time.Time          `bson:"added_at"   json:"added_at"`
}

// EmptyCart is what a user without a cart document sees.
func EmptyCart(userID primitive.ObjectID) *Cart {
	return &Cart{UserID: userID, Items: []LineItem{}}
}

func (c *Cart) IsEmpty() bool { return c == nil || len(c.Items) == 0 }

// Line returns the line holding productID.
func (c *Cart) Line(productID primitive.ObjectID) (LineItem, bool) {
	if c == nil {
		return LineItem{}, false
	}
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return LineItem{}, false
}

// ProductIDs lists the referenced products in line order.
func (c *Cart) ProductIDs() []primitive.ObjectID {
	if c == nil {
		return nil
	}
	return lo.Map(c.Items, func(it LineItem, _ int) primitive.ObjectID { return it.ProductID })
}

// LineTake is the quantity of one cart line consumed by an order.
type LineTake struct {
	LineID   primitive.ObjectID `json:"line_id"`
	Quantity int                `json:"quantity"`
}

// Takes lists every line at its current quantity.
func (c *Cart) Takes() []LineTake {
	if c == nil {
		return nil
	}
	return lo.Map(c.Items, func(it LineItem, _ int) LineTake {
		return LineTake{LineID: it.ID, Quantity: it.Quantity}
	})
}
