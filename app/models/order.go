package models

import (
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order is immutable after creation except for Status.
type Order struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"     json:"id"`
	UserID     primitive.ObjectID `bson:"user_id"           json:"user_id"`
	Items      []OrderLine        `bson:"items"             json:"items"`
	Address    *Address           `bson:"address,omitempty" json:"address,omitempty"`
	TotalPrice Money              `bson:"total_price"       json:"total_price"`
	Status     OrderStatus        `bson:"status"            json:"status"`
	CreatedAt  time.Time          `bson:"created_at"        json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at"        json:"updated_at"`

	// Buyer is filled in for the seller view only.
	Buyer *Buyer `bson:"-" json:"user,omitempty"`
}

// OrderLine snapshots the product at the moment the order was placed.
type OrderLine struct {
	ProductID primitive.ObjectID  `bson:"product_id"          json:"product_id"`
	Name      string              `bson:"name"                json:"name"`
	Quantity  int                 `bson:"quantity"            json:"quantity"`
	Price     Money               `bson:"price"               json:"price"`
	SellerID  *primitive.ObjectID `bson:"seller_id,omitempty" json:"seller_id,omitempty"`
}

func (l OrderLine) Subtotal() Money { return l.Price.Times(l.Quantity) }

// LinesTotal is the sum of quantity × unit price over lines.
func LinesTotal(lines []OrderLine) Money {
	return SumMoney(lo.Map(lines, func(l OrderLine, _ int) Money { return l.Subtotal() })...)
}
