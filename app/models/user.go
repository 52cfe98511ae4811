package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a registered account. Sellers manage the catalog and order statuses.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name"          json:"name"`
	Email     string             `bson:"email"         json:"email"`
	Password  string             `bson:"password"      json:"-"` // bcrypt hash, never serialised
	IsSeller  bool               `bson:"is_seller"     json:"is_seller"`
	Address   *Address           `bson:"address,omitempty" json:"address,omitempty"`
	CreatedAt time.Time          `bson:"created_at"    json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"    json:"updated_at"`
}

// Address is a structured shipping address.
type Address struct {
	Name       string `bson:"name"        json:"name"        validate:"required,min=3,max=100"`
	Phone      string `bson:"phone"       json:"phone"       validate:"required,min=3,max=100"`
	Street     string `bson:"street"      json:"street"      validate:"required,min=3,max=100"`
	City       string `bson:"city"        json:"city"        validate:"required,min=3,max=100"`
	State      string `bson:"state"       json:"state"       validate:"required,min=3,max=100"`
	PostalCode string `bson:"postal_code" json:"postal_code" validate:"required,min=3,max=100"`
	Country    string `bson:"country"     json:"country"     validate:"required,min=3,max=100"`
}

// Buyer is the public identity attached to orders in the seller view.
type Buyer struct {
	ID    primitive.ObjectID `bson:"_id"   json:"id"`
	Name  string             `bson:"name"  json:"name"`
	Email string             `bson:"email" json:"email"`
}

func (u *User) AsBuyer() Buyer {
	return Buyer{ID: u.ID, Name: u.Name, Email: u.Email}
}
