package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductStatus string

const (
	ProductActive     ProductStatus = "active"
	ProductInactive   ProductStatus = "inactive"
	ProductOutOfStock ProductStatus = "out_of_stock"
)

const (
	CategoryLaptop    = "Laptop"
	CategoryMobile    = "Mobile"
	CategoryTablet    = "Tablet"
	CategoryAccessory = "Accessory"
)

// Categories and Brands are the accepted catalog values.
var (
	Categories = []string{CategoryLaptop, CategoryMobile, CategoryTablet, CategoryAccessory}
	Brands     = []string{
		"Apple", "Samsung", "Dell", "HP", "Google", "OnePlus", "Sony",
		"Lenovo", "Microsoft", "Huawei", "Xiaomi", "Amazon", "Vivo",
	}
)

// Product is a catalog entry. Deleted products stay in the collection.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name"          json:"name"`
	Description string             `bson:"description"   json:"description"`
	Price       Money              `bson:"price"         json:"price"`
	Brand       string             `bson:"brand"         json:"brand"`
	Category    string             `bson:"category"      json:"category"`
	Status      ProductStatus      `bson:"status"        json:"status"`
	Stock       int                `bson:"stock"         json:"stock"`
	Images      []string           `bson:"images"        json:"images"`
	SellerID    primitive.ObjectID `bson:"seller_id"     json:"seller_id"`
	Deleted     bool               `bson:"deleted"       json:"-"`
	CreatedAt   time.Time          `bson:"created_at"    json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"    json:"updated_at"`
}

// Available reports whether the product can be put in a cart or ordered.
func (p *Product) Available() bool {
	return !p.Deleted && p.Status == ProductActive
}
