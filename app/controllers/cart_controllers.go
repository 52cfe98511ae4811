package controllers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/ctx"
)

type Carts interface {
	AddItem(ctx context.Context, subject, productID primitive.ObjectID, quantity int) (*models.Cart, error)
	GetCart(ctx context.Context, subject primitive.ObjectID) (*services.CartView, error)
	UpdateQuantity(ctx context.Context, subject, lineID primitive.ObjectID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, subject, lineID primitive.ObjectID) (*models.Cart, error)
	Clear(ctx context.Context, subject primitive.ObjectID) (repositories.ClearResult, error)
}

type CartController struct {
	carts Carts
}

func NewCartController(carts Carts) *CartController {
	return &CartController{carts: carts}
}

// Add POST /api/cart/items
func (c *CartController) Add(x *ctx.Context) {
	var in services.AddItemInput
	if !x.BindJSON(&in) {
		return
	}
	productID, _ := primitive.ObjectIDFromHex(in.ProductID)
	qty := 1
	if in.Quantity != nil {
		qty = *in.Quantity
	}

	cart, err := c.carts.AddItem(x.Context(), x.Subject(), productID, qty)
	if err != nil {
		x.Fail(err)
		return
	}
	x.CreatedMessage("Product added to cart", cart)
}

// Show GET /api/cart
func (c *CartController) Show(x *ctx.Context) {
	view, err := c.carts.GetCart(x.Context(), x.Subject())
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(view)
}

// Update PATCH /api/cart/items/{lineId}
func (c *CartController) Update(x *ctx.Context) {
	lineID, ok := x.ObjectIDParam("lineId")
	if !ok {
		return
	}
	var in services.UpdateQuantityInput
	if !x.BindJSON(&in) {
		return
	}
	cart, err := c.carts.UpdateQuantity(x.Context(), x.Subject(), lineID, in.Quantity)
	if err != nil {
		x.Fail(err)
		return
	}
	x.SuccessMessage("Cart updated", cart)
}

// Remove DELETE /api/cart/items/{lineId}
func (c *CartController) Remove(x *ctx.Context) {
	lineID, ok := x.ObjectIDParam("lineId")
	if !ok {
		return
	}
	cart, err := c.carts.RemoveItem(x.Context(), x.Subject(), lineID)
	if err != nil {
		x.Fail(err)
		return
	}
	x.SuccessMessage("Item removed from cart", cart)
}

// Clear DELETE /api/cart/items
func (c *CartController) Clear(x *ctx.Context) {
	res, err := c.carts.Clear(x.Context(), x.Subject())
	if err != nil {
		x.Fail(err)
		return
	}
	msg := "Cart cleared"
	if res.AlreadyEmpty {
		msg = "Cart is already empty"
	}
	x.SuccessMessage(msg, res.Cart)
}
