// Package routes is the route table of the HTTP API.
package routes

import (
	"github.com/shashiranjanraj/shopkart/app/controllers"
	"github.com/shashiranjanraj/shopkart/pkg/ctx"
	"github.com/shashiranjanraj/shopkart/pkg/middleware"
	"github.com/shashiranjanraj/shopkart/pkg/rbac"
	"github.com/shashiranjanraj/shopkart/pkg/router"
)

// Gate authenticates bearer credentials and checks the seller role.
type Gate interface {
	middleware.Authenticator
	rbac.SellerChecker
}

// API holds everything the route table binds to.
type API struct {
	Gate     Gate
	Auth     *controllers.AuthController
	Products *controllers.ProductController
	Carts    *controllers.CartController
	Orders   *controllers.OrderController
}

func RegisterAPI(r *router.Router, h API) {
	authed := middleware.Authenticate(h.Gate)
	optional := middleware.OptionalAuth(h.Gate)
	seller := rbac.Seller(h.Gate)

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", "auth.register", ctx.Wrap(h.Auth.Register))
	auth.Post("/login", "auth.login", ctx.Wrap(h.Auth.Login))

	user := api.Group("/user", authed)
	user.Get("", "user.show", ctx.Wrap(h.Auth.Profile))
	user.Patch("", "user.update", ctx.Wrap(h.Auth.UpdateProfile))

	catalog := api.Group("/products", optional)
	catalog.Get("", "products.index", ctx.Wrap(h.Products.Index))
	catalog.Get("/{id}", "products.show", ctx.Wrap(h.Products.Show))

	manage := api.Group("/products", authed, seller)
	manage.Post("", "products.store", ctx.Wrap(h.Products.Store))
	manage.Post("/bulk", "products.bulk", ctx.Wrap(h.Products.BulkStore))
	manage.Patch("/{id}", "products.update", ctx.Wrap(h.Products.Update))
	manage.Delete("/{id}", "products.destroy", ctx.Wrap(h.Products.Destroy))

	cart := api.Group("/cart", authed)
	cart.Get("", "cart.show", ctx.Wrap(h.Carts.Show))
	cart.Post("/items", "cart.add", ctx.Wrap(h.Carts.Add))
	cart.Delete("/items", "cart.clear", ctx.Wrap(h.Carts.Clear))
	cart.Patch("/items/{lineId}", "cart.update", ctx.Wrap(h.Carts.Update))
	cart.Delete("/items/{lineId}", "cart.remove", ctx.Wrap(h.Carts.Remove))

	// Status changes are seller-only before the body is read; the order
	// service checks again.
	orders := api.Group("/orders", authed)
	orders.Get("", "orders.index", ctx.Wrap(h.Orders.Index))
	orders.Get("/stream", "orders.stream", ctx.Wrap(h.Orders.Stream))
	orders.Post("/place", "orders.place", ctx.Wrap(h.Orders.Place))
	orders.Get("/{id}", "orders.show", ctx.Wrap(h.Orders.Show))
	orders.Post("/{id}/cancel", "orders.cancel", ctx.Wrap(h.Orders.Cancel))
	orders.Patch("/{id}/status", "orders.status", ctx.Wrap(h.Orders.UpdateStatus), seller)
}
