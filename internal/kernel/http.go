package kernel

import (
	"net/http"
	"strings"
	"time"

	"github.com/shashiranjanraj/shopkart/app/controllers"
	"github.com/shashiranjanraj/shopkart/app/routes"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
	"github.com/shashiranjanraj/shopkart/pkg/middleware"
	"github.com/shashiranjanraj/shopkart/pkg/reqid"
	"github.com/shashiranjanraj/shopkart/pkg/response"
	"github.com/shashiranjanraj/shopkart/pkg/router"
	"github.com/shashiranjanraj/shopkart/pkg/storage"
)

// NewRouter builds the router with the global middleware stack, the
// operational endpoints and the API routes. Outermost first:
//
//  1. metrics     total latency including everything below
//  2. recovery    catches panics before they kill the connection
//  3. request id  before anything logs
//  4. logger      request-scoped logger tagged with request_id
//  5. cors
//  6. rate limit
func NewRouter(api routes.API, disk storage.Disk) *router.Router {
	r := router.New()
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.DefaultCORSOptions()))
	if err := middleware.SetTrustedProxies(config.TrustedProxies()); err != nil {
		logger.L.Warn("ignoring TRUSTED_PROXIES", "error", err)
	}
	r.Use(middleware.NewRateLimiter(config.RateLimit(), time.Minute).Middleware())

	r.Get("/health", "health", func(w http.ResponseWriter, _ *http.Request) {
		response.Success(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", "metrics", metrics.Handler())

	if local, ok := disk.(*storage.Local); ok && strings.HasPrefix(config.StorageURL(), "/") {
		prefix := strings.TrimRight(config.StorageURL(), "/")
		r.Handle(prefix+"/*", "uploads", http.StripPrefix(prefix, http.FileServer(http.Dir(local.Root()))))
	}

	routes.RegisterAPI(r, api)
	return r
}

// Handler is the application's root HTTP handler.
func (a *App) Handler() http.Handler {
	return NewRouter(a.API(), a.Disk).Handler()
}

// DetachedAPI binds the route table to controllers with no backing services.
// Token checks work; anything that needs a store must not be reached.
func DetachedAPI() routes.API {
	return routes.API{
		Gate:     services.NewIdentityService(nil, auth.FromConfig()),
		Auth:     controllers.NewAuthController(nil),
		Products: controllers.NewProductController(nil, nil),
		Carts:    controllers.NewCartController(nil),
		Orders:   controllers.NewOrderController(nil, nil, nil),
	}
}

// RouteTable lists the routes without connecting to any backing service.
func RouteTable() []router.RouteInfo {
	return NewRouter(DetachedAPI(), nil).Routes()
}
