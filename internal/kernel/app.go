// Package kernel boots the application: it connects the backing services,
// builds the repositories, services and controllers, and assembles the HTTP
// handler with the global middleware stack.
package kernel

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shashiranjanraj/shopkart/app/controllers"
	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/app/routes"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/config"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
	"github.com/shashiranjanraj/shopkart/pkg/cache"
	"github.com/shashiranjanraj/shopkart/pkg/database"
	"github.com/shashiranjanraj/shopkart/pkg/event"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
	"github.com/shashiranjanraj/shopkart/pkg/queue"
	"github.com/shashiranjanraj/shopkart/pkg/storage"
)

const (
	cartCacheTTL    = 15 * time.Minute
	orderFeedBuffer = 32
)

// App is the wired application.
type App struct {
	DB    *mongo.Database
	Redis *redis.Client // nil when Redis is unreachable
	Bus   *event.Bus
	Queue *queue.Manager
	Disk  storage.Disk

	Identity *services.IdentityService
	Accounts *services.AccountService
	Catalog  *services.CatalogService
	Carts    *services.CartService
	Orders   *services.OrderService
	Feed     *services.OrderFeed

	mongoLog *logger.MongoHandler
}

// Boot connects MongoDB (required) and Redis (optional) and wires every
// component. Call Close when done.
func Boot(ctx context.Context) (*App, error) {
	db, err := database.Connect(ctx)
	if err != nil {
		return nil, err
	}
	a := &App{DB: db}

	if config.LogMongo() {
		a.mongoLog = logger.NewMongoHandler(ctx, db.Collection(database.Logs), slog.LevelInfo)
		logger.Tee(a.mongoLog)
	}

	if rdb, err := cache.Connect(ctx); err != nil {
		logger.Warn("redis unavailable, cart cache disabled", "error", err)
	} else {
		a.Redis = rdb
	}

	if a.Queue, err = a.newQueue(); err != nil {
		a.Close(ctx)
		return nil, err
	}
	if a.Disk, err = storage.New(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}

	var cartCache cache.Cache[models.Cart] = cache.Noop[models.Cart]{}
	if a.Redis != nil {
		cartCache = cache.NewRedis[models.Cart](a.Redis, "cart", cartCacheTTL)
	}

	users := repositories.NewUserRepository(db)
	products := repositories.NewProductRepository(db)
	carts := repositories.NewCartRepository(db)
	orders := repositories.NewOrderRepository(db)

	a.Bus = event.NewBus(config.EventWorkers())
	services.RegisterListeners(a.Bus)
	a.Feed = services.NewOrderFeed(orderFeedBuffer)
	a.Feed.Attach(a.Bus)

	a.Identity = services.NewIdentityService(users, auth.FromConfig())
	a.Accounts = services.NewAccountService(users, a.Identity)
	a.Catalog = services.NewCatalogService(products, carts)
	a.Carts = services.NewCartService(carts, products, cartCache)
	a.Orders = services.NewOrderService(services.OrderDeps{
		Orders:   orders,
		Carts:    carts,
		Clearer:  a.Carts,
		Products: products,
		Users:    users,
		Identity: a.Identity,
		Events:   a.Bus,
		Jobs:     a.Queue,
	})
	services.RegisterJobs(a.Queue, a.Carts)

	return a, nil
}

func (a *App) newQueue() (*queue.Manager, error) {
	failed := queue.WithFailedStore(queue.NewMongoFailedStore(a.DB.Collection(database.FailedJobs)))

	switch config.QueueDriver() {
	case "redis":
		if a.Redis == nil {
			return nil, errors.New("kernel: QUEUE_DRIVER=redis but redis is unreachable")
		}
		return queue.New(queue.NewRedisDriver(a.Redis, "default"), failed), nil
	default:
		return queue.New(queue.NewMemoryDriver(), failed), nil
	}
}

// API binds the controllers for the route table.
func (a *App) API() routes.API {
	return routes.API{
		Gate:     a.Identity,
		Auth:     controllers.NewAuthController(a.Accounts),
		Products: controllers.NewProductController(a.Catalog, a.Disk),
		Carts:    controllers.NewCartController(a.Carts),
		Orders:   controllers.NewOrderController(a.Orders, a.Identity, a.Feed),
	}
}

// Close drains async listeners and releases connections. Safe on a
// partially booted App.
func (a *App) Close(ctx context.Context) {
	if a.Bus != nil {
		a.Bus.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warn("redis close", "error", err)
		}
	}
	if a.mongoLog != nil {
		a.mongoLog.Close()
	}
	if a.DB != nil {
		if err := database.Close(ctx, a.DB); err != nil {
			logger.Warn("mongo close", "error", err)
		}
	}
}
