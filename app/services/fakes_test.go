package services_test

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/auth"
	"github.com/shashiranjanraj/shopkart/pkg/queue"
)

// In-memory stores with the same contracts as the Mongo repositories.

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[primitive.ObjectID]*models.User
	fails error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[primitive.ObjectID]*models.User{}}
}

func (f *fakeUsers) add(name string, seller bool, addr *models.Address) *models.User {
	hash, _ := auth.HashPassword("secret")
	u := &models.User{
		ID:       primitive.NewObjectID(),
		Name:     name,
		Email:    strings.ToLower(name) + "@example.com",
		Password: hash,
		IsSeller: seller,
		Address:  addr,
	}
	f.mu.Lock()
	f.byID[u.ID] = u
	f.mu.Unlock()
	return u
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return apperr.Duplicate("users.create", "email already registered")
		}
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails != nil {
		return nil, f.fails
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, apperr.Missing("users.find", "user")
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.Missing("users.find", "user")
}

func (f *fakeUsers) FindByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[primitive.ObjectID]models.User{}
	for _, id := range ids {
		if u, ok := f.byID[id]; ok {
			out[id] = *u
		}
	}
	return out, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id primitive.ObjectID, name string, addr *models.Address) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, apperr.Missing("users.update", "user")
	}
	if name != "" {
		u.Name = name
	}
	if addr != nil {
		u.Address = addr
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) SetSeller(_ context.Context, email string, seller bool) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			u.IsSeller = seller
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.Missing("users.set_seller", "user")
}

type fakeProducts struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Product
	last repositories.ProductFilter
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{byID: map[primitive.ObjectID]*models.Product{}}
}

func (f *fakeProducts) add(name string, price int64, seller primitive.ObjectID) *models.Product {
	p := &models.Product{
		ID:       primitive.NewObjectID(),
		Name:     name,
		Price:    models.MoneyFromInt(price),
		Brand:    "Apple",
		Category: models.CategoryLaptop,
		Status:   models.ProductActive,
		SellerID: seller,
		Images:   []string{},
	}
	f.mu.Lock()
	f.byID[p.ID] = p
	f.mu.Unlock()
	return p
}

func (f *fakeProducts) setPrice(id primitive.ObjectID, price int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[id].Price = models.MoneyFromInt(price)
}

func (f *fakeProducts) Create(ctx context.Context, p *models.Product) error {
	return f.CreateMany(ctx, []*models.Product{p})
}

func (f *fakeProducts) CreateMany(_ context.Context, ps []*models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range ps {
		p.ID = primitive.NewObjectID()
		if p.Images == nil {
			p.Images = []string{}
		}
		cp := *p
		f.byID[p.ID] = &cp
	}
	return nil
}

func (f *fakeProducts) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok || p.Deleted {
		return nil, apperr.Missing("products.find", "product")
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) FindByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[primitive.ObjectID]models.Product{}
	for _, id := range ids {
		if p, ok := f.byID[id]; ok && !p.Deleted {
			out[id] = *p
		}
	}
	return out, nil
}

func (f *fakeProducts) List(_ context.Context, filter repositories.ProductFilter) ([]models.Product, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = filter
	var out []models.Product
	for _, p := range f.byID {
		if p.Deleted {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b models.Product) int { return strings.Compare(a.Name, b.Name) })
	return out, int64(len(out)), nil
}

func (f *fakeProducts) owned(seller, id primitive.ObjectID) (*models.Product, error) {
	p, ok := f.byID[id]
	if !ok || p.Deleted || p.SellerID != seller {
		return nil, apperr.Missing("products.update", "product")
	}
	return p, nil
}

func (f *fakeProducts) Update(_ context.Context, seller, id primitive.ObjectID, patch repositories.ProductPatch) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.owned(seller, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	p.Images = append(p.Images, patch.Images...)
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) SoftDelete(_ context.Context, seller, id primitive.ObjectID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.owned(seller, id)
	if err != nil {
		return nil, err
	}
	p.Deleted = true
	p.Status = models.ProductInactive
	cp := *p
	return &cp, nil
}

type fakeCarts struct {
	mu       sync.Mutex
	byUser   map[primitive.ObjectID]*models.Cart
	clearErr error
	gets     int
	// afterGet runs once, after Get has copied the cart and released the lock.
	afterGet func()
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{byUser: map[primitive.ObjectID]*models.Cart{}}
}

func cloneCart(c *models.Cart) *models.Cart {
	cp := *c
	cp.Items = append([]models.LineItem{}, c.Items...)
	return &cp
}

func (f *fakeCarts) Get(_ context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	f.mu.Lock()
	f.gets++
	c, ok := f.byUser[userID]
	var snap *models.Cart
	if ok {
		snap = cloneCart(c)
	}
	hook := f.afterGet
	f.afterGet = nil
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return nil, apperr.Missing("carts.get", "cart")
	}
	return snap, nil
}

func (f *fakeCarts) AddItem(_ context.Context, userID, productID primitive.ObjectID, qty int) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byUser[userID]
	if !ok {
		c = &models.Cart{ID: primitive.NewObjectID(), UserID: userID, Items: []models.LineItem{}, CreatedAt: time.Now()}
		f.byUser[userID] = c
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += qty
			return cloneCart(c), nil
		}
	}
	c.Items = append(c.Items, models.LineItem{ID: primitive.NewObjectID(), ProductID: productID, Quantity: qty, AddedAt: time.Now()})
	return cloneCart(c), nil
}

func (f *fakeCarts) line(userID, lineID primitive.ObjectID) (*models.Cart, int, error) {
	c, ok := f.byUser[userID]
	if !ok {
		return nil, 0, apperr.Missing("carts.update", "cart item")
	}
	idx := slices.IndexFunc(c.Items, func(it models.LineItem) bool { return it.ID == lineID })
	if idx < 0 {
		return nil, 0, apperr.Missing("carts.update", "cart item")
	}
	return c, idx, nil
}

func (f *fakeCarts) UpdateQuantity(_ context.Context, userID, lineID primitive.ObjectID, qty int) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, idx, err := f.line(userID, lineID)
	if err != nil {
		return nil, err
	}
	c.Items[idx].Quantity = qty
	return cloneCart(c), nil
}

func (f *fakeCarts) RemoveItem(_ context.Context, userID, lineID primitive.ObjectID) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, idx, err := f.line(userID, lineID)
	if err != nil {
		return nil, err
	}
	c.Items = slices.Delete(c.Items, idx, idx+1)
	return cloneCart(c), nil
}

func (f *fakeCarts) Clear(_ context.Context, userID primitive.ObjectID) (repositories.ClearResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return repositories.ClearResult{}, f.clearErr
	}
	c, ok := f.byUser[userID]
	if !ok {
		return repositories.ClearResult{Cart: models.EmptyCart(userID), AlreadyEmpty: true}, nil
	}
	wasEmpty := len(c.Items) == 0
	c.Items = []models.LineItem{}
	return repositories.ClearResult{Cart: cloneCart(c), AlreadyEmpty: wasEmpty}, nil
}

func (f *fakeCarts) RemoveLines(_ context.Context, userID primitive.ObjectID, takes []models.LineTake) (*models.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return nil, f.clearErr
	}
	c, ok := f.byUser[userID]
	if !ok {
		return models.EmptyCart(userID), nil
	}
	for _, t := range takes {
		if idx := slices.IndexFunc(c.Items, func(it models.LineItem) bool { return it.ID == t.LineID }); idx >= 0 {
			c.Items[idx].Quantity -= t.Quantity
		}
	}
	c.Items = slices.DeleteFunc(c.Items, func(it models.LineItem) bool { return it.Quantity <= 0 })
	return cloneCart(c), nil
}

type fakeOrders struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.Order
	seq  []primitive.ObjectID
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{byID: map[primitive.ObjectID]*models.Order{}}
}

func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.OrderLine{}, o.Items...)
	return &cp
}

func (f *fakeOrders) Create(_ context.Context, o *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o.ID = primitive.NewObjectID()
	o.CreatedAt = time.Now()
	f.byID[o.ID] = cloneOrder(o)
	f.seq = append(f.seq, o.ID)
	return nil
}

func (f *fakeOrders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok {
		return nil, apperr.Missing("orders.find", "order")
	}
	return cloneOrder(o), nil
}

func (f *fakeOrders) ListByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return f.list(func(o *models.Order) bool { return o.UserID == userID }), nil
}

func (f *fakeOrders) ListAll(context.Context) ([]models.Order, error) {
	return f.list(func(*models.Order) bool { return true }), nil
}

func (f *fakeOrders) list(keep func(*models.Order) bool) []models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Order{}
	ids := slices.Clone(f.seq)
	slices.Reverse(ids)
	for _, id := range ids {
		if o := f.byID[id]; keep(o) {
			out = append(out, *cloneOrder(o))
		}
	}
	return out
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id primitive.ObjectID, from, to models.OrderStatus) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok || o.Status != from {
		return nil, apperr.Transition("orders.update_status", "order status changed concurrently, reload and retry")
	}
	o.Status = to
	return cloneOrder(o), nil
}

type firedEvent struct {
	name    string
	payload any
}

type fakeBus struct {
	mu     sync.Mutex
	events []firedEvent
}

func (b *fakeBus) FireAsync(_ context.Context, name string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, firedEvent{name, payload})
}

func (b *fakeBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return lo.Map(b.events, func(e firedEvent, _ int) string { return e.name })
}

type fakeDispatcher struct {
	mu   sync.Mutex
	jobs []queue.Job
}

func (d *fakeDispatcher) Dispatch(_ context.Context, job queue.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return nil
}
