package repositories

import (
	"context"
	"math"
	"regexp"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/database"
	"github.com/shashiranjanraj/shopkart/pkg/metrics"
)

// ProductFilter selects a page of live products. Page is 1-based.
type ProductFilter struct {
	Search   string
	Category string
	Brand    string
	SortBy   string // bson field name
	SortDesc bool
	Page     int
	PageSize int
}

// Skip is the number of documents before the page. It saturates instead of
// overflowing, so an absurd page number yields an empty page.
func (f ProductFilter) Skip() int64 {
	if f.Page <= 1 || f.PageSize <= 0 {
		return 0
	}
	pages, size := int64(f.Page-1), int64(f.PageSize)
	if pages > math.MaxInt64/size {
		return math.MaxInt64
	}
	return pages * size
}

// ProductPatch holds the fields to change; nil means unchanged.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *models.Money
	Brand       *string
	Category    *string
	Status      *models.ProductStatus
	Stock       *int
	Images      []string // appended
}

func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.Brand == nil &&
		p.Category == nil && p.Status == nil && p.Stock == nil && len(p.Images) == 0
}

type ProductRepository struct {
	col *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{col: db.Collection(database.Products)}
}

func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	return r.CreateMany(ctx, []*models.Product{p})
}

// CreateMany inserts products in one round trip, stamping ids and timestamps.
func (r *ProductRepository) CreateMany(ctx context.Context, products []*models.Product) error {
	defer metrics.ObserveDBQuery("products.create", time.Now())

	now := time.Now().UTC()
	docs := make([]any, len(products))
	for i, p := range products {
		p.ID = primitive.NewObjectID()
		p.Deleted = false
		p.CreatedAt, p.UpdatedAt = now, now
		if p.Images == nil {
			p.Images = []string{}
		}
		docs[i] = p
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := r.col.InsertMany(ctx, docs); err != nil {
		return apperr.Wrap("products.create", err)
	}
	return nil
}

// FindByID returns a live product. Soft-deleted products are not found.
func (r *ProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	defer metrics.ObserveDBQuery("products.find", time.Now())

	var p models.Product
	if err := r.col.FindOne(ctx, bson.M{"_id": id, "deleted": false}).Decode(&p); err != nil {
		return nil, notFound("products.find", "product", err)
	}
	return &p, nil
}

// FindByIDs returns the live products among ids, keyed by id.
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	defer metrics.ObserveDBQuery("products.find_many", time.Now())

	if len(ids) == 0 {
		return map[primitive.ObjectID]models.Product{}, nil
	}
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": lo.Uniq(ids)}, "deleted": false})
	if err != nil {
		return nil, apperr.Wrap("products.find_many", err)
	}
	var products []models.Product
	if err := cur.All(ctx, &products); err != nil {
		return nil, apperr.Wrap("products.find_many", err)
	}
	return lo.KeyBy(products, func(p models.Product) primitive.ObjectID { return p.ID }), nil
}

// List returns one page of live products and the total match count.
func (r *ProductRepository) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	defer metrics.ObserveDBQuery("products.list", time.Now())

	filter := bson.M{"deleted": false}
	if f.Search != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Brand != "" {
		filter["brand"] = f.Brand
	}

	sortField := lo.Ternary(f.SortBy == "", "created_at", f.SortBy)
	dir := lo.Ternary(f.SortDesc, -1, 1)
	opts := options.Find().
		SetSort(bson.D{{Key: sortField, Value: dir}, {Key: "_id", Value: dir}}).
		SetSkip(f.Skip()).
		SetLimit(int64(f.PageSize))

	var (
		products []models.Product
		total    int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cur, err := r.col.Find(gctx, filter, opts)
		if err != nil {
			return err
		}
		return cur.All(gctx, &products)
	})
	g.Go(func() error {
		n, err := r.col.CountDocuments(gctx, filter)
		total = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, apperr.Wrap("products.list", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, total, nil
}

// Update applies patch to a live product owned by sellerID. Products owned by
// someone else are reported as not found.
func (r *ProductRepository) Update(ctx context.Context, sellerID, id primitive.ObjectID, patch ProductPatch) (*models.Product, error) {
	defer metrics.ObserveDBQuery("products.update", time.Now())

	set := bson.M{"updated_at": time.Now().UTC()}
	setIf := func(key string, v any, ok bool) {
		if ok {
			set[key] = v
		}
	}
	setIf("name", lo.FromPtr(patch.Name), patch.Name != nil)
	setIf("description", lo.FromPtr(patch.Description), patch.Description != nil)
	setIf("price", lo.FromPtr(patch.Price), patch.Price != nil)
	setIf("brand", lo.FromPtr(patch.Brand), patch.Brand != nil)
	setIf("category", lo.FromPtr(patch.Category), patch.Category != nil)
	setIf("status", lo.FromPtr(patch.Status), patch.Status != nil)
	setIf("stock", lo.FromPtr(patch.Stock), patch.Stock != nil)

	update := bson.M{"$set": set}
	if len(patch.Images) > 0 {
		update["$push"] = bson.M{"images": bson.M{"$each": patch.Images}}
	}

	var p models.Product
	filter := bson.M{"_id": id, "seller_id": sellerID, "deleted": false}
	if err := r.col.FindOneAndUpdate(ctx, filter, update, returnAfter).Decode(&p); err != nil {
		return nil, notFound("products.update", "product", err)
	}
	return &p, nil
}

// SoftDelete hides a live product owned by sellerID.
func (r *ProductRepository) SoftDelete(ctx context.Context, sellerID, id primitive.ObjectID) (*models.Product, error) {
	defer metrics.ObserveDBQuery("products.delete", time.Now())

	var p models.Product
	filter := bson.M{"_id": id, "seller_id": sellerID, "deleted": false}
	update := bson.M{"$set": bson.M{"deleted": true, "status": models.ProductInactive, "updated_at": time.Now().UTC()}}
	if err := r.col.FindOneAndUpdate(ctx, filter, update, returnAfter).Decode(&p); err != nil {
		return nil, notFound("products.delete", "product", err)
	}
	return &p, nil
}
