package services

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/repositories"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
)

// ProductInput is a new product, decoded from JSON or from multipart fields.
// Uploaded image URLs are appended to Images by the transport.
type ProductInput struct {
	Name        string       `json:"name"        form:"name"        validate:"required,min=3,max=100"`
	Description string       `json:"description" form:"description" validate:"required,min=10,max=500"`
	Price       models.Money `json:"price"       form:"price"       validate:"required,gte=1,lte=1000000"`
	Brand       string       `json:"brand"       form:"brand"       validate:"required,in=Apple,Samsung,Dell,HP,Google,OnePlus,Sony,Lenovo,Microsoft,Huawei,Xiaomi,Amazon,Vivo"`
	Category    string       `json:"category"    form:"category"    validate:"required,in=Laptop,Mobile,Tablet,Accessory"`
	Status      string       `json:"status"      form:"status"      validate:"nullable,in=active,inactive,out_of_stock"`
	Stock       *int         `json:"stock"       form:"stock"       validate:"nullable,gte=0,lte=1000000"`
	Images      []string     `json:"images"      form:"image_urls"  validate:"nullable,max=10"`
}

// BulkProductInput wraps a batch create.
type BulkProductInput struct {
	Products []ProductInput `json:"products" validate:"required,min=1,max=100,dive"`
}

// ProductPatchInput changes some fields of a product.
type ProductPatchInput struct {
	Name        *string       `json:"name"        form:"name"        validate:"nullable,min=3,max=100"`
	Description *string       `json:"description" form:"description" validate:"nullable,min=10,max=500"`
	Price       *models.Money `json:"price"       form:"price"       validate:"nullable,gte=1,lte=1000000"`
	Brand       *string       `json:"brand"       form:"brand"       validate:"nullable,in=Apple,Samsung,Dell,HP,Google,OnePlus,Sony,Lenovo,Microsoft,Huawei,Xiaomi,Amazon,Vivo"`
	Category    *string       `json:"category"    form:"category"    validate:"nullable,in=Laptop,Mobile,Tablet,Accessory"`
	Status      *string       `json:"status"      form:"status"      validate:"nullable,in=active,inactive,out_of_stock"`
	Stock       *int          `json:"stock"       form:"stock"       validate:"nullable,gte=0,lte=1000000"`
	Images      []string      `json:"images"      form:"image_urls"  validate:"nullable,max=10"`
}

// ProductQuery is the catalog listing request.
type ProductQuery struct {
	Search      string
	SortBy      string // name | price | createdAt | category
	SortOrder   string // asc | desc
	FilterBy    string // category | brand
	FilterValue string
	Page        int
	PageSize    int
}

// ProductView is a product as a particular viewer sees it.
type ProductView struct {
	models.Product
	InCart       bool `json:"in_cart"`
	CartQuantity int  `json:"cart_quantity"`
}

// ProductPage is one page of a listing.
type ProductPage struct {
	Items    []ProductView
	Page     int
	PageSize int
	Total    int64
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

var sortFields = map[string]string{
	"":          "created_at",
	"createdAt": "created_at",
	"name":      "name",
	"price":     "price",
	"category":  "category",
}

// CatalogService manages products. Sellers own the products they create.
type CatalogService struct {
	products ProductStore
	carts    CartStore
}

func NewCatalogService(products ProductStore, carts CartStore) *CatalogService {
	return &CatalogService{products: products, carts: carts}
}

func (in ProductInput) toProduct(seller primitive.ObjectID) *models.Product {
	p := &models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Brand:       in.Brand,
		Category:    in.Category,
		Status:      models.ProductActive,
		Images:      in.Images,
		SellerID:    seller,
	}
	if in.Status != "" {
		p.Status = models.ProductStatus(in.Status)
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	return p
}

func (s *CatalogService) Create(ctx context.Context, seller primitive.ObjectID, in ProductInput) (*models.Product, error) {
	p := in.toProduct(seller)
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("product created", "product_id", p.ID.Hex(), "seller_id", seller.Hex())
	return p, nil
}

// CreateMany inserts a batch of products for one seller.
func (s *CatalogService) CreateMany(ctx context.Context, seller primitive.ObjectID, in []ProductInput) ([]*models.Product, error) {
	if len(in) == 0 {
		return nil, apperr.InvalidField("catalog.create_many", "products", "At least one product is required.")
	}
	products := lo.Map(in, func(pi ProductInput, _ int) *models.Product { return pi.toProduct(seller) })
	if err := s.products.CreateMany(ctx, products); err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("products created", "count", len(products), "seller_id", seller.Hex())
	return products, nil
}

// Get returns a live product. viewer may be the zero id for anonymous callers.
func (s *CatalogService) Get(ctx context.Context, id, viewer primitive.ObjectID) (*ProductView, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views := s.decorate(ctx, viewer, []models.Product{*p})
	return &views[0], nil
}

func (s *CatalogService) List(ctx context.Context, q ProductQuery, viewer primitive.ObjectID) (ProductPage, error) {
	const op = "catalog.list"

	field, ok := sortFields[q.SortBy]
	if !ok {
		return ProductPage{}, apperr.InvalidField(op, "sortBy", "The sortBy must be one of: name, price, createdAt, category.")
	}
	order := strings.ToLower(q.SortOrder)
	if order != "" && order != "asc" && order != "desc" {
		return ProductPage{}, apperr.InvalidField(op, "sortOrder", "The sortOrder must be asc or desc.")
	}

	f := repositories.ProductFilter{
		Search:   strings.TrimSpace(q.Search),
		SortBy:   field,
		SortDesc: order == "desc" || (order == "" && q.SortBy == ""),
		Page:     max(q.Page, 1),
		PageSize: q.PageSize,
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	f.PageSize = min(f.PageSize, maxPageSize)

	if q.FilterValue != "" {
		switch q.FilterBy {
		case "category":
			f.Category = q.FilterValue
		case "brand":
			f.Brand = q.FilterValue
		default:
			return ProductPage{}, apperr.InvalidField(op, "filterBy", "The filterBy must be category or brand.")
		}
	}

	products, total, err := s.products.List(ctx, f)
	if err != nil {
		return ProductPage{}, err
	}
	return ProductPage{
		Items:    s.decorate(ctx, viewer, products),
		Page:     f.Page,
		PageSize: f.PageSize,
		Total:    total,
	}, nil
}

// decorate marks the products already in the viewer's cart. A cart lookup
// failure degrades to unmarked products.
func (s *CatalogService) decorate(ctx context.Context, viewer primitive.ObjectID, products []models.Product) []ProductView {
	views := lo.Map(products, func(p models.Product, _ int) ProductView { return ProductView{Product: p} })
	if viewer.IsZero() || s.carts == nil {
		return views
	}
	cart, err := s.carts.Get(ctx, viewer)
	if err != nil {
		if apperr.KindOf(err) != apperr.NotFound {
			logger.WithCtx(ctx).Warn("cart lookup for catalog view failed", "subject_id", viewer.Hex(), "error", err)
		}
		return views
	}
	for i := range views {
		if line, ok := cart.Line(views[i].ID); ok {
			views[i].InCart = true
			views[i].CartQuantity = line.Quantity
		}
	}
	return views
}

// Update applies patch to a product owned by seller. Another seller's
// product is reported as not found.
func (s *CatalogService) Update(ctx context.Context, seller, id primitive.ObjectID, in ProductPatchInput) (*models.Product, error) {
	patch := repositories.ProductPatch{
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Brand:       in.Brand,
		Category:    in.Category,
		Stock:       in.Stock,
		Images:      in.Images,
	}
	if in.Status != nil {
		st := models.ProductStatus(*in.Status)
		patch.Status = &st
	}
	if patch.Empty() {
		return nil, apperr.InvalidField("catalog.update", "body", "Provide at least one field to update.")
	}
	p, err := s.products.Update(ctx, seller, id, patch)
	if err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("product updated", "product_id", id.Hex(), "seller_id", seller.Hex())
	return p, nil
}

// Delete soft-deletes a product owned by seller.
func (s *CatalogService) Delete(ctx context.Context, seller, id primitive.ObjectID) (*models.Product, error) {
	p, err := s.products.SoftDelete(ctx, seller, id)
	if err != nil {
		return nil, err
	}
	logger.WithCtx(ctx).Info("product deleted", "product_id", id.Hex(), "seller_id", seller.Hex())
	return p, nil
}

// Lookup resolves live products by id. Missing and deleted ids are absent
// from the result.
func (s *CatalogService) Lookup(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Product, error) {
	return s.products.FindByIDs(ctx, ids)
}
