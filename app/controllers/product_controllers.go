package controllers

import (
	"context"
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shashiranjanraj/shopkart/app/models"
	"github.com/shashiranjanraj/shopkart/app/services"
	"github.com/shashiranjanraj/shopkart/pkg/apperr"
	"github.com/shashiranjanraj/shopkart/pkg/bind"
	"github.com/shashiranjanraj/shopkart/pkg/ctx"
	"github.com/shashiranjanraj/shopkart/pkg/response"
	"github.com/shashiranjanraj/shopkart/pkg/storage"
)

type Catalog interface {
	Create(ctx context.Context, seller primitive.ObjectID, in services.ProductInput) (*models.Product, error)
	CreateMany(ctx context.Context, seller primitive.ObjectID, in []services.ProductInput) ([]*models.Product, error)
	Get(ctx context.Context, id, viewer primitive.ObjectID) (*services.ProductView, error)
	List(ctx context.Context, q services.ProductQuery, viewer primitive.ObjectID) (services.ProductPage, error)
	Update(ctx context.Context, seller, id primitive.ObjectID, in services.ProductPatchInput) (*models.Product, error)
	Delete(ctx context.Context, seller, id primitive.ObjectID) (*models.Product, error)
}

const productImageDir = "products"

type ProductController struct {
	catalog Catalog
	disk    storage.Disk
}

func NewProductController(catalog Catalog, disk storage.Disk) *ProductController {
	return &ProductController{catalog: catalog, disk: disk}
}

// Index GET /api/products
func (c *ProductController) Index(x *ctx.Context) {
	q := services.ProductQuery{
		Search:      x.Query("search"),
		SortBy:      x.Query("sortBy"),
		SortOrder:   x.Query("sortOrder"),
		FilterBy:    x.Query("filterBy"),
		FilterValue: x.Query("filterValue"),
		Page:        x.QueryInt("page", 1),
		PageSize:    x.QueryInt("page_size", 0),
	}
	viewer, _ := x.OptionalSubject()

	page, err := c.catalog.List(x.Context(), q, viewer)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(response.NewPage(page.Items, page.Page, page.PageSize, page.Total))
}

// Show GET /api/products/{id}
func (c *ProductController) Show(x *ctx.Context) {
	id, ok := x.ObjectIDParam("id")
	if !ok {
		return
	}
	viewer, _ := x.OptionalSubject()

	p, err := c.catalog.Get(x.Context(), id, viewer)
	if err != nil {
		x.Fail(err)
		return
	}
	x.Success(p)
}

// Store POST /api/products (JSON or multipart with "images" files)
func (c *ProductController) Store(x *ctx.Context) {
	var in services.ProductInput
	urls, ok := c.decode(x, &in)
	if !ok {
		return
	}
	in.Images = append(in.Images, urls...)

	p, err := c.catalog.Create(x.Context(), x.Subject(), in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.CreatedMessage("Product created", p)
}

// BulkStore POST /api/products/bulk
func (c *ProductController) BulkStore(x *ctx.Context) {
	var in services.BulkProductInput
	if !x.BindJSON(&in) {
		return
	}
	products, err := c.catalog.CreateMany(x.Context(), x.Subject(), in.Products)
	if err != nil {
		x.Fail(err)
		return
	}
	x.CreatedMessage("Products created", products)
}

// Update PATCH /api/products/{id} (JSON or multipart)
func (c *ProductController) Update(x *ctx.Context) {
	id, ok := x.ObjectIDParam("id")
	if !ok {
		return
	}
	var in services.ProductPatchInput
	urls, ok := c.decode(x, &in)
	if !ok {
		return
	}
	in.Images = append(in.Images, urls...)

	p, err := c.catalog.Update(x.Context(), x.Subject(), id, in)
	if err != nil {
		x.Fail(err)
		return
	}
	x.SuccessMessage("Product updated", p)
}

// Destroy DELETE /api/products/{id}
func (c *ProductController) Destroy(x *ctx.Context) {
	id, ok := x.ObjectIDParam("id")
	if !ok {
		return
	}
	p, err := c.catalog.Delete(x.Context(), x.Subject(), id)
	if err != nil {
		x.Fail(err)
		return
	}
	x.SuccessMessage("Product deleted", p)
}

// decode binds either body shape into dest. Multipart image files are stored
// and their public URLs returned.
func (c *ProductController) decode(x *ctx.Context, dest any) ([]string, bool) {
	if !bind.IsMultipart(x.R) {
		return nil, x.BindJSON(dest)
	}

	form, err := bind.Multipart(x.R, dest)
	if err != nil {
		x.Fail(err)
		return nil, false
	}
	files := form.File["images"]
	if len(files) > 0 && c.disk == nil {
		x.Error(http.StatusServiceUnavailable, "Image uploads are not configured")
		return nil, false
	}

	urls := make([]string, 0, len(files))
	for _, fh := range files {
		key, err := storage.StoreUpload(x.Context(), c.disk, productImageDir, fh)
		if errors.Is(err, storage.ErrNotImage) {
			x.Fail(apperr.InvalidField("product.upload", "images", "Every image must be a JPEG, PNG, GIF or WebP file."))
			return nil, false
		}
		if err != nil {
			x.Fail(apperr.Wrap("product.upload", err))
			return nil, false
		}
		urls = append(urls, c.disk.URL(key))
	}
	return urls, true
}
