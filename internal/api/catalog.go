package api

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shopdesk/shopdesk/internal/domain"
)

func checkStatus(s domain.Status) error {
	if s != "" && !s.Valid() {
		return invalid("status must be active or inactive, got %q", s)
	}
	return nil
}

func checkName(name string, min, max int) error {
	if l := len(strings.TrimSpace(name)); l < min || l > max {
		return invalid("name must be %d-%d characters", min, max)
	}
	return nil
}

func statusOrInactive(s domain.Status) string {
	if s == "" {
		return string(domain.StatusInactive)
	}
	return string(s)
}

// BannerInput is the banner create/update form. Image is required on create.
type BannerInput struct {
	Title  string
	URL    string
	Status domain.Status
	Image  *File
}

func (in BannerInput) Validate(creating bool) error {
	if l := len(strings.TrimSpace(in.Title)); l < 3 || l > 100 {
		return invalid("title must be 3-100 characters")
	}
	if in.URL != "" {
		u, err := url.ParseRequestURI(in.URL)
		if err != nil || u.Host == "" {
			return invalid("url %q is not an absolute URL", in.URL)
		}
	}
	if creating && in.Image == nil {
		return invalid("image is required")
	}
	return checkStatus(in.Status)
}

func (in BannerInput) form() *form {
	return newForm().
		field("title", strings.TrimSpace(in.Title)).
		optional("url", in.URL).
		field("status", statusOrInactive(in.Status)).
		file("image", in.Image)
}

type BannerService struct{ Resource[domain.Banner] }

func (c *Client) Banners() BannerService {
	return BannerService{newResource[domain.Banner](c, "/v1/banner", "/v1/banner")}
}

func (s BannerService) Create(ctx context.Context, in BannerInput) (*domain.Banner, error) {
	if err := in.Validate(true); err != nil {
		return nil, err
	}
	return s.create(ctx, in.form())
}

func (s BannerService) Update(ctx context.Context, id string, in BannerInput) (*domain.Banner, error) {
	if err := in.Validate(false); err != nil {
		return nil, err
	}
	return s.update(ctx, id, in.form())
}

// BrandInput is the brand create/update form. Logo is required on create.
type BrandInput struct {
	Name       string
	Status     domain.Status
	IsFeatured bool
	Logo       *File
}

func (in BrandInput) Validate(creating bool) error {
	if err := checkName(in.Name, 2, 100); err != nil {
		return err
	}
	if creating && in.Logo == nil {
		return invalid("logo is required")
	}
	return checkStatus(in.Status)
}

func (in BrandInput) form() *form {
	return newForm().
		field("name", strings.TrimSpace(in.Name)).
		field("status", statusOrInactive(in.Status)).
		field("isFeatured", strconv.FormatBool(in.IsFeatured)).
		file("logo", in.Logo)
}

type BrandService struct{ Resource[domain.Brand] }

func (c *Client) Brands() BrandService {
	return BrandService{newResource[domain.Brand](c, "/v1/brand", "/v1/brand")}
}

func (s BrandService) Create(ctx context.Context, in BrandInput) (*domain.Brand, error) {
	if err := in.Validate(true); err != nil {
		return nil, err
	}
	return s.create(ctx, in.form())
}

func (s BrandService) Update(ctx context.Context, id string, in BrandInput) (*domain.Brand, error) {
	if err := in.Validate(false); err != nil {
		return nil, err
	}
	return s.update(ctx, id, in.form())
}

type CategoryInput struct {
	Name       string
	Status     domain.Status
	IsFeatured bool
	InMenu     bool
	ParentID   string
	Brands     []string
	Image      *File
}

func (in CategoryInput) Validate(creating bool) error {
	if err := checkName(in.Name, 2, 100); err != nil {
		return err
	}
	if creating && in.Image == nil {
		return invalid("image is required")
	}
	return checkStatus(in.Status)
}

func (in CategoryInput) form() *form {
	f := newForm().
		field("name", strings.TrimSpace(in.Name)).
		field("status", statusOrInactive(in.Status)).
		field("isFeatured", strconv.FormatBool(in.IsFeatured)).
		field("inMenu", strconv.FormatBool(in.InMenu)).
		optional("parentId", in.ParentID)
	for _, b := range in.Brands {
		f.field("brands", b)
	}
	return f.file("image", in.Image)
}

type CategoryService struct{ Resource[domain.Category] }

func (c *Client) Categories() CategoryService {
	return CategoryService{newResource[domain.Category](c, "/v1/category", "/v1/category")}
}

func (s CategoryService) Create(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	if err := in.Validate(true); err != nil {
		return nil, err
	}
	return s.create(ctx, in.form())
}

func (s CategoryService) Update(ctx context.Context, id string, in CategoryInput) (*domain.Category, error) {
	if err := in.Validate(false); err != nil {
		return nil, err
	}
	return s.update(ctx, id, in.form())
}

type ProductInput struct {
	Name        string
	Status      domain.Status
	IsFeatured  bool
	Brand       string
	Categories  []string
	Description string
	Price       decimal.Decimal
	Discount    decimal.Decimal
	Stock       int
	SKU         string
	Seller      string
	Images      []*File
}

func (in ProductInput) Validate(creating bool) error {
	if err := checkName(in.Name, 2, 100); err != nil {
		return err
	}
	if in.Price.IsNegative() {
		return invalid("price must not be negative")
	}
	if in.Discount.IsNegative() || in.Discount.GreaterThan(in.Price) {
		return invalid("discount must be between 0 and the price")
	}
	if in.Stock < 0 {
		return invalid("stock must not be negative")
	}
	if in.Brand == "" {
		return invalid("brand is required")
	}
	if len(in.Categories) == 0 {
		return invalid("at least one category is required")
	}
	if creating && len(in.Images) == 0 {
		return invalid("at least one image is required")
	}
	return checkStatus(in.Status)
}

// AfterDiscount is the price the storefront shows.
func (in ProductInput) AfterDiscount() decimal.Decimal {
	return in.Price.Sub(in.Discount)
}

func (in ProductInput) form() *form {
	f := newForm().
		field("name", strings.TrimSpace(in.Name)).
		field("status", statusOrInactive(in.Status)).
		field("isFeatured", strconv.FormatBool(in.IsFeatured)).
		field("brand", in.Brand).
		field("description", in.Description).
		field("price", in.Price.String()).
		field("discount", in.Discount.String()).
		field("afterDiscount", in.AfterDiscount().String()).
		field("stock", strconv.Itoa(in.Stock)).
		optional("sku", in.SKU).
		optional("seller", in.Seller)
	for _, cat := range in.Categories {
		f.field("category", cat)
	}
	for _, img := range in.Images {
		f.file("images", img)
	}
	return f
}

type ProductService struct{ Resource[domain.Product] }

func (c *Client) Products() ProductService {
	return ProductService{newResource[domain.Product](c, "/v1/product", "/v1/product")}
}

func (s ProductService) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := in.Validate(true); err != nil {
		return nil, err
	}
	return s.create(ctx, in.form())
}

func (s ProductService) Update(ctx context.Context, id string, in ProductInput) (*domain.Product, error) {
	if err := in.Validate(false); err != nil {
		return nil, err
	}
	return s.update(ctx, id, in.form())
}
