package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Banner struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	Image     Image     `json:"image"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Brand struct {
	ID         string    `json:"_id"`
	Name       string    `json:"name"`
	Status     Status    `json:"status"`
	IsFeatured bool      `json:"isFeatured"`
	Logo       Image     `json:"logo"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Category struct {
	ID         string   `json:"_id"`
	Name       string   `json:"name"`
	Status     Status   `json:"status"`
	IsFeatured bool     `json:"isFeatured"`
	InMenu     bool     `json:"inMenu"`
	ParentID   string   `json:"parentId,omitempty"`
	Brands     []string `json:"brands,omitempty"`
	Image      Image    `json:"image"`
}

// Ref is a populated reference to another document, e.g. a product's brand.
type Ref struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type Product struct {
	ID            string          `json:"_id"`
	Name          string          `json:"name"`
	Status        Status          `json:"status"`
	IsFeatured    bool            `json:"isFeatured"`
	Brand         Ref             `json:"brand"`
	Categories    []Ref           `json:"category"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Discount      decimal.Decimal `json:"discount"`
	AfterDiscount decimal.Decimal `json:"afterDiscount"`
	Stock         int             `json:"stock"`
	SKU           string          `json:"sku"`
	Seller        Ref             `json:"seller"`
	Images        []Image         `json:"images"`
}
