package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderItem struct {
	ID             string          `json:"_id"`
	Product        string          `json:"product"`
	Price          decimal.Decimal `json:"price"`
	SubTotal       decimal.Decimal `json:"subTotal"`
	DeliveryCharge decimal.Decimal `json:"deliveryCharge"`
	Total          decimal.Decimal `json:"total"`
	Seller         string          `json:"seller"`
	Status         string          `json:"status"`
}

// Order doubles as a transaction record once IsPaid is set.
type Order struct {
	ID            string          `json:"_id"`
	Buyer         UserProfile     `json:"buyer"`
	Code          string          `json:"code"`
	Items         []OrderItem     `json:"items"`
	GrossTotal    decimal.Decimal `json:"grossTotal"`
	DeliveryTotal decimal.Decimal `json:"grossDelivaryTotal"`
	Discount      decimal.Decimal `json:"discount"`
	SubTotal      decimal.Decimal `json:"subTotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	IsPaid        bool            `json:"isPaid"`
	CreatedAt     time.Time       `json:"createdAt"`
}
