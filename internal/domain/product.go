package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sizes lists the accepted values of Product.AvailableSizes.
var Sizes = []string{"S", "XS", "M", "X", "L", "XXL", "XL"}

func ValidSize(s string) bool {
	for _, v := range Sizes {
		if v == s {
			return true
		}
	}
	return false
}

type Product struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price"`
	CurrencyID     string          `json:"currencyId"`
	CurrencyFormat string          `json:"currencyFormat"`
	IsFreeShipping bool            `json:"isFreeShipping"`
	ProductImage   string          `json:"productImage"`
	Style          string          `json:"style,omitempty"`
	AvailableSizes []string        `json:"availableSizes"`
	Installments   int             `json:"installments,omitempty"`
	IsDeleted      bool            `json:"isDeleted"`
	DeletedAt      *time.Time      `json:"deletedAt"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// ProductFilter narrows catalog listings. Zero values mean "no constraint".
type ProductFilter struct {
	Size             string
	Name             string
	PriceGreaterThan *decimal.Decimal
	PriceLessThan    *decimal.Decimal
	SortAscending    bool
}
