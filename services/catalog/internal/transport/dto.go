package transport

import "github.com/shopspring/decimal"

type CreateProductRequest struct {
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description"`
	ListPrice    decimal.Decimal `json:"list_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Stock        int             `json:"stock"`
	Images       []string        `json:"images"`
	Categories   []string        `json:"categories"`
}

type PatchProductRequest struct {
	Title        *string          `json:"title"`
	Slug         *string          `json:"slug"`
	Description  *string          `json:"description"`
	ListPrice    *decimal.Decimal `json:"list_price"`
	SellingPrice *decimal.Decimal `json:"selling_price"`
	Stock        *int             `json:"stock"`
	Images       *[]string        `json:"images"`
	Categories   *[]string        `json:"categories"`
}
