package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"                json:"id"`
	Title        string          `gorm:"not null"                            json:"title"`
	Slug         string          `gorm:"uniqueIndex;not null"                json:"slug"`
	Description  string          `gorm:"not null;default:''"                 json:"description"`
	ListPrice    decimal.Decimal `gorm:"type:numeric(12,2);not null"         json:"list_price"`
	SellingPrice decimal.Decimal `gorm:"type:numeric(12,2);not null"         json:"selling_price"`
	Stock        int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	Images       pq.StringArray  `gorm:"type:text[]"                         json:"images"`
	Categories   pq.StringArray  `gorm:"type:text[]"                         json:"categories"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index"                               json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (Product) TableName() string {
	return "products"
}
