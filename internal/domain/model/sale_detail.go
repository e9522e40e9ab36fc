package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line item of a sale. Value is the unit price times quantity at the time of sale.
type SaleDetail struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	SaleID    int64           `gorm:"column:sale_id;not null;index" json:"sale"`
	ProductID int64           `gorm:"column:product_id;not null;index" json:"product"`
	Quantity  int64           `gorm:"type:smallint;not null" json:"quantity"`
	Value     decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"value"`
	DateLst   time.Time       `gorm:"column:date_lst;not null;autoUpdateTime" json:"date_lst"`

	Sale    Sale    `gorm:"foreignKey:SaleID;constraint:OnDelete:RESTRICT" json:"-"`
	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (SaleDetail) TableName() string { return "inventory_sale_detail" }
