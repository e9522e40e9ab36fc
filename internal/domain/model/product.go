package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Unit string

const (
	UnitUnity   Unit = "und"
	UnitPackage Unit = "paq"
	UnitGram    Unit = "gr"
)

func (u Unit) Valid() bool {
	switch u {
	case UnitUnity, UnitPackage, UnitGram:
		return true
	}
	return false
}

// Price is always > 0; the check constraint in the schema backs the usecase validation.
type Product struct {
	ID      int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name    string          `gorm:"type:varchar(250);not null;index" json:"name"`
	Unit    Unit            `gorm:"type:varchar(5);not null" json:"unit"`
	Price   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	DateLst time.Time       `gorm:"column:date_lst;not null;autoUpdateTime" json:"date_lst"`
}

func (Product) TableName() string { return "inventory_product" }
