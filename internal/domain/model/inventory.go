package model

import "time"

// One row per (store, product); the pair is a unique key.
type Inventory struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StoreID   int64     `gorm:"not null;index;uniqueIndex:uq_inventory_store_product,priority:1" json:"-"`
	ProductID int64     `gorm:"not null;index;uniqueIndex:uq_inventory_store_product,priority:2" json:"-"`
	Available int64     `gorm:"not null;default:0" json:"available"`
	DateLst   time.Time `gorm:"column:date_lst;not null;autoUpdateTime" json:"date_lst"`

	Store   Store   `gorm:"foreignKey:StoreID;constraint:OnDelete:RESTRICT" json:"store"`
	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product"`
}

func (Inventory) TableName() string { return "inventory_inventory" }
