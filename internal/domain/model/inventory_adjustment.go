package model

import "time"

// Stock level change written by the operator stock loader.
type InventoryAdjustment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	StoreID   int64     `gorm:"not null;index" json:"store_id"`
	ProductID int64     `gorm:"not null;index" json:"product_id"`
	Delta     int64     `gorm:"not null" json:"delta"`
	Reason    string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (InventoryAdjustment) TableName() string { return "inventory_adjustment" }
