package model

import "time"

// A bill against one store. Created only by the sale coordinator, never updated.
type Sale struct {
	ID      int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Number  string    `gorm:"type:varchar(250);not null;index" json:"number"`
	StoreID int64     `gorm:"column:store_id;not null;index" json:"store"`
	Date    time.Time `gorm:"type:date;not null" json:"date"`

	Store Store `gorm:"foreignKey:StoreID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (Sale) TableName() string { return "inventory_sale" }
