package model

import "time"

// Store is referenced (never owned) by inventory and sale rows.
type Store struct {
	ID      int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name    string    `gorm:"type:varchar(250);not null;index" json:"name"`
	Address string    `gorm:"type:varchar(250);not null;default:''" json:"address"`
	Phone   string    `gorm:"type:varchar(10);not null;default:''" json:"phone"`
	DateLst time.Time `gorm:"column:date_lst;not null;autoUpdateTime" json:"date_lst"`
}

func (Store) TableName() string { return "inventory_store" }
