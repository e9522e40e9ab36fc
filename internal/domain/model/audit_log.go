package model

import "time"

type AuditAction string

const (
	AuditActionCreateSale AuditAction = "CREATE_SALE"
)

type AuditResourceType string

const (
	AuditResourceSale AuditResourceType = "sale"
)

// Who did what to which resource.
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// JWT subject of the caller.
	Actor string `gorm:"type:varchar(255);not null;index" json:"actor"`

	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index" json:"resource_id"`

	AfterJSON string    `gorm:"type:text" json:"after_json"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "inventory_audit_log" }
