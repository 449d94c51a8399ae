package models

import "gorm.io/gorm"

const (
	NotificationMessage      = "message"
	NotificationStatusChange = "status_change"
	NotificationTechNote     = "tech_note"
	NotificationCompleted    = "completed"
)

// Notification is a derived, per-user alert. Notifications are created only
// as a side effect of a work order status change or a technician-authored
// message, never directly by a client request.
type Notification struct {
	gorm.Model

	UserID      uint   `gorm:"not null;index"`
	WorkOrderID *uint  `gorm:"index"`
	Type        string `gorm:"not null"`
	Title       string `gorm:"not null"`
	Body        string `gorm:"not null"`
	Read        bool   `gorm:"not null;default:false"`

	// Relationships
	User      User       `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	WorkOrder *WorkOrder `gorm:"foreignKey:WorkOrderID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
