package models

import "gorm.io/gorm"

const (
	SenderCustomer   = "customer"
	SenderTechnician = "technician"
	SenderSystem     = "system"
)

// Message is one entry in a work order's communication thread. Messages are
// immutable once created except for the Read flag. SenderID is nil for
// system messages and references a user row otherwise.
type Message struct {
	gorm.Model

	WorkOrderID uint   `gorm:"not null;index"`
	SenderID    *uint  `gorm:"index"`
	SenderType  string `gorm:"not null"`
	Body        string `gorm:"not null;type:text"`
	Read        bool   `gorm:"not null;default:false"`

	// Relationships
	WorkOrder WorkOrder `gorm:"foreignKey:WorkOrderID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
