package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Device struct {
	gorm.Model

	CustomerID   uint           `gorm:"not null;index"`
	DeviceType   string         `gorm:"not null"` // "Laptop", "Desktop", "Phone", etc.
	Brand        string
	DeviceModel  string
	SerialNumber string         `gorm:"uniqueIndex;not null"`
	Notes        string
	Specs        datatypes.JSON `gorm:"type:jsonb"` // free-form intake details (RAM, storage, condition, ...)

	// Relationships
	Customer   User        `gorm:"foreignKey:CustomerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	WorkOrders []WorkOrder `gorm:"foreignKey:DeviceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
