package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusPending      = "pending"
	StatusInProgress   = "in_progress"
	StatusWaitingParts = "waiting_parts"
	StatusCompleted    = "completed"
	StatusDelivered    = "delivered"
	StatusCancelled    = "cancelled"
)

// statusTransitions maps each status to the statuses a staff member may move
// it to. Terminal states (delivered, cancelled) have no outgoing edges;
// completed only moves forward to delivered.
var statusTransitions = map[string][]string{
	StatusPending:      {StatusInProgress, StatusCancelled},
	StatusInProgress:   {StatusWaitingParts, StatusCompleted, StatusCancelled},
	StatusWaitingParts: {StatusInProgress, StatusCompleted, StatusCancelled},
	StatusCompleted:    {StatusDelivered},
	StatusDelivered:    {},
	StatusCancelled:    {},
}

// ValidStatus reports whether status is one of the recognized work order statuses.
func ValidStatus(status string) bool {
	_, ok := statusTransitions[status]
	return ok
}

// CanTransition reports whether a work order may move from one status to
// another. Re-submitting the current status is always allowed.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type WorkOrder struct {
	gorm.Model

	CustomerID         uint   `gorm:"not null;index"`
	DeviceID           uint   `gorm:"not null;index"`
	Title              string `gorm:"not null"`
	Description        string
	Status             string `gorm:"not null;default:pending"`
	Cost               float64
	TechnicianNotes    string
	AssignedTechnician string
	CompletedAt        *time.Time

	// Relationships
	Customer      User           `gorm:"foreignKey:CustomerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	Device        Device         `gorm:"foreignKey:DeviceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
	Messages      []Message      `gorm:"foreignKey:WorkOrderID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Notifications []Notification `gorm:"foreignKey:WorkOrderID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
