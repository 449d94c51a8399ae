package models

import "gorm.io/gorm"

const (
	RoleAdmin      = "admin"
	RoleTechnician = "technician"
	RoleCustomer   = "customer"
)

// ValidRole reports whether role is one of the recognized user roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleTechnician, RoleCustomer:
		return true
	}
	return false
}

type User struct {
	gorm.Model

	Name         string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	Phone        string
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"not null;default:customer"`
	Notes        string

	// Relationships
	Devices       []Device       `gorm:"foreignKey:CustomerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	WorkOrders    []WorkOrder    `gorm:"foreignKey:CustomerID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Notifications []Notification `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

// IsStaff reports whether the user holds an admin or technician role.
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleTechnician
}
