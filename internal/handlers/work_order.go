package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/repairhub-dev/repairhub/db"
	"github.com/repairhub-dev/repairhub/internal/models"
	"github.com/repairhub-dev/repairhub/internal/services"
	"github.com/repairhub-dev/repairhub/internal/utils"
	"gorm.io/gorm"
)

type CreateWorkOrderRequest struct {
	DeviceID    uint   `json:"device_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type UpdateWorkOrderRequest struct {
	Title              string  `json:"title" binding:"required"`
	Description        string  `json:"description"`
	Cost               float64 `json:"cost"`
	TechnicianNotes    string  `json:"technician_notes"`
	AssignedTechnician string  `json:"assigned_technician"`
}

type UpdateStatusRequest struct {
	Status          string `json:"status" binding:"required"`
	TechnicianNotes string `json:"technician_notes"`
}

type WorkOrderResponse struct {
	ID                 uint       `json:"id"`
	CustomerID         uint       `json:"customer_id"`
	DeviceID           uint       `json:"device_id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Status             string     `json:"status"`
	Cost               float64    `json:"cost"`
	TechnicianNotes    string     `json:"technician_notes"`
	AssignedTechnician string     `json:"assigned_technician"`
	CompletedAt        *time.Time `json:"completed_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func workOrderResponse(workOrder *models.WorkOrder) WorkOrderResponse {
	return WorkOrderResponse{
		ID:                 workOrder.ID,
		CustomerID:         workOrder.CustomerID,
		DeviceID:           workOrder.DeviceID,
		Title:              workOrder.Title,
		Description:        workOrder.Description,
		Status:             workOrder.Status,
		Cost:               workOrder.Cost,
		TechnicianNotes:    workOrder.TechnicianNotes,
		AssignedTechnician: workOrder.AssignedTechnician,
		CompletedAt:        workOrder.CompletedAt,
		CreatedAt:          workOrder.CreatedAt,
		UpdatedAt:          workOrder.UpdatedAt,
	}
}

// CreateWorkOrder opens a repair engagement against a device. Customers may
// only open work orders for devices they own; staff may open them for any
// device on behalf of its owner.
func CreateWorkOrder(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var body CreateWorkOrderRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var device models.Device

	if err := db.DB.First(&device, body.DeviceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	if !currentUser.IsStaff() && device.CustomerID != currentUser.ID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "You can only create work orders for your own devices"})
		return
	}

	workOrder := models.WorkOrder{
		CustomerID:  device.CustomerID,
		DeviceID:    device.ID,
		Title:       body.Title,
		Description: body.Description,
		Status:      models.StatusPending,
	}

	if err := db.DB.Create(&workOrder).Error; err != nil {
		log.Printf("Failed to create work order: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create work order"})
		return
	}

	ctx.JSON(http.StatusCreated, workOrderResponse(&workOrder))
}

// ListWorkOrders returns all work orders for staff (with optional customer_id
// and status filters) and only the caller's own for customers.
func ListWorkOrders(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	query := db.DB.Model(&models.WorkOrder{})

	if currentUser.IsStaff() {
		if customerID := ctx.Query("customer_id"); customerID != "" {
			query = query.Where("customer_id = ?", customerID)
		}
		if status := ctx.Query("status"); status != "" {
			if !models.ValidStatus(status) {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
				return
			}
			query = query.Where("status = ?", status)
		}
	} else {
		query = query.Where("customer_id = ?", currentUser.ID)
	}

	var workOrders []models.WorkOrder

	if err := query.Find(&workOrders).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve work orders"})
		return
	}

	response := make([]WorkOrderResponse, 0, len(workOrders))
	for i := range workOrders {
		response = append(response, workOrderResponse(&workOrders[i]))
	}

	ctx.JSON(http.StatusOK, response)
}

// GetWorkOrder returns one work order. Customers only see their own; a work
// order owned by someone else reads as not found.
func GetWorkOrder(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	query := db.DB.Where("id = ?", ctx.Param("id"))

	if !currentUser.IsStaff() {
		query = query.Where("customer_id = ?", currentUser.ID)
	}

	var workOrder models.WorkOrder

	if err := query.First(&workOrder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Work order not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve work order"})
		}
		return
	}

	ctx.JSON(http.StatusOK, workOrderResponse(&workOrder))
}

// UpdateWorkOrder updates a work order's descriptive fields. Staff only.
func UpdateWorkOrder(ctx *gin.Context) {
	var workOrder models.WorkOrder

	if err := db.DB.First(&workOrder, "id = ?", ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Work order not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve work order"})
		}
		return
	}

	var body UpdateWorkOrderRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	workOrder.Title = body.Title
	workOrder.Description = body.Description
	workOrder.Cost = body.Cost
	workOrder.TechnicianNotes = body.TechnicianNotes
	workOrder.AssignedTechnician = body.AssignedTechnician

	if err := db.DB.Save(&workOrder).Error; err != nil {
		log.Printf("Failed to update work order: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update work order"})
		return
	}

	ctx.JSON(http.StatusOK, workOrderResponse(&workOrder))
}

// UpdateWorkOrderStatus moves a work order through its lifecycle. Staff only.
// Entering completed stamps CompletedAt once; every effective change appends
// a system message to the thread and notifies the customer. Both side
// effects are best-effort: a failure is logged, never surfaced.
func UpdateWorkOrderStatus(ctx *gin.Context) {
	var workOrder models.WorkOrder

	if err := db.DB.First(&workOrder, "id = ?", ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Work order not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve work order"})
		}
		return
	}

	var body UpdateStatusRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !models.ValidStatus(body.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status. Must be one of: pending, in_progress, waiting_parts, completed, delivered, cancelled"})
		return
	}

	if !models.CanTransition(workOrder.Status, body.Status) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Cannot move work order from '%s' to '%s'", workOrder.Status, body.Status)})
		return
	}

	changed := workOrder.Status != body.Status

	workOrder.Status = body.Status

	if body.TechnicianNotes != "" {
		workOrder.TechnicianNotes = body.TechnicianNotes
	}

	if body.Status == models.StatusCompleted && workOrder.CompletedAt == nil {
		now := time.Now()
		workOrder.CompletedAt = &now
	}

	if err := db.DB.Save(&workOrder).Error; err != nil {
		log.Printf("Failed to update work order status: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update work order"})
		return
	}

	if changed {
		if _, err := services.CreateSystemMessage(workOrder.ID, "Repair status updated to: "+workOrder.Status); err != nil {
			log.Printf("Failed to record status message for work order %d: %v", workOrder.ID, err)
		}

		if _, err := services.NotifyStatusChange(&workOrder, workOrder.Status); err != nil {
			log.Printf("Failed to notify status change for work order %d: %v", workOrder.ID, err)
		}
	}

	ctx.JSON(http.StatusOK, workOrderResponse(&workOrder))
}

// CancelWorkOrder is the customer self-service path: a pending work order
// owned by the caller moves to cancelled. Anything past pending needs staff.
func CancelWorkOrder(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var workOrder models.WorkOrder

	if err := db.DB.Where("id = ? AND customer_id = ?", ctx.Param("id"), userID).First(&workOrder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Work order not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve work order"})
		}
		return
	}

	if workOrder.Status != models.StatusPending {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Cannot cancel work order with status '%s'. Please contact support.", workOrder.Status)})
		return
	}

	workOrder.Status = models.StatusCancelled

	if err := db.DB.Save(&workOrder).Error; err != nil {
		log.Printf("Failed to cancel work order: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel work order"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Work order cancelled successfully"})
}

// DeleteWorkOrder hard-deletes a work order with its thread and
// notifications. Admin only.
func DeleteWorkOrder(ctx *gin.Context) {
	var workOrder models.WorkOrder

	if err := db.DB.First(&workOrder, "id = ?", ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Work order not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve work order"})
		}
		return
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("work_order_id = ?", workOrder.ID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("work_order_id = ?", workOrder.ID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		return tx.Delete(&workOrder).Error
	})

	if err != nil {
		log.Printf("Failed to delete work order: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete work order"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Work order deleted successfully"})
}
