package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/repairhub-dev/repairhub/db"
	"github.com/repairhub-dev/repairhub/internal/middleware"
	"github.com/repairhub-dev/repairhub/internal/models"
	"github.com/repairhub-dev/repairhub/internal/services"
	"github.com/repairhub-dev/repairhub/internal/utils"
	"gorm.io/gorm"
)

const maxMessageLength = 2000

type SendMessageRequest struct {
	Body string `json:"message" binding:"required"`
}

type MarkReadRequest struct {
	MessageIDs []uint `json:"message_ids"`
}

type MessageResponse struct {
	ID          uint      `json:"id"`
	WorkOrderID uint      `json:"work_order_id"`
	SenderID    *uint     `json:"sender_id"`
	SenderType  string    `json:"sender_type"`
	SenderName  string    `json:"sender_name"`
	Body        string    `json:"message"`
	Read        bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

type MessageThreadResponse struct {
	WorkOrderID   uint              `json:"work_order_id"`
	TotalMessages int               `json:"total_messages"`
	UnreadCount   int64             `json:"unread_count"`
	Messages      []MessageResponse `json:"messages"`
}

// senderName resolves the display name for a thread entry: the customer's
// name, the assigned technician, or the literal "System".
func senderName(message *models.Message, workOrder *models.WorkOrder, customerName string) string {
	switch message.SenderType {
	case models.SenderCustomer:
		return customerName
	case models.SenderTechnician:
		if workOrder.AssignedTechnician != "" {
			return workOrder.AssignedTechnician
		}
		return "Technician"
	default:
		return "System"
	}
}

func messageResponse(message *models.Message, workOrder *models.WorkOrder, customerName string) MessageResponse {
	return MessageResponse{
		ID:          message.ID,
		WorkOrderID: message.WorkOrderID,
		SenderID:    message.SenderID,
		SenderType:  message.SenderType,
		SenderName:  senderName(message, workOrder, customerName),
		Body:        message.Body,
		Read:        message.Read,
		CreatedAt:   message.CreatedAt,
	}
}

// loadThreadWorkOrder fetches the work order backing a thread. Customers only
// reach their own threads; foreign ones read as not found. Staff reach any.
func loadThreadWorkOrder(ctx *gin.Context, currentUser middleware.AuthenticatedUser) (*models.WorkOrder, bool) {
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
		return nil, false
	}

	return &workOrder, true
}

// GetThread returns a work order's messages oldest-first, with the total
// count and the number of unread technician messages.
func GetThread(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	workOrder, ok := loadThreadWorkOrder(ctx, currentUser)
	if !ok {
		return
	}

	var messages []models.Message

	if err := db.DB.Where("work_order_id = ?", workOrder.ID).Order("created_at asc").Find(&messages).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve messages"})
		return
	}

	var unreadCount int64

	if err := db.DB.Model(&models.Message{}).
		Where("work_order_id = ? AND sender_type = ? AND read = ?", workOrder.ID, models.SenderTechnician, false).
		Count(&unreadCount).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count unread messages"})
		return
	}

	customerName := threadCustomerName(currentUser, workOrder)

	formatted := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		formatted = append(formatted, messageResponse(&messages[i], workOrder, customerName))
	}

	ctx.JSON(http.StatusOK, MessageThreadResponse{
		WorkOrderID:   workOrder.ID,
		TotalMessages: len(messages),
		UnreadCount:   unreadCount,
		Messages:      formatted,
	})
}

// threadCustomerName resolves the customer display name for a thread. For a
// customer caller it is their own name; staff readers look the owner up.
func threadCustomerName(currentUser middleware.AuthenticatedUser, workOrder *models.WorkOrder) string {
	if currentUser.ID == workOrder.CustomerID {
		return currentUser.Name
	}

	var owner models.User
	if err := db.DB.First(&owner, workOrder.CustomerID).Error; err != nil {
		return "Customer"
	}
	return owner.Name
}

// SendMessage appends a message to a work order's thread. Customers post as
// themselves; staff post as the technician, which notifies the customer.
func SendMessage(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var body SendMessageRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Message body is required"})
		return
	}

	if len(body.Body) > maxMessageLength {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Message exceeds maximum length"})
		return
	}

	workOrder, ok := loadThreadWorkOrder(ctx, currentUser)
	if !ok {
		return
	}

	senderType := models.SenderCustomer
	if currentUser.IsStaff() {
		senderType = models.SenderTechnician
	}

	senderID := currentUser.ID

	message := models.Message{
		WorkOrderID: workOrder.ID,
		SenderID:    &senderID,
		SenderType:  senderType,
		Body:        body.Body,
		Read:        false,
	}

	if err := db.DB.Create(&message).Error; err != nil {
		log.Printf("Failed to create message: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	if senderType == models.SenderTechnician {
		if _, err := services.NotifyTechnicianMessage(workOrder, &message); err != nil {
			log.Printf("Failed to notify customer of message %d: %v", message.ID, err)
		}
	}

	customerName := threadCustomerName(currentUser, workOrder)

	ctx.JSON(http.StatusCreated, messageResponse(&message, workOrder, customerName))
}

// MarkMessagesRead flips the read flag on the given messages. IDs outside the
// caller's work orders are silently ignored; the response reports how many
// rows actually changed.
func MarkMessagesRead(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var body MarkReadRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if len(body.MessageIDs) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "No message IDs provided"})
		return
	}

	result := db.DB.Model(&models.Message{}).
		Where("id IN ? AND read = ?", body.MessageIDs, false).
		Where("work_order_id IN (?)", db.DB.Model(&models.WorkOrder{}).Select("id").Where("customer_id = ?", userID)).
		Update("read", true)

	if result.Error != nil {
		log.Printf("Failed to mark messages read: %v", result.Error)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mark messages read"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":      true,
		"marked_count": result.RowsAffected,
	})
}

// GetUnreadMessageCount counts unread technician messages across all the
// caller's work orders. The caller's own messages and system messages never
// count.
func GetUnreadMessageCount(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var count int64

	err = db.DB.Model(&models.Message{}).
		Where("sender_type = ? AND read = ?", models.SenderTechnician, false).
		Where("work_order_id IN (?)", db.DB.Model(&models.WorkOrder{}).Select("id").Where("customer_id = ?", userID)).
		Count(&count).Error

	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count unread messages"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// GetRecentMessages returns the caller's newest messages across all their
// work orders.
func GetRecentMessages(ctx *gin.Context) {
	currentUser, err := utils.GetCurrentUser(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit := 10
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	var messages []models.Message

	err = db.DB.
		Where("work_order_id IN (?)", db.DB.Model(&models.WorkOrder{}).Select("id").Where("customer_id = ?", currentUser.ID)).
		Order("created_at desc").
		Limit(limit).
		Find(&messages).Error

	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve messages"})
		return
	}

	// Work orders are looked up once per distinct ID for sender resolution
	workOrders := make(map[uint]*models.WorkOrder)

	formatted := make([]MessageResponse, 0, len(messages))
	for i := range messages {
		workOrder, ok := workOrders[messages[i].WorkOrderID]
		if !ok {
			var loaded models.WorkOrder
			if err := db.DB.First(&loaded, messages[i].WorkOrderID).Error; err != nil {
				continue
			}
			workOrder = &loaded
			workOrders[messages[i].WorkOrderID] = workOrder
		}

		formatted = append(formatted, messageResponse(&messages[i], workOrder, currentUser.Name))
	}

	ctx.JSON(http.StatusOK, formatted)
}
