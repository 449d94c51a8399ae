package services

import (
	"fmt"

	"github.com/repairhub-dev/repairhub/db"
	"github.com/repairhub-dev/repairhub/internal/models"
	"github.com/repairhub-dev/repairhub/internal/ws"
)

// statusTexts maps a work order status to the customer-facing notification
// body. Unmapped statuses fall back to "Status updated".
var statusTexts = map[string]string{
	models.StatusPending:      "Your repair request has been received",
	models.StatusInProgress:   "Your repair is now in progress",
	models.StatusWaitingParts: "Waiting for parts to arrive",
	models.StatusCompleted:    "Great news! Your repair is complete",
	models.StatusCancelled:    "Your repair has been cancelled",
}

type NotificationEvent struct {
	Type         string `json:"type"`
	Notification any    `json:"notification"`
}

// CreateNotification persists a notification and pushes it to the owner's
// open websocket connections.
func CreateNotification(userID uint, workOrderID *uint, notificationType, title, body string) (*models.Notification, error) {
	notification := models.Notification{
		UserID:      userID,
		WorkOrderID: workOrderID,
		Type:        notificationType,
		Title:       title,
		Body:        body,
		Read:        false,
	}

	if err := db.DB.Create(&notification).Error; err != nil {
		return nil, err
	}

	ws.Notify(userID, NotificationEvent{
		Type:         "notification",
		Notification: notification,
	})

	return &notification, nil
}

// NotifyStatusChange creates one status_change notification for the work
// order's customer.
func NotifyStatusChange(workOrder *models.WorkOrder, newStatus string) (*models.Notification, error) {
	text, ok := statusTexts[newStatus]
	if !ok {
		text = "Status updated"
	}

	return CreateNotification(
		workOrder.CustomerID,
		&workOrder.ID,
		models.NotificationStatusChange,
		"Repair Status Updated",
		fmt.Sprintf("Work order #%d: %s", workOrder.ID, text),
	)
}

// NotifyTechnicianMessage creates one tech_note notification for the work
// order's customer. Messages from customers or the system never notify.
func NotifyTechnicianMessage(workOrder *models.WorkOrder, message *models.Message) (*models.Notification, error) {
	if message.SenderType != models.SenderTechnician {
		return nil, nil
	}

	sender := workOrder.AssignedTechnician
	if sender == "" {
		sender = "Your technician"
	}

	return CreateNotification(
		workOrder.CustomerID,
		&workOrder.ID,
		models.NotificationTechNote,
		fmt.Sprintf("New message on Repair #%d", workOrder.ID),
		fmt.Sprintf("%s sent you a message", sender),
	)
}

// CreateSystemMessage appends an automated entry to a work order's thread.
// System messages carry no sender ID.
func CreateSystemMessage(workOrderID uint, text string) (*models.Message, error) {
	message := models.Message{
		WorkOrderID: workOrderID,
		SenderID:    nil,
		SenderType:  models.SenderSystem,
		Body:        text,
		Read:        false,
	}

	if err := db.DB.Create(&message).Error; err != nil {
		return nil, err
	}

	return &message, nil
}
