package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/repairhub-dev/repairhub/db"
	"github.com/repairhub-dev/repairhub/internal/models"
)

func TestCreateWorkOrder(t *testing.T) {
	r := setupTest(t)

	customer, customerToken := createUser(t, "Alice", "alice@example.com", models.RoleCustomer)
	device := createDevice(t, customer.ID, "SN-001")

	w := doJSON(t, r, http.MethodPost, "/api/work-orders", customerToken, gin.H{
		"device_id":   device.ID,
		"title":       "Cracked screen",
		"description": "Dropped on tile",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created struct {
		ID          uint       `json:"id"`
		Status      string     `json:"status"`
		CustomerID  uint       `json:"customer_id"`
		CompletedAt *time.Time `json:"completed_at"`
	}
	decodeBody(t, w, &created)

	if created.Status != models.StatusPending {
		t.Fatalf("expected pending, got %q", created.Status)
	}
	if created.CustomerID != customer.ID {
		t.Fatalf("expected customer %d, got %d", customer.ID, created.CustomerID)
	}
	if created.CompletedAt != nil {
		t.Fatal("expected nil completed_at on creation")
	}
}

func TestCreateWorkOrderMissingDevice(t *testing.T) {
	r := setupTest(t)

	_, customerToken := createUser(t, "Alice", "alice@example.com", models.RoleCustomer)

	w := doJSON(t, r, http.MethodPost, "/api/work-orders", customerToken, gin.H{
		"device_id": 9999,
		"title":     "Ghost repair",
	})

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCreateWorkOrderForForeignDeviceForbidden(t *testing.T) {
	r := setupTest(t)

	owner, _ := createUser(t, "Alice", "alice@example.com", models.RoleCustomer)
	_, otherToken := createUser(t, "Bob", "bob@example.com", models.RoleCustomer)
	device := createDevice(t, owner.ID, "SN-001")

	w := doJSON(t, r, http.MethodPost, "/api/work-orders", otherToken, gin.H{
		"device_id": device.ID,
		"title":     "Not my laptop",
	})

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStaffCreatesWorkOrderForCustomerDevice(t *testing.T) {
	r := setupTest(t)

	owner, _ := createUser(t, "Alice", "alice@example.com", models.RoleCustomer)
	_, techToken := createUser(t, "Tessa", "tessa@example.com", models.RoleTechnician)
	device := createDevice(t, owner.ID, "SN-001")

	w := doJSON(t, r, http.MethodPost, "/api/work-orders", techToken, gin.H{
		"device_id": device.ID,
		"title":     "Walk-in intake",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var created struct {
		CustomerID uint `json:"customer_id"`
	}
	decodeBody(t, w, &created)

	if created.CustomerID != owner.ID {
		t.Fatalf("work order should belong to the device owner %d, got %d", owner.ID, created.CustomerID)
	}
}

func TestStatusUpdateFlowWithSideEffects(t *testing.T) {
	r := setupTest(t)

	customer, customerToken := createUser(t, "Alice", "alice@example.com", models.RoleCustomer)
	_, techToken := createUser(t, "Tessa", "tessa@example.com", models.RoleTechnician)
	device := createDevice(t, customer.ID, "SN-001")
	workOrder := createWorkOrder(t, customer.ID, device.ID, models.StatusPending)

	w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/work-orders/%d/status", workOrder.ID), techToken, gin.H{
		"status": models.StatusInProgress,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("status update: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// Thread gained exactly one system message with the canonical text
	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/messages/work-order/%d", workOrder.ID), customerToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("thread: expected 200, got %d", w.Code)
	}

	var thread struct {
		TotalMessages int `json:"total_messages"`
		Messages      []struct {
			SenderType string `json:"sender_type"`
			SenderName string `json:"sender_name"`
			SenderID   *uint  `json:"sender_id"`
			Body       string `json:"message"`
		} `json:"messages"`
	}
	decodeBody(t, w, &thread)

	if thread.TotalMessages != 1 {
		t.Fatalf("expected 1 system message, got %d", thread.TotalMessages)
	}
	if thread.Messages[0].SenderType != models.SenderSystem {
		t.Fatalf("expected system sender, got %q", thread.Messages[0].SenderType)
	}
	if thread.Messages[0].SenderID != nil {
		t.Fatal("system message must have no sender id")
	}
	if thread.Messages[0].SenderName != "System" {
		t.Fatalf("expected sender name System, got %q", thread.Messages[0].SenderName)
	}
	if thread.Messages[0].Body != "Repair status updated to: in_progress" {
		t.Fatalf("unexpected system message body %q", thread.Messages[0].Body)
	}

	// The owning customer got exactly one status_change notification
	var notifications []models.Notification
	if err := db.DB.Where("user_id = ?", customer.ID).Find(&notifications).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}

	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifications))
	}
	if notifications[0].Type != models.NotificationStatusChange {
		t.Fatalf("expected status_change, got %q", notifications[0].Type)
	}
	if notifications[0].WorkOrderID == nil || *notifications[0].WorkOrderID != workOrder.ID {
		t.Fatal("notification should reference the work order")
	}
}

func TestStatusUpdateRejectsUnknownStatus(t *testing.T) {
	r := setupTest(t)

	customer, _ := createUser(t, "Alice", "alice@example.com", models.RoleCustomer)
	_, techToken := createUser(t, "Tessa", "tessa@example.com", models.RoleTechnician)
	device := createDevice(t, customer.ID, "SN-001")
	workOrder := createWorkOrder(t, customer.ID, device.ID, models.StatusPending)

	w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/work-orders/%d/status", workOrder.ID), techToken, gin.H{
		"status": "exploded",
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStatusUpdateRejectsIllegalTransition(t *testing.T) {
	r := setupTest(t)

	customer, _ := createUser(t, "Alice", "alice@example.com", models.RoleCustomer)
	_, techToken := createUser(t, "Tessa", "tessa@example.com", models.RoleTechnician)
	device := createDevice(t, customer.ID, "SN-001")

	// Terminal states stay terminal
	cancelled := createWorkOrder(t, customer.ID, device.ID, models.StatusCancelled)

	w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/work-orders/%d/status", cancelled.ID), techToken, gin.H{
		"status": models.StatusInProgress,
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("cancelled→in_progress: expected 400, got %d", w.Code)
	}

	// Completed only moves forward to delivered
	completed := createWorkOrder(t, customer.ID, device.ID, models.StatusCompleted)

	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/work-orders/%d/status", completed.ID), techToken, gin.H{
		"status": models.StatusPending,
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("completed→pending: expected 400, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/work-orders/%d/status", completed.ID), techToken, gin.H{
		"status": models.StatusDelivered,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("completed→delivered: expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestStatusUpdateRequiresStaff(t *testing.T) {
	r := setupTest(t)

	customer, customerToken := createUser(t, "Alice", "alice@example.com", models.RoleCustomer)
	device := createDevice(t, customer.ID, "SN-001")
	workOrder := createWorkOrder(t, customer.ID, device.ID, models.StatusPending)

	w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/work-orders/%d/status", workOrder.ID), customerToken, gin.H{
		"status": models.StatusInProgress,
	})

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCompletedAtIsIdempotent(t *testing.T) {
	r := setupTest(t)

	customer, _ := createUser(t, "Alice", "alice@example.com", models.RoleCustomer)
	_, techToken := createUser(t, "Tessa", "tessa@example.com", models.RoleTechnician)
	device := createDevice(t, customer.ID, "SN-001")
	workOrder := createWorkOrder(t, customer.ID, device.ID, models.StatusInProgress)

	w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/work-orders/%d/status", workOrder.ID), techToken, gin.H{
		"status": models.StatusCompleted,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("first completion: expected 200, got %d", w.Code)
	}

	var first models.WorkOrder
	if err := db.DB.First(&first, workOrder.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if first.CompletedAt == nil {
		t.Fatal("completed_at should be set after completion")
	}

	time.Sleep(10 * time.Millisecond)

	w = doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/work-orders/%d/status", workOrder.ID), techToken, gin.H{
		"status": models.StatusCompleted,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("second completion: expected 200, got %d", w.Code)
	}

	var second models.WorkOrder
	if err := db.DB.First(&second, workOrder.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}

	if !first.CompletedAt.Equal(*second.CompletedAt) {
		t.Fatalf("completed_at changed on repeat completion: %v != %v", first.CompletedAt, second.CompletedAt)
	}
}

func TestCustomerCancelsPendingWorkOrder(t *testing.T) {
	r := setupTest(t)

	customer, customerToken := createUser(t, "Alice", "alice@example.com", models.RoleCustomer)
	device := createDevice(t, customer.ID, "SN-001")
	workOrder := createWorkOrder(t, customer.ID, device.ID, models.StatusPending)

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/work-orders/%d", workOrder.ID), customerToken, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var reloaded models.WorkOrder
	if err := db.DB.First(&reloaded, workOrder.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != models.StatusCancelled {
		t.Fatalf("expected cancelled, got %q", reloaded.Status)
	}
}

func TestCustomerCannotCancelStartedWorkOrder(t *testing.T) {
	r := setupTest(t)

	customer, customerToken := createUser(t, "Alice", "alice@example.com", models.RoleCustomer)
	device := createDevice(t, customer.ID, "SN-001")
	workOrder := createWorkOrder(t, customer.ID, device.ID, models.StatusInProgress)

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/work-orders/%d", workOrder.ID), customerToken, nil)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestWorkOrderIsolationBetweenCustomers(t *testing.T) {
	r := setupTest(t)

	alice, _ := createUser(t, "Alice", "alice@example.com", models.RoleCustomer)
	_, bobToken := createUser(t, "Bob", "bob@example.com", models.RoleCustomer)
	device := createDevice(t, alice.ID, "SN-001")
	workOrder := createWorkOrder(t, alice.ID, device.ID, models.StatusPending)

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/work-orders/%d", workOrder.ID), bobToken, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get: expected 404, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/work-orders/%d", workOrder.ID), bobToken, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("cancel: expected 404, got %d", w.Code)
	}
}

func TestListWorkOrdersScopedByRole(t *testing.T) {
	r := setupTest(t)

	alice, aliceToken := createUser(t, "Alice", "alice@example.com", models.RoleCustomer)
	bob, _ := createUser(t, "Bob", "bob@example.com", models.RoleCustomer)
	_, techToken := createUser(t, "Tessa", "tessa@example.com", models.RoleTechnician)

	aliceDevice := createDevice(t, alice.ID, "SN-001")
	bobDevice := createDevice(t, bob.ID, "SN-002")
	createWorkOrder(t, alice.ID, aliceDevice.ID, models.StatusPending)
	createWorkOrder(t, bob.ID, bobDevice.ID, models.StatusInProgress)

	w := doJSON(t, r, http.MethodGet, "/api/work-orders", aliceToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("customer list: expected 200, got %d", w.Code)
	}

	var mine []struct {
		CustomerID uint `json:"customer_id"`
	}
	decodeBody(t, w, &mine)

	if len(mine) != 1 || mine[0].CustomerID != alice.ID {
		t.Fatalf("customer should only see their own orders, got %+v", mine)
	}

	w = doJSON(t, r, http.MethodGet, "/api/work-orders", techToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("staff list: expected 200, got %d", w.Code)
	}

	var all []struct {
		CustomerID uint `json:"customer_id"`
	}
	decodeBody(t, w, &all)

	if len(all) != 2 {
		t.Fatalf("staff should see all orders, got %d", len(all))
	}

	w = doJSON(t, r, http.MethodGet, "/api/work-orders?status=in_progress", techToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("filtered list: expected 200, got %d", w.Code)
	}

	var filtered []struct {
		Status string `json:"status"`
	}
	decodeBody(t, w, &filtered)

	if len(filtered) != 1 || filtered[0].Status != models.StatusInProgress {
		t.Fatalf("status filter failed, got %+v", filtered)
	}
}

func TestAdminDeleteWorkOrderCascades(t *testing.T) {
	r := setupTest(t)

	customer, _ := createUser(t, "Alice", "alice@example.com", models.RoleCustomer)
	_, adminToken := createUser(t, "Root", "root@example.com", models.RoleAdmin)
	_, techToken := createUser(t, "Tessa", "tessa@example.com", models.RoleTechnician)
	device := createDevice(t, customer.ID, "SN-001")
	workOrder := createWorkOrder(t, customer.ID, device.ID, models.StatusPending)

	// Seed a thread and a notification through the lifecycle
	w := doJSON(t, r, http.MethodPatch, fmt.Sprintf("/api/work-orders/%d/status", workOrder.ID), techToken, gin.H{
		"status": models.StatusInProgress,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("seed status: expected 200, got %d", w.Code)
	}

	// Technicians cannot hard-delete
	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/admin/work-orders/%d", workOrder.ID), techToken, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("delete as technician: expected 403, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/admin/work-orders/%d", workOrder.ID), adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var messageCount, notificationCount int64
	db.DB.Model(&models.Message{}).Where("work_order_id = ?", workOrder.ID).Count(&messageCount)
	db.DB.Model(&models.Notification{}).Where("work_order_id = ?", workOrder.ID).Count(&notificationCount)

	if messageCount != 0 || notificationCount != 0 {
		t.Fatalf("expected cascade delete, found %d messages and %d notifications", messageCount, notificationCount)
	}
}
