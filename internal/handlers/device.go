package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/repairhub-dev/repairhub/db"
	"github.com/repairhub-dev/repairhub/internal/models"
	"github.com/repairhub-dev/repairhub/internal/utils"
	"gorm.io/gorm"
)

type CreateDeviceRequest struct {
	CustomerID   uint                   `json:"customer_id"` // staff path only; ignored for customers
	DeviceType   string                 `json:"device_type" binding:"required"`
	Brand        string                 `json:"brand"`
	DeviceModel  string                 `json:"model"`
	SerialNumber string                 `json:"serial_number" binding:"required"`
	Notes        string                 `json:"notes"`
	Specs        map[string]interface{} `json:"specs"`
}

type UpdateDeviceRequest struct {
	DeviceType  string                 `json:"device_type"`
	Brand       string                 `json:"brand"`
	DeviceModel string                 `json:"model"`
	Notes       string                 `json:"notes"`
	Specs       map[string]interface{} `json:"specs"`
}

type DeviceResponse struct {
	ID           uint                   `json:"id"`
	CustomerID   uint                   `json:"customer_id"`
	DeviceType   string                 `json:"device_type"`
	Brand        string                 `json:"brand"`
	DeviceModel  string                 `json:"model"`
	SerialNumber string                 `json:"serial_number"`
	Notes        string                 `json:"notes"`
	Specs        map[string]interface{} `json:"specs"`
}

func deviceResponse(device *models.Device) DeviceResponse {
	var specs map[string]interface{}
	if len(device.Specs) > 0 {
		if err := json.Unmarshal(device.Specs, &specs); err != nil {
			log.Printf("Failed to decode specs for device %d: %v", device.ID, err)
		}
	}

	return DeviceResponse{
		ID:           device.ID,
		CustomerID:   device.CustomerID,
		DeviceType:   device.DeviceType,
		Brand:        device.Brand,
		DeviceModel:  device.DeviceModel,
		SerialNumber: device.SerialNumber,
		Notes:        device.Notes,
		Specs:        specs,
	}
}

func encodeSpecs(specs map[string]interface{}) ([]byte, error) {
	if specs == nil {
		return nil, nil
	}
	return json.Marshal(specs)
}

// serialNumberTaken reports whether another device already uses the serial.
func serialNumberTaken(serial string, excludeID uint) (bool, error) {
	var existing models.Device

	err := db.DB.Where("serial_number = ? AND id != ?", serial, excludeID).First(&existing).Error

	if err == nil {
		return true, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}

	return false, err
}

// ListMyDevices returns the caller's devices.
func ListMyDevices(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var devices []models.Device

	if err := db.DB.Where("customer_id = ?", userID).Find(&devices).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve devices"})
		return
	}

	response := make([]DeviceResponse, 0, len(devices))
	for i := range devices {
		response = append(response, deviceResponse(&devices[i]))
	}

	ctx.JSON(http.StatusOK, response)
}

// CreateMyDevice registers a device owned by the caller.
func CreateMyDevice(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var body CreateDeviceRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	taken, err := serialNumberTaken(body.SerialNumber, 0)
	if err != nil {
		log.Printf("Database error when checking serial number: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if taken {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Serial number already registered"})
		return
	}

	specs, err := encodeSpecs(body.Specs)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid specs"})
		return
	}

	device := models.Device{
		CustomerID:   userID,
		DeviceType:   body.DeviceType,
		Brand:        body.Brand,
		DeviceModel:  body.DeviceModel,
		SerialNumber: body.SerialNumber,
		Notes:        body.Notes,
		Specs:        specs,
	}

	if err := db.DB.Create(&device).Error; err != nil {
		log.Printf("Failed to create device: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create device"})
		return
	}

	ctx.JSON(http.StatusCreated, deviceResponse(&device))
}

// GetMyDevice returns one of the caller's devices.
func GetMyDevice(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var device models.Device

	if err := db.DB.Where("id = ? AND customer_id = ?", ctx.Param("id"), userID).First(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve device"})
		}
		return
	}

	ctx.JSON(http.StatusOK, deviceResponse(&device))
}

// UpdateMyDevice updates one of the caller's devices.
func UpdateMyDevice(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var device models.Device

	if err := db.DB.Where("id = ? AND customer_id = ?", ctx.Param("id"), userID).First(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve device"})
		}
		return
	}

	applyDeviceUpdate(ctx, &device)
}

func applyDeviceUpdate(ctx *gin.Context, device *models.Device) {
	var body UpdateDeviceRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if body.DeviceType != "" {
		device.DeviceType = body.DeviceType
	}
	if body.Brand != "" {
		device.Brand = body.Brand
	}
	if body.DeviceModel != "" {
		device.DeviceModel = body.DeviceModel
	}
	if body.Notes != "" {
		device.Notes = body.Notes
	}
	if body.Specs != nil {
		specs, err := encodeSpecs(body.Specs)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid specs"})
			return
		}
		device.Specs = specs
	}

	if err := db.DB.Save(device).Error; err != nil {
		log.Printf("Failed to update device: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update device"})
		return
	}

	ctx.JSON(http.StatusOK, deviceResponse(device))
}

// ListDevices returns all devices, optionally filtered by owner. Staff only.
func ListDevices(ctx *gin.Context) {
	query := db.DB.Model(&models.Device{})

	if customerID := ctx.Query("customer_id"); customerID != "" {
		query = query.Where("customer_id = ?", customerID)
	}

	var devices []models.Device

	if err := query.Find(&devices).Error; err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve devices"})
		return
	}

	response := make([]DeviceResponse, 0, len(devices))
	for i := range devices {
		response = append(response, deviceResponse(&devices[i]))
	}

	ctx.JSON(http.StatusOK, response)
}

// CreateDevice registers a device for any existing customer. Staff only.
func CreateDevice(ctx *gin.Context) {
	var body CreateDeviceRequest

	if err := ctx.BindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var owner models.User

	if err := db.DB.First(&owner, body.CustomerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	taken, err := serialNumberTaken(body.SerialNumber, 0)
	if err != nil {
		log.Printf("Database error when checking serial number: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if taken {
		ctx.JSON(http.StatusConflict, gin.H{"error": "Serial number already registered"})
		return
	}

	specs, err := encodeSpecs(body.Specs)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid specs"})
		return
	}

	device := models.Device{
		CustomerID:   owner.ID,
		DeviceType:   body.DeviceType,
		Brand:        body.Brand,
		DeviceModel:  body.DeviceModel,
		SerialNumber: body.SerialNumber,
		Notes:        body.Notes,
		Specs:        specs,
	}

	if err := db.DB.Create(&device).Error; err != nil {
		log.Printf("Failed to create device: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create device"})
		return
	}

	ctx.JSON(http.StatusCreated, deviceResponse(&device))
}

// UpdateDevice updates any device. Staff only.
func UpdateDevice(ctx *gin.Context) {
	var device models.Device

	if err := db.DB.First(&device, "id = ?", ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve device"})
		}
		return
	}

	applyDeviceUpdate(ctx, &device)
}

// DeleteDevice removes a device and its work orders. Admin only.
func DeleteDevice(ctx *gin.Context) {
	var device models.Device

	if err := db.DB.First(&device, "id = ?", ctx.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		} else {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve device"})
		}
		return
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var workOrderIDs []uint
		if err := tx.Model(&models.WorkOrder{}).Where("device_id = ?", device.ID).Pluck("id", &workOrderIDs).Error; err != nil {
			return err
		}

		if len(workOrderIDs) > 0 {
			if err := tx.Where("work_order_id IN ?", workOrderIDs).Delete(&models.Message{}).Error; err != nil {
				return err
			}
			if err := tx.Where("work_order_id IN ?", workOrderIDs).Delete(&models.Notification{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", workOrderIDs).Delete(&models.WorkOrder{}).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&device).Error
	})

	if err != nil {
		log.Printf("Failed to delete device: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete device"})
		return
	}

	ctx.Status(http.StatusNoContent)
}
