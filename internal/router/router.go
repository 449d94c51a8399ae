package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/repairhub-dev/repairhub/internal/handlers"
	"github.com/repairhub-dev/repairhub/internal/middleware"
	"github.com/repairhub-dev/repairhub/internal/types"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws", middleware.AuthMiddleware(), handlers.NotificationFeed)

		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register)
			auth.POST("/login", handlers.Login)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
			auth.PATCH("/me", middleware.AuthMiddleware(), handlers.UpdateProfile)
			auth.DELETE("/me", middleware.AuthMiddleware(), handlers.DeleteAccount)
		}

		devices := api.Group("/devices", middleware.AuthMiddleware())
		{
			devices.GET("", handlers.ListMyDevices)
			devices.POST("", handlers.CreateMyDevice)
			devices.GET("/:id", handlers.GetMyDevice)
			devices.PUT("/:id", handlers.UpdateMyDevice)
		}

		workOrders := api.Group("/work-orders", middleware.AuthMiddleware())
		{
			workOrders.GET("", handlers.ListWorkOrders)
			workOrders.POST("", handlers.CreateWorkOrder)
			workOrders.GET("/:id", handlers.GetWorkOrder)
			workOrders.DELETE("/:id", handlers.CancelWorkOrder)

			staff := workOrders.Group("", middleware.RequireStaff())
			{
				staff.PUT("/:id", handlers.UpdateWorkOrder)
				staff.PATCH("/:id/status", handlers.UpdateWorkOrderStatus)
			}
		}

		messages := api.Group("/messages", middleware.AuthMiddleware())
		{
			messages.GET("/work-order/:id", handlers.GetThread)
			messages.POST("/work-order/:id", handlers.SendMessage)
			messages.PUT("/mark-read", handlers.MarkMessagesRead)
			messages.GET("/unread-count", handlers.GetUnreadMessageCount)
			messages.GET("/recent", handlers.GetRecentMessages)
		}

		notifications := api.Group("/notifications", middleware.AuthMiddleware())
		{
			notifications.GET("", handlers.ListNotifications)
			notifications.PUT("/read-all", handlers.MarkAllNotificationsRead)
			notifications.PUT("/:id/read", handlers.MarkNotificationRead)
			notifications.GET("/unread-count", handlers.GetUnreadNotificationCount)
			notifications.DELETE("/:id", handlers.DeleteNotification)
			notifications.DELETE("", handlers.DeleteAllNotifications)
		}

		admin := api.Group("/admin", middleware.AuthMiddleware(), middleware.RequireStaff())
		{
			admin.GET("/users", handlers.ListUsers)
			admin.GET("/users/:id", handlers.GetUser)
			admin.POST("/users", middleware.RequireAdmin(), handlers.CreateUser)
			admin.PUT("/users/:id", middleware.RequireAdmin(), handlers.UpdateUser)
			admin.DELETE("/users/:id", middleware.RequireAdmin(), handlers.DeleteUser)

			admin.GET("/devices", handlers.ListDevices)
			admin.POST("/devices", handlers.CreateDevice)
			admin.PUT("/devices/:id", handlers.UpdateDevice)
			admin.DELETE("/devices/:id", middleware.RequireAdmin(), handlers.DeleteDevice)

			admin.DELETE("/work-orders/:id", middleware.RequireAdmin(), handlers.DeleteWorkOrder)
		}
	}

	return r
}
