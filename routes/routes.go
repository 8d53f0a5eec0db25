package routes

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/krishnadas018/yatra-management-backend/config"
	"github.com/krishnadas018/yatra-management-backend/database"
	"github.com/krishnadas018/yatra-management-backend/internal/auditlog"
	"github.com/krishnadas018/yatra-management-backend/internal/auth"
	"github.com/krishnadas018/yatra-management-backend/internal/notification"
	"github.com/krishnadas018/yatra-management-backend/internal/registration"
	"github.com/krishnadas018/yatra-management-backend/internal/reports"
	"github.com/krishnadas018/yatra-management-backend/internal/yatra"
	"github.com/krishnadas018/yatra-management-backend/middleware"
)

func Setup(r *gin.Engine, cfg *config.Config) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimiter())     // Global rate limit: 5 req/sec per IP
	api.Use(middleware.AuditMiddleware()) // Audit middleware to capture IP

	// ========== Audit Log Module ==========
	auditRepo := auditlog.NewRepository(database.DB)
	auditSvc := auditlog.NewService(auditRepo)
	auditHandler := auditlog.NewHandler(auditSvc)

	// ========== Auth ==========
	authRepo := auth.NewRepository(database.DB)
	authSvc := auth.NewService(authRepo, cfg)
	authHandler := auth.NewHandler(authSvc)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)

		authGroup.POST("/forgot-password", authHandler.ForgotPassword)
		authGroup.POST("/reset-password", authHandler.ResetPassword)

		authGroup.GET("/public-roles", authHandler.GetPublicRoles)

		// Logout requires Auth Middleware
		authGroup.POST("/logout", middleware.AuthMiddleware(cfg, authSvc), authHandler.Logout)
	}

	// ========== Notifications (built early so registration can publish) ==========
	notificationRepo := notification.NewRepository(database.DB)
	notifSvc := notification.NewService(notificationRepo, authRepo, cfg, auditSvc)
	notificationHandler := notification.NewHandler(notifSvc)

	// Public token-based SSE stream (EventSource cannot send headers)
	api.GET("/notifications/stream-token", notificationHandler.StreamInAppWithToken)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(cfg, authSvc))

	// ========== Audit Logs (Admin Only) ==========
	auditRoutes := protected.Group("/auditlogs")
	auditRoutes.Use(middleware.RBACMiddleware("admin"))
	{
		auditRoutes.GET("/", auditHandler.GetAuditLogs)
		auditRoutes.GET("/stats", auditHandler.GetAuditLogStats)
		auditRoutes.GET("/:id", auditHandler.GetAuditLogByID)
	}

	// ==================== YATRA ROUTES ====================

	yatraRepo := yatra.NewRepository(database.DB)
	yatraService := yatra.NewService(yatraRepo, auditSvc)
	yatraHandler := yatra.NewHandler(yatraService)

	// All Yatra routes under: /api/v1/yatras
	yatraRoutes := protected.Group("/yatras")
	{
		// Read operations - devotees see published yatras, admins see everything
		yatraRoutes.GET("/", yatraHandler.ListYatras)
		yatraRoutes.GET("/:id", yatraHandler.GetYatra)
		yatraRoutes.GET("/:id/categories", yatraHandler.ListRoomCategories)
		yatraRoutes.GET("/:id/payment-options", yatraHandler.ListYatraPaymentOptions)

		// Write operations - admin only
		writeRoutes := yatraRoutes.Group("")
		writeRoutes.Use(middleware.RBACMiddleware("admin"), middleware.RequireWriteAccess())
		{
			writeRoutes.POST("/", yatraHandler.CreateYatra)
			writeRoutes.PUT("/:id", yatraHandler.UpdateYatra)
			writeRoutes.PATCH("/:id/status", yatraHandler.UpdateYatraStatus)
			writeRoutes.DELETE("/:id", yatraHandler.DeleteYatra)

			// Room categories
			writeRoutes.POST("/:id/categories", yatraHandler.AddRoomCategory)
			writeRoutes.PUT("/:id/categories/:category_id", yatraHandler.UpdateRoomCategory)
			writeRoutes.DELETE("/:id/categories/:category_id", yatraHandler.DeleteRoomCategory)

			// Payment option attachments
			writeRoutes.POST("/:id/payment-options/:option_id", yatraHandler.AttachPaymentOption)
			writeRoutes.DELETE("/:id/payment-options/:option_id", yatraHandler.DetachPaymentOption)
		}
	}

	// Payment options are managed independently of a single yatra
	paymentOptionRoutes := protected.Group("/payment-options")
	paymentOptionRoutes.GET("/", middleware.RBACMiddleware("admin"), yatraHandler.ListPaymentOptions)
	writeOptionRoutes := paymentOptionRoutes.Group("")
	writeOptionRoutes.Use(middleware.RBACMiddleware("admin"), middleware.RequireWriteAccess())
	{
		writeOptionRoutes.POST("/", yatraHandler.CreatePaymentOption)
		writeOptionRoutes.DELETE("/:option_id", yatraHandler.DeactivatePaymentOption)
	}

	// ==================== REGISTRATION ROUTES ====================

	registrationRepo := registration.NewRepository(database.DB)
	registrationService := registration.NewService(registrationRepo, auditSvc)
	registrationService.SetNotifService(notifSvc)
	registrationHandler := registration.NewHandler(registrationService)

	registrationRoutes := protected.Group("/registrations")
	{
		// Devotee lifecycle
		devoteeRoutes := registrationRoutes.Group("")
		devoteeRoutes.Use(middleware.RBACMiddleware("devotee", "admin"))
		{
			devoteeRoutes.POST("/", registrationHandler.CreateRegistration)
			devoteeRoutes.GET("/my", registrationHandler.ListMyRegistrations)
			devoteeRoutes.PUT("/:id/members", registrationHandler.UpdateRegistration)
			devoteeRoutes.POST("/:id/payment", registrationHandler.UploadPayment)
			devoteeRoutes.POST("/:id/cancel", registrationHandler.CancelRegistration)
		}

		// Owner-or-admin reads (service enforces ownership)
		registrationRoutes.GET("/:id", registrationHandler.GetRegistration)
		registrationRoutes.GET("/:id/history", registrationHandler.GetStatusHistory)
		registrationRoutes.GET("/:id/payment-screenshot", registrationHandler.DownloadPaymentScreenshot)
		registrationRoutes.GET("/number/:number", registrationHandler.GetByNumber)

		// Admin status machine
		adminRoutes := registrationRoutes.Group("")
		adminRoutes.Use(middleware.RBACMiddleware("admin"), middleware.RequireWriteAccess())
		{
			adminRoutes.PATCH("/:id/status", registrationHandler.UpdateStatus)
		}
	}

	// Admin views over a yatra's registrations
	adminYatraRoutes := protected.Group("/admin/yatras")
	adminYatraRoutes.Use(middleware.RBACMiddleware("admin"))
	{
		adminYatraRoutes.GET("/:id/registrations", registrationHandler.ListByYatra)
		adminYatraRoutes.GET("/:id/registrations/status-counts", registrationHandler.GetStatusCounts)
	}

	// ========== Notifications ==========
	notificationRoutes := protected.Group("/notifications")
	{
		// Send bulk email - admin only
		writeRoutes := notificationRoutes.Group("")
		writeRoutes.Use(middleware.RBACMiddleware("admin"), middleware.RequireWriteAccess())
		{
			writeRoutes.POST("/send", notificationHandler.SendNotification)
			writeRoutes.GET("/logs", notificationHandler.GetNotifications)
		}

		// In-app
		notificationRoutes.GET("/inapp", notificationHandler.ListInApp)
		notificationRoutes.GET("/inapp/unread-count", notificationHandler.GetUnreadCount)
		notificationRoutes.PUT("/inapp/:id/read", notificationHandler.MarkInAppRead)
		notificationRoutes.GET("/stream", notificationHandler.StreamInApp)
	}

	// ========== Reports & Receipts ==========
	{
		reportsRepo := reports.NewRepository(database.DB)
		reportsExporter := reports.NewReportExporter()
		reportsService := reports.NewReportService(reportsRepo, reportsExporter, auditSvc)
		reportsHandler := reports.NewHandler(reportsService)

		adminYatraRoutes.GET("/:id/reports", reportsHandler.DownloadReport)

		// Receipt is owner-or-admin, service enforces ownership
		registrationRoutes.GET("/number/:number/receipt", reportsHandler.DownloadReceipt)
	}

	r.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}
