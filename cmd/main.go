package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/krishnadas018/yatra-management-backend/config"
	"github.com/krishnadas018/yatra-management-backend/database"
	"github.com/krishnadas018/yatra-management-backend/internal/auditlog"
	"github.com/krishnadas018/yatra-management-backend/internal/auth"
	"github.com/krishnadas018/yatra-management-backend/internal/notification"
	"github.com/krishnadas018/yatra-management-backend/internal/registration"
	"github.com/krishnadas018/yatra-management-backend/internal/yatra"
	"github.com/krishnadas018/yatra-management-backend/routes"
	"github.com/krishnadas018/yatra-management-backend/utils"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg)

	// Init Redis
	if err := utils.InitRedis(); err != nil {
		log.Fatalf("❌ Redis init failed: %v", err)
	}

	// Init Kafka
	utils.InitializeKafka()

	// Seed roles & admin
	if err := auth.SeedUserRoles(db); err != nil {
		panic(fmt.Sprintf("❌ Failed to seed roles: %v", err))
	}
	if err := auth.SeedAdminUser(db); err != nil {
		panic(fmt.Sprintf("❌ Failed to seed admin: %v", err))
	}

	// Auto-migrate models
	log.Println("🔄 Running database migrations...")
	if err := db.AutoMigrate(
		&auth.UserRole{},
		&auth.User{},
		&auditlog.AuditLog{},
		&yatra.Yatra{},
		&yatra.RoomCategory{},
		&yatra.PaymentOption{},
		&registration.Registration{},
		&registration.Member{},
		&notification.NotificationLog{},
		&notification.InAppNotification{},
	); err != nil {
		panic(fmt.Sprintf("❌ DB AutoMigrate failed: %v", err))
	}
	if err := database.EnsureRegistrationIndexes(db); err != nil {
		panic(fmt.Sprintf("❌ Registration index setup failed: %v", err))
	}
	log.Println("✅ Database migrations completed")

	// Kafka consumer feeds admin in-app notifications from registration events
	notificationRepo := notification.NewRepository(db)
	auditSvc := auditlog.NewService(auditlog.NewRepository(db))
	notifSvc := notification.NewService(notificationRepo, auth.NewRepository(db), cfg, auditSvc)
	go notification.StartKafkaConsumer(context.Background(), notifSvc)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:4173", "http://127.0.0.1:4173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Content-Length", "X-Requested-With", "Cache-Control", "Pragma"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "Content-Disposition", "Cache-Control", "Pragma", "Expires"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Upload directories for payment screenshots and UPI QR codes
	for _, dir := range []string{"payments", "qrcodes"} {
		if err := os.MkdirAll(filepath.Join(config.UploadPath, dir), os.ModePerm); err != nil {
			panic(fmt.Sprintf("❌ Failed to create upload directory: %v", err))
		}
	}

	// QR codes are public so devotees can scan them from the payment page
	router.Static("/uploads/qrcodes", filepath.Join(config.UploadPath, "qrcodes"))

	routes.Setup(router, cfg)

	fmt.Printf("🚀 Server starting on port %s\n", cfg.Port)
	fmt.Printf("📁 Upload directory: %s\n", config.UploadPath)

	if err := router.Run(":" + cfg.Port); err != nil {
		panic(fmt.Sprintf("Failed to start server: %v", err))
	}
}
