package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/krishnadas018/yatra-management-backend/config"
)

// DB is the shared GORM handle, set by Connect
var DB *gorm.DB

// Connect opens the Postgres connection and stores it in DB
func Connect(cfg *config.Config) *gorm.DB {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=Asia/Kolkata",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}

	DB = db
	log.Println("✅ Database connected")
	return db
}

// EnsureRegistrationIndexes creates the indexes AutoMigrate cannot express:
// a partial unique index so a devotee can hold at most one live registration
// per yatra, with cancelled and completed rows excluded.
func EnsureRegistrationIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_live_registration_per_devotee
			ON yatra_registrations (yatra_id, devotee_id)
			WHERE status IN ('PENDING', 'PAYMENT_SUBMITTED', 'PAYMENT_VERIFIED', 'CONFIRMED')
			AND deleted_at IS NULL;`,
		`CREATE INDEX IF NOT EXISTS idx_registrations_yatra_status
			ON yatra_registrations (yatra_id, status);`,
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create registration index: %w", err)
		}
	}
	return nil
}
