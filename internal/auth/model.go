package auth

import (
	"errors"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserRole struct {
	ID                  uint   `gorm:"primaryKey" json:"id"`
	RoleName            string `gorm:"size:50;not null;uniqueIndex" json:"role_name"`
	Description         string `gorm:"size:255" json:"description"`
	CanRegisterPublicly bool   `gorm:"default:false" json:"can_register_publicly"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FullName     string    `gorm:"size:150;not null" json:"full_name"`
	Email        string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Phone        string    `gorm:"size:15" json:"phone"`
	RoleID       uint      `gorm:"not null;index" json:"role_id"`
	Role         UserRole  `gorm:"foreignKey:RoleID" json:"role"`
	Status       string    `gorm:"size:20;default:'active'" json:"status"` // active / inactive
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

type PublicRoleResponse struct {
	ID          uint   `json:"id"`
	RoleName    string `json:"role_name"`
	Description string `json:"description"`
}

// SeedUserRoles creates the devotee and admin roles if missing
func SeedUserRoles(db *gorm.DB) error {
	roles := []UserRole{
		{RoleName: "devotee", Description: "Pilgrim who registers for yatras", CanRegisterPublicly: true},
		{RoleName: "admin", Description: "Yatra administrator", CanRegisterPublicly: false},
	}

	for _, role := range roles {
		var existing UserRole
		err := db.Where("role_name = ?", role.RoleName).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&role).Error; err != nil {
				return err
			}
			log.Printf("✅ Seeded role: %s", role.RoleName)
		} else if err != nil {
			return err
		}
	}
	return nil
}

// SeedAdminUser creates the bootstrap admin from ADMIN_EMAIL / ADMIN_PASSWORD
func SeedAdminUser(db *gorm.DB) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("⚠️ ADMIN_EMAIL / ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	var existing User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var role UserRole
	if err := db.Where("role_name = ?", "admin").First(&role).Error; err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := User{
		FullName:     "Yatra Admin",
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       role.ID,
		Status:       "active",
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	log.Println("✅ Seeded admin user:", email)
	return nil
}
