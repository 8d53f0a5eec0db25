package yatra

import (
	"time"

	"gorm.io/gorm"
)

// ======================
// 🔹 Yatra Core Model
// ======================

// Yatra lifecycle statuses
const (
	StatusDraft              = "DRAFT"
	StatusUpcoming           = "UPCOMING"
	StatusRegistrationClosed = "REGISTRATION_CLOSED"
	StatusOngoing            = "ONGOING"
	StatusCompleted          = "COMPLETED"
	StatusCancelled          = "CANCELLED"
)

var ValidStatuses = map[string]bool{
	StatusDraft:              true,
	StatusUpcoming:           true,
	StatusRegistrationClosed: true,
	StatusOngoing:            true,
	StatusCompleted:          true,
	StatusCancelled:          true,
}

type Yatra struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Destination string `gorm:"type:varchar(255);not null" json:"destination"`

	StartDate time.Time `gorm:"not null;index" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`

	// Registration window; bookings are accepted only inside it
	RegistrationOpensAt  time.Time `gorm:"not null" json:"registration_opens_at"`
	RegistrationClosesAt time.Time `gorm:"not null" json:"registration_closes_at"`

	// 0 means unlimited
	MaxCapacity int    `gorm:"not null;default:0" json:"max_capacity"`
	Status      string `gorm:"type:varchar(30);default:'DRAFT';index" json:"status"`

	CreatedBy uint           `gorm:"not null" json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	RoomCategories []RoomCategory  `gorm:"foreignKey:YatraID" json:"room_categories,omitempty"`
	PaymentOptions []PaymentOption `gorm:"many2many:yatra_payment_options" json:"payment_options,omitempty"`

	ConfirmedSeats int `gorm:"-" json:"confirmed_seats"`
}

func (Yatra) TableName() string {
	return "yatras"
}

// ======================
// 🔹 Room Category Model
// ======================

type RoomCategory struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	YatraID        uint      `gorm:"not null;uniqueIndex:idx_yatra_category_name" json:"yatra_id"`
	Name           string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_yatra_category_name" json:"name"`
	Description    string    `gorm:"type:text" json:"description"`
	PricePerPerson int       `gorm:"not null" json:"price_per_person"` // rupees, whole units
	IsActive       bool      `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (RoomCategory) TableName() string {
	return "room_categories"
}

// ======================
// 🔹 Payment Option Model
// ======================

const (
	PaymentMethodUPI          = "UPI"
	PaymentMethodBankTransfer = "BANK_TRANSFER"
)

type PaymentOption struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	Name   string `gorm:"type:varchar(100);not null" json:"name"`
	Method string `gorm:"type:varchar(30);not null" json:"method"` // UPI / BANK_TRANSFER

	UPIID      string `gorm:"type:varchar(100)" json:"upi_id,omitempty"`
	QRCodePath string `gorm:"type:varchar(255)" json:"qr_code_path,omitempty"`

	BankName          string `gorm:"type:varchar(100)" json:"bank_name,omitempty"`
	AccountNumber     string `gorm:"type:varchar(30)" json:"account_number,omitempty"`
	IFSCCode          string `gorm:"type:varchar(20)" json:"ifsc_code,omitempty"`
	AccountHolderName string `gorm:"type:varchar(100)" json:"account_holder_name,omitempty"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PaymentOption) TableName() string {
	return "payment_options"
}

// ======================
// 🔹 Request DTOs
// ======================

type RoomCategoryInput struct {
	Name           string `json:"name" binding:"required"`
	Description    string `json:"description"`
	PricePerPerson int    `json:"price_per_person" binding:"required"`
	IsActive       *bool  `json:"is_active,omitempty"`
}

type CreateYatraRequest struct {
	Name                 string              `json:"name" binding:"required"`
	Description          string              `json:"description"`
	Destination          string              `json:"destination" binding:"required"`
	StartDate            string              `json:"start_date" binding:"required"` // "2006-01-02"
	EndDate              string              `json:"end_date" binding:"required"`
	RegistrationOpensAt  string              `json:"registration_opens_at" binding:"required"`
	RegistrationClosesAt string              `json:"registration_closes_at" binding:"required"`
	MaxCapacity          int                 `json:"max_capacity"` // 0 or absent = unlimited
	RoomCategories       []RoomCategoryInput `json:"room_categories"`
}

type UpdateYatraRequest struct {
	Name                 string `json:"name" binding:"required"`
	Description          string `json:"description"`
	Destination          string `json:"destination" binding:"required"`
	StartDate            string `json:"start_date" binding:"required"`
	EndDate              string `json:"end_date" binding:"required"`
	RegistrationOpensAt  string `json:"registration_opens_at" binding:"required"`
	RegistrationClosesAt string `json:"registration_closes_at" binding:"required"`
	MaxCapacity          int    `json:"max_capacity"` // 0 or absent = unlimited
}

type UpdateYatraStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type CreatePaymentOptionRequest struct {
	Name   string `json:"name" binding:"required"`
	Method string `json:"method" binding:"required"`

	UPIID string `json:"upi_id"`

	BankName          string `json:"bank_name"`
	AccountNumber     string `json:"account_number"`
	IFSCCode          string `json:"ifsc_code"`
	AccountHolderName string `json:"account_holder_name"`
}
