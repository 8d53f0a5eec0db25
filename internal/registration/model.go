package registration

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ======================
// 🔹 Registration Statuses
// ======================

const (
	StatusPending          = "PENDING"
	StatusPaymentSubmitted = "PAYMENT_SUBMITTED"
	StatusPaymentVerified  = "PAYMENT_VERIFIED"
	StatusConfirmed        = "CONFIRMED"
	StatusCompleted        = "COMPLETED"
	StatusCancelledByUser  = "CANCELLED_BY_USER"
	StatusCancelledByAdmin = "CANCELLED_BY_ADMIN"
)

// LiveStatuses are the statuses under which a registration holds seats
// and blocks a second booking by the same devotee on the same yatra.
var LiveStatuses = []string{StatusPending, StatusPaymentSubmitted, StatusPaymentVerified, StatusConfirmed}

// adminTransitions is the full transition table for admin status updates.
// User cancellation is a separate operation and is not listed here.
var adminTransitions = map[string]map[string]bool{
	StatusPending: {
		StatusPaymentSubmitted: true,
		StatusCancelledByUser:  true,
		StatusCancelledByAdmin: true,
	},
	StatusPaymentSubmitted: {
		StatusPaymentVerified:  true,
		StatusPending:          true, // reject payment proof, back to PENDING
		StatusCancelledByAdmin: true,
	},
	StatusPaymentVerified: {
		StatusConfirmed:        true,
		StatusCancelledByAdmin: true,
	},
	StatusConfirmed: {
		StatusCompleted:        true,
		StatusCancelledByAdmin: true,
	},
	// COMPLETED, CANCELLED_BY_USER, CANCELLED_BY_ADMIN are terminal
}

// CanTransition reports whether an admin may move a registration from one status to another.
func CanTransition(from, to string) bool {
	return adminTransitions[from][to]
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(status string) bool {
	return len(adminTransitions[status]) == 0
}

// userCancellable are the statuses a devotee may cancel out of themselves.
var userCancellable = map[string]bool{
	StatusPending:          true,
	StatusPaymentSubmitted: true,
}

// MaxMembersPerRegistration caps the size of a single group booking.
const MaxMembersPerRegistration = 20

// ======================
// 🔹 Registration Model
// ======================

type Registration struct {
	ID                 uint   `gorm:"primaryKey" json:"id"`
	RegistrationNumber string `gorm:"type:varchar(20);not null;uniqueIndex" json:"registration_number"`
	YatraID            uint   `gorm:"not null;index" json:"yatra_id"`
	DevoteeID          uint   `gorm:"not null;index" json:"devotee_id"`

	Status      string `gorm:"type:varchar(30);not null;default:'PENDING'" json:"status"`
	TotalAmount int    `gorm:"not null" json:"total_amount"` // rupees, whole units

	// Append-only log of every status change, oldest first
	StatusHistory datatypes.JSON `gorm:"type:jsonb" json:"status_history"`

	ContactEmail string `gorm:"type:varchar(255);not null" json:"contact_email"`
	ContactPhone string `gorm:"type:varchar(15)" json:"contact_phone"`

	// Payment proof captured on upload
	PaymentReference  *string    `gorm:"type:varchar(100)" json:"payment_reference,omitempty"`
	PaymentMethod     *string    `gorm:"type:varchar(30)" json:"payment_method,omitempty"`
	PaymentScreenshot *string    `gorm:"type:varchar(255)" json:"payment_screenshot,omitempty"`
	SubmittedAt       *time.Time `json:"submitted_at,omitempty"`

	// Admin stamps
	ReviewedBy  *uint      `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	ConfirmedBy *uint      `json:"confirmed_by,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`

	Members []Member `gorm:"foreignKey:RegistrationID;constraint:OnDelete:CASCADE" json:"members"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Registration) TableName() string {
	return "yatra_registrations"
}

// ======================
// 🔹 Member Model
// ======================

type Member struct {
	ID             uint  `gorm:"primaryKey" json:"id"`
	RegistrationID uint  `gorm:"not null;index" json:"registration_id"`
	DevoteeID      *uint `gorm:"index" json:"devotee_id,omitempty"` // set only for the primary registrant

	FullName    string    `gorm:"type:varchar(255);not null" json:"full_name"`
	DateOfBirth time.Time `gorm:"not null" json:"date_of_birth"`
	Gender      string    `gorm:"type:varchar(10)" json:"gender"`

	RoomCategoryID   uint   `gorm:"not null;index" json:"room_category_id"`
	RoomCategoryName string `gorm:"type:varchar(100)" json:"room_category_name"` // snapshot at booking time

	PriceCharged        int  `gorm:"not null" json:"price_charged"` // rupees
	IsFree              bool `gorm:"default:false" json:"is_free"`
	IsPrimaryRegistrant bool `gorm:"default:false" json:"is_primary_registrant"`

	ArrivalDate   *time.Time `json:"arrival_date,omitempty"`
	DepartureDate *time.Time `json:"departure_date,omitempty"`

	DietaryRestrictions string `gorm:"type:text" json:"dietary_restrictions,omitempty"`
	MedicalNotes        string `gorm:"type:text" json:"medical_notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Member) TableName() string {
	return "registration_members"
}

// StatusChange is one entry in a registration's status history.
type StatusChange struct {
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Timestamp  time.Time `json:"timestamp"`
	ChangedBy  uint      `json:"changed_by"`
	Remarks    string    `json:"remarks,omitempty"`
}

// ParseStatusHistory decodes a registration's history column, oldest first.
func ParseStatusHistory(history datatypes.JSON) ([]StatusChange, error) {
	if len(history) == 0 {
		return nil, nil
	}
	var changes []StatusChange
	if err := json.Unmarshal(history, &changes); err != nil {
		return nil, err
	}
	return changes, nil
}

func appendStatusChange(history datatypes.JSON, change StatusChange) (datatypes.JSON, error) {
	changes, err := ParseStatusHistory(history)
	if err != nil {
		return nil, err
	}
	changes = append(changes, change)
	raw, err := json.Marshal(changes)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// ======================
// 🔹 Request DTOs
// ======================

type MemberInput struct {
	FullName            string `json:"full_name" binding:"required"`
	DateOfBirth         string `json:"date_of_birth" binding:"required"` // "2006-01-02"
	Gender              string `json:"gender"`
	RoomCategoryID      uint   `json:"room_category_id" binding:"required"`
	IsPrimaryRegistrant bool   `json:"is_primary_registrant"`
	ArrivalDate         string `json:"arrival_date,omitempty"`
	DepartureDate       string `json:"departure_date,omitempty"`
	DietaryRestrictions string `json:"dietary_restrictions,omitempty"`
	MedicalNotes        string `json:"medical_notes,omitempty"`
}

type CreateRegistrationRequest struct {
	YatraID      uint          `json:"yatra_id" binding:"required"`
	ContactEmail string        `json:"contact_email" binding:"required,email"`
	ContactPhone string        `json:"contact_phone"`
	Members      []MemberInput `json:"members" binding:"required"`
}

type UpdateRegistrationRequest struct {
	ContactEmail string        `json:"contact_email" binding:"required,email"`
	ContactPhone string        `json:"contact_phone"`
	Members      []MemberInput `json:"members" binding:"required"`
}

type UpdateStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Remarks string `json:"remarks"`
}

type CancelRegistrationRequest struct {
	Remarks string `json:"remarks"`
}

type RegistrationFilter struct {
	YatraID   *uint  `json:"yatra_id"`
	DevoteeID *uint  `json:"devotee_id"`
	Status    string `json:"status"`
	Search    string `json:"search"` // registration number or contact email
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}

// StatusCounts feeds the admin dashboard cards for a yatra.
type StatusCounts struct {
	Total            int64 `json:"total"`
	Pending          int64 `json:"pending"`
	PaymentSubmitted int64 `json:"payment_submitted"`
	PaymentVerified  int64 `json:"payment_verified"`
	Confirmed        int64 `json:"confirmed"`
	Completed        int64 `json:"completed"`
	Cancelled        int64 `json:"cancelled"`
}
