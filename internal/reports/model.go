package reports

import (
	"time"
)

// Report types
const (
	ReportTypeRegistrations = "registrations"
	ReportTypeMembers       = "members"
	ReportTypeCollections   = "collections"
)

// Export formats
const (
	FormatCSV   = "csv"
	FormatExcel = "excel"
	FormatPDF   = "pdf"
)

// RegistrationReportRow is one registration in the yatra registration report
type RegistrationReportRow struct {
	ID                 uint      `json:"id"`
	RegistrationNumber string    `json:"registration_number"`
	DevoteeName        string    `json:"devotee_name"`
	ContactEmail       string    `json:"contact_email"`
	ContactPhone       string    `json:"contact_phone"`
	Status             string    `json:"status"`
	MemberCount        int       `json:"member_count"`
	TotalAmount        int       `json:"total_amount"`
	CreatedAt          time.Time `json:"created_at"`
}

// MemberReportRow is one pilgrim in the member manifest
type MemberReportRow struct {
	RegistrationNumber  string    `json:"registration_number"`
	FullName            string    `json:"full_name"`
	DateOfBirth         time.Time `json:"date_of_birth"`
	Gender              string    `json:"gender"`
	RoomCategory        string    `json:"room_category"`
	PriceCharged        int       `json:"price_charged"`
	IsFree              bool      `json:"is_free"`
	DietaryRestrictions string    `json:"dietary_restrictions"`
	MedicalNotes        string    `json:"medical_notes"`
	Status              string    `json:"status"`
}

// CollectionReportRow aggregates amounts per room category
type CollectionReportRow struct {
	RoomCategory string `json:"room_category"`
	Members      int64  `json:"members"`
	FreeMembers  int64  `json:"free_members"`
	Amount       int64  `json:"amount"` // rupees, verified and confirmed only
}

// ReportData carries whichever dataset the requested report needs
type ReportData struct {
	YatraName     string
	Registrations []RegistrationReportRow
	Members       []MemberReportRow
	Collections   []CollectionReportRow
}

// ReportFilter narrows the report queries
type ReportFilter struct {
	YatraID  uint
	Status   string
	FromDate *time.Time
	ToDate   *time.Time
}

// ReceiptData is everything the registration receipt PDF needs
type ReceiptData struct {
	RegistrationNumber string
	YatraName          string
	Destination        string
	StartDate          time.Time
	EndDate            time.Time
	DevoteeName        string
	ContactEmail       string
	Status             string
	TotalAmount        int
	PaymentReference   string
	ConfirmedAt        *time.Time
	Members            []ReceiptMember
}

type ReceiptMember struct {
	FullName     string
	RoomCategory string
	PriceCharged int
	IsFree       bool
}
