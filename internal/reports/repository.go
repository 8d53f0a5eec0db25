package reports

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Statuses whose payments count toward collections.
var paidStatuses = []string{"PAYMENT_VERIFIED", "CONFIRMED", "COMPLETED"}

type ReportRepository interface {
	GetYatraName(ctx context.Context, yatraID uint) (string, error)
	GetRegistrationRows(ctx context.Context, filter ReportFilter) ([]RegistrationReportRow, error)
	GetMemberRows(ctx context.Context, filter ReportFilter) ([]MemberReportRow, error)
	GetCollectionRows(ctx context.Context, filter ReportFilter) ([]CollectionReportRow, error)
	GetReceiptData(ctx context.Context, registrationNumber string) (*ReceiptData, uint, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) ReportRepository {
	return &repository{db: db}
}

func (r *repository) GetYatraName(ctx context.Context, yatraID uint) (string, error) {
	var name string
	err := r.db.WithContext(ctx).
		Table("yatras").
		Select("name").
		Where("id = ?", yatraID).
		Scan(&name).Error
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", errors.New("yatra not found")
	}
	return name, nil
}

func (r *repository) GetRegistrationRows(ctx context.Context, filter ReportFilter) ([]RegistrationReportRow, error) {
	var rows []RegistrationReportRow

	query := r.db.WithContext(ctx).
		Table("yatra_registrations r").
		Select(`
			r.id, r.registration_number, u.full_name as devotee_name,
			r.contact_email, r.contact_phone, r.status, r.total_amount, r.created_at,
			(SELECT COUNT(*) FROM registration_members m WHERE m.registration_id = r.id) as member_count
		`).
		Joins("LEFT JOIN users u ON r.devotee_id = u.id").
		Where("r.yatra_id = ? AND r.deleted_at IS NULL", filter.YatraID)

	if filter.Status != "" {
		query = query.Where("r.status = ?", filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("r.created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("r.created_at <= ?", *filter.ToDate)
	}

	err := query.Order("r.created_at ASC").Scan(&rows).Error
	return rows, err
}

func (r *repository) GetMemberRows(ctx context.Context, filter ReportFilter) ([]MemberReportRow, error) {
	var rows []MemberReportRow

	query := r.db.WithContext(ctx).
		Table("registration_members m").
		Select(`
			r.registration_number, m.full_name, m.date_of_birth, m.gender,
			m.room_category_name as room_category, m.price_charged, m.is_free,
			m.dietary_restrictions, m.medical_notes, r.status
		`).
		Joins("JOIN yatra_registrations r ON m.registration_id = r.id").
		Where("r.yatra_id = ? AND r.deleted_at IS NULL", filter.YatraID)

	if filter.Status != "" {
		query = query.Where("r.status = ?", filter.Status)
	}

	err := query.Order("r.registration_number ASC, m.id ASC").Scan(&rows).Error
	return rows, err
}

func (r *repository) GetCollectionRows(ctx context.Context, filter ReportFilter) ([]CollectionReportRow, error) {
	var rows []CollectionReportRow

	err := r.db.WithContext(ctx).
		Table("registration_members m").
		Select(`
			m.room_category_name as room_category,
			COUNT(*) as members,
			SUM(CASE WHEN m.is_free THEN 1 ELSE 0 END) as free_members,
			SUM(m.price_charged) as amount
		`).
		Joins("JOIN yatra_registrations r ON m.registration_id = r.id").
		Where("r.yatra_id = ? AND r.status IN ? AND r.deleted_at IS NULL", filter.YatraID, paidStatuses).
		Group("m.room_category_name").
		Order("m.room_category_name ASC").
		Scan(&rows).Error

	return rows, err
}

// GetReceiptData assembles a single registration's receipt. The second return
// value is the owning devotee's user ID for the access check.
func (r *repository) GetReceiptData(ctx context.Context, registrationNumber string) (*ReceiptData, uint, error) {
	var h struct {
		ID                 uint
		RegistrationNumber string
		DevoteeID          uint
		DevoteeName        string
		ContactEmail       string
		Status             string
		TotalAmount        int
		PaymentReference   *string
		ConfirmedAt        *time.Time
		YatraName          string
		Destination        string
		StartDate          time.Time
		EndDate            time.Time
	}

	err := r.db.WithContext(ctx).
		Table("yatra_registrations r").
		Select(`
			r.id, r.registration_number, r.devotee_id, u.full_name as devotee_name,
			r.contact_email, r.status, r.total_amount, r.payment_reference, r.confirmed_at,
			y.name as yatra_name, y.destination, y.start_date, y.end_date
		`).
		Joins("LEFT JOIN users u ON r.devotee_id = u.id").
		Joins("JOIN yatras y ON r.yatra_id = y.id").
		Where("r.registration_number = ? AND r.deleted_at IS NULL", registrationNumber).
		Scan(&h).Error
	if err != nil {
		return nil, 0, err
	}
	if h.RegistrationNumber == "" {
		return nil, 0, errors.New("registration not found")
	}

	receipt := ReceiptData{
		RegistrationNumber: h.RegistrationNumber,
		YatraName:          h.YatraName,
		Destination:        h.Destination,
		StartDate:          h.StartDate,
		EndDate:            h.EndDate,
		DevoteeName:        h.DevoteeName,
		ContactEmail:       h.ContactEmail,
		Status:             h.Status,
		TotalAmount:        h.TotalAmount,
		ConfirmedAt:        h.ConfirmedAt,
	}
	if h.PaymentReference != nil {
		receipt.PaymentReference = *h.PaymentReference
	}

	var members []ReceiptMember
	err = r.db.WithContext(ctx).
		Table("registration_members").
		Select("full_name, room_category_name as room_category, price_charged, is_free").
		Where("registration_id = ?", h.ID).
		Order("id ASC").
		Scan(&members).Error
	if err != nil {
		return nil, 0, err
	}
	receipt.Members = members

	return &receipt, h.DevoteeID, nil
}
