package registration

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/krishnadas018/yatra-management-backend/internal/yatra"
)

type Repository interface {
	// CreateGroup books the whole group atomically. The registration number
	// is allocated inside the transaction; the caller fills everything else.
	CreateGroup(ctx context.Context, reg *Registration, now time.Time) error

	// ReplaceMembers swaps a PENDING registration's member list under the
	// same capacity guard used at creation.
	ReplaceMembers(ctx context.Context, regID uint, members []Member, total int, contactEmail, contactPhone string) (*Registration, error)

	// Transition is the single path for every status change. It re-reads the
	// registration under lock, runs validate against the current status,
	// appends the history entry and applies extra stamps via apply.
	Transition(ctx context.Context, regID uint, to string, changedBy uint, remarks string, validate func(current string) error, apply func(*Registration)) (*Registration, error)

	GetByID(ctx context.Context, id uint) (*Registration, error)
	GetByNumber(ctx context.Context, number string) (*Registration, error)
	ListByDevotee(ctx context.Context, devoteeID uint, status string) ([]Registration, error)
	ListByYatra(ctx context.Context, filter RegistrationFilter) ([]Registration, int64, error)
	GetStatusCounts(ctx context.Context, yatraID uint) (StatusCounts, error)
	GetYatraCategories(ctx context.Context, yatraID uint) (map[uint]yatra.RoomCategory, error)
	GetYatra(ctx context.Context, yatraID uint) (*yatra.Yatra, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// lockForUpdate takes a row lock on postgres; sqlite serializes writers on
// its own and rejects FOR UPDATE.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}

// isDuplicateDevoteeViolation tells a hit on the one-live-registration-per-
// devotee index apart from other unique violations, so a registration_number
// collision is never misreported as a duplicate booking.
func isDuplicateDevoteeViolation(err error) bool {
	if !isUniqueViolation(err) {
		return false
	}
	return !strings.Contains(err.Error(), "registration_number")
}

func (r *repository) CreateGroup(ctx context.Context, reg *Registration, now time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the yatra row so capacity, duplicate and number checks are
		// serialized per yatra.
		var y yatra.Yatra
		if err := lockForUpdate(tx).First(&y, reg.YatraID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return validationErrorf("yatra %d does not exist", reg.YatraID)
			}
			return err
		}

		if y.Status != yatra.StatusUpcoming {
			return ErrRegistrationClosed
		}
		// The closing date is inclusive
		closesEnd := y.RegistrationClosesAt.Add(24 * time.Hour)
		if now.Before(y.RegistrationOpensAt) || !now.Before(closesEnd) {
			return ErrRegistrationClosed
		}

		if err := validateTravelWindow(reg.Members, y.StartDate, y.EndDate); err != nil {
			return err
		}

		// One live registration per devotee per yatra
		var dup int64
		if err := tx.Model(&Registration{}).
			Where("yatra_id = ? AND devotee_id = ? AND status IN ?", reg.YatraID, reg.DevoteeID, LiveStatuses).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return ErrDuplicateRegistration
		}

		// Seats held by live registrations
		var booked int64
		if err := tx.Table("registration_members m").
			Joins("JOIN yatra_registrations r ON m.registration_id = r.id").
			Where("r.yatra_id = ? AND r.status IN ? AND r.deleted_at IS NULL", reg.YatraID, LiveStatuses).
			Count(&booked).Error; err != nil {
			return err
		}
		// MaxCapacity 0 means the yatra is unlimited
		if y.MaxCapacity > 0 && booked+int64(len(reg.Members)) > int64(y.MaxCapacity) {
			return ErrCapacityExceeded
		}

		number, err := nextRegistrationNumber(tx, now)
		if err != nil {
			return err
		}
		reg.RegistrationNumber = number

		return tx.Create(reg).Error
	})

	if err != nil && isDuplicateDevoteeViolation(err) {
		// The partial unique index is the backstop for races the row lock
		// cannot see (e.g. a lost lock on an unlocked dialect).
		return ErrDuplicateRegistration
	}
	return err
}

func (r *repository) ReplaceMembers(ctx context.Context, regID uint, members []Member, total int, contactEmail, contactPhone string) (*Registration, error) {
	var result *Registration

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reg Registration
		if err := lockForUpdate(tx).First(&reg, regID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if reg.Status != StatusPending {
			return validationErrorf("registration is no longer editable")
		}

		var y yatra.Yatra
		if err := lockForUpdate(tx).First(&y, reg.YatraID).Error; err != nil {
			return err
		}

		if err := validateTravelWindow(members, y.StartDate, y.EndDate); err != nil {
			return err
		}

		// Capacity check excluding this registration's own seats
		var booked int64
		if err := tx.Table("registration_members m").
			Joins("JOIN yatra_registrations r ON m.registration_id = r.id").
			Where("r.yatra_id = ? AND r.status IN ? AND r.id <> ? AND r.deleted_at IS NULL", reg.YatraID, LiveStatuses, regID).
			Count(&booked).Error; err != nil {
			return err
		}
		if y.MaxCapacity > 0 && booked+int64(len(members)) > int64(y.MaxCapacity) {
			return ErrCapacityExceeded
		}

		if err := tx.Where("registration_id = ?", regID).Delete(&Member{}).Error; err != nil {
			return err
		}
		for i := range members {
			members[i].RegistrationID = regID
		}
		if err := tx.Create(&members).Error; err != nil {
			return err
		}

		reg.Members = members
		reg.TotalAmount = total
		reg.ContactEmail = contactEmail
		reg.ContactPhone = contactPhone
		if err := tx.Omit("Members").Save(&reg).Error; err != nil {
			return err
		}

		result = &reg
		return nil
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *repository) Transition(ctx context.Context, regID uint, to string, changedBy uint, remarks string, validate func(current string) error, apply func(*Registration)) (*Registration, error) {
	var result *Registration

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reg Registration
		if err := lockForUpdate(tx).Preload("Members").First(&reg, regID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := validate(reg.Status); err != nil {
			return err
		}

		history, err := appendStatusChange(reg.StatusHistory, StatusChange{
			FromStatus: reg.Status,
			ToStatus:   to,
			Timestamp:  time.Now().UTC(),
			ChangedBy:  changedBy,
			Remarks:    remarks,
		})
		if err != nil {
			return err
		}
		reg.StatusHistory = history
		reg.Status = to

		if apply != nil {
			apply(&reg)
		}

		if err := tx.Omit("Members").Save(&reg).Error; err != nil {
			return err
		}

		result = &reg
		return nil
	})

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Registration, error) {
	var reg Registration
	err := r.db.WithContext(ctx).Preload("Members").First(&reg, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Registration, error) {
	var reg Registration
	err := r.db.WithContext(ctx).
		Preload("Members").
		Where("registration_number = ?", number).
		First(&reg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &reg, nil
}

func (r *repository) ListByDevotee(ctx context.Context, devoteeID uint, status string) ([]Registration, error) {
	var regs []Registration
	query := r.db.WithContext(ctx).
		Preload("Members").
		Where("devotee_id = ?", devoteeID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Order("created_at DESC").Find(&regs).Error
	return regs, err
}

func (r *repository) ListByYatra(ctx context.Context, filter RegistrationFilter) ([]Registration, int64, error) {
	var regs []Registration
	var total int64

	query := r.db.WithContext(ctx).Model(&Registration{})

	if filter.YatraID != nil {
		query = query.Where("yatra_id = ?", *filter.YatraID)
	}
	if filter.DevoteeID != nil {
		query = query.Where("devotee_id = ?", *filter.DevoteeID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("registration_number LIKE ? OR contact_email LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	err := query.Preload("Members").
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&regs).Error
	if err != nil {
		return nil, 0, err
	}

	return regs, total, nil
}

func (r *repository) GetStatusCounts(ctx context.Context, yatraID uint) (StatusCounts, error) {
	var counts StatusCounts

	rows := []struct {
		Status string
		Count  int64
	}{}
	err := r.db.WithContext(ctx).
		Model(&Registration{}).
		Select("status, COUNT(*) as count").
		Where("yatra_id = ?", yatraID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return counts, err
	}

	for _, row := range rows {
		counts.Total += row.Count
		switch row.Status {
		case StatusPending:
			counts.Pending = row.Count
		case StatusPaymentSubmitted:
			counts.PaymentSubmitted = row.Count
		case StatusPaymentVerified:
			counts.PaymentVerified = row.Count
		case StatusConfirmed:
			counts.Confirmed = row.Count
		case StatusCompleted:
			counts.Completed = row.Count
		case StatusCancelledByUser, StatusCancelledByAdmin:
			counts.Cancelled += row.Count
		}
	}

	return counts, nil
}

func (r *repository) GetYatraCategories(ctx context.Context, yatraID uint) (map[uint]yatra.RoomCategory, error) {
	var categories []yatra.RoomCategory
	err := r.db.WithContext(ctx).
		Where("yatra_id = ?", yatraID).
		Find(&categories).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]yatra.RoomCategory, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}
	return byID, nil
}

func (r *repository) GetYatra(ctx context.Context, yatraID uint) (*yatra.Yatra, error) {
	var y yatra.Yatra
	if err := r.db.WithContext(ctx).First(&y, yatraID).Error; err != nil {
		return nil, err
	}
	return &y, nil
}
