package registration

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

const registrationNumberPrefix = "YTR"

// Advisory lock namespace for registration number allocation.
const registrationSeqLockKey = 7451

// FormatRegistrationNumber renders a number in the YTR-YYYY-NNNN shape.
func FormatRegistrationNumber(year int, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", registrationNumberPrefix, year, seq)
}

// nextRegistrationNumber allocates the next sequence for the year by counting
// existing numbers with the year's prefix. Must run inside the creation
// transaction. The sequence runs per year across ALL yatras, so the per-yatra
// row lock is not enough; a year-scoped advisory lock serializes concurrent
// allocations on different yatras. Released automatically at commit/rollback.
func nextRegistrationNumber(tx *gorm.DB, now time.Time) (string, error) {
	year := now.Year()

	if tx.Dialector.Name() == "postgres" {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?, ?)", registrationSeqLockKey, year).Error; err != nil {
			return "", err
		}
	}

	prefix := fmt.Sprintf("%s-%d-%%", registrationNumberPrefix, year)

	var count int64
	err := tx.Unscoped().
		Model(&Registration{}).
		Where("registration_number LIKE ?", prefix).
		Count(&count).Error
	if err != nil {
		return "", err
	}

	return FormatRegistrationNumber(year, int(count)+1), nil
}
