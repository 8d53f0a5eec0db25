package registration

import (
	"time"

	"github.com/krishnadas018/yatra-management-backend/internal/yatra"
)

// Children under this age travel free.
const FreeAgeYears = 5

const dateLayout = "2006-01-02"

// AgeInYears returns the whole years completed between dob and at.
func AgeInYears(dob, at time.Time) int {
	years := at.Year() - dob.Year()
	// Birthday not reached yet this year
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		years = 0
	}
	return years
}

// BuildMembers validates member inputs, prices each member against the
// yatra's room categories and returns the priced members plus the group
// total. Ages are computed as of `at`; members under FreeAgeYears are
// charged nothing.
func BuildMembers(inputs []MemberInput, categories map[uint]yatra.RoomCategory, callerID uint, at time.Time) ([]Member, int, error) {
	if len(inputs) == 0 {
		return nil, 0, validationErrorf("at least one member is required")
	}
	if len(inputs) > MaxMembersPerRegistration {
		return nil, 0, validationErrorf("a registration may have at most %d members", MaxMembersPerRegistration)
	}

	primaryCount := 0
	members := make([]Member, 0, len(inputs))
	total := 0

	for i, in := range inputs {
		dob, err := time.Parse(dateLayout, in.DateOfBirth)
		if err != nil {
			return nil, 0, validationErrorf("member %d: invalid date_of_birth, use YYYY-MM-DD", i+1)
		}
		if dob.After(at) {
			return nil, 0, validationErrorf("member %d: date_of_birth is in the future", i+1)
		}

		cat, ok := categories[in.RoomCategoryID]
		if !ok {
			return nil, 0, validationErrorf("member %d: room category %d does not belong to this yatra", i+1, in.RoomCategoryID)
		}
		if !cat.IsActive {
			return nil, 0, validationErrorf("member %d: room category %q is no longer available", i+1, cat.Name)
		}

		m := Member{
			FullName:            in.FullName,
			DateOfBirth:         dob,
			Gender:              in.Gender,
			RoomCategoryID:      cat.ID,
			RoomCategoryName:    cat.Name,
			IsPrimaryRegistrant: in.IsPrimaryRegistrant,
			DietaryRestrictions: in.DietaryRestrictions,
			MedicalNotes:        in.MedicalNotes,
		}

		if in.ArrivalDate != "" {
			arrival, err := time.Parse(dateLayout, in.ArrivalDate)
			if err != nil {
				return nil, 0, validationErrorf("member %d: invalid arrival_date, use YYYY-MM-DD", i+1)
			}
			m.ArrivalDate = &arrival
		}
		if in.DepartureDate != "" {
			departure, err := time.Parse(dateLayout, in.DepartureDate)
			if err != nil {
				return nil, 0, validationErrorf("member %d: invalid departure_date, use YYYY-MM-DD", i+1)
			}
			m.DepartureDate = &departure
		}

		if AgeInYears(dob, at) < FreeAgeYears {
			m.PriceCharged = 0
			m.IsFree = true
		} else {
			m.PriceCharged = cat.PricePerPerson
		}
		total += m.PriceCharged

		if in.IsPrimaryRegistrant {
			primaryCount++
			id := callerID
			m.DevoteeID = &id
		}

		members = append(members, m)
	}

	if primaryCount != 1 {
		return nil, 0, validationErrorf("exactly one member must be marked as the primary registrant")
	}

	return members, total, nil
}

// validateTravelWindow rejects members whose arrival or departure falls
// outside the yatra's date range.
func validateTravelWindow(members []Member, start, end time.Time) error {
	for i, m := range members {
		if m.ArrivalDate != nil {
			if m.ArrivalDate.Before(start) || m.ArrivalDate.After(end) {
				return validationErrorf("member %d: arrival_date is outside the yatra dates", i+1)
			}
		}
		if m.DepartureDate != nil {
			if m.DepartureDate.Before(start) || m.DepartureDate.After(end) {
				return validationErrorf("member %d: departure_date is outside the yatra dates", i+1)
			}
		}
		if m.ArrivalDate != nil && m.DepartureDate != nil && m.DepartureDate.Before(*m.ArrivalDate) {
			return validationErrorf("member %d: departure_date is before arrival_date", i+1)
		}
	}
	return nil
}
