package registration

import (
	"errors"
	"testing"
	"time"

	"github.com/krishnadas018/yatra-management-backend/internal/yatra"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestAgeInYears(t *testing.T) {
	at := date(2026, 6, 15)

	cases := []struct {
		name string
		dob  time.Time
		want int
	}{
		{"birthday already passed this year", date(2020, 3, 1), 6},
		{"birthday later this year", date(2020, 9, 1), 5},
		{"birthday today", date(2021, 6, 15), 5},
		{"birthday tomorrow", date(2021, 6, 16), 4},
		{"born this year", date(2026, 1, 1), 0},
		{"dob after at clamps to zero", date(2027, 1, 1), 0},
	}

	for _, tc := range cases {
		if got := AgeInYears(tc.dob, at); got != tc.want {
			t.Errorf("%s: AgeInYears(%v) = %d, want %d", tc.name, tc.dob, got, tc.want)
		}
	}
}

func testCategories() map[uint]yatra.RoomCategory {
	return map[uint]yatra.RoomCategory{
		1: {ID: 1, YatraID: 1, Name: "Dormitory", PricePerPerson: 8000, IsActive: true},
		2: {ID: 2, YatraID: 1, Name: "Double Room", PricePerPerson: 15000, IsActive: true},
		3: {ID: 3, YatraID: 1, Name: "Closed Wing", PricePerPerson: 12000, IsActive: false},
	}
}

func TestBuildMembers_UnderFiveTravelsFree(t *testing.T) {
	at := date(2026, 4, 1)
	inputs := []MemberInput{
		{FullName: "Radha Sharma", DateOfBirth: "1985-02-10", RoomCategoryID: 1, IsPrimaryRegistrant: true},
		{FullName: "Gopal Sharma", DateOfBirth: "2023-08-20", RoomCategoryID: 1},
	}

	members, total, err := BuildMembers(inputs, testCategories(), 42, at)
	if err != nil {
		t.Fatalf("BuildMembers failed: %v", err)
	}

	if total != 8000 {
		t.Errorf("expected total 8000, got %d", total)
	}
	if members[0].PriceCharged != 8000 || members[0].IsFree {
		t.Errorf("adult should pay full price, got %d (free=%v)", members[0].PriceCharged, members[0].IsFree)
	}
	if members[1].PriceCharged != 0 || !members[1].IsFree {
		t.Errorf("child under 5 should be free, got %d (free=%v)", members[1].PriceCharged, members[1].IsFree)
	}
	if members[0].DevoteeID == nil || *members[0].DevoteeID != 42 {
		t.Errorf("primary registrant should carry the caller's devotee ID")
	}
	if members[1].DevoteeID != nil {
		t.Errorf("non-primary member should not carry a devotee ID")
	}
}

func TestBuildMembers_MixedCategories(t *testing.T) {
	at := date(2026, 4, 1)
	inputs := []MemberInput{
		{FullName: "Arjun Iyer", DateOfBirth: "1990-01-15", RoomCategoryID: 2, IsPrimaryRegistrant: true},
		{FullName: "Lakshmi Iyer", DateOfBirth: "1992-05-20", RoomCategoryID: 2},
		{FullName: "Ananya Iyer", DateOfBirth: "2015-11-02", RoomCategoryID: 1},
	}

	members, total, err := BuildMembers(inputs, testCategories(), 7, at)
	if err != nil {
		t.Fatalf("BuildMembers failed: %v", err)
	}
	if total != 15000+15000+8000 {
		t.Errorf("expected total 38000, got %d", total)
	}
	if members[2].RoomCategoryName != "Dormitory" {
		t.Errorf("expected category name snapshot, got %q", members[2].RoomCategoryName)
	}
}

func TestBuildMembers_Validation(t *testing.T) {
	at := date(2026, 4, 1)
	cats := testCategories()

	cases := []struct {
		name   string
		inputs []MemberInput
	}{
		{"empty member list", nil},
		{"no primary registrant", []MemberInput{
			{FullName: "A", DateOfBirth: "1990-01-01", RoomCategoryID: 1},
		}},
		{"two primary registrants", []MemberInput{
			{FullName: "A", DateOfBirth: "1990-01-01", RoomCategoryID: 1, IsPrimaryRegistrant: true},
			{FullName: "B", DateOfBirth: "1991-01-01", RoomCategoryID: 1, IsPrimaryRegistrant: true},
		}},
		{"unknown category", []MemberInput{
			{FullName: "A", DateOfBirth: "1990-01-01", RoomCategoryID: 99, IsPrimaryRegistrant: true},
		}},
		{"inactive category", []MemberInput{
			{FullName: "A", DateOfBirth: "1990-01-01", RoomCategoryID: 3, IsPrimaryRegistrant: true},
		}},
		{"bad date format", []MemberInput{
			{FullName: "A", DateOfBirth: "01/01/1990", RoomCategoryID: 1, IsPrimaryRegistrant: true},
		}},
		{"future date of birth", []MemberInput{
			{FullName: "A", DateOfBirth: "2030-01-01", RoomCategoryID: 1, IsPrimaryRegistrant: true},
		}},
	}

	for _, tc := range cases {
		_, _, err := BuildMembers(tc.inputs, cats, 1, at)
		if err == nil {
			t.Errorf("%s: expected validation error, got nil", tc.name)
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%s: expected *ValidationError, got %T", tc.name, err)
		}
	}
}

func TestBuildMembers_GroupSizeCap(t *testing.T) {
	at := date(2026, 4, 1)
	inputs := make([]MemberInput, MaxMembersPerRegistration+1)
	for i := range inputs {
		inputs[i] = MemberInput{FullName: "Member", DateOfBirth: "1990-01-01", RoomCategoryID: 1}
	}
	inputs[0].IsPrimaryRegistrant = true

	if _, _, err := BuildMembers(inputs, testCategories(), 1, at); err == nil {
		t.Errorf("expected error for %d members", len(inputs))
	}

	inputs = inputs[:MaxMembersPerRegistration]
	if _, _, err := BuildMembers(inputs, testCategories(), 1, at); err != nil {
		t.Errorf("expected %d members to be accepted, got %v", MaxMembersPerRegistration, err)
	}
}
