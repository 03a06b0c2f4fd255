package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func visitAt(storeID string, guests int, staffType StaffType, at time.Time) VisitRecord {
	return VisitRecord{StoreID: storeID, GuestCount: guests, StaffType: staffType, GuidedAt: at.UTC()}
}

func TestNewVisitRecord(t *testing.T) {
	at := time.Date(2025, 7, 31, 23, 0, 0, 0, JST)

	v, err := NewVisitRecord(" store-1 ", 2, " 山田 ", StaffTypeOutstaff, at)
	require.NoError(t, err)
	assert.Equal(t, "store-1", v.StoreID)
	assert.Equal(t, "山田", v.StaffName)
	assert.Equal(t, time.UTC, v.GuidedAt.Location())
	assert.True(t, v.GuidedAt.Equal(at))

	cases := []struct {
		name      string
		storeID   string
		guests    int
		staffType StaffType
		at        time.Time
		field     string
	}{
		{"missing store", "", 1, StaffTypeStaff, at, "storeId"},
		{"zero guests", "s", 0, StaffTypeStaff, at, "guestCount"},
		{"bad staff type", "s", 1, StaffType("guest"), at, "staffType"},
		{"missing time", "s", 1, StaffTypeStaff, time.Time{}, "guidedAt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewVisitRecord(tc.storeID, tc.guests, "", tc.staffType, tc.at)
			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tc.field, validationErr.Field)
		})
	}
}

func TestParseStaffType(t *testing.T) {
	got, err := ParseStaffType(" OutStaff ")
	require.NoError(t, err)
	assert.Equal(t, StaffTypeOutstaff, got)

	_, err = ParseStaffType("")
	assert.Error(t, err)
}

func TestAggregateMonthly(t *testing.T) {
	visits := []VisitRecord{
		visitAt("a", 3, StaffTypeStaff, time.Date(2025, 7, 1, 20, 0, 0, 0, JST)),
		visitAt("a", 2, StaffTypeOutstaff, time.Date(2025, 7, 2, 20, 0, 0, 0, JST)),
		visitAt("b", 7, StaffTypeStaff, time.Date(2025, 7, 2, 21, 0, 0, 0, JST)),
	}

	got := AggregateMonthly("a", 2025, 7, visits)
	assert.Equal(t, MonthlyAggregate{
		StoreID:            "a",
		Year:               2025,
		Month:              7,
		GuestCount:         5,
		StaffGuestCount:    3,
		OutstaffGuestCount: 2,
		VisitCount:         2,
	}, got)
}

func TestAggregateByMonth_UsesCalendarMonth(t *testing.T) {
	r := DefaultResolver()
	visits := []VisitRecord{
		visitAt("a", 4, StaffTypeStaff, time.Date(2025, 8, 1, 0, 30, 0, 0, JST)),
		visitAt("a", 1, StaffTypeStaff, time.Date(2025, 7, 31, 23, 59, 0, 0, JST)),
		visitAt("a", 2, StaffTypeOutstaff, time.Date(2025, 6, 15, 12, 0, 0, 0, JST)),
		visitAt("b", 9, StaffTypeStaff, time.Date(2025, 7, 10, 12, 0, 0, 0, JST)),
	}

	got := AggregateByMonth("a", visits, r)
	require.Len(t, got, 3)
	assert.Equal(t, 6, got[0].Month)
	assert.Equal(t, 2, got[0].OutstaffGuestCount)
	assert.Equal(t, 7, got[1].Month)
	assert.Equal(t, 1, got[1].GuestCount)
	// 0:30 JST on Aug 1 belongs to August for monthly totals even though it is July's business day
	assert.Equal(t, 8, got[2].Month)
	assert.Equal(t, 4, got[2].GuestCount)
}

func TestGroupByLocalDate(t *testing.T) {
	r := DefaultResolver()
	early := time.Date(2025, 8, 1, 0, 30, 0, 0, JST)
	late := time.Date(2025, 7, 31, 22, 0, 0, 0, JST)
	later := time.Date(2025, 7, 31, 23, 0, 0, 0, JST)

	groups := GroupByLocalDate([]VisitRecord{
		visitAt("a", 1, StaffTypeStaff, late),
		visitAt("a", 2, StaffTypeStaff, early),
		visitAt("b", 3, StaffTypeOutstaff, later),
	}, r)

	require.Len(t, groups, 2)
	assert.Equal(t, "2025-08-01", groups[0].Date)
	assert.Equal(t, 2, groups[0].GuestCount)
	assert.Equal(t, "2025-07-31", groups[1].Date)
	assert.Equal(t, 4, groups[1].GuestCount)
	require.Len(t, groups[1].Visits, 2)
	assert.True(t, groups[1].Visits[0].GuidedAt.Equal(later), "newest first within a day")
}

func TestFilterByStaffType(t *testing.T) {
	at := time.Date(2025, 7, 1, 20, 0, 0, 0, JST)
	visits := []VisitRecord{
		visitAt("a", 1, StaffTypeStaff, at),
		visitAt("a", 2, StaffTypeOutstaff, at),
	}

	assert.Len(t, FilterByStaffType(visits, ""), 2)
	got := FilterByStaffType(visits, StaffTypeOutstaff)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].GuestCount)
}
