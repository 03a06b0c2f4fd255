package domain

import (
	"sort"
	"strings"
	"time"
)

// StaffType partitions attribution between internal and contracted staff.
type StaffType string

const (
	StaffTypeStaff    StaffType = "staff"
	StaffTypeOutstaff StaffType = "outstaff"
)

// ParseStaffType normalises the tag. An empty input is rejected.
func ParseStaffType(value string) (StaffType, error) {
	switch StaffType(strings.ToLower(strings.TrimSpace(value))) {
	case StaffTypeStaff:
		return StaffTypeStaff, nil
	case StaffTypeOutstaff:
		return StaffTypeOutstaff, nil
	}
	return "", invalidField("staffType", "must be staff or outstaff")
}

// VisitRecord is one guidance event. Records are immutable; they are only ever deleted.
type VisitRecord struct {
	ID              string
	StoreID         string
	GuestCount      int
	StaffName       string
	StaffType       StaffType
	GuidedAt        time.Time
	ConsumedRequest bool
	RequestID       string
	CreatedAt       time.Time
}

// NewVisitRecord validates the submitted fields and normalises GuidedAt to UTC.
func NewVisitRecord(storeID string, guestCount int, staffName string, staffType StaffType, guidedAt time.Time) (VisitRecord, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return VisitRecord{}, invalidField("storeId", "is required")
	}
	if guestCount <= 0 {
		return VisitRecord{}, invalidField("guestCount", "must be > 0")
	}
	if _, err := ParseStaffType(string(staffType)); err != nil {
		return VisitRecord{}, err
	}
	if guidedAt.IsZero() {
		return VisitRecord{}, invalidField("guidedAt", "is required")
	}
	return VisitRecord{
		StoreID:    storeID,
		GuestCount: guestCount,
		StaffName:  strings.TrimSpace(staffName),
		StaffType:  staffType,
		GuidedAt:   guidedAt.UTC(),
	}, nil
}

// MonthlyAggregate is the guest total of one store in one calendar month.
type MonthlyAggregate struct {
	StoreID            string `json:"storeId"`
	Year               int    `json:"year"`
	Month              int    `json:"month"`
	GuestCount         int    `json:"guestCount"`
	StaffGuestCount    int    `json:"staffGuestCount"`
	OutstaffGuestCount int    `json:"outstaffGuestCount"`
	VisitCount         int    `json:"visitCount"`
}

func (a *MonthlyAggregate) add(v VisitRecord) {
	a.GuestCount += v.GuestCount
	a.VisitCount++
	switch v.StaffType {
	case StaffTypeStaff:
		a.StaffGuestCount += v.GuestCount
	case StaffTypeOutstaff:
		a.OutstaffGuestCount += v.GuestCount
	}
}

// AggregateMonthly sums visits that the caller already selected for (year, month).
func AggregateMonthly(storeID string, year, month int, visits []VisitRecord) MonthlyAggregate {
	agg := MonthlyAggregate{StoreID: storeID, Year: year, Month: month}
	for _, v := range visits {
		if storeID != "" && v.StoreID != storeID {
			continue
		}
		agg.add(v)
	}
	return agg
}

// AggregateByMonth buckets visits by the calendar month of their local date, ascending.
func AggregateByMonth(storeID string, visits []VisitRecord, r *Resolver) []MonthlyAggregate {
	buckets := make(map[[2]int]*MonthlyAggregate)
	for _, v := range visits {
		if storeID != "" && v.StoreID != storeID {
			continue
		}
		local := v.GuidedAt.In(r.Zone())
		key := [2]int{local.Year(), int(local.Month())}
		agg, ok := buckets[key]
		if !ok {
			agg = &MonthlyAggregate{StoreID: storeID, Year: key[0], Month: key[1]}
			buckets[key] = agg
		}
		agg.add(v)
	}

	result := make([]MonthlyAggregate, 0, len(buckets))
	for _, agg := range buckets {
		result = append(result, *agg)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year < result[j].Year
		}
		return result[i].Month < result[j].Month
	})
	return result
}

// DailyGroup is one civil-date bucket for day-by-day display.
type DailyGroup struct {
	Date       string
	GuestCount int
	Visits     []VisitRecord
}

// GroupByLocalDate buckets visits by civil date (plain midnight, not the business day), newest first.
// Within a day, visits keep newest-first order.
func GroupByLocalDate(visits []VisitRecord, r *Resolver) []DailyGroup {
	index := make(map[string]int)
	groups := make([]DailyGroup, 0)
	for _, v := range visits {
		key := r.LocalDateKeyOf(v.GuidedAt)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DailyGroup{Date: key})
		}
		groups[i].GuestCount += v.GuestCount
		groups[i].Visits = append(groups[i].Visits, v)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Date > groups[j].Date })
	for i := range groups {
		sort.SliceStable(groups[i].Visits, func(a, b int) bool {
			return groups[i].Visits[a].GuidedAt.After(groups[i].Visits[b].GuidedAt)
		})
	}
	return groups
}

// FilterByStaffType keeps visits attributed to staffType. An empty type keeps everything.
func FilterByStaffType(visits []VisitRecord, staffType StaffType) []VisitRecord {
	if staffType == "" {
		return visits
	}
	result := make([]VisitRecord, 0, len(visits))
	for _, v := range visits {
		if v.StaffType == staffType {
			result = append(result, v)
		}
	}
	return result
}
