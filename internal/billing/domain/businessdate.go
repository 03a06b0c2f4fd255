package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBusinessDayStartHour は営業日の切り替わり時刻 (ローカル 1:00)。
	DefaultBusinessDayStartHour = 1

	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// JST is the fixed civil zone of the business. It never observes daylight saving.
var JST = time.FixedZone("JST", 9*60*60)

// DateRange is the half-open instant interval [Start, End).
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Resolver は固定タイムゾーン上の暦日・暦月を UTC の範囲に変換する。
// ホストのローカルタイムゾーンには一切依存しない。
type Resolver struct {
	zone       *time.Location
	offsetHour int
}

// NewResolver builds a resolver for zone whose business days start at offsetHour.
func NewResolver(zone *time.Location, offsetHour int) (*Resolver, error) {
	if zone == nil {
		return nil, fmt.Errorf("resolver zone is required")
	}
	if offsetHour < 0 || offsetHour > 23 {
		return nil, invalidDate(strconv.Itoa(offsetHour), "business day start hour must be between 0 and 23")
	}
	return &Resolver{zone: zone, offsetHour: offsetHour}, nil
}

// DefaultResolver returns the JST resolver with the 1:00 rollover.
func DefaultResolver() *Resolver {
	return &Resolver{zone: JST, offsetHour: DefaultBusinessDayStartHour}
}

// Zone returns the civil zone used for every conversion.
func (r *Resolver) Zone() *time.Location {
	return r.zone
}

// OffsetHour returns the business day start hour.
func (r *Resolver) OffsetHour() int {
	return r.offsetHour
}

// ResolveDayRange returns the business day that starts on localDate (YYYY-MM-DD).
func (r *Resolver) ResolveDayRange(localDate string) (DateRange, error) {
	return r.ResolveDayRangeWithOffset(localDate, r.offsetHour)
}

// ResolveDayRangeWithOffset is ResolveDayRange with an explicit rollover hour.
func (r *Resolver) ResolveDayRangeWithOffset(localDate string, offsetHour int) (DateRange, error) {
	if offsetHour < 0 || offsetHour > 23 {
		return DateRange{}, invalidDate(strconv.Itoa(offsetHour), "business day start hour must be between 0 and 23")
	}
	year, month, day, err := parseCivilDate(localDate)
	if err != nil {
		return DateRange{}, err
	}
	start := time.Date(year, time.Month(month), day, offsetHour, 0, 0, 0, r.zone)
	end := time.Date(year, time.Month(month), day+1, offsetHour, 0, 0, 0, r.zone)
	return DateRange{Start: start.UTC(), End: end.UTC()}, nil
}

// ResolveMonthRange returns the calendar month (1-indexed) from local midnight of the 1st
// to local midnight of the 1st of the following month. Months are not business-day shifted.
func (r *Resolver) ResolveMonthRange(year, month int) (DateRange, error) {
	if year < 1 || year > 9999 {
		return DateRange{}, invalidDate(fmt.Sprintf("%d-%02d", year, month), "year must be between 1 and 9999")
	}
	if month < 1 || month > 12 {
		return DateRange{}, invalidDate(fmt.Sprintf("%d-%02d", year, month), "month must be between 1 and 12")
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, r.zone)
	end := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, r.zone)
	return DateRange{Start: start.UTC(), End: end.UTC()}, nil
}

// LocalDateKeyOf returns the civil date (YYYY-MM-DD) of t with plain midnight boundaries.
// It is the display bucket, not the business day.
func (r *Resolver) LocalDateKeyOf(t time.Time) string {
	return t.In(r.zone).Format(dateLayout)
}

// BusinessDateOf returns the business day (YYYY-MM-DD) that t counts toward.
func (r *Resolver) BusinessDateOf(t time.Time) string {
	return t.In(r.zone).Add(-time.Duration(r.offsetHour) * time.Hour).Format(dateLayout)
}

// ParseMonth parses YYYY-MM into a 1-indexed (year, month) pair.
func ParseMonth(value string) (int, int, error) {
	trimmed := strings.TrimSpace(value)
	t, err := time.Parse(monthLayout, trimmed)
	if err != nil {
		return 0, 0, invalidDate(value, "expected YYYY-MM")
	}
	return t.Year(), int(t.Month()), nil
}

// parseCivilDate は YYYY-MM-DD を検証付きで分解する。存在しない日付は丸めずにエラーにする。
func parseCivilDate(value string) (int, int, int, error) {
	trimmed := strings.TrimSpace(value)
	parts := strings.Split(trimmed, "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 || !allDigits(parts...) {
		return 0, 0, 0, invalidDate(value, "expected YYYY-MM-DD")
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1 {
		return 0, 0, 0, invalidDate(value, "invalid year")
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, 0, invalidDate(value, "month must be between 1 and 12")
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil || day < 1 || day > daysIn(year, month) {
		return 0, 0, 0, invalidDate(value, "day does not exist in month")
	}
	return year, month, day, nil
}

func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func allDigits(values ...string) bool {
	for _, v := range values {
		for _, c := range v {
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}
