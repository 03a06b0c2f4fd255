package common

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
)

// MonthQuery は ?month=YYYY-MM を読む。未指定なら now の属する暦月。
func MonthQuery(r *http.Request, resolver *domain.Resolver, now time.Time) (int, int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("month"))
	if raw == "" {
		local := now.In(resolver.Zone())
		return local.Year(), int(local.Month()), nil
	}
	return domain.ParseMonth(raw)
}

// YearQuery は ?year=YYYY を読む。未指定なら now の年。
func YearQuery(r *http.Request, resolver *domain.Resolver, now time.Time) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("year"))
	if raw == "" {
		return now.In(resolver.Zone()).Year(), nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || len(raw) != 4 || strings.Trim(raw, "0123456789") != "" || year < 1 {
		return 0, &domain.InvalidDateError{Input: raw, Reason: "year must be YYYY"}
	}
	return year, nil
}

// StaffTypeQuery は ?staffType= を読む。空なら絞り込みなし。
func StaffTypeQuery(r *http.Request) (domain.StaffType, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("staffType"))
	if raw == "" {
		return "", nil
	}
	return domain.ParseStaffType(raw)
}
