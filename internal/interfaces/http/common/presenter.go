package common

import (
	"time"

	"github.com/sngm3741/guide-ops/api/internal/billing/application"
	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
)

// VisitResponse は案内記録の API 表現。guidedAt は営業タイムゾーンで返す。
type VisitResponse struct {
	ID              string    `json:"id"`
	StoreID         string    `json:"storeId"`
	GuestCount      int       `json:"guestCount"`
	StaffName       string    `json:"staffName,omitempty"`
	StaffType       string    `json:"staffType"`
	GuidedAt        time.Time `json:"guidedAt"`
	LocalDate       string    `json:"localDate"`
	BusinessDate    string    `json:"businessDate"`
	ConsumedRequest bool      `json:"consumedRequest"`
	RequestID       string    `json:"requestId"`
}

type DailyGroupResponse struct {
	Date       string          `json:"date"`
	GuestCount int             `json:"guestCount"`
	Visits     []VisitResponse `json:"visits"`
}

type InvoiceResponse struct {
	StoreID   string                  `json:"storeId"`
	StoreName string                  `json:"storeName"`
	Year      int                     `json:"year"`
	Month     int                     `json:"month"`
	Terms     domain.ContractTerms    `json:"terms"`
	Aggregate domain.MonthlyAggregate `json:"aggregate"`
	Invoice   domain.Invoice          `json:"invoice"`
}

func NewVisitResponse(visit domain.VisitRecord, resolver *domain.Resolver) VisitResponse {
	return VisitResponse{
		ID:              visit.ID,
		StoreID:         visit.StoreID,
		GuestCount:      visit.GuestCount,
		StaffName:       visit.StaffName,
		StaffType:       string(visit.StaffType),
		GuidedAt:        visit.GuidedAt.In(resolver.Zone()),
		LocalDate:       resolver.LocalDateKeyOf(visit.GuidedAt),
		BusinessDate:    resolver.BusinessDateOf(visit.GuidedAt),
		ConsumedRequest: visit.ConsumedRequest,
		RequestID:       visit.RequestID,
	}
}

func NewVisitResponses(visits []domain.VisitRecord, resolver *domain.Resolver) []VisitResponse {
	items := make([]VisitResponse, 0, len(visits))
	for _, visit := range visits {
		items = append(items, NewVisitResponse(visit, resolver))
	}
	return items
}

func NewDailyGroupResponses(groups []domain.DailyGroup, resolver *domain.Resolver) []DailyGroupResponse {
	items := make([]DailyGroupResponse, 0, len(groups))
	for _, group := range groups {
		items = append(items, DailyGroupResponse{
			Date:       group.Date,
			GuestCount: group.GuestCount,
			Visits:     NewVisitResponses(group.Visits, resolver),
		})
	}
	return items
}

func NewInvoiceResponse(inv application.StoreInvoice) InvoiceResponse {
	return InvoiceResponse{
		StoreID:   inv.StoreID,
		StoreName: inv.StoreName,
		Year:      inv.Aggregate.Year,
		Month:     inv.Aggregate.Month,
		Terms:     inv.Terms,
		Aggregate: inv.Aggregate,
		Invoice:   inv.Invoice,
	}
}

func NewInvoiceResponses(invoices []application.StoreInvoice) []InvoiceResponse {
	items := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		items = append(items, NewInvoiceResponse(inv))
	}
	return items
}
