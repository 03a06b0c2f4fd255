package application

import (
	"context"
	"errors"
	"time"

	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
)

var (
	ErrStoreNotFound  = errors.New("store not found")
	ErrVisitNotFound  = errors.New("visit not found")
	ErrDuplicateVisit = errors.New("visit already recorded")
)

// StoreRepository is the store-contract collaborator.
type StoreRepository interface {
	Find(ctx context.Context, filter StoreFilter) ([]domain.Store, error)
	FindByID(ctx context.Context, id string) (*domain.Store, error)
	Create(ctx context.Context, store *domain.Store) error
	UpdateTerms(ctx context.Context, id string, terms domain.OptionalTerms) error
	// ConsumeRequest decrements the remaining request counter when it is positive
	// and reports whether a request was consumed.
	ConsumeRequest(ctx context.Context, id string) (bool, error)
	RestoreRequest(ctx context.Context, id string) error
}

// VisitRepository is the visit-record collaborator.
type VisitRepository interface {
	Find(ctx context.Context, filter VisitFilter) ([]domain.VisitRecord, error)
	FindByID(ctx context.Context, id string) (*domain.VisitRecord, error)
	Create(ctx context.Context, visit *domain.VisitRecord) error
	Delete(ctx context.Context, id string) error
}

// Notifier receives recorded visits for admin channels. Failures are the notifier's concern.
type Notifier interface {
	VisitRecorded(ctx context.Context, store domain.Store, visit domain.VisitRecord)
}

// StoreFilter expresses admin search criteria.
type StoreFilter struct {
	Keyword string
	Limit   int
}

// VisitFilter selects visit records. Range is half-open: From <= guidedAt < To.
type VisitFilter struct {
	StoreID   string
	StaffType domain.StaffType
	From      time.Time
	To        time.Time
	Ascending bool
}

// StoreInvoice pairs a computed invoice with the store and aggregate it came from.
type StoreInvoice struct {
	StoreID   string
	StoreName string
	Terms     domain.ContractTerms
	Aggregate domain.MonthlyAggregate
	Invoice   domain.Invoice
}

// StoreService describes admin store use-cases.
type StoreService interface {
	List(ctx context.Context, filter StoreFilter) ([]domain.Store, error)
	Detail(ctx context.Context, id string) (*domain.Store, error)
	Create(ctx context.Context, cmd CreateStoreCommand) (*domain.Store, error)
	UpdateTerms(ctx context.Context, id string, patch domain.OptionalTerms) (*domain.Store, error)
	ResolveTerms(store domain.Store) (domain.ContractTerms, error)
}

// VisitService describes staff-facing visit use-cases.
type VisitService interface {
	Record(ctx context.Context, cmd RecordVisitCommand) (*domain.VisitRecord, error)
	ListBusinessDay(ctx context.Context, localDate string, filter VisitFilter) ([]domain.VisitRecord, error)
	Today(ctx context.Context, now time.Time, filter VisitFilter) (string, []domain.VisitRecord, error)
	DailyGroups(ctx context.Context, year, month int, filter VisitFilter) ([]domain.DailyGroup, error)
	Delete(ctx context.Context, id string) error
}

// InvoiceService describes billing use-cases.
type InvoiceService interface {
	MonthlyInvoice(ctx context.Context, storeID string, year, month int) (*StoreInvoice, error)
	AllStores(ctx context.Context, year, month int) ([]StoreInvoice, error)
	Statement(ctx context.Context, storeID string, year int) ([]StoreInvoice, error)
}

// CreateStoreCommand contains inputs for registering a store.
type CreateStoreCommand struct {
	Name              string
	BranchName        string
	Area              string
	Terms             domain.OptionalTerms
	MalePrice         *int
	RemainingRequests int
}

// RecordVisitCommand contains a staff submission.
type RecordVisitCommand struct {
	StoreID    string
	GuestCount int
	StaffName  string
	StaffType  domain.StaffType
	GuidedAt   time.Time
	RequestID  string
}
