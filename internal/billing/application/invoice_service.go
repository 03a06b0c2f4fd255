package application

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
)

// maxParallelStores bounds concurrent visit queries when billing every store.
const maxParallelStores = 8

type invoiceService struct {
	stores   StoreRepository
	visits   VisitRepository
	resolver *domain.Resolver
	defaults domain.ContractTerms
}

func NewInvoiceService(stores StoreRepository, visits VisitRepository, resolver *domain.Resolver, defaults domain.ContractTerms) InvoiceService {
	return &invoiceService{
		stores:   stores,
		visits:   visits,
		resolver: resolver,
		defaults: defaults,
	}
}

func (s *invoiceService) MonthlyInvoice(ctx context.Context, storeID string, year, month int) (*StoreInvoice, error) {
	rng, err := s.resolver.ResolveMonthRange(year, month)
	if err != nil {
		return nil, err
	}
	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return s.invoiceFor(ctx, *store, year, month, rng)
}

func (s *invoiceService) AllStores(ctx context.Context, year, month int) ([]StoreInvoice, error) {
	rng, err := s.resolver.ResolveMonthRange(year, month)
	if err != nil {
		return nil, err
	}
	stores, err := s.stores.Find(ctx, StoreFilter{})
	if err != nil {
		return nil, err
	}

	results := make([]StoreInvoice, len(stores))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelStores)
	for i, store := range stores {
		i, store := i, store
		g.Go(func() error {
			inv, err := s.invoiceFor(gctx, store, year, month, rng)
			if err != nil {
				return fmt.Errorf("store %s: %w", store.ID, err)
			}
			results[i] = *inv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *invoiceService) Statement(ctx context.Context, storeID string, year int) ([]StoreInvoice, error) {
	first, err := s.resolver.ResolveMonthRange(year, 1)
	if err != nil {
		return nil, err
	}
	last, err := s.resolver.ResolveMonthRange(year, 12)
	if err != nil {
		return nil, err
	}
	store, err := s.stores.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	terms, err := store.Terms.Resolve(s.defaults)
	if err != nil {
		return nil, err
	}

	visits, err := s.visits.Find(ctx, VisitFilter{StoreID: store.ID, From: first.Start, To: last.End, Ascending: true})
	if err != nil {
		return nil, err
	}
	byMonth := make(map[int]domain.MonthlyAggregate)
	for _, agg := range domain.AggregateByMonth(store.ID, visits, s.resolver) {
		byMonth[agg.Month] = agg
	}

	statement := make([]StoreInvoice, 0, 12)
	for month := 1; month <= 12; month++ {
		agg, ok := byMonth[month]
		if !ok {
			agg = domain.MonthlyAggregate{StoreID: store.ID, Year: year, Month: month}
		}
		inv, err := domain.ComputeInvoice(terms, agg.GuestCount)
		if err != nil {
			return nil, err
		}
		statement = append(statement, StoreInvoice{
			StoreID:   store.ID,
			StoreName: store.DisplayName(),
			Terms:     terms,
			Aggregate: agg,
			Invoice:   inv,
		})
	}
	return statement, nil
}

func (s *invoiceService) invoiceFor(ctx context.Context, store domain.Store, year, month int, rng domain.DateRange) (*StoreInvoice, error) {
	terms, err := store.Terms.Resolve(s.defaults)
	if err != nil {
		return nil, err
	}
	visits, err := s.visits.Find(ctx, VisitFilter{StoreID: store.ID, From: rng.Start, To: rng.End, Ascending: true})
	if err != nil {
		return nil, err
	}
	agg := domain.AggregateMonthly(store.ID, year, month, visits)
	inv, err := domain.ComputeInvoice(terms, agg.GuestCount)
	if err != nil {
		return nil, err
	}
	return &StoreInvoice{
		StoreID:   store.ID,
		StoreName: store.DisplayName(),
		Terms:     terms,
		Aggregate: agg,
		Invoice:   inv,
	}, nil
}
