package application

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
)

type visitService struct {
	visits   VisitRepository
	stores   StoreRepository
	resolver *domain.Resolver
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
}

// NewVisitService wires the visit use-cases. notifier may be nil.
func NewVisitService(visits VisitRepository, stores StoreRepository, resolver *domain.Resolver, notifier Notifier, logger *log.Logger) VisitService {
	return &visitService{
		visits:   visits,
		stores:   stores,
		resolver: resolver,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *visitService) Record(ctx context.Context, cmd RecordVisitCommand) (*domain.VisitRecord, error) {
	guidedAt := cmd.GuidedAt
	if guidedAt.IsZero() {
		guidedAt = s.now()
	}
	visit, err := domain.NewVisitRecord(cmd.StoreID, cmd.GuestCount, cmd.StaffName, cmd.StaffType, guidedAt)
	if err != nil {
		return nil, err
	}

	requestID := strings.TrimSpace(cmd.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	} else if _, err := uuid.Parse(requestID); err != nil {
		return nil, &domain.ValidationError{Field: "requestId", Reason: "must be a UUID"}
	}
	visit.RequestID = requestID

	store, err := s.stores.FindByID(ctx, visit.StoreID)
	if err != nil {
		return nil, err
	}

	consumed, err := s.stores.ConsumeRequest(ctx, store.ID)
	if err != nil {
		return nil, fmt.Errorf("consume request: %w", err)
	}
	visit.ConsumedRequest = consumed
	visit.CreatedAt = s.now().UTC()

	if err := s.visits.Create(ctx, &visit); err != nil {
		if consumed {
			if restoreErr := s.stores.RestoreRequest(ctx, store.ID); restoreErr != nil {
				s.logf("visit create failed and request restore failed storeId=%s err=%v", store.ID, restoreErr)
			}
		}
		return nil, err
	}

	if s.notifier != nil {
		notified := *store
		if consumed {
			notified.RemainingRequests--
		}
		// 通知はリクエストの期限と切り離して非同期で送る
		go s.notifier.VisitRecorded(context.WithoutCancel(ctx), notified, visit)
	}
	return &visit, nil
}

func (s *visitService) ListBusinessDay(ctx context.Context, localDate string, filter VisitFilter) ([]domain.VisitRecord, error) {
	rng, err := s.resolver.ResolveDayRange(localDate)
	if err != nil {
		return nil, err
	}
	filter.From, filter.To = rng.Start, rng.End
	return s.visits.Find(ctx, filter)
}

func (s *visitService) Today(ctx context.Context, now time.Time, filter VisitFilter) (string, []domain.VisitRecord, error) {
	businessDate := s.resolver.BusinessDateOf(now)
	visits, err := s.ListBusinessDay(ctx, businessDate, filter)
	if err != nil {
		return "", nil, err
	}
	return businessDate, visits, nil
}

func (s *visitService) DailyGroups(ctx context.Context, year, month int, filter VisitFilter) ([]domain.DailyGroup, error) {
	rng, err := s.resolver.ResolveMonthRange(year, month)
	if err != nil {
		return nil, err
	}
	filter.From, filter.To = rng.Start, rng.End
	visits, err := s.visits.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return domain.GroupByLocalDate(visits, s.resolver), nil
}

// Delete removes the record and gives back the request it consumed, if any.
func (s *visitService) Delete(ctx context.Context, id string) error {
	visit, err := s.visits.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.visits.Delete(ctx, visit.ID); err != nil {
		return err
	}
	if !visit.ConsumedRequest {
		return nil
	}
	if err := s.stores.RestoreRequest(ctx, visit.StoreID); err != nil {
		// 記録は削除済みなので再試行では戻せない。手動補正用に残す
		s.logf("visit deleted but request restore failed visitId=%s storeId=%s err=%v", visit.ID, visit.StoreID, err)
		return fmt.Errorf("restore request: %w", err)
	}
	return nil
}

func (s *visitService) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
