package application

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
)

type fakeStoreRepo struct {
	mu         sync.Mutex
	stores     map[string]*domain.Store
	order      []string
	restored   []string
	updateErr  error
	consumeErr error
}

func newFakeStoreRepo(stores ...domain.Store) *fakeStoreRepo {
	repo := &fakeStoreRepo{stores: make(map[string]*domain.Store)}
	for _, s := range stores {
		s := s
		repo.stores[s.ID] = &s
		repo.order = append(repo.order, s.ID)
	}
	return repo
}

func (r *fakeStoreRepo) Find(_ context.Context, _ StoreFilter) ([]domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Store, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, *r.stores[id])
	}
	return result, nil
}

func (r *fakeStoreRepo) FindByID(_ context.Context, id string) (*domain.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[id]
	if !ok {
		return nil, ErrStoreNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeStoreRepo) Create(_ context.Context, store *domain.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	store.ID = "store-" + strconv.Itoa(len(r.order)+1)
	copied := *store
	r.stores[store.ID] = &copied
	r.order = append(r.order, store.ID)
	return nil
}

func (r *fakeStoreRepo) UpdateTerms(_ context.Context, id string, terms domain.OptionalTerms) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	s, ok := r.stores[id]
	if !ok {
		return ErrStoreNotFound
	}
	s.Terms = terms
	return nil
}

func (r *fakeStoreRepo) ConsumeRequest(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.consumeErr != nil {
		return false, r.consumeErr
	}
	s, ok := r.stores[id]
	if !ok || s.RemainingRequests <= 0 {
		return false, nil
	}
	s.RemainingRequests--
	return true, nil
}

func (r *fakeStoreRepo) RestoreRequest(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[id]
	if !ok {
		return ErrStoreNotFound
	}
	s.RemainingRequests++
	r.restored = append(r.restored, id)
	return nil
}

type fakeVisitRepo struct {
	mu        sync.Mutex
	visits    map[string]domain.VisitRecord
	seq       int
	createErr error
	queries   []VisitFilter
}

func newFakeVisitRepo(visits ...domain.VisitRecord) *fakeVisitRepo {
	repo := &fakeVisitRepo{visits: make(map[string]domain.VisitRecord)}
	for _, v := range visits {
		repo.seq++
		if v.ID == "" {
			v.ID = "visit-" + strconv.Itoa(repo.seq)
		}
		repo.visits[v.ID] = v
	}
	return repo
}

func (r *fakeVisitRepo) Find(_ context.Context, filter VisitFilter) ([]domain.VisitRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries = append(r.queries, filter)
	rng := domain.DateRange{Start: filter.From, End: filter.To}
	result := make([]domain.VisitRecord, 0)
	for _, v := range r.visits {
		if filter.StoreID != "" && v.StoreID != filter.StoreID {
			continue
		}
		if filter.StaffType != "" && v.StaffType != filter.StaffType {
			continue
		}
		if !rng.Contains(v.GuidedAt) {
			continue
		}
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		if filter.Ascending {
			return result[i].GuidedAt.Before(result[j].GuidedAt)
		}
		return result[i].GuidedAt.After(result[j].GuidedAt)
	})
	return result, nil
}

func (r *fakeVisitRepo) FindByID(_ context.Context, id string) (*domain.VisitRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visits[id]
	if !ok {
		return nil, ErrVisitNotFound
	}
	return &v, nil
}

func (r *fakeVisitRepo) Create(_ context.Context, visit *domain.VisitRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.visits {
		if existing.RequestID != "" && existing.RequestID == visit.RequestID {
			return ErrDuplicateVisit
		}
	}
	r.seq++
	visit.ID = "visit-" + strconv.Itoa(r.seq)
	r.visits[visit.ID] = *visit
	return nil
}

func (r *fakeVisitRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.visits[id]; !ok {
		return ErrVisitNotFound
	}
	delete(r.visits, id)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	visits []domain.VisitRecord
}

func (n *recordingNotifier) VisitRecorded(_ context.Context, _ domain.Store, visit domain.VisitRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.visits = append(n.visits, visit)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.visits)
}

// blockingNotifier は release が閉じられるまで戻らない。受け取った ctx の状態を記録する。
type blockingNotifier struct {
	release chan struct{}
	done    chan error
}

func (n *blockingNotifier) VisitRecorded(ctx context.Context, _ domain.Store, _ domain.VisitRecord) {
	<-n.release
	n.done <- ctx.Err()
}
