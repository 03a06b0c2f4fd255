package application

import (
	"context"
	"strings"
	"time"

	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
)

// storeService implements StoreService.
type storeService struct {
	repo     StoreRepository
	defaults domain.ContractTerms
}

func NewStoreService(repo StoreRepository, defaults domain.ContractTerms) StoreService {
	return &storeService{repo: repo, defaults: defaults}
}

func (s *storeService) List(ctx context.Context, filter StoreFilter) ([]domain.Store, error) {
	return s.repo.Find(ctx, filter)
}

func (s *storeService) Detail(ctx context.Context, id string) (*domain.Store, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *storeService) Create(ctx context.Context, cmd CreateStoreCommand) (*domain.Store, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return nil, &domain.ValidationError{Field: "name", Reason: "is required"}
	}
	if err := cmd.Terms.Validate(); err != nil {
		return nil, err
	}
	if cmd.MalePrice != nil && *cmd.MalePrice < 0 {
		return nil, &domain.ValidationError{Field: "malePrice", Reason: "must be >= 0"}
	}
	if cmd.RemainingRequests < 0 {
		return nil, &domain.ValidationError{Field: "remainingRequests", Reason: "must be >= 0"}
	}

	now := time.Now().UTC()
	store := &domain.Store{
		Name:              name,
		BranchName:        strings.TrimSpace(cmd.BranchName),
		Area:              strings.TrimSpace(cmd.Area),
		Terms:             domain.OptionalTerms{}.Merge(cmd.Terms),
		MalePrice:         cmd.MalePrice,
		RemainingRequests: cmd.RemainingRequests,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *storeService) UpdateTerms(ctx context.Context, id string, patch domain.OptionalTerms) (*domain.Store, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	store, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return store, nil
	}
	store.Terms = store.Terms.Merge(patch)
	if err := s.repo.UpdateTerms(ctx, store.ID, store.Terms); err != nil {
		return nil, err
	}
	store.UpdatedAt = time.Now().UTC()
	return store, nil
}

func (s *storeService) ResolveTerms(store domain.Store) (domain.ContractTerms, error) {
	return store.Terms.Resolve(s.defaults)
}
