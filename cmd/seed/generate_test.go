package main

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sngm3741/guide-ops/api/internal/billing/domain"
)

func TestGenerateStores_CoversContractModes(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	now := time.Date(2025, 7, 20, 12, 0, 0, 0, domain.JST)

	stores := generateStores(rng, 30, now)
	require.Len(t, stores, 30)

	var waived, unset, guaranteed int
	seen := map[string]bool{}
	for _, s := range stores {
		key := s.Name + "/" + s.BranchName
		assert.False(t, seen[key], "duplicate store %s", key)
		seen[key] = true

		switch {
		case s.PanelFee == nil:
			unset++
			assert.Nil(t, s.ChargePerPerson)
		case *s.PanelFee == 0:
			waived++
		case s.GuaranteeCount != nil && *s.GuaranteeCount > 0:
			guaranteed++
		}
		assert.GreaterOrEqual(t, s.RemainingRequests, 0)
	}
	assert.Positive(t, waived)
	assert.Positive(t, unset)
	assert.Positive(t, guaranteed)
}

func TestGenerateVisits(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	now := time.Date(2025, 7, 20, 12, 0, 0, 0, domain.JST)
	stores := generateStores(rng, 4, now)

	visits := generateVisits(rng, stores, 200, 3, now)
	require.Len(t, visits, 200)

	earliest := time.Date(2025, 5, 1, 0, 0, 0, 0, domain.JST)
	requestIDs := map[string]bool{}
	for _, v := range visits {
		assert.False(t, v.GuidedAt.After(now), "visit in the future: %s", v.GuidedAt)
		assert.False(t, v.GuidedAt.Before(earliest), "visit too old: %s", v.GuidedAt)
		assert.Equal(t, time.UTC, v.GuidedAt.Location())
		assert.GreaterOrEqual(t, v.GuestCount, 1)
		assert.Contains(t, []string{"staff", "outstaff"}, v.StaffType)
		assert.False(t, requestIDs[v.RequestID])
		requestIDs[v.RequestID] = true
	}

	assert.Empty(t, generateVisits(rng, stores, 0, 3, now))
	assert.Empty(t, generateVisits(rng, nil, 10, 3, now))
}

func TestDistribute(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	counts := distribute(100, 4, 5, 30, rng)
	require.Len(t, counts, 4)
	sum := 0
	for _, c := range counts {
		assert.GreaterOrEqual(t, c, 5)
		assert.LessOrEqual(t, c, 30)
		sum += c
	}
	assert.Equal(t, 100, sum)

	// 上限が小さすぎても総数は守る
	counts = distribute(10, 2, 0, 1, rng)
	assert.Equal(t, 10, counts[0]+counts[1])

	assert.Nil(t, distribute(10, 0, 0, 10, rng))
}
