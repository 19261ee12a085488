package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/auth"
	"github.com/findrandomevents/harvest/errors"
)

func TestHarvestRunChecks(t *testing.T) {
	var calls int
	s := &Service{
		Harvest: func(ctx context.Context, seeds harvest.SeedSet) ([]harvest.EventRecord, error) {
			calls++
			return nil, nil
		},
		Time: RealTime,
	}

	one := harvest.NewSeedSet(harvest.SourceSpec{Kind: harvest.EventIDKind, Value: "1"})
	many := harvest.SeedSet{}
	for i := 0; i <= MaxSeeds; i++ {
		many.Add(harvest.GroupKind, fmt.Sprint(i))
	}

	admin := auth.Context(context.Background(), auth.ID("root"), auth.Admin(true))

	for _, test := range []struct {
		Name  string
		Ctx   context.Context
		Seeds harvest.SeedSet
		Want  errors.Kind
	}{
		{Name: "anonymous", Ctx: context.Background(), Seeds: one, Want: errors.NotLoggedIn},
		{Name: "user", Ctx: auth.Context(context.Background(), auth.ID("u")), Seeds: one, Want: errors.Permission},
		{Name: "no seeds", Ctx: admin, Seeds: harvest.SeedSet{}, Want: errors.Invalid},
		{Name: "too many seeds", Ctx: admin, Seeds: many, Want: errors.Invalid},
	} {
		_, err := s.HarvestRun(test.Ctx, harvest.HarvestRequest{Seeds: test.Seeds})
		require.Truef(t, errors.Is(test.Want, err), "%s: err = %v, want %v", test.Name, err, test.Want)
	}
	require.Zero(t, calls)

	resp, err := s.HarvestRun(admin, harvest.HarvestRequest{Seeds: one})
	require.NoError(t, err)
	require.Empty(t, resp.EventIDs)
	require.Equal(t, 1, calls)
}

func TestHarvestRunPropagatesFailure(t *testing.T) {
	s := &Service{
		Harvest: func(ctx context.Context, seeds harvest.SeedSet) ([]harvest.EventRecord, error) {
			return nil, errors.E(errors.Invalid, "bad options")
		},
		Time: RealTime,
	}

	admin := auth.Context(context.Background(), auth.ID("root"), auth.Admin(true))
	seeds := harvest.NewSeedSet(harvest.SourceSpec{Kind: harvest.EventIDKind, Value: "1"})

	_, err := s.HarvestRun(admin, harvest.HarvestRequest{Seeds: seeds})
	require.True(t, errors.Is(errors.Invalid, err), "err = %v", err)
}
