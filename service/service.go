package service

import (
	"context"
	"time"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/auth"
	"github.com/findrandomevents/harvest/pg"
)

// Time mocks out time.Now for testing
type Time interface {
	Now() time.Time
}

type realTime struct{}

func (realTime) Now() time.Time { return time.Now() }

// RealTime is the wall clock.
var RealTime Time = realTime{}

// HarvestFunc runs one harvest. (*Harvester).Harvest satisfies it.
type HarvestFunc func(ctx context.Context, seeds harvest.SeedSet) ([]harvest.EventRecord, error)

// Service is a programmatic API to the harvester and its event store. It
// checks permissions before running harvests or reading stored events.
type Service struct {
	EventStore *pg.EventStore

	Harvest HarvestFunc
	Time    Time

	Auth auth.Provider
}
