package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/auth"
	"github.com/findrandomevents/harvest/errors"
	"github.com/findrandomevents/harvest/log"
)

// MaxSeeds bounds the number of seed sources of one harvest request.
const MaxSeeds = 50

// EventSearch queries the database for events matching the EventSearchRequest.
// Descriptions are shortened to keep listings small.
func (s *Service) EventSearch(ctx context.Context, req harvest.EventSearchRequest) ([]harvest.EventRecord, error) {
	const op errors.Op = "Service.EventSearch"

	if !auth.User(ctx).IsAdmin {
		return nil, errors.E(op, errors.Permission)
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	events, err := s.EventStore.Search(ctx, req)
	if errors.Is(errors.Invalid, err) {
		return nil, errors.E(op, err)
	} else if err != nil {
		return nil, errors.E(op, errors.Internal, "event search", err)
	}

	for i := range events {
		desc := []rune(events[i].Description)
		if len(desc) > 100 {
			events[i].Description = string(desc[:97]) + "…"
		}
	}

	return events, nil
}

// EventGet retrieves an event from the database.
func (s *Service) EventGet(ctx context.Context, id harvest.EventID) (harvest.EventRecord, error) {
	const op errors.Op = "Service.EventGet"

	event, err := s.EventStore.GetByID(ctx, id)
	if errors.Is(errors.NotExist, err) {
		return event, errors.E(op, id, err)
	} else if err != nil {
		return event, errors.E(op, errors.Internal, "event get failed", err)
	}

	return event, nil
}

// HarvestRun harvests the events reachable from req.Seeds and saves them to
// the EventStore, flagging bad events. Only admins may start harvests.
func (s *Service) HarvestRun(ctx context.Context, req harvest.HarvestRequest) (harvest.HarvestResponse, error) {
	const op errors.Op = "Service.HarvestRun"

	var resp harvest.HarvestResponse

	user := auth.User(ctx)
	if !user.LoggedIn() {
		return resp, errors.E(op, errors.NotLoggedIn)
	}
	if !user.IsAdmin {
		return resp, errors.E(op, errors.Permission)
	}

	if n := req.Seeds.Len(); n == 0 {
		return resp, errors.E(op, errors.Invalid, "no seeds")
	} else if n > MaxSeeds {
		err := fmt.Errorf("seed list length (%d) > max (%d)", n, MaxSeeds)
		return resp, errors.E(op, errors.Invalid, err)
	}

	events, err := s.Harvest(ctx, req.Seeds)
	if err != nil {
		return resp, errors.E(op, err)
	}

	now := s.Time.Now()
	resp.EventIDs = []harvest.EventID{}
	for _, event := range events {
		if err := s.EventStore.Save(ctx, event, harvest.IsBadEvent(event), now); err != nil {
			return resp, errors.E(op, errors.Internal, event.ID, "save event", err)
		}
		resp.EventIDs = append(resp.EventIDs, event.ID)
	}

	log.FromContext(ctx).Info("harvest saved",
		zap.String("user", user.ID),
		zap.Int("seeds", req.Seeds.Len()),
		zap.Int("events", len(events)))

	return resp, nil
}
