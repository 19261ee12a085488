package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/errors"
	"github.com/findrandomevents/harvest/geojson"
)

// DefaultSearchLimit caps search results when the request sets no limit.
const DefaultSearchLimit = 500

// EventStore stores and retrieves harvested events from a PostgreSQL
// database. Each event is kept as its JSON record next to the columns
// searches filter on.
type EventStore struct {
	DB *sql.DB
}

// Init sets up the database schema and creates indices.
func (e *EventStore) Init(ctx context.Context) error {
	const op errors.Op = "EventStore.Init"

	_, err := e.DB.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS events (
		id            VARCHAR(40)  NOT NULL,
		data          jsonb        NOT NULL,
		is_bad        boolean      NOT NULL DEFAULT FALSE,
		harvested_at  timestamptz  NOT NULL,
		start_time    bigint,
		latitude      double precision,
		longitude     double precision
	);

	CREATE UNIQUE INDEX IF NOT EXISTS event_id_idx ON events (id);

	-- Speeds up the bounding box prefilter of EventStore.Search
	CREATE INDEX IF NOT EXISTS event_location_idx
	ON events (latitude, longitude)
	WHERE latitude IS NOT NULL AND longitude IS NOT NULL;
	`)
	if err != nil {
		return errors.E(op, pgErr(err))
	}

	return nil
}

// Save creates or updates an event. harvestedAt records when it was last
// fetched.
func (e *EventStore) Save(ctx context.Context, event harvest.EventRecord, isBad bool, harvestedAt time.Time) error {
	const op errors.Op = "EventStore.Save"

	data, err := json.Marshal(event)
	if err != nil {
		return errors.E(op, event.ID, errors.Invalid, err)
	}

	var lat, lng sql.NullFloat64
	if c := event.Location.Coordinates; c != nil {
		lat = sql.NullFloat64{Float64: c.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: c.Longitude, Valid: true}
	}
	var start sql.NullInt64
	if event.Timestamp.Start != nil {
		start = sql.NullInt64{Int64: *event.Timestamp.Start, Valid: true}
	}

	_, err = e.DB.ExecContext(ctx, `
		INSERT INTO events
			(id, data, is_bad, harvested_at, start_time, latitude, longitude)
		VALUES
			($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
			SET data=$2, is_bad=$3, harvested_at=$4, start_time=$5, latitude=$6, longitude=$7
		`, event.ID, data, isBad, harvestedAt.UTC(), start, lat, lng)
	if err != nil {
		return errors.E(op, event.ID, pgErr(err))
	}

	return nil
}

// SetBad updates an event's 'bad' flag, which determines whether it gets
// filtered from search results.
func (e *EventStore) SetBad(ctx context.Context, eventID harvest.EventID, isBad bool) error {
	const op errors.Op = "EventStore.SetBad"

	res, err := e.DB.ExecContext(ctx, `
	UPDATE events
	SET is_bad = $1
	WHERE id = $2
	`, isBad, eventID)
	if err != nil {
		return errors.E(op, eventID, pgErr(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.E(op, eventID, errors.NotExist)
	}

	return nil
}

// GetByID finds an event by its ID
func (e *EventStore) GetByID(ctx context.Context, eventID harvest.EventID) (harvest.EventRecord, error) {
	const op errors.Op = "EventStore.GetByID"

	events, err := e.GetMulti(ctx, []harvest.EventID{eventID})
	if err != nil {
		return harvest.EventRecord{}, errors.E(op, err)
	}

	if len(events) == 0 {
		return harvest.EventRecord{}, errors.E(op, eventID, errors.NotExist)
	}

	return events[0], nil
}

// GetMulti finds multiple events simultaneously by their IDs.
func (e *EventStore) GetMulti(ctx context.Context, eventIDs []harvest.EventID) ([]harvest.EventRecord, error) {
	var idStrings pq.StringArray
	for _, id := range eventIDs {
		idStrings = append(idStrings, string(id))
	}

	rows, err := e.DB.QueryContext(ctx, `
	SELECT data::text
	FROM events
	WHERE
		id = ANY ($1)
	ORDER BY start_time ASC NULLS LAST, id ASC
	`, idStrings)
	if err != nil {
		return nil, errors.E(pgErr(err))
	}
	defer rows.Close()

	return scanEvents(rows)
}

// Search returns stored events matching params, soonest first. When
// params.Radius is set, only events with coordinates within Radius meters of
// (Latitude, Longitude) match. Bad events are left out unless
// params.IncludeBad is set.
func (e *EventStore) Search(ctx context.Context, params harvest.EventSearchRequest) ([]harvest.EventRecord, error) {
	const op errors.Op = "EventStore.Search"

	if params.Radius < 0 || params.Limit < 0 {
		return nil, errors.E(op, errors.Invalid, "negative radius or limit")
	}

	limit := params.Limit
	if limit == 0 {
		limit = DefaultSearchLimit
	}

	box := geojson.Box{MinLat: -90, MaxLat: 90, MinLng: -180, MaxLng: 180}
	if params.Radius > 0 {
		box = geojson.BoundingBox(params.Latitude, params.Longitude, params.Radius)
	}

	rows, err := e.DB.QueryContext(ctx, `
		SELECT data::text
		FROM events
		WHERE
			-- Filter out "bad" events determined uninteresting
			-- by event text analysis
			($1 OR is_bad = FALSE)

			-- Radius searches only consider events with coordinates,
			-- prefiltered to the circle's bounding box
			AND (NOT $2 OR (
				latitude BETWEEN $3 AND $4
				AND longitude BETWEEN $5 AND $6
			))
		ORDER BY start_time ASC NULLS LAST, id ASC
		`,
		params.IncludeBad,
		params.Radius > 0,
		box.MinLat, box.MaxLat,
		box.MinLng, box.MaxLng)
	if err != nil {
		return nil, errors.E(op, pgErr(err))
	}
	defer rows.Close()

	candidates, err := scanEvents(rows)
	if err != nil {
		return nil, errors.E(op, err)
	}

	events := []harvest.EventRecord{}
	for _, event := range candidates {
		if len(events) == limit {
			break
		}
		if params.Radius > 0 {
			c := event.Location.Coordinates
			if c == nil || geojson.Haversine(params.Longitude, params.Latitude, c.Longitude, c.Latitude) > params.Radius {
				continue
			}
		}
		events = append(events, event)
	}

	return events, nil
}

func scanEvents(rows *sql.Rows) ([]harvest.EventRecord, error) {
	events := []harvest.EventRecord{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, pgErr(err)
		}

		var event harvest.EventRecord
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, pgErr(err)
	}

	return events, nil
}
