package harvest

// EventID is a string assigned by Facebook that uniquely identifies the Event.
// You can access the event it references at https://facebook.com/events/<event id>.
type EventID string

// EventRecord is the decoded detail page of one event. Fields that could not
// be found in the page are left at their zero value and omitted from JSON.
type EventRecord struct {
	ID          EventID `json:"event_id"`
	URL         string  `json:"event_url"`
	Name        string  `json:"name,omitempty"`
	Description string  `json:"description,omitempty"`

	CoverPhoto CoverPhoto `json:"cover_photo"`
	Timestamp  Timestamp  `json:"timestamp"`
	Location   Location   `json:"location"`
	Hosts      []Host     `json:"hosts"`

	TicketURL            string `json:"event_buy_ticket_url,omitempty"`
	UsersInterestedCount *int   `json:"users_interested_count,omitempty"`

	IsOnline   bool `json:"is_online"`
	IsPast     bool `json:"is_past"`
	IsCanceled bool `json:"is_canceled"`
}

// CoverPhoto is the event's banner image.
type CoverPhoto struct {
	ImageURL string `json:"image_url,omitempty"`
	Caption  string `json:"accessibility_caption,omitempty"`
}

// Timestamp is the time window of an event. Start and End are unix seconds.
type Timestamp struct {
	Timezone string `json:"timezone,omitempty"`
	Start    *int64 `json:"start_timestamp,omitempty"`
	End      *int64 `json:"end_timestamp,omitempty"`
}

// Location is where the event takes place.
type Location struct {
	Name        string       `json:"name,omitempty"`
	Address     string       `json:"address,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Coordinates is a lat/lng pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Host is a person or page organizing the event.
type Host struct {
	Name     string `json:"name,omitempty"`
	URL      string `json:"url,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// EventSearchRequest is passed to EventStore.Search to list stored events.
// When Radius is set, only events within Radius meters of (Latitude,
// Longitude) are returned.
type EventSearchRequest struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Radius     float64 `json:"radius"`
	IncludeBad bool    `json:"includeBad"`
	Limit      int     `json:"limit"`
}

// HarvestRequest asks the service to harvest the events reachable from Seeds.
type HarvestRequest struct {
	Seeds SeedSet `json:"seeds"`
}

// HarvestResponse summarizes a finished harvest.
type HarvestResponse struct {
	EventIDs []EventID `json:"event_ids"`
}
