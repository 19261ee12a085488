package facebook

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/findrandomevents/harvest"
	"github.com/findrandomevents/harvest/errors"
	"github.com/findrandomevents/harvest/extract"
	"github.com/findrandomevents/harvest/log"
)

// The sub-objects of an event page, each found by its own anchor key. Some
// anchors are shared by several objects and need a disambiguating key.
type (
	coverPhoto struct {
		Photo *coverImage `json:"photo"`
	}

	// coverImage fields are pointers so that a present but empty value is
	// told apart from a missing one.
	coverImage struct {
		FullImage *imageRef `json:"full_image"`
		Caption   *string   `json:"accessibility_caption"`
	}

	imageRef struct {
		URI *string `json:"uri"`
	}

	eventDetailed struct {
		OneLineAddress string `json:"one_line_address"`
		TicketURL      string `json:"event_buy_ticket_url"`
	}

	eventGeneral struct {
		Name       string `json:"name"`
		IsOnline   bool   `json:"is_online"`
		IsPast     bool   `json:"is_past"`
		IsCanceled bool   `json:"is_canceled"`
	}

	eventDescription struct {
		Text string `json:"text"`
	}

	eventHost struct {
		Name           string `json:"name"`
		URL            string `json:"url"`
		ProfilePicture *struct {
			URI string `json:"uri"`
		} `json:"profile_picture"`
	}

	eventPlace struct {
		Name     string               `json:"name"`
		Location *harvest.Coordinates `json:"location"`
	}

	eventTime struct {
		Timezone string `json:"tz_display_name"`
		Start    *int64 `json:"start_timestamp"`
		End      *int64 `json:"end_timestamp"`
	}

	eventInterested struct {
		Count *int `json:"count"`
	}
)

// detailDecoder decodes anchored sub-objects of one event page. A missing or
// malformed sub-object is logged and leaves its destination untouched, so
// the record keeps whatever else could be read.
type detailDecoder struct {
	doc    extract.Document
	logger *zap.Logger
	missed []string
}

func (d *detailDecoder) decode(key, disambiguator string, v interface{}) {
	raw, ok := d.doc.Extract(key, disambiguator)
	if !ok {
		d.missed = append(d.missed, key+"/"+disambiguator)
		return
	}
	if err := json.Unmarshal(raw, v); err != nil {
		d.logger.Debug("decode event field failed", zap.String("key", key), zap.Error(err))
		d.missed = append(d.missed, key+"/"+disambiguator)
	}
}

// FetchDetail fetches the page of event id and assembles its EventRecord.
//
// It returns a nil record and a nil error for events that already happened;
// those are never harvested. A fetch that runs out of retries returns a nil
// record and the FetchFailed error.
func (c *Client) FetchDetail(ctx context.Context, id harvest.EventID) (*harvest.EventRecord, error) {
	const op errors.Op = "Client.FetchDetail"

	url := EventURL(c.baseURL(), id)
	_, logger := log.With(ctx, zap.String("eventID", string(id)))

	html, err := c.Fetcher.Get(ctx, url, c.htmlHeader())
	if err != nil {
		return nil, errors.E(op, id, err)
	}

	d := &detailDecoder{doc: c.Parser.Parse(html), logger: logger}

	var (
		cover       coverPhoto
		coverMedia  []coverImage
		detailed    eventDetailed
		general     eventGeneral
		description eventDescription
		hosts       []eventHost
		place       eventPlace
		when        eventTime
		interested  eventInterested
	)
	d.decode("cover_photo", "", &cover)
	d.decode("cover_media", "", &coverMedia)
	d.decode("event", "one_line_address", &detailed)
	d.decode("event", "name", &general)
	d.decode("event_description", "", &description)
	d.decode("event_hosts_that_can_view_guestlist", "", &hosts)
	d.decode("event_place", "location", &place)
	d.decode("data", "start_timestamp", &when)
	d.decode("event_connected_users_public_responded", "", &interested)

	if len(d.missed) > 0 {
		logger.Debug("event fields missing", zap.Strings("anchors", d.missed))
	}

	event := &harvest.EventRecord{
		ID:          id,
		URL:         url,
		Name:        general.Name,
		Description: description.Text,
		Timestamp: harvest.Timestamp{
			Timezone: when.Timezone,
			Start:    when.Start,
			End:      when.End,
		},
		Location: harvest.Location{
			Name:        place.Name,
			Address:     detailed.OneLineAddress,
			Coordinates: place.Location,
		},
		Hosts:                []harvest.Host{},
		TicketURL:            detailed.TicketURL,
		UsersInterestedCount: interested.Count,
		IsOnline:             general.IsOnline,
		IsPast:               general.IsPast,
		IsCanceled:           general.IsCanceled,
	}

	var media *coverImage
	if len(coverMedia) > 0 {
		media = &coverMedia[0]
	}
	event.CoverPhoto = pickCover(cover.Photo, media)

	for _, h := range hosts {
		host := harvest.Host{Name: h.Name, URL: h.URL}
		if h.ProfilePicture != nil {
			host.ImageURL = h.ProfilePicture.URI
		}
		event.Hosts = append(event.Hosts, host)
	}

	if event.IsPast {
		return nil, nil
	}
	return event, nil
}

// pickCover takes each cover field from the event's cover photo and falls
// back to the first cover media item only when the photo lacks the field.
func pickCover(photo, media *coverImage) harvest.CoverPhoto {
	var uri, caption *string
	for _, img := range []*coverImage{photo, media} {
		if img == nil {
			continue
		}
		if uri == nil && img.FullImage != nil {
			uri = img.FullImage.URI
		}
		if caption == nil {
			caption = img.Caption
		}
	}

	var cp harvest.CoverPhoto
	if uri != nil {
		cp.ImageURL = *uri
	}
	if caption != nil {
		cp.Caption = *caption
	}
	return cp
}
