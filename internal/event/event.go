package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// TypeEvent is the value of the _type field on every emitted record
const TypeEvent = "event"

// SourceNoteAPI labels the synthetic source pointing at the detail resource
const SourceNoteAPI = "ocd-api"

// Event is a normalized OCD meeting event
type Event struct {
	Type           string   `json:"_type"`
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Classification string   `json:"classification"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time"`
	AllDay         bool     `json:"all_day"`
	Status         string   `json:"status"`
	Location       Location `json:"location"`
	Sources        []Source `json:"sources"`
}

// Item is one entry of the upstream event listing
type Item struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Classification string `json:"classification"`
	StartDate      string `json:"start_date"`
	EndDate        string `json:"end_date"`
	AllDay         bool   `json:"all_day"`
	Status         string `json:"status"`
}

// Location is where a meeting takes place
type Location struct {
	URL         string       `json:"url"`
	Name        string       `json:"name"`
	Coordinates *Coordinates `json:"coordinates"`
}

// Source points at a document the event was derived from
type Source struct {
	Note string `json:"note"`
	URL  string `json:"url"`
}

// Coordinates is a latitude/longitude pair, encoded as a two-element array.
// Upstream values that are not a recognizable pair are kept verbatim.
type Coordinates struct {
	Latitude  float64
	Longitude float64

	raw json.RawMessage
}

// Valid reports whether Latitude and Longitude were set
func (c Coordinates) Valid() bool {
	return c.raw == nil
}

// EmptyLocation returns the placeholder used when the detail resource is unavailable
func EmptyLocation() Location {
	return Location{URL: "", Name: "", Coordinates: nil}
}

// APISource returns the synthetic source entry for a detail resource URL
func APISource(detailURL string) Source {
	return Source{Note: SourceNoteAPI, URL: detailURL}
}

// NewEvent maps a listing item plus its enriched fields into an Event
func NewEvent(item Item, loc Location, sources []Source) *Event {
	if sources == nil {
		sources = []Source{}
	}
	return &Event{
		Type:           TypeEvent,
		ID:             item.ID,
		Name:           item.Name,
		Description:    item.Description,
		Classification: item.Classification,
		StartTime:      item.StartDate,
		EndTime:        item.EndDate,
		AllDay:         item.AllDay,
		Status:         item.Status,
		Location:       loc,
		Sources:        sources,
	}
}

// MarshalJSON encodes coordinates as [latitude, longitude], or the original
// upstream value when it was not a pair
func (c Coordinates) MarshalJSON() ([]byte, error) {
	if c.raw != nil {
		return c.raw, nil
	}
	return json.Marshal([2]float64{c.Latitude, c.Longitude})
}

// UnmarshalJSON accepts [lat, lon] and {"latitude": .., "longitude": ..},
// with numbers or numeric strings. Any other value is kept as is.
func (c *Coordinates) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return fmt.Errorf("invalid coordinates: %s", data)
	}

	lat, lon, ok := parsePair(data)
	if !ok {
		*c = Coordinates{raw: append(json.RawMessage(nil), data...)}
		return nil
	}

	*c = Coordinates{Latitude: lat, Longitude: lon}
	return nil
}

func parsePair(data []byte) (lat, lon float64, ok bool) {
	var latRaw, lonRaw json.RawMessage

	switch data[0] {
	case '[':
		var pair []json.RawMessage
		if err := json.Unmarshal(data, &pair); err != nil || len(pair) != 2 {
			return 0, 0, false
		}
		latRaw, lonRaw = pair[0], pair[1]
	case '{':
		var obj struct {
			Latitude  json.RawMessage `json:"latitude"`
			Longitude json.RawMessage `json:"longitude"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return 0, 0, false
		}
		latRaw, lonRaw = obj.Latitude, obj.Longitude
	default:
		return 0, 0, false
	}

	lat, latOK := parseNumber(latRaw)
	lon, lonOK := parseNumber(lonRaw)
	return lat, lon, latOK && lonOK
}

// parseNumber reads a JSON number or a string holding one
func parseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
