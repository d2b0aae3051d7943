package event

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewEvent(t *testing.T) {
	item := Item{
		ID:             "ocd-event/86094f46-cf45-46f8-89e2-0bf783e7aa12",
		Name:           "City Council",
		Description:    "Regular meeting",
		Classification: "committee-meeting",
		StartDate:      "2026-10-21T10:00:00-05:00",
		EndDate:        "",
		AllDay:         false,
		Status:         "confirmed",
	}

	evt := NewEvent(item, EmptyLocation(), nil)

	if evt.Type != TypeEvent {
		t.Errorf("Type = %q, want %q", evt.Type, TypeEvent)
	}
	if evt.ID != item.ID {
		t.Errorf("ID = %q, want %q", evt.ID, item.ID)
	}
	if evt.StartTime != item.StartDate {
		t.Errorf("StartTime = %q, want %q", evt.StartTime, item.StartDate)
	}
	if evt.Sources == nil {
		t.Error("Sources should never be nil")
	}
}

func TestEvent_JSONHasAllFields(t *testing.T) {
	evt := NewEvent(Item{ID: "ocd-event/1"}, EmptyLocation(), []Source{APISource("https://ocd.datamade.us/ocd-event/1")})

	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	required := []string{"id", "name", "description", "classification", "start_time", "end_time", "all_day", "status", "location", "sources"}
	for _, key := range required {
		v, ok := decoded[key]
		if !ok {
			t.Errorf("missing field %q", key)
			continue
		}
		if v == nil {
			t.Errorf("field %q is null", key)
		}
	}

	loc := decoded["location"].(map[string]interface{})
	if v, ok := loc["coordinates"]; !ok || v != nil {
		t.Errorf("placeholder coordinates = %v (present %v), want null", v, ok)
	}
	if loc["url"] != "" || loc["name"] != "" {
		t.Errorf("placeholder location = %v, want empty url and name", loc)
	}
}

func TestEvent_EmptySourcesEncodeAsArray(t *testing.T) {
	evt := NewEvent(Item{ID: "x"}, EmptyLocation(), nil)

	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"sources":[]`) {
		t.Errorf("sources should encode as [], got %s", data)
	}
}

func TestLocation_RoundTrip(t *testing.T) {
	input := `{"url":"http://x","name":"City Hall","coordinates":[41.88,-87.63]}`

	var loc Location
	if err := json.Unmarshal([]byte(input), &loc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	out, err := json.Marshal(loc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	if string(out) != input {
		t.Errorf("Marshal() = %s, want %s", out, input)
	}
}

func TestCoordinates_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantLat   float64
		wantLon   float64
		wantNil   bool
		wantRaw   string // non-empty when the value is kept verbatim
		wantValid bool
	}{
		{name: "array", input: `{"coordinates":[41.88,-87.63]}`, wantLat: 41.88, wantLon: -87.63, wantValid: true},
		{name: "object", input: `{"coordinates":{"latitude":41.88,"longitude":-87.63}}`, wantLat: 41.88, wantLon: -87.63, wantValid: true},
		{name: "object with numeric strings", input: `{"coordinates":{"latitude":"41.88","longitude":"-87.63"}}`, wantLat: 41.88, wantLon: -87.63, wantValid: true},
		{name: "array with numeric strings", input: `{"coordinates":["41.88","-87.63"]}`, wantLat: 41.88, wantLon: -87.63, wantValid: true},
		{name: "null", input: `{"coordinates":null}`, wantNil: true},
		{name: "missing", input: `{}`, wantNil: true},
		{name: "empty array", input: `{"coordinates":[]}`, wantRaw: `[]`},
		{name: "wrong length", input: `{"coordinates":[41.88]}`, wantRaw: `[41.88]`},
		{name: "string", input: `{"coordinates":"41.88,-87.63"}`, wantRaw: `"41.88,-87.63"`},
		{name: "object missing longitude", input: `{"coordinates":{"latitude":41.88}}`, wantRaw: `{"latitude":41.88}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var loc Location
			if err := json.Unmarshal([]byte(tt.input), &loc); err != nil {
				t.Fatalf("Unmarshal() unexpected error: %v", err)
			}

			if tt.wantNil {
				if loc.Coordinates != nil {
					t.Errorf("Coordinates = %+v, want nil", loc.Coordinates)
				}
				return
			}

			if loc.Coordinates == nil {
				t.Fatal("Coordinates = nil, want value")
			}
			if got := loc.Coordinates.Valid(); got != tt.wantValid {
				t.Errorf("Valid() = %v, want %v", got, tt.wantValid)
			}

			if tt.wantRaw != "" {
				out, err := json.Marshal(loc.Coordinates)
				if err != nil {
					t.Fatalf("Marshal() unexpected error: %v", err)
				}
				if string(out) != tt.wantRaw {
					t.Errorf("Marshal() = %s, want %s", out, tt.wantRaw)
				}
				return
			}

			if loc.Coordinates.Latitude != tt.wantLat || loc.Coordinates.Longitude != tt.wantLon {
				t.Errorf("Coordinates = (%v, %v), want (%v, %v)", loc.Coordinates.Latitude, loc.Coordinates.Longitude, tt.wantLat, tt.wantLon)
			}
		})
	}
}

func TestCoordinates_StringsEmittedAsArray(t *testing.T) {
	var loc Location
	if err := json.Unmarshal([]byte(`{"url":"","name":"City Hall","coordinates":{"latitude":"41.88","longitude":"-87.63"}}`), &loc); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}

	out, err := json.Marshal(loc)
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}
	want := `{"url":"","name":"City Hall","coordinates":[41.88,-87.63]}`
	if string(out) != want {
		t.Errorf("Marshal() = %s, want %s", out, want)
	}
}

func TestAPISource(t *testing.T) {
	src := APISource("https://ocd.datamade.us/ocd-event/1")
	if src.Note != "ocd-api" {
		t.Errorf("Note = %q, want ocd-api", src.Note)
	}
	if src.URL != "https://ocd.datamade.us/ocd-event/1" {
		t.Errorf("URL = %q", src.URL)
	}
}
