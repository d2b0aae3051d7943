// Package calendar renders emitted events as an iCalendar feed.
package calendar

import (
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/pfrederiksen/ocd-events/internal/event"
)

const ProductID = "-//ocd-events//ocd-events//EN"

var statusValues = map[string]string{
	"confirmed": "CONFIRMED",
	"cancelled": "CANCELLED",
	"canceled":  "CANCELLED",
	"tentative": "TENTATIVE",
}

// NewCalendar builds a VCALENDAR with one VEVENT per event. Events whose
// start time cannot be parsed are skipped; the number skipped is returned.
func NewCalendar(events []*event.Event, now time.Time) (*ical.Calendar, int) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")
	cal.Props.SetText(ical.PropMethod, "PUBLISH")

	skipped := 0
	for _, evt := range events {
		vevent := NewVEvent(evt, now)
		if vevent == nil {
			skipped++
			continue
		}
		cal.Children = append(cal.Children, vevent.Component)
	}

	return cal, skipped
}

// NewVEvent converts one event, or returns nil if it has no usable start time
func NewVEvent(evt *event.Event, now time.Time) *ical.Event {
	start := evt.Start()
	if start.IsZero() {
		return nil
	}

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, evt.ID)
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())

	if evt.AllDay {
		vevent.Props.SetDate(ical.PropDateTimeStart, start)
	} else {
		vevent.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
		if end := evt.End(); !end.IsZero() && end.After(start) {
			vevent.Props.SetDateTime(ical.PropDateTimeEnd, end.UTC())
		}
	}

	vevent.Props.SetText(ical.PropSummary, textValue(evt.Name))
	if evt.Description != "" {
		vevent.Props.SetText(ical.PropDescription, textValue(evt.Description))
	}
	if evt.Classification != "" {
		vevent.Props.SetText(ical.PropCategories, evt.Classification)
	}
	if status, ok := statusValues[strings.ToLower(evt.Status)]; ok {
		vevent.Props.SetText(ical.PropStatus, status)
	}

	if evt.Location.Name != "" {
		vevent.Props.SetText(ical.PropLocation, textValue(evt.Location.Name))
	}
	if c := evt.Location.Coordinates; c != nil && c.Valid() {
		geo := ical.NewProp(ical.PropGeo)
		geo.Value = fmt.Sprintf("%g;%g", c.Latitude, c.Longitude)
		vevent.Props.Set(geo)
	}

	if u := eventURL(evt); u != nil {
		vevent.Props.SetURI(ical.PropURL, u)
	}

	return vevent
}

// Encode writes events as an .ics document to w. A calendar without events
// is still written, as an empty VCALENDAR.
func Encode(w io.Writer, events []*event.Event, now time.Time) (int, error) {
	cal, skipped := NewCalendar(events, now)
	if len(cal.Children) == 0 {
		if err := writeEmpty(w, cal); err != nil {
			return skipped, fmt.Errorf("encoding calendar: %w", err)
		}
		return skipped, nil
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return skipped, fmt.Errorf("encoding calendar: %w", err)
	}
	return skipped, nil
}

// writeEmpty writes the calendar properties only; go-ical refuses to encode
// a VCALENDAR without components.
func writeEmpty(w io.Writer, cal *ical.Calendar) error {
	names := make([]string, 0, len(cal.Props))
	for name := range cal.Props {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("BEGIN:" + ical.CompCalendar + "\r\n")
	for _, name := range names {
		for _, prop := range cal.Props[name] {
			b.WriteString(prop.Name + ":" + prop.Value + "\r\n")
		}
	}
	b.WriteString("END:" + ical.CompCalendar + "\r\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// textValue normalizes line endings, since go-ical escapes LF but rejects CR
func textValue(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// eventURL prefers the location page, then the first source
func eventURL(evt *event.Event) *url.URL {
	candidates := []string{evt.Location.URL}
	for _, src := range evt.Sources {
		candidates = append(candidates, src.URL)
	}

	for _, raw := range candidates {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			continue
		}
		return u
	}
	return nil
}
