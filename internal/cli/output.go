package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/ocd-events/internal/calendar"
	"github.com/pfrederiksen/ocd-events/internal/event"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatJSON   OutputFormat = "json"
	FormatNDJSON OutputFormat = "ndjson"
	FormatText   OutputFormat = "text"
	FormatICS    OutputFormat = "ics"
)

// Valid reports whether f is a supported format
func (f OutputFormat) Valid() bool {
	switch f {
	case FormatJSON, FormatNDJSON, FormatText, FormatICS:
		return true
	}
	return false
}

// RecordWriter receives events one at a time as the walk produces them
type RecordWriter interface {
	WriteEvent(evt *event.Event) error
	// Close finishes the document; it does not close the underlying writer
	Close() error
}

// NewRecordWriter returns a writer for format
func NewRecordWriter(w io.Writer, format OutputFormat, now time.Time) (RecordWriter, error) {
	switch format {
	case FormatJSON:
		return &jsonArrayWriter{w: w}, nil
	case FormatNDJSON:
		return &ndjsonWriter{enc: json.NewEncoder(w)}, nil
	case FormatText:
		return &textWriter{w: w}, nil
	case FormatICS:
		return &icsWriter{w: w, now: now}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}

// jsonArrayWriter streams a single JSON array, one element per event
type jsonArrayWriter struct {
	w io.Writer
	n int
}

func (j *jsonArrayWriter) WriteEvent(evt *event.Event) error {
	data, err := json.MarshalIndent(evt, "  ", "  ")
	if err != nil {
		return fmt.Errorf("encoding event %s: %w", evt.ID, err)
	}

	sep := ",\n  "
	if j.n == 0 {
		sep = "[\n  "
	}
	if _, err := io.WriteString(j.w, sep); err != nil {
		return err
	}
	if _, err := j.w.Write(data); err != nil {
		return err
	}
	j.n++
	return nil
}

func (j *jsonArrayWriter) Close() error {
	if j.n == 0 {
		_, err := io.WriteString(j.w, "[]\n")
		return err
	}
	_, err := io.WriteString(j.w, "\n]\n")
	return err
}

// ndjsonWriter writes one compact JSON object per line
type ndjsonWriter struct {
	enc *json.Encoder
}

func (n *ndjsonWriter) WriteEvent(evt *event.Event) error {
	return n.enc.Encode(evt)
}

func (n *ndjsonWriter) Close() error { return nil }

// textWriter outputs events as human-readable text
type textWriter struct {
	w io.Writer
	n int
}

func (t *textWriter) WriteEvent(evt *event.Event) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", evt.Name)
	fmt.Fprintf(&b, "  When:   %s", formatWhen(evt))
	if evt.Status != "" {
		fmt.Fprintf(&b, " (%s)", evt.Status)
	}
	b.WriteString("\n")
	if evt.Location.Name != "" {
		fmt.Fprintf(&b, "  Where:  %s\n", evt.Location.Name)
	}
	if evt.Classification != "" {
		fmt.Fprintf(&b, "  Type:   %s\n", evt.Classification)
	}
	if desc := plainText(evt.Description); desc != "" {
		fmt.Fprintf(&b, "  About:  %s\n", desc)
	}
	fmt.Fprintf(&b, "  ID:     %s\n", evt.ID)
	for _, src := range evt.Sources {
		fmt.Fprintf(&b, "  Source: %s %s\n", src.Note, src.URL)
	}
	b.WriteString("\n")

	if _, err := io.WriteString(t.w, b.String()); err != nil {
		return err
	}
	t.n++
	return nil
}

func (t *textWriter) Close() error {
	if t.n == 0 {
		_, err := fmt.Fprintln(t.w, "No events found.")
		return err
	}
	_, err := fmt.Fprintf(t.w, "Total: %d events\n", t.n)
	return err
}

// icsWriter buffers events until Close, since a calendar is one document
type icsWriter struct {
	w      io.Writer
	now    time.Time
	events []*event.Event
}

func (i *icsWriter) WriteEvent(evt *event.Event) error {
	i.events = append(i.events, evt)
	return nil
}

func (i *icsWriter) Close() error {
	_, err := calendar.Encode(i.w, i.events, i.now)
	return err
}

// formatWhen renders the start time for text output
func formatWhen(evt *event.Event) string {
	start := evt.Start()
	if start.IsZero() {
		if evt.StartTime == "" {
			return "unknown"
		}
		return evt.StartTime
	}
	if evt.AllDay {
		return start.Format("Mon Jan 2, 2006") + " (all day)"
	}
	return start.Format("Mon Jan 2, 2006 3:04 PM MST")
}

// plainText flattens an HTML description to a single line of text
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("br, p, li").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml(" ")
	})
	doc.Find("script, style").Remove()

	return strings.Join(strings.Fields(doc.Text()), " ")
}
