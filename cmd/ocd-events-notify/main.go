package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pfrederiksen/ocd-events/internal/event"
	"github.com/pfrederiksen/ocd-events/internal/logger"
	"github.com/pfrederiksen/ocd-events/internal/notifier"
)

var (
	eventsFile     = flag.String("events-file", "", "Path to events JSON file written by ocd-events (or read from stdin)")
	channel        = flag.String("channel", "twitter", "Notification channel: twitter or telegram")
	dryRun         = flag.Bool("dry-run", false, "Print announcements without posting")
	maxPosts       = flag.Int("max-posts", 10, "Maximum number of announcements to post")
	withinDays     = flag.Int("within-days", 7, "Only announce meetings starting within this many days (0 = no limit)")
	classification = flag.String("classification", "", "Only announce events with this classification")
)

func main() {
	flag.Parse()

	// Read events from file or stdin
	var reader io.Reader
	if *eventsFile != "" {
		f, err := os.Open(*eventsFile)
		if err != nil {
			logger.Error("Opening events file", logger.Fields{"path": *eventsFile}, err)
			os.Exit(1)
		}
		defer f.Close()
		reader = f
	} else {
		reader = os.Stdin
	}

	events, err := decodeEvents(reader)
	if err != nil {
		logger.Error("Parsing events", nil, err)
		os.Exit(1)
	}

	events = selectEvents(events, time.Now(), *withinDays, *classification, *maxPosts)
	if len(events) == 0 {
		fmt.Println("No events match criteria")
		os.Exit(0)
	}

	var n notifier.Notifier
	if *dryRun {
		n = notifier.NewDryRunNotifier()
		fmt.Printf("DRY RUN MODE - Would announce %d events:\n\n", len(events))
	} else {
		client, err := newNotifier(*channel)
		if err != nil {
			logger.Error("Initializing notifier", logger.Fields{"channel": *channel}, err)
			os.Exit(1)
		}
		n = client
	}

	if err := n.Notify(events); err != nil {
		logger.Error("Posting announcements", logger.Fields{"channel": *channel, "events": len(events)}, err)
		os.Exit(1)
	}

	if !*dryRun {
		logger.Info("Posted announcements", logger.Fields{"channel": *channel, "count": len(events)})
	}
}

func newNotifier(channel string) (notifier.Notifier, error) {
	switch channel {
	case "twitter":
		return notifier.NewTwitterNotifier()
	case "telegram":
		return notifier.NewTelegramNotifier()
	default:
		return nil, fmt.Errorf("unknown channel %q (want twitter or telegram)", channel)
	}
}

// decodeEvents accepts the json array format as well as ndjson
func decodeEvents(r io.Reader) ([]*event.Event, error) {
	decoder := json.NewDecoder(r)
	events := make([]*event.Event, 0)

	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("decoding events: %w", err)
		}

		if trimmed := strings.TrimSpace(string(raw)); strings.HasPrefix(trimmed, "[") {
			var batch []*event.Event
			if err := json.Unmarshal(raw, &batch); err != nil {
				return nil, fmt.Errorf("decoding event array: %w", err)
			}
			events = append(events, batch...)
			continue
		}

		var evt event.Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			return nil, fmt.Errorf("decoding event: %w", err)
		}
		events = append(events, &evt)
	}

	return events, nil
}

// selectEvents keeps upcoming meetings in the window, in input order, capped at max
func selectEvents(events []*event.Event, now time.Time, withinDays int, class string, max int) []*event.Event {
	selected := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if class != "" && !strings.EqualFold(evt.Classification, class) {
			continue
		}
		if !evt.IsUpcoming(now) || !evt.IsWithinDays(now, withinDays) {
			continue
		}
		selected = append(selected, evt)
		if max > 0 && len(selected) == max {
			break
		}
	}
	return selected
}
