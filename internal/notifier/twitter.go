package notifier

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"

	"github.com/pfrederiksen/ocd-events/internal/event"
)

const (
	maxTweetLength = 280
	tweetInterval  = 2 * time.Second
)

// TwitterNotifier posts events to Twitter
type TwitterNotifier struct {
	client *twitter.Client
}

// NewTwitterNotifier creates a new Twitter notifier using environment variables
// Required environment variables:
// - TWITTER_API_KEY
// - TWITTER_API_SECRET
// - TWITTER_ACCESS_TOKEN
// - TWITTER_ACCESS_SECRET
func NewTwitterNotifier() (*TwitterNotifier, error) {
	apiKey := os.Getenv("TWITTER_API_KEY")
	apiSecret := os.Getenv("TWITTER_API_SECRET")
	accessToken := os.Getenv("TWITTER_ACCESS_TOKEN")
	accessSecret := os.Getenv("TWITTER_ACCESS_SECRET")

	if apiKey == "" || apiSecret == "" || accessToken == "" || accessSecret == "" {
		return nil, fmt.Errorf("missing required Twitter credentials in environment variables")
	}

	config := oauth1.NewConfig(apiKey, apiSecret)
	token := oauth1.NewToken(accessToken, accessSecret)
	httpClient := config.Client(oauth1.NoContext, token)
	client := twitter.NewClient(httpClient)

	return &TwitterNotifier{client: client}, nil
}

// Notify posts tweets for each event
func (n *TwitterNotifier) Notify(events []*event.Event) error {
	for i, evt := range events {
		tweet := formatAnnouncement(evt, maxTweetLength)

		_, _, err := n.client.Statuses.Update(tweet, nil)
		if err != nil {
			return fmt.Errorf("failed to post tweet for event %s: %w", evt.ID, err)
		}

		if i < len(events)-1 {
			time.Sleep(tweetInterval)
		}
	}

	return nil
}

// formatAnnouncement formats a meeting announcement of at most limit characters
func formatAnnouncement(evt *event.Event, limit int) string {
	var b strings.Builder

	if strings.EqualFold(evt.Status, "cancelled") || strings.EqualFold(evt.Status, "canceled") {
		b.WriteString("❌ Meeting cancelled\n\n")
	} else {
		b.WriteString("🏛️ Upcoming public meeting\n\n")
	}

	b.WriteString(fmt.Sprintf("📋 %s\n", evt.Name))

	if when := formatWhen(evt); when != "" {
		b.WriteString(fmt.Sprintf("📅 %s\n", when))
	}

	if evt.Location.Name != "" {
		b.WriteString(fmt.Sprintf("📍 %s\n", evt.Location.Name))
	}

	if link := primarySource(evt); link != "" {
		b.WriteString(fmt.Sprintf("\n🔗 %s\n", link))
	}

	b.WriteString("\n#CityHall #OpenGov")

	text := b.String()
	// limits count characters, not bytes
	if runes := []rune(text); len(runes) > limit {
		text = string(runes[:limit-3]) + "..."
	}

	return text
}

// formatWhen renders the start time, or the raw value if it does not parse
func formatWhen(evt *event.Event) string {
	start := evt.Start()
	if start.IsZero() {
		return evt.StartTime
	}
	if evt.AllDay {
		return start.Format("Mon Jan 2, 2006")
	}
	return start.Format("Mon Jan 2, 2006 3:04 PM")
}

// primarySource returns the first non-API source link
func primarySource(evt *event.Event) string {
	for _, src := range evt.Sources {
		if src.Note != event.SourceNoteAPI && src.URL != "" {
			return src.URL
		}
	}
	return ""
}
