package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"time"

	"github.com/dghubble/sling"
	"github.com/google/go-querystring/query"

	"github.com/pfrederiksen/ocd-events/internal/config"
	"github.com/pfrederiksen/ocd-events/internal/event"
	"github.com/pfrederiksen/ocd-events/internal/logger"
	"github.com/pfrederiksen/ocd-events/internal/metrics"
)

// Scraper handles fetching and enriching OCD events
type Scraper struct {
	cfg     config.Config
	api     *sling.Sling
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option customizes a Scraper
type Option func(*Scraper)

// WithHTTPClient replaces the default client (which uses cfg.Timeout)
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scraper) {
		s.api = s.api.Client(c)
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(s *Scraper) {
		s.log = l
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scraper) {
		s.metrics = m
	}
}

// WithClock sets the clock used for the start_date__gt filter
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) {
		s.now = now
	}
}

// New creates a new Scraper for cfg
func New(cfg config.Config, opts ...Option) *Scraper {
	s := &Scraper{
		cfg: cfg,
		api: sling.New().
			Client(&http.Client{Timeout: cfg.Timeout}).
			Set("User-Agent", cfg.UserAgent).
			Set("Accept", "application/json").
			ResponseDecoder(okJSONDecoder{}),
		log: logger.Default(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(logger.Fields{"jurisdiction": cfg.Jurisdiction})
	return s
}

// ListingQuery is the query string of the event listing endpoint
type ListingQuery struct {
	StartDateGT  string `url:"start_date__gt"`
	Sort         string `url:"sort"`
	Jurisdiction string `url:"jurisdiction"`
	Page         int    `url:"page,omitempty"`
}

// Meta is the pagination block of a listing response
type Meta struct {
	Page    int `json:"page"`
	MaxPage int `json:"max_page"`
}

// Page is one decoded listing response
type Page struct {
	Results []event.Item `json:"results"`
	Meta    Meta         `json:"meta"`
}

// StatusError reports a non-200 response from a listing request
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d (%s)", e.StatusCode, e.URL)
}

var (
	errStopIteration = errors.New("iteration stopped")
	errEmptyBody     = errors.New("empty response body")
)

// okJSONDecoder decodes 200 responses only. Other statuses, 2xx included,
// reach the caller with the target left untouched.
type okJSONDecoder struct{}

func (okJSONDecoder) Decode(resp *http.Response, v interface{}) error {
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// Query returns the listing query for page; page 0 omits the page parameter
func (s *Scraper) Query(page int) ListingQuery {
	return ListingQuery{
		StartDateGT:  event.FormatQueryDate(s.now()),
		Sort:         s.cfg.Sort,
		Jurisdiction: s.cfg.Jurisdiction,
		Page:         page,
	}
}

// ListingURL encodes q against the configured listing endpoint
func (s *Scraper) ListingURL(q ListingQuery) (string, error) {
	v, err := query.Values(q)
	if err != nil {
		return "", fmt.Errorf("encoding query: %w", err)
	}
	return s.cfg.ListingURL() + "?" + v.Encode(), nil
}

// FetchPage fetches a single listing page (0 for the first, unnumbered request)
func (s *Scraper) FetchPage(ctx context.Context, page int) (*Page, error) {
	return s.fetchPage(ctx, s.Query(page))
}

func (s *Scraper) fetchPage(ctx context.Context, q ListingQuery) (*Page, error) {
	listingURL, err := s.ListingURL(q)
	if err != nil {
		return nil, err
	}

	var page Page
	resp, err := s.get(ctx, listingURL, &page, metrics.EndpointListing)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: listingURL, StatusCode: resp.StatusCode}
	}

	s.metrics.PageFetched()
	s.log.Debug("Fetched listing page", logger.Fields{
		"url":      listingURL,
		"page":     page.Meta.Page,
		"max_page": page.Meta.MaxPage,
		"results":  len(page.Results),
	})

	return &page, nil
}

// Walk fetches every listing page and calls fn once per enriched event, in
// page order. The last page is fixed by the first response. An error from a
// listing request or from fn stops the walk.
func (s *Scraper) Walk(ctx context.Context, fn func(*event.Event) error) error {
	q := s.Query(0)

	page, err := s.fetchPage(ctx, q)
	if err != nil {
		return err
	}

	cursor := page.Meta.Page
	if cursor < 1 {
		cursor = 1
	}
	maxPage := page.Meta.MaxPage
	emitted := 0

	for {
		for _, item := range page.Results {
			evt, err := s.enrich(ctx, item)
			if err != nil {
				return err
			}
			if err := fn(evt); err != nil {
				return err
			}
			s.metrics.EventEmitted()
			emitted++
		}

		if cursor >= maxPage {
			break
		}

		cursor++
		q.Page = cursor
		page, err = s.fetchPage(ctx, q)
		if err != nil {
			return err
		}
	}

	s.metrics.WalkCompleted(s.now())
	s.log.Info("Walk complete", logger.Fields{
		"pages":  cursor,
		"events": emitted,
	})
	return nil
}

// Events returns the walk as a lazy sequence. A walk failure is yielded once
// as the final (nil, err) pair.
func (s *Scraper) Events(ctx context.Context) iter.Seq2[*event.Event, error] {
	return func(yield func(*event.Event, error) bool) {
		err := s.Walk(ctx, func(evt *event.Event) error {
			if !yield(evt, nil) {
				return errStopIteration
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStopIteration) {
			yield(nil, err)
		}
	}
}

// FetchEvents walks every page and returns all events
func (s *Scraper) FetchEvents(ctx context.Context) ([]*event.Event, error) {
	events := make([]*event.Event, 0)
	err := s.Walk(ctx, func(evt *event.Event) error {
		events = append(events, evt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// get issues a GET and decodes a 200 JSON body into successV. An empty 200
// body is an error; other statuses are returned undecoded.
func (s *Scraper) get(ctx context.Context, rawURL string, successV interface{}, endpoint string) (*http.Response, error) {
	req, err := s.api.New().Get(rawURL).Request()
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := s.api.Do(req.WithContext(ctx), successV, nil)
	s.metrics.ObserveRequest(endpoint, time.Since(start))
	if err != nil {
		return nil, err
	}
	// sling skips decoding when Content-Length is 0
	if resp.StatusCode == http.StatusOK && resp.ContentLength == 0 {
		return nil, errEmptyBody
	}
	return resp, nil
}
