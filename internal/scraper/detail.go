package scraper

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pfrederiksen/ocd-events/internal/event"
	"github.com/pfrederiksen/ocd-events/internal/logger"
	"github.com/pfrederiksen/ocd-events/internal/metrics"
)

// Detail is the part of an event detail resource used for enrichment
type Detail struct {
	Location event.Location `json:"location"`
	Sources  []event.Source `json:"sources"`
}

// Location fetches the detail resource for id and returns its location, or
// the empty placeholder when upstream does not answer 200.
func (s *Scraper) Location(ctx context.Context, id string) (event.Location, error) {
	d, _, err := s.fetchDetail(ctx, id)
	if err != nil {
		return event.Location{}, err
	}
	if d == nil {
		return event.EmptyLocation(), nil
	}
	return d.Location, nil
}

// Sources fetches the detail resource for id and returns its sources with the
// ocd-api entry appended. Without a 200 only the ocd-api entry is returned.
func (s *Scraper) Sources(ctx context.Context, id string) ([]event.Source, error) {
	d, detailURL, err := s.fetchDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return []event.Source{event.APISource(detailURL)}, nil
	}
	return s.buildSources(id, d.Sources, detailURL), nil
}

// Enrich fetches the detail resource once and derives both location and sources
func (s *Scraper) Enrich(ctx context.Context, id string) (event.Location, []event.Source, error) {
	d, detailURL, err := s.fetchDetail(ctx, id)
	if err != nil {
		return event.Location{}, nil, err
	}
	if d == nil {
		return event.EmptyLocation(), []event.Source{event.APISource(detailURL)}, nil
	}
	return d.Location, s.buildSources(id, d.Sources, detailURL), nil
}

func (s *Scraper) enrich(ctx context.Context, item event.Item) (*event.Event, error) {
	if s.cfg.Compat.DoubleFetch {
		loc, err := s.Location(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		sources, err := s.Sources(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		return event.NewEvent(item, loc, sources), nil
	}

	loc, sources, err := s.Enrich(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return event.NewEvent(item, loc, sources), nil
}

// fetchDetail returns a nil Detail when upstream answers anything but 200.
// Transport and decode errors are returned as errors.
func (s *Scraper) fetchDetail(ctx context.Context, id string) (*Detail, string, error) {
	detailURL := s.cfg.DetailURL(id)

	var d Detail
	resp, err := s.get(ctx, detailURL, &d, metrics.EndpointDetail)
	if err != nil {
		return nil, detailURL, fmt.Errorf("fetching detail %s: %w", id, err)
	}

	if resp.StatusCode != http.StatusOK {
		s.metrics.DetailRequest(metrics.OutcomeFallback)
		s.log.Warn("Detail unavailable, using placeholders", logger.Fields{
			"id":          id,
			"url":         detailURL,
			"status_code": resp.StatusCode,
		})
		return nil, detailURL, nil
	}

	s.metrics.DetailRequest(metrics.OutcomeOK)
	return &d, detailURL, nil
}

// buildSources appends the ocd-api entry to a copy of upstream and, in
// compatibility mode, swaps positions 0 and 2.
func (s *Scraper) buildSources(id string, upstream []event.Source, detailURL string) []event.Source {
	sources := make([]event.Source, 0, len(upstream)+1)
	sources = append(sources, upstream...)
	sources = append(sources, event.APISource(detailURL))

	if !s.cfg.Compat.SwapSources {
		return sources
	}

	if len(sources) < 3 {
		s.metrics.SwapSkipped()
		s.log.Warn("Too few sources to swap, keeping upstream order", logger.Fields{
			"id":      id,
			"sources": len(sources),
		})
		return sources
	}

	sources[0], sources[2] = sources[2], sources[0]
	return sources
}
