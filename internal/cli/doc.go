// Package cli implements the command-line interface for ocd-events.
//
// The cli package provides the Cobra-based command that builds the run
// configuration (defaults, optional YAML file, flags), walks the OCD event
// API through the scraper package and streams each record to the selected
// output format (json, ndjson, text or ics) as soon as it is enriched.
package cli
