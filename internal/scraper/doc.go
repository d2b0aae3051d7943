// Package scraper walks the Open Civic Data event API and emits normalized events.
//
// The scraper requests the event listing for one jurisdiction (events starting
// after today, sorted by start date), follows the page cursor until the
// upstream-reported last page, and enriches every listing item with the
// location and sources of its detail resource. Records are handed to the
// caller as each page is processed rather than collected into one batch.
package scraper
