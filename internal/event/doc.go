// Package event provides the Open Civic Data event record emitted by ocd-events.
//
// The event package defines the normalized record (Event) together with its
// nested Location and Source values, the listing Item decoded from the upstream
// API and the mapping between the two. Records are built once by NewEvent and
// are not mutated afterwards.
package event
