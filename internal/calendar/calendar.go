// Package calendar fetches and parses external booking calendars. The sync
// service only sees the Source interface; the HTTP iCal implementation lives
// here as well.
package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrFetch wraps any transport-level failure while downloading a feed. A
// parse failure is reported the same way: the property's cycle is aborted
// and retried on the next scheduled run.
var ErrFetch = errors.New("calendar fetch failed")

// Event is one stay observed in an external feed.
type Event struct {
	UID      string
	Checkin  time.Time
	Checkout time.Time
	Summary  string
}

// Source yields the current event set of one feed. An error means the set
// is unknown, never that it is empty.
type Source interface {
	Fetch(ctx context.Context, feedURL string) ([]Event, error)
}
