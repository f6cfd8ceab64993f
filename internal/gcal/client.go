package gcal

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"tabmind/internal/auth"
)

// EventsAPI is the slice of the Calendar surface the reconciler needs.
type EventsAPI interface {
	Insert(ctx context.Context, ev *calendar.Event) (*calendar.Event, error)
	Delete(ctx context.Context, eventID string) error
	// ListUpdatedSince returns events whose start is no earlier than since,
	// ordered by last modification time.
	ListUpdatedSince(ctx context.Context, since time.Time) ([]*calendar.Event, error)
}

// UnavailableEvents stands in when no calendar credentials are configured.
// Every call fails with the reason the real client could not be built, so
// sync attempts surface a useful message instead of a nil panic.
type UnavailableEvents struct {
	Err error
}

func (u UnavailableEvents) Insert(context.Context, *calendar.Event) (*calendar.Event, error) {
	return nil, u.Err
}

func (u UnavailableEvents) Delete(context.Context, string) error {
	return u.Err
}

func (u UnavailableEvents) ListUpdatedSince(context.Context, time.Time) ([]*calendar.Event, error) {
	return nil, u.Err
}

// GoogleEvents talks to a single Google calendar. The underlying OAuth
// client refreshes its token before each call.
type GoogleEvents struct {
	svc        *calendar.Service
	calendarID string
}

func NewGoogleEvents(ctx context.Context) (*GoogleEvents, error) {
	client, err := auth.Client(ctx, []string{calendar.CalendarEventsScope})
	if err != nil {
		return nil, err
	}
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &GoogleEvents{svc: svc, calendarID: "primary"}, nil
}

func (g *GoogleEvents) Insert(ctx context.Context, ev *calendar.Event) (*calendar.Event, error) {
	created, err := g.svc.Events.Insert(g.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}
	return created, nil
}

func (g *GoogleEvents) Delete(ctx context.Context, eventID string) error {
	if err := g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete calendar event %s: %w", eventID, err)
	}
	return nil
}

func (g *GoogleEvents) ListUpdatedSince(ctx context.Context, since time.Time) ([]*calendar.Event, error) {
	var (
		events []*calendar.Event
		token  string
	)
	for {
		call := g.svc.Events.List(g.calendarID).
			TimeMin(since.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("updated").
			MaxResults(250).
			Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list calendar events: %w", err)
		}
		events = append(events, page.Items...)
		if page.NextPageToken == "" {
			return events, nil
		}
		token = page.NextPageToken
	}
}
