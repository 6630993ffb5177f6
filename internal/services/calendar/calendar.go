// Package calendar provides read and write access to iCloud Calendar
// events through the calendar web service.
package calendar

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/jfarrell/icloud-cli/internal/icloud"
	"github.com/jfarrell/icloud-cli/internal/sync"
)

// Event is one calendar event in display form. Dates are pre-formatted
// "YYYY-MM-DD HH:MM" strings, matching the cache document layout.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Calendar    string `json:"calendar"`
	Location    string `json:"location"`
	AllDay      bool   `json:"all_day"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Service fetches and mutates calendar events.
type Service struct {
	client *icloud.Client
}

func New(client *icloud.Client) *Service {
	return &Service{client: client}
}

type eventsResponse struct {
	Events []map[string]any `json:"Event"`
}

// ListEvents returns events between from and to, sorted by start time.
func (s *Service) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	base, err := s.client.ServiceURL("calendar")
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"startDate": {from.Format("2006-01-02")},
		"endDate":   {to.Format("2006-01-02")},
		"usertz":    {"UTC"},
		"lang":      {"en-us"},
	}

	var resp eventsResponse
	if err := s.client.Get(ctx, base+"/ca/events", params, &resp); err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	events := make([]Event, 0, len(resp.Events))
	for _, raw := range resp.Events {
		events = append(events, eventFromAPI(raw))
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Start < events[j].Start })
	return events, nil
}

// GetEvent looks up an event by GUID, scanning a year either side of now.
func (s *Service) GetEvent(ctx context.Context, eventID string) (*Event, error) {
	now := time.Now()
	events, err := s.ListEvents(ctx, now.AddDate(-1, 0, 0), now.AddDate(1, 0, 0))
	if err != nil {
		return nil, err
	}
	for i := range events {
		if events[i].ID == eventID {
			return &events[i], nil
		}
	}
	return nil, fmt.Errorf("event %s not found", eventID)
}

// NewEvent describes an event to create.
type NewEvent struct {
	Title       string
	Start       time.Time
	End         time.Time
	Calendar    string
	Location    string
	Description string
}

// AddEvent creates a calendar event.
func (s *Service) AddEvent(ctx context.Context, ev NewEvent) error {
	base, err := s.client.ServiceURL("calendar")
	if err != nil {
		return err
	}

	payload := map[string]any{
		"title":     ev.Title,
		"startDate": toAPIDate(ev.Start),
		"endDate":   toAPIDate(ev.End),
	}
	if ev.Location != "" {
		payload["location"] = ev.Location
	}
	if ev.Description != "" {
		payload["description"] = ev.Description
	}
	if ev.Calendar != "" {
		payload["pGuid"] = ev.Calendar
	}

	body := map[string]any{"Event": payload}
	if err := s.client.Post(ctx, base+"/ca/events", body, nil); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// DeleteEvent removes an event by GUID.
func (s *Service) DeleteEvent(ctx context.Context, eventID string) error {
	base, err := s.client.ServiceURL("calendar")
	if err != nil {
		return err
	}
	if err := s.client.Post(ctx, base+"/ca/events/"+eventID+"/delete", nil, nil); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func eventFromAPI(raw map[string]any) Event {
	start := raw["startDate"]
	if start == nil {
		start = raw["localStartDate"]
	}
	end := raw["endDate"]
	if end == nil {
		end = raw["localEndDate"]
	}

	allDay, _ := raw["allDay"].(bool)

	return Event{
		ID:          stringField(raw, "guid"),
		Title:       titleField(raw),
		Start:       formatAPIDate(start),
		End:         formatAPIDate(end),
		Calendar:    stringField(raw, "pGuid"),
		Location:    stringField(raw, "location"),
		AllDay:      allDay,
		Description: stringField(raw, "description"),
		URL:         stringField(raw, "url"),
	}
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

func titleField(raw map[string]any) string {
	if t := stringField(raw, "title"); t != "" {
		return t
	}
	return "Untitled"
}

// toAPIDate converts a time to the service's [year, month, day, hour,
// minute] array form.
func toAPIDate(t time.Time) []int {
	return []int{t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute()}
}

// formatAPIDate renders the service's polymorphic date forms (RFC-ish
// strings, [y,m,d,h,m] arrays, epoch milliseconds) as "YYYY-MM-DD HH:MM".
func formatAPIDate(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02"} {
			if t, err := time.Parse(layout, d); err == nil {
				return t.Format("2006-01-02 15:04")
			}
		}
		return d
	case float64:
		// Unix timestamp in milliseconds.
		return time.UnixMilli(int64(d)).UTC().Format("2006-01-02 15:04")
	case []any:
		nums := make([]int, 0, len(d))
		for _, n := range d {
			f, ok := n.(float64)
			if !ok {
				return fmt.Sprint(v)
			}
			nums = append(nums, int(f))
		}
		// Some responses prefix a packed yyyymmdd value; the date proper
		// always occupies the last five slots of interest.
		if len(nums) >= 6 && nums[0] > 9999 {
			nums = nums[1:]
		}
		if len(nums) < 5 {
			return fmt.Sprint(v)
		}
		return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", nums[0], nums[1], nums[2], nums[3], nums[4])
	default:
		return fmt.Sprint(v)
	}
}

// SyncWindowDays is the forward window used by the background sync.
const SyncWindowDays = 30

// Adapter exposes the calendar service to the sync orchestrator.
type Adapter struct {
	svc *Service
	now func() time.Time
}

func NewAdapter(svc *Service) *Adapter {
	return &Adapter{svc: svc, now: time.Now}
}

func (a *Adapter) Domain() string { return "calendar" }

// Sync fetches the next 30 days of events.
func (a *Adapter) Sync(ctx context.Context) ([]sync.Record, error) {
	now := a.now()
	events, err := a.svc.ListEvents(ctx, now, now.AddDate(0, 0, SyncWindowDays))
	if err != nil {
		return nil, err
	}

	records := make([]sync.Record, 0, len(events))
	for _, ev := range events {
		records = append(records, sync.Record{
			"id":       ev.ID,
			"title":    ev.Title,
			"start":    ev.Start,
			"end":      ev.End,
			"calendar": ev.Calendar,
			"location": ev.Location,
			"all_day":  ev.AllDay,
		})
	}
	return records, nil
}
