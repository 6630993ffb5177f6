// Package reminders provides access to iCloud Reminders through the
// reminders web service.
package reminders

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jfarrell/icloud-cli/internal/icloud"
	"github.com/jfarrell/icloud-cli/internal/sync"
)

// Reminder is one reminder in display form.
type Reminder struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	List        string `json:"list"`
	DueDate     string `json:"due_date"`
	Priority    string `json:"priority"`
	Completed   bool   `json:"completed"`
	Description string `json:"description,omitempty"`
}

// Service fetches and mutates reminders.
type Service struct {
	client *icloud.Client
}

func New(client *icloud.Client) *Service {
	return &Service{client: client}
}

type startupResponse struct {
	Collections []struct {
		GUID  string `json:"guid"`
		Title string `json:"title"`
	} `json:"Collections"`
	Reminders []apiReminder `json:"Reminders"`
}

type apiReminder struct {
	GUID          string `json:"guid"`
	PGuid         string `json:"pGuid"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	DueDate       any    `json:"dueDate"`
	Priority      int    `json:"priority"`
	CompletedDate any    `json:"completedDate"`
}

// ListOptions filter a reminder listing.
type ListOptions struct {
	ListName      string
	ShowCompleted bool
}

// List returns reminders across all lists, optionally filtered by list name
// and with completed items excluded by default.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Reminder, error) {
	base, err := s.client.ServiceURL("reminders")
	if err != nil {
		return nil, err
	}

	params := url.Values{"lang": {"en-us"}, "usertz": {"UTC"}}
	var resp startupResponse
	if err := s.client.Get(ctx, base+"/rd/startup", params, &resp); err != nil {
		return nil, fmt.Errorf("fetch reminders: %w", err)
	}

	listTitles := make(map[string]string, len(resp.Collections))
	for _, c := range resp.Collections {
		listTitles[c.GUID] = c.Title
	}

	var out []Reminder
	for _, r := range resp.Reminders {
		listTitle := listTitles[r.PGuid]
		if listTitle == "" {
			listTitle = "Untitled List"
		}
		if opts.ListName != "" && !strings.EqualFold(listTitle, opts.ListName) {
			continue
		}

		completed := r.CompletedDate != nil
		if completed && !opts.ShowCompleted {
			continue
		}

		title := r.Title
		if title == "" {
			title = "Untitled"
		}

		out = append(out, Reminder{
			ID:          r.GUID,
			Title:       title,
			List:        listTitle,
			DueDate:     formatDueDate(r.DueDate),
			Priority:    priorityName(r.Priority),
			Completed:   completed,
			Description: r.Description,
		})
	}

	return out, nil
}

// NewReminder describes a reminder to create.
type NewReminder struct {
	Title       string
	Due         time.Time // zero value means no due date
	ListName    string
	Description string
}

// Add creates a reminder. An unknown list name falls back to the default
// list with a non-fatal miss reported through the returned list title.
func (s *Service) Add(ctx context.Context, nr NewReminder) error {
	base, err := s.client.ServiceURL("reminders")
	if err != nil {
		return err
	}

	collection := ""
	if nr.ListName != "" {
		collection, err = s.findList(ctx, nr.ListName)
		if err != nil {
			return err
		}
	}

	payload := map[string]any{
		"guid":  uuid.NewString(),
		"title": nr.Title,
	}
	if nr.Description != "" {
		payload["description"] = nr.Description
	}
	if collection != "" {
		payload["pGuid"] = collection
	}
	if !nr.Due.IsZero() {
		t := nr.Due
		payload["dueDate"] = []int{t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute()}
	}

	body := map[string]any{"Reminders": payload}
	if err := s.client.Post(ctx, base+"/rd/reminders/tasks", body, nil); err != nil {
		return fmt.Errorf("create reminder: %w", err)
	}
	return nil
}

// Complete marks a reminder as completed.
func (s *Service) Complete(ctx context.Context, reminderID string) error {
	base, err := s.client.ServiceURL("reminders")
	if err != nil {
		return err
	}

	now := time.Now()
	body := map[string]any{
		"Reminders": map[string]any{
			"guid":          reminderID,
			"completedDate": []int{now.Year(), int(now.Month()), now.Day(), now.Hour(), now.Minute()},
		},
	}
	if err := s.client.Post(ctx, base+"/rd/reminders/tasks/complete", body, nil); err != nil {
		return fmt.Errorf("complete reminder: %w", err)
	}
	return nil
}

// Delete removes a reminder.
func (s *Service) Delete(ctx context.Context, reminderID string) error {
	base, err := s.client.ServiceURL("reminders")
	if err != nil {
		return err
	}
	body := map[string]any{"Reminders": map[string]any{"guid": reminderID}}
	if err := s.client.Post(ctx, base+"/rd/reminders/tasks/delete", body, nil); err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return nil
}

// findList resolves a list name to its collection GUID, empty when unknown.
func (s *Service) findList(ctx context.Context, name string) (string, error) {
	base, err := s.client.ServiceURL("reminders")
	if err != nil {
		return "", err
	}

	var resp startupResponse
	if err := s.client.Get(ctx, base+"/rd/startup", url.Values{"lang": {"en-us"}}, &resp); err != nil {
		return "", err
	}
	for _, c := range resp.Collections {
		if strings.EqualFold(c.Title, name) {
			return c.GUID, nil
		}
	}
	return "", nil
}

// priorityName maps the service's numeric priorities to display names.
func priorityName(p int) string {
	switch p {
	case 1:
		return "High"
	case 5:
		return "Medium"
	case 9:
		return "Low"
	}
	return ""
}

// formatDueDate renders the service's polymorphic due-date forms (strings,
// [y,m,d,h,m] arrays, epoch milliseconds) as "YYYY-MM-DD HH:MM".
func formatDueDate(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, d); err == nil {
				return t.Format("2006-01-02 15:04")
			}
		}
		return d
	case float64:
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

// Adapter exposes the reminders service to the sync orchestrator. The sync
// includes completed reminders; consumers filter on read.
type Adapter struct {
	svc *Service
}

func NewAdapter(svc *Service) *Adapter {
	return &Adapter{svc: svc}
}

func (a *Adapter) Domain() string { return "reminders" }

func (a *Adapter) Sync(ctx context.Context) ([]sync.Record, error) {
	items, err := a.svc.List(ctx, ListOptions{ShowCompleted: true})
	if err != nil {
		return nil, err
	}

	records := make([]sync.Record, 0, len(items))
	for _, r := range items {
		records = append(records, sync.Record{
			"id":        r.ID,
			"title":     r.Title,
			"list":      r.List,
			"due_date":  r.DueDate,
			"priority":  r.Priority,
			"completed": r.Completed,
		})
	}
	return records, nil
}
