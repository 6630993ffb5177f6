package reminders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jfarrell/icloud-cli/internal/icloud"
)

func testClient(t *testing.T, srv *httptest.Server) *icloud.Client {
	t.Helper()
	c, err := icloud.New("user@example.com", t.TempDir())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c.SetServiceURL("reminders", srv.URL)
	return c
}

func startupFixture() map[string]any {
	return map[string]any{
		"Collections": []map[string]any{
			{"guid": "list-1", "title": "Groceries"},
			{"guid": "list-2", "title": "Work"},
		},
		"Reminders": []map[string]any{
			{
				"guid":     "rem-1",
				"pGuid":    "list-1",
				"title":    "Buy milk",
				"dueDate":  []int{20250602, 2025, 6, 2, 9, 30},
				"priority": 1,
			},
			{
				"guid":          "rem-2",
				"pGuid":         "list-1",
				"title":         "Buy eggs",
				"priority":      9,
				"completedDate": []int{20250601, 2025, 6, 1, 8, 0},
			},
			{
				"guid":     "rem-3",
				"pGuid":    "list-2",
				"title":    "File report",
				"priority": 5,
			},
			{
				"guid":  "rem-4",
				"pGuid": "list-missing",
			},
		},
	}
}

func TestList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rd/startup" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(startupFixture())
	}))
	defer srv.Close()

	svc := New(testClient(t, srv))
	items, err := svc.List(context.Background(), ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d reminders, want 3 (completed excluded)", len(items))
	}

	first := items[0]
	if first.Title != "Buy milk" {
		t.Errorf("title = %q", first.Title)
	}
	if first.List != "Groceries" {
		t.Errorf("list = %q", first.List)
	}
	if first.Priority != "High" {
		t.Errorf("priority = %q", first.Priority)
	}
	if first.DueDate != "2025-06-02 09:30" {
		t.Errorf("due date = %q", first.DueDate)
	}

	for _, it := range items {
		if it.ID == "rem-4" {
			if it.Title != "Untitled" {
				t.Errorf("missing title rendered as %q", it.Title)
			}
			if it.List != "Untitled List" {
				t.Errorf("missing list rendered as %q", it.List)
			}
		}
	}
}

func TestListShowCompleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(startupFixture())
	}))
	defer srv.Close()

	svc := New(testClient(t, srv))
	items, err := svc.List(context.Background(), ListOptions{ShowCompleted: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("got %d reminders, want 4", len(items))
	}

	found := false
	for _, it := range items {
		if it.ID == "rem-2" {
			found = true
			if !it.Completed {
				t.Error("rem-2 should be completed")
			}
		}
	}
	if !found {
		t.Error("completed reminder missing from listing")
	}
}

func TestListFilterByList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(startupFixture())
	}))
	defer srv.Close()

	svc := New(testClient(t, srv))
	items, err := svc.List(context.Background(), ListOptions{ListName: "work"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Title != "File report" {
		t.Fatalf("list filter returned %+v", items)
	}
}

func TestAddResolvesList(t *testing.T) {
	var created map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rd/startup":
			json.NewEncoder(w).Encode(startupFixture())
		case "/rd/reminders/tasks":
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			created, _ = body["Reminders"].(map[string]any)
			w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	svc := New(testClient(t, srv))
	due := time.Date(2025, 7, 1, 14, 0, 0, 0, time.UTC)
	err := svc.Add(context.Background(), NewReminder{Title: "Sync notes", Due: due, ListName: "Work"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	if created["title"] != "Sync notes" {
		t.Errorf("title = %v", created["title"])
	}
	if created["pGuid"] != "list-2" {
		t.Errorf("pGuid = %v", created["pGuid"])
	}
	if created["guid"] == "" || created["guid"] == nil {
		t.Error("guid not set")
	}
	dd, ok := created["dueDate"].([]any)
	if !ok || len(dd) != 5 {
		t.Fatalf("dueDate = %v", created["dueDate"])
	}
	if dd[0].(float64) != 2025 || dd[4].(float64) != 0 {
		t.Errorf("dueDate = %v", dd)
	}
}

func TestCompleteAndDelete(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	svc := New(testClient(t, srv))
	if err := svc.Complete(context.Background(), "rem-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := svc.Delete(context.Background(), "rem-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	want := []string{"/rd/reminders/tasks/complete", "/rd/reminders/tasks/delete"}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("paths = %v", paths)
	}
}

func TestFormatDueDate(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"iso string", "2025-06-02T09:30:00", "2025-06-02 09:30"},
		{"date only", "2025-06-02", "2025-06-02 00:00"},
		{"epoch ms", float64(1748856600000), "2025-06-02 09:30"},
		{"packed array", []any{float64(20250602), float64(2025), float64(6), float64(2), float64(9), float64(30)}, "2025-06-02 09:30"},
		{"plain array", []any{float64(2025), float64(6), float64(2), float64(9), float64(30)}, "2025-06-02 09:30"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatDueDate(tc.in); got != tc.want {
				t.Errorf("formatDueDate(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestAdapterIncludesCompleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(startupFixture())
	}))
	defer srv.Close()

	a := NewAdapter(New(testClient(t, srv)))
	if a.Domain() != "reminders" {
		t.Fatalf("domain = %q", a.Domain())
	}
	records, err := a.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("got %d records, want 4", len(records))
	}
}
