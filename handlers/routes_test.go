package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"task-rewards-system/auth"
	"task-rewards-system/config"
	"task-rewards-system/services"
	"task-rewards-system/session"
	"task-rewards-system/store"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	local, err := store.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	svc := services.NewUserDataService(nil, local)
	manager := session.NewManager(svc, nil)

	cfg := &config.Config{
		UrgencyPoints: config.DefaultUrgencyPoints,
		Vouchers: []config.Voucher{
			{ID: "free-coffee", Title: "Free Coffee", Points: 100, Category: "food"},
			{ID: "spa-day", Title: "Spa Day", Points: 500, Category: "wellness"},
		},
	}

	app := fiber.New()
	SetupTaskRoutes(app, manager, cfg, nil)
	SetupUserRoutes(app, manager, cfg, nil)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any, asUser string) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if asUser != "" {
		req.Header.Set("X-User-ID", asUser)
		req.Header.Set("X-User-Email", asUser+"@example.com")
		req.Header.Set("X-User-Name", "Test User")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	var parsed map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode %s %s response: %v", method, path, err)
	}
	resp.Body.Close()
	return resp, parsed
}

func TestSecuredRoutesRequireUserHeader(t *testing.T) {
	app := newTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/s/tasks", nil, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
	if body["error"] == "" {
		t.Error("401 should carry an error message")
	}
}

func TestCreateTaskValidation(t *testing.T) {
	app := newTestApp(t)

	resp, _ := doRequest(t, app, http.MethodPost, "/s/tasks", map[string]any{"type": "study"}, "u1")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing title: status = %d, want 400", resp.StatusCode)
	}
}

func TestTaskLifecycle(t *testing.T) {
	app := newTestApp(t)

	// Create: urgency resolves to points through the policy table.
	resp, created := doRequest(t, app, http.MethodPost, "/s/tasks",
		map[string]any{"title": "Study Go", "type": "study", "urgency": "high"}, "u1")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d, body %v", resp.StatusCode, created)
	}
	if created["points"] != float64(100) {
		t.Errorf("high urgency points = %v, want 100", created["points"])
	}
	taskID, _ := created["id"].(string)
	if taskID == "" {
		t.Fatalf("created task has no id: %v", created)
	}

	// Default urgency is normal.
	_, second := doRequest(t, app, http.MethodPost, "/s/tasks",
		map[string]any{"title": "Laundry"}, "u1")
	if second["points"] != float64(50) {
		t.Errorf("default urgency points = %v, want 50", second["points"])
	}

	// List shows both, newest first.
	_, listBody := doRequest(t, app, http.MethodGet, "/s/tasks", nil, "u1")
	tasks, _ := listBody["tasks"].([]any)
	if len(tasks) != 2 {
		t.Fatalf("list has %d tasks, want 2", len(tasks))
	}
	if first, _ := tasks[0].(map[string]any); first["title"] != "Laundry" {
		t.Errorf("expected newest first, got %v", first["title"])
	}

	// Complete credits the points into the stats.
	resp, completed := doRequest(t, app, http.MethodPost, "/s/tasks/"+taskID+"/complete", nil, "u1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete: status = %d, body %v", resp.StatusCode, completed)
	}
	if completed["completed"] != true || completed["points"] != float64(100) {
		t.Errorf("complete body = %v", completed)
	}
	stats, _ := completed["stats"].(map[string]any)
	if stats["totalPoints"] != float64(100) || stats["tasksCompleted"] != float64(1) {
		t.Errorf("stats after completion = %v", stats)
	}

	// The completed task moved to the history.
	_, historyBody := doRequest(t, app, http.MethodGet, "/s/tasks/completed", nil, "u1")
	history, _ := historyBody["tasks"].([]any)
	if len(history) != 1 {
		t.Fatalf("history has %d tasks, want 1", len(history))
	}

	// Completing an unknown id is a no-op with no credit.
	_, noop := doRequest(t, app, http.MethodPost, "/s/tasks/does-not-exist/complete", nil, "u1")
	if noop["completed"] != false || noop["points"] != float64(0) {
		t.Errorf("unknown-id completion = %v", noop)
	}
}

func TestVoucherCatalogAndRedemption(t *testing.T) {
	app := newTestApp(t)

	_, catalog := doRequest(t, app, http.MethodGet, "/s/vouchers", nil, "u1")
	vouchers, _ := catalog["vouchers"].([]any)
	if len(vouchers) != 2 {
		t.Fatalf("catalog has %d entries, want 2", len(vouchers))
	}

	// Unknown id with no custom title/points is rejected.
	resp, _ := doRequest(t, app, http.MethodPost, "/s/vouchers/redeem",
		map[string]any{"voucher_id": "mystery"}, "u1")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown voucher: status = %d, want 400", resp.StatusCode)
	}

	// Fresh user has no points: catalog redemption conflicts.
	resp, short := doRequest(t, app, http.MethodPost, "/s/vouchers/redeem",
		map[string]any{"voucher_id": "free-coffee"}, "u1")
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("short balance: status = %d, body %v", resp.StatusCode, short)
	}
	if short["required"] != float64(100) {
		t.Errorf("short balance body = %v", short)
	}

	// Earn enough, then redeem. The catalog cost wins over anything supplied.
	_, created := doRequest(t, app, http.MethodPost, "/s/tasks",
		map[string]any{"title": "Big project", "urgency": "high"}, "u1")
	taskID, _ := created["id"].(string)
	doRequest(t, app, http.MethodPost, "/s/tasks/"+taskID+"/complete", nil, "u1")

	resp, redeemed := doRequest(t, app, http.MethodPost, "/s/vouchers/redeem",
		map[string]any{"voucher_id": "free-coffee", "points": 1}, "u1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("redeem: status = %d, body %v", resp.StatusCode, redeemed)
	}
	if redeemed["ok"] != true || redeemed["balance"] != float64(0) {
		t.Errorf("redeem body = %v", redeemed)
	}

	_, historyBody := doRequest(t, app, http.MethodGet, "/s/vouchers/redeemed", nil, "u1")
	history, _ := historyBody["vouchers"].([]any)
	if len(history) != 1 {
		t.Fatalf("redemption history has %d entries, want 1", len(history))
	}
	if receipt, _ := history[0].(map[string]any); receipt["title"] != "Free Coffee" {
		t.Errorf("receipt = %v", history[0])
	}
}

func TestUserStatsEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/s/user/stats", nil, "u1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["remote_available"] != false {
		t.Error("local-only setup should report remote_available=false")
	}
	stats, _ := body["stats"].(map[string]any)
	if stats["totalPoints"] != float64(0) {
		t.Errorf("fresh stats = %v", stats)
	}
	profile, _ := body["profile"].(map[string]any)
	if profile["uid"] != "u1" {
		t.Errorf("profile = %v", profile)
	}
}

func TestResetEndpoint(t *testing.T) {
	app := newTestApp(t)

	_, created := doRequest(t, app, http.MethodPost, "/s/tasks",
		map[string]any{"title": "Study", "urgency": "medium"}, "u1")
	taskID, _ := created["id"].(string)
	doRequest(t, app, http.MethodPost, fmt.Sprintf("/s/tasks/%s/complete", taskID), nil, "u1")

	resp, body := doRequest(t, app, http.MethodPost, "/s/user/reset", nil, "u1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset: status = %d, body %v", resp.StatusCode, body)
	}
	stats, _ := body["stats"].(map[string]any)
	if stats["totalPoints"] != float64(0) || stats["tasksCompleted"] != float64(0) {
		t.Errorf("stats after reset = %v", stats)
	}

	_, historyBody := doRequest(t, app, http.MethodGet, "/s/tasks/completed", nil, "u1")
	if history, _ := historyBody["tasks"].([]any); len(history) != 0 {
		t.Errorf("history survived reset: %v", history)
	}
}

func TestErrorResponsesUseSharedMessages(t *testing.T) {
	app := fiber.New()
	app.Get("/denied", func(c *fiber.Ctx) error { return taskError(c, store.ErrPermissionDenied) })
	app.Get("/anon", func(c *fiber.Ctx) error { return taskError(c, store.ErrUnauthenticated) })

	resp, body := doRequest(t, app, http.MethodGet, "/denied", nil, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("permission status = %d, want 403", resp.StatusCode)
	}
	if body["error"] != auth.FriendlyMessage(auth.CodePermissionDenied) {
		t.Errorf("permission message = %v, want the shared mapping", body["error"])
	}

	resp, body = doRequest(t, app, http.MethodGet, "/anon", nil, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", resp.StatusCode)
	}
	if body["error"] != auth.FriendlyMessage(auth.CodeNotSignedIn) {
		t.Errorf("unauthenticated message = %v, want the shared mapping", body["error"])
	}
}

func TestExportUnavailableWithoutObjectStorage(t *testing.T) {
	app := newTestApp(t)

	resp, body := doRequest(t, app, http.MethodPost, "/s/user/export", nil, "u1")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, body %v, want 503 when object storage is unconfigured", resp.StatusCode, body)
	}
}

func TestUsersAreIsolated(t *testing.T) {
	app := newTestApp(t)

	doRequest(t, app, http.MethodPost, "/s/tasks", map[string]any{"title": "mine"}, "u1")

	_, listBody := doRequest(t, app, http.MethodGet, "/s/tasks", nil, "u2")
	if tasks, _ := listBody["tasks"].([]any); len(tasks) != 0 {
		t.Errorf("u2 sees u1's tasks: %v", tasks)
	}

	resp, _ := doRequest(t, app, http.MethodPost, "/s/session/logout", nil, "u1")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("logout: status = %d", resp.StatusCode)
	}
}
