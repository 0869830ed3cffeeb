package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"task-rewards-system/auth"
)

func newWhoamiApp(authClient *auth.Client) *fiber.App {
	app := fiber.New()
	app.Use(UserContextMiddleware(authClient))
	app.Get("/s/whoami", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": c.Locals("user_id"),
			"email":   c.Locals("user_email"),
		})
	})
	return app
}

func whoami(t *testing.T, app *fiber.App, decorate func(*http.Request)) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/s/whoami", nil)
	if decorate != nil {
		decorate(req)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	return resp, body
}

func TestGatewayHeadersResolveIdentity(t *testing.T) {
	app := newWhoamiApp(nil)

	resp, body := whoami(t, app, func(r *http.Request) {
		r.Header.Set("X-User-ID", "u1")
		r.Header.Set("X-User-Email", "u1@example.com")
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["user_id"] != "u1" || body["email"] != "u1@example.com" {
		t.Errorf("identity = %v", body)
	}
}

func TestSecuredRouteRejectsAnonymous(t *testing.T) {
	app := newWhoamiApp(nil)

	resp, _ := whoami(t, app, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestBearerTokenFallbackResolvesIdentity(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/validate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			AccessToken string `json:"access_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.AccessToken != "session-tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(auth.ValidateResponse{
			UserID: "u9",
			Email:  "u9@example.com",
		})
	}))
	defer provider.Close()

	app := newWhoamiApp(auth.NewClient(provider.URL, "service-token"))

	resp, body := whoami(t, app, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer session-tok")
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, body)
	}
	if body["user_id"] != "u9" || body["email"] != "u9@example.com" {
		t.Errorf("identity = %v", body)
	}

	// Gateway headers still win over the token when both are present.
	resp, body = whoami(t, app, func(r *http.Request) {
		r.Header.Set("X-User-ID", "u1")
		r.Header.Set("Authorization", "Bearer session-tok")
	})
	if resp.StatusCode != http.StatusOK || body["user_id"] != "u1" {
		t.Errorf("status = %d, identity = %v", resp.StatusCode, body)
	}
}

func TestBearerTokenFallbackRejectsInvalidToken(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer provider.Close()

	app := newWhoamiApp(auth.NewClient(provider.URL, "service-token"))

	resp, _ := whoami(t, app, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer bad-tok")
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}
