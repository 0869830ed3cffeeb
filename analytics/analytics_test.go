package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDisabledClientIsNoOp(t *testing.T) {
	c := NewClient("")
	if c != nil {
		t.Fatal("empty capture URL should disable the client")
	}
	// Every method must be safe on the nil client.
	c.Log(EventLogin, "u1", nil)
	c.ScreenView("u1", "home")
}

func TestLogPostsEvent(t *testing.T) {
	received := make(chan event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			t.Errorf("decode: %v", err)
		}
		received <- ev
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.Log(EventTaskCompleted, "u1", Params{"task_title": "Study", "points": 70})

	select {
	case ev := <-received:
		if ev.Name != EventTaskCompleted || ev.UserID != "u1" {
			t.Errorf("event = %+v", ev)
		}
		if ev.Params["task_title"] != "Study" {
			t.Errorf("params = %+v", ev.Params)
		}
		if ev.Timestamp.IsZero() {
			t.Error("timestamp not set")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the capture endpoint")
	}
}

func TestScreenView(t *testing.T) {
	received := make(chan event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev event
		_ = json.NewDecoder(r.Body).Decode(&ev)
		received <- ev
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	c.ScreenView("u1", "rewards")

	select {
	case ev := <-received:
		if ev.Name != EventScreenView || ev.Params["screen_name"] != "rewards" {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached the capture endpoint")
	}
}
