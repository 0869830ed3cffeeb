// Package analytics is a fire-and-forget sink for named product events.
// Failures or absence of the sink never affect core behavior: a nil client is
// a no-op, a full buffer drops the event, a failed send is only logged.
package analytics

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Event names emitted by the core.
const (
	EventTaskCreated     = "task_created"
	EventTaskCompleted   = "task_completed"
	EventVoucherRedeemed = "voucher_redeemed"
	EventLogin           = "login"
	EventSignup          = "signup"
	EventLogout          = "logout"
	EventScreenView      = "screen_view"
)

// Params is a flat string/number/boolean parameter map.
type Params map[string]any

type event struct {
	Name      string    `json:"event"`
	UserID    string    `json:"user_id,omitempty"`
	Params    Params    `json:"params,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Client posts events to an HTTP capture endpoint from a single background
// goroutine.
type Client struct {
	captureURL string
	httpClient *http.Client
	events     chan event
}

// NewClient starts the sender goroutine. An empty captureURL returns nil,
// which every method treats as "analytics disabled".
func NewClient(captureURL string) *Client {
	if captureURL == "" {
		return nil
	}
	c := &Client{
		captureURL: captureURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		events:     make(chan event, 256),
	}
	go c.run()
	return c
}

func (c *Client) run() {
	for ev := range c.events {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		resp, err := c.httpClient.Post(c.captureURL, "application/json", bytes.NewReader(payload))
		if err != nil {
			log.Printf("analytics - failed to send %s: %v", ev.Name, err)
			continue
		}
		resp.Body.Close()
	}
}

// Log enqueues an event. Never blocks: when the buffer is full the event is
// dropped on the floor.
func (c *Client) Log(name, userID string, params Params) {
	if c == nil {
		return
	}
	ev := event{Name: name, UserID: userID, Params: params, Timestamp: time.Now().UTC()}
	select {
	case c.events <- ev:
	default:
	}
}

// ScreenView records a screen_view event for the given screen name.
func (c *Client) ScreenView(userID, screenName string) {
	c.Log(EventScreenView, userID, Params{"screen_name": screenName})
}
