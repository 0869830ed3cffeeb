package auth

import (
	"sync"
)

// User is the identity the external provider hands us. The id is opaque and
// stable for the lifetime of the account.
type User struct {
	UID         string
	Email       string
	DisplayName string
}

// Callback receives the signed-in user, or nil on sign-out.
type Callback func(user *User)

// Notifier fans auth-state changes out to interested parties, mirroring the
// provider's onAuthStateChanged contract: new subscribers are called
// immediately with the current state.
type Notifier struct {
	mu        sync.Mutex
	current   *User
	callbacks []Callback
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

// OnAuthStateChanged registers a callback and fires it right away with the
// current session state.
func (n *Notifier) OnAuthStateChanged(cb Callback) {
	n.mu.Lock()
	n.callbacks = append(n.callbacks, cb)
	current := n.current
	n.mu.Unlock()

	cb(current)
}

// SignIn records the active session and notifies subscribers. Repeated
// sign-ins for the same user id are delivered again (token refreshes look like
// this), so subscribers must be idempotent.
func (n *Notifier) SignIn(user User) {
	n.mu.Lock()
	n.current = &user
	cbs := append([]Callback(nil), n.callbacks...)
	n.mu.Unlock()

	for _, cb := range cbs {
		cb(&user)
	}
}

// SignOut clears the session and notifies subscribers with nil.
func (n *Notifier) SignOut() {
	n.mu.Lock()
	n.current = nil
	cbs := append([]Callback(nil), n.callbacks...)
	n.mu.Unlock()

	for _, cb := range cbs {
		cb(nil)
	}
}

// CurrentUser returns the active session's user, or nil.
func (n *Notifier) CurrentUser() *User {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return nil
	}
	u := *n.current
	return &u
}

// CurrentUserID returns the active user id, or false when signed out.
func (n *Notifier) CurrentUserID() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return "", false
	}
	return n.current.UID, true
}
