package session

import (
	"context"
	"sync"

	"task-rewards-system/analytics"
	"task-rewards-system/auth"
	"task-rewards-system/models"
	"task-rewards-system/services"
)

// Session pairs the two state containers for one signed-in user.
type Session struct {
	Stats *Stats
	Tasks *Tasks
}

// Manager creates and tracks one Session per active user id. The HTTP layer
// calls Ensure on the first request of a session and SignOut on logout; the
// containers themselves behave exactly as if an auth-state callback had fired.
type Manager struct {
	svc *services.UserDataService
	an  *analytics.Client

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(svc *services.UserDataService, an *analytics.Client) *Manager {
	return &Manager{
		svc:      svc,
		an:       an,
		sessions: make(map[string]*Session),
	}
}

// Ensure returns the session for the user, initializing the containers on
// first sight (profile upsert, stats seed, task load).
func (m *Manager) Ensure(user auth.User) *Session {
	m.mu.Lock()
	if sess, ok := m.sessions[user.UID]; ok {
		m.mu.Unlock()
		return sess
	}
	sess := &Session{
		Stats: NewStats(m.svc, m.an),
		Tasks: NewTasks(m.svc, m.an),
	}
	m.sessions[user.UID] = sess
	m.mu.Unlock()

	sess.Stats.HandleAuthChange(&user)
	sess.Tasks.HandleAuthChange(&user)
	m.an.Log(analytics.EventLogin, user.UID, nil)
	return sess
}

// Get returns the session for a user id, or nil when none is active.
func (m *Manager) Get(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[userID]
}

// CompletedTasks reads the completion history through the data access
// service. History views are not mirrored in container state; they are
// fetched on demand.
func (m *Manager) CompletedTasks(ctx context.Context, userID string) []models.Task {
	return m.svc.GetCompletedTasks(ctx, userID)
}

// RedeemedVouchers reads the redemption history, most recent first.
func (m *Manager) RedeemedVouchers(ctx context.Context, userID string) []models.RedeemedVoucher {
	return m.svc.GetRedeemedVouchers(ctx, userID)
}

// UserData reads the profile through the data access service.
func (m *Manager) UserData(ctx context.Context, userID string) *models.UserProfile {
	return m.svc.GetUserData(ctx, userID)
}

// RemoteAvailable reports the data access service's operating mode.
func (m *Manager) RemoteAvailable() bool {
	return m.svc.RemoteAvailable()
}

// SignOut fires the sign-out transition on the user's containers (stats fall
// back to the anonymous sentinel, tasks clear) and drops the session.
func (m *Manager) SignOut(userID string) {
	m.mu.Lock()
	sess, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	sess.Stats.HandleAuthChange(nil)
	sess.Tasks.HandleAuthChange(nil)
	m.an.Log(analytics.EventLogout, userID, nil)
}
