package session

import (
	"log"
	"sync"

	"task-rewards-system/analytics"
	"task-rewards-system/auth"
	"task-rewards-system/models"
	"task-rewards-system/services"
	"task-rewards-system/store"
)

// Tasks mirrors the user's active-task list in memory.
type Tasks struct {
	svc *services.UserDataService
	an  *analytics.Client

	mu     sync.RWMutex
	userID string
	tasks  []models.Task
}

func NewTasks(svc *services.UserDataService, an *analytics.Client) *Tasks {
	return &Tasks{svc: svc, an: an}
}

// Subscribe wires the container to auth-state changes.
func (h *Tasks) Subscribe(n *auth.Notifier) {
	n.OnAuthStateChanged(h.HandleAuthChange)
}

// HandleAuthChange loads the active list for a newly signed-in user, or clears
// it on sign-out. Unlike stats, task lists are not restored from the local
// sentinel: anonymous task lists are ephemeral.
func (h *Tasks) HandleAuthChange(user *auth.User) {
	if user == nil {
		h.mu.Lock()
		h.userID = ""
		h.tasks = nil
		h.mu.Unlock()
		return
	}

	ctx, cancel := opContext()
	defer cancel()

	if !h.svc.TestConnection(ctx) {
		log.Printf("⚠️ session.Tasks - remote probe failed, loading tasks from fallback")
	}
	tasks := h.svc.GetUserTasks(ctx, user.UID)

	h.mu.Lock()
	h.userID = user.UID
	h.tasks = tasks
	h.mu.Unlock()
}

// List returns a copy of the in-memory active list, newest first.
func (h *Tasks) List() []models.Task {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.Task, len(h.tasks))
	copy(out, h.tasks)
	return out
}

// Add persists a new task and prepends it to the in-memory list without
// waiting for a re-fetch. Requires an authenticated session.
func (h *Tasks) Add(fields models.TaskFields) (models.Task, error) {
	h.mu.RLock()
	userID := h.userID
	h.mu.RUnlock()

	if userID == "" {
		log.Printf("❌ session.Tasks - cannot add task: user not authenticated")
		return models.Task{}, store.ErrUnauthenticated
	}

	ctx, cancel := opContext()
	defer cancel()
	task, _, err := h.svc.AddTask(ctx, userID, fields)
	if err != nil {
		log.Printf("❌ session.Tasks - error adding task: %v", err)
		return models.Task{}, err
	}

	h.mu.Lock()
	h.tasks = append([]models.Task{task}, h.tasks...)
	h.mu.Unlock()

	h.an.Log(analytics.EventTaskCreated, userID, analytics.Params{
		"task_title": fields.Title,
		"points":     fields.Points,
	})
	return task, nil
}

// Complete persists the completion and removes the task from the in-memory
// list regardless of whether the persistence call succeeded: the user's
// perceived state always reflects "task gone".
func (h *Tasks) Complete(taskID string) error {
	h.mu.RLock()
	userID := h.userID
	h.mu.RUnlock()

	if userID == "" {
		log.Printf("❌ session.Tasks - cannot complete task: user not authenticated")
		return store.ErrUnauthenticated
	}

	var title string
	var points int
	known := false

	ctx, cancel := opContext()
	defer cancel()
	if _, err := h.svc.CompleteTask(ctx, userID, taskID); err != nil {
		log.Printf("⚠️ session.Tasks - error completing task %s: %v", taskID, err)
	}

	h.mu.Lock()
	remaining := h.tasks[:0]
	for _, t := range h.tasks {
		if t.ID == taskID {
			title = t.Title
			points = t.Points
			known = true
			continue
		}
		remaining = append(remaining, t)
	}
	h.tasks = remaining
	h.mu.Unlock()

	// An id that was never in the list completes as a no-op; no event either.
	if known {
		h.an.Log(analytics.EventTaskCompleted, userID, analytics.Params{
			"task_title": title,
			"points":     points,
		})
	}
	return nil
}

// Reload re-fetches the full active list and replaces the in-memory state.
func (h *Tasks) Reload() {
	h.mu.RLock()
	userID := h.userID
	h.mu.RUnlock()

	if userID == "" {
		return
	}

	ctx, cancel := opContext()
	defer cancel()
	tasks := h.svc.GetUserTasks(ctx, userID)

	h.mu.Lock()
	h.tasks = tasks
	h.mu.Unlock()
}
