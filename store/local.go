package store

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"task-rewards-system/models"
)

// LocalUserID namespaces on-device data written before anyone signs in.
// Anonymous progress lives under this sentinel and is never merged into an
// authenticated user's partition.
const LocalUserID = "local-user"

// Key prefixes for the four record kinds, one file per user per kind.
const (
	keyUserData         = "user_data_"
	keyUserTasks        = "user_tasks_"
	keyCompletedTasks   = "completed_tasks_"
	keyRedeemedVouchers = "redeemed_vouchers_"
)

// LocalStore is the on-device fallback: JSON record collections keyed by
// prefix+userID under a single data directory. Reads never fail the caller —
// a corrupt or missing file reads as absent/empty. Writes propagate errors,
// since a failed local write with no remote counterpart means data loss.
type LocalStore struct {
	mu  sync.Mutex
	dir string
}

// NewLocalStore creates the data directory if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create local data dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) path(prefix, userID string) string {
	return filepath.Join(s.dir, prefix+userID+".json")
}

func (s *LocalStore) read(prefix, userID string, out any) bool {
	data, err := os.ReadFile(s.path(prefix, userID))
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (s *LocalStore) write(prefix, userID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s%s: %w", prefix, userID, err)
	}
	if err := os.WriteFile(s.path(prefix, userID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s%s: %w", prefix, userID, err)
	}
	return nil
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// newLocalID synthesizes a locally-unique id: millisecond timestamp plus a
// random base36 suffix to avoid collisions within a session.
func newLocalID() string {
	suffix := make([]byte, 9)
	for i := range suffix {
		suffix[i] = base36[rand.Intn(len(base36))]
	}
	return fmt.Sprintf("%d%s", time.Now().UnixMilli(), suffix)
}

// GetUserData returns the stored profile, or nil if absent or unreadable.
func (s *LocalStore) GetUserData(userID string) *models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	var profile models.UserProfile
	if !s.read(keyUserData, userID, &profile) {
		return nil
	}
	return &profile
}

// SaveUserData overwrites the profile wholesale.
func (s *LocalStore) SaveUserData(userID string, profile *models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(keyUserData, userID, profile)
}

// GetUserTasks returns the active task list, newest first by construction
// (new tasks are prepended).
func (s *LocalStore) GetUserTasks(userID string) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readTasks(keyUserTasks, userID)
}

func (s *LocalStore) readTasks(prefix, userID string) []models.Task {
	tasks := []models.Task{}
	s.read(prefix, userID, &tasks)
	return tasks
}

// AddTask prepends a new active task and persists the whole list, returning
// the assigned id.
func (s *LocalStore) AddTask(userID string, fields models.TaskFields) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := models.Task{
		ID:        newLocalID(),
		Title:     fields.Title,
		Points:    fields.Points,
		Type:      fields.Type,
		Urgency:   fields.Urgency,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
		Completed: false,
	}

	tasks := append([]models.Task{task}, s.readTasks(keyUserTasks, userID)...)
	if err := s.write(keyUserTasks, userID, tasks); err != nil {
		return "", err
	}
	return task.ID, nil
}

// SaveTask prepends an already-built task (typically one the remote store
// assigned an id to) into the active list, so fallback reads stay consistent
// with remote writes.
func (s *LocalStore) SaveTask(userID string, task models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := append([]models.Task{task}, s.readTasks(keyUserTasks, userID)...)
	return s.write(keyUserTasks, userID, tasks)
}

// SaveRedeemedVoucher prepends an already-built redemption receipt, mirroring
// a remote redemption into the local history.
func (s *LocalStore) SaveRedeemedVoucher(userID string, voucher models.RedeemedVoucher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	vouchers := []models.RedeemedVoucher{}
	s.read(keyRedeemedVouchers, userID, &vouchers)
	vouchers = append([]models.RedeemedVoucher{voucher}, vouchers...)
	return s.write(keyRedeemedVouchers, userID, vouchers)
}

// CompleteTask copies the task into the completed history, then removes it
// from the active list. Unknown ids still run the removal, so a second call
// with the same id is a no-op.
func (s *LocalStore) CompleteTask(userID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.readTasks(keyUserTasks, userID)
	for _, t := range tasks {
		if t.ID == taskID {
			now := time.Now().UTC()
			t.Completed = true
			t.CompletedAt = &now
			completed := append([]models.Task{t}, s.readTasks(keyCompletedTasks, userID)...)
			if err := s.write(keyCompletedTasks, userID, completed); err != nil {
				return err
			}
			break
		}
	}

	remaining := tasks[:0]
	for _, t := range tasks {
		if t.ID != taskID {
			remaining = append(remaining, t)
		}
	}
	return s.write(keyUserTasks, userID, remaining)
}

// GetCompletedTasks returns the completed history ordered by completion time
// (creation time when missing), most recent first. Sorted at read, not
// maintained incrementally.
func (s *LocalStore) GetCompletedTasks(userID string) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := s.readTasks(keyCompletedTasks, userID)
	sort.SliceStable(tasks, func(i, j int) bool {
		return taskHistoryTime(tasks[i]).After(taskHistoryTime(tasks[j]))
	})
	return tasks
}

func taskHistoryTime(t models.Task) time.Time {
	if t.CompletedAt != nil {
		return *t.CompletedAt
	}
	return t.CreatedAt
}

// UpdateUserStats merges new stats into the stored profile, creating a minimal
// default profile first if none exists, and bumps lastLoginAt.
func (s *LocalStore) UpdateUserStats(userID string, stats models.UserStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var profile models.UserProfile
	if !s.read(keyUserData, userID, &profile) {
		now := time.Now().UTC()
		profile = models.UserProfile{
			UID:         userID,
			Email:       "local@example.com",
			CreatedAt:   now,
			LastLoginAt: now,
		}
	}

	profile.Stats = stats
	profile.LastLoginAt = time.Now().UTC()
	return s.write(keyUserData, userID, &profile)
}

// RedeemVoucher prepends a new redemption receipt and returns the assigned id.
func (s *LocalStore) RedeemVoucher(userID string, fields models.VoucherFields) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	voucher := models.RedeemedVoucher{
		ID:         newLocalID(),
		VoucherID:  fields.VoucherID,
		Title:      fields.Title,
		Points:     fields.Points,
		UserID:     userID,
		RedeemedAt: time.Now().UTC(),
	}

	vouchers := []models.RedeemedVoucher{}
	s.read(keyRedeemedVouchers, userID, &vouchers)
	vouchers = append([]models.RedeemedVoucher{voucher}, vouchers...)
	if err := s.write(keyRedeemedVouchers, userID, vouchers); err != nil {
		return "", err
	}
	return voucher.ID, nil
}

// GetRedeemedVouchers returns the redemption history, most recent first.
func (s *LocalStore) GetRedeemedVouchers(userID string) []models.RedeemedVoucher {
	s.mu.Lock()
	defer s.mu.Unlock()

	vouchers := []models.RedeemedVoucher{}
	s.read(keyRedeemedVouchers, userID, &vouchers)
	sort.SliceStable(vouchers, func(i, j int) bool {
		return vouchers[i].RedeemedAt.After(vouchers[j].RedeemedAt)
	})
	return vouchers
}

// ClearUserData removes the profile, active task list and redemption history.
// Completed-task history is a separate concern and survives this call; only
// the full reset path touches it.
func (s *LocalStore) ClearUserData(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, prefix := range []string{keyUserData, keyUserTasks, keyRedeemedVouchers} {
		_ = os.Remove(s.path(prefix, userID))
	}
}

// ClearActivityData removes every activity list for the user (active tasks,
// completed history, redemptions) but keeps the profile. Used by the reset
// path, which zeroes stats separately.
func (s *LocalStore) ClearActivityData(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, prefix := range []string{keyUserTasks, keyCompletedTasks, keyRedeemedVouchers} {
		_ = os.Remove(s.path(prefix, userID))
	}
}
