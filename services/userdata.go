package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"task-rewards-system/models"
	"task-rewards-system/store"
)

// RemoteStore is the capability surface of the remote document database.
// Declared here so tests can swap in failing stubs.
type RemoteStore interface {
	TestConnection(ctx context.Context) error
	CreateOrUpdateUser(ctx context.Context, userID, email, displayName string) error
	GetUserData(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateUserStats(ctx context.Context, userID string, stats models.UserStats) error
	AddTask(ctx context.Context, userID string, fields models.TaskFields) (string, error)
	CompleteTask(ctx context.Context, userID, taskID string) error
	GetUserTasks(ctx context.Context, userID string) ([]models.Task, error)
	GetCompletedTasks(ctx context.Context, userID string) ([]models.Task, error)
	RedeemVoucher(ctx context.Context, userID string, fields models.VoucherFields) (string, error)
	GetRedeemedVouchers(ctx context.Context, userID string) ([]models.RedeemedVoucher, error)
	ResetUserData(ctx context.Context, userID string) error
}

// LocalStore is the capability surface of the on-device fallback store.
type LocalStore interface {
	GetUserData(userID string) *models.UserProfile
	SaveUserData(userID string, profile *models.UserProfile) error
	UpdateUserStats(userID string, stats models.UserStats) error
	GetUserTasks(userID string) []models.Task
	AddTask(userID string, fields models.TaskFields) (string, error)
	SaveTask(userID string, task models.Task) error
	CompleteTask(userID, taskID string) error
	GetCompletedTasks(userID string) []models.Task
	RedeemVoucher(userID string, fields models.VoucherFields) (string, error)
	SaveRedeemedVoucher(userID string, voucher models.RedeemedVoucher) error
	GetRedeemedVouchers(userID string) []models.RedeemedVoucher
	ClearActivityData(userID string)
}

// WriteOutcome tells callers how far a write actually got. Hooks apply their
// in-memory updates either way; a stricter consumer could reconcile
// AppliedLocal writes later.
type WriteOutcome int

const (
	// ConfirmedRemote means the remote store accepted the write.
	ConfirmedRemote WriteOutcome = iota
	// AppliedLocal means only the on-device store holds the write.
	AppliedLocal
)

func (o WriteOutcome) String() string {
	if o == ConfirmedRemote {
		return "confirmed-remote"
	}
	return "applied-local"
}

const (
	maxRetries       = 3
	operationTimeout = 15 * time.Second
)

// Backoff between retry attempts: doubling per attempt, capped. Vars so tests
// can shrink them.
var (
	retryBaseDelay = 1 * time.Second
	retryMaxDelay  = 5 * time.Second
)

// UserDataService is the single entry point the hooks call. It decides which
// store answers each request, retries transient remote failures with backoff,
// and cascades to the local store when the remote backend is unreachable.
//
// The operating-mode flag starts optimistic and is pinned to local-fallback on
// the first connectivity failure; only an explicit probe flips it back.
type UserDataService struct {
	remote RemoteStore
	local  LocalStore

	mu              sync.Mutex
	remoteAvailable bool
}

// NewUserDataService wires the two store adapters. A nil remote store starts
// the service permanently in local-fallback mode.
func NewUserDataService(remote RemoteStore, local LocalStore) *UserDataService {
	return &UserDataService{
		remote:          remote,
		local:           local,
		remoteAvailable: remote != nil,
	}
}

// RemoteAvailable reports the current operating mode.
func (s *UserDataService) RemoteAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remoteAvailable
}

func (s *UserDataService) setRemoteAvailable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remoteAvailable = v
}

// markUnavailable pins the service to local-fallback mode when the failure was
// a connectivity one. Permission and validation failures leave the mode alone.
func (s *UserDataService) markUnavailable(err error) {
	if store.Retryable(err) {
		log.Printf("⚠️ UserDataService - remote unavailable, switching to local fallback: %v", err)
		s.setRemoteAvailable(false)
	}
}

// TestConnection probes the remote backend and flips the operating mode to
// match the result. This is the only way back out of local-fallback mode.
func (s *UserDataService) TestConnection(ctx context.Context) bool {
	if s.remote == nil {
		return false
	}
	if err := s.remote.TestConnection(ctx); err != nil {
		log.Printf("⚠️ UserDataService - connection probe failed: %v", err)
		s.setRemoteAvailable(false)
		return false
	}
	s.setRemoteAvailable(true)
	return true
}

// retry runs op up to maxRetries times, sleeping with doubling, capped delays
// between attempts. Only transient failures are retried; anything else fails
// fast.
func (s *UserDataService) retry(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !store.Retryable(lastErr) {
			return lastErr
		}
		log.Printf("⚠️ UserDataService - attempt %d failed: %v", attempt, lastErr)
		if attempt == maxRetries {
			break
		}
		delay := retryBaseDelay << (attempt - 1)
		if delay > retryMaxDelay {
			delay = retryMaxDelay
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return lastErr
		}
	}
	return lastErr
}

// CreateOrUpdateUser ensures a profile exists for the user id: created on the
// first authenticated session, lastLoginAt bumped on every later one.
func (s *UserDataService) CreateOrUpdateUser(ctx context.Context, userID, email, displayName string) error {
	if s.RemoteAvailable() {
		err := s.retry(ctx, func() error {
			return s.remote.CreateOrUpdateUser(ctx, userID, email, displayName)
		})
		if err == nil {
			return nil
		}
		s.markUnavailable(err)
		log.Printf("⚠️ UserDataService - remote profile upsert failed, falling back to local: %v", err)
	}
	return s.ensureLocalProfile(userID, email, displayName)
}

func (s *UserDataService) ensureLocalProfile(userID, email, displayName string) error {
	now := time.Now().UTC()
	profile := s.local.GetUserData(userID)
	if profile == nil {
		profile = &models.UserProfile{
			UID:       userID,
			Email:     email,
			CreatedAt: now,
		}
	}
	if displayName != "" {
		profile.DisplayName = displayName
	}
	if email != "" {
		profile.Email = email
	}
	profile.LastLoginAt = now
	return s.local.SaveUserData(userID, profile)
}

// GetUserData reads the profile. Read failures never reach the caller: the
// local store answers when the remote one cannot.
func (s *UserDataService) GetUserData(ctx context.Context, userID string) *models.UserProfile {
	if !s.RemoteAvailable() {
		return s.local.GetUserData(userID)
	}
	profile, err := s.remote.GetUserData(ctx, userID)
	if err != nil {
		s.markUnavailable(err)
		log.Printf("⚠️ UserDataService - error fetching user data from remote, trying local: %v", err)
		return s.local.GetUserData(userID)
	}
	return profile
}

// LocalProfile reads a profile from the on-device store only, bypassing the
// operating mode. The stats hook uses this to restore the anonymous sentinel
// partition on sign-out.
func (s *UserDataService) LocalProfile(userID string) *models.UserProfile {
	return s.local.GetUserData(userID)
}

// UpdateUserStats writes the aggregate. The local store is always written as a
// backup cache; the remote store is attempted on top when available. Stats
// write failures are absorbed — the freshest value always survives locally.
func (s *UserDataService) UpdateUserStats(ctx context.Context, userID string, stats models.UserStats) WriteOutcome {
	if err := s.local.UpdateUserStats(userID, stats); err != nil {
		log.Printf("⚠️ UserDataService - local stats backup failed: %v", err)
	}

	if !s.RemoteAvailable() {
		return AppliedLocal
	}

	err := s.retry(ctx, func() error {
		return s.remote.UpdateUserStats(ctx, userID, stats)
	})
	if err != nil {
		s.markUnavailable(err)
		log.Printf("⚠️ UserDataService - remote stats update failed: %v", err)
		return AppliedLocal
	}
	return ConfirmedRemote
}

// AddTask persists a new task and returns it with its assigned id. The remote
// id wins when the remote write succeeds; the task is then mirrored into the
// local cache so a later fallback read still sees it.
func (s *UserDataService) AddTask(ctx context.Context, userID string, fields models.TaskFields) (models.Task, WriteOutcome, error) {
	if s.RemoteAvailable() {
		var id string
		err := s.retry(ctx, func() error {
			var opErr error
			id, opErr = s.remote.AddTask(ctx, userID, fields)
			return opErr
		})
		if err == nil {
			task := models.Task{
				ID:        id,
				Title:     fields.Title,
				Points:    fields.Points,
				Type:      fields.Type,
				Urgency:   fields.Urgency,
				UserID:    userID,
				CreatedAt: time.Now().UTC(),
			}
			if mirrorErr := s.local.SaveTask(userID, task); mirrorErr != nil {
				log.Printf("⚠️ UserDataService - local task mirror failed: %v", mirrorErr)
			}
			return task, ConfirmedRemote, nil
		}
		s.markUnavailable(err)
		log.Printf("⚠️ UserDataService - error adding task to remote, trying local: %v", err)
	}

	id, err := s.local.AddTask(userID, fields)
	if err != nil {
		return models.Task{}, AppliedLocal, fmt.Errorf("could not save the task: %w", err)
	}
	task := models.Task{
		ID:        id,
		Title:     fields.Title,
		Points:    fields.Points,
		Type:      fields.Type,
		Urgency:   fields.Urgency,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	return task, AppliedLocal, nil
}

// CompleteTask marks the task completed in whichever store is authoritative,
// mirroring the transition locally after a remote success. Completing an id
// that is already gone is a no-op in both stores.
func (s *UserDataService) CompleteTask(ctx context.Context, userID, taskID string) (WriteOutcome, error) {
	if s.RemoteAvailable() {
		err := s.retry(ctx, func() error {
			return s.remote.CompleteTask(ctx, userID, taskID)
		})
		if err == nil {
			if mirrorErr := s.local.CompleteTask(userID, taskID); mirrorErr != nil {
				log.Printf("⚠️ UserDataService - local completion mirror failed: %v", mirrorErr)
			}
			return ConfirmedRemote, nil
		}
		s.markUnavailable(err)
		log.Printf("⚠️ UserDataService - error completing task on remote, trying local: %v", err)
	}

	if err := s.local.CompleteTask(userID, taskID); err != nil {
		return AppliedLocal, err
	}
	return AppliedLocal, nil
}

// GetUserTasks reads the active task list, newest first. Never fails the
// caller: a total miss comes back as an empty list.
func (s *UserDataService) GetUserTasks(ctx context.Context, userID string) []models.Task {
	if !s.RemoteAvailable() {
		return s.local.GetUserTasks(userID)
	}
	var tasks []models.Task
	err := s.retry(ctx, func() error {
		var opErr error
		tasks, opErr = s.remote.GetUserTasks(ctx, userID)
		return opErr
	})
	if err != nil {
		s.markUnavailable(err)
		log.Printf("⚠️ UserDataService - error fetching tasks from remote, trying local: %v", err)
		return s.local.GetUserTasks(userID)
	}
	return tasks
}

// GetCompletedTasks reads the completion history, most recent first.
func (s *UserDataService) GetCompletedTasks(ctx context.Context, userID string) []models.Task {
	if !s.RemoteAvailable() {
		return s.local.GetCompletedTasks(userID)
	}
	tasks, err := s.remote.GetCompletedTasks(ctx, userID)
	if err != nil {
		s.markUnavailable(err)
		log.Printf("⚠️ UserDataService - error fetching completed tasks from remote, trying local: %v", err)
		return s.local.GetCompletedTasks(userID)
	}
	return tasks
}

// RedeemVoucher records a redemption receipt and returns it with its assigned
// id. Balance checks belong to the stats hook; by the time this runs the
// redemption has been approved.
func (s *UserDataService) RedeemVoucher(ctx context.Context, userID string, fields models.VoucherFields) (models.RedeemedVoucher, WriteOutcome, error) {
	if s.RemoteAvailable() {
		var id string
		err := s.retry(ctx, func() error {
			var opErr error
			id, opErr = s.remote.RedeemVoucher(ctx, userID, fields)
			return opErr
		})
		if err == nil {
			voucher := models.RedeemedVoucher{
				ID:         id,
				VoucherID:  fields.VoucherID,
				Title:      fields.Title,
				Points:     fields.Points,
				UserID:     userID,
				RedeemedAt: time.Now().UTC(),
			}
			if mirrorErr := s.local.SaveRedeemedVoucher(userID, voucher); mirrorErr != nil {
				log.Printf("⚠️ UserDataService - local voucher mirror failed: %v", mirrorErr)
			}
			return voucher, ConfirmedRemote, nil
		}
		s.markUnavailable(err)
		log.Printf("⚠️ UserDataService - error recording redemption on remote, trying local: %v", err)
	}

	id, err := s.local.RedeemVoucher(userID, fields)
	if err != nil {
		return models.RedeemedVoucher{}, AppliedLocal, fmt.Errorf("could not record the redemption: %w", err)
	}
	voucher := models.RedeemedVoucher{
		ID:         id,
		VoucherID:  fields.VoucherID,
		Title:      fields.Title,
		Points:     fields.Points,
		UserID:     userID,
		RedeemedAt: time.Now().UTC(),
	}
	return voucher, AppliedLocal, nil
}

// GetRedeemedVouchers reads the redemption history, most recent first.
func (s *UserDataService) GetRedeemedVouchers(ctx context.Context, userID string) []models.RedeemedVoucher {
	if !s.RemoteAvailable() {
		return s.local.GetRedeemedVouchers(userID)
	}
	vouchers, err := s.remote.GetRedeemedVouchers(ctx, userID)
	if err != nil {
		s.markUnavailable(err)
		log.Printf("⚠️ UserDataService - error fetching redemptions from remote, trying local: %v", err)
		return s.local.GetRedeemedVouchers(userID)
	}
	return vouchers
}

// ResetUserData zeroes the stats and wipes the activity collections. Against
// the remote backend every owned task and voucher document is deleted; in
// local-fallback mode only the on-device data is touched.
func (s *UserDataService) ResetUserData(ctx context.Context, userID string) error {
	if !s.RemoteAvailable() {
		if err := s.local.UpdateUserStats(userID, models.UserStats{}); err != nil {
			return err
		}
		s.local.ClearActivityData(userID)
		return nil
	}

	err := s.retry(ctx, func() error {
		return s.remote.ResetUserData(ctx, userID)
	})
	if err != nil {
		s.markUnavailable(err)
		return err
	}

	// Keep the local cache in step with the fresh remote state.
	if localErr := s.local.UpdateUserStats(userID, models.UserStats{}); localErr != nil {
		log.Printf("⚠️ UserDataService - local stats reset failed: %v", localErr)
	}
	s.local.ClearActivityData(userID)
	return nil
}
