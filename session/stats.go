// Package session holds the presentation-facing state containers: in-memory
// mirrors of stats and tasks that call the data access service and apply
// optimistic updates. UI state always moves; persistence catches up (or
// doesn't — the service's fallback already absorbed the failure).
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"task-rewards-system/analytics"
	"task-rewards-system/auth"
	"task-rewards-system/models"
	"task-rewards-system/services"
	"task-rewards-system/store"
)

const opTimeout = 30 * time.Second

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

// RedeemResult is the answer to a redemption attempt. Insufficient points is a
// business-rule rejection, not an error: OK is false and Required/Balance give
// the UI enough to explain why.
type RedeemResult struct {
	OK       bool                  `json:"ok"`
	Reason   string                `json:"reason,omitempty"`
	Required int                   `json:"required,omitempty"`
	Balance  int                   `json:"balance"`
	Voucher  models.RedeemedVoucher `json:"voucher,omitempty"`
	Outcome  string                `json:"outcome,omitempty"`
}

// Stats mirrors the user's aggregate stats and profile in memory.
type Stats struct {
	svc *services.UserDataService
	an  *analytics.Client

	mu      sync.RWMutex
	userID  string // empty while signed out
	stats   models.UserStats
	profile *models.UserProfile
}

func NewStats(svc *services.UserDataService, an *analytics.Client) *Stats {
	return &Stats{svc: svc, an: an}
}

// Subscribe wires the container to auth-state changes.
func (h *Stats) Subscribe(n *auth.Notifier) {
	n.OnAuthStateChanged(h.HandleAuthChange)
}

// HandleAuthChange re-initializes the container for the newly active user.
// On sign-in the profile is created if absent and the stats seeded from
// whatever store answers; on sign-out the anonymous sentinel partition is
// restored so local-only progress is not lost.
func (h *Stats) HandleAuthChange(user *auth.User) {
	if user == nil {
		h.loadLocalStats()
		return
	}

	ctx, cancel := opContext()
	defer cancel()

	if err := h.svc.CreateOrUpdateUser(ctx, user.UID, user.Email, user.DisplayName); err != nil {
		log.Printf("⚠️ session.Stats - profile upsert failed for %s: %v", user.UID, err)
	}

	profile := h.svc.GetUserData(ctx, user.UID)
	if profile == nil {
		// First session with nothing persisted anywhere yet: seed zeroed stats.
		h.svc.UpdateUserStats(ctx, user.UID, models.UserStats{})
		h.an.Log(analytics.EventSignup, user.UID, nil)
		now := time.Now().UTC()
		profile = &models.UserProfile{
			UID:         user.UID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			CreatedAt:   now,
			LastLoginAt: now,
		}
	}

	h.mu.Lock()
	h.userID = user.UID
	h.profile = profile
	h.stats = profile.Stats
	h.mu.Unlock()
}

func (h *Stats) loadLocalStats() {
	profile := h.svc.LocalProfile(store.LocalUserID)

	h.mu.Lock()
	h.userID = ""
	if profile != nil {
		h.profile = profile
		h.stats = profile.Stats
	} else {
		h.profile = nil
		h.stats = models.UserStats{}
	}
	h.mu.Unlock()
}

// Stats returns the current in-memory aggregate.
func (h *Stats) Stats() models.UserStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

// Profile returns the current in-memory profile, or nil while anonymous with
// no local history.
func (h *Stats) Profile() *models.UserProfile {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.profile
}

// persistStatsLocked persists the new aggregate and updates the in-memory
// state. Anonymous sessions persist under the local sentinel. Callers must
// hold the write lock: the balance guard, the mutation and the persist have to
// be one step with respect to other mutators.
func (h *Stats) persistStatsLocked(newStats models.UserStats) {
	target := h.userID
	if target == "" {
		target = store.LocalUserID
	}

	ctx, cancel := opContext()
	defer cancel()
	h.svc.UpdateUserStats(ctx, target, newStats)

	h.stats = newStats
	if h.profile != nil {
		h.profile.Stats = newStats
	}
}

// AddCompletedTask credits points for a completed task: tasksCompleted +1,
// totalPoints +points. Available to anonymous sessions too.
func (h *Stats) AddCompletedTask(points int) models.UserStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	newStats := h.stats
	newStats.TasksCompleted++
	newStats.TotalPoints += points
	h.persistStatsLocked(newStats)
	return newStats
}

// RedeemVoucher spends points on a catalog entry. Requires an authenticated
// session; rejects without mutating anything when the balance is short. The
// write lock is held from the guard through the debit, so two concurrent
// redemptions can never both spend the same balance.
func (h *Stats) RedeemVoucher(cost int, voucherID, title string) RedeemResult {
	h.mu.Lock()

	if h.userID == "" {
		balance := h.stats.TotalPoints
		h.mu.Unlock()
		return RedeemResult{OK: false, Reason: "sign in to redeem vouchers", Balance: balance}
	}
	if h.stats.TotalPoints < cost {
		result := RedeemResult{
			OK:       false,
			Reason:   "insufficient points",
			Required: cost,
			Balance:  h.stats.TotalPoints,
		}
		h.mu.Unlock()
		return result
	}
	userID := h.userID

	ctx, cancel := opContext()
	voucher, outcome, err := h.svc.RedeemVoucher(ctx, userID, models.VoucherFields{
		VoucherID: voucherID,
		Title:     title,
		Points:    cost,
	})
	cancel()
	if err != nil {
		balance := h.stats.TotalPoints
		h.mu.Unlock()
		log.Printf("⚠️ session.Stats - error redeeming voucher for %s: %v", userID, err)
		return RedeemResult{OK: false, Reason: "failed to record the redemption", Balance: balance}
	}

	newStats := h.stats
	newStats.TotalPoints -= cost
	newStats.VouchersRedeemed++
	h.persistStatsLocked(newStats)
	h.mu.Unlock()

	h.an.Log(analytics.EventVoucherRedeemed, userID, analytics.Params{
		"voucher_title": title,
		"cost":          cost,
	})

	return RedeemResult{
		OK:      true,
		Balance: newStats.TotalPoints,
		Voucher: voucher,
		Outcome: outcome.String(),
	}
}

// Reset zeroes the stats and wipes the activity history. Requires an
// authenticated session.
func (h *Stats) Reset() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.userID == "" {
		return store.ErrUnauthenticated
	}

	ctx, cancel := opContext()
	defer cancel()
	if err := h.svc.ResetUserData(ctx, h.userID); err != nil {
		return err
	}

	h.stats = models.UserStats{}
	if h.profile != nil {
		h.profile.Stats = models.UserStats{}
	}
	return nil
}
