package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"task-rewards-system/models"
)

// RemoteStore is the thin client for the remote document database. Three
// collections: users keyed by uid, tasks and redeemed_vouchers tagged with the
// owning user id. Documents are read and written whole; every failure leaves
// through Classify so callers only ever see the taxonomy.
type RemoteStore struct {
	db *gorm.DB
}

func NewRemoteStore(db *gorm.DB) *RemoteStore {
	return &RemoteStore{db: db}
}

// Migrate creates the three collections.
func (r *RemoteStore) Migrate() error {
	return r.db.AutoMigrate(
		&models.UserProfile{},
		&models.Task{},
		&models.RedeemedVoucher{},
	)
}

// TestConnection performs a trivial read to establish whether the remote
// backend is currently reachable.
func (r *RemoteStore) TestConnection(ctx context.Context) error {
	var one int
	if err := r.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return Classify(err)
	}
	return nil
}

// CreateOrUpdateUser creates the profile on first sight of a user id, or
// bumps lastLoginAt (and displayName when supplied) on later sessions.
func (r *RemoteStore) CreateOrUpdateUser(ctx context.Context, userID, email, displayName string) error {
	now := time.Now().UTC()

	var existing models.UserProfile
	err := r.db.WithContext(ctx).First(&existing, "uid = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		profile := models.UserProfile{
			UID:         userID,
			Email:       email,
			DisplayName: displayName,
			CreatedAt:   now,
			LastLoginAt: now,
		}
		if err := r.db.WithContext(ctx).Create(&profile).Error; err != nil {
			return Classify(err)
		}
		return nil
	}
	if err != nil {
		return Classify(err)
	}

	updates := map[string]any{"last_login_at": now}
	if displayName != "" {
		updates["display_name"] = displayName
	}
	if err := r.db.WithContext(ctx).Model(&models.UserProfile{}).
		Where("uid = ?", userID).Updates(updates).Error; err != nil {
		return Classify(err)
	}
	return nil
}

// GetUserData returns the profile, or nil when no document exists.
func (r *RemoteStore) GetUserData(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := r.db.WithContext(ctx).First(&profile, "uid = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, Classify(err)
	}
	return &profile, nil
}

// UpdateUserStats writes the three stat fields together in one update.
func (r *RemoteStore) UpdateUserStats(ctx context.Context, userID string, stats models.UserStats) error {
	err := r.db.WithContext(ctx).Model(&models.UserProfile{}).
		Where("uid = ?", userID).
		Updates(map[string]any{
			"tasks_completed":   stats.TasksCompleted,
			"total_points":      stats.TotalPoints,
			"vouchers_redeemed": stats.VouchersRedeemed,
		}).Error
	if err != nil {
		return Classify(err)
	}
	return nil
}

// AddTask inserts a new active task and returns the store-assigned id.
func (r *RemoteStore) AddTask(ctx context.Context, userID string, fields models.TaskFields) (string, error) {
	task := models.Task{
		ID:        uuid.NewString(),
		Title:     fields.Title,
		Points:    fields.Points,
		Type:      fields.Type,
		Urgency:   fields.Urgency,
		UserID:    userID,
		Completed: false,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&task).Error; err != nil {
		return "", Classify(err)
	}
	return task.ID, nil
}

// CompleteTask flips the completion flag and stamps the completion time.
// Updating an id that no longer exists affects zero rows and succeeds, which
// keeps a second completion of the same task harmless.
func (r *RemoteStore) CompleteTask(ctx context.Context, userID, taskID string) error {
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ? AND user_id = ?", taskID, userID).
		Updates(map[string]any{
			"completed":    true,
			"completed_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return Classify(err)
	}
	return nil
}

// GetUserTasks returns the active tasks, newest first.
func (r *RemoteStore) GetUserTasks(ctx context.Context, userID string) ([]models.Task, error) {
	tasks := []models.Task{}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND completed = ?", userID, false).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, Classify(err)
	}
	return tasks, nil
}

// GetCompletedTasks returns the completed history, most recent first.
func (r *RemoteStore) GetCompletedTasks(ctx context.Context, userID string) ([]models.Task, error) {
	tasks := []models.Task{}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND completed = ?", userID, true).
		Order("completed_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, Classify(err)
	}
	return tasks, nil
}

// RedeemVoucher inserts a redemption receipt and returns the assigned id.
func (r *RemoteStore) RedeemVoucher(ctx context.Context, userID string, fields models.VoucherFields) (string, error) {
	voucher := models.RedeemedVoucher{
		ID:         uuid.NewString(),
		VoucherID:  fields.VoucherID,
		Title:      fields.Title,
		Points:     fields.Points,
		UserID:     userID,
		RedeemedAt: time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&voucher).Error; err != nil {
		return "", Classify(err)
	}
	return voucher.ID, nil
}

// GetRedeemedVouchers returns the redemption history, most recent first.
func (r *RemoteStore) GetRedeemedVouchers(ctx context.Context, userID string) ([]models.RedeemedVoucher, error) {
	vouchers := []models.RedeemedVoucher{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("redeemed_at DESC").
		Find(&vouchers).Error
	if err != nil {
		return nil, Classify(err)
	}
	return vouchers, nil
}

// ResetUserData zeroes the stats and bulk-deletes every task and redemption
// document owned by the user.
func (r *RemoteStore) ResetUserData(ctx context.Context, userID string) error {
	if err := r.UpdateUserStats(ctx, userID, models.UserStats{}); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).Delete(&models.Task{}).Error; err != nil {
		return Classify(err)
	}
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).Delete(&models.RedeemedVoucher{}).Error; err != nil {
		return Classify(err)
	}
	return nil
}

// UsersUpdatedSince lists profiles touched after the watermark, oldest first.
// Used by the backup worker to pick export candidates.
func (r *RemoteStore) UsersUpdatedSince(ctx context.Context, since time.Time) ([]models.UserProfile, error) {
	users := []models.UserProfile{}
	err := r.db.WithContext(ctx).
		Where("updated_at > ?", since).
		Order("updated_at ASC").
		Find(&users).Error
	if err != nil {
		return nil, Classify(err)
	}
	return users, nil
}
