package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"task-rewards-system/models"
	"task-rewards-system/store"
	"task-rewards-system/utils"
)

// BackupWorker periodically exports snapshots of recently-updated users to
// object storage. Best-effort: a failed tick retries the same window next
// time, a failed user is logged and skipped.
type BackupWorker struct {
	remote   *store.RemoteStore
	interval time.Duration
}

func NewBackupWorker(remote *store.RemoteStore, interval time.Duration) *BackupWorker {
	return &BackupWorker{remote: remote, interval: interval}
}

// Start runs the backup loop until the context is cancelled.
func (w *BackupWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting user data backup worker…")
	lastRun := time.Now().UTC().Add(-24 * time.Hour)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("⏹️ Backup worker stopped")
			return
		case <-ticker.C:
			tickTime := time.Now().UTC()
			ok := w.backupSince(ctx, lastRun)
			if ok {
				// Advance only on a clean pass so failures retry the same window.
				lastRun = tickTime
			}
		}
	}
}

func (w *BackupWorker) backupSince(ctx context.Context, since time.Time) bool {
	users, err := w.remote.UsersUpdatedSince(ctx, since)
	if err != nil {
		log.Printf("❌ Backup worker - failed to list changed users: %v", err)
		return false
	}
	if len(users) == 0 {
		return true
	}

	log.Printf("[BACKUP] 📥 Exporting %d changed user(s) since %s", len(users), since.Format(time.RFC3339))

	clean := true
	for _, user := range users {
		if err := w.exportUser(ctx, user); err != nil {
			clean = false
			log.Printf("[BACKUP] ⚠️ Failed to export user %s: %v", user.UID, err)
		}
	}
	if clean {
		log.Printf("[BACKUP] ✅ Exported %d user snapshot(s)", len(users))
	}
	return clean
}

func (w *BackupWorker) exportUser(ctx context.Context, profile models.UserProfile) error {
	tasks, err := w.remote.GetUserTasks(ctx, profile.UID)
	if err != nil {
		return err
	}
	completed, err := w.remote.GetCompletedTasks(ctx, profile.UID)
	if err != nil {
		return err
	}
	vouchers, err := w.remote.GetRedeemedVouchers(ctx, profile.UID)
	if err != nil {
		return err
	}

	snapshot := struct {
		Profile    models.UserProfile       `json:"profile"`
		Tasks      []models.Task            `json:"tasks"`
		Completed  []models.Task            `json:"completedTasks"`
		Vouchers   []models.RedeemedVoucher `json:"redeemedVouchers"`
		ExportedAt time.Time                `json:"exportedAt"`
	}{
		Profile:    profile,
		Tasks:      tasks,
		Completed:  completed,
		Vouchers:   vouchers,
		ExportedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("backups/%s/%d.json", profile.UID, time.Now().UTC().Unix())
	_, err = utils.UploadUserExport(key, payload)
	return err
}
