package logging

import (
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/moodfeed/internal/models"
)

// StartCleanup sweeps once at startup and then daily until done is closed.
// A sweep drops system logs older than retention along with refresh tokens
// that expired or were revoked more than retention ago.
func StartCleanup(db *gorm.DB, retention time.Duration, done chan struct{}) {
	go func() {
		sweep(db, time.Now(), retention)

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				sweep(db, now, retention)
			case <-done:
				return
			}
		}
	}()
}

func sweep(db *gorm.DB, now time.Time, retention time.Duration) {
	cutoff := now.Add(-retention)

	logs := staleLogs(db, cutoff)
	if logs.Error != nil {
		slog.Error("log cleanup failed", "error", logs.Error)
	} else if logs.RowsAffected > 0 {
		slog.Info("log cleanup completed", "deleted", logs.RowsAffected)
	}

	tokens := staleTokens(db, now, cutoff)
	if tokens.Error != nil {
		slog.Error("refresh token cleanup failed", "error", tokens.Error)
	} else if tokens.RowsAffected > 0 {
		slog.Info("refresh token cleanup completed", "deleted", tokens.RowsAffected)
	}
}

func staleLogs(db *gorm.DB, cutoff time.Time) *gorm.DB {
	return db.Where("timestamp < ?", cutoff).Delete(&models.SystemLog{})
}

func staleTokens(db *gorm.DB, now, cutoff time.Time) *gorm.DB {
	return db.Where("expires_at < ? OR (revoked = ? AND created_at < ?)", now, true, cutoff).
		Delete(&models.RefreshToken{})
}
