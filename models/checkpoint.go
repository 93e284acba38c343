package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/purchases_backend/config"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Checkpoint is a small key/value table. The pull phase keeps
// last_applied_remote_sequence here; the value is monotonically
// non-decreasing and survives restarts.
type Checkpoint struct {
	Key       string    `gorm:"primaryKey;size:64;column:checkpoint_key" json:"key"`
	Value     int64     `gorm:"not null;default:0" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetCheckpoint returns the stored value, defaulting to 0 when absent.
func GetCheckpoint(ctx context.Context, key string) (int64, error) {
	db := config.GetDB()
	var cp Checkpoint
	err := db.WithContext(ctx).Where("checkpoint_key = ?", key).Take(&cp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return cp.Value, nil
}

// AdvanceCheckpoint moves the checkpoint forward. The GREATEST upsert keeps
// the value monotonic even if two writers race with stale reads.
func AdvanceCheckpoint(ctx context.Context, key string, seq int64) error {
	db := config.GetDB()
	cp := Checkpoint{Key: key, Value: seq}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "checkpoint_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value": gorm.Expr("GREATEST(value, ?)", seq),
		}),
	}).Create(&cp).Error
}
