package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/purchases_backend/config"
	"bitbucket.org/mmdatafocus/purchases_backend/utils"
	"gorm.io/gorm"
)

// Snapshot stores a JSON document in a text column. On the wire it marshals
// as the document itself, not a quoted string, so a relay that mirrors pushed
// entries field for field hands peers a snapshot they can decode directly.
type Snapshot string

func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte("null"), nil
	}
	return []byte(s), nil
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = ""
		return nil
	}
	*s = Snapshot(data)
	return nil
}

// ActivityLog is the outbox: one row per mutated domain row, written in the
// same transaction as the mutation. Rows are immutable once written except
// for the synced flag, which flips to true after confirmed relay delivery.
type ActivityLog struct {
	ID         int        `gorm:"primary_key" json:"id"`
	Timestamp  time.Time  `gorm:"index;autoCreateTime" json:"timestamp"`
	ActionType ActionType `gorm:"size:10;not null" json:"action_type"`
	TableName  string     `gorm:"size:100;not null;index" json:"table_name"`
	RecordId   int        `gorm:"index;not null" json:"record_id"`
	OldObj     Snapshot   `gorm:"type:text" json:"old_obj"`
	NewObj     Snapshot   `gorm:"type:text" json:"new_obj"`
	Synced     bool       `gorm:"not null;default:false;index" json:"synced"`
	UserId     int        `gorm:"index" json:"user_id"`
	UserName   string     `gorm:"size:100" json:"user_name"`
}

func encodeSnapshot(v interface{}) (Snapshot, error) {
	s, err := utils.MarshalToJSON(v)
	if err != nil {
		return "", err
	}
	return Snapshot(s), nil
}

func createActivityLog(tx *gorm.DB,
	actionType ActionType,
	tableName string,
	recordId int,
	before interface{},
	after interface{}) error {

	var entry ActivityLog

	ctx := tx.Statement.Context
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return errors.New("user id is required")
	}
	userName, _ := utils.GetUserNameFromContext(ctx)

	entry.ActionType = actionType
	entry.TableName = tableName
	entry.RecordId = recordId
	// An unmarshalable snapshot must fail the caller's transaction; a log
	// row with an empty snapshot is worse than no commit at all.
	if before != nil {
		snap, err := encodeSnapshot(before)
		if err != nil {
			return fmt.Errorf("encode old snapshot for %s/%d: %w", tableName, recordId, err)
		}
		entry.OldObj = snap
	}
	if after != nil {
		snap, err := encodeSnapshot(after)
		if err != nil {
			return fmt.Errorf("encode new snapshot for %s/%d: %w", tableName, recordId, err)
		}
		entry.NewObj = snap
	}
	entry.UserId = userId
	entry.UserName = userName

	// Same transaction as the domain mutation: if the caller rolls back,
	// this row must not persist. Not best-effort.
	return tx.Create(&entry).Error
}

func SaveLogInsert(tx *gorm.DB, tableName string, recordId int, obj interface{}) error {
	return createActivityLog(tx, ActionTypeInsert, tableName, recordId, nil, obj)
}

func SaveLogUpdate(tx *gorm.DB, tableName string, recordId int, before interface{}, after interface{}) error {
	return createActivityLog(tx, ActionTypeUpdate, tableName, recordId, before, after)
}

func SaveLogDelete(tx *gorm.DB, tableName string, recordId int, obj interface{}) error {
	return createActivityLog(tx, ActionTypeDelete, tableName, recordId, obj, nil)
}

// GetUnsyncedLogs returns the next outbox batch in ascending timestamp order.
func GetUnsyncedLogs(ctx context.Context) ([]ActivityLog, error) {
	db := config.GetDB()
	var entries []ActivityLog
	err := db.WithContext(ctx).
		Where("synced = ?", false).
		Order("timestamp ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkLogsSynced flips the synced flag for the whole batch in one transaction.
// Called only after confirmed relay delivery.
func MarkLogsSynced(ctx context.Context, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Model(&ActivityLog{}).
			Where("id IN ?", ids).
			Update("synced", true).Error
	})
}

func GetActivityLogs(ctx context.Context, tableName *string, recordId *int, synced *bool) ([]*ActivityLog, error) {
	db := config.GetDB()
	var results []*ActivityLog

	dbCtx := db.WithContext(ctx)
	if tableName != nil && *tableName != "" {
		dbCtx = dbCtx.Where("table_name = ?", *tableName)
	}
	if recordId != nil && *recordId > 0 {
		dbCtx = dbCtx.Where("record_id = ?", *recordId)
	}
	if synced != nil {
		dbCtx = dbCtx.Where("synced = ?", *synced)
	}
	err := dbCtx.Order("timestamp DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
