package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/purchases_backend/config"
	"bitbucket.org/mmdatafocus/purchases_backend/models"
	"bitbucket.org/mmdatafocus/purchases_backend/utils"
	"gorm.io/gorm"
)

// PostRecords transitions saved records to posted with the given posting
// date. Already-posted or missing ids are skipped silently, so repeating the
// same call is a no-op. The whole pass is one transaction; a failure on any
// row rolls back every transition in the call.
func PostRecords(ctx context.Context, ids []int, postingDate time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if postingDate.IsZero() {
		return 0, &utils.ValidationError{Field: "posting_date", Reason: "is required"}
	}

	db := config.GetDB()
	transitioned := 0

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			var before models.PurchaseRecord
			if err := tx.First(&before, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return &utils.StoreError{Op: "posting lookup", Err: err}
			}
			if before.Status != models.RecordStatusSaved {
				continue
			}

			after := before
			after.Status = models.RecordStatusPosted
			postedDate := postingDate
			after.PostedDate = &postedDate

			if err := models.UpdateRecordTx(tx, &before, &after, models.OriginLocal); err != nil {
				return &utils.StoreError{Op: "posting update", Err: err}
			}
			transitioned++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return transitioned, nil
}

// DeleteComponent deletes every supplied record of one voucher in a single
// transaction. The id list is taken per id: ids already gone, or belonging to
// a different component, are skipped rather than failing the call (the caller
// may hold a stale view of the component). Each delete is logged individually
// and any failure rolls back the whole set.
func DeleteComponent(ctx context.Context, componentKey string, ids []int) (int, error) {
	if componentKey == "" {
		return 0, &utils.ValidationError{Field: "component_key", Reason: "is required"}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	db := config.GetDB()
	deleted := 0

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			var rec models.PurchaseRecord
			if err := tx.First(&rec, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return &utils.StoreError{Op: "component delete lookup", Err: err}
			}
			if rec.ComponentKey != componentKey {
				continue
			}
			if rec.Status == models.RecordStatusPosted && !CanEditPosted(ctx) {
				return &utils.ValidationError{Field: "ids", Reason: fmt.Sprintf("record %d is posted", id)}
			}
			if err := models.DeleteRecordTx(tx, &rec, models.OriginLocal); err != nil {
				return &utils.StoreError{Op: "component delete", Err: err}
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
