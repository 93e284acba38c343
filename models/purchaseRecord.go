package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/purchases_backend/config"
	"bitbucket.org/mmdatafocus/purchases_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseRecord is the ledger entity. The set of records sharing one
// component key forms a component (one logical voucher) and is created,
// edited and deleted as a unit.
type PurchaseRecord struct {
	ID            int             `gorm:"primary_key" json:"id"`
	VendorId      int             `gorm:"index;not null" json:"vendor_id"`
	ItemId        int             `gorm:"index;not null" json:"item_id"`
	ComponentKey  string          `gorm:"size:100;index;not null" json:"component_key"`
	PurchaseDate  time.Time       `gorm:"index;not null" json:"purchase_date"`
	PostedDate    *time.Time      `json:"posted_date"`
	Unit          string          `gorm:"size:50" json:"unit"`
	Quantity      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	VatPercentage decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"vat_percentage"`
	VatAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"vat_amount"`
	BaseTotal     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"base_total"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	Status        RecordStatus    `gorm:"size:10;not null;index" json:"status"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// InsertRecordTx creates a purchase record inside the caller's transaction.
// Local-origin inserts emit one INSERT outbox entry; replayed inserts do not
// (a remote entry must never echo back out through the outbox).
func InsertRecordTx(tx *gorm.DB, rec *PurchaseRecord, origin WriteOrigin) error {
	if err := tx.Create(rec).Error; err != nil {
		return err
	}
	if origin == OriginLocal {
		return SaveLogInsert(tx, TablePurchaseRecords, rec.ID, rec)
	}
	return nil
}

// UpdateRecordTx replaces the full record row. Partial field patches are not
// supported outside this path.
func UpdateRecordTx(tx *gorm.DB, before *PurchaseRecord, after *PurchaseRecord, origin WriteOrigin) error {
	if err := tx.Model(&PurchaseRecord{}).Where("id = ?", before.ID).Updates(map[string]interface{}{
		"vendor_id":      after.VendorId,
		"item_id":        after.ItemId,
		"component_key":  after.ComponentKey,
		"purchase_date":  after.PurchaseDate,
		"posted_date":    after.PostedDate,
		"unit":           after.Unit,
		"quantity":       after.Quantity,
		"unit_price":     after.UnitPrice,
		"vat_percentage": after.VatPercentage,
		"vat_amount":     after.VatAmount,
		"base_total":     after.BaseTotal,
		"total_amount":   after.TotalAmount,
		"status":         after.Status,
	}).Error; err != nil {
		return err
	}
	if origin == OriginLocal {
		return SaveLogUpdate(tx, TablePurchaseRecords, before.ID, before, after)
	}
	return nil
}

func DeleteRecordTx(tx *gorm.DB, rec *PurchaseRecord, origin WriteOrigin) error {
	if err := tx.Delete(&PurchaseRecord{}, rec.ID).Error; err != nil {
		return err
	}
	if origin == OriginLocal {
		return SaveLogDelete(tx, TablePurchaseRecords, rec.ID, rec)
	}
	return nil
}

func GetPurchaseRecord(ctx context.Context, id int) (*PurchaseRecord, error) {
	db := config.GetDB()
	var result PurchaseRecord
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// GetComponentRecords returns every record of one voucher, ordered by id.
func GetComponentRecords(ctx context.Context, componentKey string) ([]*PurchaseRecord, error) {
	db := config.GetDB()
	var results []*PurchaseRecord
	err := db.WithContext(ctx).
		Where("component_key = ?", componentKey).
		Order("id ASC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func GetPurchaseRecords(ctx context.Context, status *RecordStatus, vendorId *int, from *time.Time, to *time.Time) ([]*PurchaseRecord, error) {
	db := config.GetDB()
	var results []*PurchaseRecord

	dbCtx := db.WithContext(ctx)
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if vendorId != nil && *vendorId > 0 {
		dbCtx = dbCtx.Where("vendor_id = ?", *vendorId)
	}
	if from != nil {
		dbCtx = dbCtx.Where("purchase_date >= ?", *from)
	}
	if to != nil {
		dbCtx = dbCtx.Where("purchase_date <= ?", *to)
	}
	err := dbCtx.Order("purchase_date DESC, id DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
