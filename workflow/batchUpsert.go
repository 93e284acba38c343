package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/purchases_backend/config"
	"bitbucket.org/mmdatafocus/purchases_backend/models"
	"bitbucket.org/mmdatafocus/purchases_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RecordIntent is one row of a batch save. ID == 0 means a new record.
// Vendor and item may be referenced by id, or loosely by natural key
// (vendor tax id, item name); loose references are resolved by
// lookup-or-create inside the batch transaction.
type RecordIntent struct {
	ID int `json:"id"`

	VendorId    int    `json:"vendor_id"`
	VendorName  string `json:"vendor_name"`
	VendorTaxId string `json:"vendor_tax_id"`

	ItemId        int    `json:"item_id"`
	ItemName      string `json:"item_name"`
	CategoryId    int    `json:"category_id"`
	SubcategoryId *int   `json:"subcategory_id"`

	ComponentKey  string          `json:"component_key" binding:"required"`
	PurchaseDate  time.Time       `json:"purchase_date" binding:"required"`
	Unit          string          `json:"unit"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	VatOn         bool            `json:"vat_on"`
	VatPercentage decimal.Decimal `json:"vat_percentage"`
}

type BatchSaveInput struct {
	Records   []RecordIntent `json:"records"`
	DeleteIds []int          `json:"delete_ids"`
}

type RecordOutcome struct {
	ID           int    `json:"id"`
	ComponentKey string `json:"component_key"`
	Result       string `json:"result"` // inserted | updated
}

var hundred = decimal.NewFromInt(100)

// computeRecordAmounts applies the VAT policy. VAT is only broken out when
// the purchase date falls inside the current posting period; otherwise the
// computed VAT is folded into the base and vat_amount is forced to zero.
// total = base + vat always holds.
func computeRecordAmounts(quantity, unitPrice decimal.Decimal, vatOn bool, vatPercentage decimal.Decimal, inCurrentPeriod bool) (base, vat, total decimal.Decimal) {
	base = quantity.Mul(unitPrice)
	vat = decimal.Zero
	if vatOn && vatPercentage.GreaterThan(decimal.Zero) {
		vat = base.Mul(vatPercentage).DivRound(hundred, 4)
		if !inCurrentPeriod {
			base = base.Add(vat)
			vat = decimal.Zero
		}
	}
	total = base.Add(vat)
	return base, vat, total
}

func validateIntent(idx int, intent *RecordIntent) error {
	field := func(name string) string { return fmt.Sprintf("records[%d].%s", idx, name) }

	if strings.TrimSpace(intent.ComponentKey) == "" {
		return &utils.ValidationError{Field: field("component_key"), Reason: "is required"}
	}
	if intent.PurchaseDate.IsZero() {
		return &utils.ValidationError{Field: field("purchase_date"), Reason: "is required"}
	}
	if intent.Quantity.LessThanOrEqual(decimal.Zero) {
		return &utils.ValidationError{Field: field("quantity"), Reason: "must be positive"}
	}
	if intent.UnitPrice.LessThan(decimal.Zero) {
		return &utils.ValidationError{Field: field("unit_price"), Reason: "must not be negative"}
	}
	if intent.VendorId <= 0 && strings.TrimSpace(intent.VendorTaxId) == "" {
		return &utils.ValidationError{Field: field("vendor"), Reason: "needs an id or a tax id"}
	}
	if intent.ItemId <= 0 && strings.TrimSpace(intent.ItemName) == "" {
		return &utils.ValidationError{Field: field("item"), Reason: "needs an id or a name"}
	}
	if intent.VatOn && intent.VatPercentage.LessThan(decimal.Zero) {
		return &utils.ValidationError{Field: field("vat_percentage"), Reason: "must not be negative"}
	}
	return nil
}

// SaveRecordBatch inserts, updates and deletes purchase records atomically.
// The inCurrentPeriod predicate decides, per purchase date, whether VAT is
// reportable. Any validation, resolution or store failure rolls the whole
// batch back; nothing commits.
func SaveRecordBatch(ctx context.Context, input *BatchSaveInput, inCurrentPeriod func(time.Time) bool) ([]RecordOutcome, error) {
	if input == nil || (len(input.Records) == 0 && len(input.DeleteIds) == 0) {
		return nil, &utils.ValidationError{Field: "records", Reason: "batch is empty"}
	}
	if inCurrentPeriod == nil {
		inCurrentPeriod = func(time.Time) bool { return true }
	}

	// Reject before any write.
	for i := range input.Records {
		if err := validateIntent(i, &input.Records[i]); err != nil {
			return nil, err
		}
	}

	db := config.GetDB()
	outcomes := make([]RecordOutcome, 0, len(input.Records))

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range input.DeleteIds {
			var rec models.PurchaseRecord
			if err := tx.First(&rec, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &utils.ValidationError{Field: "delete_ids", Reason: fmt.Sprintf("record %d not found", id)}
				}
				return &utils.StoreError{Op: "delete lookup", Err: err}
			}
			if rec.Status == models.RecordStatusPosted && !CanEditPosted(ctx) {
				return &utils.ValidationError{Field: "delete_ids", Reason: fmt.Sprintf("record %d is posted", id)}
			}
			if err := models.DeleteRecordTx(tx, &rec, models.OriginLocal); err != nil {
				return &utils.StoreError{Op: "delete record", Err: err}
			}
		}

		for i := range input.Records {
			intent := &input.Records[i]

			vendorId, err := resolveVendor(tx, intent)
			if err != nil {
				return err
			}
			itemId, err := resolveItem(tx, intent)
			if err != nil {
				return err
			}

			base, vat, total := computeRecordAmounts(
				intent.Quantity, intent.UnitPrice,
				intent.VatOn, intent.VatPercentage,
				inCurrentPeriod(intent.PurchaseDate),
			)

			if intent.ID == 0 {
				rec := models.PurchaseRecord{
					VendorId:      vendorId,
					ItemId:        itemId,
					ComponentKey:  intent.ComponentKey,
					PurchaseDate:  intent.PurchaseDate,
					Unit:          intent.Unit,
					Quantity:      intent.Quantity,
					UnitPrice:     intent.UnitPrice,
					VatPercentage: intent.VatPercentage,
					VatAmount:     vat,
					BaseTotal:     base,
					TotalAmount:   total,
					Status:        models.RecordStatusSaved,
				}
				if err := models.InsertRecordTx(tx, &rec, models.OriginLocal); err != nil {
					return &utils.StoreError{Op: "insert record", Err: err}
				}
				outcomes = append(outcomes, RecordOutcome{ID: rec.ID, ComponentKey: rec.ComponentKey, Result: "inserted"})
				continue
			}

			var before models.PurchaseRecord
			if err := tx.First(&before, intent.ID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &utils.ValidationError{Field: fmt.Sprintf("records[%d].id", i), Reason: "record not found"}
				}
				return &utils.StoreError{Op: "update lookup", Err: err}
			}
			if before.Status == models.RecordStatusPosted && !CanEditPosted(ctx) {
				return &utils.ValidationError{Field: fmt.Sprintf("records[%d].id", i), Reason: "record is posted"}
			}

			after := before
			after.VendorId = vendorId
			after.ItemId = itemId
			after.ComponentKey = intent.ComponentKey
			after.PurchaseDate = intent.PurchaseDate
			after.Unit = intent.Unit
			after.Quantity = intent.Quantity
			after.UnitPrice = intent.UnitPrice
			after.VatPercentage = intent.VatPercentage
			after.VatAmount = vat
			after.BaseTotal = base
			after.TotalAmount = total

			if err := models.UpdateRecordTx(tx, &before, &after, models.OriginLocal); err != nil {
				return &utils.StoreError{Op: "update record", Err: err}
			}
			outcomes = append(outcomes, RecordOutcome{ID: after.ID, ComponentKey: after.ComponentKey, Result: "updated"})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcomes, nil
}

func resolveVendor(tx *gorm.DB, intent *RecordIntent) (int, error) {
	if intent.VendorId > 0 {
		var vendor models.Vendor
		if err := tx.First(&vendor, intent.VendorId).Error; err != nil {
			return 0, &utils.ResolutionError{Kind: "vendor", Name: fmt.Sprintf("id=%d", intent.VendorId), Err: err}
		}
		return vendor.ID, nil
	}
	vendor, err := models.LookupOrCreateVendorTx(tx, intent.VendorName, intent.VendorTaxId)
	if err != nil {
		return 0, &utils.ResolutionError{Kind: "vendor", Name: intent.VendorTaxId, Err: err}
	}
	return vendor.ID, nil
}

func resolveItem(tx *gorm.DB, intent *RecordIntent) (int, error) {
	if intent.ItemId > 0 {
		var item models.Item
		if err := tx.First(&item, intent.ItemId).Error; err != nil {
			return 0, &utils.ResolutionError{Kind: "item", Name: fmt.Sprintf("id=%d", intent.ItemId), Err: err}
		}
		return item.ID, nil
	}
	item, err := models.LookupOrCreateItemTx(tx, intent.ItemName, intent.CategoryId, intent.SubcategoryId, intent.UnitPrice)
	if err != nil {
		return 0, &utils.ResolutionError{Kind: "item", Name: intent.ItemName, Err: err}
	}
	return item.ID, nil
}
