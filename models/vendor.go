package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/purchases_backend/config"
	"bitbucket.org/mmdatafocus/purchases_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

type Vendor struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	TaxId     string    `gorm:"size:100;uniqueIndex;not null" json:"tax_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewVendor struct {
	Name  string `json:"name" binding:"required"`
	TaxId string `json:"tax_id" binding:"required"`
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// LookupOrCreateVendorTx resolves a vendor by its natural key (tax id),
// creating it when absent. Runs inside the caller's batch transaction; a
// concurrent insert losing the unique-index race falls back to the lookup.
func LookupOrCreateVendorTx(tx *gorm.DB, name string, taxId string) (*Vendor, error) {
	taxId = strings.TrimSpace(taxId)
	name = strings.TrimSpace(name)
	if taxId == "" {
		return nil, errors.New("vendor tax id is required")
	}

	var existing Vendor
	err := tx.Where("tax_id = ?", taxId).Take(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	vendor := Vendor{Name: name, TaxId: taxId}
	if err := tx.Create(&vendor).Error; err != nil {
		if isDuplicateKeyErr(err) {
			if err2 := tx.Where("tax_id = ?", taxId).Take(&existing).Error; err2 == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	if err := SaveLogInsert(tx, TableVendors, vendor.ID, &vendor); err != nil {
		return nil, err
	}
	return &vendor, nil
}

func CreateVendor(ctx context.Context, input *NewVendor) (*Vendor, error) {
	db := config.GetDB()

	var vendor Vendor
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := LookupOrCreateVendorTx(tx, input.Name, input.TaxId)
		if err != nil {
			return err
		}
		vendor = *v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func UpdateVendor(ctx context.Context, id int, input *NewVendor) (*Vendor, error) {
	db := config.GetDB()

	var before Vendor
	if err := db.WithContext(ctx).First(&before, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	after := before
	after.Name = input.Name
	after.TaxId = input.TaxId

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Vendor{}).Where("id = ?", id).Updates(map[string]interface{}{
			"name":   after.Name,
			"tax_id": after.TaxId,
		}).Error; err != nil {
			return err
		}
		return SaveLogUpdate(tx, TableVendors, id, &before, &after)
	})
	if err != nil {
		return nil, err
	}
	return &after, nil
}

func DeleteVendor(ctx context.Context, id int) (*Vendor, error) {
	db := config.GetDB()

	var result Vendor
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	// referenced vendors cannot be removed
	var count int64
	if err := db.WithContext(ctx).Model(&PurchaseRecord{}).Where("vendor_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by purchase record")
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&result).Error; err != nil {
			return err
		}
		return SaveLogDelete(tx, TableVendors, id, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func GetVendor(ctx context.Context, id int) (*Vendor, error) {
	db := config.GetDB()
	var result Vendor
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetVendors(ctx context.Context, name *string) ([]*Vendor, error) {
	db := config.GetDB()
	var results []*Vendor

	dbCtx := db.WithContext(ctx)
	if name != nil && *name != "" {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
