package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/purchases_backend/config"
	"bitbucket.org/mmdatafocus/purchases_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Item struct {
	ID            int             `gorm:"primary_key" json:"id"`
	Name          string          `gorm:"size:255;uniqueIndex;not null" json:"name"`
	CategoryId    int             `gorm:"index;not null" json:"category_id"`
	SubcategoryId *int            `gorm:"index" json:"subcategory_id"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItem struct {
	Name          string          `json:"name" binding:"required"`
	CategoryId    int             `json:"category_id" binding:"required"`
	SubcategoryId *int            `json:"subcategory_id"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
}

// LookupOrCreateItemTx resolves an item by its natural key (name), creating
// it when absent. Same race handling as vendors: lose the unique-index race,
// fall back to the lookup.
func LookupOrCreateItemTx(tx *gorm.DB, name string, categoryId int, subcategoryId *int, unitPrice decimal.Decimal) (*Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("item name is required")
	}

	var existing Item
	err := tx.Where("name = ?", name).Take(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if categoryId <= 0 {
		return nil, errors.New("category is required for a new item")
	}

	item := Item{
		Name:          name,
		CategoryId:    categoryId,
		SubcategoryId: subcategoryId,
		UnitPrice:     unitPrice,
	}
	if err := tx.Create(&item).Error; err != nil {
		if isDuplicateKeyErr(err) {
			if err2 := tx.Where("name = ?", name).Take(&existing).Error; err2 == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	if err := SaveLogInsert(tx, TableItems, item.ID, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func CreateItem(ctx context.Context, input *NewItem) (*Item, error) {
	db := config.GetDB()

	var item Item
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		i, err := LookupOrCreateItemTx(tx, input.Name, input.CategoryId, input.SubcategoryId, input.UnitPrice)
		if err != nil {
			return err
		}
		item = *i
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func UpdateItem(ctx context.Context, id int, input *NewItem) (*Item, error) {
	db := config.GetDB()

	var before Item
	if err := db.WithContext(ctx).First(&before, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	after := before
	after.Name = input.Name
	after.CategoryId = input.CategoryId
	after.SubcategoryId = input.SubcategoryId
	after.UnitPrice = input.UnitPrice

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Item{}).Where("id = ?", id).Updates(map[string]interface{}{
			"name":           after.Name,
			"category_id":    after.CategoryId,
			"subcategory_id": after.SubcategoryId,
			"unit_price":     after.UnitPrice,
		}).Error; err != nil {
			return err
		}
		return SaveLogUpdate(tx, TableItems, id, &before, &after)
	})
	if err != nil {
		return nil, err
	}
	return &after, nil
}

func DeleteItem(ctx context.Context, id int) (*Item, error) {
	db := config.GetDB()

	var result Item
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	var count int64
	if err := db.WithContext(ctx).Model(&PurchaseRecord{}).Where("item_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by purchase record")
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&result).Error; err != nil {
			return err
		}
		return SaveLogDelete(tx, TableItems, id, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func GetItem(ctx context.Context, id int) (*Item, error) {
	db := config.GetDB()
	var result Item
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetItems(ctx context.Context, name *string, categoryId *int) ([]*Item, error) {
	db := config.GetDB()
	var results []*Item

	dbCtx := db.WithContext(ctx)
	if name != nil && *name != "" {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if categoryId != nil && *categoryId > 0 {
		dbCtx = dbCtx.Where("category_id = ?", *categoryId)
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
