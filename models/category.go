package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/purchases_backend/config"
	"bitbucket.org/mmdatafocus/purchases_backend/utils"
	"gorm.io/gorm"
)

type Category struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Subcategory struct {
	ID         int       `gorm:"primary_key" json:"id"`
	CategoryId int       `gorm:"index;not null" json:"category_id"`
	Name       string    `gorm:"size:100;not null;uniqueIndex:idx_subcategory_name" json:"name"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCategory struct {
	Name string `json:"name" binding:"required"`
}

type NewSubcategory struct {
	CategoryId int    `json:"category_id" binding:"required"`
	Name       string `json:"name" binding:"required"`
}

func CreateCategory(ctx context.Context, input *NewCategory) (*Category, error) {
	db := config.GetDB()

	category := Category{Name: input.Name}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&category).Error; err != nil {
			return err
		}
		return SaveLogInsert(tx, TableCategories, category.ID, &category)
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func DeleteCategory(ctx context.Context, id int) (*Category, error) {
	db := config.GetDB()

	var result Category
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	var count int64
	if err := db.WithContext(ctx).Model(&Item{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by item")
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", id).Delete(&Subcategory{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&result).Error; err != nil {
			return err
		}
		return SaveLogDelete(tx, TableCategories, id, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func GetCategories(ctx context.Context) ([]*Category, error) {
	db := config.GetDB()
	var results []*Category
	if err := db.WithContext(ctx).Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func CreateSubcategory(ctx context.Context, input *NewSubcategory) (*Subcategory, error) {
	db := config.GetDB()

	var parent Category
	if err := db.WithContext(ctx).First(&parent, input.CategoryId).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	sub := Subcategory{CategoryId: input.CategoryId, Name: input.Name}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&sub).Error; err != nil {
			return err
		}
		return SaveLogInsert(tx, TableSubcategories, sub.ID, &sub)
	})
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func GetSubcategories(ctx context.Context, categoryId *int) ([]*Subcategory, error) {
	db := config.GetDB()
	var results []*Subcategory

	dbCtx := db.WithContext(ctx)
	if categoryId != nil && *categoryId > 0 {
		dbCtx = dbCtx.Where("category_id = ?", *categoryId)
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
