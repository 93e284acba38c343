package models

import (
	"log"

	"bitbucket.org/mmdatafocus/purchases_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Category{}, &Subcategory{},
		&Vendor{}, &Item{},
		&PurchaseRecord{},
		&ActivityLog{},
		&Checkpoint{},
		&User{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
