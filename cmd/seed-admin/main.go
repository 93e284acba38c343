// seed-admin creates or updates the bootstrap admin user. The seeded user
// carries the elevated-edit flag so posted records can be corrected from
// the console.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-admin
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/purchases_backend/config"
	"bitbucket.org/mmdatafocus/purchases_backend/models"
	"bitbucket.org/mmdatafocus/purchases_backend/utils"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

const (
	adminUsername = "purchasesAdmin"
	adminName     = "Purchases Admin"
)

func main() {
	_ = godotenv.Load()

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		fmt.Fprintln(os.Stderr, "SEED_ADMIN_PASSWORD is required")
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	models.MigrateTable()

	hashed, err := utils.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	var user models.User
	err = db.WithContext(ctx).Where("username = ?", adminUsername).Take(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Username:     adminUsername,
			Name:         adminName,
			PasswordHash: string(hashed),
			ElevatedEdit: true,
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created admin user %q (id=%d)\n", adminUsername, user.ID)
	case err != nil:
		fmt.Fprintf(os.Stderr, "failed to lookup admin user: %v\n", err)
		os.Exit(1)
	default:
		if err := db.WithContext(ctx).Model(&user).Updates(map[string]interface{}{
			"password_hash": string(hashed),
			"elevated_edit": true,
		}).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("updated admin user %q (id=%d)\n", adminUsername, user.ID)
	}
}
