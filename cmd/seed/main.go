// Command seed bootstraps a fresh station database: the initial slot grid
// plus an admin account. Safe to re-run, existing rows are left alone.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/gravitypharm/gravistock/internal/barcode"
	"github.com/gravitypharm/gravistock/internal/config"
	"github.com/gravitypharm/gravistock/internal/database"
	"github.com/gravitypharm/gravistock/internal/models"
	"github.com/gravitypharm/gravistock/internal/utils"
)

func main() {
	zones := flag.String("zones", "ABCDE", "zone letters to create")
	levels := flag.Int("levels", 10, "levels per zone")
	admin := flag.String("admin", "admin", "admin username")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	err = db.AutoMigrate(
		&models.UserAccount{},
		&models.Slot{},
		&models.CatalogEntry{},
		&models.StockUnit{},
		&models.MissingFlag{},
		&models.SupplyRun{},
		&models.SupplyLine{},
		&models.StationRequest{},
		&models.EventLog{},
	)
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	created := 0
	for _, zone := range *zones {
		for level := 1; level <= *levels; level++ {
			label := fmt.Sprintf("%c%d", zone, level)
			code, err := barcode.Encode(label)
			if err != nil {
				log.Fatalf("Bad slot label %s: %v", label, err)
			}

			var count int64
			db.Model(&models.Slot{}).Where("label = ?", label).Count(&count)
			if count > 0 {
				continue
			}
			if err := db.Create(&models.Slot{Label: label, Barcode: code}).Error; err != nil {
				log.Fatalf("Failed to create slot %s: %v", label, err)
			}
			created++
		}
	}
	log.Printf("✅ Slots ready (%d created)", created)

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		log.Println("⚠️ SEED_ADMIN_PASSWORD not set, skipping admin account")
		return
	}

	var count int64
	db.Model(&models.UserAccount{}).Where("username = ?", *admin).Count(&count)
	if count > 0 {
		log.Printf("Admin account %q already exists", *admin)
		return
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}
	account := models.UserAccount{
		ID:           uuid.New().String(),
		Username:     *admin,
		PasswordHash: hash,
		Role:         "admin",
	}
	if err := db.Create(&account).Error; err != nil {
		log.Fatalf("Failed to create admin account: %v", err)
	}
	log.Printf("✅ Admin account %q created", *admin)
}
