// Command bootstrap prepares a database for the booking backend: applies the
// schema, seeds the starter catalog, and creates admin accounts.
package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/momentumclips/booking-backend/internal/config"
	"github.com/momentumclips/booking-backend/internal/database"
	"github.com/momentumclips/booking-backend/internal/models"
)

func main() {
	initSchema := flag.Bool("init-schema", false, "apply the database schema")
	seed := flag.Bool("seed", false, "seed the starter package catalog")
	adminEmail := flag.String("create-admin", "", "create an admin account with this email")
	adminName := flag.String("admin-name", "Admin", "name for the created admin account")
	adminPassword := flag.String("admin-password", "", "password for the created admin account")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	if !*initSchema && !*seed && *adminEmail == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if *initSchema {
		logger.Info("Applying schema...")
		if _, err := db.Exec(database.Schema); err != nil {
			logger.Fatalf("Failed to apply schema: %v", err)
		}
		logger.Info("Schema applied")
	}

	if *seed {
		logger.Info("Seeding package catalog...")
		if err := seedPackages(db); err != nil {
			logger.Fatalf("Failed to seed packages: %v", err)
		}
		logger.Info("Catalog seeded")
	}

	if *adminEmail != "" {
		if *adminPassword == "" {
			logger.Fatal("-admin-password is required with -create-admin")
		}
		logger.Infof("Creating admin account %s...", *adminEmail)
		if err := createAdmin(db, *adminEmail, *adminName, *adminPassword); err != nil {
			logger.Fatalf("Failed to create admin: %v", err)
		}
		logger.Info("Admin account created")
	}
}

func seedPackages(db database.DB) error {
	packages := []models.Package{
		{
			Name:          "Single Run",
			Description:   "One filmed run with a professional videographer, raw footage delivered same day.",
			PriceCents:    9900,
			Currency:      "eur",
			DurationHours: 1,
			MaxRiders:     2,
			VideoCount:    1,
			IsActive:      true,
			DisplayOrder:  1,
		},
		{
			Name:            "Half Day Session",
			Description:     "Half a day on the mountain with edited highlights of your best runs.",
			PriceCents:      24900,
			Currency:        "eur",
			DurationHours:   4,
			MaxRiders:       4,
			IncludesEditing: true,
			VideoCount:      3,
			IsActive:        true,
			DisplayOrder:    2,
		},
		{
			Name:            "Full Day Premium",
			Description:     "Full day of filming including drone shots and a fully edited highlight reel.",
			PriceCents:      49900,
			Currency:        "eur",
			DurationHours:   8,
			MaxRiders:       6,
			IncludesDrone:   true,
			IncludesEditing: true,
			VideoCount:      5,
			IsActive:        true,
			DisplayOrder:    3,
		},
	}

	repo := database.NewPackageRepository(db)
	for i := range packages {
		if err := repo.Create(&packages[i]); err != nil {
			return err
		}
	}
	return nil
}

func createAdmin(db database.DB, email, name, password string) error {
	user := &models.User{
		Email:    email,
		Name:     name,
		IsAdmin:  true,
		IsActive: true,
	}
	if err := user.SetPassword(password); err != nil {
		return err
	}

	return database.NewUserRepository(db).Create(user)
}
