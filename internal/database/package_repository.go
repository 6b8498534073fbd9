package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/momentumclips/booking-backend/internal/models"
)

// PackageRepository handles database operations for the service catalog
type PackageRepository struct {
	db DB
}

// NewPackageRepository creates a new PackageRepository
func NewPackageRepository(db DB) *PackageRepository {
	return &PackageRepository{db: db}
}

const packageColumns = `
	id, name, description, price_cents, currency, duration_hours,
	max_riders, includes_drone, includes_editing, video_count,
	scheduling_url, is_active, display_order, created_at, updated_at`

// Create inserts a new package
func (r *PackageRepository) Create(pkg *models.Package) error {
	if pkg.ID == uuid.Nil {
		pkg.ID = uuid.New()
	}

	query := `
		INSERT INTO packages (
			id, name, description, price_cents, currency, duration_hours,
			max_riders, includes_drone, includes_editing, video_count,
			scheduling_url, is_active, display_order
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		pkg.ID, pkg.Name, pkg.Description, pkg.PriceCents, pkg.Currency,
		pkg.DurationHours, pkg.MaxRiders, pkg.IncludesDrone, pkg.IncludesEditing,
		pkg.VideoCount, pkg.SchedulingURL, pkg.IsActive, pkg.DisplayOrder,
	).Scan(&pkg.CreatedAt, &pkg.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create package: %w", err)
	}

	return nil
}

// GetByID retrieves a package by ID
func (r *PackageRepository) GetByID(packageID uuid.UUID) (*models.Package, error) {
	pkg := &models.Package{}
	query := `SELECT ` + packageColumns + ` FROM packages WHERE id = $1`

	err := r.db.Get(pkg, query, packageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch package: %w", err)
	}

	return pkg, nil
}

// GetActive returns bookable packages in display order for the public site
func (r *PackageRepository) GetActive() ([]models.Package, error) {
	packages := []models.Package{}
	query := `SELECT ` + packageColumns + ` FROM packages WHERE is_active = TRUE ORDER BY display_order, name`

	if err := r.db.Select(&packages, query); err != nil {
		return nil, fmt.Errorf("failed to fetch active packages: %w", err)
	}

	return packages, nil
}

// GetAll returns every package, including inactive ones, for the back office
func (r *PackageRepository) GetAll() ([]models.Package, error) {
	packages := []models.Package{}
	query := `SELECT ` + packageColumns + ` FROM packages ORDER BY display_order, name`

	if err := r.db.Select(&packages, query); err != nil {
		return nil, fmt.Errorf("failed to fetch packages: %w", err)
	}

	return packages, nil
}

// Update rewrites the mutable catalog fields of a package. Bookings are not
// touched: each one carries its own locked copy of the price.
func (r *PackageRepository) Update(pkg *models.Package) error {
	query := `
		UPDATE packages
		SET name = $2, description = $3, price_cents = $4, currency = $5,
			duration_hours = $6, max_riders = $7, includes_drone = $8,
			includes_editing = $9, video_count = $10, scheduling_url = $11,
			is_active = $12, display_order = $13, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query,
		pkg.ID, pkg.Name, pkg.Description, pkg.PriceCents, pkg.Currency,
		pkg.DurationHours, pkg.MaxRiders, pkg.IncludesDrone, pkg.IncludesEditing,
		pkg.VideoCount, pkg.SchedulingURL, pkg.IsActive, pkg.DisplayOrder,
	)
	if err != nil {
		return fmt.Errorf("failed to update package: %w", err)
	}

	return requireRow(result)
}

// SetActive toggles whether a package is bookable
func (r *PackageRepository) SetActive(packageID uuid.UUID, active bool) error {
	query := `UPDATE packages SET is_active = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(query, packageID, active)
	if err != nil {
		return fmt.Errorf("failed to set package active: %w", err)
	}

	return requireRow(result)
}
