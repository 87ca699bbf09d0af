package db

import (
	"context"
	"errors"
	"log"

	"lifeplan-backend/internal/domain"
	"lifeplan-backend/internal/version"

	"gorm.io/gorm"
)

// Statements AutoMigrate can't express: the durable uniqueness guarantees of
// at most one active version and at most one undecided draft per scope.
var uniquenessIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_versions_one_active
		ON versions (document_type, owner_id, group_id)
		WHERE is_active`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_versions_one_draft
		ON versions (document_type, owner_id, group_id)
		WHERE is_draft AND NOT is_active`,
}

// Migrate runs database migrations
func Migrate() {
	err := AppDb.AutoMigrate(
		&domain.Version{},
	)

	if err != nil {
		log.Fatal(err)
	}

	for _, stmt := range uniquenessIndexes {
		if err := AppDb.Exec(stmt).Error; err != nil {
			log.Fatal(err)
		}
	}

	log.Println("Database schema migrated successfully")
}

// SeedData seeds the database with initial data (for development only)
func SeedData() {
	repo := version.NewRepository(AppDb)
	scope := domain.Scope{OwnerID: 1}

	// Create a first profile version for the demo owner if it doesn't exist
	_, err := repo.FindActive(context.Background(), domain.DocumentTypeProfile, scope)
	if err == nil {
		log.Println("Demo profile already exists")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Error checking demo profile: %v", err)
		return
	}

	seed := &domain.Version{
		DocumentType: domain.DocumentTypeProfile,
		OwnerID:      scope.OwnerID,
		GroupID:      scope.GroupID,
		IsActive:     true,
		Content: domain.FieldContent{
			"core_identity":    "Curious builder learning in public",
			"core_values":      "honesty, craft, generosity",
			"health_practices": "morning runs three times a week",
		},
		RefinedFields: []string{},
	}

	if err := repo.Create(context.Background(), seed); err != nil {
		log.Printf("Error creating demo profile: %v", err)
	} else {
		log.Printf("Created demo profile version %s", seed.ID)
	}
}
