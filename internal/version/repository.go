package version

import (
	"context"
	"time"

	"lifeplan-backend/internal/domain"
	"lifeplan-backend/internal/registry"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ListFilters narrows ListByScope / CountByScope results.
type ListFilters struct {
	ExcludeDrafts bool
}

type Repository interface {
	Create(ctx context.Context, v *domain.Version) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Version, error)
	FindActive(ctx context.Context, documentType domain.DocumentType, scope domain.Scope) (*domain.Version, error)
	FindDraft(ctx context.Context, documentType domain.DocumentType, scope domain.Scope) (*domain.Version, error)
	LatestByScope(ctx context.Context, documentType domain.DocumentType, scope domain.Scope, filters ListFilters) (*domain.Version, error)
	ListByScope(ctx context.Context, documentType domain.DocumentType, scope domain.Scope, filters ListFilters) ([]domain.Version, error)
	CountByScope(ctx context.Context, documentType domain.DocumentType, scope domain.Scope, filters ListFilters) (int64, error)
	Save(ctx context.Context, v *domain.Version) error
	Delete(ctx context.Context, id uuid.UUID) error
	Promote(ctx context.Context, draftID uuid.UUID) (*domain.Version, error)
}

type VersionRepositoryImpl struct {
	db *gorm.DB
}

// NewRepository creates a new version repository
func NewRepository(db *gorm.DB) Repository {
	return &VersionRepositoryImpl{db: db}
}

func scoped(db *gorm.DB, documentType domain.DocumentType, scope domain.Scope) *gorm.DB {
	return db.Where(
		"document_type = ? AND owner_id = ? AND group_id = ?",
		documentType, scope.OwnerID, scope.GroupID,
	)
}

func filtered(db *gorm.DB, filters ListFilters) *gorm.DB {
	if filters.ExcludeDrafts {
		db = db.Where("NOT is_draft")
	}
	return db
}

// validateContent rejects content keys the registry doesn't know.
func validateContent(documentType domain.DocumentType, content domain.FieldContent) error {
	for key := range content {
		if !registry.IsValidField(documentType, key) {
			return ErrInvalidField
		}
	}
	return nil
}

// Create inserts a new version row. The id and timestamps are assigned here.
func (r *VersionRepositoryImpl) Create(ctx context.Context, v *domain.Version) error {
	if err := validateContent(v.DocumentType, v.Content); err != nil {
		return err
	}

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.CreatedAt = time.Now().UTC() // Use UTC for consistency
	v.UpdatedAt = v.CreatedAt
	if v.RefinedFields == nil {
		v.RefinedFields = []string{}
	}

	return r.db.WithContext(ctx).Create(v).Error
}

func (r *VersionRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Version, error) {
	var v domain.Version
	err := r.db.WithContext(ctx).First(&v, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VersionRepositoryImpl) FindActive(ctx context.Context, documentType domain.DocumentType, scope domain.Scope) (*domain.Version, error) {
	var v domain.Version
	err := scoped(r.db.WithContext(ctx), documentType, scope).
		Where("is_active").
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VersionRepositoryImpl) FindDraft(ctx context.Context, documentType domain.DocumentType, scope domain.Scope) (*domain.Version, error) {
	var v domain.Version
	err := scoped(r.db.WithContext(ctx), documentType, scope).
		Where("is_draft AND NOT is_active").
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *VersionRepositoryImpl) LatestByScope(ctx context.Context, documentType domain.DocumentType, scope domain.Scope, filters ListFilters) (*domain.Version, error) {
	var v domain.Version
	err := filtered(scoped(r.db.WithContext(ctx), documentType, scope), filters).
		Order("created_at DESC").
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByScope returns versions in chronological (created_at ascending) order.
func (r *VersionRepositoryImpl) ListByScope(ctx context.Context, documentType domain.DocumentType, scope domain.Scope, filters ListFilters) ([]domain.Version, error) {
	var versions []domain.Version
	err := filtered(scoped(r.db.WithContext(ctx), documentType, scope), filters).
		Order("created_at ASC").
		Find(&versions).Error
	return versions, err
}

func (r *VersionRepositoryImpl) CountByScope(ctx context.Context, documentType domain.DocumentType, scope domain.Scope, filters ListFilters) (int64, error) {
	var count int64
	err := filtered(scoped(r.db.WithContext(ctx).Model(&domain.Version{}), documentType, scope), filters).
		Count(&count).Error
	return count, err
}

// Save persists content and refined-field changes to a draft row. Only those
// columns are written, and only while the row is still an undecided draft:
// the draft/active flags belong to the creation and commit paths alone, so a
// stale edit can never revert a version that a concurrent commit promoted.
func (r *VersionRepositoryImpl) Save(ctx context.Context, v *domain.Version) error {
	if err := validateContent(v.DocumentType, v.Content); err != nil {
		return err
	}

	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&domain.Version{}).
		Where("id = ? AND is_draft AND NOT is_active", v.ID).
		Select("content", "refined_fields", "updated_at").
		Updates(&domain.Version{
			Content:       v.Content,
			RefinedFields: v.RefinedFields,
			UpdatedAt:     now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotADraft
	}

	v.UpdatedAt = now
	return nil
}

func (r *VersionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&domain.Version{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Promote converts a draft into the new active version in one transaction:
// the parent loses its active flag, the draft loses its draft flag and gains
// the active flag. Both flips are conditional updates; if either touches no
// row the state moved underneath us and the whole transaction rolls back
// with ErrStaleCommit. Readers never observe a half-applied commit.
func (r *VersionRepositoryImpl) Promote(ctx context.Context, draftID uuid.UUID) (*domain.Version, error) {
	var promoted *domain.Version

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// re-read the draft inside the transaction
		var draft domain.Version
		if err := tx.First(&draft, "id = ?", draftID).Error; err != nil {
			return err
		}
		if !draft.IsDraft {
			return ErrNotADraft
		}
		if draft.ParentID == nil {
			// a cloned draft always has a parent; a missing one means the
			// chain was tampered with
			return ErrStaleCommit
		}

		now := time.Now().UTC()

		// deactivate the parent only if it is still the active version
		res := tx.Model(&domain.Version{}).
			Where("id = ? AND is_active", *draft.ParentID).
			Updates(map[string]any{"is_active": false, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrStaleCommit
		}

		// activate the draft only if it is still an undecided draft
		res = tx.Model(&domain.Version{}).
			Where("id = ? AND is_draft AND NOT is_active", draftID).
			Updates(map[string]any{"is_draft": false, "is_active": true, "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrStaleCommit
		}

		draft.IsDraft = false
		draft.IsActive = true
		draft.UpdatedAt = now
		promoted = &draft
		return nil
	})

	if err != nil {
		return nil, err
	}
	return promoted, nil
}
