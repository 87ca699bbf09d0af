package version

import (
	"context"
	defError "errors"
	"fmt"
	"time"

	"lifeplan-backend/internal/domain"
	"lifeplan-backend/internal/errors"
	"lifeplan-backend/internal/registry"
	"lifeplan-backend/internal/worker"
	"lifeplan-backend/redis"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service interface {
	CreateFirstVersion(ctx context.Context, documentType domain.DocumentType, scope domain.Scope, content domain.FieldContent) (*CurrentDocumentResponse, error)
	GetCurrentDocument(ctx context.Context, documentType domain.DocumentType, scope domain.Scope) (*CurrentDocumentResponse, error)
	ListVersions(ctx context.Context, documentType domain.DocumentType, scope domain.Scope, page, pageSize int) (*PaginatedVersions, error)
	EnsureDraft(ctx context.Context, documentType domain.DocumentType, scope domain.Scope) (*DraftResponse, bool, error)
	GetDraft(ctx context.Context, documentType domain.DocumentType, scope domain.Scope) (*DraftResponse, error)
	GetDraftChanges(ctx context.Context, documentType domain.DocumentType, scope domain.Scope) (*DraftChangesResponse, error)
	UpdateDraftField(ctx context.Context, ownerID uint64, draftID uuid.UUID, fieldKey string, value any) (*DraftResponse, error)
	MarkFieldRefined(ctx context.Context, ownerID uint64, draftID uuid.UUID, fieldKey string) (*DraftResponse, error)
	DeleteDraft(ctx context.Context, ownerID uint64, draftID uuid.UUID) error
	CommitDraft(ctx context.Context, ownerID uint64, draftID uuid.UUID) (*CurrentDocumentResponse, error)
}

type DefaultService struct {
	repository Repository
	resolver   *Resolver
	numberer   *Numberer
	cache      *redis.Cache
	pool       *worker.WorkerPool
}

func NewService(
	repository Repository,
	cache *redis.Cache,
	pool *worker.WorkerPool,
) Service {
	return &DefaultService{
		repository: repository,
		resolver:   NewResolver(repository),
		numberer:   NewNumberer(repository),
		cache:      cache,
		pool:       pool,
	}
}

type CurrentDocumentResponse struct {
	ID            uuid.UUID           `json:"id"`
	DocumentType  domain.DocumentType `json:"document_type"`
	Number        int                 `json:"version_number"`
	ParentID      *uuid.UUID          `json:"parent_id,omitempty"`
	IsActive      bool                `json:"is_active"`
	Content       domain.FieldContent `json:"content"`
	RefinedFields []string            `json:"refined_fields"`
	TotalVersions int                 `json:"total_versions"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type DraftResponse struct {
	ID            uuid.UUID           `json:"id"`
	DocumentType  domain.DocumentType `json:"document_type"`
	ParentID      *uuid.UUID          `json:"parent_id"`
	PendingNumber int                 `json:"pending_version"`
	Content       domain.FieldContent `json:"content"`
	RefinedFields []string            `json:"refined_fields"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type DraftChangesResponse struct {
	DraftID         uuid.UUID `json:"draft_id"`
	ParentID        uuid.UUID `json:"parent_id"`
	ChangedFields   []string  `json:"changed_fields"`
	RefinedFields   []string  `json:"refined_fields"`
	TouchedSections []string  `json:"touched_sections"`
}

type VersionListItem struct {
	ID        uuid.UUID `json:"id"`
	Number    int       `json:"version_number"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type VersionsMeta struct {
	Total       int `json:"total"`
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	TotalPage   int `json:"total_page"`
}

type PaginatedVersions struct {
	Data []VersionListItem `json:"data"`
	Meta VersionsMeta      `json:"meta"`
}

// CreateFirstVersion creates the root version of a scope: active, no parent,
// not a draft. Fails when the scope already has any version.
func (s *DefaultService) CreateFirstVersion(ctx context.Context, documentType domain.DocumentType, scope domain.Scope, content domain.FieldContent) (*CurrentDocumentResponse, error) {
	_, err := s.resolver.Resolve(ctx, documentType, scope)
	if err == nil {
		return nil, errors.Conflict("Document already exists for this scope", nil)
	}
	if !defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	root := &domain.Version{
		DocumentType:  documentType,
		OwnerID:       scope.OwnerID,
		GroupID:       scope.GroupID,
		IsActive:      true,
		Content:       content,
		RefinedFields: []string{},
	}

	if err := s.repository.Create(ctx, root); err != nil {
		if defError.Is(err, ErrInvalidField) {
			return nil, errors.UnprocessableEntity("Unknown content field for document type", err)
		}
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			// a concurrent caller created the first version; the one-active
			// index rejected ours
			return nil, errors.Conflict("Document already exists for this scope", err)
		}
		return nil, err
	}

	s.bumpScopeVersion(ctx, documentType, scope)
	return s.toCurrentResponse(ctx, root), nil
}

func (s *DefaultService) GetCurrentDocument(ctx context.Context, documentType domain.DocumentType, scope domain.Scope) (*CurrentDocumentResponse, error) {
	cacheKey := s.currentCacheKey(ctx, documentType, scope)

	var cached CurrentDocumentResponse
	if found, _ := s.cacheGet(ctx, cacheKey, &cached); found {
		return &cached, nil
	}

	current, err := s.resolver.Resolve(ctx, documentType, scope)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("No document found for this scope", err)
		}
		return nil, err
	}

	result := s.toCurrentResponse(ctx, current)
	s.cacheSetAsync(cacheKey, result)

	return result, nil
}

func (s *DefaultService) ListVersions(ctx context.Context, documentType domain.DocumentType, scope domain.Scope, page, pageSize int) (*PaginatedVersions, error) {
	history, err := s.repository.ListByScope(ctx, documentType, scope, ListFilters{ExcludeDrafts: true})
	if err != nil {
		return nil, err
	}

	numbers := s.numberer.NumbersFor(history)

	// newest first for display
	items := make([]VersionListItem, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		v := history[i]
		items = append(items, VersionListItem{
			ID:        v.ID,
			Number:    numbers[v.ID],
			IsActive:  v.IsActive,
			CreatedAt: v.CreatedAt,
		})
	}

	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return &PaginatedVersions{
		Data: items[start:end],
		Meta: VersionsMeta{
			Total:       total,
			CurrentPage: page,
			PerPage:     pageSize,
			TotalPage:   totalPages,
		},
	}, nil
}

// EnsureDraft returns the scope's draft, creating one by cloning the current
// active version if none exists. Idempotent: calling it again returns the
// same draft. The second return value reports whether a draft was created.
func (s *DefaultService) EnsureDraft(ctx context.Context, documentType domain.DocumentType, scope domain.Scope) (*DraftResponse, bool, error) {
	draft, err := s.repository.FindDraft(ctx, documentType, scope)
	if err == nil {
		return s.toDraftResponse(ctx, draft), false, nil
	}
	if !defError.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	active, err := s.resolver.Resolve(ctx, documentType, scope)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, errors.UnprocessableEntity("No active version to draft from", ErrNoActiveVersion)
		}
		return nil, false, err
	}

	clone := &domain.Version{
		DocumentType:  documentType,
		OwnerID:       scope.OwnerID,
		GroupID:       scope.GroupID,
		ParentID:      &active.ID,
		IsDraft:       true,
		Content:       cloneContent(active.Content),
		RefinedFields: []string{},
	}

	if err := s.repository.Create(ctx, clone); err != nil {
		if defError.Is(err, gorm.ErrDuplicatedKey) {
			// lost the creation race; the winner's draft is the draft
			existing, ferr := s.repository.FindDraft(ctx, documentType, scope)
			if ferr != nil {
				return nil, false, ferr
			}
			return s.toDraftResponse(ctx, existing), false, nil
		}
		return nil, false, err
	}

	return s.toDraftResponse(ctx, clone), true, nil
}

func (s *DefaultService) GetDraft(ctx context.Context, documentType domain.DocumentType, scope domain.Scope) (*DraftResponse, error) {
	draft, err := s.repository.FindDraft(ctx, documentType, scope)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("No draft in progress for this scope", err)
		}
		return nil, err
	}
	return s.toDraftResponse(ctx, draft), nil
}

func (s *DefaultService) GetDraftChanges(ctx context.Context, documentType domain.DocumentType, scope domain.Scope) (*DraftChangesResponse, error) {
	draft, err := s.repository.FindDraft(ctx, documentType, scope)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("No draft in progress for this scope", err)
		}
		return nil, err
	}
	if draft.ParentID == nil {
		return nil, errors.Internal(fmt.Errorf("draft %s has no parent", draft.ID))
	}

	parent, err := s.repository.FindByID(ctx, *draft.ParentID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Draft parent version not found", err)
		}
		return nil, err
	}

	return &DraftChangesResponse{
		DraftID:         draft.ID,
		ParentID:        parent.ID,
		ChangedFields:   Diff(documentType, draft.Content, parent.Content),
		RefinedFields:   draft.RefinedFields,
		TouchedSections: SectionsTouched(documentType, draft.RefinedFields),
	}, nil
}

// UpdateDraftField writes one field value into the draft's content. It does
// not mark the field as refined; that is a separate explicit call so plain
// edits and assisted edits stay distinguishable.
func (s *DefaultService) UpdateDraftField(ctx context.Context, ownerID uint64, draftID uuid.UUID, fieldKey string, value any) (*DraftResponse, error) {
	draft, err := s.loadOwnedDraft(ctx, ownerID, draftID)
	if err != nil {
		return nil, err
	}

	if !registry.IsValidField(draft.DocumentType, fieldKey) {
		return nil, errors.UnprocessableEntity("Unknown content field for document type", ErrInvalidField)
	}

	if draft.Content == nil {
		draft.Content = domain.FieldContent{}
	}
	draft.Content[fieldKey] = value

	if err := s.repository.Save(ctx, draft); err != nil {
		if defError.Is(err, ErrNotADraft) {
			// a concurrent commit decided the draft between read and write
			return nil, errors.Conflict("Version is no longer a draft", ErrNotADraft)
		}
		return nil, err
	}
	return s.toDraftResponse(ctx, draft), nil
}

// MarkFieldRefined records that the field was deliberately touched through an
// assisted-editing flow, independent of whether its value changed.
func (s *DefaultService) MarkFieldRefined(ctx context.Context, ownerID uint64, draftID uuid.UUID, fieldKey string) (*DraftResponse, error) {
	draft, err := s.loadOwnedDraft(ctx, ownerID, draftID)
	if err != nil {
		return nil, err
	}

	if !registry.IsValidField(draft.DocumentType, fieldKey) {
		return nil, errors.UnprocessableEntity("Unknown content field for document type", ErrInvalidField)
	}

	if !draft.HasRefined(fieldKey) {
		draft.RefinedFields = append(draft.RefinedFields, fieldKey)
		if err := s.repository.Save(ctx, draft); err != nil {
			if defError.Is(err, ErrNotADraft) {
				return nil, errors.Conflict("Version is no longer a draft", ErrNotADraft)
			}
			return nil, err
		}
	}
	return s.toDraftResponse(ctx, draft), nil
}

// DeleteDraft discards an uncommitted draft. The active version is untouched.
func (s *DefaultService) DeleteDraft(ctx context.Context, ownerID uint64, draftID uuid.UUID) error {
	draft, err := s.loadOwnedDraft(ctx, ownerID, draftID)
	if err != nil {
		return err
	}

	return s.repository.Delete(ctx, draft.ID)
}

// CommitDraft promotes the draft to be the new active version. The store
// transaction re-checks that the draft's parent is still active; when another
// commit already superseded it the caller gets a conflict and must re-fetch
// the new active version and re-apply.
func (s *DefaultService) CommitDraft(ctx context.Context, ownerID uint64, draftID uuid.UUID) (*CurrentDocumentResponse, error) {
	draft, err := s.loadOwnedDraft(ctx, ownerID, draftID)
	if err != nil {
		return nil, err
	}

	promoted, err := s.repository.Promote(ctx, draft.ID)
	if err != nil {
		switch {
		case defError.Is(err, gorm.ErrRecordNotFound):
			return nil, errors.NotFound("Draft not found", err)
		case defError.Is(err, ErrStaleCommit), defError.Is(err, ErrNotADraft):
			return nil, errors.Conflict("Your changes are based on an outdated version; refresh and reapply", ErrStaleCommit)
		default:
			return nil, errors.Internal(fmt.Errorf("%w: %v", ErrTransactionFailure, err))
		}
	}

	s.bumpScopeVersion(ctx, promoted.DocumentType, promoted.Scope())
	return s.toCurrentResponse(ctx, promoted), nil
}

// loadOwnedDraft fetches a draft by id and checks it belongs to the caller.
func (s *DefaultService) loadOwnedDraft(ctx context.Context, ownerID uint64, draftID uuid.UUID) (*domain.Version, error) {
	v, err := s.repository.FindByID(ctx, draftID)
	if err != nil {
		if defError.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.NotFound("Draft not found", err)
		}
		return nil, err
	}
	if v.OwnerID != ownerID {
		return nil, errors.Forbidden("Draft belongs to another owner", nil)
	}
	if !v.IsDraft {
		return nil, errors.Conflict("Version is no longer a draft", ErrNotADraft)
	}
	return v, nil
}

func (s *DefaultService) toCurrentResponse(ctx context.Context, v *domain.Version) *CurrentDocumentResponse {
	total, err := s.repository.CountByScope(ctx, v.DocumentType, v.Scope(), ListFilters{ExcludeDrafts: true})
	if err != nil {
		total = 1
	}

	return &CurrentDocumentResponse{
		ID:            v.ID,
		DocumentType:  v.DocumentType,
		Number:        s.numberer.NumberFor(ctx, v),
		ParentID:      v.ParentID,
		IsActive:      v.IsActive,
		Content:       v.Content,
		RefinedFields: v.RefinedFields,
		TotalVersions: int(total),
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
}

func (s *DefaultService) toDraftResponse(ctx context.Context, draft *domain.Version) *DraftResponse {
	return &DraftResponse{
		ID:            draft.ID,
		DocumentType:  draft.DocumentType,
		ParentID:      draft.ParentID,
		PendingNumber: s.numberer.PendingNumber(ctx, draft),
		Content:       draft.Content,
		RefinedFields: draft.RefinedFields,
		CreatedAt:     draft.CreatedAt,
		UpdatedAt:     draft.UpdatedAt,
	}
}

// cloneContent deep-copies content so draft edits never alias parent values.
func cloneContent(content domain.FieldContent) domain.FieldContent {
	clone := make(domain.FieldContent, len(content))
	for key, value := range content {
		switch v := value.(type) {
		case []any:
			copied := make([]any, len(v))
			copy(copied, v)
			clone[key] = copied
		case map[string]any:
			copied := make(map[string]any, len(v))
			for k, val := range v {
				copied[k] = val
			}
			clone[key] = copied
		default:
			clone[key] = value
		}
	}
	return clone
}

// Cache plumbing. Every committed write bumps the scope's version counter,
// so stale entries are never read again; they simply expire.

func (s *DefaultService) scopeVersionKey(documentType domain.DocumentType, scope domain.Scope) string {
	return fmt.Sprintf("plan:%d:%s:%s:version", scope.OwnerID, scope.GroupID, documentType)
}

func (s *DefaultService) currentCacheKey(ctx context.Context, documentType domain.DocumentType, scope domain.Scope) string {
	var v int64
	if s.cache != nil {
		v = s.cache.GetVersion(ctx, s.scopeVersionKey(documentType, scope))
	}
	return fmt.Sprintf("plan:cur:%d:%s:%s:v:%d", scope.OwnerID, scope.GroupID, documentType, v)
}

func (s *DefaultService) bumpScopeVersion(ctx context.Context, documentType domain.DocumentType, scope domain.Scope) {
	if s.cache != nil {
		s.cache.IncrementVersion(ctx, s.scopeVersionKey(documentType, scope))
	}
}

func (s *DefaultService) cacheGet(ctx context.Context, key string, dest any) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	return s.cache.Get(ctx, key, dest)
}

func (s *DefaultService) cacheSetAsync(key string, value any) {
	if s.cache == nil || s.pool == nil {
		return
	}
	s.pool.Submit(func(ctx context.Context) error {
		return s.cache.Set(ctx, key, value, 24*time.Hour)
	})
}
