package version

import (
	"context"
	"sync"
	"time"

	"lifeplan-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memRepo is an in-memory Repository with the same semantics as the real
// store: content validation, the partial unique constraints on active/draft
// rows, and the conditional-update commit transaction. A mutex stands in for
// the database's transaction serialization.
type memRepo struct {
	mu       sync.Mutex
	rows     map[uuid.UUID]*domain.Version
	seq      int
	failList bool // force list/count failures for degradation tests
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[uuid.UUID]*domain.Version{}}
}

func cloneRow(v *domain.Version) *domain.Version {
	c := *v
	c.Content = make(domain.FieldContent, len(v.Content))
	for k, val := range v.Content {
		c.Content[k] = val
	}
	c.RefinedFields = append([]string{}, v.RefinedFields...)
	return &c
}

func sameScope(v *domain.Version, documentType domain.DocumentType, scope domain.Scope) bool {
	return v.DocumentType == documentType && v.OwnerID == scope.OwnerID && v.GroupID == scope.GroupID
}

func (r *memRepo) Create(_ context.Context, v *domain.Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := validateContent(v.DocumentType, v.Content); err != nil {
		return err
	}

	// partial unique indexes
	for _, row := range r.rows {
		if !sameScope(row, v.DocumentType, v.Scope()) {
			continue
		}
		if v.IsActive && row.IsActive {
			return gorm.ErrDuplicatedKey
		}
		if v.IsDraft && !v.IsActive && row.IsDraft && !row.IsActive {
			return gorm.ErrDuplicatedKey
		}
	}

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	r.seq++
	v.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(r.seq) * time.Second)
	v.UpdatedAt = v.CreatedAt
	if v.RefinedFields == nil {
		v.RefinedFields = []string{}
	}

	r.rows[v.ID] = cloneRow(v)
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneRow(row), nil
}

func (r *memRepo) FindActive(_ context.Context, documentType domain.DocumentType, scope domain.Scope) (*domain.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if sameScope(row, documentType, scope) && row.IsActive {
			return cloneRow(row), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) FindDraft(_ context.Context, documentType domain.DocumentType, scope domain.Scope) (*domain.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range r.rows {
		if sameScope(row, documentType, scope) && row.IsDraft && !row.IsActive {
			return cloneRow(row), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memRepo) listLocked(documentType domain.DocumentType, scope domain.Scope, filters ListFilters) []*domain.Version {
	var matched []*domain.Version
	for _, row := range r.rows {
		if !sameScope(row, documentType, scope) {
			continue
		}
		if filters.ExcludeDrafts && row.IsDraft {
			continue
		}
		matched = append(matched, row)
	}
	// created_at ascending
	for i := range matched {
		for j := i + 1; j < len(matched); j++ {
			if matched[j].CreatedAt.Before(matched[i].CreatedAt) {
				matched[i], matched[j] = matched[j], matched[i]
			}
		}
	}
	return matched
}

func (r *memRepo) LatestByScope(_ context.Context, documentType domain.DocumentType, scope domain.Scope, filters ListFilters) (*domain.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := r.listLocked(documentType, scope, filters)
	if len(matched) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneRow(matched[len(matched)-1]), nil
}

func (r *memRepo) ListByScope(_ context.Context, documentType domain.DocumentType, scope domain.Scope, filters ListFilters) ([]domain.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failList {
		return nil, gorm.ErrInvalidDB
	}

	matched := r.listLocked(documentType, scope, filters)
	out := make([]domain.Version, 0, len(matched))
	for _, row := range matched {
		out = append(out, *cloneRow(row))
	}
	return out, nil
}

func (r *memRepo) CountByScope(_ context.Context, documentType domain.DocumentType, scope domain.Scope, filters ListFilters) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failList {
		return 0, gorm.ErrInvalidDB
	}
	return int64(len(r.listLocked(documentType, scope, filters))), nil
}

func (r *memRepo) Save(_ context.Context, v *domain.Version) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := validateContent(v.DocumentType, v.Content); err != nil {
		return err
	}

	// same conditional write as the real store: content columns only, and
	// only while the row is still an undecided draft
	row, ok := r.rows[v.ID]
	if !ok || !row.IsDraft || row.IsActive {
		return ErrNotADraft
	}

	now := time.Now().UTC()
	row.Content = make(domain.FieldContent, len(v.Content))
	for k, val := range v.Content {
		row.Content[k] = val
	}
	row.RefinedFields = append([]string{}, v.RefinedFields...)
	row.UpdatedAt = now
	v.UpdatedAt = now
	return nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *memRepo) Promote(_ context.Context, draftID uuid.UUID) (*domain.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	draft, ok := r.rows[draftID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if !draft.IsDraft {
		return nil, ErrNotADraft
	}
	if draft.ParentID == nil {
		return nil, ErrStaleCommit
	}

	parent, ok := r.rows[*draft.ParentID]
	if !ok || !parent.IsActive {
		return nil, ErrStaleCommit
	}

	now := time.Now().UTC()
	parent.IsActive = false
	parent.UpdatedAt = now
	draft.IsDraft = false
	draft.IsActive = true
	draft.UpdatedAt = now
	return cloneRow(draft), nil
}

// mutate runs fn against the stored row, bypassing the Repository surface.
// Used to simulate state changed by a competing process.
func (r *memRepo) mutate(id uuid.UUID, fn func(v *domain.Version)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.rows[id])
}

// scopeInvariantsHold checks the per-scope guarantees: at most one active
// version, at most one undecided draft, drafts never active, parent chains
// acyclic.
func (r *memRepo) scopeInvariantsHold(documentType domain.DocumentType, scope domain.Scope) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	actives, drafts := 0, 0
	for _, row := range r.rows {
		if !sameScope(row, documentType, scope) {
			continue
		}
		if row.IsDraft && row.IsActive {
			return false
		}
		if row.IsActive {
			actives++
		}
		if row.IsDraft && !row.IsActive {
			drafts++
		}
		// walk the parent chain; a cycle would loop past the row count
		steps := 0
		for cur := row; cur.ParentID != nil; {
			next, ok := r.rows[*cur.ParentID]
			if !ok {
				break
			}
			cur = next
			steps++
			if steps > len(r.rows) {
				return false
			}
		}
	}
	return actives <= 1 && drafts <= 1
}
