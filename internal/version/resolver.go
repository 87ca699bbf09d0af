package version

import (
	"context"
	"errors"

	"lifeplan-backend/internal/domain"

	"gorm.io/gorm"
)

// Resolver finds "the" current version for a scope. The active flag can be
// legitimately unset in transient states, so resolution falls back through:
//
//  1. the version with is_active = true
//  2. the most recently created non-draft version
//  3. the most recently created version of any kind
//
// When the scope has no versions at all, gorm.ErrRecordNotFound propagates
// and the caller decides whether to create a first version.
type Resolver struct {
	repository Repository
}

func NewResolver(repository Repository) *Resolver {
	return &Resolver{repository: repository}
}

func (r *Resolver) Resolve(ctx context.Context, documentType domain.DocumentType, scope domain.Scope) (*domain.Version, error) {
	v, err := r.repository.FindActive(ctx, documentType, scope)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	v, err = r.repository.LatestByScope(ctx, documentType, scope, ListFilters{ExcludeDrafts: true})
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return r.repository.LatestByScope(ctx, documentType, scope, ListFilters{})
}

// ResolveWithHistory returns the resolved current version together with the
// scope's non-draft history in chronological order.
func (r *Resolver) ResolveWithHistory(ctx context.Context, documentType domain.DocumentType, scope domain.Scope) (*domain.Version, []domain.Version, error) {
	current, err := r.Resolve(ctx, documentType, scope)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, []domain.Version{}, err
		}
		return nil, nil, err
	}

	history, err := r.repository.ListByScope(ctx, documentType, scope, ListFilters{ExcludeDrafts: true})
	if err != nil {
		return nil, nil, err
	}

	return current, history, nil
}
