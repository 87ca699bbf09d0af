package version

import (
	"context"
	"log"

	"lifeplan-backend/internal/domain"

	"github.com/google/uuid"
)

// Numberer computes display version numbers. A version's number is its
// 1-based chronological rank among the non-draft versions of its scope.
// The number is recomputed from creation order instead of being stored,
// so it can never drift when rows are removed.
type Numberer struct {
	repository Repository
}

func NewNumberer(repository Repository) *Numberer {
	return &Numberer{repository: repository}
}

// NumberOf returns the display number for a version id. Drafts are
// unnumbered and yield 0 (pending). The number is cosmetic, so any
// failure degrades to 1 instead of failing the surrounding read.
func (n *Numberer) NumberOf(ctx context.Context, id uuid.UUID) int {
	v, err := n.repository.FindByID(ctx, id)
	if err != nil {
		log.Printf("[VERSION] number lookup for %s failed: %v", id, err)
		return 1
	}
	return n.NumberFor(ctx, v)
}

// NumberFor ranks an already-loaded version.
func (n *Numberer) NumberFor(ctx context.Context, v *domain.Version) int {
	if v.IsDraft {
		return 0
	}

	rows, err := n.repository.ListByScope(ctx, v.DocumentType, v.Scope(), ListFilters{ExcludeDrafts: true})
	if err != nil {
		log.Printf("[VERSION] listing scope for %s failed: %v", v.ID, err)
		return 1
	}

	for i, row := range rows {
		if row.ID == v.ID {
			return i + 1
		}
	}
	return 1
}

// PendingNumber is the number a draft would get if committed now.
func (n *Numberer) PendingNumber(ctx context.Context, draft *domain.Version) int {
	count, err := n.repository.CountByScope(ctx, draft.DocumentType, draft.Scope(), ListFilters{ExcludeDrafts: true})
	if err != nil {
		log.Printf("[VERSION] pending number for %s failed: %v", draft.ID, err)
		return 1
	}
	return int(count) + 1
}

// NumbersFor ranks a chronologically ordered non-draft history in one pass,
// avoiding a scan per row on list endpoints.
func (n *Numberer) NumbersFor(history []domain.Version) map[uuid.UUID]int {
	numbers := make(map[uuid.UUID]int, len(history))
	rank := 0
	for _, v := range history {
		if v.IsDraft {
			continue
		}
		rank++
		numbers[v.ID] = rank
	}
	return numbers
}
