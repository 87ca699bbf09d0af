package domain

import (
	"time"

	"github.com/google/uuid"
)

// DocumentType identifies which field registry and scope rules apply.
type DocumentType string

const (
	DocumentTypeProfile DocumentType = "profile"
	DocumentTypeVision  DocumentType = "vision"
)

// ParseDocumentType maps a route/request string to a known document type.
func ParseDocumentType(s string) (DocumentType, bool) {
	switch DocumentType(s) {
	case DocumentTypeProfile:
		return DocumentTypeProfile, true
	case DocumentTypeVision:
		return DocumentTypeVision, true
	}
	return "", false
}

// Scope is the (owner, optional group) pair a version chain belongs to.
// An empty GroupID means the owner's personal scope.
type Scope struct {
	OwnerID uint64
	GroupID string
}

// FieldContent maps content field keys to their values.
type FieldContent map[string]any

type Version struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentType  DocumentType `gorm:"size:16;index:idx_versions_scope,priority:1" json:"document_type"`
	OwnerID       uint64       `gorm:"index:idx_versions_scope,priority:2" json:"owner_id"`
	GroupID       string       `gorm:"size:64;default:'';index:idx_versions_scope,priority:3" json:"group_id,omitempty"`
	ParentID      *uuid.UUID   `gorm:"type:uuid" json:"parent_id,omitempty"`
	IsActive      bool         `json:"is_active"`
	IsDraft       bool         `json:"is_draft"`
	Content       FieldContent `gorm:"serializer:json" json:"content"`
	RefinedFields []string     `gorm:"serializer:json" json:"refined_fields"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (v *Version) Scope() Scope {
	return Scope{OwnerID: v.OwnerID, GroupID: v.GroupID}
}

// HasRefined reports whether the field was explicitly marked as refined.
func (v *Version) HasRefined(fieldKey string) bool {
	for _, key := range v.RefinedFields {
		if key == fieldKey {
			return true
		}
	}
	return false
}
