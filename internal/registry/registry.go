package registry

import (
	"lifeplan-backend/internal/domain"
)

// Field pairs a content field key with the section it belongs to.
type Field struct {
	Key     string
	Section string
}

// The field tables are the schema: a content key is legal for a document type
// iff it appears here. Order is the display order.
var profileFields = []Field{
	{Key: "core_identity", Section: "identity"},
	{Key: "life_roles", Section: "identity"},
	{Key: "core_values", Section: "values"},
	{Key: "guiding_principles", Section: "values"},
	{Key: "key_relationships", Section: "relationships"},
	{Key: "community_involvement", Section: "relationships"},
	{Key: "career_direction", Section: "career"},
	{Key: "skills_to_develop", Section: "career"},
	{Key: "health_practices", Section: "wellbeing"},
	{Key: "stress_management", Section: "wellbeing"},
	{Key: "financial_goals", Section: "finances"},
	{Key: "giving_plan", Section: "finances"},
}

var visionFields = []Field{
	{Key: "vision_statement", Section: "vision"},
	{Key: "ten_year_picture", Section: "vision"},
	{Key: "annual_theme", Section: "vision"},
	{Key: "key_milestones", Section: "milestones"},
	{Key: "next_quarter_focus", Section: "milestones"},
	{Key: "legacy_statement", Section: "legacy"},
	{Key: "eulogy_virtues", Section: "legacy"},
}

// Fields returns the ordered (key, section) pairs for a document type.
// Unknown types yield an empty list.
func Fields(documentType domain.DocumentType) []Field {
	switch documentType {
	case domain.DocumentTypeProfile:
		return profileFields
	case domain.DocumentTypeVision:
		return visionFields
	}
	return nil
}

// IsValidField reports whether fieldKey is a legal content key for the type.
func IsValidField(documentType domain.DocumentType, fieldKey string) bool {
	for _, f := range Fields(documentType) {
		if f.Key == fieldKey {
			return true
		}
	}
	return false
}

// SectionOf returns the section a field belongs to.
func SectionOf(documentType domain.DocumentType, fieldKey string) (string, bool) {
	for _, f := range Fields(documentType) {
		if f.Key == fieldKey {
			return f.Section, true
		}
	}
	return "", false
}

// Sections returns the distinct section keys for a document type, in field order.
func Sections(documentType domain.DocumentType) []string {
	var sections []string
	seen := map[string]bool{}
	for _, f := range Fields(documentType) {
		if !seen[f.Section] {
			seen[f.Section] = true
			sections = append(sections, f.Section)
		}
	}
	return sections
}
