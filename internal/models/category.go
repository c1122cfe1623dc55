package models

import "strings"

// Progression categories. The category picks the weight increment used by
// linear progression.
const (
	CategoryUpper    = "upper"
	CategoryLower    = "lower"
	CategoryDeadlift = "deadlift"
)

// categoryMap maps lowercased category spellings to their canonical names.
var categoryMap = map[string]string{
	"upper":      CategoryUpper,
	"upper body": CategoryUpper,
	"push":       CategoryUpper,
	"pull":       CategoryUpper,

	"lower":      CategoryLower,
	"lower body": CategoryLower,
	"legs":       CategoryLower,

	"deadlift": CategoryDeadlift,
	"hinge":    CategoryDeadlift,
}

// NormalizeCategory maps a category name to its canonical form.
// Returns (canonical, true) for known names and (CategoryUpper, false) for
// anything else, matching the schema default.
func NormalizeCategory(name string) (string, bool) {
	if c, ok := categoryMap[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c, true
	}
	return CategoryUpper, false
}
