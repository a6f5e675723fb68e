// Package category resolves the free-form clause labels produced by the
// extraction service into canonical categories and importance levels.
package category

import (
	"fmt"
	"sort"
	"strings"

	"github.com/OmarAI2003/AI-Legal-Checker/internal/models"
)

// DefaultTable maps the labels emitted by the Arabic extraction prompt to
// canonical categories. Canonical names always resolve to themselves and are
// not listed here.
func DefaultTable() map[string]string {
	return map[string]string{
		"راتب":      string(models.CategorySalary),
		"الراتب":    string(models.CategorySalary),
		"أجر":       string(models.CategorySalary),
		"ساعات_عمل": string(models.CategoryWorkingHours),
		"مدة_عقد":   string(models.CategoryDuration),
		"مدة_العقد": string(models.CategoryDuration),
		"إنهاء":     string(models.CategoryTermination),
		"انهاء":     string(models.CategoryTermination),
		"التزامات":  string(models.CategoryObligations),
		"عام":       string(models.CategoryGeneral),
	}
}

// Mapper resolves labels through an explicit lookup table. It is immutable
// after construction and safe for concurrent use.
type Mapper struct {
	table map[string]models.Category
}

// NewMapper validates table and returns a Mapper over DefaultTable extended
// (and overridden) by table. Keys are compared after normalization: two keys
// of the same table that normalize to the same label must agree on the
// target, and canonical names cannot be remapped.
func NewMapper(table map[string]string) (*Mapper, error) {
	resolved := make(map[string]models.Category, len(table)+16)
	for _, c := range models.Categories() {
		resolved[string(c)] = c
	}

	if err := apply(resolved, DefaultTable()); err != nil {
		return nil, err
	}
	if err := apply(resolved, table); err != nil {
		return nil, err
	}

	return &Mapper{table: resolved}, nil
}

func apply(resolved map[string]models.Category, table map[string]string) error {
	// Sorted so that conflict errors are reported deterministically.
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[string]models.Category, len(table))
	for _, k := range keys {
		label := Normalize(k)
		if label == "" {
			return fmt.Errorf("category mapping: empty label")
		}
		target := models.Category(Normalize(table[k]))
		if !target.Valid() {
			return fmt.Errorf("category mapping: label %q maps to unknown category %q", k, table[k])
		}
		if c := models.Category(label); c.Valid() && c != target {
			return fmt.Errorf("category mapping: canonical label %q cannot be remapped to %q", label, target)
		}
		if prev, ok := seen[label]; ok && prev != target {
			return fmt.Errorf("category mapping: label %q maps to both %q and %q", label, prev, target)
		}
		seen[label] = target
		resolved[label] = target
	}
	return nil
}

// Default returns a Mapper over DefaultTable.
func Default() *Mapper {
	m, err := NewMapper(nil)
	if err != nil {
		panic(err)
	}
	return m
}

// Canonical resolves label. Empty and unknown labels fall back to the
// catch-all category.
func (m *Mapper) Canonical(label string) models.Category {
	if c, ok := m.table[Normalize(label)]; ok {
		return c
	}
	return models.CategoryGeneral
}

// Labels returns the number of labels the mapper recognizes.
func (m *Mapper) Labels() int {
	return len(m.table)
}

// Normalize trims, lower-cases and joins inner whitespace with underscores.
func Normalize(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "_")
}

var importanceTable = map[string]models.Importance{
	"high":   models.ImportanceHigh,
	"عالية":  models.ImportanceHigh,
	"عالي":   models.ImportanceHigh,
	"medium": models.ImportanceMedium,
	"متوسطة": models.ImportanceMedium,
	"متوسط":  models.ImportanceMedium,
	"low":    models.ImportanceLow,
	"منخفضة": models.ImportanceLow,
	"منخفض":  models.ImportanceLow,
}

// Importance resolves an importance label, defaulting to medium.
func Importance(label string) models.Importance {
	if i, ok := importanceTable[Normalize(label)]; ok {
		return i
	}
	return models.ImportanceMedium
}
