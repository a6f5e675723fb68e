package pipeline

import (
	"fmt"
	"strings"

	"github.com/OmarAI2003/AI-Legal-Checker/internal/models"
)

// buildSummary renders the counts handed to the reasoning layer. It depends
// only on its inputs.
func buildSummary(embedded []models.EmbeddedClause, similar []models.SimilarClause, comparison models.ComparisonResult) string {
	var b strings.Builder
	b.WriteString("تحليل المقارنة مع قاعدة البيانات:\n")
	fmt.Fprintf(&b, "- عدد البنود المستخرجة: %d\n", len(embedded))
	fmt.Fprintf(&b, "- عدد البنود المشابهة الموجودة: %d\n", len(similar))
	fmt.Fprintf(&b, "- عدد البنود المطابقة: %d\n", len(comparison.Matches))
	fmt.Fprintf(&b, "- عدد البنود الفريدة: %d", len(comparison.UniqueClauses))

	switch {
	case len(similar) == 0:
		b.WriteString("\n- لم يتم العثور على بنود مشابهة في العقود السابقة")
	case len(comparison.Matches) > 0:
		b.WriteString("\n- تم العثور على بنود مشابهة في عقود سابقة")
		b.WriteString("\n- يمكن استخدام هذه المقارنة لتحسين صياغة العقد الحالي")
	}
	return b.String()
}
