// Package comparator pairs current clauses with retrieved reference clauses
// and sorts them into matches and unique clauses.
package comparator

import (
	"fmt"

	"github.com/OmarAI2003/AI-Legal-Checker/internal/models"
)

type Strategy string

const (
	// StrategyBestMatch picks, per clause, the highest scoring candidate of
	// the same category. A candidate may serve several clauses.
	StrategyBestMatch Strategy = "best_match"
	// StrategyOneToOne assigns each candidate to at most one clause,
	// maximizing the total similarity of the assignment.
	StrategyOneToOne Strategy = "one_to_one"
)

const DefaultLowSimilarityThreshold = 0.5

func (s Strategy) Valid() bool {
	return s == StrategyBestMatch || s == StrategyOneToOne
}

type Config struct {
	Strategy Strategy
	// LowSimilarityThreshold flags matches scoring below it. Zero disables
	// the check for non-negative scores.
	LowSimilarityThreshold float64
}

type Comparator struct {
	config Config
}

func New(config Config) (*Comparator, error) {
	if config.Strategy == "" {
		config.Strategy = StrategyBestMatch
	}
	if !config.Strategy.Valid() {
		return nil, fmt.Errorf("comparator: unknown strategy %q", config.Strategy)
	}
	return &Comparator{config: config}, nil
}

func (c *Comparator) Strategy() Strategy { return c.config.Strategy }

// Compare partitions embedded into matches and unique clauses. Both keep the
// order of embedded. Scores are reported as retrieved.
func (c *Comparator) Compare(embedded []models.EmbeddedClause, similar []models.SimilarClause) models.ComparisonResult {
	var assigned []int
	switch c.config.Strategy {
	case StrategyOneToOne:
		assigned = oneToOne(embedded, similar)
	default:
		assigned = bestMatch(embedded, similar)
	}

	result := models.ComparisonResult{
		Matches:                []models.ClauseMatch{},
		UniqueClauses:          []models.Clause{},
		PotentialIssues:        []string{},
		ImprovementSuggestions: []string{},
	}
	for i, ec := range embedded {
		j := assigned[i]
		if j < 0 {
			result.UniqueClauses = append(result.UniqueClauses, ec.Clause)
			if ec.Importance == models.ImportanceHigh {
				result.PotentialIssues = append(result.PotentialIssues, missingReferenceNote(ec.Clause))
			}
			continue
		}

		match := models.ClauseMatch{
			CurrentClauseText: ec.Text,
			MatchedClauseText: similar[j].Text,
			SimilarityScore:   similar[j].SimilarityScore,
			Category:          ec.Category,
		}
		result.Matches = append(result.Matches, match)
		if match.SimilarityScore < c.config.LowSimilarityThreshold {
			result.ImprovementSuggestions = append(result.ImprovementSuggestions, lowSimilarityNote(ec.Clause, match.SimilarityScore))
		}
	}
	return result
}

// bestMatch returns, per clause, the index of the first highest scoring
// candidate of the same category, or -1.
func bestMatch(embedded []models.EmbeddedClause, similar []models.SimilarClause) []int {
	assigned := make([]int, len(embedded))
	for i, ec := range embedded {
		assigned[i] = -1
		for j, s := range similar {
			if s.Category != ec.Category {
				continue
			}
			if assigned[i] < 0 || s.SimilarityScore > similar[assigned[i]].SimilarityScore {
				assigned[i] = j
			}
		}
	}
	return assigned
}

func missingReferenceNote(c models.Clause) string {
	return fmt.Sprintf("البند %s عالي الأهمية ولا يوجد له بند مرجعي مماثل", c.ID)
}

func lowSimilarityNote(c models.Clause, score float64) string {
	return fmt.Sprintf("البند %s يشبه البند المرجعي بدرجة منخفضة (%.3f)، يُنصح بمراجعة صياغته", c.ID, score)
}
