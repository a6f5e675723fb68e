package comparator

import (
	"math"

	"github.com/OmarAI2003/AI-Legal-Checker/internal/models"
)

// oneToOne solves the assignment problem over clause/candidate pairs of the
// same category with positive similarity. Other pairs are never matched.
func oneToOne(embedded []models.EmbeddedClause, similar []models.SimilarClause) []int {
	assigned := make([]int, len(embedded))
	for i := range assigned {
		assigned[i] = -1
	}

	n := len(embedded)
	if len(similar) > n {
		n = len(similar)
	}
	if n == 0 {
		return assigned
	}

	// Square cost matrix; padding rows and columns and forbidden pairs cost 0.
	cost := make([][]float64, n)
	for i := range cost {
		cost[i] = make([]float64, n)
		if i >= len(embedded) {
			continue
		}
		for j, s := range similar {
			if allowed(embedded[i], s) {
				cost[i][j] = -s.SimilarityScore
			}
		}
	}

	for i, j := range hungarian(cost) {
		if i < len(embedded) && j < len(similar) && allowed(embedded[i], similar[j]) {
			assigned[i] = j
		}
	}
	return assigned
}

func allowed(ec models.EmbeddedClause, s models.SimilarClause) bool {
	return s.Category == ec.Category && s.SimilarityScore > 0
}

// hungarian returns a minimum-cost perfect assignment of the square matrix
// cost as the column chosen for each row.
func hungarian(cost [][]float64) []int {
	n := len(cost)
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	p := make([]int, n+1)
	way := make([]int, n+1)

	for i := 1; i <= n; i++ {
		p[0] = i
		j0 := 0
		minv := make([]float64, n+1)
		used := make([]bool, n+1)
		for j := range minv {
			minv[j] = math.Inf(1)
		}

		for {
			used[j0] = true
			i0, delta, j1 := p[j0], math.Inf(1), 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost[i0-1][j-1] - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[p[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if p[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			p[j0] = p[j1]
			j0 = j1
		}
	}

	rows := make([]int, n)
	for j := 1; j <= n; j++ {
		if p[j] != 0 {
			rows[p[j]-1] = j - 1
		}
	}
	return rows
}
