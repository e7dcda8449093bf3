// Package gradecalc holds the pure grade arithmetic shared by the server
// (authoritative derivation on write) and the console (live previews).
// Keeping a single implementation prevents drift between the two.
package gradecalc

import (
	"math"
	"strconv"
	"strings"

	"github.com/yourorg/classtrack/internal/domain"
)

// Band is the cosmetic color band used for previews before submission.
type Band string

const (
	BandExceptional  Band = "exceptional"  // >= 90
	BandGood         Band = "good"         // >= 80
	BandSatisfactory Band = "satisfactory" // >= 70
	BandPassing      Band = "passing"      // >= 60
	BandFailing      Band = "failing"
)

// Percentage computes (score/maxScore)*100. The second return is false
// when maxScore is not positive or score is not a finite number, in which
// case the percentage is undefined and must render blank.
func Percentage(score float64, maxScore int) (float64, bool) {
	if maxScore <= 0 {
		return 0, false
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, false
	}
	return score / float64(maxScore) * 100, true
}

// ParseScore parses a raw score entry. Blank or unparseable input returns
// false; the bulk-entry flow silently skips such rows.
func ParseScore(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Letter maps a percentage to the platform letter grade.
func Letter(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}

// BandFor maps a percentage to its color band. Thresholds match Letter.
func BandFor(percentage float64) Band {
	switch {
	case percentage >= 90:
		return BandExceptional
	case percentage >= 80:
		return BandGood
	case percentage >= 70:
		return BandSatisfactory
	case percentage >= 60:
		return BandPassing
	default:
		return BandFailing
	}
}

// WeightedAverage groups grades by grade type, averages the percentage
// within each group, multiplies by that type's weight and sums across
// types with a non-nil weight. Nil-weight types neither contribute to nor
// block the result. The second return is false when no weighted type has
// any grades.
func WeightedAverage(grades []*domain.Grade, types []*domain.GradeType) (float64, bool) {
	byType := make(map[string][]float64)
	for _, g := range grades {
		byType[g.GradeTypeID] = append(byType[g.GradeTypeID], g.Percentage)
	}

	var sum float64
	contributed := false
	for _, gt := range types {
		if gt.Weight == nil {
			continue
		}
		pcts := byType[gt.ID]
		if len(pcts) == 0 {
			continue
		}
		var total float64
		for _, p := range pcts {
			total += p
		}
		sum += (total / float64(len(pcts))) * *gt.Weight
		contributed = true
	}
	return sum, contributed
}

// TotalWeight sums the weights of active, non-nil-weight types. The 1.0
// target is advisory; callers surface a warning, never a rejection.
func TotalWeight(types []*domain.GradeType) float64 {
	var sum float64
	for _, gt := range types {
		if gt.Weight != nil && gt.IsActive {
			sum += *gt.Weight
		}
	}
	return sum
}

// WeightsBalanced reports whether the active weights sum to 1.0 within a
// small tolerance.
func WeightsBalanced(types []*domain.GradeType) bool {
	return math.Abs(TotalWeight(types)-1.0) < 0.001
}
