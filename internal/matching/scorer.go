package matching

import (
	"math"

	"github.com/potchii/data-match-system-sub000/internal/domain"
)

// Scorer computes the audited confidence percentage for a match. It runs the
// same way regardless of which rule fired: only the fields the uploaded row
// actually supplied are compared, so unsupplied registry fields neither help
// nor hurt the score.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Score compares every uploaded core field against the matched record and
// returns the percentage of agreeing fields (two decimal places) plus the
// field-by-field breakdown for audit display. Zero comparable fields score 0.
func (s *Scorer) Score(uploaded map[string]string, record *domain.PersonRecord) (float64, *domain.FieldBreakdown) {
	breakdown := &domain.FieldBreakdown{
		Fields: make(map[string]domain.FieldComparison, len(uploaded)),
	}
	for field, uploadedValue := range uploaded {
		existingValue := record.CoreFieldValue(field)
		breakdown.TotalFields++
		status := "mismatch"
		if valuesMatch(uploadedValue, existingValue) {
			breakdown.MatchedFields++
			status = "match"
		}
		breakdown.Fields[field] = domain.FieldComparison{
			Status:   status,
			Uploaded: uploadedValue,
			Existing: existingValue,
		}
	}
	if breakdown.TotalFields == 0 {
		return 0, breakdown
	}
	score := float64(breakdown.MatchedFields) / float64(breakdown.TotalFields) * 100
	return math.Round(score*100) / 100, breakdown
}

// valuesMatch treats null and empty string as equivalent; stored dates are
// already rendered in canonical Y-M-D form by CoreFieldValue, so everything
// compares by strict string equality.
func valuesMatch(a, b string) bool {
	return a == b
}
