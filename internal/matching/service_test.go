package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/potchii/data-match-system-sub000/internal/domain"
	"github.com/potchii/data-match-system-sub000/internal/mapping"
	"github.com/potchii/data-match-system-sub000/internal/platform/config"
)

func TestFindMatchNewRecord(t *testing.T) {
	svc := NewService(NewChain(config.DefaultFuzzyThreshold))

	verdict := svc.FindMatch(mapping.MappedRow{CoreFields: map[string]string{
		domain.FieldLastName:  "Cruz",
		domain.FieldFirstName: "Ana",
	}}, nil)

	assert.Equal(t, domain.StatusNewRecord, verdict.Status)
	assert.Equal(t, 0.0, verdict.Confidence)
	assert.Empty(t, verdict.MatchedUID)
	assert.Empty(t, verdict.RuleName)
	assert.Nil(t, verdict.Breakdown)
}

func TestFindMatchReportsRuleAndScore(t *testing.T) {
	svc := NewService(NewChain(config.DefaultFuzzyThreshold))
	pool := []domain.PersonRecord{
		newRecord("UID-1", "Dela Cruz", "Juan", "Santos", "1990-05-13"),
	}

	verdict := svc.FindMatch(mapping.MappedRow{CoreFields: map[string]string{
		domain.FieldLastName:   "Dela Cruz",
		domain.FieldFirstName:  "Juan",
		domain.FieldMiddleName: "Santos",
		domain.FieldBirthday:   "1990-05-13",
	}}, pool)

	assert.Equal(t, domain.StatusMatched, verdict.Status)
	assert.Equal(t, "exact_match", verdict.RuleName)
	assert.Equal(t, 100.0, verdict.RuleConfidence)
	assert.Equal(t, 100.0, verdict.Confidence)
	assert.Equal(t, "UID-1", verdict.MatchedUID)
	require.NotNil(t, verdict.Breakdown)
	assert.Equal(t, 4, verdict.Breakdown.TotalFields)
}

func TestFindMatchScorerIndependentOfRuleTier(t *testing.T) {
	svc := NewService(NewChain(config.DefaultFuzzyThreshold))
	pool := []domain.PersonRecord{
		newRecord("UID-1", "Dela Cruz", "Juan", "Santos", "1990-05-13"),
	}

	// Partial rule fires at tier 90 but the scorer sees the middle-name
	// disagreement: 3 of 4 uploaded fields agree.
	verdict := svc.FindMatch(mapping.MappedRow{CoreFields: map[string]string{
		domain.FieldLastName:   "Dela Cruz",
		domain.FieldFirstName:  "Juan",
		domain.FieldMiddleName: "Reyes",
		domain.FieldBirthday:   "1990-05-13",
	}}, pool)

	assert.Equal(t, "partial_match_with_birthday", verdict.RuleName)
	assert.Equal(t, 90.0, verdict.RuleConfidence)
	assert.Equal(t, 75.0, verdict.Confidence)
}
