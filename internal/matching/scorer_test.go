package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/potchii/data-match-system-sub000/internal/domain"
)

func TestScoreAllFieldsAgree(t *testing.T) {
	scorer := NewScorer()
	birthday := time.Date(1990, 5, 13, 0, 0, 0, 0, time.UTC)
	record := domain.PersonRecord{
		UID:       "UID-1",
		LastName:  "Dela Cruz",
		FirstName: "Juan",
		Birthday:  &birthday,
		Gender:    "Male",
	}

	score, breakdown := scorer.Score(map[string]string{
		domain.FieldLastName:  "Dela Cruz",
		domain.FieldFirstName: "Juan",
		domain.FieldBirthday:  "1990-05-13",
		domain.FieldGender:    "Male",
	}, &record)

	assert.Equal(t, 100.0, score)
	assert.Equal(t, 4, breakdown.TotalFields)
	assert.Equal(t, 4, breakdown.MatchedFields)
	assert.Equal(t, "match", breakdown.Fields[domain.FieldBirthday].Status)
}

func TestScoreOnlyUploadedFieldsCount(t *testing.T) {
	scorer := NewScorer()
	record := domain.PersonRecord{
		LastName:  "Dela Cruz",
		FirstName: "Juan",
		Gender:    "Male",
		City:      "Manila",
	}

	// Record has more fields than the upload; only the uploaded two count.
	score, breakdown := scorer.Score(map[string]string{
		domain.FieldLastName:  "Dela Cruz",
		domain.FieldFirstName: "Juan",
	}, &record)

	assert.Equal(t, 100.0, score)
	assert.Equal(t, 2, breakdown.TotalFields)
}

func TestScorePartialAgreement(t *testing.T) {
	scorer := NewScorer()
	record := domain.PersonRecord{
		LastName:  "Dela Cruz",
		FirstName: "Juan",
		Gender:    "Male",
	}

	score, breakdown := scorer.Score(map[string]string{
		domain.FieldLastName:  "Dela Cruz",
		domain.FieldFirstName: "Juan",
		domain.FieldGender:    "Female",
	}, &record)

	assert.InDelta(t, 66.67, score, 0.001)
	require.Equal(t, 3, breakdown.TotalFields)
	assert.Equal(t, 2, breakdown.MatchedFields)
	comparison := breakdown.Fields[domain.FieldGender]
	assert.Equal(t, "mismatch", comparison.Status)
	assert.Equal(t, "Female", comparison.Uploaded)
	assert.Equal(t, "Male", comparison.Existing)
}

func TestScoreNoFields(t *testing.T) {
	scorer := NewScorer()
	record := domain.PersonRecord{LastName: "Dela Cruz"}

	score, breakdown := scorer.Score(map[string]string{}, &record)
	assert.Equal(t, 0.0, score)
	assert.Equal(t, 0, breakdown.TotalFields)
}

func TestScoreRoundsToTwoDecimals(t *testing.T) {
	scorer := NewScorer()
	record := domain.PersonRecord{LastName: "Cruz"}

	// 1 of 7 fields agree: 14.2857... -> 14.29.
	uploaded := map[string]string{
		domain.FieldLastName:    "Cruz",
		domain.FieldFirstName:   "x1",
		domain.FieldMiddleName:  "x2",
		domain.FieldGender:      "x3",
		domain.FieldCivilStatus: "x4",
		domain.FieldCity:        "x5",
		domain.FieldProvince:    "x6",
	}
	score, _ := scorer.Score(uploaded, &record)
	assert.Equal(t, 14.29, score)
}
