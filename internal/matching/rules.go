package matching

import (
	"github.com/agnivade/levenshtein"

	"github.com/potchii/data-match-system-sub000/internal/domain"
	"github.com/potchii/data-match-system-sub000/internal/mapping"
)

// Incoming is the normalized identity of one uploaded row, ready for rule
// evaluation. Names are in matching form (lowercase, trimmed); Birthday is
// the canonical Y-M-D string or "" when absent.
type Incoming struct {
	LastName   string
	FirstName  string
	MiddleName string
	Birthday   string
}

// IncomingFromMapped builds the rule-evaluation view of a mapped row.
func IncomingFromMapped(row mapping.MappedRow) Incoming {
	return Incoming{
		LastName:   domain.NormalizeName(row.CoreFields[domain.FieldLastName]),
		FirstName:  domain.NormalizeName(row.CoreFields[domain.FieldFirstName]),
		MiddleName: domain.NormalizeName(row.CoreFields[domain.FieldMiddleName]),
		Birthday:   row.CoreFields[domain.FieldBirthday],
	}
}

// Rule is one identity-matching strategy. Rules report the first satisfying
// candidate in pool order, or nil.
type Rule interface {
	Name() string
	Confidence() float64
	Status() domain.MatchStatus
	Match(in Incoming, pool []domain.PersonRecord) *domain.PersonRecord
}

// Chain evaluates rules strictly in priority order; the first rule with a
// satisfying candidate wins and nothing below it runs. The ordering is the
// contract, so it lives in one explicit slice.
type Chain struct {
	rules []Rule
}

// NewChain builds the standard cascade: exact, partial-with-birthday,
// full-name, fuzzy.
func NewChain(fuzzyThreshold float64) *Chain {
	return &Chain{rules: []Rule{
		exactRule{},
		partialWithBirthdayRule{},
		fullNameRule{},
		fuzzyNameRule{threshold: fuzzyThreshold},
	}}
}

// Rules exposes the cascade in evaluation order.
func (c *Chain) Rules() []Rule {
	return c.rules
}

// Evaluate runs the cascade and returns the winning rule and candidate, or
// (nil, nil) when no rule matches.
func (c *Chain) Evaluate(in Incoming, pool []domain.PersonRecord) (Rule, *domain.PersonRecord) {
	for _, rule := range c.rules {
		if candidate := rule.Match(in, pool); candidate != nil {
			return rule, candidate
		}
	}
	return nil, nil
}

// exactRule: last, first, and middle name all equal, and the birthday is
// present on both sides and equal.
type exactRule struct{}

func (exactRule) Name() string               { return "exact_match" }
func (exactRule) Confidence() float64        { return 100.0 }
func (exactRule) Status() domain.MatchStatus { return domain.StatusMatched }

func (exactRule) Match(in Incoming, pool []domain.PersonRecord) *domain.PersonRecord {
	if in.Birthday == "" {
		return nil
	}
	for i := range pool {
		candidate := &pool[i]
		if candidate.LastNameNormalized == in.LastName &&
			candidate.FirstNameNormalized == in.FirstName &&
			candidate.MiddleNameNormalized == in.MiddleName &&
			candidate.BirthdayString() == in.Birthday {
			return candidate
		}
	}
	return nil
}

// partialWithBirthdayRule: last and first name plus birthday equal; tolerates
// differing middle names and suffixes. Mutually exclusive with exactRule in
// practice because the exact rule runs first.
type partialWithBirthdayRule struct{}

func (partialWithBirthdayRule) Name() string               { return "partial_match_with_birthday" }
func (partialWithBirthdayRule) Confidence() float64        { return 90.0 }
func (partialWithBirthdayRule) Status() domain.MatchStatus { return domain.StatusMatched }

func (partialWithBirthdayRule) Match(in Incoming, pool []domain.PersonRecord) *domain.PersonRecord {
	if in.Birthday == "" {
		return nil
	}
	for i := range pool {
		candidate := &pool[i]
		if candidate.LastNameNormalized == in.LastName &&
			candidate.FirstNameNormalized == in.FirstName &&
			candidate.BirthdayString() == in.Birthday {
			return candidate
		}
	}
	return nil
}

// fullNameRule: a name-only match when the birthday cannot be compared
// because it is missing on one or both sides. The middle name must agree
// when the incoming row supplied one.
type fullNameRule struct{}

func (fullNameRule) Name() string               { return "full_name_match" }
func (fullNameRule) Confidence() float64        { return 80.0 }
func (fullNameRule) Status() domain.MatchStatus { return domain.StatusPossibleDuplicate }

func (fullNameRule) Match(in Incoming, pool []domain.PersonRecord) *domain.PersonRecord {
	for i := range pool {
		candidate := &pool[i]
		if candidate.LastNameNormalized != in.LastName ||
			candidate.FirstNameNormalized != in.FirstName {
			continue
		}
		if in.MiddleName != "" && candidate.MiddleNameNormalized != in.MiddleName {
			continue
		}
		if in.Birthday != "" && candidate.BirthdayString() != "" {
			continue // both birthdays known; rules above already had their say
		}
		return candidate
	}
	return nil
}

// fuzzyNameRule: names similar under a normalized Levenshtein ratio. A
// candidate qualifies when the mean of the last-name and first-name ratios
// meets the threshold; the best mean wins and ties keep the earlier pool
// entry. Deterministic for a fixed pool.
type fuzzyNameRule struct {
	threshold float64
}

func (fuzzyNameRule) Name() string               { return "fuzzy_name_match" }
func (fuzzyNameRule) Confidence() float64        { return 70.0 }
func (fuzzyNameRule) Status() domain.MatchStatus { return domain.StatusPossibleDuplicate }

func (r fuzzyNameRule) Match(in Incoming, pool []domain.PersonRecord) *domain.PersonRecord {
	if in.LastName == "" || in.FirstName == "" {
		return nil
	}
	var best *domain.PersonRecord
	bestScore := 0.0
	for i := range pool {
		candidate := &pool[i]
		score := (similarity(in.LastName, candidate.LastNameNormalized) +
			similarity(in.FirstName, candidate.FirstNameNormalized)) / 2
		if score >= r.threshold && score > bestScore {
			bestScore = score
			best = candidate
		}
	}
	return best
}

// similarity is the normalized Levenshtein ratio: 1 - distance/maxLen,
// computed over the already-normalized name forms. Identical strings score
// 1.0; two empty strings are not considered similar.
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := max(len([]rune(a)), len([]rune(b)))
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
