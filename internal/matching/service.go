package matching

import (
	"github.com/potchii/data-match-system-sub000/internal/domain"
	"github.com/potchii/data-match-system-sub000/internal/mapping"
)

// Service binds the rule chain and scorer into the single verdict operation
// the importer consumes. The candidate pool is supplied per call; the service
// itself holds no batch state.
type Service struct {
	chain  *Chain
	scorer *Scorer
}

func NewService(chain *Chain) *Service {
	return &Service{chain: chain, scorer: NewScorer()}
}

// FindMatch evaluates the cascade against the pool and, when a rule fires,
// runs the uniform confidence scorer against the matched record. The rule's
// advisory tier and the scorer's percentage are both reported; the scorer's
// number is the one persisted as "confidence".
func (s *Service) FindMatch(row mapping.MappedRow, pool []domain.PersonRecord) domain.MatchVerdict {
	rule, candidate := s.chain.Evaluate(IncomingFromMapped(row), pool)
	if rule == nil {
		return domain.MatchVerdict{
			Status:     domain.StatusNewRecord,
			Confidence: 0,
		}
	}
	score, breakdown := s.scorer.Score(row.CoreFields, candidate)
	return domain.MatchVerdict{
		Status:         rule.Status(),
		Confidence:     score,
		RuleConfidence: rule.Confidence(),
		MatchedUID:     candidate.UID,
		RuleName:       rule.Name(),
		Breakdown:      breakdown,
	}
}
