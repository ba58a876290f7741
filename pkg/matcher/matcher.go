package matcher

import (
	"fmt"

	"github.com/agentstation/ledgermap/pkg/errors"
	"github.com/agentstation/ledgermap/pkg/records"
	"github.com/agentstation/ledgermap/pkg/types"
)

// Candidate is the accepted match of a record.
type Candidate struct {
	Entity *records.Entity
	Method types.MatchMethod
	Tier   types.Tier
}

// AttemptResult describes what one strategy produced.
type AttemptResult string

// Attempt results
const (
	AttemptAccepted  AttemptResult = "accepted"
	AttemptNone      AttemptResult = "none"
	AttemptSkipped   AttemptResult = "skipped"   // several candidates, next strategy tried
	AttemptAmbiguous AttemptResult = "ambiguous" // several HIGH candidates, matching stops
)

// Attempt records one strategy evaluation.
type Attempt struct {
	Method     types.MatchMethod
	Candidates int
	Result     AttemptResult
}

// Outcome is the result of matching one record.
type Outcome struct {
	Candidate *Candidate // nil when no strategy accepted
	Attempts  []Attempt
}

// Matcher evaluates strategies in order.
type Matcher struct {
	strategies []Strategy
}

// New creates a matcher over strategies, kept in the given order.
func New(strategies ...Strategy) *Matcher {
	return &Matcher{strategies: strategies}
}

// Default returns a matcher with every strategy in priority order.
func Default() *Matcher {
	return New(DefaultStrategies()...)
}

// DefaultStrategies returns the strategies in priority order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		NewEmbeddedIDStrategy(),
		NewEmailStrategy(),
		NewPhoneStrategy(),
		NewNameBirthdateStrategy(),
		NewLastNameBirthdateStrategy(),
		NewTokenContainmentStrategy(),
	}
}

// Select returns the default strategies named in methods. Priority order is
// kept regardless of the order of methods. An empty list selects all.
func Select(methods []types.MatchMethod) ([]Strategy, error) {
	all := DefaultStrategies()
	if len(methods) == 0 {
		return all, nil
	}
	wanted := make(map[types.MatchMethod]bool, len(methods))
	for _, m := range methods {
		wanted[m] = true
	}
	var selected []Strategy
	for _, s := range all {
		if wanted[s.Method()] {
			selected = append(selected, s)
			delete(wanted, s.Method())
		}
	}
	for _, m := range methods {
		if wanted[m] {
			return nil, errors.NewValidationError("strategies", m,
				fmt.Sprintf("unknown match strategy %q (valid: %v)", m, types.StrategyMethods()))
		}
	}
	return selected, nil
}

// Strategies returns the configured strategies.
func (m *Matcher) Strategies() []Strategy {
	return m.strategies
}

// Match runs the strategies against pool. A unique candidate is accepted. A
// HIGH strategy with several candidates stops matching with an
// AmbiguousMatchError; lower tiers with several candidates are skipped.
func (m *Matcher) Match(rec *records.Customer, pool *Pool) (Outcome, error) {
	var out Outcome
	for _, s := range m.strategies {
		found := s.Match(rec, pool)
		attempt := Attempt{Method: s.Method(), Candidates: len(found)}

		switch {
		case len(found) == 1:
			attempt.Result = AttemptAccepted
			out.Attempts = append(out.Attempts, attempt)
			out.Candidate = &Candidate{Entity: found[0], Method: s.Method(), Tier: s.Tier()}
			return out, nil
		case len(found) == 0:
			attempt.Result = AttemptNone
		case s.Tier() == types.TierHigh:
			attempt.Result = AttemptAmbiguous
			out.Attempts = append(out.Attempts, attempt)
			ids := make([]string, len(found))
			for i, e := range found {
				ids[i] = e.UUID
			}
			return out, errors.NewAmbiguousMatchError(rec.RowID, string(s.Method()), ids)
		default:
			attempt.Result = AttemptSkipped
		}
		out.Attempts = append(out.Attempts, attempt)
	}
	return out, nil
}
