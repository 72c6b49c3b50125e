package backfill

import (
	"context"
	"fmt"
	"log/slog"
)

// GateResult is one self-check outcome. A gate passes when it found no
// issues.
type GateResult struct {
	Name   string   `json:"name"`
	Passed bool     `json:"passed"`
	Issues []string `json:"issues,omitempty"`
}

// GateRepository supplies the raw findings the gates evaluate.
type GateRepository interface {
	DuplicateDocumentNumbers(ctx context.Context) ([]string, error)
	UnknownDivisions(ctx context.Context) ([]string, error)
	BrokenAdvanceLines(ctx context.Context) ([]string, error)
}

// VerifyNamingSeries checks that no document number was issued twice.
func (s *Service) VerifyNamingSeries(ctx context.Context) (GateResult, error) {
	dupes, err := s.gates.DuplicateDocumentNumbers(ctx)
	if err != nil {
		return GateResult{}, err
	}
	result := GateResult{Name: "naming_series", Passed: len(dupes) == 0}
	for _, d := range dupes {
		result.Issues = append(result.Issues, "duplicate number "+d)
	}
	return result, nil
}

// VerifyDivisionScope checks that every document's division is a known code.
func (s *Service) VerifyDivisionScope(ctx context.Context) (GateResult, error) {
	unknown, err := s.gates.UnknownDivisions(ctx)
	if err != nil {
		return GateResult{}, err
	}
	result := GateResult{Name: "division_scope", Passed: len(unknown) == 0}
	for _, u := range unknown {
		result.Issues = append(result.Issues, "unknown division "+u)
	}
	return result, nil
}

// VerifyAdvanceInvariant checks balance = allocated - consumed and the
// open/closed status on every advance line.
func (s *Service) VerifyAdvanceInvariant(ctx context.Context) (GateResult, error) {
	broken, err := s.gates.BrokenAdvanceLines(ctx)
	if err != nil {
		return GateResult{}, err
	}
	result := GateResult{Name: "advance_invariant", Passed: len(broken) == 0}
	result.Issues = append(result.Issues, broken...)
	return result, nil
}

// RunGates runs every gate and reports all results.
func (s *Service) RunGates(ctx context.Context) ([]GateResult, error) {
	checks := []func(context.Context) (GateResult, error){
		s.VerifyNamingSeries,
		s.VerifyDivisionScope,
		s.VerifyAdvanceInvariant,
	}
	results := make([]GateResult, 0, len(checks))
	for _, check := range checks {
		result, err := check(ctx)
		if err != nil {
			return nil, fmt.Errorf("release gate: %w", err)
		}
		if !result.Passed {
			s.logger.Warn("release gate failed",
				slog.String("gate", result.Name),
				slog.Int("issues", len(result.Issues)))
		}
		results = append(results, result)
	}
	return results, nil
}
