package validation

import (
	"time"

	"github.com/kosarica/receipt-service/internal/receipt"
)

// OverallStatus is the receipt-level verdict
type OverallStatus string

const (
	OverallAllGood           OverallStatus = "all_good"
	OverallPossibleIssues    OverallStatus = "possible_issues"
	OverallSignificantIssues OverallStatus = "significant_issues"
	OverallNeedsReview       OverallStatus = "needs_review"
)

// DisplayName returns the user-facing label
func (s OverallStatus) DisplayName() string {
	switch s {
	case OverallAllGood:
		return "All Good"
	case OverallPossibleIssues:
		return "Possible Issues"
	case OverallSignificantIssues:
		return "Significant Issues"
	default:
		return "Needs Review"
	}
}

// ValidationSummary is the outcome of validating a whole receipt
type ValidationSummary struct {
	RunID                    string                  `json:"runId"`
	Retailer                 receipt.RetailerType    `json:"retailer"`
	Results                  []PriceValidationResult `json:"results"`
	FlaggedItems             []PriceValidationResult `json:"flaggedItems"`
	Counts                   map[Status]int          `json:"counts"`
	TotalPotentialOvercharge int64                   `json:"totalPotentialOvercharge"` // cents
	OverallStatus            OverallStatus           `json:"overallStatus"`
	Tolerance                float64                 `json:"tolerance"`
	StartedAt                time.Time               `json:"startedAt"`
	CompletedAt              time.Time               `json:"completedAt"`
}

// Summarize derives counts, flagged items, the potential overcharge and the
// overall status from an ordered result list. It does not modify results.
func Summarize(results []PriceValidationResult) ValidationSummary {
	s := ValidationSummary{
		Results:      results,
		FlaggedItems: []PriceValidationResult{},
		Counts:       make(map[Status]int, len(Statuses)),
	}
	if s.Results == nil {
		s.Results = []PriceValidationResult{}
	}

	resolved := 0
	hasSignificant, hasPossible := false, false
	for _, r := range results {
		s.Counts[r.Status]++
		if r.Status.IsResolved() {
			resolved++
		}
		switch r.Status {
		case StatusSignificantOvercharge:
			hasSignificant = true
		case StatusPossibleOvercharge:
			hasPossible = true
		}
		if r.ShouldFlag() {
			s.FlaggedItems = append(s.FlaggedItems, r)
			if r.PriceDifference > 0 {
				s.TotalPotentialOvercharge += r.PriceDifference
			}
		}
	}

	switch {
	case hasSignificant:
		s.OverallStatus = OverallSignificantIssues
	case hasPossible:
		s.OverallStatus = OverallPossibleIssues
	case len(results) > 0 && resolved == len(results):
		s.OverallStatus = OverallAllGood
	default:
		s.OverallStatus = OverallNeedsReview
	}
	return s
}

// Count returns the number of results with the given status
func (s *ValidationSummary) Count(status Status) int {
	return s.Counts[status]
}

// ValidatedCount returns the number of results that were compared with an online price
func (s *ValidationSummary) ValidatedCount() int {
	n := 0
	for status, c := range s.Counts {
		if status.IsResolved() {
			n += c
		}
	}
	return n
}
