// Package checks implements the deployment validation suite: structural
// checks over the Terraform configuration and semantic checks over the
// failover validation report. Each check fails independently with a
// descriptive message; there are no retries.
package checks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/terminusops/regionguard/internal/metrics"
)

// Check is a single named validation.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result is the outcome of one check.
type Result struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// Suite runs an ordered list of checks.
type Suite struct {
	checks  []Check
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewSuite creates an empty suite.
func NewSuite(logger *zap.Logger) *Suite {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Suite{
		logger:  logger,
		metrics: metrics.NewMetrics(),
	}
}

// Add appends checks to the suite.
func (s *Suite) Add(checks ...Check) {
	s.checks = append(s.checks, checks...)
}

// Len returns the number of registered checks.
func (s *Suite) Len() int {
	return len(s.checks)
}

// Run executes every check, logging each result. A failing check never
// stops the suite; the caller gets the full picture.
func (s *Suite) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(s.checks))
	for _, check := range s.checks {
		result := Result{Name: check.Name, Passed: true}
		if err := check.Run(ctx); err != nil {
			result.Passed = false
			result.Message = err.Error()
			s.logger.Warn("check failed",
				zap.String("check", check.Name),
				zap.String("reason", err.Error()))
		} else {
			s.logger.Info("check passed", zap.String("check", check.Name))
		}
		s.metrics.ObserveCheck(check.Name, result.Passed)
		results = append(results, result)
	}
	return results
}

// Failed returns the failing subset of results.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Summarize returns nil if everything passed, otherwise an error naming
// the failures.
func Summarize(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d checks failed, first failure: %s: %s",
		len(failed), len(results), failed[0].Name, failed[0].Message)
}
