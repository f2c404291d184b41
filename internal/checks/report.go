package checks

import (
	"context"
	"fmt"
	"os"

	"github.com/terminusops/regionguard/internal/report"
)

// ReportChecks builds the check list for the failover validation report.
// The report is loaded once per suite run; every field check reloads from
// the cached record so a single malformed file fails each dependent check
// with its own message.
func ReportChecks(path, secondaryRegion string) []Check {
	var cached *report.FailoverReport
	load := func() (*report.FailoverReport, error) {
		if cached != nil {
			return cached, nil
		}
		r, err := report.Load(path)
		if err != nil {
			return nil, err
		}
		cached = r
		return r, nil
	}

	return []Check{
		{
			Name: "report-exists",
			Run: func(ctx context.Context) error {
				if _, err := os.Stat(path); err != nil {
					return fmt.Errorf("failover validation file does not exist at %s", path)
				}
				return nil
			},
		},
		{
			Name: "report-structure",
			Run: func(ctx context.Context) error {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				return report.ValidateSchema(data)
			},
		},
		{
			Name: "report-failover-time-within-limit",
			Run: func(ctx context.Context) error {
				r, err := load()
				if err != nil {
					return err
				}
				if r.FailoverTimeSeconds < 0 || r.FailoverTimeSeconds > report.MaxFailoverSeconds {
					return fmt.Errorf("failover time %.2fs exceeds %d-second requirement",
						r.FailoverTimeSeconds, report.MaxFailoverSeconds)
				}
				return nil
			},
		},
		{
			Name: "report-primary-region-down",
			Run: func(ctx context.Context) error {
				r, err := load()
				if err != nil {
					return err
				}
				if r.PrimaryRegionStatus != report.StatusDown {
					return fmt.Errorf("primary region should be DOWN, got %s", r.PrimaryRegionStatus)
				}
				return nil
			},
		},
		{
			Name: "report-secondary-region-up",
			Run: func(ctx context.Context) error {
				r, err := load()
				if err != nil {
					return err
				}
				if r.SecondaryRegionStatus != report.StatusUp {
					return fmt.Errorf("secondary region should be UP, got %s", r.SecondaryRegionStatus)
				}
				return nil
			},
		},
		{
			Name: "report-route53-active-endpoint",
			Run: func(ctx context.Context) error {
				r, err := load()
				if err != nil {
					return err
				}
				if r.Route53ActiveEndpoint != secondaryRegion {
					return fmt.Errorf("active endpoint should be %s, got %s",
						secondaryRegion, r.Route53ActiveEndpoint)
				}
				return nil
			},
		},
		{
			Name: "report-rds-promoted",
			Run: func(ctx context.Context) error {
				r, err := load()
				if err != nil {
					return err
				}
				if !r.RDSPromoted {
					return fmt.Errorf("RDS secondary cluster should be promoted to primary")
				}
				return nil
			},
		},
		{
			Name: "report-timestamp-iso8601",
			Run: func(ctx context.Context) error {
				r, err := load()
				if err != nil {
					return err
				}
				_, err = report.ParseTimestamp(r.Timestamp)
				return err
			},
		},
		{
			Name: "report-canary-string",
			Run: func(ctx context.Context) error {
				r, err := load()
				if err != nil {
					return err
				}
				if r.CanaryString != report.CanaryString {
					return fmt.Errorf("canary string mismatch, expected %q got %q",
						report.CanaryString, r.CanaryString)
				}
				return nil
			},
		},
	}
}
