package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/terminusops/regionguard/internal/api"
	"github.com/terminusops/regionguard/internal/awsx"
	"github.com/terminusops/regionguard/internal/checks"
	"github.com/terminusops/regionguard/internal/config"
	"github.com/terminusops/regionguard/internal/failover"
	"github.com/terminusops/regionguard/internal/health"
	"github.com/terminusops/regionguard/internal/metrics"
	"github.com/terminusops/regionguard/internal/region"
	"github.com/terminusops/regionguard/internal/report"
	"github.com/terminusops/regionguard/internal/simulate"
)

func newVerifyCmd(configPath *string) *cobra.Command {
	var live bool
	var skipReport bool
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Run the deployment check suite (terraform, script, report)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			if wait > 0 && !skipReport {
				waitCtx, waitCancel := context.WithTimeout(ctx, wait)
				if _, err := report.WaitForReport(waitCtx, cfg.Paths.ReportFile); err != nil {
					logger.Warn("report did not appear before deadline", zap.Error(err))
				}
				waitCancel()
			}

			suite := checks.NewSuite(logger)
			suite.Add(checks.TerraformChecks(cfg.Paths.TerraformDir, logger)...)
			suite.Add(checks.ScriptChecks(cfg.Paths.ScriptFile)...)
			if !skipReport {
				suite.Add(checks.ReportChecks(cfg.Paths.ReportFile, cfg.Regions.Secondary.Name)...)
			}
			if live {
				suite.Add(liveChecks(ctx, cfg)...)
			}

			results := suite.Run(ctx)
			for _, r := range results {
				mark := "PASS"
				if !r.Passed {
					mark = "FAIL"
				}
				fmt.Printf("%-4s %s", mark, r.Name)
				if r.Message != "" {
					fmt.Printf(": %s", r.Message)
				}
				fmt.Println()
			}
			return checks.Summarize(results)
		},
	}

	cmd.Flags().BoolVar(&live, "live", false, "also verify against the live AWS control plane")
	cmd.Flags().BoolVar(&skipReport, "skip-report", false, "skip failover report checks")
	cmd.Flags().DurationVar(&wait, "wait", 0, "wait up to this long for the report file to appear")
	return cmd
}

func newSimulateCmd(configPath *string) *cobra.Command {
	var direct bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Inject a primary-region outage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			sim, err := buildSimulator(ctx, cfg, direct, logger)
			if err != nil {
				return err
			}

			injectedAt, err := sim.Inject(ctx)
			if err != nil {
				return fmt.Errorf("simulate failover: %w", err)
			}
			logger.Info("outage injected", zap.Time("injected_at", injectedAt))
			return nil
		},
	}

	cmd.Flags().BoolVar(&direct, "direct", false, "drive the AWS control plane instead of running the script")
	return cmd
}

func newValidateCmd(configPath *string) *cobra.Command {
	var direct bool
	var noInject bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run a full failover validation and write the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			return runValidation(ctx, cfg, direct, noInject, logger)
		},
	}

	cmd.Flags().BoolVar(&direct, "direct", false, "inject the outage via the AWS control plane")
	cmd.Flags().BoolVar(&noInject, "no-inject", false, "observe only; the outage was injected externally just now")
	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve region health, run status and metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnv(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			tracker, prober, err := buildHealth(cfg, logger)
			if err != nil {
				return err
			}
			go prober.Watch(ctx)

			server := api.NewServer(cfg.Server.Port, logger, func() interface{} {
				return map[string]interface{}{
					"regions":     tracker.Snapshot(),
					"transitions": tracker.Transitions(20),
				}
			}, metrics.NewMetrics().Handler())

			go func() {
				<-ctx.Done()
				logger.Info("shutting down status server")
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					logger.Error("shutdown error", zap.Error(err))
				}
			}()

			return server.Start()
		},
	}
}

// runValidation wires the full pipeline: health watching, outage injection,
// milestone observation and report emission.
func runValidation(ctx context.Context, cfg *config.Config, direct, noInject bool, logger *zap.Logger) error {
	tracker, prober, err := buildHealth(cfg, logger)
	if err != nil {
		return err
	}

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go prober.Watch(watchCtx)

	clients, err := awsx.NewClients(ctx, awsx.Options{
		Endpoint:  cfg.AWS.Endpoint,
		AccessKey: cfg.AWS.AccessKey,
		SecretKey: cfg.AWS.SecretKey,
		Region:    cfg.Regions.Secondary.Name,
	})
	if err != nil {
		return err
	}

	resolver := &awsx.RouteResolver{
		Inspector:  awsx.NewRoute53Inspector(clients.Route53, logger),
		ZoneName:   cfg.AWS.HostedZone,
		RecordName: cfg.AWS.RecordName,
	}
	promotion := &awsx.PromotionProbe{
		Inspector:       awsx.NewAuroraInspector(clients.RDS, logger),
		GlobalClusterID: cfg.AWS.GlobalClusterID,
		Region:          cfg.Regions.Secondary.Name,
	}

	validator, err := failover.NewValidator(&failover.Config{
		PrimaryRegion:   region.Region(cfg.Regions.Primary.Name),
		SecondaryRegion: region.Region(cfg.Regions.Secondary.Name),
		Deadline:        cfg.Failover.Deadline,
		PollInterval:    cfg.Failover.PollInterval,
	}, tracker, resolver, promotion, logger)
	if err != nil {
		return err
	}

	if cfg.Alerting.TopicARN != "" {
		notifier, err := awsx.NewNotifier(clients.SNS, cfg.Alerting.TopicARN, logger)
		if err != nil {
			return err
		}
		validator.SetEventCallback(func(event failover.Event) {
			if err := notifier.Publish(ctx, "regionguard: "+string(event.Type), event); err != nil {
				logger.Warn("event notification failed", zap.Error(err))
			}
		})
	}

	injectedAt := time.Now()
	if !noInject {
		sim, err := buildSimulator(ctx, cfg, direct, logger)
		if err != nil {
			return err
		}
		injectedAt, err = sim.Inject(ctx)
		if err != nil {
			return fmt.Errorf("simulate failover: %w", err)
		}
	}

	result, runErr := validator.Run(ctx, injectedAt)
	if result != nil {
		if err := validator.WriteReport(cfg.Paths.ReportFile, result); err != nil {
			logger.Error("failed to write report", zap.Error(err))
			if runErr == nil {
				runErr = err
			}
		}
	}
	return runErr
}

func buildHealth(cfg *config.Config, logger *zap.Logger) (*region.Tracker, *health.Prober, error) {
	tracker, err := region.NewTracker(
		&region.Info{
			Region:      region.Region(cfg.Regions.Primary.Name),
			DisplayName: "Primary",
			Tier:        region.TierPrimary,
			Endpoint:    cfg.Regions.Primary.Endpoint,
		},
		&region.Info{
			Region:      region.Region(cfg.Regions.Secondary.Name),
			DisplayName: "Secondary",
			Tier:        region.TierSecondary,
			Endpoint:    cfg.Regions.Secondary.Endpoint,
		},
	)
	if err != nil {
		return nil, nil, err
	}

	prober, err := health.NewProber(&health.ProberConfig{
		Timeout:          cfg.Failover.ProbeTimeout,
		Interval:         cfg.Failover.ProbeInterval,
		FailureThreshold: cfg.Failover.FailureThreshold,
		RatePerSecond:    10,
	}, tracker, logger)
	if err != nil {
		return nil, nil, err
	}
	return tracker, prober, nil
}

func buildSimulator(ctx context.Context, cfg *config.Config, direct bool, logger *zap.Logger) (simulate.Simulator, error) {
	if !direct {
		return simulate.NewScriptSimulator(cfg.Paths.ScriptFile, cfg.Failover.ScriptTimeout, logger)
	}

	clients, err := awsx.NewClients(ctx, awsx.Options{
		Endpoint:  cfg.AWS.Endpoint,
		AccessKey: cfg.AWS.AccessKey,
		SecretKey: cfg.AWS.SecretKey,
		Region:    cfg.Regions.Primary.Name,
	})
	if err != nil {
		return nil, err
	}

	return simulate.NewDirectSimulator(&simulate.DirectConfig{
		ZoneName:        cfg.AWS.HostedZone,
		RecordName:      cfg.AWS.RecordName,
		PrimaryRegion:   cfg.Regions.Primary.Name,
		SecondaryRegion: cfg.Regions.Secondary.Name,
		GlobalClusterID: cfg.AWS.GlobalClusterID,
	}, awsx.NewRoute53Inspector(clients.Route53, logger), awsx.NewAuroraInspector(clients.RDS, logger), logger)
}

// liveChecks verifies replication and dashboards against the control plane.
func liveChecks(ctx context.Context, cfg *config.Config) []checks.Check {
	var out []checks.Check

	clients, err := awsx.NewClients(ctx, awsx.Options{
		Endpoint:  cfg.AWS.Endpoint,
		AccessKey: cfg.AWS.AccessKey,
		SecretKey: cfg.AWS.SecretKey,
		Region:    cfg.Regions.Primary.Name,
	})
	if err != nil {
		return []checks.Check{{
			Name: "aws-clients",
			Run:  func(context.Context) error { return err },
		}}
	}

	if cfg.AWS.PrimaryBucket != "" {
		bucket := cfg.AWS.PrimaryBucket
		out = append(out, checks.Check{
			Name: "live-s3-replication",
			Run: func(ctx context.Context) error {
				ok, err := awsx.ReplicationConfigured(ctx, clients.S3, bucket)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("bucket %s has no enabled replication rule", bucket)
				}
				return nil
			},
		})
	}

	if cfg.AWS.DashboardName != "" {
		name := cfg.AWS.DashboardName
		out = append(out, checks.Check{
			Name: "live-cloudwatch-dashboard",
			Run: func(ctx context.Context) error {
				ok, err := awsx.DashboardExists(ctx, clients.CloudWatch, name)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("dashboard %s does not exist", name)
				}
				return nil
			},
		})
	}

	return out
}
