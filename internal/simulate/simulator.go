// Package simulate induces the primary-region outage a validation run
// observes. Script mode delegates to the deployment's simulate_failover.sh;
// direct mode drives the AWS control plane itself.
package simulate

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/terminusops/regionguard/internal/awsx"
	"github.com/terminusops/regionguard/internal/terraform"
)

// Simulator injects a primary-region outage and returns the injection time.
type Simulator interface {
	Inject(ctx context.Context) (time.Time, error)
}

// ScriptSimulator runs the external simulate_failover.sh.
type ScriptSimulator struct {
	Path    string
	Timeout time.Duration
	logger  *zap.Logger
}

// NewScriptSimulator creates a script-mode simulator.
func NewScriptSimulator(path string, timeout time.Duration, logger *zap.Logger) (*ScriptSimulator, error) {
	if err := terraform.CheckExecutable(path); err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScriptSimulator{Path: path, Timeout: timeout, logger: logger}, nil
}

// Inject runs the script, streaming its output into the log. The injection
// time is taken before the script starts: failover timing counts from the
// moment the outage begins, not from when the script finishes.
func (s *ScriptSimulator) Inject(ctx context.Context) (time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	injectedAt := time.Now()
	cmd := exec.CommandContext(ctx, s.Path)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return injectedAt, fmt.Errorf("simulate: stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return injectedAt, fmt.Errorf("simulate: start %s: %w", s.Path, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		s.logger.Info("simulate_failover", zap.String("output", scanner.Text()))
	}

	if err := cmd.Wait(); err != nil {
		return injectedAt, fmt.Errorf("simulate: %s failed: %w", s.Path, err)
	}

	s.logger.Info("failover simulation script complete",
		zap.String("script", s.Path),
		zap.Duration("took", time.Since(injectedAt)))
	return injectedAt, nil
}

// DirectConfig configures direct-mode injection.
type DirectConfig struct {
	ZoneName        string
	RecordName      string
	PrimaryRegion   string
	SecondaryRegion string
	GlobalClusterID string
}

// DirectSimulator drives the outage through the AWS control plane:
// the primary's Route 53 record is withdrawn and the Aurora global cluster
// fails over to the secondary member.
type DirectSimulator struct {
	config  *DirectConfig
	route53 *awsx.Route53Inspector
	aurora  *awsx.AuroraInspector
	logger  *zap.Logger
}

// NewDirectSimulator creates a direct-mode simulator.
func NewDirectSimulator(config *DirectConfig, route53 *awsx.Route53Inspector, aurora *awsx.AuroraInspector, logger *zap.Logger) (*DirectSimulator, error) {
	if config == nil {
		return nil, fmt.Errorf("simulate: config required")
	}
	if route53 == nil || aurora == nil {
		return nil, fmt.Errorf("simulate: route53 and aurora inspectors required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectSimulator{
		config:  config,
		route53: route53,
		aurora:  aurora,
		logger:  logger,
	}, nil
}

// Inject withdraws the primary region from DNS and promotes the secondary
// Aurora member.
func (d *DirectSimulator) Inject(ctx context.Context) (time.Time, error) {
	injectedAt := time.Now()
	d.logger.Info("injecting outage",
		zap.String("primary", d.config.PrimaryRegion),
		zap.String("secondary", d.config.SecondaryRegion))

	if err := d.route53.WithdrawRegion(ctx, d.config.ZoneName, d.config.RecordName, d.config.PrimaryRegion); err != nil {
		return injectedAt, err
	}

	target, err := d.aurora.SecondaryMemberArn(ctx, d.config.GlobalClusterID, d.config.SecondaryRegion)
	if err != nil {
		return injectedAt, err
	}
	if err := d.aurora.Failover(ctx, d.config.GlobalClusterID, target); err != nil {
		return injectedAt, err
	}

	return injectedAt, nil
}
