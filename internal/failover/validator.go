// Package failover orchestrates a validation run: it watches the region
// tracker, Route 53 and the Aurora global cluster after outage injection,
// measures how long full failover takes, and emits the validation report.
package failover

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/terminusops/regionguard/internal/metrics"
	"github.com/terminusops/regionguard/internal/region"
	"github.com/terminusops/regionguard/internal/report"
)

// ErrDeadlineExceeded marks a run that did not converge within the RTO.
var ErrDeadlineExceeded = errors.New("failover: deadline exceeded before full failover")

// EndpointResolver reports which region Route 53 currently serves.
type EndpointResolver interface {
	ActiveEndpoint(ctx context.Context) (string, error)
}

// PromotionChecker reports whether the database secondary has been
// promoted to a writable primary.
type PromotionChecker interface {
	Promoted(ctx context.Context) (bool, error)
}

// Config tunes a validation run.
type Config struct {
	PrimaryRegion   region.Region
	SecondaryRegion region.Region
	Deadline        time.Duration
	PollInterval    time.Duration
}

// DefaultConfig returns the standard two-region setup with the 60-second RTO.
func DefaultConfig() *Config {
	return &Config{
		PrimaryRegion:   region.RegionPrimary,
		SecondaryRegion: region.RegionSecondary,
		Deadline:        report.MaxFailoverSeconds * time.Second,
		PollInterval:    500 * time.Millisecond,
	}
}

// Validator drives a single failover validation run.
type Validator struct {
	config    *Config
	tracker   *region.Tracker
	resolver  EndpointResolver
	promotion PromotionChecker
	logger    *zap.Logger
	metrics   *metrics.Metrics

	events  []Event
	onEvent func(Event)
	mu      sync.Mutex
}

// NewValidator creates a validator.
func NewValidator(config *Config, tracker *region.Tracker, resolver EndpointResolver, promotion PromotionChecker, logger *zap.Logger) (*Validator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if tracker == nil {
		return nil, fmt.Errorf("failover: tracker required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("failover: endpoint resolver required")
	}
	if promotion == nil {
		return nil, fmt.Errorf("failover: promotion checker required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Validator{
		config:    config,
		tracker:   tracker,
		resolver:  resolver,
		promotion: promotion,
		logger:    logger,
		metrics:   metrics.NewMetrics(),
	}, nil
}

// SetEventCallback sets the event notification callback.
func (v *Validator) SetEventCallback(cb func(Event)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onEvent = cb
}

// Events returns up to limit most recent events.
func (v *Validator) Events(limit int) []Event {
	v.mu.Lock()
	defer v.mu.Unlock()

	if limit <= 0 || limit > len(v.events) {
		limit = len(v.events)
	}
	out := make([]Event, limit)
	copy(out, v.events[len(v.events)-limit:])
	return out
}

// conditions tracks which failover milestones have been observed.
type conditions struct {
	primaryDown     bool
	secondaryUp     bool
	route53Switched bool
	rdsPromoted     bool
}

func (c conditions) allMet() bool {
	return c.primaryDown && c.secondaryUp && c.route53Switched && c.rdsPromoted
}

// Run observes the deployment from injectedAt until either every failover
// milestone is met or the deadline passes. It always returns a report; a
// deadline overrun returns the report alongside ErrDeadlineExceeded so the
// measured time is preserved rather than clamped.
func (v *Validator) Run(ctx context.Context, injectedAt time.Time) (*report.FailoverReport, error) {
	runID := uuid.New().String()
	log := v.logger.With(zap.String("run_id", runID))

	deadline := injectedAt.Add(v.config.Deadline)
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	v.emit(Event{
		Type:      EventFailoverStart,
		Region:    v.config.PrimaryRegion,
		Timestamp: injectedAt,
		Message:   fmt.Sprintf("outage injected in %s", v.config.PrimaryRegion),
		Metadata:  map[string]string{"run_id": runID},
	})
	log.Info("validation run started",
		zap.String("primary", string(v.config.PrimaryRegion)),
		zap.String("secondary", string(v.config.SecondaryRegion)),
		zap.Duration("deadline", v.config.Deadline))

	var cond conditions
	var elapsed time.Duration

	ticker := time.NewTicker(v.config.PollInterval)
	defer ticker.Stop()

	for !cond.allMet() {
		v.observe(runCtx, &cond, log)
		if cond.allMet() {
			break
		}

		select {
		case <-runCtx.Done():
			elapsed = time.Since(injectedAt)
			v.emit(Event{
				Type:      EventDeadlineExceeded,
				Timestamp: time.Now().UTC(),
				Message:   fmt.Sprintf("failover incomplete after %.1fs", elapsed.Seconds()),
			})
			log.Error("deadline exceeded",
				zap.Duration("elapsed", elapsed),
				zap.Bool("primary_down", cond.primaryDown),
				zap.Bool("secondary_up", cond.secondaryUp),
				zap.Bool("route53_switched", cond.route53Switched),
				zap.Bool("rds_promoted", cond.rdsPromoted))

			r := v.buildReport(cond, elapsed)
			v.metrics.ObserveRun("deadline_exceeded", elapsed.Seconds())
			if ctx.Err() != nil {
				return r, ctx.Err()
			}
			return r, ErrDeadlineExceeded
		case <-ticker.C:
		}
	}

	elapsed = time.Since(injectedAt)
	v.emit(Event{
		Type:      EventFailoverComplete,
		Region:    v.config.SecondaryRegion,
		Timestamp: time.Now().UTC(),
		Message:   fmt.Sprintf("failover complete in %.1fs, active on %s", elapsed.Seconds(), v.config.SecondaryRegion),
		Metadata: map[string]string{
			"from_region": string(v.config.PrimaryRegion),
			"to_region":   string(v.config.SecondaryRegion),
		},
	})
	log.Info("failover complete", zap.Duration("elapsed", elapsed))

	v.metrics.ObserveRun("complete", elapsed.Seconds())
	return v.buildReport(cond, elapsed), nil
}

// observe checks each unmet milestone once.
func (v *Validator) observe(ctx context.Context, cond *conditions, log *zap.Logger) {
	if !cond.primaryDown && v.tracker.Status(v.config.PrimaryRegion) == region.StatusDown {
		cond.primaryDown = true
		v.metrics.SetRegionUp(string(v.config.PrimaryRegion), false)
		v.emit(Event{
			Type:      EventRegionDown,
			Region:    v.config.PrimaryRegion,
			Timestamp: time.Now().UTC(),
			Message:   fmt.Sprintf("primary region %s is DOWN", v.config.PrimaryRegion),
		})
	}

	if !cond.secondaryUp && v.tracker.Status(v.config.SecondaryRegion) == region.StatusUp {
		cond.secondaryUp = true
		v.metrics.SetRegionUp(string(v.config.SecondaryRegion), true)
		v.emit(Event{
			Type:      EventRegionUp,
			Region:    v.config.SecondaryRegion,
			Timestamp: time.Now().UTC(),
			Message:   fmt.Sprintf("secondary region %s is UP", v.config.SecondaryRegion),
		})
	}

	if !cond.route53Switched {
		active, err := v.resolver.ActiveEndpoint(ctx)
		if err != nil {
			log.Debug("route53 active endpoint unavailable", zap.Error(err))
		} else if active == string(v.config.SecondaryRegion) {
			cond.route53Switched = true
			v.emit(Event{
				Type:      EventRoute53Switched,
				Region:    v.config.SecondaryRegion,
				Timestamp: time.Now().UTC(),
				Message:   fmt.Sprintf("route53 now serving %s", active),
			})
		}
	}

	if !cond.rdsPromoted {
		promoted, err := v.promotion.Promoted(ctx)
		if err != nil {
			log.Debug("rds promotion status unavailable", zap.Error(err))
		} else if promoted {
			cond.rdsPromoted = true
			v.emit(Event{
				Type:      EventRDSPromoted,
				Region:    v.config.SecondaryRegion,
				Timestamp: time.Now().UTC(),
				Message:   "aurora secondary promoted to writable primary",
			})
		}
	}
}

func (v *Validator) buildReport(cond conditions, elapsed time.Duration) *report.FailoverReport {
	primaryStatus := report.StatusUp
	if cond.primaryDown {
		primaryStatus = report.StatusDown
	}
	secondaryStatus := report.StatusDown
	if cond.secondaryUp {
		secondaryStatus = report.StatusUp
	}

	activeEndpoint := string(v.config.PrimaryRegion)
	if cond.route53Switched {
		activeEndpoint = string(v.config.SecondaryRegion)
	}

	return &report.FailoverReport{
		FailoverTimeSeconds:   elapsed.Seconds(),
		PrimaryRegionStatus:   primaryStatus,
		SecondaryRegionStatus: secondaryStatus,
		Route53ActiveEndpoint: activeEndpoint,
		RDSPromoted:           cond.rdsPromoted,
		Timestamp:             time.Now().UTC().Format(time.RFC3339),
		CanaryString:          report.CanaryString,
	}
}

// WriteReport persists the report and emits the report_written event.
func (v *Validator) WriteReport(path string, r *report.FailoverReport) error {
	if err := report.Write(path, r); err != nil {
		return err
	}
	v.emit(Event{
		Type:      EventReportWritten,
		Timestamp: time.Now().UTC(),
		Message:   fmt.Sprintf("validation report written to %s", path),
	})
	v.logger.Info("report written",
		zap.String("path", path),
		zap.Float64("failover_time_seconds", r.FailoverTimeSeconds))
	return nil
}

func (v *Validator) emit(event Event) {
	v.mu.Lock()
	v.events = append(v.events, event)
	if len(v.events) > maxEventHistory {
		v.events = v.events[len(v.events)-maxEventHistory:]
	}
	cb := v.onEvent
	v.mu.Unlock()

	if cb != nil {
		cb(event)
	}
}
