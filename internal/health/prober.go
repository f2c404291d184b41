// Package health probes the regional ALB endpoints and feeds observed
// availability into the region tracker.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/terminusops/regionguard/internal/region"
)

// ProberConfig tunes endpoint probing.
type ProberConfig struct {
	Timeout          time.Duration
	Interval         time.Duration
	FailureThreshold int
	RatePerSecond    float64
}

// DefaultProberConfig returns sensible defaults.
func DefaultProberConfig() *ProberConfig {
	return &ProberConfig{
		Timeout:          5 * time.Second,
		Interval:         2 * time.Second,
		FailureThreshold: 3,
		RatePerSecond:    10,
	}
}

// Prober performs HTTP health checks against region endpoints. A region is
// declared DOWN only after FailureThreshold consecutive failed probes; a
// single successful probe brings it back UP.
type Prober struct {
	config   *ProberConfig
	client   *http.Client
	limiter  *rate.Limiter
	tracker  *region.Tracker
	logger   *zap.Logger
	failures map[region.Region]int
	mu       sync.Mutex
}

// NewProber creates a prober feeding the given tracker.
func NewProber(config *ProberConfig, tracker *region.Tracker, logger *zap.Logger) (*Prober, error) {
	if tracker == nil {
		return nil, fmt.Errorf("health: tracker required")
	}
	if config == nil {
		config = DefaultProberConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Prober{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(config.RatePerSecond), 1),
		tracker:  tracker,
		logger:   logger,
		failures: make(map[region.Region]int),
	}, nil
}

// ProbeOnce performs a single health check against an endpoint.
// Any 2xx response within the timeout counts as healthy.
func (p *Prober) ProbeOnce(ctx context.Context, endpoint string) (bool, time.Duration, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return false, 0, fmt.Errorf("health: rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, 0, fmt.Errorf("health: build request for %s: %w", endpoint, err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return false, elapsed, err
	}
	defer func() { _ = resp.Body.Close() }()

	healthy := resp.StatusCode >= 200 && resp.StatusCode < 300
	return healthy, elapsed, nil
}

// Observe records a probe outcome and updates the tracker.
func (p *Prober) Observe(r region.Region, healthy bool) {
	p.mu.Lock()
	if healthy {
		p.failures[r] = 0
	} else {
		p.failures[r]++
	}
	count := p.failures[r]
	threshold := p.config.FailureThreshold
	p.mu.Unlock()

	if healthy {
		if p.tracker.SetStatus(r, region.StatusUp) {
			p.logger.Info("region recovered", zap.String("region", string(r)))
		}
		return
	}

	if count >= threshold {
		if p.tracker.SetStatus(r, region.StatusDown) {
			p.logger.Warn("region down",
				zap.String("region", string(r)),
				zap.Int("consecutive_failures", count))
		}
	}
}

// Watch probes all tracked regions until the context is cancelled.
func (p *Prober) Watch(ctx context.Context) {
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.probeAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probeAll(ctx)
		}
	}
}

func (p *Prober) probeAll(ctx context.Context) {
	for r := range p.tracker.Snapshot() {
		info, ok := p.tracker.Info(r)
		if !ok || info.Endpoint == "" {
			continue
		}

		healthy, latency, err := p.ProbeOnce(ctx, info.Endpoint)
		if err != nil && ctx.Err() != nil {
			return
		}
		if err != nil {
			p.logger.Debug("probe failed",
				zap.String("region", string(r)),
				zap.String("endpoint", info.Endpoint),
				zap.Error(err))
		} else {
			p.logger.Debug("probe complete",
				zap.String("region", string(r)),
				zap.Bool("healthy", healthy),
				zap.Duration("latency", latency))
		}
		p.Observe(r, healthy && err == nil)
	}
}
