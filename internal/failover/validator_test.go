package failover

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminusops/regionguard/internal/region"
	"github.com/terminusops/regionguard/internal/report"
)

type fakeResolver struct {
	mu     sync.Mutex
	active string
	err    error
}

func (f *fakeResolver) ActiveEndpoint(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active, f.err
}

func (f *fakeResolver) set(active string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = active
	f.err = nil
}

type fakePromotion struct {
	mu       sync.Mutex
	promoted bool
	err      error
}

func (f *fakePromotion) Promoted(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.promoted, f.err
}

func (f *fakePromotion) set(promoted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.promoted = promoted
	f.err = nil
}

func newTestValidator(t *testing.T, cfg *Config) (*Validator, *region.Tracker, *fakeResolver, *fakePromotion) {
	t.Helper()

	tracker, err := region.NewTracker(
		&region.Info{Region: region.RegionPrimary, Tier: region.TierPrimary},
		&region.Info{Region: region.RegionSecondary, Tier: region.TierSecondary},
	)
	require.NoError(t, err)

	resolver := &fakeResolver{active: string(region.RegionPrimary)}
	promotion := &fakePromotion{}

	v, err := NewValidator(cfg, tracker, resolver, promotion, nil)
	require.NoError(t, err)
	return v, tracker, resolver, promotion
}

func TestNewValidator(t *testing.T) {
	tracker, err := region.NewTracker(&region.Info{Region: region.RegionPrimary})
	require.NoError(t, err)
	resolver := &fakeResolver{}
	promotion := &fakePromotion{}

	t.Run("nil config uses defaults", func(t *testing.T) {
		v, err := NewValidator(nil, tracker, resolver, promotion, nil)
		require.NoError(t, err)
		assert.Equal(t, region.RegionPrimary, v.config.PrimaryRegion)
		assert.Equal(t, report.MaxFailoverSeconds*time.Second, v.config.Deadline)
	})

	t.Run("missing collaborators are rejected", func(t *testing.T) {
		_, err := NewValidator(nil, nil, resolver, promotion, nil)
		assert.Error(t, err)
		_, err = NewValidator(nil, tracker, nil, promotion, nil)
		assert.Error(t, err)
		_, err = NewValidator(nil, tracker, resolver, nil, nil)
		assert.Error(t, err)
	})
}

func TestValidator_Run(t *testing.T) {
	t.Run("completes when all milestones are met", func(t *testing.T) {
		v, tracker, resolver, promotion := newTestValidator(t, &Config{
			PrimaryRegion:   region.RegionPrimary,
			SecondaryRegion: region.RegionSecondary,
			Deadline:        5 * time.Second,
			PollInterval:    10 * time.Millisecond,
		})

		injectedAt := time.Now()
		go func() {
			time.Sleep(50 * time.Millisecond)
			tracker.SetStatus(region.RegionPrimary, region.StatusDown)
			tracker.SetStatus(region.RegionSecondary, region.StatusUp)
			resolver.set(string(region.RegionSecondary))
			promotion.set(true)
		}()

		r, err := v.Run(context.Background(), injectedAt)
		require.NoError(t, err)
		require.NotNil(t, r)

		assert.NoError(t, r.Validate())
		assert.Equal(t, report.StatusDown, r.PrimaryRegionStatus)
		assert.Equal(t, report.StatusUp, r.SecondaryRegionStatus)
		assert.Equal(t, string(region.RegionSecondary), r.Route53ActiveEndpoint)
		assert.True(t, r.RDSPromoted)
		assert.Greater(t, r.FailoverTimeSeconds, 0.0)
		assert.Less(t, r.FailoverTimeSeconds, 5.0)
		assert.Equal(t, report.CanaryString, r.CanaryString)
	})

	t.Run("deadline overrun returns honest report", func(t *testing.T) {
		v, tracker, _, promotion := newTestValidator(t, &Config{
			PrimaryRegion:   region.RegionPrimary,
			SecondaryRegion: region.RegionSecondary,
			Deadline:        150 * time.Millisecond,
			PollInterval:    10 * time.Millisecond,
		})

		// Route 53 never switches; only two milestones land.
		tracker.SetStatus(region.RegionPrimary, region.StatusDown)
		promotion.set(true)

		r, err := v.Run(context.Background(), time.Now())
		require.ErrorIs(t, err, ErrDeadlineExceeded)
		require.NotNil(t, r)

		assert.Equal(t, report.StatusDown, r.PrimaryRegionStatus)
		assert.Equal(t, report.StatusDown, r.SecondaryRegionStatus)
		assert.Equal(t, string(region.RegionPrimary), r.Route53ActiveEndpoint)
		assert.True(t, r.RDSPromoted)
		assert.GreaterOrEqual(t, r.FailoverTimeSeconds, 0.15)
		assert.Error(t, r.Validate())
	})

	t.Run("parent cancellation surfaces as context error", func(t *testing.T) {
		v, _, _, _ := newTestValidator(t, &Config{
			PrimaryRegion:   region.RegionPrimary,
			SecondaryRegion: region.RegionSecondary,
			Deadline:        5 * time.Second,
			PollInterval:    10 * time.Millisecond,
		})

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		r, err := v.Run(ctx, time.Now())
		require.NotNil(t, r)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("resolver errors do not abort the run", func(t *testing.T) {
		v, tracker, resolver, promotion := newTestValidator(t, &Config{
			PrimaryRegion:   region.RegionPrimary,
			SecondaryRegion: region.RegionSecondary,
			Deadline:        5 * time.Second,
			PollInterval:    10 * time.Millisecond,
		})
		resolver.err = errors.New("route53 unavailable")

		go func() {
			time.Sleep(50 * time.Millisecond)
			tracker.SetStatus(region.RegionPrimary, region.StatusDown)
			tracker.SetStatus(region.RegionSecondary, region.StatusUp)
			promotion.set(true)
			resolver.set(string(region.RegionSecondary))
		}()

		r, err := v.Run(context.Background(), time.Now())
		require.NoError(t, err)
		assert.NoError(t, r.Validate())
	})
}

func TestValidator_Events(t *testing.T) {
	t.Run("milestones emit once in order", func(t *testing.T) {
		v, tracker, resolver, promotion := newTestValidator(t, &Config{
			PrimaryRegion:   region.RegionPrimary,
			SecondaryRegion: region.RegionSecondary,
			Deadline:        5 * time.Second,
			PollInterval:    10 * time.Millisecond,
		})

		var mu sync.Mutex
		var seen []EventType
		v.SetEventCallback(func(e Event) {
			mu.Lock()
			seen = append(seen, e.Type)
			mu.Unlock()
		})

		tracker.SetStatus(region.RegionPrimary, region.StatusDown)
		tracker.SetStatus(region.RegionSecondary, region.StatusUp)
		resolver.set(string(region.RegionSecondary))
		promotion.set(true)

		_, err := v.Run(context.Background(), time.Now())
		require.NoError(t, err)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []EventType{
			EventFailoverStart,
			EventRegionDown,
			EventRegionUp,
			EventRoute53Switched,
			EventRDSPromoted,
			EventFailoverComplete,
		}, seen)
	})

	t.Run("events are retained with a limit", func(t *testing.T) {
		v, tracker, resolver, promotion := newTestValidator(t, &Config{
			PrimaryRegion:   region.RegionPrimary,
			SecondaryRegion: region.RegionSecondary,
			Deadline:        5 * time.Second,
			PollInterval:    10 * time.Millisecond,
		})

		tracker.SetStatus(region.RegionPrimary, region.StatusDown)
		tracker.SetStatus(region.RegionSecondary, region.StatusUp)
		resolver.set(string(region.RegionSecondary))
		promotion.set(true)

		_, err := v.Run(context.Background(), time.Now())
		require.NoError(t, err)

		all := v.Events(0)
		assert.Len(t, all, 6)

		last := v.Events(1)
		require.Len(t, last, 1)
		assert.Equal(t, EventFailoverComplete, last[0].Type)
	})
}

func TestValidator_WriteReport(t *testing.T) {
	v, tracker, resolver, promotion := newTestValidator(t, &Config{
		PrimaryRegion:   region.RegionPrimary,
		SecondaryRegion: region.RegionSecondary,
		Deadline:        5 * time.Second,
		PollInterval:    10 * time.Millisecond,
	})

	tracker.SetStatus(region.RegionPrimary, region.StatusDown)
	tracker.SetStatus(region.RegionSecondary, region.StatusUp)
	resolver.set(string(region.RegionSecondary))
	promotion.set(true)

	r, err := v.Run(context.Background(), time.Now())
	require.NoError(t, err)

	path := t.TempDir() + "/failover_validation.json"
	require.NoError(t, v.WriteReport(path, r))

	loaded, err := report.Load(path)
	require.NoError(t, err)
	assert.NoError(t, loaded.Validate())

	events := v.Events(1)
	require.Len(t, events, 1)
	assert.Equal(t, EventReportWritten, events[0].Type)

	t.Run("second write fails", func(t *testing.T) {
		assert.Error(t, v.WriteReport(path, r))
	})
}
