// Package region models the two-region deployment topology and tracks
// per-region health as observed by the probers.
package region

import (
	"fmt"
	"sync"
	"time"
)

// Region identifies an AWS region in the deployment.
type Region string

const (
	RegionPrimary   Region = "us-east-1"
	RegionSecondary Region = "us-west-2"
)

// Status is the externally visible health of a region.
type Status string

const (
	StatusUp      Status = "UP"
	StatusDown    Status = "DOWN"
	StatusUnknown Status = "UNKNOWN"
)

// Tier indicates the region's role in the topology.
type Tier string

const (
	TierPrimary   Tier = "primary"
	TierSecondary Tier = "secondary"
)

// Info contains static metadata about a region.
type Info struct {
	Region      Region `json:"region"`
	DisplayName string `json:"display_name"`
	Tier        Tier   `json:"tier"`
	Endpoint    string `json:"endpoint"`
}

// Transition records a health state change.
type Transition struct {
	Region Region    `json:"region"`
	From   Status    `json:"from"`
	To     Status    `json:"to"`
	At     time.Time `json:"at"`
}

// Tracker holds the current health state of all regions.
type Tracker struct {
	regions     map[Region]*Info
	status      map[Region]Status
	transitions []Transition
	mu          sync.RWMutex
}

// NewTracker creates a tracker over the given regions. All regions start
// in StatusUnknown until a probe reports otherwise.
func NewTracker(regions ...*Info) (*Tracker, error) {
	if len(regions) == 0 {
		return nil, fmt.Errorf("region: at least one region required")
	}

	t := &Tracker{
		regions: make(map[Region]*Info, len(regions)),
		status:  make(map[Region]Status, len(regions)),
	}
	for _, info := range regions {
		if info.Region == "" {
			return nil, fmt.Errorf("region: region name required")
		}
		if _, dup := t.regions[info.Region]; dup {
			return nil, fmt.Errorf("region: duplicate region %s", info.Region)
		}
		t.regions[info.Region] = info
		t.status[info.Region] = StatusUnknown
	}
	return t, nil
}

// Info returns region metadata.
func (t *Tracker) Info(r Region) (*Info, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	info, ok := t.regions[r]
	return info, ok
}

// SetStatus updates a region's health. It returns true if the status
// changed, in which case a transition was recorded.
func (t *Tracker) SetStatus(r Region, s Status) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev, known := t.status[r]
	if !known || prev == s {
		t.status[r] = s
		return false
	}

	t.status[r] = s
	t.transitions = append(t.transitions, Transition{
		Region: r,
		From:   prev,
		To:     s,
		At:     time.Now().UTC(),
	})
	return true
}

// Status returns a region's current health.
func (t *Tracker) Status(r Region) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.status[r]
	if !ok {
		return StatusUnknown
	}
	return s
}

// Snapshot returns the current status of every region.
func (t *Tracker) Snapshot() map[Region]Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[Region]Status, len(t.status))
	for r, s := range t.status {
		out[r] = s
	}
	return out
}

// LastTransition returns the most recent transition for a region, if any.
func (t *Tracker) LastTransition(r Region) (Transition, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := len(t.transitions) - 1; i >= 0; i-- {
		if t.transitions[i].Region == r {
			return t.transitions[i], true
		}
	}
	return Transition{}, false
}

// Transitions returns up to limit most recent transitions.
func (t *Tracker) Transitions(limit int) []Transition {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if limit <= 0 || limit > len(t.transitions) {
		limit = len(t.transitions)
	}
	out := make([]Transition, limit)
	copy(out, t.transitions[len(t.transitions)-limit:])
	return out
}
