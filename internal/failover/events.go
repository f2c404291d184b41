package failover

import (
	"time"

	"github.com/terminusops/regionguard/internal/region"
)

// EventType categorizes validation run events.
type EventType string

const (
	EventRegionDown       EventType = "region_down"
	EventRegionUp         EventType = "region_up"
	EventFailoverStart    EventType = "failover_start"
	EventRoute53Switched  EventType = "route53_switched"
	EventRDSPromoted      EventType = "rds_promoted"
	EventFailoverComplete EventType = "failover_complete"
	EventDeadlineExceeded EventType = "deadline_exceeded"
	EventReportWritten    EventType = "report_written"
)

// Event records one observation during a validation run.
type Event struct {
	Type      EventType         `json:"type"`
	Region    region.Region     `json:"region,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// maxEventHistory bounds the in-memory event buffer.
const maxEventHistory = 1000
