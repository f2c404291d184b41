// Package report defines the failover validation report: the single record
// a validation run produces, its constraints, and its on-disk lifecycle.
// A report is written once and never updated.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

// CanaryString must appear verbatim in every genuine report.
const CanaryString = "TERMINUS_INFRA_MULTI_REGION_42XZ"

// MaxFailoverSeconds is the recovery time objective for the deployment.
const MaxFailoverSeconds = 60

// Region status values.
const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// FailoverReport describes the outcome of one failover simulation run.
type FailoverReport struct {
	FailoverTimeSeconds   float64 `json:"failover_time_seconds"`
	PrimaryRegionStatus   string  `json:"primary_region_status"`
	SecondaryRegionStatus string  `json:"secondary_region_status"`
	Route53ActiveEndpoint string  `json:"route53_active_endpoint"`
	RDSPromoted           bool    `json:"rds_promoted"`
	Timestamp             string  `json:"timestamp"`
	CanaryString          string  `json:"canary_string"`
}

// Schema is the JSON Schema every report document must satisfy.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": [
    "failover_time_seconds",
    "primary_region_status",
    "secondary_region_status",
    "route53_active_endpoint",
    "rds_promoted",
    "timestamp",
    "canary_string"
  ],
  "properties": {
    "failover_time_seconds": {"type": "number", "minimum": 0},
    "primary_region_status": {"type": "string", "enum": ["UP", "DOWN"]},
    "secondary_region_status": {"type": "string", "enum": ["UP", "DOWN"]},
    "route53_active_endpoint": {"type": "string", "minLength": 1},
    "rds_promoted": {"type": "boolean"},
    "timestamp": {"type": "string"},
    "canary_string": {"type": "string"}
  }
}`

// ValidateSchema checks a raw report document against the JSON Schema.
func ValidateSchema(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(Schema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("report: schema validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			msgs = append(msgs, resultErr.String())
		}
		return fmt.Errorf("report: schema validation failed: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// Validate checks the semantic constraints of a successful failover run.
func (r *FailoverReport) Validate() error {
	if r.FailoverTimeSeconds < 0 || r.FailoverTimeSeconds > MaxFailoverSeconds {
		return fmt.Errorf("report: failover time %.2fs outside [0, %d] seconds",
			r.FailoverTimeSeconds, MaxFailoverSeconds)
	}
	if r.PrimaryRegionStatus != StatusDown {
		return fmt.Errorf("report: primary region should be DOWN, got %q", r.PrimaryRegionStatus)
	}
	if r.SecondaryRegionStatus != StatusUp {
		return fmt.Errorf("report: secondary region should be UP, got %q", r.SecondaryRegionStatus)
	}
	if r.Route53ActiveEndpoint == "" {
		return fmt.Errorf("report: route53 active endpoint missing")
	}
	if !r.RDSPromoted {
		return fmt.Errorf("report: RDS secondary cluster was not promoted")
	}
	if _, err := ParseTimestamp(r.Timestamp); err != nil {
		return err
	}
	if r.CanaryString != CanaryString {
		return fmt.Errorf("report: canary string mismatch, expected %q got %q",
			CanaryString, r.CanaryString)
	}
	return nil
}

// ParseTimestamp parses an ISO-8601 timestamp, with or without a zone.
func ParseTimestamp(ts string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("report: timestamp %q is not valid ISO-8601", ts)
}

// Load reads a report file, validating the document against the schema and
// the record's types. Semantic pass/fail stays with the caller so a failed
// run's report can still be inspected.
func Load(path string) (*FailoverReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("report: read %s: %w", path, err)
	}
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var r FailoverReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report: decode %s: %w", path, err)
	}
	return &r, nil
}

// Write atomically writes a report. A report is immutable: writing to a
// path that already holds one returns an error.
func Write(path string, r *FailoverReport) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("report: %s already exists, reports are immutable", path)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("report: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".failover_validation-*.json")
	if err != nil {
		return fmt.Errorf("report: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("report: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("report: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("report: rename into place: %w", err)
	}
	return nil
}
