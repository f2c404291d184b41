package awsx

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"go.uber.org/zap"
)

// Route53Inspector resolves which region currently receives traffic for
// the application record, and can withdraw a region's record set during
// simulated outages.
type Route53Inspector struct {
	client *route53.Client
	logger *zap.Logger
}

// NewRoute53Inspector creates an inspector.
func NewRoute53Inspector(client *route53.Client, logger *zap.Logger) *Route53Inspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Route53Inspector{client: client, logger: logger}
}

// HostedZoneID looks up the zone ID for a zone name.
func (i *Route53Inspector) HostedZoneID(ctx context.Context, zoneName string) (string, error) {
	out, err := i.client.ListHostedZonesByName(ctx, &route53.ListHostedZonesByNameInput{
		DNSName: aws.String(zoneName),
	})
	if err != nil {
		return "", fmt.Errorf("route53: list zones for %s: %w", zoneName, err)
	}

	want := strings.TrimSuffix(zoneName, ".") + "."
	for _, zone := range out.HostedZones {
		if zone.Name != nil && *zone.Name == want {
			return strings.TrimPrefix(aws.ToString(zone.Id), "/hostedzone/"), nil
		}
	}
	return "", fmt.Errorf("route53: hosted zone %s not found", zoneName)
}

// recordSets returns the record sets for recordName in the zone.
func (i *Route53Inspector) recordSets(ctx context.Context, zoneID, recordName string) ([]r53types.ResourceRecordSet, error) {
	out, err := i.client.ListResourceRecordSets(ctx, &route53.ListResourceRecordSetsInput{
		HostedZoneId:    aws.String(zoneID),
		StartRecordName: aws.String(recordName),
	})
	if err != nil {
		return nil, fmt.Errorf("route53: list record sets in %s: %w", zoneID, err)
	}

	want := strings.TrimSuffix(recordName, ".") + "."
	var sets []r53types.ResourceRecordSet
	for _, rrs := range out.ResourceRecordSets {
		if rrs.Name != nil && *rrs.Name == want {
			sets = append(sets, rrs)
		}
	}
	return sets, nil
}

// ActiveEndpoint determines which region is actively serving the record.
// For latency-routed record sets, a record backed by a healthy health check
// wins; if no record carries a health check (LocalStack does not evaluate
// them), the sole remaining record is active. A record withdrawn during
// failover therefore stops being a candidate.
func (i *Route53Inspector) ActiveEndpoint(ctx context.Context, zoneName, recordName string) (string, error) {
	zoneID, err := i.HostedZoneID(ctx, zoneName)
	if err != nil {
		return "", err
	}

	sets, err := i.recordSets(ctx, zoneID, recordName)
	if err != nil {
		return "", err
	}
	if len(sets) == 0 {
		return "", fmt.Errorf("route53: no record sets for %s", recordName)
	}

	var candidates []r53types.ResourceRecordSet
	for _, rrs := range sets {
		if rrs.HealthCheckId == nil {
			candidates = append(candidates, rrs)
			continue
		}
		healthy, err := i.healthCheckHealthy(ctx, *rrs.HealthCheckId)
		if err != nil {
			i.logger.Warn("health check status unavailable",
				zap.String("health_check_id", *rrs.HealthCheckId),
				zap.Error(err))
			continue
		}
		if healthy {
			candidates = append(candidates, rrs)
		}
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("route53: no healthy record set for %s", recordName)
	}
	if len(candidates) == 1 {
		return recordRegion(candidates[0]), nil
	}

	// Multiple healthy latency records: the primary still answers, so the
	// lowest-latency region for our vantage point is reported. Prefer a
	// record marked as failover PRIMARY when present.
	for _, rrs := range candidates {
		if rrs.Failover == r53types.ResourceRecordSetFailoverPrimary {
			return recordRegion(rrs), nil
		}
	}
	return recordRegion(candidates[0]), nil
}

// WithdrawRegion deletes the record set whose latency region matches the
// given region, forcing resolvers onto the surviving record.
func (i *Route53Inspector) WithdrawRegion(ctx context.Context, zoneName, recordName, regionName string) error {
	zoneID, err := i.HostedZoneID(ctx, zoneName)
	if err != nil {
		return err
	}

	sets, err := i.recordSets(ctx, zoneID, recordName)
	if err != nil {
		return err
	}

	for _, rrs := range sets {
		if recordRegion(rrs) != regionName {
			continue
		}
		rrs := rrs
		_, err := i.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
			HostedZoneId: aws.String(zoneID),
			ChangeBatch: &r53types.ChangeBatch{
				Comment: aws.String("regionguard: withdraw failed region"),
				Changes: []r53types.Change{
					{
						Action:            r53types.ChangeActionDelete,
						ResourceRecordSet: &rrs,
					},
				},
			},
		})
		if err != nil {
			return fmt.Errorf("route53: withdraw %s record for %s: %w", regionName, recordName, err)
		}
		i.logger.Info("route53 record withdrawn",
			zap.String("record", recordName),
			zap.String("region", regionName))
		return nil
	}

	return fmt.Errorf("route53: no %s record set for region %s", recordName, regionName)
}

func (i *Route53Inspector) healthCheckHealthy(ctx context.Context, healthCheckID string) (bool, error) {
	out, err := i.client.GetHealthCheckStatus(ctx, &route53.GetHealthCheckStatusInput{
		HealthCheckId: aws.String(healthCheckID),
	})
	if err != nil {
		return false, err
	}

	for _, obs := range out.HealthCheckObservations {
		if obs.StatusReport == nil || obs.StatusReport.Status == nil {
			continue
		}
		if strings.Contains(*obs.StatusReport.Status, "Success") {
			return true, nil
		}
	}
	return false, nil
}

// recordRegion extracts the region a record set belongs to, preferring the
// latency routing region over the set identifier.
func recordRegion(rrs r53types.ResourceRecordSet) string {
	if rrs.Region != "" {
		return string(rrs.Region)
	}
	return aws.ToString(rrs.SetIdentifier)
}
