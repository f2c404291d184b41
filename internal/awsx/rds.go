package awsx

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"go.uber.org/zap"
)

// AuroraInspector observes and drives the Aurora global cluster topology.
type AuroraInspector struct {
	client *rds.Client
	logger *zap.Logger
}

// NewAuroraInspector creates an inspector.
func NewAuroraInspector(client *rds.Client, logger *zap.Logger) *AuroraInspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuroraInspector{client: client, logger: logger}
}

// WriterMemberArn returns the ARN of the global cluster member currently
// holding the writer role.
func (a *AuroraInspector) WriterMemberArn(ctx context.Context, globalClusterID string) (string, error) {
	out, err := a.client.DescribeGlobalClusters(ctx, &rds.DescribeGlobalClustersInput{
		GlobalClusterIdentifier: aws.String(globalClusterID),
	})
	if err != nil {
		return "", fmt.Errorf("rds: describe global cluster %s: %w", globalClusterID, err)
	}
	if len(out.GlobalClusters) == 0 {
		return "", fmt.Errorf("rds: global cluster %s not found", globalClusterID)
	}

	for _, member := range out.GlobalClusters[0].GlobalClusterMembers {
		if aws.ToBool(member.IsWriter) {
			return aws.ToString(member.DBClusterArn), nil
		}
	}
	return "", fmt.Errorf("rds: global cluster %s has no writer member", globalClusterID)
}

// Promoted reports whether the writer of the global cluster now lives in
// the given region, i.e. the secondary has been promoted.
func (a *AuroraInspector) Promoted(ctx context.Context, globalClusterID, regionName string) (bool, error) {
	writerArn, err := a.WriterMemberArn(ctx, globalClusterID)
	if err != nil {
		return false, err
	}
	return RegionFromARN(writerArn) == regionName, nil
}

// Failover moves the writer role of the global cluster to the target
// cluster, promoting it to a writable primary.
func (a *AuroraInspector) Failover(ctx context.Context, globalClusterID, targetClusterArn string) error {
	_, err := a.client.FailoverGlobalCluster(ctx, &rds.FailoverGlobalClusterInput{
		GlobalClusterIdentifier:   aws.String(globalClusterID),
		TargetDbClusterIdentifier: aws.String(targetClusterArn),
	})
	if err != nil {
		return fmt.Errorf("rds: failover global cluster %s to %s: %w", globalClusterID, targetClusterArn, err)
	}

	a.logger.Info("global cluster failover initiated",
		zap.String("global_cluster", globalClusterID),
		zap.String("target", targetClusterArn))
	return nil
}

// SecondaryMemberArn returns the ARN of a non-writer member in the given
// region, the promotion target for a failover.
func (a *AuroraInspector) SecondaryMemberArn(ctx context.Context, globalClusterID, regionName string) (string, error) {
	out, err := a.client.DescribeGlobalClusters(ctx, &rds.DescribeGlobalClustersInput{
		GlobalClusterIdentifier: aws.String(globalClusterID),
	})
	if err != nil {
		return "", fmt.Errorf("rds: describe global cluster %s: %w", globalClusterID, err)
	}
	if len(out.GlobalClusters) == 0 {
		return "", fmt.Errorf("rds: global cluster %s not found", globalClusterID)
	}

	for _, member := range out.GlobalClusters[0].GlobalClusterMembers {
		arn := aws.ToString(member.DBClusterArn)
		if !aws.ToBool(member.IsWriter) && RegionFromARN(arn) == regionName {
			return arn, nil
		}
	}
	return "", fmt.Errorf("rds: no secondary member in %s for global cluster %s", regionName, globalClusterID)
}

// RegionFromARN extracts the region element of an ARN
// (arn:partition:service:region:account:resource).
func RegionFromARN(arn string) string {
	parts := strings.SplitN(arn, ":", 6)
	if len(parts) < 4 {
		return ""
	}
	return parts[3]
}
