package awsx

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ReplicationConfigured reports whether the bucket has a cross-region
// replication configuration with at least one enabled rule.
func ReplicationConfigured(ctx context.Context, client *s3.Client, bucket string) (bool, error) {
	out, err := client.GetBucketReplication(ctx, &s3.GetBucketReplicationInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		if IsErrorCode(err, "ReplicationConfigurationNotFoundError") {
			return false, nil
		}
		return false, fmt.Errorf("awsx: get replication for bucket %s: %w", bucket, err)
	}

	if out.ReplicationConfiguration == nil {
		return false, nil
	}
	for _, rule := range out.ReplicationConfiguration.Rules {
		if rule.Status == s3types.ReplicationRuleStatusEnabled {
			return true, nil
		}
	}
	return false, nil
}
