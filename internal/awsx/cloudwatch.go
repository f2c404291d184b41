package awsx

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
)

// DashboardExists reports whether the named CloudWatch dashboard exists.
func DashboardExists(ctx context.Context, client *cloudwatch.Client, name string) (bool, error) {
	_, err := client.GetDashboard(ctx, &cloudwatch.GetDashboardInput{
		DashboardName: aws.String(name),
	})
	if err != nil {
		if IsErrorCode(err, "ResourceNotFound") || IsErrorCode(err, "ResourceNotFoundException") {
			return false, nil
		}
		return false, fmt.Errorf("awsx: get dashboard %s: %w", name, err)
	}
	return true, nil
}
