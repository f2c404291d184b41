// Package awsx wraps the AWS control-plane operations the validator and
// simulator need: Route 53 record inspection, Aurora global cluster state,
// S3 replication configuration, CloudWatch dashboards and SNS alerting.
// All clients can be pointed at a LocalStack endpoint.
package awsx

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/smithy-go"
)

// Options configures AWS client construction.
type Options struct {
	Endpoint  string // custom endpoint, e.g. http://localhost:4566 for LocalStack
	AccessKey string
	SecretKey string
	Region    string
}

// Clients bundles the service clients for one region.
type Clients struct {
	Route53    *route53.Client
	RDS        *rds.Client
	S3         *s3.Client
	SNS        *sns.Client
	CloudWatch *cloudwatch.Client
}

// NewClients builds all service clients from the given options.
func NewClients(ctx context.Context, opts Options) (*Clients, error) {
	if opts.Region == "" {
		return nil, fmt.Errorf("awsx: region required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(creds))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("awsx: load config: %w", err)
	}

	endpoint := opts.Endpoint
	return &Clients{
		Route53: route53.NewFromConfig(cfg, func(o *route53.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
		RDS: rds.NewFromConfig(cfg, func(o *rds.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
		S3: s3.NewFromConfig(cfg, func(o *s3.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
				o.UsePathStyle = true // LocalStack requires path-style addressing
			}
		}),
		SNS: sns.NewFromConfig(cfg, func(o *sns.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
		CloudWatch: cloudwatch.NewFromConfig(cfg, func(o *cloudwatch.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		}),
	}, nil
}

// IsErrorCode reports whether err is an AWS API error with the given code.
func IsErrorCode(err error, code string) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == code
	}
	return false
}
