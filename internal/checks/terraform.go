package checks

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/terminusops/regionguard/internal/terraform"
)

// requiredResourcePrefixes are the resource types a multi-region deployment
// must declare. Prefix matching lets aws_rds cover aws_rds_global_cluster.
var requiredResourcePrefixes = []string{
	"aws_vpc",
	"aws_subnet",
	"aws_internet_gateway",
	"aws_nat_gateway",
	"aws_lb",
	"aws_ecs_cluster",
	"aws_ecs_service",
	"aws_rds",
	"aws_s3_bucket",
	"aws_route53",
	"aws_iam_role",
	"aws_cloudwatch",
	"aws_sns_topic",
}

// requiredOutputs are the output values downstream tooling consumes.
var requiredOutputs = []string{
	"route53_domain_name",
	"primary_alb_dns",
	"secondary_alb_dns",
	"primary_s3_bucket",
	"secondary_s3_bucket",
	"aurora_global_cluster_id",
}

// expectedVPCCIDRs are the per-region VPC address spaces.
var expectedVPCCIDRs = []string{"10.0.0.0/16", "10.1.0.0/16"}

// TerraformChecks builds the check list for the Terraform configuration in
// dir. The inspector is constructed lazily so that a missing directory
// fails the directory check rather than suite construction.
func TerraformChecks(dir string, logger *zap.Logger) []Check {
	if logger == nil {
		logger = zap.NewNop()
	}

	var cached *terraform.Inspector
	inspect := func() (*terraform.Inspector, error) {
		if cached != nil {
			return cached, nil
		}
		ins, err := terraform.NewInspector(dir)
		if err != nil {
			return nil, err
		}
		cached = ins
		return ins, nil
	}

	return []Check{
		{
			Name: "terraform-directory-exists",
			Run: func(ctx context.Context) error {
				return terraform.CheckDir(dir)
			},
		},
		{
			Name: "terraform-required-files",
			Run: func(ctx context.Context) error {
				return terraform.CheckRequiredFiles(dir)
			},
		},
		{
			Name: "terraform-providers-multi-region",
			Run: func(ctx context.Context) error {
				ins, err := inspect()
				if err != nil {
					return err
				}
				if ins.ProviderCount() < 2 && !ins.Contains("providers.tf", `provider "aws"`) {
					return fmt.Errorf("AWS provider not configured for multi-region deployment")
				}
				regions := ins.ProviderRegions()
				if !containsString(regions, "us-east-1") && !ins.Contains("", "us-east-1") {
					return fmt.Errorf("primary region (us-east-1) not configured")
				}
				if !containsString(regions, "us-west-2") && !ins.Contains("", "us-west-2") {
					return fmt.Errorf("secondary region (us-west-2) not configured")
				}
				if !ins.Contains("", "localhost:4566") && !ins.ContainsFold("", "localstack") {
					return fmt.Errorf("LocalStack endpoints not configured")
				}
				return nil
			},
		},
		{
			Name: "terraform-required-resources",
			Run: func(ctx context.Context) error {
				ins, err := inspect()
				if err != nil {
					return err
				}
				for _, prefix := range requiredResourcePrefixes {
					if !ins.HasResourceTypePrefix(prefix) {
						return fmt.Errorf("required resource type %q not found in configuration", prefix)
					}
				}
				return nil
			},
		},
		{
			Name: "terraform-required-outputs",
			Run: func(ctx context.Context) error {
				ins, err := inspect()
				if err != nil {
					return err
				}
				for _, name := range requiredOutputs {
					if !ins.HasOutput(name) {
						return fmt.Errorf("required output %q not found in outputs.tf", name)
					}
				}
				return nil
			},
		},
		{
			Name: "terraform-state-exists",
			Run: func(ctx context.Context) error {
				return terraform.CheckStateFile(dir)
			},
		},
		{
			Name: "terraform-vpc-cidr-blocks",
			Run: func(ctx context.Context) error {
				return checkVPCCIDRs(ctx, dir, logger, inspect)
			},
		},
		{
			Name: "terraform-s3-replication",
			Run: func(ctx context.Context) error {
				ins, err := inspect()
				if err != nil {
					return err
				}
				if !ins.Contains("main.tf", "aws_s3_bucket_replication") &&
					!ins.Contains("main.tf", "replication_configuration") {
					return fmt.Errorf("S3 cross-region replication not configured")
				}
				return nil
			},
		},
		{
			Name: "terraform-route53-latency-routing",
			Run: func(ctx context.Context) error {
				ins, err := inspect()
				if err != nil {
					return err
				}
				if !ins.HasResourceTypePrefix("aws_route53_record") {
					return fmt.Errorf("route53 records not configured")
				}
				if !ins.Contains("main.tf", "latency_routing_policy") &&
					!ins.ContainsFold("main.tf", "latency") {
					return fmt.Errorf("route53 latency-based routing not configured")
				}
				return nil
			},
		},
		{
			Name: "terraform-cloudwatch-dashboard",
			Run: func(ctx context.Context) error {
				ins, err := inspect()
				if err != nil {
					return err
				}
				if !ins.HasResourceTypePrefix("aws_cloudwatch_dashboard") {
					return fmt.Errorf("CloudWatch dashboard not configured")
				}
				return nil
			},
		},
		{
			Name: "terraform-ecs-fargate",
			Run: func(ctx context.Context) error {
				ins, err := inspect()
				if err != nil {
					return err
				}
				if !ins.HasResourceTypePrefix("aws_ecs_cluster") {
					return fmt.Errorf("ECS cluster not configured")
				}
				if !ins.HasResourceTypePrefix("aws_ecs_service") {
					return fmt.Errorf("ECS service not configured")
				}
				if !ins.ContainsFold("", "fargate") {
					return fmt.Errorf("ECS Fargate launch type not configured")
				}
				if !ins.ContainsFold("", "nginx") {
					return fmt.Errorf("nginx container not configured")
				}
				return nil
			},
		},
		{
			Name: "terraform-iam-roles",
			Run: func(ctx context.Context) error {
				ins, err := inspect()
				if err != nil {
					return err
				}
				if !ins.HasResourceTypePrefix("aws_iam_role") {
					return fmt.Errorf("IAM roles not configured")
				}
				if !ins.HasResourceTypePrefix("aws_iam_role_policy") &&
					!ins.HasResourceTypePrefix("aws_iam_policy") {
					return fmt.Errorf("IAM policies not configured")
				}
				return nil
			},
		},
		{
			Name: "terraform-security-groups",
			Run: func(ctx context.Context) error {
				found, err := anyTFContains(dir, "aws_security_group")
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("security groups not configured in Terraform files")
				}
				return nil
			},
		},
		{
			Name: "terraform-aurora-global-cluster",
			Run: func(ctx context.Context) error {
				ins, err := inspect()
				if err != nil {
					return err
				}
				if !ins.HasResourceTypePrefix("aws_rds_global_cluster") &&
					!ins.Contains("main.tf", "global_cluster_identifier") {
					return fmt.Errorf("RDS Aurora global cluster not configured")
				}
				if !ins.Contains("", "aurora-postgresql") && !ins.ContainsFold("", "postgres") {
					return fmt.Errorf("Aurora PostgreSQL engine not configured")
				}
				return nil
			},
		},
	}
}

// ScriptChecks validates the failover simulation script.
func ScriptChecks(path string) []Check {
	return []Check{
		{
			Name: "simulate-script-exists",
			Run: func(ctx context.Context) error {
				info, err := os.Stat(path)
				if err != nil {
					return fmt.Errorf("failover simulation script does not exist at %s", path)
				}
				if !info.Mode().IsRegular() {
					return fmt.Errorf("%s is not a file", path)
				}
				return nil
			},
		},
		{
			Name: "simulate-script-executable",
			Run: func(ctx context.Context) error {
				return terraform.CheckExecutable(path)
			},
		},
	}
}

// checkVPCCIDRs prefers the live state from `terraform show -json`; any
// failure there degrades to static inspection of main.tf.
func checkVPCCIDRs(ctx context.Context, dir string, logger *zap.Logger, inspect func() (*terraform.Inspector, error)) error {
	state, err := terraform.ShowState(ctx, dir, logger)
	if err == nil {
		for _, cidr := range state.VPCCIDRs() {
			if containsString(expectedVPCCIDRs, cidr) {
				return nil
			}
		}
		return fmt.Errorf("VPC CIDR blocks not configured correctly, expected one of %s",
			strings.Join(expectedVPCCIDRs, " and "))
	}

	ins, err := inspect()
	if err != nil {
		return err
	}
	for _, cidr := range expectedVPCCIDRs {
		if !ins.Contains("main.tf", cidr) {
			return fmt.Errorf("VPC CIDR %s not found in main.tf", cidr)
		}
	}
	return nil
}

// anyTFContains searches every .tf file under dir, recursively, for the
// substring. Security groups may live in module subdirectories.
func anyTFContains(dir, substr string) (bool, error) {
	found := false
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if found || d.IsDir() || !strings.HasSuffix(d.Name(), ".tf") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if strings.Contains(string(data), substr) {
			found = true
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("checks: scan %s: %w", dir, err)
	}
	return found, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
