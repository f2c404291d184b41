package checks

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureMainTF = `
# LocalStack endpoints via http://localhost:4566

resource "aws_vpc" "primary" {
  cidr_block = "10.0.0.0/16"
}

resource "aws_vpc" "secondary" {
  provider   = aws.secondary
  cidr_block = "10.1.0.0/16"
}

resource "aws_subnet" "primary_a" {
  vpc_id     = aws_vpc.primary.id
  cidr_block = "10.0.1.0/24"
}

resource "aws_internet_gateway" "primary" {
  vpc_id = aws_vpc.primary.id
}

resource "aws_nat_gateway" "primary" {
  subnet_id = aws_subnet.primary_a.id
}

resource "aws_security_group" "alb" {
  vpc_id = aws_vpc.primary.id
}

resource "aws_lb" "primary" {
  load_balancer_type = "application"
}

resource "aws_ecs_cluster" "primary" {
  name = "terminus-primary"
}

resource "aws_ecs_task_definition" "app" {
  requires_compatibilities = ["FARGATE"]
  container_definitions    = jsonencode([{ name = "app", image = "nginx:1.25" }])
}

resource "aws_ecs_service" "app" {
  cluster     = aws_ecs_cluster.primary.id
  launch_type = "FARGATE"
}

resource "aws_rds_global_cluster" "this" {
  global_cluster_identifier = "terminus-global"
  engine                    = "aurora-postgresql"
}

resource "aws_rds_cluster" "primary" {
  global_cluster_identifier = aws_rds_global_cluster.this.id
  engine                    = "aurora-postgresql"
}

resource "aws_s3_bucket" "primary" {
  bucket = "terminus-primary-artifacts"
}

resource "aws_s3_bucket_replication_configuration" "primary" {
  bucket = aws_s3_bucket.primary.id
  rule {
    status = "Enabled"
  }
}

resource "aws_route53_zone" "this" {
  name = "terminus.internal"
}

resource "aws_route53_record" "primary" {
  zone_id        = aws_route53_zone.this.zone_id
  set_identifier = "primary"
  latency_routing_policy {
    region = "us-east-1"
  }
}

resource "aws_iam_role" "task_execution" {
  name = "terminus-task-execution"
}

resource "aws_iam_role_policy" "task_execution" {
  role = aws_iam_role.task_execution.id
}

resource "aws_cloudwatch_dashboard" "failover" {
  dashboard_name = "terminus-failover"
}

resource "aws_sns_topic" "alerts" {
  name = "terminus-alerts"
}
`

const fixtureOutputsTF = `
output "route53_domain_name" {
  value = aws_route53_zone.this.name
}

output "primary_alb_dns" {
  value = aws_lb.primary.dns_name
}

output "secondary_alb_dns" {
  value = "secondary.example.com"
}

output "primary_s3_bucket" {
  value = aws_s3_bucket.primary.id
}

output "secondary_s3_bucket" {
  value = "terminus-secondary-artifacts"
}

output "aurora_global_cluster_id" {
  value = aws_rds_global_cluster.this.id
}
`

const fixtureProvidersTF = `
provider "aws" {
  region = "us-east-1"

  endpoints {
    s3 = "http://localhost:4566"
  }
}

provider "aws" {
  alias  = "secondary"
  region = "us-west-2"
}
`

const fixtureVariablesTF = `
variable "environment" {
  type    = string
  default = "test"
}
`

func writeTerraformFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"main.tf":           fixtureMainTF,
		"outputs.tf":        fixtureOutputsTF,
		"providers.tf":      fixtureProvidersTF,
		"variables.tf":      fixtureVariablesTF,
		"terraform.tfstate": `{"version": 4}`,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
	}
	return dir
}

func runNamed(t *testing.T, list []Check, name string) error {
	t.Helper()
	for _, c := range list {
		if c.Name == name {
			return c.Run(context.Background())
		}
	}
	t.Fatalf("no check named %s", name)
	return nil
}

func TestTerraformChecks(t *testing.T) {
	t.Run("complete configuration passes every check", func(t *testing.T) {
		dir := writeTerraformFixture(t)
		suite := NewSuite(nil)
		suite.Add(TerraformChecks(dir, nil)...)

		results := suite.Run(context.Background())
		for _, r := range results {
			assert.True(t, r.Passed, "%s: %s", r.Name, r.Message)
		}
	})

	t.Run("missing directory fails directory check", func(t *testing.T) {
		list := TerraformChecks(filepath.Join(t.TempDir(), "missing"), nil)
		assert.Error(t, runNamed(t, list, "terraform-directory-exists"))
	})

	t.Run("missing required file is reported", func(t *testing.T) {
		dir := writeTerraformFixture(t)
		require.NoError(t, os.Remove(filepath.Join(dir, "variables.tf")))

		list := TerraformChecks(dir, nil)
		assert.Error(t, runNamed(t, list, "terraform-required-files"))
	})

	t.Run("missing state file is reported", func(t *testing.T) {
		dir := writeTerraformFixture(t)
		require.NoError(t, os.Remove(filepath.Join(dir, "terraform.tfstate")))

		list := TerraformChecks(dir, nil)
		assert.Error(t, runNamed(t, list, "terraform-state-exists"))
	})

	t.Run("missing resource type is reported", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tf"),
			[]byte(`resource "aws_vpc" "only" { cidr_block = "10.0.0.0/16" }`), 0600))

		list := TerraformChecks(dir, nil)
		err := runNamed(t, list, "terraform-required-resources")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "aws_subnet")
	})

	t.Run("missing output is reported", func(t *testing.T) {
		dir := writeTerraformFixture(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "outputs.tf"),
			[]byte(`output "primary_alb_dns" { value = "x" }`), 0600))

		list := TerraformChecks(dir, nil)
		err := runNamed(t, list, "terraform-required-outputs")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "route53_domain_name")
	})

	t.Run("cidr check falls back to static inspection", func(t *testing.T) {
		// terraform show cannot run in the fixture dir, so the check must
		// pass on the literals in main.tf alone.
		dir := writeTerraformFixture(t)
		list := TerraformChecks(dir, nil)
		assert.NoError(t, runNamed(t, list, "terraform-vpc-cidr-blocks"))
	})

	t.Run("security groups found in module subdirectory", func(t *testing.T) {
		dir := writeTerraformFixture(t)

		// Move the security group into a module subdirectory.
		main := fixtureMainTF
		require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tf"), []byte(main), 0600))
		moduleDir := filepath.Join(dir, "modules", "network")
		require.NoError(t, os.MkdirAll(moduleDir, 0750))
		require.NoError(t, os.WriteFile(filepath.Join(moduleDir, "sg.tf"),
			[]byte(`resource "aws_security_group" "inner" {}`), 0600))

		list := TerraformChecks(dir, nil)
		assert.NoError(t, runNamed(t, list, "terraform-security-groups"))
	})
}

func TestScriptChecks(t *testing.T) {
	t.Run("executable script passes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "simulate_failover.sh")
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))

		suite := NewSuite(nil)
		suite.Add(ScriptChecks(path)...)
		assert.NoError(t, Summarize(suite.Run(context.Background())))
	})

	t.Run("missing script fails both checks", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "simulate_failover.sh")

		suite := NewSuite(nil)
		suite.Add(ScriptChecks(path)...)
		failed := Failed(suite.Run(context.Background()))
		assert.Len(t, failed, 2)
	})

	t.Run("non-executable script fails the mode check", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "simulate_failover.sh")
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0644))

		suite := NewSuite(nil)
		suite.Add(ScriptChecks(path)...)
		failed := Failed(suite.Run(context.Background()))
		require.Len(t, failed, 1)
		assert.Equal(t, "simulate-script-executable", failed[0].Name)
	})
}
