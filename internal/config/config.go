package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level regionguard configuration.
type Config struct {
	Regions  RegionsConfig  `yaml:"regions"`
	Paths    PathsConfig    `yaml:"paths"`
	AWS      AWSConfig      `yaml:"aws"`
	Failover FailoverConfig `yaml:"failover"`
	Server   ServerConfig   `yaml:"server"`
	Alerting AlertingConfig `yaml:"alerting"`
}

// RegionsConfig describes the two regions under validation.
type RegionsConfig struct {
	Primary   RegionConfig `yaml:"primary"`
	Secondary RegionConfig `yaml:"secondary"`
}

// RegionConfig describes a single region.
type RegionConfig struct {
	Name     string `yaml:"name"`
	Endpoint string `yaml:"endpoint"` // ALB health endpoint
}

// PathsConfig locates the artifacts produced by external tooling.
type PathsConfig struct {
	TerraformDir string `yaml:"terraform_dir"`
	ReportFile   string `yaml:"report_file"`
	ScriptFile   string `yaml:"script_file"`
}

// AWSConfig configures the AWS (LocalStack) control plane surface.
type AWSConfig struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKey       string `yaml:"access_key"`
	SecretKey       string `yaml:"secret_key"`
	HostedZone      string `yaml:"hosted_zone"`
	RecordName      string `yaml:"record_name"`
	GlobalClusterID string `yaml:"global_cluster_id"`
	DashboardName   string `yaml:"dashboard_name"`
	PrimaryBucket   string `yaml:"primary_bucket"`
	SecondaryBucket string `yaml:"secondary_bucket"`
}

// FailoverConfig tunes the validation run.
type FailoverConfig struct {
	Deadline         time.Duration `yaml:"deadline"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	ProbeInterval    time.Duration `yaml:"probe_interval"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`
	FailureThreshold int           `yaml:"failure_threshold"`
	ScriptTimeout    time.Duration `yaml:"script_timeout"`
}

// ServerConfig configures the status API.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// AlertingConfig configures SNS event publishing. Empty topic disables it.
type AlertingConfig struct {
	TopicARN string `yaml:"topic_arn"`
}

// Default returns the configuration matching the standard deployment layout.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Regions.Primary.Name == "" {
		c.Regions.Primary.Name = "us-east-1"
	}
	if c.Regions.Secondary.Name == "" {
		c.Regions.Secondary.Name = "us-west-2"
	}
	if c.Paths.TerraformDir == "" {
		c.Paths.TerraformDir = "/app/terraform"
	}
	if c.Paths.ReportFile == "" {
		c.Paths.ReportFile = "/app/results/failover_validation.json"
	}
	if c.Paths.ScriptFile == "" {
		c.Paths.ScriptFile = "/app/scripts/simulate_failover.sh"
	}
	if c.AWS.Endpoint == "" {
		c.AWS.Endpoint = "http://localhost:4566"
	}
	if c.AWS.AccessKey == "" {
		c.AWS.AccessKey = "test"
	}
	if c.AWS.SecretKey == "" {
		c.AWS.SecretKey = "test"
	}
	if c.Failover.Deadline == 0 {
		c.Failover.Deadline = 60 * time.Second
	}
	if c.Failover.PollInterval == 0 {
		c.Failover.PollInterval = 500 * time.Millisecond
	}
	if c.Failover.ProbeInterval == 0 {
		c.Failover.ProbeInterval = 2 * time.Second
	}
	if c.Failover.ProbeTimeout == 0 {
		c.Failover.ProbeTimeout = 5 * time.Second
	}
	if c.Failover.FailureThreshold == 0 {
		c.Failover.FailureThreshold = 3
	}
	if c.Failover.ScriptTimeout == 0 {
		c.Failover.ScriptTimeout = 2 * time.Minute
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8090
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Regions.Primary.Name == c.Regions.Secondary.Name {
		return fmt.Errorf("config: primary and secondary regions must differ, both are %s", c.Regions.Primary.Name)
	}
	if c.Failover.Deadline <= 0 {
		return fmt.Errorf("config: failover deadline must be positive, got %s", c.Failover.Deadline)
	}
	if c.Failover.FailureThreshold < 1 {
		return fmt.Errorf("config: failure threshold must be at least 1, got %d", c.Failover.FailureThreshold)
	}
	return nil
}

// Load reads a YAML config file, applies defaults and env overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.ApplyDefaults()
	LoadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
