package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv overrides configuration from environment variables.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("REGIONGUARD_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}

	if v := os.Getenv("REGIONGUARD_LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = v
	}

	if v := os.Getenv("REGIONGUARD_TERRAFORM_DIR"); v != "" {
		cfg.Paths.TerraformDir = v
	}

	if v := os.Getenv("REGIONGUARD_REPORT_FILE"); v != "" {
		cfg.Paths.ReportFile = v
	}

	if v := os.Getenv("REGIONGUARD_SCRIPT_FILE"); v != "" {
		cfg.Paths.ScriptFile = v
	}

	if v := os.Getenv("AWS_ENDPOINT_URL"); v != "" {
		cfg.AWS.Endpoint = v
	}

	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.AWS.AccessKey = v
	}

	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.AWS.SecretKey = v
	}

	if v := os.Getenv("REGIONGUARD_DEADLINE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Failover.Deadline = d
		}
	}

	if v := os.Getenv("REGIONGUARD_SNS_TOPIC"); v != "" {
		cfg.Alerting.TopicARN = v
	}
}
