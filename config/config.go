// Package config loads the duplication core's property file: the queue
// name, credentials path, inclusion/exclusion list paths, and per-backend
// credential sections. Nothing in this package is a global; Load returns a
// *Config that the CLI drivers thread explicitly into producer.New and
// processor.New.
package config

import (
	"fmt"
	"time"
)

// Config is the top-level duplication-mill property file.
type Config struct {
	QueueName         string `yaml:"queue_name"`
	CredentialsFile   string `yaml:"credentials_file"`
	InclusionListPath string `yaml:"inclusion_list,omitempty"`
	ExclusionListPath string `yaml:"exclusion_list,omitempty"`
	PolicyFile        string `yaml:"policy_file"`
	StateFile         string `yaml:"state_file"`
	ProducerID        string `yaml:"producer_id"`

	MaxTaskQueueSize int      `yaml:"max_task_queue_size"`
	Frequency        Duration `yaml:"frequency"`

	LogLevel string `yaml:"log_level"`

	S3    S3Config    `yaml:"s3"`
	Azure AzureConfig `yaml:"azure"`
	GCS   GCSConfig   `yaml:"gcs"`
	HDFS  HDFSConfig  `yaml:"hdfs"`
	HTTP  HTTPConfig  `yaml:"http"`

	StagingDir    string `yaml:"staging_dir"`
	StagingDevice string `yaml:"staging_device,omitempty"`
}

// S3Config configures the aws-sdk-go-v2-backed storage.Provider.
type S3Config struct {
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	ForcePathStyle  bool   `yaml:"force_path_style,omitempty"`
}

// AzureConfig configures the azblob-backed storage.Provider.
type AzureConfig struct {
	AccountName string `yaml:"account_name"`
	AccountKey  string `yaml:"account_key,omitempty"`
	Endpoint    string `yaml:"endpoint,omitempty"`
}

// GCSConfig configures the cloud.google.com/go/storage-backed provider.
type GCSConfig struct {
	ProjectID           string `yaml:"project_id"`
	CredentialsFilePath string `yaml:"credentials_file,omitempty"`
}

// HDFSConfig configures the colinmarc/hdfs-backed provider.
type HDFSConfig struct {
	Namenode string `yaml:"namenode"`
	User     string `yaml:"user"`
}

// HTTPConfig configures the fasthttp-backed generic REST gateway provider.
type HTTPConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks the fields the producer and processor cannot run without.
func (c *Config) Validate() error {
	if c.QueueName == "" {
		return fmt.Errorf("queue_name is required")
	}
	if c.StateFile == "" {
		return fmt.Errorf("state_file is required")
	}
	if c.MaxTaskQueueSize <= 0 {
		return fmt.Errorf("max_task_queue_size must be positive")
	}
	if c.ProducerID == "" {
		c.ProducerID = "default"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.StagingDir == "" {
		c.StagingDir = "/tmp/dupmill-staging"
	}
	return nil
}
