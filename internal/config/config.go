package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samvad-hq/storeconnect-reports/pkg/awsutil"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	KeyID          string `mapstructure:"key_id"`
	IssuerID       string `mapstructure:"issuer_id"`
	PrivateKey     string `mapstructure:"private_key"`
	PrivateKeyPath string `mapstructure:"private_key_path"`
	VendorNumber   string `mapstructure:"vendor_number"`
	APIBaseURL     string `mapstructure:"api_base_url"`

	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`

	Reports              string        `mapstructure:"reports"`
	ReportKinds          []string      `mapstructure:"-"`
	ReportLookbackDays   int           `mapstructure:"report_lookback_days"`
	Compressed           bool          `mapstructure:"compressed"`
	FetchIntervalSeconds int64         `mapstructure:"fetch_interval"`
	FetchInterval        time.Duration `mapstructure:"-"`

	SinkType  string `mapstructure:"sink_type"`
	OutputDir string `mapstructure:"output_dir"`
	S3Bucket  string `mapstructure:"s3_bucket"`
	S3Prefix  string `mapstructure:"s3_prefix"`
	AWSRegion string `mapstructure:"aws_region"`

	// Optional; when unset the AWS default credential chain is used.
	AWSAccessKeyID     string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"aws_secret_access_key"`
	AWSSessionToken    string `mapstructure:"aws_session_token"`
	AWSEndpointURL     string `mapstructure:"aws_endpoint_url"`

	PublishersFile string `mapstructure:"publishers_file"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Redacted returns a copy safe for logging.
func (c Config) Redacted() Config {
	for _, secret := range []*string{&c.PrivateKey, &c.AWSSecretAccessKey, &c.AWSSessionToken} {
		if *secret != "" {
			*secret = "[redacted]"
		}
	}
	return c
}

// AWSSettings returns the shared AWS settings for the S3 sink and the SQS/SNS publishers.
func (c Config) AWSSettings() awsutil.Settings {
	return awsutil.Settings{
		Region:          c.AWSRegion,
		Endpoint:        c.AWSEndpointURL,
		AccessKeyID:     c.AWSAccessKeyID,
		SecretAccessKey: c.AWSSecretAccessKey,
		SessionToken:    c.AWSSessionToken,
	}
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "storeconnect-reports")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("key_id", "")
	v.SetDefault("issuer_id", "")
	v.SetDefault("private_key", "")
	v.SetDefault("private_key_path", "")
	v.SetDefault("vendor_number", "")
	v.SetDefault("api_base_url", "https://api.appstoreconnect.apple.com")
	v.SetDefault("http_timeout_seconds", 60)
	v.SetDefault("reports", "sales_summary,subscription_events_summary")
	v.SetDefault("report_lookback_days", 3)
	v.SetDefault("compressed", false)
	v.SetDefault("fetch_interval", 0) // seconds; 0 runs a single pass
	v.SetDefault("sink_type", "dir")
	v.SetDefault("output_dir", "./data/reports")
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_prefix", "")
	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("aws_access_key_id", "")
	v.SetDefault("aws_secret_access_key", "")
	v.SetDefault("aws_session_token", "")
	v.SetDefault("aws_endpoint_url", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/harvest.db")
	v.SetDefault("storage_ttl_seconds", int64((400*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((24*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// finalize validates raw values and derives the computed fields.
func (c *Config) finalize() error {
	if strings.TrimSpace(c.KeyID) == "" {
		return fmt.Errorf("key_id is required")
	}
	if strings.TrimSpace(c.IssuerID) == "" {
		return fmt.Errorf("issuer_id is required")
	}
	if strings.TrimSpace(c.VendorNumber) == "" {
		return fmt.Errorf("vendor_number is required")
	}
	if c.PrivateKey == "" {
		if c.PrivateKeyPath == "" {
			return fmt.Errorf("one of private_key or private_key_path is required")
		}
		raw, err := os.ReadFile(c.PrivateKeyPath)
		if err != nil {
			return fmt.Errorf("read private_key_path: %w", err)
		}
		c.PrivateKey = string(raw)
	}

	if (c.AWSAccessKeyID == "") != (c.AWSSecretAccessKey == "") {
		return fmt.Errorf("aws_access_key_id and aws_secret_access_key must be set together")
	}

	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	c.HTTPTimeout = time.Duration(c.HTTPTimeoutSeconds) * time.Second

	c.ReportKinds = splitList(c.Reports)
	if len(c.ReportKinds) == 0 {
		return fmt.Errorf("reports must name at least one report kind")
	}
	if c.ReportLookbackDays <= 0 {
		return fmt.Errorf("invalid report_lookback_days (must be positive)")
	}
	if c.FetchIntervalSeconds < 0 {
		return fmt.Errorf("invalid fetch_interval (must be zero or positive seconds)")
	}
	c.FetchInterval = time.Duration(c.FetchIntervalSeconds) * time.Second

	if c.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if c.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	c.StorageTTL = time.Duration(c.StorageTTLSeconds) * time.Second
	c.StorageCleanupInterval = time.Duration(c.StorageCleanupSeconds) * time.Second

	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
