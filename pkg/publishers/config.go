package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samvad-hq/storeconnect-reports/internal/domain"
	"gopkg.in/yaml.v3"
)

// Supported publisher types.
const (
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"
	TypeHTTP   = "http"
)

const (
	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// PublisherConfig is one entry of the publishers file.
type PublisherConfig struct {
	ID      string `json:"id" yaml:"id"`
	Type    string `json:"type" yaml:"type"`
	Enabled *bool  `json:"enabled" yaml:"enabled"`
	// Reports limits the publisher to these report kinds; empty means all.
	Reports []string               `json:"reports" yaml:"reports"`
	SQS     *SQSPublisherConfig    `json:"sqs" yaml:"sqs"`
	SNS     *SNSPublisherConfig    `json:"sns" yaml:"sns"`
	PubSub  *PubSubPublisherConfig `json:"pubsub" yaml:"pubsub"`
	HTTP    *HTTPPublisherConfig   `json:"http" yaml:"http"`
}

// SQSPublisherConfig targets an SQS queue. Region and Endpoint override the shared AWS settings.
type SQSPublisherConfig struct {
	QueueURL string `json:"uri" yaml:"uri"`
	Region   string `json:"region" yaml:"region"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// SNSPublisherConfig targets an SNS topic. Region and Endpoint override the shared AWS settings.
type SNSPublisherConfig struct {
	TopicARN string `json:"topic_arn" yaml:"topic_arn"`
	Region   string `json:"region" yaml:"region"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// PubSubPublisherConfig targets a Google Cloud Pub/Sub topic.
type PubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPPublisherConfig targets a webhook.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// EnabledValue returns the enabled flag, defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}

// Accepts reports whether events for kind should reach this publisher.
func (cfg PublisherConfig) Accepts(kind string) bool {
	if len(cfg.Reports) == 0 {
		return true
	}
	for _, k := range cfg.Reports {
		if k == kind {
			return true
		}
	}
	return false
}

// normalize trims fields, canonicalizes report kinds and fills HTTP defaults.
func (cfg PublisherConfig) normalize() (PublisherConfig, error) {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if len(cfg.Reports) > 0 {
		kinds := make([]string, 0, len(cfg.Reports))
		for _, raw := range cfg.Reports {
			k, err := domain.ParseReportKind(raw)
			if err != nil {
				return cfg, fmt.Errorf("publisher %q: %w", cfg.ID, err)
			}
			kinds = append(kinds, string(k))
		}
		cfg.Reports = kinds
	}

	switch {
	case cfg.SQS != nil:
		c := *cfg.SQS
		c.QueueURL, c.Region, c.Endpoint = trim3(c.QueueURL, c.Region, c.Endpoint)
		cfg.SQS = &c
	case cfg.SNS != nil:
		c := *cfg.SNS
		c.TopicARN, c.Region, c.Endpoint = trim3(c.TopicARN, c.Region, c.Endpoint)
		cfg.SNS = &c
	case cfg.PubSub != nil:
		c := *cfg.PubSub
		c.ProjectID, c.Topic, c.CredentialsFile = trim3(c.ProjectID, c.Topic, c.CredentialsFile)
		cfg.PubSub = &c
	case cfg.HTTP != nil:
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		if c.Method = strings.ToUpper(strings.TrimSpace(c.Method)); c.Method == "" {
			c.Method = httpDefaultMethod
		}
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		headers := make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
				headers[k] = v
			}
		}
		c.Headers = headers
		cfg.HTTP = &c
	}
	return cfg, nil
}

func trim3(a, b, c string) (string, string, string) {
	return strings.TrimSpace(a), strings.TrimSpace(b), strings.TrimSpace(c)
}

// validate checks the block matching the publisher type is present and complete.
func (cfg PublisherConfig) validate() error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	missing := func(field string) error {
		return fmt.Errorf("%s is required for publisher %q", field, cfg.ID)
	}

	switch cfg.Type {
	case "":
		return missing("type")
	case TypeSQS:
		switch {
		case cfg.SQS == nil:
			return missing("sqs")
		case cfg.SQS.QueueURL == "":
			return missing("sqs.uri")
		}
	case TypeSNS:
		switch {
		case cfg.SNS == nil:
			return missing("sns")
		case cfg.SNS.TopicARN == "":
			return missing("sns.topic_arn")
		}
	case TypePubSub:
		switch {
		case cfg.PubSub == nil:
			return missing("pubsub")
		case cfg.PubSub.ProjectID == "":
			return missing("pubsub.project_id")
		case cfg.PubSub.Topic == "":
			return missing("pubsub.topic")
		}
	case TypeHTTP:
		switch {
		case cfg.HTTP == nil:
			return missing("http")
		case cfg.HTTP.URL == "":
			return missing("http.url")
		}
	}
	return nil
}

// ConfigRegistry holds the publisher definitions loaded from a file.
// It is read-only after LoadRegistry.
type ConfigRegistry struct {
	publishers []PublisherConfig
}

// LoadRegistry loads publisher definitions from a YAML or JSON file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var file struct {
		Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
	}
	if err := decoderFor(filepath.Ext(path))(raw, &file); err != nil {
		return nil, fmt.Errorf("decode publishers file: %w", err)
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	seen := make(map[string]struct{}, len(file.Publishers))
	reg := &ConfigRegistry{publishers: make([]PublisherConfig, 0, len(file.Publishers))}
	for i, entry := range file.Publishers {
		cfg, err := entry.normalize()
		if err == nil {
			err = cfg.validate()
		}
		if err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
		reg.publishers = append(reg.publishers, cfg)
	}
	return reg, nil
}

// decoderFor picks the decoder by extension; JSON is valid YAML, so YAML is the fallback.
func decoderFor(ext string) func([]byte, any) error {
	if strings.EqualFold(ext, ".json") {
		return json.Unmarshal
	}
	return yaml.Unmarshal
}

// All returns a copy of every configured publisher.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	return append([]PublisherConfig(nil), r.publishers...)
}

// Enabled returns the publishers whose enabled flag is unset or true.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	var out []PublisherConfig
	for _, cfg := range r.All() {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}
