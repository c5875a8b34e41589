package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sink types accepted in the publishers file.
const (
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"
	TypeHTTP   = "http"
)

const (
	defaultHTTPMethod         = http.MethodPost
	defaultHTTPTimeoutSeconds = 5
)

type publishersFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig is one sink entry. Only the block matching Type is read.
// VINs, when set, limits the sink to those vehicles.
type PublisherConfig struct {
	ID      string                 `json:"id" yaml:"id"`
	Type    string                 `json:"type" yaml:"type"`
	Enabled *bool                  `json:"enabled" yaml:"enabled"`
	VINs    []string               `json:"vins" yaml:"vins"`
	SQS     *SQSPublisherConfig    `json:"sqs" yaml:"sqs"`
	SNS     *SNSPublisherConfig    `json:"sns" yaml:"sns"`
	PubSub  *PubSubPublisherConfig `json:"pubsub" yaml:"pubsub"`
	HTTP    *HTTPPublisherConfig   `json:"http" yaml:"http"`
}

// AWSConfig is shared by the SQS and SNS sinks. Without static keys the
// default AWS credential chain applies.
type AWSConfig struct {
	Region          string `json:"region" yaml:"region"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
}

type SQSPublisherConfig struct {
	AWSConfig `yaml:",inline"`
	QueueURL  string `json:"uri" yaml:"uri"`
}

type SNSPublisherConfig struct {
	AWSConfig `yaml:",inline"`
	TopicARN  string `json:"topic_arn" yaml:"topic_arn"`
}

type PubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
}

type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// EnabledValue defaults to true when enabled is omitted.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}

// Accepts reports whether events for vin are routed to this sink.
func (cfg PublisherConfig) Accepts(vin string) bool {
	return len(cfg.VINs) == 0 || slices.Contains(cfg.VINs, vin)
}

// sinkSettings is implemented by every type specific block.
type sinkSettings interface {
	normalize()
	validate() error
}

func (cfg *PublisherConfig) settings() (sinkSettings, error) {
	var s sinkSettings
	switch cfg.Type {
	case TypeSQS:
		if cfg.SQS != nil {
			s = cfg.SQS
		}
	case TypeSNS:
		if cfg.SNS != nil {
			s = cfg.SNS
		}
	case TypePubSub:
		if cfg.PubSub != nil {
			s = cfg.PubSub
		}
	case TypeHTTP:
		if cfg.HTTP != nil {
			s = cfg.HTTP
		}
	case "":
		return nil, errors.New("type is required")
	default:
		return nil, fmt.Errorf("unsupported type %q", cfg.Type)
	}
	if s == nil {
		return nil, fmt.Errorf("%s block is required", cfg.Type)
	}
	return s, nil
}

// prepare normalizes cfg in place and validates it.
func (cfg *PublisherConfig) prepare() error {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.ID == "" {
		return errors.New("id is required")
	}

	var vins []string
	for _, vin := range cfg.VINs {
		if vin = strings.TrimSpace(vin); vin != "" {
			vins = append(vins, vin)
		}
	}
	cfg.VINs = vins

	s, err := cfg.settings()
	if err != nil {
		return fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}
	s.normalize()
	if err := s.validate(); err != nil {
		return fmt.Errorf("publisher %q: %s.%w", cfg.ID, cfg.Type, err)
	}
	return nil
}

// value trims s and expands ${VAR} references so secrets can stay in the
// environment.
func value(s string) string {
	return strings.TrimSpace(os.ExpandEnv(s))
}

func required(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func (c *AWSConfig) normalize() {
	c.Region = value(c.Region)
	c.Endpoint = value(c.Endpoint)
	c.AccessKeyID = value(c.AccessKeyID)
	c.SecretAccessKey = value(c.SecretAccessKey)
	c.SessionToken = value(c.SessionToken)
}

func (c *AWSConfig) validate() error {
	if err := required("region", c.Region); err != nil {
		return err
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return errors.New("access_key_id and secret_access_key must be set together")
	}
	return nil
}

func (c *SQSPublisherConfig) normalize() {
	c.AWSConfig.normalize()
	c.QueueURL = value(c.QueueURL)
}

func (c *SQSPublisherConfig) validate() error {
	if err := required("uri", c.QueueURL); err != nil {
		return err
	}
	return c.AWSConfig.validate()
}

func (c *SNSPublisherConfig) normalize() {
	c.AWSConfig.normalize()
	c.TopicARN = value(c.TopicARN)
}

func (c *SNSPublisherConfig) validate() error {
	if err := required("topic_arn", c.TopicARN); err != nil {
		return err
	}
	return c.AWSConfig.validate()
}

func (c *PubSubPublisherConfig) normalize() {
	c.ProjectID = value(c.ProjectID)
	c.Topic = value(c.Topic)
	c.CredentialsFile = value(c.CredentialsFile)
	c.Endpoint = value(c.Endpoint)
}

func (c *PubSubPublisherConfig) validate() error {
	if err := required("project_id", c.ProjectID); err != nil {
		return err
	}
	return required("topic", c.Topic)
}

func (c *HTTPPublisherConfig) normalize() {
	c.URL = value(c.URL)
	c.Method = strings.ToUpper(value(c.Method))
	if c.Method == "" {
		c.Method = defaultHTTPMethod
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultHTTPTimeoutSeconds
	}
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		if k, v = strings.TrimSpace(k), value(v); k != "" && v != "" {
			headers[k] = v
		}
	}
	c.Headers = headers
}

func (c *HTTPPublisherConfig) validate() error {
	if err := required("url", c.URL); err != nil {
		return err
	}
	switch c.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return nil
	default:
		return fmt.Errorf("method %q cannot carry an event body", c.Method)
	}
}

// ConfigRegistry holds validated publisher entries in file order.
type ConfigRegistry struct {
	entries []PublisherConfig
	byID    map[string]int
}

// LoadRegistry reads a YAML or JSON publishers file. Files without a known
// extension are decoded as YAML, which also accepts JSON.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var doc publishersFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(raw, &doc)
	} else {
		err = yaml.Unmarshal(raw, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("decode publishers file %s: %w", path, err)
	}
	return NewConfigRegistry(doc.Publishers)
}

// NewConfigRegistry validates cfgs. IDs must be unique.
func NewConfigRegistry(cfgs []PublisherConfig) (*ConfigRegistry, error) {
	if len(cfgs) == 0 {
		return nil, errors.New("no publishers configured")
	}
	reg := &ConfigRegistry{
		entries: make([]PublisherConfig, 0, len(cfgs)),
		byID:    make(map[string]int, len(cfgs)),
	}
	for i, cfg := range cfgs {
		if err := cfg.prepare(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.byID[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.byID[cfg.ID] = len(reg.entries)
		reg.entries = append(reg.entries, cfg)
	}
	return reg, nil
}

func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	i, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return PublisherConfig{}, false
	}
	return r.entries[i], true
}

func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	return slices.Clone(r.entries)
}

func (r *ConfigRegistry) Enabled() []PublisherConfig {
	if r == nil {
		return nil
	}
	var out []PublisherConfig
	for _, cfg := range r.entries {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}
