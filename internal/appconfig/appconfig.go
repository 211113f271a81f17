package appconfig

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

// Config holds all configuration details
type Config struct {
	Host        string            `yaml:"host"`
	BasePath    string            `yaml:"basePath"`
	DocsPath    string            `yaml:"docsPath"`
	Database    DatabaseConfig    `yaml:"database"`
	Pulsar      PulsarConfig      `yaml:"pulsar"`
	Invites     InvitesConfig     `yaml:"invites"`
	AuthService AuthServiceConfig `yaml:"authService"`
	AWS         AWSConfig         `yaml:"aws"`
	RateLimit   RateLimitConfig   `yaml:"rateLimit"`
}

// DatabaseConfig defines the database connection details
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Source string `yaml:"source"`
}

// PulsarConfig defines the messaging system connection details
type PulsarConfig struct {
	URL           string              `yaml:"url"`
	TopicProducer string              `yaml:"topicProducer"`
	TopicConsumer string              `yaml:"topicConsumer"`
	Subscription  string              `yaml:"subscription"`
	TestPublisher TestPublisherConfig `yaml:"testPublisher"`
}

// TestPublisherConfig enables the interval test publisher used to exercise
// the queue in non-production environments. Never enabled by default.
type TestPublisherConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Interval string `yaml:"interval"`
}

// InvitesConfig defines where invite links point and how long they stay valid
type InvitesConfig struct {
	AcceptURL string `yaml:"acceptURL"`
	TTL       string `yaml:"ttl"`
}

// AuthServiceConfig defines the client credentials for the auth service admin
// API, used to provision login accounts when invites are accepted
type AuthServiceConfig struct {
	URL          string `yaml:"url"`
	ClientId     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
}

type SESConfig struct {
	FromAddress string `yaml:"fromAddress"`
	FromName    string `yaml:"fromName"`
}

type S3Config struct {
	Bucket  string `yaml:"bucket"`
	RoleArn string `yaml:"roleArn"`
}

type AWSConfig struct {
	Region string `yaml:"region"`
	// Endpoint points the SDK at a local stack instead of AWS. Leave empty in
	// real environments.
	Endpoint      string    `yaml:"endpoint"`
	SecretsPrefix string    `yaml:"secretsPrefix"`
	SES           SESConfig `yaml:"ses"`
	S3            S3Config  `yaml:"s3"`
}

// RateLimitConfig throttles the public invite endpoints per client IP
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// TestPublisherInterval returns the configured publish cadence, defaulting
// to 5 seconds when unset or unparseable.
func (p PulsarConfig) TestPublisherInterval() time.Duration {
	if p.TestPublisher.Interval == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(p.TestPublisher.Interval)
	if err != nil {
		log.Warn().Str("interval", p.TestPublisher.Interval).
			Msg("invalid test publisher interval, using 5s")
		return 5 * time.Second
	}
	return d
}

// InviteTTL returns how long invite links stay valid, defaulting to 7 days.
func (i InvitesConfig) InviteTTL() time.Duration {
	if i.TTL == "" {
		return 7 * 24 * time.Hour
	}
	d, err := time.ParseDuration(i.TTL)
	if err != nil {
		log.Warn().Str("ttl", i.TTL).Msg("invalid invite ttl, using 168h")
		return 7 * 24 * time.Hour
	}
	return d
}

// LoadConfig loads and parses the configuration from a given file path
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		err := errors.New("config file path is required")
		log.Error().Err(err).Msg("config file not provided")
		return nil, err
	}

	// Parse the template file
	tmpl, err := template.ParseFiles(path)
	if err != nil {
		log.Error().Err(err).Msg("error parsing config file template")
		return nil, err
	}

	// Create a map of environment variables
	envVars := loadEnvVars()

	// Execute the template with environment variables
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, envVars)
	if err != nil {
		log.Error().Err(err).Msg("error executing config file template")
		return nil, err
	}

	// Load and unmarshal the YAML
	var config Config
	if err := yaml.Unmarshal(buf.Bytes(), &config); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal config YAML")
		return nil, err
	}

	return &config, nil
}

// loadEnvVars loads environment variables into a map
func loadEnvVars() map[string]string {
	envVars := make(map[string]string)
	for _, env := range os.Environ() {
		kv := strings.SplitN(env, "=", 2)
		if len(kv) == 2 {
			envVars[kv[0]] = kv[1]
		}
	}
	return envVars
}
