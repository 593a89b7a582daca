package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime settings for the geo-guardian server.
type Config struct {
	// ListenAddress is the HTTP listen address for ingestion and queries.
	ListenAddress string `yaml:"listen_addr"`
	// DatabasePath is the sqlite file storing derived location events.
	DatabasePath string `yaml:"db_path"`
	// ModelBundle is the path to the fitted classifier bundle YAML.
	ModelBundle string `yaml:"model_bundle"`
	// UTCOffsetMinutes is the fixed offset applied to report timestamps
	// before extracting hour-of-day and weekday features. No DST handling;
	// it must match the convention the classifiers were trained with.
	UTCOffsetMinutes int `yaml:"utc_offset_minutes"`
	// ResponderContact is the fixed identity that receives confirmation
	// prompts and whose replies drive the alert workflow.
	ResponderContact string `yaml:"responder_contact"`
	// VoiceDestination is the number called when an alert is confirmed.
	// Defaults to ResponderContact when empty.
	VoiceDestination string `yaml:"voice_destination"`
	// CollaboratorTimeout bounds every call to persistence, notification,
	// geocoding and routing collaborators.
	CollaboratorTimeout time.Duration `yaml:"collaborator_timeout"`
	// AlertTimeout moves an unanswered Pending alert to TimedOut and
	// escalates with a call. Zero disables the timeout entirely.
	AlertTimeout time.Duration `yaml:"alert_timeout"`
	// LogLevel is the minimum level emitted by the logger.
	LogLevel string `yaml:"log_level"`

	// MQTT configures the optional OwnTracks broker subscription.
	MQTT MQTT `yaml:"mqtt"`
	// Redis configures the optional durable membership store.
	Redis Redis `yaml:"redis"`
	// Notifier configures the SMS/voice gateway.
	Notifier Notifier `yaml:"notifier"`
	// Geocoder configures reverse geocoding.
	Geocoder Geocoder `yaml:"geocoder"`
	// Router configures walking-route planning.
	Router Router `yaml:"router"`
}

// MQTT holds broker subscription settings. Ingestion over MQTT is enabled
// only when BrokerAddress is non-empty.
type MQTT struct {
	BrokerAddress string `yaml:"broker_addr"`
	Topic         string `yaml:"topic"`
	ClientID      string `yaml:"client_id"`
}

// Redis holds connection settings for the durable membership store.
// When Address is empty, membership lives in process memory only.
type Redis struct {
	Address  string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Notifier holds SMS/voice gateway credentials.
type Notifier struct {
	// BaseURL is the gateway API root.
	BaseURL string `yaml:"base_url"`
	// AccountID and AuthToken authenticate gateway requests.
	AccountID string `yaml:"account_id"`
	AuthToken string `yaml:"auth_token"`
	// FromNumber is the sender identity for texts and calls.
	FromNumber string `yaml:"from_number"`
}

// Geocoder holds reverse-geocoding settings.
type Geocoder struct {
	BaseURL string `yaml:"base_url"`
}

// Router holds route-planning settings.
type Router struct {
	BaseURL string `yaml:"base_url"`
	// MaxPoints caps how many history coordinates are sent per request;
	// longer paths are downsampled by distance first.
	MaxPoints int `yaml:"max_points"`
}

const (
	// DefaultConfigFilename is the default filename for server settings.
	DefaultConfigFilename = "geo-guardian-settings.yaml"

	// DefaultListenAddress is the default HTTP listen address.
	DefaultListenAddress = ":8080"

	// DefaultDatabasePath is the default sqlite database location.
	DefaultDatabasePath = "geo-guardian.db"

	// DefaultCollaboratorTimeout bounds outbound collaborator calls.
	DefaultCollaboratorTimeout = 5 * time.Second

	// DefaultMQTTTopic is the OwnTracks wildcard topic.
	DefaultMQTTTopic = "owntracks/#"

	// DefaultRouterMaxPoints caps coordinates per routing request.
	DefaultRouterMaxPoints = 100

	// DefaultFilePermissions is the file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errModelBundleRequired is returned when the classifier bundle path is missing.
	errModelBundleRequired = errors.New("model bundle path must be provided")
	// errResponderRequired is returned when no responder contact is configured.
	errResponderRequired = errors.New("responder contact must be provided")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions: the file carries gateway credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ModelBundle == "" {
		return errModelBundleRequired
	}

	if cfg.ResponderContact == "" {
		return errResponderRequired
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = DefaultDatabasePath
	}

	if cfg.CollaboratorTimeout <= 0 {
		cfg.CollaboratorTimeout = DefaultCollaboratorTimeout
	}

	if cfg.VoiceDestination == "" {
		cfg.VoiceDestination = cfg.ResponderContact
	}

	if cfg.MQTT.BrokerAddress != "" && cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = DefaultMQTTTopic
	}

	if cfg.Router.MaxPoints <= 0 {
		cfg.Router.MaxPoints = DefaultRouterMaxPoints
	}

	return nil
}
