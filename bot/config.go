package bot

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// Config is the bot's one configuration document.
type Config struct {
	// Prefix marks a message as a command ("!" by default).
	Prefix string `yaml:"prefix"`

	Platform PlatformConfig `yaml:"platform"`
	Storage  StorageConfig  `yaml:"storage"`
}

// PlatformConfig selects and configures the chat platform client.
type PlatformConfig struct {
	// Kind is "ws" or "mq".
	Kind string `yaml:"kind"`

	// URL is the websocket gateway URL (ws only).
	URL string `yaml:"url"`

	// Broker is the MQTT broker URL (mq only).
	Broker       string `yaml:"broker"`
	ClientId     string `yaml:"clientId"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	EventTopic   string `yaml:"eventTopic"`
	CommandTopic string `yaml:"commandTopic"`
}

// StorageConfig selects the DataIO backend.
type StorageConfig struct {
	// Kind is "memory" or "bolt".
	Kind string `yaml:"kind"`

	// Path is the bolt database filename (bolt only).
	Path string `yaml:"path"`
}

// Validate applies defaults and rejects impossible configurations.
func (c *Config) Validate() error {
	if c.Prefix == "" {
		c.Prefix = "!"
	}
	if c.Storage.Kind == "" {
		c.Storage.Kind = "memory"
	}

	switch c.Storage.Kind {
	case "memory":
	case "bolt":
		if c.Storage.Path == "" {
			return fmt.Errorf("bolt storage needs a path")
		}
	default:
		return fmt.Errorf("unknown storage kind `%s`", c.Storage.Kind)
	}

	switch c.Platform.Kind {
	case "", "ws":
		if c.Platform.Kind == "ws" && c.Platform.URL == "" {
			return fmt.Errorf("ws platform needs a url")
		}
	case "mq":
		if c.Platform.Broker == "" {
			return fmt.Errorf("mq platform needs a broker")
		}
	default:
		return fmt.Errorf("unknown platform kind `%s`", c.Platform.Kind)
	}

	return nil
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(filename string) (*Config, error) {
	bs, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(bs, &c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", filename, err)
	}
	return &c, nil
}
