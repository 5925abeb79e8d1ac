package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"headerDiffCodec/internal/headerdiff"
	"headerDiffCodec/internal/logging"
)

type RegistryConfig struct {
	Request  []string `yaml:"request"`
	Response []string `yaml:"response"`
}

type CodecConfig struct {
	MaxTableSize int            `yaml:"max_table_size"`
	Context      string         `yaml:"context"`
	Registry     RegistryConfig `yaml:"registry"`
}

type ServerConfig struct {
	Port        int           `yaml:"port"`
	MaxSessions int           `yaml:"max_sessions"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Config struct {
	Codec  CodecConfig  `yaml:"codec"`
	Server ServerConfig `yaml:"server"`
	Logger LoggerConfig `yaml:"logger"`
}

func Default() *Config {
	return &Config{
		Codec: CodecConfig{
			MaxTableSize: headerdiff.DefaultMaxTableSize,
			Context:      headerdiff.RequestContext.String(),
		},
		Server: ServerConfig{
			Port:        8080,
			MaxSessions: 1024,
			SessionTTL:  30 * time.Minute,
		},
		Logger: LoggerConfig{
			Level: string(logging.LogLevelInfo),
		},
	}
}

func (c *Config) Validate() error {
	if c.Codec.MaxTableSize <= 0 {
		return errors.New("codec max table size must be positive")
	}
	if c.Codec.MaxTableSize > headerdiff.MaxTableSizeLimit {
		return fmt.Errorf("codec max table size cannot exceed %d", headerdiff.MaxTableSizeLimit)
	}
	if _, err := headerdiff.ParseContext(c.Codec.Context); err != nil {
		return err
	}
	if err := validateRegistry("request", c.Codec.Registry.Request); err != nil {
		return err
	}
	if err := validateRegistry("response", c.Codec.Registry.Response); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d is out of range", c.Server.Port)
	}
	if c.Server.MaxSessions < 0 {
		return errors.New("server max sessions cannot be negative")
	}
	if c.Server.SessionTTL < 0 {
		return errors.New("server session ttl cannot be negative")
	}
	if _, err := logging.ParseLevel(c.Logger.Level); err != nil {
		return err
	}
	return nil
}

func validateRegistry(context string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" {
			return fmt.Errorf("%s registry contains an empty name", context)
		}
		if seen[name] {
			return fmt.Errorf("%s registry lists %q twice", context, name)
		}
		seen[name] = true
	}
	return nil
}

// HeaderDiff builds the codec settings for the given context. An empty
// context uses the configured one.
func (c *Config) HeaderDiff(context string, logger logging.Logger) (headerdiff.Config, error) {
	if context == "" {
		context = c.Codec.Context
	}
	ctx, err := headerdiff.ParseContext(context)
	if err != nil {
		return headerdiff.Config{}, err
	}

	registry := c.Codec.Registry.Request
	if ctx == headerdiff.ResponseContext {
		registry = c.Codec.Registry.Response
	}
	if len(registry) == 0 {
		registry = nil
	}

	return headerdiff.Config{
		MaxTableSize: c.Codec.MaxTableSize,
		Context:      ctx,
		Registry:     registry,
		Logger:       logger,
	}, nil
}

// LoadConfig reads configFileName over the defaults. An empty name returns
// the defaults.
func LoadConfig(configFileName string) (*Config, error) {
	config := Default()
	if configFileName == "" {
		return config, nil
	}

	data, err := os.ReadFile(configFileName)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", configFileName, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
